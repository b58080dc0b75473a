package nutrition

import (
	"fmt"
	"sort"
	"strings"
)

type CookingMethod string

const (
	CookingRaw     CookingMethod = "raw"
	CookingBoiled  CookingMethod = "boiled"
	CookingSteamed CookingMethod = "steamed"
	CookingFried   CookingMethod = "fried"
	CookingBaked   CookingMethod = "baked"
	CookingGrilled CookingMethod = "grilled"
)

// CookingFactor holds per-field retention multipliers and the weight yield of a method.
type CookingFactor struct {
	Calories float64
	Carbs    float64
	Protein  float64
	Fat      float64
	Weight   float64
}

var defaultCookingFactors = map[CookingMethod]CookingFactor{
	CookingRaw:     {Calories: 1, Carbs: 1, Protein: 1, Fat: 1, Weight: 1},
	CookingBoiled:  {Calories: 0.97, Carbs: 0.98, Protein: 0.97, Fat: 0.95, Weight: 0.9},
	CookingSteamed: {Calories: 0.99, Carbs: 0.99, Protein: 0.98, Fat: 0.98, Weight: 0.95},
	CookingFried:   {Calories: 1.1, Carbs: 1, Protein: 0.96, Fat: 1.15, Weight: 0.8},
	CookingBaked:   {Calories: 0.97, Carbs: 0.98, Protein: 0.95, Fat: 0.97, Weight: 0.85},
	CookingGrilled: {Calories: 0.93, Carbs: 0.98, Protein: 0.94, Fat: 0.85, Weight: 0.8},
}

func (e *Engine) ParseCookingMethod(s string) (CookingMethod, error) {
	m := CookingMethod(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := e.cfg.CookingFactors[m]; !ok {
		return "", fmt.Errorf("%w %q", ErrUnknownCookingMethod, s)
	}
	return m, nil
}

func (e *Engine) CookingMethods() []CookingMethod {
	out := make([]CookingMethod, 0, len(e.cfg.CookingFactors))
	for m := range e.cfg.CookingFactors {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (e *Engine) cookingFactor(method CookingMethod) (CookingFactor, error) {
	f, ok := e.cfg.CookingFactors[method]
	if !ok {
		return CookingFactor{}, fmt.Errorf("%w %q", ErrUnknownCookingMethod, method)
	}
	return f, nil
}

// AdjustForCooking applies the retention factors of method to an already validated vector.
func (e *Engine) AdjustForCooking(v Vector, method CookingMethod) (Vector, error) {
	f, err := e.cookingFactor(method)
	if err != nil {
		return Vector{}, err
	}
	out := Vector{
		Calories: v.Calories * f.Calories,
		CarbsG:   v.CarbsG * f.Carbs,
		ProteinG: v.ProteinG * f.Protein,
		FatG:     v.FatG * f.Fat,
		Unit:     v.unitOr(e.cfg.DefaultUnit),
	}
	if v.SugarG != nil {
		out.SugarG = Float(*v.SugarG * f.Carbs)
	}
	return out.Round(), nil
}

func (e *Engine) CookedWeight(rawWeight float64, method CookingMethod) (float64, error) {
	f, err := e.cookingFactor(method)
	if err != nil {
		return 0, err
	}
	if !e.IsValidWeight(rawWeight) {
		return 0, invalid("raw weight", rawWeight, ErrInvalidWeight)
	}
	return RoundGrams(rawWeight * f.Weight), nil
}

// Percentages is a per-field percentage set.
type Percentages struct {
	Calories float64 `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Protein  float64 `json:"protein"`
	Fat      float64 `json:"fat"`
}

// AdjustmentPercentages reports (after-before)/before*100 per field; fields with a zero base report 0.
func AdjustmentPercentages(before, after Vector) Percentages {
	change := func(b, a float64) float64 {
		r, err := ratio(a-b, b)
		if err != nil {
			return 0
		}
		return RoundGrams(r * 100)
	}
	return Percentages{
		Calories: change(before.Calories, after.Calories),
		Carbs:    change(before.CarbsG, after.CarbsG),
		Protein:  change(before.ProteinG, after.ProteinG),
		Fat:      change(before.FatG, after.FatG),
	}
}
