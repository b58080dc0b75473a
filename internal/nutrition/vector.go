package nutrition

import "math"

type Unit string

const (
	UnitGram       Unit = "g"
	UnitMilliliter Unit = "ml"
)

// kcal per gram
const (
	CarbKcalPerGram    = 4.0
	ProteinKcalPerGram = 4.0
	FatKcalPerGram     = 9.0
)

// Vector is the calories+macros value at a given weight. Methods never mutate the receiver.
type Vector struct {
	Calories float64  `json:"calories"`
	CarbsG   float64  `json:"carbs_g"`
	ProteinG float64  `json:"protein_g"`
	FatG     float64  `json:"fat_g"`
	SugarG   *float64 `json:"sugar_g,omitempty"`
	Unit     Unit     `json:"unit,omitempty"`
}

func Zero() Vector {
	return Vector{Unit: UnitGram}
}

func Float(v float64) *float64 {
	return &v
}

func CaloriesFromMacros(v Vector) float64 {
	return v.CarbsG*CarbKcalPerGram + v.ProteinG*ProteinKcalPerGram + v.FatG*FatKcalPerGram
}

func (v Vector) Add(o Vector) Vector {
	out := Vector{
		Calories: v.Calories + o.Calories,
		CarbsG:   v.CarbsG + o.CarbsG,
		ProteinG: v.ProteinG + o.ProteinG,
		FatG:     v.FatG + o.FatG,
		Unit:     v.unitOr(o.Unit),
	}
	out.SugarG = combineSugar(v.SugarG, o.SugarG, 1)
	return out
}

func (v Vector) Sub(o Vector) Vector {
	out := Vector{
		Calories: v.Calories - o.Calories,
		CarbsG:   v.CarbsG - o.CarbsG,
		ProteinG: v.ProteinG - o.ProteinG,
		FatG:     v.FatG - o.FatG,
		Unit:     v.unitOr(o.Unit),
	}
	out.SugarG = combineSugar(v.SugarG, o.SugarG, -1)
	return out
}

// Mul multiplies every field by factor without rounding.
func (v Vector) Mul(factor float64) Vector {
	out := Vector{
		Calories: v.Calories * factor,
		CarbsG:   v.CarbsG * factor,
		ProteinG: v.ProteinG * factor,
		FatG:     v.FatG * factor,
		Unit:     v.unitOr(UnitGram),
	}
	if v.SugarG != nil {
		out.SugarG = Float(*v.SugarG * factor)
	}
	return out
}

// Round applies the display policy: calories to the nearest integer, grams to 0.1.
func (v Vector) Round() Vector {
	out := Vector{
		Calories: RoundCalories(v.Calories),
		CarbsG:   RoundGrams(v.CarbsG),
		ProteinG: RoundGrams(v.ProteinG),
		FatG:     RoundGrams(v.FatG),
		Unit:     v.unitOr(UnitGram),
	}
	if v.SugarG != nil {
		out.SugarG = Float(RoundGrams(*v.SugarG))
	}
	return out
}

// WithCaloriesFromMacros replaces calories with the rounded 4/4/9 energy of the macros.
func (v Vector) WithCaloriesFromMacros() Vector {
	out := v.clone()
	out.Calories = RoundCalories(CaloriesFromMacros(v))
	return out
}

func (v Vector) IsZero() bool {
	if v.SugarG != nil && *v.SugarG != 0 {
		return false
	}
	return v.Calories == 0 && v.CarbsG == 0 && v.ProteinG == 0 && v.FatG == 0
}

// Equal compares field values exactly. A nil sugar equals a zero sugar.
func (v Vector) Equal(o Vector) bool {
	return v.Calories == o.Calories &&
		v.CarbsG == o.CarbsG &&
		v.ProteinG == o.ProteinG &&
		v.FatG == o.FatG &&
		sugarValue(v.SugarG) == sugarValue(o.SugarG)
}

func (v Vector) Sugar() float64 {
	return sugarValue(v.SugarG)
}

func (v Vector) clone() Vector {
	out := v
	if v.SugarG != nil {
		out.SugarG = Float(*v.SugarG)
	}
	return out
}

func (v Vector) unitOr(fallback Unit) Unit {
	if v.Unit != "" {
		return v.Unit
	}
	if fallback != "" {
		return fallback
	}
	return UnitGram
}

func (v Vector) fields() []float64 {
	out := []float64{v.Calories, v.CarbsG, v.ProteinG, v.FatG}
	if v.SugarG != nil {
		out = append(out, *v.SugarG)
	}
	return out
}

func combineSugar(a, b *float64, sign float64) *float64 {
	if a == nil && b == nil {
		return nil
	}
	return Float(sugarValue(a) + sign*sugarValue(b))
}

func sugarValue(s *float64) float64 {
	if s == nil {
		return 0
	}
	return *s
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
