package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

// sanitizer clamps untrusted numbers field by field and records every adjustment.
type sanitizer struct {
	engine   *nutrition.Engine
	warnings []string
}

func (s *sanitizer) warnf(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

// value returns a non-negative finite number no larger than max.
// Missing fields default to 0 silently; malformed ones are reported.
func (s *sanitizer) value(field string, x float64, present bool, max float64) float64 {
	if !present {
		return 0
	}
	if math.IsNaN(x) || math.IsInf(x, 0) {
		s.warnf("%s is not a finite number, defaulted to 0", field)
		return 0
	}
	if x < 0 {
		s.warnf("%s was negative (%v), defaulted to 0", field, x)
		return 0
	}
	if x > max {
		s.warnf("%s %v above limit, clamped to %v", field, x, max)
		return max
	}
	return x
}

func (s *sanitizer) vector(ctx string, calories, carbs, protein, fat, sugar *float64) nutrition.Vector {
	cfg := s.engine.Config()
	get := func(p *float64) (float64, bool) {
		if p == nil {
			return 0, false
		}
		return *p, true
	}
	v := nutrition.Vector{Unit: nutrition.UnitGram}
	c, ok := get(calories)
	v.Calories = s.value(ctx+" calories", c, ok, cfg.MaxCalories)
	x, ok := get(carbs)
	v.CarbsG = s.value(ctx+" carbs", x, ok, cfg.MaxMacroG)
	x, ok = get(protein)
	v.ProteinG = s.value(ctx+" protein", x, ok, cfg.MaxMacroG)
	x, ok = get(fat)
	v.FatG = s.value(ctx+" fat", x, ok, cfg.MaxMacroG)
	if x, ok = get(sugar); ok {
		v.SugarG = nutrition.Float(s.value(ctx+" sugar", x, ok, cfg.MaxMacroG))
	}
	return v.Round()
}

// capEnergy shrinks the macros proportionally when their energy exceeds the
// calorie limit. Grams are floored to 0.1 so the result stays under the limit.
func (s *sanitizer) capEnergy(ctx string, v nutrition.Vector) nutrition.Vector {
	limit := s.engine.Config().MaxCalories
	if v.Calories <= limit {
		return v
	}
	factor := limit / nutrition.CaloriesFromMacros(v)
	floor := func(x float64) float64 { return math.Floor(x*factor*10) / 10 }
	out := nutrition.Vector{
		CarbsG:   floor(v.CarbsG),
		ProteinG: floor(v.ProteinG),
		FatG:     floor(v.FatG),
		Unit:     v.Unit,
	}
	if v.SugarG != nil {
		out.SugarG = nutrition.Float(math.Min(floor(*v.SugarG), out.CarbsG))
	}
	out = out.WithCaloriesFromMacros()
	s.warnf("%s energy %v kcal above limit, macros scaled to %v kcal", ctx, v.Calories, out.Calories)
	return out
}

// number reads a JSON number, also accepting numeric strings such as "12,5 g".
// Missing and null fields return nil; anything unparsable returns NaN.
func number(r gjson.Result) *float64 {
	var v float64
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.Number:
		v = r.Num
	case gjson.String:
		str := strings.TrimRight(strings.TrimSpace(r.Str), "gGkKcCaAlL ")
		f, err := strconv.ParseFloat(strings.ReplaceAll(str, ",", "."), 64)
		if err != nil {
			f = math.NaN()
		}
		v = f
	default:
		v = math.NaN()
	}
	return &v
}

func firstOf(obj gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if r := obj.Get(k); r.Exists() {
			return r
		}
	}
	return gjson.Result{}
}

// cleanPayload strips markdown fences and surrounding prose from a model response.
func cleanPayload(raw []byte) string {
	s := string(raw)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		s = s[start : end+1]
	}
	return s
}
