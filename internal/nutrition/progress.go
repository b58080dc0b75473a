package nutrition

import "math"

type Progress struct {
	Percent   Percentages `json:"percent"`
	Remaining Vector      `json:"remaining"`
}

// ComputeProgress compares consumption against goals. Remaining never goes
// negative; overshoot only shows as a percentage above 100.
func ComputeProgress(current, goals Vector) Progress {
	pct := func(c, g float64) float64 {
		if !isFinite(g) || g <= 0 || !isFinite(c) {
			return 0
		}
		return Percent(c, g)
	}
	left := func(c, g float64) float64 {
		if !isFinite(g) || !isFinite(c) {
			return 0
		}
		return math.Max(0, g-c)
	}
	return Progress{
		Percent: Percentages{
			Calories: pct(current.Calories, goals.Calories),
			Carbs:    pct(current.CarbsG, goals.CarbsG),
			Protein:  pct(current.ProteinG, goals.ProteinG),
			Fat:      pct(current.FatG, goals.FatG),
		},
		Remaining: Vector{
			Calories: RoundCalories(left(current.Calories, goals.Calories)),
			CarbsG:   RoundGrams(left(current.CarbsG, goals.CarbsG)),
			ProteinG: RoundGrams(left(current.ProteinG, goals.ProteinG)),
			FatG:     RoundGrams(left(current.FatG, goals.FatG)),
			Unit:     UnitGram,
		},
	}
}

// EffectiveMacros scales a planned portion by the percentage actually eaten, clamped to [0,100].
func EffectiveMacros(v Vector, percentageConsumed float64) Vector {
	if !isFinite(percentageConsumed) || percentageConsumed < 0 {
		percentageConsumed = 0
	}
	if percentageConsumed > 100 {
		percentageConsumed = 100
	}
	return v.Mul(percentageConsumed / 100).Round()
}

func CompletionPercentage(consumed, target Vector) float64 {
	if !isFinite(target.Calories) || target.Calories <= 0 {
		return 0
	}
	return Percent(consumed.Calories, target.Calories)
}
