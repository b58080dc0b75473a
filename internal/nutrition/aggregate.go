package nutrition

import "math"

// AggregateFromLinks sums link vectors from scratch. Calories are recomputed
// from the summed grams, never summed from the links.
func (e *Engine) AggregateFromLinks(links []Vector) Vector {
	sum := Zero()
	sum.Unit = e.cfg.DefaultUnit
	for _, l := range links {
		sum = sum.Add(l)
	}
	return e.finalizeAggregate(sum)
}

// ApplyDelta returns current - old + next with the same finishing step as a full resum.
// Pass Zero() as old for an added link and as next for a removed one.
func (e *Engine) ApplyDelta(current, old, next Vector) Vector {
	return e.finalizeAggregate(current.Sub(old).Add(next))
}

func (e *Engine) finalizeAggregate(v Vector) Vector {
	out := Vector{
		CarbsG:   e.clampAggregate("carbs", RoundGrams(v.CarbsG)),
		ProteinG: e.clampAggregate("protein", RoundGrams(v.ProteinG)),
		FatG:     e.clampAggregate("fat", RoundGrams(v.FatG)),
		Unit:     v.unitOr(e.cfg.DefaultUnit),
	}
	if v.SugarG != nil {
		out.SugarG = Float(e.clampAggregate("sugar", RoundGrams(*v.SugarG)))
	}
	out.Calories = RoundCalories(CaloriesFromMacros(out))
	if err := e.checkRange(out); err != nil {
		e.log.Warn("aggregate out of range", "err", err)
	}
	return out
}

func (e *Engine) clampAggregate(field string, x float64) float64 {
	if !isFinite(x) {
		e.log.Warn("aggregate field not finite, reset to zero", "field", field)
		return 0
	}
	if math.Abs(x) < zeroEpsilon {
		return 0
	}
	if x < 0 {
		e.log.Warn("aggregate field negative, clamped to zero", "field", field, "value", x)
		return 0
	}
	return x
}
