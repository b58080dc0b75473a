package nutrition

import (
	"errors"
	"fmt"
	"math"
)

type Result struct {
	Valid  bool
	Reason string
	Err    error
}

func (e *Engine) IsValidValue(x float64) bool {
	return isFinite(x) && x >= 0
}

func (e *Engine) IsValidWeight(g float64) bool {
	return e.IsValidValue(g) && g >= e.cfg.MinWeightG
}

func (e *Engine) IsValidCalories(c float64) bool {
	return e.IsValidValue(c) && c <= e.cfg.MaxCalories
}

func (e *Engine) IsValidMacro(m float64) bool {
	return e.IsValidValue(m) && m <= e.cfg.MaxMacroG
}

// Validate checks ranges first, then energy/macro consistency.
func (e *Engine) Validate(v Vector) Result {
	if err := e.checkRange(v); err != nil {
		return Result{Valid: false, Reason: err.Error(), Err: err}
	}
	if err := e.checkConsistency(v); err != nil {
		return Result{Valid: false, Reason: err.Error(), Err: err}
	}
	return Result{Valid: true}
}

// RequireValid guards a vector about to be stored as a standalone fact.
// Range failures are returned; a consistency mismatch is only logged.
func (e *Engine) RequireValid(v Vector) error {
	res := e.Validate(v)
	if res.Valid {
		return nil
	}
	var ce *ConsistencyError
	if errors.As(res.Err, &ce) {
		e.log.Warn("nutrition vector inconsistent", "calories", ce.Stated, "macro_energy", ce.Expected)
		return nil
	}
	return res.Err
}

type fieldLimit struct {
	name  string
	value float64
	max   float64
}

func (e *Engine) checkRange(v Vector) error {
	fields := []fieldLimit{
		{"calories", v.Calories, e.cfg.MaxCalories},
		{"carbs", v.CarbsG, e.cfg.MaxMacroG},
		{"protein", v.ProteinG, e.cfg.MaxMacroG},
		{"fat", v.FatG, e.cfg.MaxMacroG},
	}
	if v.SugarG != nil {
		fields = append(fields, fieldLimit{"sugar", *v.SugarG, e.cfg.MaxMacroG})
	}
	for _, f := range fields {
		if !e.IsValidValue(f.value) {
			return invalid(f.name, f.value, ErrInvalidValue)
		}
		if f.value > f.max {
			return invalid(f.name, f.value, fmt.Errorf("%w: must be <= %v", ErrOutOfRange, f.max))
		}
	}
	return nil
}

func (e *Engine) checkConsistency(v Vector) error {
	expected := CaloriesFromMacros(v)
	if math.Abs(expected-v.Calories) > e.cfg.CalorieTolerance*v.Calories {
		return &ConsistencyError{Stated: v.Calories, Expected: expected, Tolerance: e.cfg.CalorieTolerance}
	}
	return nil
}
