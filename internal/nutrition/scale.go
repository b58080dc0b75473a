package nutrition

import (
	"fmt"
	"math"
)

// Scale rescales v, defined at fromWeight, to toWeight. Results above the
// configured limits are an error rather than clamped.
func (e *Engine) Scale(v Vector, fromWeight, toWeight float64) (Vector, error) {
	if !e.IsValidWeight(fromWeight) {
		return Vector{}, invalid("from weight", fromWeight, ErrInvalidWeight)
	}
	if !e.IsValidWeight(toWeight) {
		return Vector{}, invalid("to weight", toWeight, ErrInvalidWeight)
	}
	factor, err := ratio(toWeight, fromWeight)
	if err != nil {
		return Vector{}, err
	}
	scaled := v.Mul(factor).Round()
	if err := e.checkRange(scaled); err != nil {
		return Vector{}, fmt.Errorf("scale %vg to %vg: %w", fromWeight, toWeight, err)
	}
	return scaled, nil
}

// ratio returns num/den, refusing denominators too small to divide by.
func ratio(num, den float64) (float64, error) {
	if !isFinite(den) || math.Abs(den) < zeroEpsilon {
		return 0, fmt.Errorf("%w: %v", ErrArithmeticGuard, den)
	}
	return num / den, nil
}
