package nutrition

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrInvalidValue         = errors.New("value must be a finite number >= 0")
	ErrInvalidWeight        = errors.New("invalid weight")
	ErrOutOfRange           = errors.New("value out of range")
	ErrConsistency          = errors.New("calories do not match macronutrients")
	ErrNotFound             = errors.New("not found")
	ErrArithmeticGuard      = errors.New("zero or near-zero denominator")
	ErrUnknownCookingMethod = errors.New("unknown cooking method")
	ErrInvalidProfile       = errors.New("invalid profile")
)

// ValidationError reports a rejected field. It matches ErrValidation and its Kind.
type ValidationError struct {
	Field string
	Value float64
	Kind  error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%v: %v", ErrValidation, e.Kind)
	}
	return fmt.Sprintf("invalid %s (%v): %v", e.Field, e.Value, e.Kind)
}

func (e *ValidationError) Unwrap() []error {
	return []error{ErrValidation, e.Kind}
}

// ConsistencyError is advisory: stated calories differ from the 4/4/9 energy of the macros.
type ConsistencyError struct {
	Stated    float64
	Expected  float64
	Tolerance float64
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("calories %.0f differ from macro energy %.1f by more than %.0f%%", e.Stated, e.Expected, e.Tolerance*100)
}

func (e *ConsistencyError) Unwrap() error {
	return ErrConsistency
}

type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

func invalid(field string, value float64, kind error) error {
	return &ValidationError{Field: field, Value: value, Kind: kind}
}
