package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

// vectorCols scans the calories, carbs_g, protein_g, fat_g, sugar_g column group.
type vectorCols struct {
	calories float64
	carbs    float64
	protein  float64
	fat      float64
	sugar    sql.NullFloat64
}

func (c *vectorCols) dest() []any {
	return []any{&c.calories, &c.carbs, &c.protein, &c.fat, &c.sugar}
}

func (c *vectorCols) vector() nutrition.Vector {
	v := nutrition.Vector{
		Calories: c.calories,
		CarbsG:   c.carbs,
		ProteinG: c.protein,
		FatG:     c.fat,
		Unit:     nutrition.UnitGram,
	}
	if c.sugar.Valid {
		v.SugarG = nutrition.Float(c.sugar.Float64)
	}
	return v
}

// vectorArgs returns the column group values in scan order.
func vectorArgs(v nutrition.Vector) []any {
	var sugar any
	if v.SugarG != nil {
		sugar = *v.SugarG
	}
	return []any{v.Calories, v.CarbsG, v.ProteinG, v.FatG, sugar}
}

func scanArgs(head []any, vc *vectorCols, tail ...any) []any {
	out := append(append([]any{}, head...), vc.dest()...)
	return append(out, tail...)
}

func args(head []any, v nutrition.Vector, tail ...any) []any {
	out := append(append([]any{}, head...), vectorArgs(v)...)
	return append(out, tail...)
}

func normalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

func requireName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s is required", nutrition.ErrValidation, field)
	}
	return nil
}

func notFound(entity string, id any) error {
	return &nutrition.NotFoundError{Entity: entity, ID: id}
}

// rowErr maps sql.ErrNoRows to a NotFoundError and wraps everything else.
func rowErr(err error, entity string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound(entity, id)
	}
	return fmt.Errorf("load %s %v: %w", entity, id, err)
}

func requireWeight(e *nutrition.Engine, field string, g float64) error {
	if !e.IsValidWeight(g) {
		return &nutrition.ValidationError{Field: field, Value: g, Kind: nutrition.ErrInvalidWeight}
	}
	return nil
}

func parseIDLoose(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("not numeric")
	}
	return id, nil
}
