package nutrition_test

import (
	"bytes"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

func TestGuardPredicates(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})

	if !e.IsValidValue(0) || e.IsValidValue(-0.01) || e.IsValidValue(math.NaN()) || e.IsValidValue(math.Inf(1)) {
		t.Fatalf("unexpected IsValidValue results")
	}
	if !e.IsValidWeight(0.1) || e.IsValidWeight(0.09) {
		t.Fatalf("unexpected IsValidWeight results")
	}
	if !e.IsValidCalories(10000) || e.IsValidCalories(10000.5) {
		t.Fatalf("unexpected IsValidCalories results")
	}
	if !e.IsValidMacro(1000) || e.IsValidMacro(1000.1) {
		t.Fatalf("unexpected IsValidMacro results")
	}
}

func TestValidateConsistency(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})

	if res := e.Validate(nutrition.Vector{Calories: 234, CarbsG: 30, ProteinG: 15, FatG: 6}); !res.Valid {
		t.Fatalf("expected consistent vector to be valid: %s", res.Reason)
	}
	if res := e.Validate(nutrition.Vector{Calories: 100, CarbsG: 26.25}); !res.Valid {
		t.Fatalf("expected 5%% difference to be tolerated: %s", res.Reason)
	}
	res := e.Validate(nutrition.Vector{Calories: 400, CarbsG: 30, ProteinG: 15, FatG: 6})
	if res.Valid || !errors.Is(res.Err, nutrition.ErrConsistency) || res.Reason == "" {
		t.Fatalf("expected consistency failure, got %+v", res)
	}
}

func TestValidateRange(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})

	res := e.Validate(nutrition.Vector{Calories: 50, CarbsG: -1})
	if res.Valid || !errors.Is(res.Err, nutrition.ErrInvalidValue) {
		t.Fatalf("expected invalid value, got %+v", res)
	}
	res = e.Validate(nutrition.Vector{Calories: 12000, FatG: 1200})
	if res.Valid || !errors.Is(res.Err, nutrition.ErrOutOfRange) {
		t.Fatalf("expected out of range, got %+v", res)
	}
	res = e.Validate(nutrition.Vector{Calories: 40, CarbsG: 10, SugarG: nutrition.Float(math.NaN())})
	if res.Valid {
		t.Fatalf("expected NaN sugar to be rejected")
	}
}

func TestRequireValidOnlyLogsInconsistency(t *testing.T) {
	t.Parallel()
	buf := &bytes.Buffer{}
	e := nutrition.New(nutrition.Config{Logger: slog.New(slog.NewTextHandler(buf, nil))})

	if err := e.RequireValid(nutrition.Vector{Calories: 400, CarbsG: 30, ProteinG: 15, FatG: 6}); err != nil {
		t.Fatalf("expected inconsistency to be advisory, got %v", err)
	}
	if !strings.Contains(buf.String(), "inconsistent") {
		t.Fatalf("expected advisory log line, got %q", buf.String())
	}
	err := e.RequireValid(nutrition.Vector{Calories: -5})
	var ve *nutrition.ValidationError
	if !errors.As(err, &ve) || ve.Field != "calories" {
		t.Fatalf("expected calories validation error, got %v", err)
	}
}

func TestConfigOverridesPolicyConstants(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{MinWeightG: 1, MaxCalories: 500, CalorieTolerance: 0.5})

	if e.IsValidWeight(0.5) {
		t.Fatalf("expected overridden minimum weight to apply")
	}
	if e.IsValidCalories(600) {
		t.Fatalf("expected overridden calorie limit to apply")
	}
	if res := e.Validate(nutrition.Vector{Calories: 300, CarbsG: 50}); !res.Valid {
		t.Fatalf("expected wide tolerance to accept vector: %s", res.Reason)
	}
	cfg := e.Config()
	if cfg.MaxMacroG != nutrition.DefaultMaxMacroG || cfg.ReferenceWeightG != nutrition.DefaultReferenceWeightG {
		t.Fatalf("expected unset fields to keep defaults, got %+v", cfg)
	}
}
