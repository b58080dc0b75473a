package nutrition_test

import (
	"math"
	"testing"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

func TestNormalizeModes(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})
	raw := nutrition.Vector{Calories: 360, CarbsG: 45, ProteinG: 18, FatG: 12}

	cases := []struct {
		name   string
		req    nutrition.NormalizeRequest
		label  string
		factor float64
		want   nutrition.Vector
	}{
		{
			name:   "as recorded",
			req:    nutrition.NormalizeRequest{Raw: &raw, Weight: 300, Mode: nutrition.ModeAsRecorded},
			label:  "For 300g",
			factor: 1,
			want:   raw,
		},
		{
			name:   "per 100g",
			req:    nutrition.NormalizeRequest{Raw: &raw, Weight: 300, Mode: nutrition.ModePer100G},
			label:  "Per 100g",
			factor: 100.0 / 300.0,
			want:   nutrition.Vector{Calories: 120, CarbsG: 15, ProteinG: 6, FatG: 4},
		},
		{
			name:   "per serving",
			req:    nutrition.NormalizeRequest{Raw: &raw, Weight: 300, Mode: nutrition.ModePerServing, ServingSize: 150},
			label:  "Per 150g",
			factor: 0.5,
			want:   nutrition.Vector{Calories: 180, CarbsG: 22.5, ProteinG: 9, FatG: 6},
		},
		{
			name:   "full",
			req:    nutrition.NormalizeRequest{Raw: &raw, Weight: 300, Mode: nutrition.ModeFull, TargetWeight: 450},
			label:  "For 450g",
			factor: 1.5,
			want:   nutrition.Vector{Calories: 540, CarbsG: 67.5, ProteinG: 27, FatG: 18},
		},
	}
	for _, tc := range cases {
		got := e.Normalize(tc.req)
		if got.Label != tc.label {
			t.Fatalf("%s: expected label %q, got %q", tc.name, tc.label, got.Label)
		}
		if math.Abs(got.Factor-tc.factor) > 1e-12 {
			t.Fatalf("%s: expected factor %v, got %v", tc.name, tc.factor, got.Factor)
		}
		if !got.Vector.Equal(tc.want) {
			t.Fatalf("%s: expected %+v, got %+v", tc.name, tc.want, got.Vector)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})
	raw := nutrition.Vector{Calories: 251, CarbsG: 31.7, ProteinG: 12.3, FatG: 8.1}

	for _, req := range []nutrition.NormalizeRequest{
		{Raw: &raw, Weight: 180, Mode: nutrition.ModePer100G},
		{Raw: &raw, Weight: 180, Mode: nutrition.ModePerServing, ServingSize: 45},
		{Raw: &raw, Weight: 180, Mode: nutrition.ModeAsRecorded},
		{Raw: &raw, Weight: 180, Mode: nutrition.ModeFull, TargetWeight: 260},
	} {
		first := e.Normalize(req)
		again := req
		again.Raw = &first.Vector
		again.Weight = first.Weight
		again.TargetWeight = first.Weight
		second := e.Normalize(again)
		if second.Factor != 1 {
			t.Fatalf("%s: expected factor 1 on re-normalization, got %v", req.Mode, second.Factor)
		}
		if !second.Vector.Equal(first.Vector) {
			t.Fatalf("%s: expected %+v, got %+v", req.Mode, first.Vector, second.Vector)
		}
	}
}

func TestNormalizeDegradesToInsufficientData(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})
	bad := nutrition.Vector{Calories: math.NaN(), CarbsG: 1}
	ok := nutrition.Vector{Calories: 100, CarbsG: 25}

	for _, req := range []nutrition.NormalizeRequest{
		{Raw: nil, Weight: 100, Mode: nutrition.ModePer100G},
		{Raw: &ok, Weight: 0, Mode: nutrition.ModePer100G},
		{Raw: &ok, Weight: -5, Mode: nutrition.ModeAsRecorded},
		{Raw: &bad, Weight: 100, Mode: nutrition.ModeFull},
	} {
		got := e.Normalize(req)
		if got.Label != nutrition.LabelInsufficientData || !got.Vector.IsZero() {
			t.Fatalf("expected insufficient data for %+v, got %+v", req, got)
		}
	}
}

func TestNormalizePerServingFallsBackWithoutServing(t *testing.T) {
	t.Parallel()
	e := nutrition.New(nutrition.Config{})
	raw := nutrition.Vector{Calories: 200, CarbsG: 20, ProteinG: 10, FatG: 8.9}

	got := e.Normalize(nutrition.NormalizeRequest{Raw: &raw, Weight: 250, Mode: nutrition.ModePerServing})
	if got.Mode != nutrition.ModeAsRecorded || got.Factor != 1 || got.Warning == "" {
		t.Fatalf("expected as-recorded fallback with warning, got %+v", got)
	}
	if !got.Vector.Equal(raw) {
		t.Fatalf("expected raw values, got %+v", got.Vector)
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()
	for in, want := range map[string]nutrition.Mode{
		"":            nutrition.ModeAsRecorded,
		"per-100g":    nutrition.ModePer100G,
		"PER_SERVING": nutrition.ModePerServing,
		"full":        nutrition.ModeFull,
	} {
		got, err := nutrition.ParseMode(in)
		if err != nil || got != want {
			t.Fatalf("parse %q: expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := nutrition.ParseMode("per-ounce"); err == nil {
		t.Fatalf("expected unsupported mode error")
	}
}
