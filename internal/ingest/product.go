package ingest

import (
	"fmt"
	"strings"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

const KilojoulesPerKilocalorie = 4.184

// ProductFacts are raw per-100g facts returned by a product lookup service.
// Nil fields were absent from the source.
type ProductFacts struct {
	Provider       string   `json:"provider,omitempty"`
	Barcode        string   `json:"barcode"`
	Name           string   `json:"name"`
	Brand          string   `json:"brand,omitempty"`
	EnergyKcal100g *float64 `json:"energy_kcal_100g,omitempty"`
	EnergyKJ100g   *float64 `json:"energy_kj_100g,omitempty"`
	Carbs100g      *float64 `json:"carbohydrates_100g,omitempty"`
	Proteins100g   *float64 `json:"proteins_100g,omitempty"`
	Fat100g        *float64 `json:"fat_100g,omitempty"`
	Sugars100g     *float64 `json:"sugars_100g,omitempty"`
}

type Ingredient struct {
	Name               string
	Brand              string
	Barcode            string
	ReferenceQuantityG float64
	Reference          nutrition.Vector
	Warnings           []string
}

// IngredientFromProduct converts external product facts into a catalog
// ingredient defined at the engine's reference weight.
func IngredientFromProduct(e *nutrition.Engine, f ProductFacts) (*Ingredient, error) {
	s := &sanitizer{engine: e}
	out := &Ingredient{
		Name:               strings.TrimSpace(f.Name),
		Brand:              strings.TrimSpace(f.Brand),
		Barcode:            strings.TrimSpace(f.Barcode),
		ReferenceQuantityG: e.Config().ReferenceWeightG,
	}
	if out.Name == "" {
		if out.Barcode == "" {
			return nil, fmt.Errorf("%w: product has neither name nor barcode", nutrition.ErrValidation)
		}
		out.Name = "Product " + out.Barcode
		s.warnf("product name missing, defaulted to %q", out.Name)
	}
	if f.EnergyKcal100g == nil && f.EnergyKJ100g == nil && f.Carbs100g == nil &&
		f.Proteins100g == nil && f.Fat100g == nil {
		return nil, fmt.Errorf("%w: product %q has no nutrition facts", nutrition.ErrValidation, out.Name)
	}

	calories := f.EnergyKcal100g
	if calories == nil && f.EnergyKJ100g != nil {
		kcal := *f.EnergyKJ100g / KilojoulesPerKilocalorie
		calories = &kcal
		s.warnf("energy converted from %v kJ", *f.EnergyKJ100g)
	}
	v := s.vector("product", calories, f.Carbs100g, f.Proteins100g, f.Fat100g, f.Sugars100g)
	if calories == nil {
		v = v.WithCaloriesFromMacros()
		s.warnf("energy missing, computed from macros")
	}
	if res := e.Validate(v); !res.Valid {
		// label energy is kept, the mismatch is advisory
		s.warnf("product %s", res.Reason)
	}
	out.Reference = v
	out.Warnings = s.warnings
	return out, nil
}
