package ingest

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/model"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

const (
	DefaultGeneratedMealName = "Generated meal"
	defaultQuantityG         = 100.0
)

type GeneratedIngredient struct {
	Name      string
	QuantityG float64
	Macros    nutrition.Vector
}

// GeneratedMeal is a sanitized meal proposal. Every ingredient's Macros are
// expressed at its QuantityG, and Aggregate is their resum.
type GeneratedMeal struct {
	Name         string
	Type         string
	Cuisine      string
	Description  string
	Ingredients  []GeneratedIngredient
	TotalWeightG float64
	Aggregate    nutrition.Vector
	Warnings     []string
}

// GeneratedMealFromPayload turns an untrusted text-generation response into a
// meal proposal. Malformed fields are clamped or defaulted one by one; only a
// payload without a JSON object or without any usable nutrition is rejected.
func GeneratedMealFromPayload(e *nutrition.Engine, raw []byte) (*GeneratedMeal, error) {
	body := cleanPayload(raw)
	if !gjson.Valid(body) {
		return nil, fmt.Errorf("%w: generated payload is not valid JSON", nutrition.ErrValidation)
	}
	root := gjson.Parse(body)
	if meal := root.Get("meal"); meal.IsObject() {
		root = meal
	}
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: generated payload is not a JSON object", nutrition.ErrValidation)
	}

	s := &sanitizer{engine: e}
	out := &GeneratedMeal{
		Name:        strings.TrimSpace(root.Get("name").String()),
		Description: strings.TrimSpace(root.Get("description").String()),
		Cuisine:     strings.ToLower(strings.TrimSpace(root.Get("cuisine").String())),
	}
	if out.Name == "" {
		out.Name = DefaultGeneratedMealName
		s.warnf("meal name missing, defaulted to %q", out.Name)
	}
	if t, ok := model.NormalizeMealType(root.Get("type").String()); ok {
		out.Type = t
	} else {
		out.Type = model.DefaultMealType
		if given := root.Get("type").String(); given != "" {
			s.warnf("meal type %q unknown, defaulted to %s", given, out.Type)
		}
	}
	if out.Cuisine == "" {
		out.Cuisine = model.DefaultCuisine
	}

	root.Get("ingredients").ForEach(func(key, item gjson.Result) bool {
		ing, ok := s.ingredient(fmt.Sprintf("ingredient %d", key.Int()+1), item)
		if ok {
			out.Ingredients = append(out.Ingredients, ing)
		}
		return true
	})

	if len(out.Ingredients) == 0 {
		ing, ok := s.ingredient("meal", root)
		if !ok || ing.Macros.IsZero() {
			return nil, fmt.Errorf("%w: generated payload has no usable nutrition data", nutrition.ErrValidation)
		}
		ing.Name = out.Name
		out.Ingredients = append(out.Ingredients, ing)
	}

	links := make([]nutrition.Vector, 0, len(out.Ingredients))
	total := 0.0
	for _, ing := range out.Ingredients {
		links = append(links, ing.Macros)
		total += ing.QuantityG
	}
	out.TotalWeightG = nutrition.RoundGrams(total)
	out.Aggregate = e.AggregateFromLinks(links)
	out.Warnings = s.warnings
	return out, nil
}

func (s *sanitizer) ingredient(ctx string, item gjson.Result) (GeneratedIngredient, bool) {
	if !item.IsObject() {
		s.warnf("%s is not an object, skipped", ctx)
		return GeneratedIngredient{}, false
	}
	name := strings.TrimSpace(item.Get("name").String())
	if name == "" && ctx != "meal" {
		s.warnf("%s has no name, skipped", ctx)
		return GeneratedIngredient{}, false
	}
	if name != "" {
		ctx = name
	}

	qty := defaultQuantityG
	if q := number(firstOf(item, "quantity", "quantityGrams", "weight")); q != nil {
		if s.engine.IsValidWeight(*q) {
			qty = *q
		} else {
			s.warnf("%s quantity %v invalid, defaulted to %vg", ctx, *q, defaultQuantityG)
		}
	}
	unit := strings.TrimSpace(item.Get("unit").String())
	grams := qty
	if unit != "" && unit != string(nutrition.UnitGram) {
		converted, err := s.engine.ToGrams(qty, unit, 0)
		if err != nil {
			s.warnf("%s unit %q unsupported, quantity treated as grams", ctx, unit)
		} else {
			grams = converted
		}
	}
	grams = nutrition.RoundGrams(grams)
	if !s.engine.IsValidWeight(grams) {
		s.warnf("%s quantity too small, defaulted to %vg", ctx, defaultQuantityG)
		grams = defaultQuantityG
	}

	v := s.vector(ctx,
		number(firstOf(item, "calories", "kcal", "energy")),
		number(firstOf(item, "carbs", "carbohydrates", "carbGrams")),
		number(firstOf(item, "protein", "proteins", "proteinGrams")),
		number(firstOf(item, "fat", "fats", "fatGrams")),
		number(firstOf(item, "sugar", "sugars", "sugarGrams")),
	)
	if res := s.engine.Validate(v); !res.Valid {
		s.warnf("%s calories recomputed from macros: %s", ctx, res.Reason)
		v = v.WithCaloriesFromMacros()
	}
	v = s.capEnergy(ctx, v)
	return GeneratedIngredient{Name: name, QuantityG: grams, Macros: v}, true
}
