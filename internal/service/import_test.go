package service_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/ingest"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/model"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/provider/usda"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/service"
)

const bowlPayload = `{
  "name": "Rice bowl",
  "type": "lunch",
  "ingredients": [
    {"name": "Rice", "quantity": 150, "calories": 185, "carbs": 40, "protein": 4, "fat": 1},
    {"name": "Chicken", "quantity": "120", "calories": 156, "carbs": 0, "protein": 30, "fat": 4}
  ]
}`

func TestImportGeneratedMeal(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.ImportGeneratedMeal(ctx, []byte(bowlPayload))
	if err != nil {
		t.Fatalf("import generated meal: %v", err)
	}
	if _, err := uuid.Parse(res.ImportRef); err != nil {
		t.Fatalf("expected uuid import ref, got %q", res.ImportRef)
	}
	if res.Meal.Source != model.SourceGenerated || res.Meal.ImportRef != res.ImportRef || res.Meal.Type != "lunch" {
		t.Fatalf("unexpected meal %+v", res.Meal)
	}
	if want := macros(40, 34, 5); !res.Meal.Aggregate.Equal(want) || res.Meal.Aggregate.Calories != 341 {
		t.Fatalf("expected aggregate %+v, got %+v", want, res.Meal.Aggregate)
	}
	if res.Meal.TotalWeightG != 270 || len(res.Links) != 2 {
		t.Fatalf("expected two links over 270g, got %+v", res.Links)
	}
	if len(res.Warnings) != 0 {
		t.Fatalf("expected a clean import, got %v", res.Warnings)
	}

	rice, err := s.ResolveIngredient(ctx, "rice")
	if err != nil {
		t.Fatalf("resolve imported ingredient: %v", err)
	}
	if rice.ReferenceQuantityG != 150 || rice.Source != model.SourceGenerated || rice.SourceRef != res.ImportRef {
		t.Fatalf("unexpected imported ingredient %+v", rice)
	}

	again, err := s.ImportGeneratedMeal(ctx, []byte(strings.ReplaceAll(bowlPayload, `"Rice"`, `"  RICE "`)))
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if again.Links[0].IngredientID != rice.ID {
		t.Fatalf("expected the catalog rice to be reused, got %+v", again.Links[0])
	}
	if len(again.Warnings) != 2 || !strings.Contains(again.Warnings[0], "matched catalog ingredient") {
		t.Fatalf("expected catalog match warnings, got %v", again.Warnings)
	}
	list, _ := s.ListIngredients(ctx, "")
	if len(list) != 2 {
		t.Fatalf("expected no duplicate ingredients, got %d", len(list))
	}

	if _, err := s.ImportGeneratedMeal(ctx, []byte(`not json at all`)); !errors.Is(err, nutrition.ErrValidation) {
		t.Fatalf("expected unreadable payload rejection, got %v", err)
	}
}

func TestImportGeneratedMealKeepsOversizedIngredient(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.ImportGeneratedMeal(ctx, []byte(`{"name": "Feast", "ingredients": [
    {"name": "Rice", "quantity": 150, "calories": 195, "carbs": 42, "protein": 4, "fat": 0.5},
    {"name": "mega mix", "quantity": 3000, "carbs": 1400, "protein": 1000, "fat": 300}
  ]}`))
	if err != nil {
		t.Fatalf("import generated meal: %v", err)
	}
	if len(res.Links) != 2 {
		t.Fatalf("expected both ingredients linked, got %+v", res.Links)
	}
	mix, err := s.ResolveIngredient(ctx, "mega mix")
	if err != nil {
		t.Fatalf("resolve mega mix: %v", err)
	}
	if mix.Reference.Calories > nutrition.DefaultMaxCalories || mix.ReferenceQuantityG != 3000 {
		t.Fatalf("expected a range-valid reference at 3000g, got %+v", mix)
	}
}

type fakeLookup struct {
	calls int
	facts ingest.ProductFacts
	err   error
}

func (f *fakeLookup) LookupProduct(ctx context.Context, barcode string) (ingest.ProductFacts, []byte, error) {
	f.calls++
	if f.err != nil {
		return ingest.ProductFacts{}, nil, f.err
	}
	return f.facts, []byte(`{"code":"` + barcode + `"}`), nil
}

func ptr(v float64) *float64 { return &v }

func TestImportProductUsesCatalogAndCache(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	lookup := &fakeLookup{facts: ingest.ProductFacts{
		Name:           "Granola",
		Brand:          "Acme",
		EnergyKcal100g: ptr(389),
		Carbs100g:      ptr(66),
		Proteins100g:   ptr(17),
		Fat100g:        ptr(7),
	}}

	first, err := s.ImportProduct(ctx, lookup, "3017620422003")
	if err != nil {
		t.Fatalf("import product: %v", err)
	}
	if first.Existing || first.FromCache || first.Provider != "custom" || lookup.calls != 1 {
		t.Fatalf("expected a fresh lookup, got %+v after %d calls", first, lookup.calls)
	}
	ing := first.Ingredient
	if ing.Barcode != "3017620422003" || ing.Source != model.SourceProduct || ing.SourceRef != "custom:3017620422003" {
		t.Fatalf("unexpected product ingredient %+v", ing)
	}
	if ing.Reference.Calories != 389 || ing.ReferenceQuantityG != 100 {
		t.Fatalf("expected label calories per 100g, got %+v", ing.Reference)
	}

	second, err := s.ImportProduct(ctx, lookup, "3017620422003")
	if err != nil {
		t.Fatalf("second import: %v", err)
	}
	if !second.Existing || second.Ingredient.ID != ing.ID || lookup.calls != 1 {
		t.Fatalf("expected existing ingredient without lookup, got %+v", second)
	}

	if err := s.DeleteIngredient(ctx, ing.ID); err != nil {
		t.Fatalf("delete ingredient: %v", err)
	}
	third, err := s.ImportProduct(ctx, lookup, "3017620422003")
	if err != nil {
		t.Fatalf("third import: %v", err)
	}
	if !third.FromCache || third.Existing || lookup.calls != 1 || third.Ingredient.Name != "Granola" {
		t.Fatalf("expected cached facts, got %+v after %d calls", third, lookup.calls)
	}

	if n, err := s.PurgeProductCache(ctx, ""); err != nil || n != 1 {
		t.Fatalf("expected one purged row, got %d (%v)", n, err)
	}

	if _, err := s.ImportProduct(ctx, lookup, "12ab"); !errors.Is(err, nutrition.ErrValidation) {
		t.Fatalf("expected barcode rejection, got %v", err)
	}
	failing := &fakeLookup{err: errors.New("upstream down")}
	if _, err := s.ImportProduct(ctx, failing, "12345678"); err == nil || !strings.Contains(err.Error(), "upstream down") {
		t.Fatalf("expected lookup failure to surface, got %v", err)
	}
}

func TestImportProductFallsBackAcrossProviders(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"foods":[{"fdcId":7,"description":"Greek Yogurt","brandOwner":"Dairy Co","gtinUpc":"012345678905","foodNutrients":[
  {"nutrientName":"Energy","unitName":"KCAL","value":59},
  {"nutrientName":"Protein","unitName":"G","value":10},
  {"nutrientName":"Carbohydrate, by difference","unitName":"G","value":3.6},
  {"nutrientName":"Total lipid (fat)","unitName":"G","value":0.4}]}]}`))
	}))
	defer ts.Close()

	backup := &fakeLookup{facts: ingest.ProductFacts{
		Name:           "Rye crisps",
		EnergyKcal100g: ptr(370),
		Carbs100g:      ptr(70),
		Proteins100g:   ptr(10),
		Fat100g:        ptr(5),
	}}
	chain := service.FallbackLookup{
		service.USDALookup{Client: &usda.Client{APIKey: "k", BaseURL: ts.URL, HTTPClient: ts.Client()}},
		backup,
	}
	if chain.Provider() != "usda,custom" {
		t.Fatalf("unexpected chain name %q", chain.Provider())
	}

	yogurt, err := s.ImportProduct(ctx, chain, "012345678905")
	if err != nil {
		t.Fatalf("import from usda: %v", err)
	}
	if yogurt.Provider != "usda" || yogurt.Ingredient.SourceRef != "usda:012345678905" || yogurt.Ingredient.Reference.Calories != 59 || backup.calls != 0 {
		t.Fatalf("expected usda answer, got %+v (%+v)", yogurt, yogurt.Ingredient)
	}

	crisps, err := s.ImportProduct(ctx, chain, "73460012")
	if err != nil {
		t.Fatalf("import with fallback: %v", err)
	}
	if crisps.Provider != "custom" || backup.calls != 1 || crisps.Ingredient.SourceRef != "custom:73460012" {
		t.Fatalf("expected fallback answer, got %+v", crisps)
	}
	if err := s.DeleteIngredient(ctx, crisps.Ingredient.ID); err != nil {
		t.Fatalf("delete crisps: %v", err)
	}
	again, err := s.ImportProduct(ctx, chain, "73460012")
	if err != nil || !again.FromCache || again.Provider != "custom" {
		t.Fatalf("expected cached fallback provider, got %+v (%v)", again, err)
	}

	dead := service.FallbackLookup{service.USDALookup{}, &fakeLookup{err: errors.New("offline")}}
	_, err = s.ImportProduct(ctx, dead, "5000112637922")
	if err == nil || !strings.Contains(err.Error(), "usda:") || !strings.Contains(err.Error(), "offline") {
		t.Fatalf("expected both provider errors, got %v", err)
	}
}
