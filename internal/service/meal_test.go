package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/service"
)

func TestMealAggregateFollowsLinkEdits(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	f := oatsAndMilk(t, s)

	meal, err := s.MealByID(ctx, f.meal)
	if err != nil {
		t.Fatalf("load meal: %v", err)
	}
	if want := macros(49.6, 14.8, 11.2); !meal.Aggregate.Equal(want) || meal.Aggregate.Calories != 358 {
		t.Fatalf("expected aggregate %+v, got %+v", want, meal.Aggregate)
	}
	if meal.TotalWeightG != 280 {
		t.Fatalf("expected total weight 280, got %v", meal.TotalWeightG)
	}

	links, err := s.MealIngredients(ctx, f.meal)
	if err != nil {
		t.Fatalf("list links: %v", err)
	}
	if len(links) != 2 || links[1].IngredientName != "Milk" {
		t.Fatalf("unexpected links %+v", links)
	}
	oatsLink, milkLink := links[0], links[1]
	if !milkLink.Scaled.Equal(nutrition.Vector{Calories: 128, CarbsG: 9.6, ProteinG: 6.8, FatG: 7.2}) {
		t.Fatalf("unexpected scaled milk %+v", milkLink.Scaled)
	}

	if _, err := s.UpdateMealIngredientQuantity(ctx, milkLink.ID, 250); err != nil {
		t.Fatalf("update milk quantity: %v", err)
	}
	meal, _ = s.MealByID(ctx, f.meal)
	if want := macros(52, 16.5, 13); !meal.Aggregate.Equal(want) || meal.TotalWeightG != 330 {
		t.Fatalf("after update expected %+v at 330g, got %+v at %v", want, meal.Aggregate, meal.TotalWeightG)
	}

	if err := s.RemoveMealIngredient(ctx, oatsLink.ID); err != nil {
		t.Fatalf("remove oats: %v", err)
	}
	meal, _ = s.MealByID(ctx, f.meal)
	if want := macros(12, 8.5, 9); !meal.Aggregate.Equal(want) || meal.Aggregate.Calories != 163 {
		t.Fatalf("after remove expected %+v, got %+v", want, meal.Aggregate)
	}

	if err := s.RemoveMealIngredient(ctx, milkLink.ID); err != nil {
		t.Fatalf("remove milk: %v", err)
	}
	meal, _ = s.MealByID(ctx, f.meal)
	if !meal.Aggregate.IsZero() || meal.TotalWeightG != 0 {
		t.Fatalf("expected zero aggregate after removing last link, got %+v at %v", meal.Aggregate, meal.TotalWeightG)
	}

	report, err := s.RunDoctor(ctx, false)
	if err != nil {
		t.Fatalf("doctor: %v", err)
	}
	if !report.Clean() || report.MealsChecked != 1 {
		t.Fatalf("expected clean report, got %+v", report)
	}
}

func TestCancelledContextLeavesAggregateUntouched(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	f := oatsAndMilk(t, s)

	before, err := s.MealByID(context.Background(), f.meal)
	if err != nil {
		t.Fatalf("load meal: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.AddMealIngredient(ctx, f.meal, f.oats, 50); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}

	after, err := s.MealByID(context.Background(), f.meal)
	if err != nil {
		t.Fatalf("reload meal: %v", err)
	}
	if !after.Aggregate.Equal(before.Aggregate) || after.TotalWeightG != before.TotalWeightG {
		t.Fatalf("aggregate changed: %+v -> %+v", before.Aggregate, after.Aggregate)
	}
	links, _ := s.MealIngredients(context.Background(), f.meal)
	if len(links) != 2 {
		t.Fatalf("expected no new link, got %d", len(links))
	}
}

func TestConcurrentLinkAddsMatchResum(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	f := oatsAndMilk(t, s)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ing := f.oats
			if i%2 == 1 {
				ing = f.milk
			}
			if _, err := s.AddMealIngredient(ctx, f.meal, ing, float64(10+i)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent add: %v", err)
	}

	stored, err := s.MealByID(ctx, f.meal)
	if err != nil {
		t.Fatalf("load meal: %v", err)
	}
	resummed, err := s.RecalculateMeal(ctx, f.meal)
	if err != nil {
		t.Fatalf("recalculate meal: %v", err)
	}
	if !stored.Aggregate.Equal(resummed.Aggregate) || stored.TotalWeightG != resummed.TotalWeightG {
		t.Fatalf("delta aggregate %+v differs from resum %+v", stored.Aggregate, resummed.Aggregate)
	}
	links, _ := s.MealIngredients(ctx, f.meal)
	if len(links) != 22 {
		t.Fatalf("expected 22 links, got %d", len(links))
	}
}

func TestRecalculateMealRepairsDrift(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	f := oatsAndMilk(t, s)

	if _, err := s.DB().Exec(`UPDATE meals SET carbs_g = 999, calories = 1 WHERE id = ?`, f.meal); err != nil {
		t.Fatalf("corrupt meal: %v", err)
	}
	report, err := s.RunDoctor(ctx, true)
	if err != nil {
		t.Fatalf("doctor fix: %v", err)
	}
	if len(report.MealDrift) != 1 || report.Fixed != 1 {
		t.Fatalf("expected one repaired meal, got %+v", report)
	}
	meal, _ := s.MealByID(ctx, f.meal)
	if !meal.Aggregate.Equal(macros(49.6, 14.8, 11.2)) {
		t.Fatalf("expected repaired aggregate, got %+v", meal.Aggregate)
	}
	report, err = s.RunDoctor(ctx, false)
	if err != nil || !report.Clean() {
		t.Fatalf("expected clean report after fix, got %+v (%v)", report, err)
	}
	if hits, _ := s.Cache().Stats(); hits == 0 {
		t.Fatalf("expected the second doctor pass to hit the aggregate cache")
	}
}

func TestMealNutritionUsesFinalWeight(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	f := oatsAndMilk(t, s)

	if err := s.SetMealFinalWeight(ctx, f.meal, 224); err != nil {
		t.Fatalf("set final weight: %v", err)
	}
	per100, err := s.MealNutritionByID(ctx, f.meal, service.DisplayOptions{Mode: nutrition.ModePer100G})
	if err != nil {
		t.Fatalf("meal nutrition: %v", err)
	}
	want := nutrition.Vector{Calories: 160, CarbsG: 22.1, ProteinG: 6.6, FatG: 5}
	if !per100.Normalized.Vector.Equal(want) || per100.Normalized.Label != "Per 100g" {
		t.Fatalf("expected %+v per 100g, got %+v (%s)", want, per100.Normalized.Vector, per100.Normalized.Label)
	}

	whole, err := s.MealNutritionByID(ctx, f.meal, service.DisplayOptions{Mode: nutrition.ModeFull})
	if err != nil {
		t.Fatalf("meal nutrition: %v", err)
	}
	if whole.Normalized.Label != "For 224g" {
		t.Fatalf("expected whole dish label, got %q", whole.Normalized.Label)
	}
	if want := (nutrition.Vector{Calories: 358, CarbsG: 49.6, ProteinG: 14.8, FatG: 11.2}); !whole.Normalized.Vector.Equal(want) {
		t.Fatalf("expected whole dish to carry the raw totals %+v, got %+v", want, whole.Normalized.Vector)
	}

	if err := s.SetMealFinalWeight(ctx, f.meal, 0.01); !errors.Is(err, nutrition.ErrInvalidWeight) {
		t.Fatalf("expected invalid weight, got %v", err)
	}
}

func TestMealNutritionForPortion(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	f := oatsAndMilk(t, s)

	mealID, err := s.CreateMeal(ctx, service.MealInput{Name: "Oat bowl", Type: "breakfast"})
	if err != nil {
		t.Fatalf("create meal: %v", err)
	}
	if _, err := s.AddMealIngredient(ctx, mealID, f.oats, 300); err != nil {
		t.Fatalf("add oats: %v", err)
	}

	half, err := s.MealNutritionByID(ctx, mealID, service.DisplayOptions{Mode: nutrition.ModeAsRecorded, QuantityG: 150})
	if err != nil {
		t.Fatalf("meal nutrition: %v", err)
	}
	want := nutrition.Vector{Calories: 428, CarbsG: 75, ProteinG: 15, FatG: 7.5}
	if !half.Normalized.Vector.Equal(want) || half.Normalized.Label != "For 150g" || half.Normalized.Weight != 150 {
		t.Fatalf("expected half the meal %+v, got %+v (%s)", want, half.Normalized.Vector, half.Normalized.Label)
	}

	per100, err := s.MealNutritionByID(ctx, mealID, service.DisplayOptions{Mode: nutrition.ModePer100G, QuantityG: 150})
	if err != nil {
		t.Fatalf("meal nutrition: %v", err)
	}
	if per100.Normalized.Vector.CarbsG != 50 || per100.Normalized.Vector.ProteinG != 10 {
		t.Fatalf("expected density unchanged by the portion, got %+v", per100.Normalized.Vector)
	}

	b, err := s.MacroBreakdownByID(ctx, mealID, 150)
	if err != nil {
		t.Fatalf("breakdown: %v", err)
	}
	if b.Protein+b.Carbs+b.Fat != 100 {
		t.Fatalf("expected breakdown to sum to 100, got %+v", b)
	}
	if _, err := s.MealNutritionByID(ctx, mealID, service.DisplayOptions{QuantityG: 0.01}); !errors.Is(err, nutrition.ErrInvalidWeight) {
		t.Fatalf("expected invalid portion rejection, got %v", err)
	}
}

func TestMealLookupsReportNotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.MealNutritionByID(ctx, 999, service.DisplayOptions{})
	var nf *nutrition.NotFoundError
	if !errors.As(err, &nf) || nf.Entity != "meal" {
		t.Fatalf("expected meal not found, got %v", err)
	}
	if _, err := s.MacroBreakdownByID(ctx, 999, 0); !errors.Is(err, nutrition.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := s.RemoveMealIngredient(ctx, 42); !errors.Is(err, nutrition.ErrNotFound) {
		t.Fatalf("expected not found link, got %v", err)
	}
	if _, err := s.AddMealIngredient(ctx, 1, 1, 0); !errors.Is(err, nutrition.ErrValidation) {
		t.Fatalf("expected validation error for zero quantity, got %v", err)
	}
}

func TestIngredientCatalog(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	f := oatsAndMilk(t, s)

	ing, err := s.ResolveIngredient(ctx, "  OATS ")
	if err != nil || ing.ID != f.oats {
		t.Fatalf("resolve by name: %+v %v", ing, err)
	}
	if ing.ReferenceQuantityG != 100 || ing.Source != "manual" {
		t.Fatalf("expected defaults, got %+v", ing)
	}
	if _, err := s.ResolveIngredient(ctx, "quinoa"); !errors.Is(err, nutrition.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	list, err := s.ListIngredients(ctx, "mil")
	if err != nil || len(list) != 1 || list[0].ID != f.milk {
		t.Fatalf("expected milk only, got %+v %v", list, err)
	}

	_, err = s.CreateIngredient(ctx, service.IngredientInput{
		Name:      "Impossible",
		Reference: nutrition.Vector{Calories: 20000},
	})
	if !errors.Is(err, nutrition.ErrOutOfRange) {
		t.Fatalf("expected out of range, got %v", err)
	}

	if err := s.DeleteIngredient(ctx, f.oats); !errors.Is(err, service.ErrIngredientInUse) {
		t.Fatalf("expected in-use refusal, got %v", err)
	}

	if err := s.UpdateIngredient(ctx, f.oats, service.IngredientInput{
		Name:      "Rolled oats",
		Reference: nutrition.Vector{Calories: 380, CarbsG: 66, ProteinG: 13, FatG: 7},
	}); err != nil {
		t.Fatalf("update ingredient: %v", err)
	}
	meal, _ := s.MealByID(ctx, f.meal)
	if !meal.Aggregate.Equal(macros(49.6, 14.8, 11.2)) {
		t.Fatalf("expected existing links untouched by catalog edit, got %+v", meal.Aggregate)
	}
}
