package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/service"
)

func TestDailyPlanConsumptionCascade(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	f := oatsAndMilk(t, s)

	planID, err := s.CreatePlan(ctx, service.PlanInput{
		UserID: "user-1",
		Name:   "Cut",
		Target: nutrition.Vector{Calories: 2000},
	})
	if err != nil {
		t.Fatalf("create plan: %v", err)
	}
	plan, err := s.PlanByID(ctx, planID)
	if err != nil {
		t.Fatalf("load plan: %v", err)
	}
	if plan.GoalKind != service.GoalMaintain || plan.Target.ProteinG != 125 || plan.Target.CarbsG != 250 || plan.Target.FatG != 55.6 {
		t.Fatalf("expected derived targets, got %+v", plan)
	}

	dayID, err := s.AddDailyPlan(ctx, planID, 1, "Mon")
	if err != nil {
		t.Fatalf("add daily plan: %v", err)
	}
	if _, err := s.AddDailyPlan(ctx, planID, 1, "monday"); !errors.Is(err, nutrition.ErrValidation) {
		t.Fatalf("expected duplicate day rejection, got %v", err)
	}

	link, err := s.AddMealToDailyPlan(ctx, dayID, f.meal, 140, "")
	if err != nil {
		t.Fatalf("add meal to day: %v", err)
	}
	if link.MealType != "breakfast" || link.MealName != "Porridge" {
		t.Fatalf("unexpected link %+v", link)
	}
	if want := (nutrition.Vector{Calories: 179, CarbsG: 24.8, ProteinG: 7.4, FatG: 5.6}); !link.Scaled.Equal(want) {
		t.Fatalf("expected half portion %+v, got %+v", want, link.Scaled)
	}
	day, _ := s.DailyPlanByID(ctx, dayID)
	if !day.Aggregate.Equal(macros(24.8, 7.4, 5.6)) || day.TotalWeightG != 140 {
		t.Fatalf("unexpected day aggregate %+v at %v", day.Aggregate, day.TotalWeightG)
	}

	mp, err := s.RecordMealConsumption(ctx, service.ConsumptionInput{
		DailyPlanMealID:    link.ID,
		Date:               "2026-10-18",
		Consumed:           true,
		PercentageConsumed: 50,
	})
	if err != nil {
		t.Fatalf("record consumption: %v", err)
	}
	if !mp.Consumed || mp.PercentageConsumed != 50 || mp.Effective.Calories != 90 {
		t.Fatalf("unexpected meal progress %+v", mp)
	}
	progress, err := s.DailyProgressFor(ctx, "user-1", planID, "2026-10-18")
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	if !progress.Consumed.Equal(macros(12.4, 3.7, 2.8)) || progress.PercentageCompletion != 4.5 {
		t.Fatalf("unexpected progress %+v", progress)
	}
	vsPlan, err := s.ProgressAgainstPlan(ctx, progress.ID)
	if err != nil {
		t.Fatalf("progress against plan: %v", err)
	}
	if vsPlan.Percent.Calories != 4.5 || vsPlan.Remaining.Calories != 1910 {
		t.Fatalf("unexpected plan comparison %+v", vsPlan)
	}

	if _, err := s.UpdateDailyPlanMealQuantity(ctx, link.ID, 280); err != nil {
		t.Fatalf("update planned quantity: %v", err)
	}
	progress, _ = s.DailyProgressByID(ctx, progress.ID)
	if !progress.Consumed.Equal(macros(24.8, 7.4, 5.6)) || progress.PercentageCompletion != 9 {
		t.Fatalf("expected consumption to follow the new portion, got %+v", progress)
	}
	rows, err := s.DailyMealProgress(ctx, progress.ID)
	if err != nil || len(rows) != 1 || rows[0].Effective.Calories != 179 {
		t.Fatalf("unexpected meal progress rows %+v (%v)", rows, err)
	}

	if err := s.DeleteMeal(ctx, f.meal); !errors.Is(err, service.ErrMealInUse) {
		t.Fatalf("expected meal in use, got %v", err)
	}

	if err := s.RemoveMealFromDailyPlan(ctx, link.ID); err != nil {
		t.Fatalf("remove meal from day: %v", err)
	}
	progress, _ = s.DailyProgressByID(ctx, progress.ID)
	if !progress.Consumed.IsZero() || progress.PercentageCompletion != 0 {
		t.Fatalf("expected consumption withdrawn, got %+v", progress)
	}
	rows, _ = s.DailyMealProgress(ctx, progress.ID)
	if len(rows) != 0 {
		t.Fatalf("expected meal progress rows removed, got %+v", rows)
	}
	day, _ = s.DailyPlanByID(ctx, dayID)
	if !day.Aggregate.IsZero() || day.TotalWeightG != 0 {
		t.Fatalf("expected empty day, got %+v", day)
	}

	report, err := s.RunDoctor(ctx, false)
	if err != nil || !report.Clean() || report.ProgressChecked != 1 || report.DailyPlansChecked != 1 {
		t.Fatalf("expected clean report, got %+v (%v)", report, err)
	}
}

func TestRecordConsumptionToggles(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	f := oatsAndMilk(t, s)

	planID, _ := s.CreatePlan(ctx, service.PlanInput{UserID: "u", Name: "p", Target: nutrition.Vector{Calories: 1790}})
	dayID, _ := s.AddDailyPlan(ctx, planID, 2, "friday")
	link, err := s.AddMealToDailyPlan(ctx, dayID, f.meal, 0, "dinner")
	if err != nil {
		t.Fatalf("add meal: %v", err)
	}
	if link.QuantityG != 280 || link.MealType != "dinner" {
		t.Fatalf("expected whole meal as dinner, got %+v", link)
	}

	skipped, err := s.RecordMealConsumption(ctx, service.ConsumptionInput{UserID: "u", DailyPlanMealID: link.ID, Date: "2026-10-16"})
	if err != nil {
		t.Fatalf("record skipped meal: %v", err)
	}
	if skipped.ID != 0 || skipped.Consumed {
		t.Fatalf("expected nothing stored for a skipped meal, got %+v", skipped)
	}
	if _, err := s.DailyProgressFor(ctx, "u", planID, "2026-10-16"); !errors.Is(err, nutrition.ErrNotFound) {
		t.Fatalf("expected no progress row before the first consumption, got %v", err)
	}

	in := service.ConsumptionInput{UserID: "u", DailyPlanMealID: link.ID, Date: "2026-10-17", Consumed: true}
	mp, err := s.RecordMealConsumption(ctx, in)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if mp.PercentageConsumed != 100 {
		t.Fatalf("expected a full portion by default, got %v", mp.PercentageConsumed)
	}
	p, _ := s.DailyProgressFor(ctx, "u", planID, "2026-10-17")
	if p.Consumed.Calories != 358 || p.PercentageCompletion != 20 {
		t.Fatalf("unexpected progress %+v", p)
	}

	in.Consumed = false
	if _, err := s.RecordMealConsumption(ctx, in); err != nil {
		t.Fatalf("unrecord: %v", err)
	}
	p, _ = s.DailyProgressFor(ctx, "u", planID, "2026-10-17")
	if !p.Consumed.IsZero() || p.PercentageCompletion != 0 {
		t.Fatalf("expected zero consumption, got %+v", p)
	}

	in.UserID = "someone-else"
	if _, err := s.RecordMealConsumption(ctx, in); !errors.Is(err, nutrition.ErrValidation) {
		t.Fatalf("expected user mismatch rejection, got %v", err)
	}
	in.UserID = "u"
	in.Date = "17/10/2026"
	if _, err := s.RecordMealConsumption(ctx, in); !errors.Is(err, nutrition.ErrValidation) {
		t.Fatalf("expected bad date rejection, got %v", err)
	}
	in.Date = "2026-10-17"
	in.PercentageConsumed = 150
	if _, err := s.RecordMealConsumption(ctx, in); !errors.Is(err, nutrition.ErrOutOfRange) {
		t.Fatalf("expected percentage rejection, got %v", err)
	}
	if _, err := s.DailyProgressFor(ctx, "u", planID, "2026-01-01"); !errors.Is(err, nutrition.ErrNotFound) {
		t.Fatalf("expected no progress for another date, got %v", err)
	}
}

func TestDailyPlanNutritionAndRecalculate(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	ctx := context.Background()
	f := oatsAndMilk(t, s)

	planID, _ := s.CreatePlan(ctx, service.PlanInput{UserID: "u", Name: "p", GoalKind: "gain"})
	dayID, _ := s.AddDailyPlan(ctx, planID, 1, "sun")
	if _, err := s.AddMealToDailyPlan(ctx, dayID, f.meal, 280, ""); err != nil {
		t.Fatalf("add meal: %v", err)
	}

	view, err := s.DailyPlanNutritionByID(ctx, dayID, service.DisplayOptions{Mode: nutrition.ModePerServing, ServingSize: 140})
	if err != nil {
		t.Fatalf("daily plan nutrition: %v", err)
	}
	if view.Name != "week 1 sunday" || view.Normalized.Label != "Per 140g" || view.Normalized.Vector.Calories != 179 {
		t.Fatalf("unexpected view %+v", view)
	}
	if view.Breakdown.Protein+view.Breakdown.Carbs+view.Breakdown.Fat != 100 {
		t.Fatalf("expected breakdown to sum to 100, got %+v", view.Breakdown)
	}

	if _, err := s.DB().Exec(`UPDATE daily_plans SET fat_g = 0, calories = 0 WHERE id = ?`, dayID); err != nil {
		t.Fatalf("corrupt day: %v", err)
	}
	day, err := s.RecalculateDailyPlan(ctx, dayID)
	if err != nil {
		t.Fatalf("recalculate day: %v", err)
	}
	if !day.Aggregate.Equal(macros(49.6, 14.8, 11.2)) {
		t.Fatalf("expected repaired day, got %+v", day.Aggregate)
	}

	if _, err := s.AddDailyPlan(ctx, planID, 0, "monday"); !errors.Is(err, nutrition.ErrOutOfRange) {
		t.Fatalf("expected week rejection, got %v", err)
	}
	if _, err := s.CreatePlan(ctx, service.PlanInput{UserID: "u", Name: "p", GoalKind: "bulk-ish"}); !errors.Is(err, nutrition.ErrValidation) {
		t.Fatalf("expected goal rejection, got %v", err)
	}
	if err := s.DeletePlan(ctx, planID); err != nil {
		t.Fatalf("delete plan: %v", err)
	}
	if _, err := s.DailyPlanByID(ctx, dayID); !errors.Is(err, nutrition.ErrNotFound) {
		t.Fatalf("expected days removed with plan, got %v", err)
	}
	if err := s.DeleteMeal(ctx, f.meal); err != nil {
		t.Fatalf("expected meal deletable once unplanned: %v", err)
	}
}
