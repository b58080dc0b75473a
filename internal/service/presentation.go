package service

import (
	"context"
	"fmt"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/model"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

// DisplayOptions selects the display frame. QuantityG, when set, first scales
// a meal to that portion; daily plans ignore it.
type DisplayOptions struct {
	Mode         nutrition.Mode
	ServingSize  float64
	TargetWeight float64
	QuantityG    float64
}

type NutritionView struct {
	ID         int64                `json:"id"`
	Name       string               `json:"name"`
	Normalized nutrition.Normalized `json:"normalized"`
	Breakdown  nutrition.Breakdown  `json:"breakdown"`
	Balance    nutrition.Balance    `json:"balance"`
}

func (s *Store) MealNutritionByID(ctx context.Context, mealID int64, opts DisplayOptions) (*NutritionView, error) {
	m, err := s.MealByID(ctx, mealID)
	if err != nil {
		return nil, err
	}
	view, err := s.MealNutritionFromRecord(m, opts)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// MealNutritionFromRecord renders a meal, or a QuantityG portion of it, in a
// display frame. The whole-dish frame defaults to the final weight when one
// is recorded and no portion is asked for.
func (s *Store) MealNutritionFromRecord(m *model.Meal, opts DisplayOptions) (NutritionView, error) {
	base, weight, err := s.mealPortion(m, opts.QuantityG)
	if err != nil {
		return NutritionView{}, err
	}
	if opts.Mode == nutrition.ModeFull && opts.TargetWeight == 0 && opts.QuantityG <= 0 && m.FinalWeightG > 0 {
		opts.TargetWeight = m.FinalWeightG
	}
	n := s.engine.Normalize(nutrition.NormalizeRequest{
		Raw:          &base,
		Weight:       weight,
		Mode:         opts.Mode,
		ServingSize:  opts.ServingSize,
		TargetWeight: opts.TargetWeight,
	})
	return NutritionView{
		ID:         m.ID,
		Name:       m.Name,
		Normalized: n,
		Breakdown:  nutrition.MacroBreakdown(base),
		Balance:    nutrition.CheckMacroBalance(base),
	}, nil
}

// mealPortion returns the meal base scaled to quantityG, or the whole meal
// when quantityG is not positive.
func (s *Store) mealPortion(m *model.Meal, quantityG float64) (nutrition.Vector, float64, error) {
	base := s.MealBase(m)
	if quantityG <= 0 {
		return base, m.TotalWeightG, nil
	}
	scaled, err := s.engine.Scale(base, m.TotalWeightG, quantityG)
	if err != nil {
		return nutrition.Vector{}, 0, fmt.Errorf("meal %d portion: %w", m.ID, err)
	}
	return scaled, quantityG, nil
}

func (s *Store) DailyPlanNutritionByID(ctx context.Context, dailyPlanID int64, opts DisplayOptions) (*NutritionView, error) {
	dp, err := s.DailyPlanByID(ctx, dailyPlanID)
	if err != nil {
		return nil, err
	}
	view := s.DailyPlanNutritionFromRecord(dp, opts)
	return &view, nil
}

func (s *Store) DailyPlanNutritionFromRecord(dp *model.DailyPlan, opts DisplayOptions) NutritionView {
	agg := dp.Aggregate
	n := s.engine.Normalize(nutrition.NormalizeRequest{
		Raw:          &agg,
		Weight:       dp.TotalWeightG,
		Mode:         opts.Mode,
		ServingSize:  opts.ServingSize,
		TargetWeight: opts.TargetWeight,
	})
	return NutritionView{
		ID:         dp.ID,
		Name:       dayLabel(dp),
		Normalized: n,
		Breakdown:  nutrition.MacroBreakdown(agg),
		Balance:    nutrition.CheckMacroBalance(agg),
	}
}

func (s *Store) MacroBreakdownByID(ctx context.Context, mealID int64, quantityG float64) (nutrition.Breakdown, error) {
	m, err := s.MealByID(ctx, mealID)
	if err != nil {
		return nutrition.Breakdown{}, err
	}
	return s.MacroBreakdownFromRecord(m, quantityG)
}

func (s *Store) MacroBreakdownFromRecord(m *model.Meal, quantityG float64) (nutrition.Breakdown, error) {
	base, _, err := s.mealPortion(m, quantityG)
	if err != nil {
		return nutrition.Breakdown{}, err
	}
	return nutrition.MacroBreakdown(base), nil
}

func dayLabel(dp *model.DailyPlan) string {
	return fmt.Sprintf("week %d %s", dp.Week, dp.Day)
}
