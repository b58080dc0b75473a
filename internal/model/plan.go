package model

import (
	"time"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

type Plan struct {
	ID        int64            `json:"id"`
	UserID    string           `json:"user_id"`
	Name      string           `json:"name"`
	GoalKind  string           `json:"goal_kind"`
	Target    nutrition.Vector `json:"target"`
	CreatedAt time.Time        `json:"created_at"`
}

type DailyPlan struct {
	ID           int64            `json:"id"`
	PlanID       int64            `json:"plan_id"`
	Week         int              `json:"week"`
	Day          string           `json:"day"`
	TotalWeightG float64          `json:"total_weight_g"`
	Aggregate    nutrition.Vector `json:"aggregate"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type DailyPlanMeal struct {
	ID          int64            `json:"id"`
	DailyPlanID int64            `json:"daily_plan_id"`
	MealID      int64            `json:"meal_id"`
	MealName    string           `json:"meal_name"`
	MealType    string           `json:"meal_type"`
	QuantityG   float64          `json:"quantity_g"`
	Scaled      nutrition.Vector `json:"scaled"`
}

type DailyProgress struct {
	ID                   int64            `json:"id"`
	UserID               string           `json:"user_id"`
	PlanID               int64            `json:"plan_id"`
	Date                 string           `json:"date"`
	Consumed             nutrition.Vector `json:"consumed"`
	PercentageCompletion float64          `json:"percentage_completion"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

type DailyMealProgress struct {
	ID                 int64            `json:"id"`
	DailyProgressID    int64            `json:"daily_progress_id"`
	MealID             int64            `json:"meal_id"`
	DailyPlanMealID    int64            `json:"daily_plan_meal_id"`
	Consumed           bool             `json:"consumed"`
	PercentageConsumed float64          `json:"percentage_consumed"`
	Effective          nutrition.Vector `json:"effective"`
}
