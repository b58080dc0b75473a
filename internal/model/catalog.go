package model

import (
	"time"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

const (
	SourceManual    = "manual"
	SourceGenerated = "generated"
	SourceProduct   = "product"
)

// Ingredient is a catalog entry whose Reference macros are defined at ReferenceQuantityG.
type Ingredient struct {
	ID                 int64            `json:"id"`
	Name               string           `json:"name"`
	Brand              string           `json:"brand,omitempty"`
	Barcode            string           `json:"barcode,omitempty"`
	ReferenceQuantityG float64          `json:"reference_quantity_g"`
	Reference          nutrition.Vector `json:"reference"`
	Source             string           `json:"source"`
	SourceRef          string           `json:"source_ref,omitempty"`
	CreatedAt          time.Time        `json:"created_at"`
	UpdatedAt          time.Time        `json:"updated_at"`
}

type Meal struct {
	ID           int64            `json:"id"`
	Name         string           `json:"name"`
	Type         string           `json:"type"`
	Cuisine      string           `json:"cuisine"`
	Description  string           `json:"description,omitempty"`
	TotalWeightG float64          `json:"total_weight_g"`
	FinalWeightG float64          `json:"final_weight_g,omitempty"`
	Aggregate    nutrition.Vector `json:"aggregate"`
	Source       string           `json:"source"`
	ImportRef    string           `json:"import_ref,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

type MealIngredient struct {
	ID             int64            `json:"id"`
	MealID         int64            `json:"meal_id"`
	IngredientID   int64            `json:"ingredient_id"`
	IngredientName string           `json:"ingredient_name"`
	QuantityG      float64          `json:"quantity_g"`
	Scaled         nutrition.Vector `json:"scaled"`
	CreatedAt      time.Time        `json:"created_at"`
}
