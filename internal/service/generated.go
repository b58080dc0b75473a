package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/ingest"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/model"
)

type ImportResult struct {
	Meal      *model.Meal            `json:"meal"`
	Links     []model.MealIngredient `json:"links"`
	ImportRef string                 `json:"import_ref"`
	Warnings  []string               `json:"warnings,omitempty"`
}

// ImportGeneratedMeal stores a sanitized text-generation payload as a meal.
// Ingredients are matched by normalized name; unknown ones are added to the
// catalog with the payload's values at the payload's quantity. Everything is
// written in one transaction.
func (s *Store) ImportGeneratedMeal(ctx context.Context, raw []byte) (*ImportResult, error) {
	gen, err := ingest.GeneratedMealFromPayload(s.engine, raw)
	if err != nil {
		return nil, fmt.Errorf("import generated meal: %w", err)
	}
	out := &ImportResult{ImportRef: uuid.NewString(), Warnings: gen.Warnings}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		mealID, err := createMeal(ctx, tx, MealInput{
			Name:        gen.Name,
			Type:        gen.Type,
			Cuisine:     gen.Cuisine,
			Description: gen.Description,
			Source:      model.SourceGenerated,
			ImportRef:   out.ImportRef,
		})
		if err != nil {
			return err
		}
		created := map[int64]bool{}
		for _, gi := range gen.Ingredients {
			ing, err := ingredientByName(ctx, tx, gi.Name)
			if err != nil {
				return err
			}
			var ingredientID int64
			if ing != nil {
				ingredientID = ing.ID
				if !created[ing.ID] {
					out.Warnings = append(out.Warnings, fmt.Sprintf("%s matched catalog ingredient %d, its reference values are used", gi.Name, ing.ID))
				}
			} else {
				in := IngredientInput{
					Name:               gi.Name,
					ReferenceQuantityG: gi.QuantityG,
					Reference:          gi.Macros,
					Source:             model.SourceGenerated,
					SourceRef:          out.ImportRef,
				}
				if err := s.validateIngredient(&in); err != nil {
					return fmt.Errorf("import ingredient %s: %w", gi.Name, err)
				}
				if ingredientID, err = createIngredient(ctx, tx, in); err != nil {
					return err
				}
				created[ingredientID] = true
			}
			link, err := s.addMealLink(ctx, tx, mealID, ingredientID, gi.QuantityG)
			if err != nil {
				return err
			}
			out.Links = append(out.Links, *link)
		}
		out.Meal, err = mealByID(ctx, tx, mealID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("generated meal imported", "meal_id", out.Meal.ID, "import_ref", out.ImportRef, "warnings", len(out.Warnings))
	return out, nil
}
