package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/model"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

// ErrIngredientInUse is returned when deleting an ingredient still linked to a meal.
var ErrIngredientInUse = errors.New("ingredient is used by meals")

type IngredientInput struct {
	Name               string
	Brand              string
	Barcode            string
	ReferenceQuantityG float64
	Reference          nutrition.Vector
	Source             string
	SourceRef          string
}

const ingredientColumns = `id, name, brand, barcode, reference_qty_g, calories, carbs_g, protein_g, fat_g, sugar_g, source, source_ref, created_at, updated_at`

func (s *Store) validateIngredient(in *IngredientInput) error {
	if err := requireName("ingredient name", in.Name); err != nil {
		return err
	}
	if in.ReferenceQuantityG == 0 {
		in.ReferenceQuantityG = s.engine.Config().ReferenceWeightG
	}
	if err := requireWeight(s.engine, "reference quantity", in.ReferenceQuantityG); err != nil {
		return err
	}
	if in.Source == "" {
		in.Source = model.SourceManual
	}
	in.Reference = in.Reference.Round()
	return s.engine.RequireValid(in.Reference)
}

func (s *Store) CreateIngredient(ctx context.Context, in IngredientInput) (int64, error) {
	if err := s.validateIngredient(&in); err != nil {
		return 0, err
	}
	return createIngredient(ctx, s.db, in)
}

func createIngredient(ctx context.Context, q querier, in IngredientInput) (int64, error) {
	res, err := q.ExecContext(ctx, `
INSERT INTO ingredients(name, name_norm, brand, barcode, reference_qty_g, calories, carbs_g, protein_g, fat_g, sugar_g, source, source_ref)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, args([]any{strings.TrimSpace(in.Name), normalizeName(in.Name), strings.TrimSpace(in.Brand), strings.TrimSpace(in.Barcode), in.ReferenceQuantityG},
		in.Reference, in.Source, in.SourceRef)...)
	if err != nil {
		return 0, fmt.Errorf("create ingredient: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("resolve ingredient id: %w", err)
	}
	return id, nil
}

func (s *Store) IngredientByID(ctx context.Context, id int64) (*model.Ingredient, error) {
	return ingredientByID(ctx, s.db, id)
}

func ingredientByID(ctx context.Context, q querier, id int64) (*model.Ingredient, error) {
	row := q.QueryRowContext(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE id = ?`, id)
	ing, err := scanIngredient(row)
	if err != nil {
		return nil, rowErr(err, "ingredient", id)
	}
	return ing, nil
}

// ResolveIngredient accepts a numeric id or a case-insensitive name.
func (s *Store) ResolveIngredient(ctx context.Context, idOrName string) (*model.Ingredient, error) {
	idOrName = strings.TrimSpace(idOrName)
	if idOrName == "" {
		return nil, fmt.Errorf("%w: ingredient identifier is required", nutrition.ErrValidation)
	}
	if id, err := parseIDLoose(idOrName); err == nil {
		return s.IngredientByID(ctx, id)
	}
	ing, err := ingredientByName(ctx, s.db, idOrName)
	if err != nil {
		return nil, err
	}
	if ing == nil {
		return nil, notFound("ingredient", fmt.Sprintf("%q", idOrName))
	}
	return ing, nil
}

// ingredientByName returns the oldest ingredient with the normalized name, or nil.
func ingredientByName(ctx context.Context, q querier, name string) (*model.Ingredient, error) {
	row := q.QueryRowContext(ctx, `SELECT `+ingredientColumns+` FROM ingredients WHERE name_norm = ? ORDER BY id LIMIT 1`, normalizeName(name))
	ing, err := scanIngredient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup ingredient %q: %w", name, err)
	}
	return ing, nil
}

func (s *Store) ListIngredients(ctx context.Context, query string) ([]model.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT `+ingredientColumns+`
FROM ingredients
WHERE ? = '' OR name_norm LIKE '%' || ? || '%' OR barcode = ?
ORDER BY name_norm, id
`, normalizeName(query), normalizeName(query), strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	items := make([]model.Ingredient, 0)
	for rows.Next() {
		ing, err := scanIngredient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		items = append(items, *ing)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ingredients: %w", err)
	}
	return items, nil
}

// UpdateIngredient changes the catalog entry only. Existing meal links keep the
// macros they were scaled with until the meal is recalculated.
func (s *Store) UpdateIngredient(ctx context.Context, id int64, in IngredientInput) error {
	if err := s.validateIngredient(&in); err != nil {
		return err
	}
	return updateIngredient(ctx, s.db, id, in)
}

func updateIngredient(ctx context.Context, q querier, id int64, in IngredientInput) error {
	res, err := q.ExecContext(ctx, `
UPDATE ingredients SET
  name = ?, name_norm = ?, brand = ?, barcode = ?, reference_qty_g = ?,
  calories = ?, carbs_g = ?, protein_g = ?, fat_g = ?, sugar_g = ?,
  source = ?, source_ref = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, args([]any{strings.TrimSpace(in.Name), normalizeName(in.Name), strings.TrimSpace(in.Brand), strings.TrimSpace(in.Barcode), in.ReferenceQuantityG},
		in.Reference, in.Source, in.SourceRef, id)...)
	if err != nil {
		return fmt.Errorf("update ingredient %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("ingredient", id)
	}
	return nil
}

func (s *Store) DeleteIngredient(ctx context.Context, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var uses int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM meal_ingredients WHERE ingredient_id = ?`, id).Scan(&uses); err != nil {
			return fmt.Errorf("count ingredient uses: %w", err)
		}
		if uses > 0 {
			return fmt.Errorf("delete ingredient %d: %w (%d links)", id, ErrIngredientInUse, uses)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM ingredients WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete ingredient %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("ingredient", id)
		}
		return nil
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIngredient(row rowScanner) (*model.Ingredient, error) {
	var ing model.Ingredient
	var vc vectorCols
	err := row.Scan(scanArgs(
		[]any{&ing.ID, &ing.Name, &ing.Brand, &ing.Barcode, &ing.ReferenceQuantityG},
		&vc,
		&ing.Source, &ing.SourceRef, &ing.CreatedAt, &ing.UpdatedAt,
	)...)
	if err != nil {
		return nil, err
	}
	ing.Reference = vc.vector()
	return &ing, nil
}
