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

var ErrMealInUse = errors.New("meal is used by daily plans")

type MealInput struct {
	Name        string
	Type        string
	Cuisine     string
	Description string
	Source      string
	ImportRef   string
}

const mealColumns = `id, name, type, cuisine, description, total_weight_g, final_weight_g, calories, carbs_g, protein_g, fat_g, sugar_g, source, import_ref, created_at, updated_at`

func normalizeMealInput(in *MealInput) error {
	if err := requireName("meal name", in.Name); err != nil {
		return err
	}
	if strings.TrimSpace(in.Type) == "" {
		in.Type = model.DefaultMealType
	}
	t, ok := model.NormalizeMealType(in.Type)
	if !ok {
		return fmt.Errorf("%w: unknown meal type %q", nutrition.ErrValidation, in.Type)
	}
	in.Type = t
	in.Cuisine = strings.ToLower(strings.TrimSpace(in.Cuisine))
	if in.Cuisine == "" {
		in.Cuisine = model.DefaultCuisine
	}
	if in.Source == "" {
		in.Source = model.SourceManual
	}
	return nil
}

func (s *Store) CreateMeal(ctx context.Context, in MealInput) (int64, error) {
	if err := normalizeMealInput(&in); err != nil {
		return 0, err
	}
	return createMeal(ctx, s.db, in)
}

func createMeal(ctx context.Context, q querier, in MealInput) (int64, error) {
	res, err := q.ExecContext(ctx, `
INSERT INTO meals(name, type, cuisine, description, source, import_ref)
VALUES(?, ?, ?, ?, ?, ?)
`, strings.TrimSpace(in.Name), in.Type, in.Cuisine, strings.TrimSpace(in.Description), in.Source, in.ImportRef)
	if err != nil {
		return 0, fmt.Errorf("create meal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("resolve meal id: %w", err)
	}
	return id, nil
}

func (s *Store) MealByID(ctx context.Context, id int64) (*model.Meal, error) {
	return mealByID(ctx, s.db, id)
}

func mealByID(ctx context.Context, q querier, id int64) (*model.Meal, error) {
	m, err := scanMeal(q.QueryRowContext(ctx, `SELECT `+mealColumns+` FROM meals WHERE id = ?`, id))
	if err != nil {
		return nil, rowErr(err, "meal", id)
	}
	return m, nil
}

// ListMeals returns all meals, optionally restricted to one meal type.
func (s *Store) ListMeals(ctx context.Context, mealType string) ([]model.Meal, error) {
	if mealType != "" {
		t, ok := model.NormalizeMealType(mealType)
		if !ok {
			return nil, fmt.Errorf("%w: unknown meal type %q", nutrition.ErrValidation, mealType)
		}
		mealType = t
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+mealColumns+`
FROM meals
WHERE ? = '' OR type = ?
ORDER BY name, id
`, mealType, mealType)
	if err != nil {
		return nil, fmt.Errorf("list meals: %w", err)
	}
	defer rows.Close()

	items := make([]model.Meal, 0)
	for rows.Next() {
		m, err := scanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal: %w", err)
		}
		items = append(items, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meals: %w", err)
	}
	return items, nil
}

// UpdateMeal changes the descriptive fields; aggregates are left alone.
func (s *Store) UpdateMeal(ctx context.Context, id int64, in MealInput) error {
	if err := normalizeMealInput(&in); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE meals SET name = ?, type = ?, cuisine = ?, description = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, strings.TrimSpace(in.Name), in.Type, in.Cuisine, strings.TrimSpace(in.Description), id)
	if err != nil {
		return fmt.Errorf("update meal %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("meal", id)
	}
	return nil
}

// SetMealFinalWeight records the cooked or plated weight. Zero clears it.
func (s *Store) SetMealFinalWeight(ctx context.Context, id int64, finalWeightG float64) error {
	if finalWeightG != 0 {
		if err := requireWeight(s.engine, "final weight", finalWeightG); err != nil {
			return err
		}
	}
	unlock := s.locks.lock(mealKey(id))
	defer unlock()

	res, err := s.db.ExecContext(ctx, `UPDATE meals SET final_weight_g = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, finalWeightG, id)
	if err != nil {
		return fmt.Errorf("set meal %d final weight: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("meal", id)
	}
	return nil
}

func (s *Store) DeleteMeal(ctx context.Context, id int64) error {
	unlock := s.locks.lock(mealKey(id))
	defer unlock()

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var uses int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM daily_plan_meals WHERE meal_id = ?`, id).Scan(&uses); err != nil {
			return fmt.Errorf("count meal uses: %w", err)
		}
		if uses > 0 {
			return fmt.Errorf("delete meal %d: %w (%d days)", id, ErrMealInUse, uses)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM meals WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete meal %d: %w", id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound("meal", id)
		}
		return nil
	})
	if err == nil {
		s.cache.Invalidate(mealKey(id))
	}
	return err
}

func (s *Store) MealIngredients(ctx context.Context, mealID int64) ([]model.MealIngredient, error) {
	if _, err := s.MealByID(ctx, mealID); err != nil {
		return nil, err
	}
	return mealLinks(ctx, s.db, mealID)
}

func mealLinks(ctx context.Context, q querier, mealID int64) ([]model.MealIngredient, error) {
	rows, err := q.QueryContext(ctx, `
SELECT mi.id, mi.meal_id, mi.ingredient_id, i.name, mi.quantity_g, mi.calories, mi.carbs_g, mi.protein_g, mi.fat_g, mi.sugar_g, mi.created_at
FROM meal_ingredients mi
JOIN ingredients i ON i.id = mi.ingredient_id
WHERE mi.meal_id = ?
ORDER BY mi.id
`, mealID)
	if err != nil {
		return nil, fmt.Errorf("list meal %d ingredients: %w", mealID, err)
	}
	defer rows.Close()

	items := make([]model.MealIngredient, 0)
	for rows.Next() {
		link, err := scanMealLink(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal ingredient: %w", err)
		}
		items = append(items, *link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meal ingredients: %w", err)
	}
	return items, nil
}

func mealLinkByID(ctx context.Context, q querier, linkID int64) (*model.MealIngredient, error) {
	link, err := scanMealLink(q.QueryRowContext(ctx, `
SELECT mi.id, mi.meal_id, mi.ingredient_id, i.name, mi.quantity_g, mi.calories, mi.carbs_g, mi.protein_g, mi.fat_g, mi.sugar_g, mi.created_at
FROM meal_ingredients mi
JOIN ingredients i ON i.id = mi.ingredient_id
WHERE mi.id = ?
`, linkID))
	if err != nil {
		return nil, rowErr(err, "meal ingredient", linkID)
	}
	return link, nil
}

// AddMealIngredient links quantityG grams of an ingredient to a meal and
// applies the scaled macros to the meal aggregate as a delta.
func (s *Store) AddMealIngredient(ctx context.Context, mealID, ingredientID int64, quantityG float64) (*model.MealIngredient, error) {
	if err := requireWeight(s.engine, "quantity", quantityG); err != nil {
		return nil, err
	}
	unlock := s.locks.lock(mealKey(mealID))
	defer unlock()

	var out *model.MealIngredient
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		link, err := s.addMealLink(ctx, tx, mealID, ingredientID, quantityG)
		out = link
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(mealKey(mealID))
	return out, nil
}

func (s *Store) addMealLink(ctx context.Context, tx *sql.Tx, mealID, ingredientID int64, quantityG float64) (*model.MealIngredient, error) {
	meal, err := mealByID(ctx, tx, mealID)
	if err != nil {
		return nil, err
	}
	ing, err := ingredientByID(ctx, tx, ingredientID)
	if err != nil {
		return nil, err
	}
	scaled, err := s.engine.Scale(ing.Reference, ing.ReferenceQuantityG, quantityG)
	if err != nil {
		return nil, fmt.Errorf("scale %s: %w", ing.Name, err)
	}
	res, err := tx.ExecContext(ctx, `
INSERT INTO meal_ingredients(meal_id, ingredient_id, quantity_g, calories, carbs_g, protein_g, fat_g, sugar_g)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
`, args([]any{mealID, ingredientID, quantityG}, scaled)...)
	if err != nil {
		return nil, fmt.Errorf("add ingredient to meal %d: %w", mealID, err)
	}
	linkID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("resolve meal ingredient id: %w", err)
	}
	next := s.engine.ApplyDelta(meal.Aggregate, nutrition.Zero(), scaled)
	if err := saveMealAggregate(ctx, tx, mealID, next); err != nil {
		return nil, err
	}
	s.log.Debug("meal ingredient added", "meal_id", mealID, "ingredient_id", ingredientID, "quantity_g", quantityG)
	return mealLinkByID(ctx, tx, linkID)
}

// UpdateMealIngredientQuantity rescales a link from its ingredient's current
// reference values and applies the difference to the meal aggregate.
func (s *Store) UpdateMealIngredientQuantity(ctx context.Context, linkID int64, quantityG float64) (*model.MealIngredient, error) {
	if err := requireWeight(s.engine, "quantity", quantityG); err != nil {
		return nil, err
	}
	current, err := mealLinkByID(ctx, s.db, linkID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(mealKey(current.MealID))
	defer unlock()

	var out *model.MealIngredient
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		link, err := mealLinkByID(ctx, tx, linkID)
		if err != nil {
			return err
		}
		meal, err := mealByID(ctx, tx, link.MealID)
		if err != nil {
			return err
		}
		ing, err := ingredientByID(ctx, tx, link.IngredientID)
		if err != nil {
			return err
		}
		scaled, err := s.engine.Scale(ing.Reference, ing.ReferenceQuantityG, quantityG)
		if err != nil {
			return fmt.Errorf("scale %s: %w", ing.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE meal_ingredients SET quantity_g = ?, calories = ?, carbs_g = ?, protein_g = ?, fat_g = ?, sugar_g = ?
WHERE id = ?
`, args([]any{quantityG}, scaled, linkID)...); err != nil {
			return fmt.Errorf("update meal ingredient %d: %w", linkID, err)
		}
		next := s.engine.ApplyDelta(meal.Aggregate, link.Scaled, scaled)
		if err := saveMealAggregate(ctx, tx, meal.ID, next); err != nil {
			return err
		}
		out, err = mealLinkByID(ctx, tx, linkID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(mealKey(current.MealID))
	return out, nil
}

func (s *Store) RemoveMealIngredient(ctx context.Context, linkID int64) error {
	current, err := mealLinkByID(ctx, s.db, linkID)
	if err != nil {
		return err
	}
	unlock := s.locks.lock(mealKey(current.MealID))
	defer unlock()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		link, err := mealLinkByID(ctx, tx, linkID)
		if err != nil {
			return err
		}
		meal, err := mealByID(ctx, tx, link.MealID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM meal_ingredients WHERE id = ?`, linkID); err != nil {
			return fmt.Errorf("remove meal ingredient %d: %w", linkID, err)
		}
		next := s.engine.ApplyDelta(meal.Aggregate, link.Scaled, nutrition.Zero())
		return saveMealAggregate(ctx, tx, meal.ID, next)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(mealKey(current.MealID))
	return nil
}

// RecalculateMeal rebuilds the meal aggregate from its links.
func (s *Store) RecalculateMeal(ctx context.Context, mealID int64) (*model.Meal, error) {
	unlock := s.locks.lock(mealKey(mealID))
	defer unlock()

	var out *model.Meal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := mealByID(ctx, tx, mealID); err != nil {
			return err
		}
		links, err := mealLinks(ctx, tx, mealID)
		if err != nil {
			return err
		}
		agg := s.cache.Aggregate(mealKey(mealID), mealCacheLinks(links))
		if err := saveMealAggregate(ctx, tx, mealID, agg); err != nil {
			return err
		}
		out, err = mealByID(ctx, tx, mealID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func mealCacheLinks(links []model.MealIngredient) []nutrition.CacheLink {
	out := make([]nutrition.CacheLink, 0, len(links))
	for _, l := range links {
		out = append(out, nutrition.CacheLink{ID: l.ID, QuantityG: l.QuantityG, Macros: l.Scaled})
	}
	return out
}

// saveMealAggregate stores the aggregate and recomputes the total weight from the links.
func saveMealAggregate(ctx context.Context, tx *sql.Tx, mealID int64, agg nutrition.Vector) error {
	_, err := tx.ExecContext(ctx, `
UPDATE meals SET
  calories = ?, carbs_g = ?, protein_g = ?, fat_g = ?, sugar_g = ?,
  total_weight_g = ROUND(IFNULL((SELECT SUM(quantity_g) FROM meal_ingredients WHERE meal_id = ?), 0), 1),
  updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, args(nil, agg, mealID, mealID)...)
	if err != nil {
		return fmt.Errorf("save meal %d aggregate: %w", mealID, err)
	}
	return nil
}

// MealBase is the meal aggregate corrected for its final weight, still
// describing TotalWeightG grams. Without a final weight it is the aggregate.
func (s *Store) MealBase(m *model.Meal) nutrition.Vector {
	if m.FinalWeightG <= 0 || m.FinalWeightG == m.TotalWeightG {
		return m.Aggregate
	}
	return s.engine.Reconcile(m.Aggregate, m.TotalWeightG, m.FinalWeightG)
}

func scanMeal(row rowScanner) (*model.Meal, error) {
	var m model.Meal
	var vc vectorCols
	err := row.Scan(scanArgs(
		[]any{&m.ID, &m.Name, &m.Type, &m.Cuisine, &m.Description, &m.TotalWeightG, &m.FinalWeightG},
		&vc,
		&m.Source, &m.ImportRef, &m.CreatedAt, &m.UpdatedAt,
	)...)
	if err != nil {
		return nil, err
	}
	m.Aggregate = vc.vector()
	return &m, nil
}

func scanMealLink(row rowScanner) (*model.MealIngredient, error) {
	var l model.MealIngredient
	var vc vectorCols
	err := row.Scan(scanArgs(
		[]any{&l.ID, &l.MealID, &l.IngredientID, &l.IngredientName, &l.QuantityG},
		&vc,
		&l.CreatedAt,
	)...)
	if err != nil {
		return nil, err
	}
	l.Scaled = vc.vector()
	return &l, nil
}
