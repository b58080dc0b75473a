package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/model"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

const (
	GoalWeightLoss = "weight_loss"
	GoalMaintain   = "maintain"
	GoalGainMuscle = "gain_muscle"
)

type PlanInput struct {
	UserID   string
	Name     string
	GoalKind string
	// Target is the daily target. With only calories set, the macros are
	// derived from the default macro split.
	Target nutrition.Vector
}

func normalizeGoalKind(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(kind, "-", "_"))) {
	case "", GoalMaintain:
		return GoalMaintain, nil
	case GoalWeightLoss, "lose":
		return GoalWeightLoss, nil
	case GoalGainMuscle, "gain":
		return GoalGainMuscle, nil
	default:
		return "", fmt.Errorf("%w: unknown goal %q", nutrition.ErrValidation, kind)
	}
}

func (s *Store) CreatePlan(ctx context.Context, in PlanInput) (int64, error) {
	if err := requireName("user id", in.UserID); err != nil {
		return 0, err
	}
	if err := requireName("plan name", in.Name); err != nil {
		return 0, err
	}
	goal, err := normalizeGoalKind(in.GoalKind)
	if err != nil {
		return 0, err
	}
	target := in.Target
	if target.Calories > 0 && target.CarbsG == 0 && target.ProteinG == 0 && target.FatG == 0 {
		target, err = nutrition.TargetsFromCalories(target.Calories, nutrition.DefaultMacroPercentages)
		if err != nil {
			return 0, err
		}
	}
	for _, x := range []float64{target.Calories, target.CarbsG, target.ProteinG, target.FatG} {
		if !s.engine.IsValidValue(x) {
			return 0, &nutrition.ValidationError{Field: "plan target", Value: x, Kind: nutrition.ErrInvalidValue}
		}
	}

	res, err := s.db.ExecContext(ctx, `
INSERT INTO plans(user_id, name, goal_kind, target_calories, target_carbs_g, target_protein_g, target_fat_g)
VALUES(?, ?, ?, ?, ?, ?, ?)
`, strings.TrimSpace(in.UserID), strings.TrimSpace(in.Name), goal, target.Calories, target.CarbsG, target.ProteinG, target.FatG)
	if err != nil {
		return 0, fmt.Errorf("create plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("resolve plan id: %w", err)
	}
	return id, nil
}

const planColumns = `id, user_id, name, goal_kind, target_calories, target_carbs_g, target_protein_g, target_fat_g, created_at`

func (s *Store) PlanByID(ctx context.Context, id int64) (*model.Plan, error) {
	return planByID(ctx, s.db, id)
}

func planByID(ctx context.Context, q querier, id int64) (*model.Plan, error) {
	p, err := scanPlan(q.QueryRowContext(ctx, `SELECT `+planColumns+` FROM plans WHERE id = ?`, id))
	if err != nil {
		return nil, rowErr(err, "plan", id)
	}
	return p, nil
}

func (s *Store) ListPlans(ctx context.Context, userID string) ([]model.Plan, error) {
	userID = strings.TrimSpace(userID)
	rows, err := s.db.QueryContext(ctx, `SELECT `+planColumns+` FROM plans WHERE ? = '' OR user_id = ? ORDER BY id`, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	items := make([]model.Plan, 0)
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate plans: %w", err)
	}
	return items, nil
}

// DeletePlan removes the plan with its days and recorded progress.
func (s *Store) DeletePlan(ctx context.Context, id int64) error {
	unlock := s.locks.lock(planKey(id))
	defer unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM plans WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete plan %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return notFound("plan", id)
	}
	return nil
}

func (s *Store) AddDailyPlan(ctx context.Context, planID int64, week int, day string) (int64, error) {
	if week < 1 {
		return 0, &nutrition.ValidationError{Field: "week", Value: float64(week), Kind: nutrition.ErrOutOfRange}
	}
	d, ok := model.NormalizeDay(day)
	if !ok {
		return 0, fmt.Errorf("%w: unknown day %q", nutrition.ErrValidation, day)
	}
	if _, err := s.PlanByID(ctx, planID); err != nil {
		return 0, err
	}
	var existing int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM daily_plans WHERE plan_id = ? AND week = ? AND day = ?`, planID, week, d).Scan(&existing)
	if err == nil {
		return 0, fmt.Errorf("%w: plan %d already has week %d %s (daily plan %d)", nutrition.ErrValidation, planID, week, d, existing)
	}
	if err != sql.ErrNoRows {
		return 0, fmt.Errorf("check daily plan: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO daily_plans(plan_id, week, day) VALUES(?, ?, ?)`, planID, week, d)
	if err != nil {
		return 0, fmt.Errorf("add daily plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("resolve daily plan id: %w", err)
	}
	return id, nil
}

const dailyPlanColumns = `id, plan_id, week, day, total_weight_g, calories, carbs_g, protein_g, fat_g, sugar_g, updated_at`

func (s *Store) DailyPlanByID(ctx context.Context, id int64) (*model.DailyPlan, error) {
	return dailyPlanByID(ctx, s.db, id)
}

func dailyPlanByID(ctx context.Context, q querier, id int64) (*model.DailyPlan, error) {
	dp, err := scanDailyPlan(q.QueryRowContext(ctx, `SELECT `+dailyPlanColumns+` FROM daily_plans WHERE id = ?`, id))
	if err != nil {
		return nil, rowErr(err, "daily plan", id)
	}
	return dp, nil
}

func (s *Store) DailyPlans(ctx context.Context, planID int64) ([]model.DailyPlan, error) {
	if _, err := s.PlanByID(ctx, planID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT `+dailyPlanColumns+`
FROM daily_plans
WHERE plan_id = ?
ORDER BY week, CASE day
  WHEN 'monday' THEN 1 WHEN 'tuesday' THEN 2 WHEN 'wednesday' THEN 3 WHEN 'thursday' THEN 4
  WHEN 'friday' THEN 5 WHEN 'saturday' THEN 6 ELSE 7 END
`, planID)
	if err != nil {
		return nil, fmt.Errorf("list daily plans: %w", err)
	}
	defer rows.Close()

	items := make([]model.DailyPlan, 0)
	for rows.Next() {
		dp, err := scanDailyPlan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily plan: %w", err)
		}
		items = append(items, *dp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily plans: %w", err)
	}
	return items, nil
}

const dailyPlanMealSelect = `
SELECT dpm.id, dpm.daily_plan_id, dpm.meal_id, m.name, dpm.meal_type, dpm.quantity_g, dpm.calories, dpm.carbs_g, dpm.protein_g, dpm.fat_g, dpm.sugar_g
FROM daily_plan_meals dpm
JOIN meals m ON m.id = dpm.meal_id
`

func (s *Store) DailyPlanMeals(ctx context.Context, dailyPlanID int64) ([]model.DailyPlanMeal, error) {
	if _, err := s.DailyPlanByID(ctx, dailyPlanID); err != nil {
		return nil, err
	}
	return dailyPlanLinks(ctx, s.db, dailyPlanID)
}

func dailyPlanLinks(ctx context.Context, q querier, dailyPlanID int64) ([]model.DailyPlanMeal, error) {
	rows, err := q.QueryContext(ctx, dailyPlanMealSelect+`WHERE dpm.daily_plan_id = ? ORDER BY dpm.id`, dailyPlanID)
	if err != nil {
		return nil, fmt.Errorf("list daily plan %d meals: %w", dailyPlanID, err)
	}
	defer rows.Close()

	items := make([]model.DailyPlanMeal, 0)
	for rows.Next() {
		l, err := scanDailyPlanMeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily plan meal: %w", err)
		}
		items = append(items, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily plan meals: %w", err)
	}
	return items, nil
}

func dailyPlanMealByID(ctx context.Context, q querier, id int64) (*model.DailyPlanMeal, error) {
	l, err := scanDailyPlanMeal(q.QueryRowContext(ctx, dailyPlanMealSelect+`WHERE dpm.id = ?`, id))
	if err != nil {
		return nil, rowErr(err, "daily plan meal", id)
	}
	return l, nil
}

// AddMealToDailyPlan snapshots quantityG grams of a meal into a day. A zero
// quantity takes the whole meal; an empty mealType takes the meal's own type.
func (s *Store) AddMealToDailyPlan(ctx context.Context, dailyPlanID, mealID int64, quantityG float64, mealType string) (*model.DailyPlanMeal, error) {
	if mealType != "" {
		t, ok := model.NormalizeMealType(mealType)
		if !ok {
			return nil, fmt.Errorf("%w: unknown meal type %q", nutrition.ErrValidation, mealType)
		}
		mealType = t
	}
	if quantityG != 0 {
		if err := requireWeight(s.engine, "quantity", quantityG); err != nil {
			return nil, err
		}
	}
	unlock := s.locks.lock(dailyPlanKey(dailyPlanID), mealKey(mealID))
	defer unlock()

	var out *model.DailyPlanMeal
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		dp, err := dailyPlanByID(ctx, tx, dailyPlanID)
		if err != nil {
			return err
		}
		meal, err := mealByID(ctx, tx, mealID)
		if err != nil {
			return err
		}
		qty := quantityG
		if qty == 0 {
			qty = meal.TotalWeightG
		}
		if mealType == "" {
			mealType = meal.Type
		}
		scaled, err := s.engine.Scale(s.MealBase(meal), meal.TotalWeightG, qty)
		if err != nil {
			return fmt.Errorf("scale meal %s: %w", meal.Name, err)
		}
		res, err := tx.ExecContext(ctx, `
INSERT INTO daily_plan_meals(daily_plan_id, meal_id, meal_type, quantity_g, calories, carbs_g, protein_g, fat_g, sugar_g)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)
`, args([]any{dailyPlanID, mealID, mealType, qty}, scaled)...)
		if err != nil {
			return fmt.Errorf("add meal to daily plan %d: %w", dailyPlanID, err)
		}
		linkID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("resolve daily plan meal id: %w", err)
		}
		next := s.engine.ApplyDelta(dp.Aggregate, nutrition.Zero(), scaled)
		if err := saveDailyPlanAggregate(ctx, tx, dailyPlanID, next); err != nil {
			return err
		}
		out, err = dailyPlanMealByID(ctx, tx, linkID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(dailyPlanKey(dailyPlanID))
	return out, nil
}

// UpdateDailyPlanMealQuantity rescales a planned portion from the meal's
// current values. Recorded consumption of the portion follows in the same
// transaction.
func (s *Store) UpdateDailyPlanMealQuantity(ctx context.Context, linkID int64, quantityG float64) (*model.DailyPlanMeal, error) {
	if err := requireWeight(s.engine, "quantity", quantityG); err != nil {
		return nil, err
	}
	current, dp, err := s.dailyPlanMealWithDay(ctx, linkID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(dailyPlanKey(dp.ID), planKey(dp.PlanID), mealKey(current.MealID))
	defer unlock()

	var out *model.DailyPlanMeal
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		link, err := dailyPlanMealByID(ctx, tx, linkID)
		if err != nil {
			return err
		}
		day, err := dailyPlanByID(ctx, tx, link.DailyPlanID)
		if err != nil {
			return err
		}
		meal, err := mealByID(ctx, tx, link.MealID)
		if err != nil {
			return err
		}
		scaled, err := s.engine.Scale(s.MealBase(meal), meal.TotalWeightG, quantityG)
		if err != nil {
			return fmt.Errorf("scale meal %s: %w", meal.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `
UPDATE daily_plan_meals SET quantity_g = ?, calories = ?, carbs_g = ?, protein_g = ?, fat_g = ?, sugar_g = ?
WHERE id = ?
`, args([]any{quantityG}, scaled, linkID)...); err != nil {
			return fmt.Errorf("update daily plan meal %d: %w", linkID, err)
		}
		next := s.engine.ApplyDelta(day.Aggregate, link.Scaled, scaled)
		if err := saveDailyPlanAggregate(ctx, tx, day.ID, next); err != nil {
			return err
		}
		if err := s.rescaleConsumption(ctx, tx, linkID, scaled); err != nil {
			return err
		}
		out, err = dailyPlanMealByID(ctx, tx, linkID)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.cache.Invalidate(dailyPlanKey(dp.ID))
	return out, nil
}

// RemoveMealFromDailyPlan drops a planned portion and withdraws any consumption
// recorded against it.
func (s *Store) RemoveMealFromDailyPlan(ctx context.Context, linkID int64) error {
	_, dp, err := s.dailyPlanMealWithDay(ctx, linkID)
	if err != nil {
		return err
	}
	unlock := s.locks.lock(dailyPlanKey(dp.ID), planKey(dp.PlanID))
	defer unlock()

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		link, err := dailyPlanMealByID(ctx, tx, linkID)
		if err != nil {
			return err
		}
		day, err := dailyPlanByID(ctx, tx, link.DailyPlanID)
		if err != nil {
			return err
		}
		if err := s.rescaleConsumption(ctx, tx, linkID, nutrition.Zero()); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_plan_meals WHERE id = ?`, linkID); err != nil {
			return fmt.Errorf("remove daily plan meal %d: %w", linkID, err)
		}
		next := s.engine.ApplyDelta(day.Aggregate, link.Scaled, nutrition.Zero())
		return saveDailyPlanAggregate(ctx, tx, day.ID, next)
	})
	if err != nil {
		return err
	}
	s.cache.Invalidate(dailyPlanKey(dp.ID))
	return nil
}

// RecalculateDailyPlan rebuilds the day aggregate from its planned portions.
func (s *Store) RecalculateDailyPlan(ctx context.Context, dailyPlanID int64) (*model.DailyPlan, error) {
	unlock := s.locks.lock(dailyPlanKey(dailyPlanID))
	defer unlock()

	var out *model.DailyPlan
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := dailyPlanByID(ctx, tx, dailyPlanID); err != nil {
			return err
		}
		links, err := dailyPlanLinks(ctx, tx, dailyPlanID)
		if err != nil {
			return err
		}
		agg := s.cache.Aggregate(dailyPlanKey(dailyPlanID), dailyPlanCacheLinks(links))
		if err := saveDailyPlanAggregate(ctx, tx, dailyPlanID, agg); err != nil {
			return err
		}
		out, err = dailyPlanByID(ctx, tx, dailyPlanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) dailyPlanMealWithDay(ctx context.Context, linkID int64) (*model.DailyPlanMeal, *model.DailyPlan, error) {
	link, err := dailyPlanMealByID(ctx, s.db, linkID)
	if err != nil {
		return nil, nil, err
	}
	dp, err := dailyPlanByID(ctx, s.db, link.DailyPlanID)
	if err != nil {
		return nil, nil, err
	}
	return link, dp, nil
}

func dailyPlanCacheLinks(links []model.DailyPlanMeal) []nutrition.CacheLink {
	out := make([]nutrition.CacheLink, 0, len(links))
	for _, l := range links {
		out = append(out, nutrition.CacheLink{ID: l.ID, QuantityG: l.QuantityG, Macros: l.Scaled})
	}
	return out
}

func saveDailyPlanAggregate(ctx context.Context, tx *sql.Tx, dailyPlanID int64, agg nutrition.Vector) error {
	_, err := tx.ExecContext(ctx, `
UPDATE daily_plans SET
  calories = ?, carbs_g = ?, protein_g = ?, fat_g = ?, sugar_g = ?,
  total_weight_g = ROUND(IFNULL((SELECT SUM(quantity_g) FROM daily_plan_meals WHERE daily_plan_id = ?), 0), 1),
  updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, args(nil, agg, dailyPlanID, dailyPlanID)...)
	if err != nil {
		return fmt.Errorf("save daily plan %d aggregate: %w", dailyPlanID, err)
	}
	return nil
}

func scanPlan(row rowScanner) (*model.Plan, error) {
	var p model.Plan
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.GoalKind,
		&p.Target.Calories, &p.Target.CarbsG, &p.Target.ProteinG, &p.Target.FatG, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Target.Unit = nutrition.UnitGram
	return &p, nil
}

func scanDailyPlan(row rowScanner) (*model.DailyPlan, error) {
	var dp model.DailyPlan
	var vc vectorCols
	if err := row.Scan(scanArgs(
		[]any{&dp.ID, &dp.PlanID, &dp.Week, &dp.Day, &dp.TotalWeightG},
		&vc,
		&dp.UpdatedAt,
	)...); err != nil {
		return nil, err
	}
	dp.Aggregate = vc.vector()
	return &dp, nil
}

func scanDailyPlanMeal(row rowScanner) (*model.DailyPlanMeal, error) {
	var l model.DailyPlanMeal
	var vc vectorCols
	if err := row.Scan(scanArgs(
		[]any{&l.ID, &l.DailyPlanID, &l.MealID, &l.MealName, &l.MealType, &l.QuantityG},
		&vc,
	)...); err != nil {
		return nil, err
	}
	l.Scaled = vc.vector()
	return &l, nil
}
