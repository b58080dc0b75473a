package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/model"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

const dateLayout = "2006-01-02"

type ConsumptionInput struct {
	// UserID defaults to the plan's user and must match it when set.
	UserID          string
	DailyPlanMealID int64
	// Date is YYYY-MM-DD; empty means today.
	Date     string
	Consumed bool
	// PercentageConsumed is the eaten share of the planned portion, 0-100.
	// Zero on a consumed portion means all of it.
	PercentageConsumed float64
}

// RecordMealConsumption marks a planned portion as eaten (or not) on a date.
// The day's progress row is created by the first consumption; marking a
// portion as not eaten on a day without one stores nothing. Consumed totals
// move by the difference between the old and new effective macros.
func (s *Store) RecordMealConsumption(ctx context.Context, in ConsumptionInput) (*model.DailyMealProgress, error) {
	date, err := normalizeDate(in.Date)
	if err != nil {
		return nil, err
	}
	pct := in.PercentageConsumed
	if in.Consumed && pct == 0 {
		pct = 100
	}
	if !s.engine.IsValidValue(pct) || pct > 100 {
		return nil, &nutrition.ValidationError{Field: "percentage consumed", Value: pct, Kind: nutrition.ErrOutOfRange}
	}

	_, dp, err := s.dailyPlanMealWithDay(ctx, in.DailyPlanMealID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(planKey(dp.PlanID))
	defer unlock()

	var out *model.DailyMealProgress
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		link, err := dailyPlanMealByID(ctx, tx, in.DailyPlanMealID)
		if err != nil {
			return err
		}
		plan, err := planByID(ctx, tx, dp.PlanID)
		if err != nil {
			return err
		}
		userID := strings.TrimSpace(in.UserID)
		if userID == "" {
			userID = plan.UserID
		}
		if userID != plan.UserID {
			return fmt.Errorf("%w: plan %d belongs to another user", nutrition.ErrValidation, plan.ID)
		}

		effective := nutrition.EffectiveMacros(link.Scaled, pct)
		var progress *model.DailyProgress
		if in.Consumed {
			progress, err = ensureDailyProgress(ctx, tx, userID, plan.ID, date)
		} else {
			progress, err = existingDailyProgress(ctx, tx, userID, plan.ID, date)
		}
		if err != nil {
			return err
		}
		if progress == nil {
			out = &model.DailyMealProgress{MealID: link.MealID, DailyPlanMealID: link.ID, PercentageConsumed: pct, Effective: effective}
			return nil
		}
		prior, err := mealProgressFor(ctx, tx, progress.ID, link.ID)
		if err != nil {
			return err
		}

		oldShare := nutrition.Zero()
		if prior != nil && prior.Consumed {
			oldShare = prior.Effective
		}
		newShare := nutrition.Zero()
		if in.Consumed {
			newShare = effective
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO daily_meal_progress(daily_progress_id, meal_id, daily_plan_meal_id, consumed, percentage_consumed, calories, carbs_g, protein_g, fat_g, sugar_g)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(daily_progress_id, daily_plan_meal_id) DO UPDATE SET
  consumed = excluded.consumed,
  percentage_consumed = excluded.percentage_consumed,
  calories = excluded.calories,
  carbs_g = excluded.carbs_g,
  protein_g = excluded.protein_g,
  fat_g = excluded.fat_g,
  sugar_g = excluded.sugar_g
`, args([]any{progress.ID, link.MealID, link.ID, in.Consumed, pct}, effective)...)
		if err != nil {
			return fmt.Errorf("record meal progress: %w", err)
		}
		if err := s.moveConsumed(ctx, tx, progress, plan.Target, oldShare, newShare); err != nil {
			return err
		}
		out, err = mealProgressFor(ctx, tx, progress.ID, link.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func normalizeDate(date string) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return time.Now().Format(dateLayout), nil
	}
	t, err := time.Parse(dateLayout, date)
	if err != nil {
		return "", fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", nutrition.ErrValidation, date)
	}
	return t.Format(dateLayout), nil
}

func ensureDailyProgress(ctx context.Context, tx *sql.Tx, userID string, planID int64, date string) (*model.DailyProgress, error) {
	if _, err := tx.ExecContext(ctx, `
INSERT INTO daily_progress(user_id, plan_id, date) VALUES(?, ?, ?)
ON CONFLICT(user_id, plan_id, date) DO NOTHING
`, userID, planID, date); err != nil {
		return nil, fmt.Errorf("create daily progress: %w", err)
	}
	p, err := existingDailyProgress(ctx, tx, userID, planID, date)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("load daily progress: %w", sql.ErrNoRows)
	}
	return p, nil
}

func existingDailyProgress(ctx context.Context, q querier, userID string, planID int64, date string) (*model.DailyProgress, error) {
	p, err := scanDailyProgress(q.QueryRowContext(ctx, `SELECT `+dailyProgressColumns+` FROM daily_progress WHERE user_id = ? AND plan_id = ? AND date = ?`, userID, planID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load daily progress: %w", err)
	}
	return p, nil
}

func mealProgressFor(ctx context.Context, q querier, progressID, dailyPlanMealID int64) (*model.DailyMealProgress, error) {
	mp, err := scanMealProgress(q.QueryRowContext(ctx, `SELECT `+mealProgressColumns+` FROM daily_meal_progress WHERE daily_progress_id = ? AND daily_plan_meal_id = ?`, progressID, dailyPlanMealID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load meal progress: %w", err)
	}
	return mp, nil
}

// moveConsumed applies old -> next to the day's consumed totals and refreshes completion.
func (s *Store) moveConsumed(ctx context.Context, tx *sql.Tx, p *model.DailyProgress, target, old, next nutrition.Vector) error {
	consumed := s.engine.ApplyDelta(p.Consumed, old, next)
	return saveDailyProgress(ctx, tx, p.ID, consumed, nutrition.CompletionPercentage(consumed, target))
}

func saveDailyProgress(ctx context.Context, tx *sql.Tx, id int64, consumed nutrition.Vector, completion float64) error {
	_, err := tx.ExecContext(ctx, `
UPDATE daily_progress SET
  calories = ?, carbs_g = ?, protein_g = ?, fat_g = ?, sugar_g = ?,
  percentage_completion = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
`, args(nil, consumed, completion, id)...)
	if err != nil {
		return fmt.Errorf("save daily progress %d: %w", id, err)
	}
	return nil
}

// rescaleConsumption recomputes every progress row recorded against a planned
// portion whose scaled macros changed to scaled. Callers hold the plan lock.
func (s *Store) rescaleConsumption(ctx context.Context, tx *sql.Tx, dailyPlanMealID int64, scaled nutrition.Vector) error {
	rows, err := tx.QueryContext(ctx, `SELECT `+mealProgressColumns+` FROM daily_meal_progress WHERE daily_plan_meal_id = ? ORDER BY id`, dailyPlanMealID)
	if err != nil {
		return fmt.Errorf("list progress for daily plan meal %d: %w", dailyPlanMealID, err)
	}
	var affected []model.DailyMealProgress
	for rows.Next() {
		mp, err := scanMealProgress(rows)
		if err != nil {
			rows.Close()
			return fmt.Errorf("scan meal progress: %w", err)
		}
		affected = append(affected, *mp)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate meal progress: %w", err)
	}
	rows.Close()

	for _, mp := range affected {
		effective := nutrition.EffectiveMacros(scaled, mp.PercentageConsumed)
		if _, err := tx.ExecContext(ctx, `
UPDATE daily_meal_progress SET calories = ?, carbs_g = ?, protein_g = ?, fat_g = ?, sugar_g = ?
WHERE id = ?
`, args(nil, effective, mp.ID)...); err != nil {
			return fmt.Errorf("update meal progress %d: %w", mp.ID, err)
		}
		if !mp.Consumed {
			continue
		}
		p, err := dailyProgressByID(ctx, tx, mp.DailyProgressID)
		if err != nil {
			return err
		}
		plan, err := planByID(ctx, tx, p.PlanID)
		if err != nil {
			return err
		}
		if err := s.moveConsumed(ctx, tx, p, plan.Target, mp.Effective, effective); err != nil {
			return err
		}
		s.log.Debug("consumption rescaled", "daily_progress_id", p.ID, "daily_plan_meal_id", dailyPlanMealID)
	}
	return nil
}

const dailyProgressColumns = `id, user_id, plan_id, date, calories, carbs_g, protein_g, fat_g, sugar_g, percentage_completion, created_at, updated_at`

// DailyProgressFor returns the progress of a user on a plan for a date.
func (s *Store) DailyProgressFor(ctx context.Context, userID string, planID int64, date string) (*model.DailyProgress, error) {
	d, err := normalizeDate(date)
	if err != nil {
		return nil, err
	}
	p, err := scanDailyProgress(s.db.QueryRowContext(ctx, `SELECT `+dailyProgressColumns+` FROM daily_progress WHERE user_id = ? AND plan_id = ? AND date = ?`, strings.TrimSpace(userID), planID, d))
	if err != nil {
		return nil, rowErr(err, "daily progress", fmt.Sprintf("%s/%d/%s", userID, planID, d))
	}
	return p, nil
}

func (s *Store) DailyProgressByID(ctx context.Context, id int64) (*model.DailyProgress, error) {
	return dailyProgressByID(ctx, s.db, id)
}

func dailyProgressByID(ctx context.Context, q querier, id int64) (*model.DailyProgress, error) {
	p, err := scanDailyProgress(q.QueryRowContext(ctx, `SELECT `+dailyProgressColumns+` FROM daily_progress WHERE id = ?`, id))
	if err != nil {
		return nil, rowErr(err, "daily progress", id)
	}
	return p, nil
}

const mealProgressColumns = `id, daily_progress_id, meal_id, daily_plan_meal_id, consumed, percentage_consumed, calories, carbs_g, protein_g, fat_g, sugar_g`

func (s *Store) DailyMealProgress(ctx context.Context, progressID int64) ([]model.DailyMealProgress, error) {
	if _, err := s.DailyProgressByID(ctx, progressID); err != nil {
		return nil, err
	}
	return mealProgressRows(ctx, s.db, progressID)
}

func mealProgressRows(ctx context.Context, q querier, progressID int64) ([]model.DailyMealProgress, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+mealProgressColumns+` FROM daily_meal_progress WHERE daily_progress_id = ? ORDER BY id`, progressID)
	if err != nil {
		return nil, fmt.Errorf("list meal progress: %w", err)
	}
	defer rows.Close()

	items := make([]model.DailyMealProgress, 0)
	for rows.Next() {
		mp, err := scanMealProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan meal progress: %w", err)
		}
		items = append(items, *mp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate meal progress: %w", err)
	}
	return items, nil
}

// ProgressAgainstPlan compares a day's consumption with its plan's daily target.
func (s *Store) ProgressAgainstPlan(ctx context.Context, progressID int64) (nutrition.Progress, error) {
	p, err := s.DailyProgressByID(ctx, progressID)
	if err != nil {
		return nutrition.Progress{}, err
	}
	plan, err := s.PlanByID(ctx, p.PlanID)
	if err != nil {
		return nutrition.Progress{}, err
	}
	return nutrition.ComputeProgress(p.Consumed, plan.Target), nil
}

// RecalculateDailyProgress rebuilds consumed totals from the consumed meal rows.
func (s *Store) RecalculateDailyProgress(ctx context.Context, progressID int64) (*model.DailyProgress, error) {
	p, err := s.DailyProgressByID(ctx, progressID)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.lock(planKey(p.PlanID))
	defer unlock()

	var out *model.DailyProgress
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		consumed, err := s.resumProgress(ctx, tx, progressID)
		if err != nil {
			return err
		}
		plan, err := planByID(ctx, tx, p.PlanID)
		if err != nil {
			return err
		}
		if err := saveDailyProgress(ctx, tx, progressID, consumed, nutrition.CompletionPercentage(consumed, plan.Target)); err != nil {
			return err
		}
		out, err = dailyProgressByID(ctx, tx, progressID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func progressKey(id int64) string { return fmt.Sprintf("progress:%d", id) }

func (s *Store) resumProgress(ctx context.Context, q querier, progressID int64) (nutrition.Vector, error) {
	rows, err := mealProgressRows(ctx, q, progressID)
	if err != nil {
		return nutrition.Vector{}, err
	}
	links := make([]nutrition.CacheLink, 0, len(rows))
	for _, mp := range rows {
		if !mp.Consumed {
			continue
		}
		links = append(links, nutrition.CacheLink{ID: mp.ID, QuantityG: mp.PercentageConsumed, Macros: mp.Effective})
	}
	return s.cache.Aggregate(progressKey(progressID), links), nil
}

func scanDailyProgress(row rowScanner) (*model.DailyProgress, error) {
	var p model.DailyProgress
	var vc vectorCols
	if err := row.Scan(scanArgs(
		[]any{&p.ID, &p.UserID, &p.PlanID, &p.Date},
		&vc,
		&p.PercentageCompletion, &p.CreatedAt, &p.UpdatedAt,
	)...); err != nil {
		return nil, err
	}
	p.Consumed = vc.vector()
	return &p, nil
}

func scanMealProgress(row rowScanner) (*model.DailyMealProgress, error) {
	var mp model.DailyMealProgress
	var vc vectorCols
	if err := row.Scan(scanArgs(
		[]any{&mp.ID, &mp.DailyProgressID, &mp.MealID, &mp.DailyPlanMealID, &mp.Consumed, &mp.PercentageConsumed},
		&vc,
	)...); err != nil {
		return nil, err
	}
	mp.Effective = vc.vector()
	return &mp, nil
}
