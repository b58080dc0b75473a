package service

import (
	"context"
	"fmt"
)

type DoctorReport struct {
	MealsChecked      int     `json:"meals_checked"`
	DailyPlansChecked int     `json:"daily_plans_checked"`
	ProgressChecked   int     `json:"progress_checked"`
	MealDrift         []int64 `json:"meal_drift,omitempty"`
	DailyPlanDrift    []int64 `json:"daily_plan_drift,omitempty"`
	ProgressDrift     []int64 `json:"progress_drift,omitempty"`
	Fixed             int     `json:"fixed,omitempty"`
}

func (r DoctorReport) Clean() bool {
	return len(r.MealDrift) == 0 && len(r.DailyPlanDrift) == 0 && len(r.ProgressDrift) == 0
}

// RunDoctor compares every stored aggregate with a full resum of its links
// and, with fix set, rewrites the drifted ones from the resum.
func (s *Store) RunDoctor(ctx context.Context, fix bool) (DoctorReport, error) {
	report := DoctorReport{}

	meals, err := s.ListMeals(ctx, "")
	if err != nil {
		return report, fmt.Errorf("doctor meals: %w", err)
	}
	for _, m := range meals {
		links, err := mealLinks(ctx, s.db, m.ID)
		if err != nil {
			return report, err
		}
		report.MealsChecked++
		resum := s.cache.Aggregate(mealKey(m.ID), mealCacheLinks(links))
		total := 0.0
		for _, l := range links {
			total += l.QuantityG
		}
		if !m.Aggregate.Equal(resum) || !sameWeight(m.TotalWeightG, total) {
			report.MealDrift = append(report.MealDrift, m.ID)
		}
	}

	dayIDs, err := s.ids(ctx, `SELECT id FROM daily_plans ORDER BY id`)
	if err != nil {
		return report, fmt.Errorf("doctor daily plans: %w", err)
	}
	for _, id := range dayIDs {
		dp, err := s.DailyPlanByID(ctx, id)
		if err != nil {
			return report, err
		}
		links, err := dailyPlanLinks(ctx, s.db, id)
		if err != nil {
			return report, err
		}
		report.DailyPlansChecked++
		resum := s.cache.Aggregate(dailyPlanKey(id), dailyPlanCacheLinks(links))
		total := 0.0
		for _, l := range links {
			total += l.QuantityG
		}
		if !dp.Aggregate.Equal(resum) || !sameWeight(dp.TotalWeightG, total) {
			report.DailyPlanDrift = append(report.DailyPlanDrift, id)
		}
	}

	progressIDs, err := s.ids(ctx, `SELECT id FROM daily_progress ORDER BY id`)
	if err != nil {
		return report, fmt.Errorf("doctor progress: %w", err)
	}
	for _, id := range progressIDs {
		p, err := s.DailyProgressByID(ctx, id)
		if err != nil {
			return report, err
		}
		resum, err := s.resumProgress(ctx, s.db, id)
		if err != nil {
			return report, err
		}
		report.ProgressChecked++
		if !p.Consumed.Equal(resum) {
			report.ProgressDrift = append(report.ProgressDrift, id)
		}
	}

	if !fix || report.Clean() {
		return report, nil
	}
	for _, id := range report.MealDrift {
		if _, err := s.RecalculateMeal(ctx, id); err != nil {
			return report, fmt.Errorf("doctor fix meal %d: %w", id, err)
		}
		report.Fixed++
	}
	for _, id := range report.DailyPlanDrift {
		if _, err := s.RecalculateDailyPlan(ctx, id); err != nil {
			return report, fmt.Errorf("doctor fix daily plan %d: %w", id, err)
		}
		report.Fixed++
	}
	for _, id := range report.ProgressDrift {
		if _, err := s.RecalculateDailyProgress(ctx, id); err != nil {
			return report, fmt.Errorf("doctor fix progress %d: %w", id, err)
		}
		report.Fixed++
	}
	s.log.Info("doctor repaired aggregates", "fixed", report.Fixed)
	return report, nil
}

func (s *Store) ids(ctx context.Context, query string) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func sameWeight(stored, summed float64) bool {
	d := stored - summed
	return d < 0.05 && d > -0.05
}
