package lifteat

import (
	"context"
	"fmt"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/model"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/service"
	"github.com/spf13/cobra"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Record eaten portions and compare a day with its plan",
}

var (
	progressUser        string
	progressDate        string
	progressPercent     float64
	progressNotConsumed bool
	progressJSON        bool
)

var progressRecordCmd = &cobra.Command{
	Use:   "record <daily-plan-meal-id>",
	Short: "Mark a planned portion as eaten (or not) on a date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		linkID, err := parseInt64Arg("daily plan meal id", args[0])
		if err != nil {
			return err
		}
		in := service.ConsumptionInput{
			UserID:             progressUser,
			DailyPlanMealID:    linkID,
			Date:               progressDate,
			Consumed:           !progressNotConsumed,
			PercentageConsumed: progressPercent,
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			mp, err := s.RecordMealConsumption(ctx, in)
			if err != nil {
				return err
			}
			if mp.DailyProgressID == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Link %d not eaten; no progress recorded for that day\n", linkID)
				return nil
			}
			p, err := s.DailyProgressByID(ctx, mp.DailyProgressID)
			if err != nil {
				return err
			}
			state := "eaten"
			if !mp.Consumed {
				state = "not eaten"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded link %d as %s (%.0f%%) on %s\n", linkID, state, mp.PercentageConsumed, p.Date)
			fmt.Fprintf(cmd.OutOrStdout(), "Consumed: %s\nCompletion: %.1f%%\n", formatVector(p.Consumed), p.PercentageCompletion)
			return nil
		})
	},
}

var progressShowCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Show a day's consumption against the plan target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		planID, err := parseInt64Arg("plan id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			user := progressUser
			if user == "" {
				plan, err := s.PlanByID(ctx, planID)
				if err != nil {
					return err
				}
				user = plan.UserID
			}
			p, err := s.DailyProgressFor(ctx, user, planID, progressDate)
			if err != nil {
				return err
			}
			rows, err := s.DailyMealProgress(ctx, p.ID)
			if err != nil {
				return err
			}
			vs, err := s.ProgressAgainstPlan(ctx, p.ID)
			if err != nil {
				return err
			}
			if progressJSON {
				return printJSON(cmd.OutOrStdout(), struct {
					Progress *model.DailyProgress      `json:"progress"`
					Meals    []model.DailyMealProgress `json:"meals"`
					VsPlan   nutrition.Progress        `json:"vs_plan"`
				}{p, rows, vs})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Progress %d: user %s, plan %d, %s\n", p.ID, p.UserID, p.PlanID, p.Date)
			fmt.Fprintf(w, "Consumed: %s\n", formatVector(p.Consumed))
			fmt.Fprintf(w, "Completion: %.1f%%\n", p.PercentageCompletion)
			fmt.Fprintf(w, "Of target: kcal %.1f%%, carbs %.1f%%, protein %.1f%%, fat %.1f%%\n",
				vs.Percent.Calories, vs.Percent.Carbs, vs.Percent.Protein, vs.Percent.Fat)
			fmt.Fprintf(w, "Remaining: %s\n", formatVector(vs.Remaining))
			fmt.Fprintln(w, "LINK\tEATEN\tPCT\tKCAL\tC\tP\tF")
			for _, r := range rows {
				fmt.Fprintf(w, "%d\t%t\t%.0f\t%.0f\t%.1f\t%.1f\t%.1f\n",
					r.DailyPlanMealID, r.Consumed, r.PercentageConsumed, r.Effective.Calories, r.Effective.CarbsG, r.Effective.ProteinG, r.Effective.FatG)
			}
			return nil
		})
	},
}

var progressRecalcCmd = &cobra.Command{
	Use:   "recalc <progress-id>",
	Short: "Rebuild consumed totals from the recorded portions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("progress id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			p, err := s.RecalculateDailyProgress(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Progress %d: %s, completion %.1f%%\n", p.ID, formatVector(p.Consumed), p.PercentageCompletion)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(progressCmd)
	progressCmd.AddCommand(progressRecordCmd, progressShowCmd, progressRecalcCmd)

	for _, c := range []*cobra.Command{progressRecordCmd, progressShowCmd} {
		c.Flags().StringVar(&progressUser, "user", "", "User id (default: the plan's user)")
		c.Flags().StringVar(&progressDate, "date", "", "Date YYYY-MM-DD (default today)")
	}
	progressRecordCmd.Flags().Float64Var(&progressPercent, "percent", 100, "Share of the planned portion eaten, 0-100")
	progressRecordCmd.Flags().BoolVar(&progressNotConsumed, "not-eaten", false, "Mark the portion as not eaten")
	progressShowCmd.Flags().BoolVar(&progressJSON, "json", false, "Output JSON")
}
