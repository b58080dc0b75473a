package lifteat

import (
	"context"
	"fmt"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/service"
	"github.com/spf13/cobra"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Compare stored aggregates with a full recomputation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			report, err := s.RunDoctor(ctx, doctorFix)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Meals checked: %d (drift %d)\n", report.MealsChecked, len(report.MealDrift))
			fmt.Fprintf(cmd.OutOrStdout(), "Daily plans checked: %d (drift %d)\n", report.DailyPlansChecked, len(report.DailyPlanDrift))
			fmt.Fprintf(cmd.OutOrStdout(), "Daily progress checked: %d (drift %d)\n", report.ProgressChecked, len(report.ProgressDrift))
			if doctorFix {
				fmt.Fprintf(cmd.OutOrStdout(), "Repaired aggregates: %d\n", report.Fixed)
				// Re-check after fixes so exit status reflects final state.
				report, err = s.RunDoctor(ctx, false)
				if err != nil {
					return err
				}
			}
			if !report.Clean() {
				return fmt.Errorf("doctor found aggregate drift")
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "Rewrite drifted aggregates from their links")
}
