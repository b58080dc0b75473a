package lifteat

import (
	"context"
	"fmt"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/model"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/service"
	"github.com/spf13/cobra"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Manage weekly plans, their days and planned meals",
}

var (
	planUser     string
	planListUser string
	planName     string
	planGoal     string
	planTarget   macroFlags
	planWeek     int
	planDay      string
	planQty      float64
	planMealType string
	planJSON     bool
)

var planCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a plan with a daily target (macros derived from calories when omitted)",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := service.PlanInput{UserID: planUser, Name: planName, GoalKind: planGoal, Target: planTarget.vector(cmd)}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			id, err := s.CreatePlan(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created plan %d\n", id)
			return nil
		})
	},
}

var planListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plans",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			plans, err := s.ListPlans(ctx, planListUser)
			if err != nil {
				return err
			}
			if planJSON {
				return printJSON(cmd.OutOrStdout(), plans)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tUSER\tNAME\tGOAL\tKCAL\tC\tP\tF")
			for _, p := range plans {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\t%.0f\t%.1f\t%.1f\t%.1f\n",
					p.ID, p.UserID, p.Name, p.GoalKind, p.Target.Calories, p.Target.CarbsG, p.Target.ProteinG, p.Target.FatG)
			}
			return nil
		})
	},
}

type planDayView struct {
	Day   model.DailyPlan       `json:"day"`
	Meals []model.DailyPlanMeal `json:"meals"`
}

var planShowCmd = &cobra.Command{
	Use:   "show <plan-id>",
	Short: "Show a plan with its days and planned meals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("plan id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			p, err := s.PlanByID(ctx, id)
			if err != nil {
				return err
			}
			days, err := s.DailyPlans(ctx, id)
			if err != nil {
				return err
			}
			views := make([]planDayView, 0, len(days))
			for _, d := range days {
				meals, err := s.DailyPlanMeals(ctx, d.ID)
				if err != nil {
					return err
				}
				views = append(views, planDayView{Day: d, Meals: meals})
			}
			if planJSON {
				return printJSON(cmd.OutOrStdout(), struct {
					Plan *model.Plan   `json:"plan"`
					Days []planDayView `json:"days"`
				}{p, views})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Plan %d: %s (%s, user %s)\n", p.ID, p.Name, p.GoalKind, p.UserID)
			fmt.Fprintf(w, "Daily target: %s\n", formatVector(p.Target))
			for _, v := range views {
				fmt.Fprintf(w, "Day %d: week %d %s, %s over %.1fg\n", v.Day.ID, v.Day.Week, v.Day.Day, formatVector(v.Day.Aggregate), v.Day.TotalWeightG)
				for _, m := range v.Meals {
					fmt.Fprintf(w, "  link %d\t%s\t%s\t%.1fg\t%s\n", m.ID, m.MealType, m.MealName, m.QuantityG, formatVector(m.Scaled))
				}
			}
			return nil
		})
	},
}

var planDeleteCmd = &cobra.Command{
	Use:   "delete <plan-id>",
	Short: "Delete a plan with its days and recorded progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("plan id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			if err := s.DeletePlan(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted plan %d\n", id)
			return nil
		})
	},
}

var planAddDayCmd = &cobra.Command{
	Use:   "add-day <plan-id>",
	Short: "Add a day (week + weekday) to a plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("plan id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			dayID, err := s.AddDailyPlan(ctx, id, planWeek, planDay)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created daily plan %d\n", dayID)
			return nil
		})
	},
}

var planAddMealCmd = &cobra.Command{
	Use:   "add-meal <daily-plan-id> <meal-id>",
	Short: "Plan a portion of a meal on a day (whole meal without --qty)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dayID, err := parseInt64Arg("daily plan id", args[0])
		if err != nil {
			return err
		}
		mealID, err := parseInt64Arg("meal id", args[1])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			link, err := s.AddMealToDailyPlan(ctx, dayID, mealID, planQty, planMealType)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Planned %s (%.1fg, %s) as link %d: %s\n",
				link.MealName, link.QuantityG, link.MealType, link.ID, formatVector(link.Scaled))
			return nil
		})
	},
}

var planSetQuantityCmd = &cobra.Command{
	Use:   "set-quantity <link-id> <grams>",
	Short: "Change a planned portion; recorded consumption follows",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		linkID, err := parseInt64Arg("link id", args[0])
		if err != nil {
			return err
		}
		grams, err := parseGramsArg("grams", args[1])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			link, err := s.UpdateDailyPlanMealQuantity(ctx, linkID, grams)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated link %d to %.1fg: %s\n", link.ID, link.QuantityG, formatVector(link.Scaled))
			return nil
		})
	},
}

var planRemoveMealCmd = &cobra.Command{
	Use:   "remove-meal <link-id>",
	Short: "Remove a planned portion and withdraw its consumption",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		linkID, err := parseInt64Arg("link id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			if err := s.RemoveMealFromDailyPlan(ctx, linkID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed link %d\n", linkID)
			return nil
		})
	},
}

var planNutritionCmd = &cobra.Command{
	Use:   "nutrition <daily-plan-id>",
	Short: "Show a day's planned nutrition in a display frame",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("daily plan id", args[0])
		if err != nil {
			return err
		}
		opts, err := displayOptions()
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			view, err := s.DailyPlanNutritionByID(ctx, id, opts)
			if err != nil {
				return err
			}
			return printNutritionView(cmd, view, planJSON)
		})
	},
}

var planRecalcCmd = &cobra.Command{
	Use:   "recalc <daily-plan-id>",
	Short: "Rebuild a day's aggregate from its planned portions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("daily plan id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			d, err := s.RecalculateDailyPlan(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Daily plan %d: %s over %.1fg\n", d.ID, formatVector(d.Aggregate), d.TotalWeightG)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.AddCommand(planCreateCmd, planListCmd, planShowCmd, planDeleteCmd, planAddDayCmd,
		planAddMealCmd, planSetQuantityCmd, planRemoveMealCmd, planNutritionCmd, planRecalcCmd)

	planCreateCmd.Flags().StringVar(&planUser, "user", "", "User id owning the plan")
	planCreateCmd.Flags().StringVar(&planName, "name", "", "Plan name")
	planCreateCmd.Flags().StringVar(&planGoal, "goal", "", "Goal: weight_loss, maintain, gain_muscle")
	planTarget.bind(planCreateCmd)
	_ = planCreateCmd.MarkFlagRequired("user")
	_ = planCreateCmd.MarkFlagRequired("name")

	planListCmd.Flags().StringVar(&planListUser, "user", "", "Filter by user id")
	planAddDayCmd.Flags().IntVar(&planWeek, "week", 1, "Week number, starting at 1")
	planAddDayCmd.Flags().StringVar(&planDay, "day", "", "Weekday (monday..sunday or mon..sun)")
	_ = planAddDayCmd.MarkFlagRequired("day")
	planAddMealCmd.Flags().Float64Var(&planQty, "qty", 0, "Planned grams (default: the whole meal)")
	planAddMealCmd.Flags().StringVar(&planMealType, "type", "", "Meal slot (default: the meal's own type)")
	for _, c := range []*cobra.Command{planListCmd, planShowCmd, planNutritionCmd} {
		c.Flags().BoolVar(&planJSON, "json", false, "Output JSON")
	}
	bindDisplayFlags(planNutritionCmd)
}
