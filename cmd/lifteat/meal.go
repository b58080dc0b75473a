package lifteat

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/model"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/service"
	"github.com/spf13/cobra"
)

var mealCmd = &cobra.Command{
	Use:   "meal",
	Short: "Manage meals and their ingredients",
}

var (
	mealName        string
	mealType        string
	mealCuisine     string
	mealDescription string
	mealListType    string
	mealJSON        bool
	displayMode     string
	displayServing  float64
	displayTarget   float64
	mealPortion     float64
)

func mealInput() service.MealInput {
	return service.MealInput{Name: mealName, Type: mealType, Cuisine: mealCuisine, Description: mealDescription}
}

var mealCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an empty meal",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := mealInput()
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			id, err := s.CreateMeal(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created meal %d\n", id)
			return nil
		})
	},
}

var mealListCmd = &cobra.Command{
	Use:   "list",
	Short: "List meals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			meals, err := s.ListMeals(ctx, mealListType)
			if err != nil {
				return err
			}
			if mealJSON {
				return printJSON(cmd.OutOrStdout(), meals)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tNAME\tTYPE\tWEIGHT\tKCAL\tC\tP\tF")
			for _, m := range meals {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%.1fg\t%.0f\t%.1f\t%.1f\t%.1f\n",
					m.ID, m.Name, m.Type, m.TotalWeightG, m.Aggregate.Calories, m.Aggregate.CarbsG, m.Aggregate.ProteinG, m.Aggregate.FatG)
			}
			return nil
		})
	},
}

var mealShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a meal with its ingredient links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("meal id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			m, err := s.MealByID(ctx, id)
			if err != nil {
				return err
			}
			links, err := s.MealIngredients(ctx, id)
			if err != nil {
				return err
			}
			if mealJSON {
				return printJSON(cmd.OutOrStdout(), struct {
					Meal  *model.Meal            `json:"meal"`
					Links []model.MealIngredient `json:"links"`
				}{m, links})
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Meal %d: %s (%s, %s)\n", m.ID, m.Name, m.Type, m.Cuisine)
			fmt.Fprintf(w, "Total: %s over %.1fg", formatVector(m.Aggregate), m.TotalWeightG)
			if m.FinalWeightG > 0 {
				fmt.Fprintf(w, ", %.1fg cooked", m.FinalWeightG)
			}
			fmt.Fprintln(w)
			fmt.Fprintln(w, "LINK\tINGREDIENT\tQTY\tKCAL\tC\tP\tF")
			for _, l := range links {
				fmt.Fprintf(w, "%d\t%s\t%.1fg\t%.0f\t%.1f\t%.1f\t%.1f\n",
					l.ID, l.IngredientName, l.QuantityG, l.Scaled.Calories, l.Scaled.CarbsG, l.Scaled.ProteinG, l.Scaled.FatG)
			}
			return nil
		})
	},
}

var mealUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update meal name, type, cuisine and description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("meal id", args[0])
		if err != nil {
			return err
		}
		in := mealInput()
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			if err := s.UpdateMeal(ctx, id, in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated meal %d\n", id)
			return nil
		})
	},
}

var mealAddIngredientCmd = &cobra.Command{
	Use:   "add-ingredient <meal-id> <ingredient id|name> <grams>",
	Short: "Add an ingredient quantity to a meal",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		mealID, err := parseInt64Arg("meal id", args[0])
		if err != nil {
			return err
		}
		grams, err := parseGramsArg("grams", args[2])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			ing, err := s.ResolveIngredient(ctx, args[1])
			if err != nil {
				return err
			}
			link, err := s.AddMealIngredient(ctx, mealID, ing.ID, grams)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%.1fg) to meal %d as link %d: %s\n",
				ing.Name, link.QuantityG, mealID, link.ID, formatVector(link.Scaled))
			return nil
		})
	},
}

var mealSetQuantityCmd = &cobra.Command{
	Use:   "set-quantity <link-id> <grams>",
	Short: "Change the quantity of an ingredient link",
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
			link, err := s.UpdateMealIngredientQuantity(ctx, linkID, grams)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated link %d to %.1fg: %s\n", link.ID, link.QuantityG, formatVector(link.Scaled))
			return nil
		})
	},
}

var mealRemoveIngredientCmd = &cobra.Command{
	Use:   "remove-ingredient <link-id>",
	Short: "Remove an ingredient link from its meal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		linkID, err := parseInt64Arg("link id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			if err := s.RemoveMealIngredient(ctx, linkID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed link %d\n", linkID)
			return nil
		})
	},
}

var mealFinalWeightCmd = &cobra.Command{
	Use:   "final-weight <meal-id> <grams>",
	Short: "Record the cooked weight of a meal (0 clears it)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("meal id", args[0])
		if err != nil {
			return err
		}
		grams, err := parseGramsArg("grams", args[1])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			if err := s.SetMealFinalWeight(ctx, id, grams); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set final weight of meal %d to %.1fg\n", id, grams)
			return nil
		})
	},
}

var mealImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a generated meal payload (JSON, fenced or not) from a file or stdin",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := readPayload(cmd, args)
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			res, err := s.ImportGeneratedMeal(ctx, raw)
			if err != nil {
				return err
			}
			if mealJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported meal %d %q with %d ingredient(s): %s\n",
				res.Meal.ID, res.Meal.Name, len(res.Links), formatVector(res.Meal.Aggregate))
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return nil
		})
	},
}

func readPayload(cmd *cobra.Command, args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read payload from stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return raw, nil
}

func displayOptions() (service.DisplayOptions, error) {
	mode, err := nutrition.ParseMode(displayMode)
	if err != nil {
		return service.DisplayOptions{}, err
	}
	return service.DisplayOptions{Mode: mode, ServingSize: displayServing, TargetWeight: displayTarget, QuantityG: mealPortion}, nil
}

func printNutritionView(cmd *cobra.Command, v *service.NutritionView, asJSON bool) error {
	if asJSON {
		return printJSON(cmd.OutOrStdout(), v)
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s\n", v.Name)
	fmt.Fprintf(w, "%s: %s\n", v.Normalized.Label, formatVector(v.Normalized.Vector))
	fmt.Fprintf(w, "Energy split: protein %d%%, carbs %d%%, fat %d%%\n", v.Breakdown.Protein, v.Breakdown.Carbs, v.Breakdown.Fat)
	var off []string
	if !v.Balance.ProteinOK {
		off = append(off, "protein")
	}
	if !v.Balance.CarbsOK {
		off = append(off, "carbs")
	}
	if !v.Balance.FatOK {
		off = append(off, "fat")
	}
	if len(off) > 0 {
		fmt.Fprintf(w, "Outside recommended range: %s\n", strings.Join(off, ", "))
	}
	if v.Normalized.Warning != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", v.Normalized.Warning)
	}
	return nil
}

var mealNutritionCmd = &cobra.Command{
	Use:   "nutrition <meal-id>",
	Short: "Show meal nutrition in a display frame (as_recorded, per_100g, per_serving, full)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("meal id", args[0])
		if err != nil {
			return err
		}
		opts, err := displayOptions()
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			view, err := s.MealNutritionByID(ctx, id, opts)
			if err != nil {
				return err
			}
			return printNutritionView(cmd, view, mealJSON)
		})
	},
}

var mealBreakdownCmd = &cobra.Command{
	Use:   "breakdown <meal-id>",
	Short: "Show the energy share of each macro",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("meal id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			b, err := s.MacroBreakdownByID(ctx, id, mealPortion)
			if err != nil {
				return err
			}
			if mealJSON {
				return printJSON(cmd.OutOrStdout(), b)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Protein: %d%%\nCarbs: %d%%\nFat: %d%%\n", b.Protein, b.Carbs, b.Fat)
			return nil
		})
	},
}

var mealRecalcCmd = &cobra.Command{
	Use:   "recalc <meal-id>",
	Short: "Rebuild a meal aggregate from its links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("meal id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			m, err := s.RecalculateMeal(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Meal %d: %s over %.1fg\n", m.ID, formatVector(m.Aggregate), m.TotalWeightG)
			return nil
		})
	},
}

var mealDeleteCmd = &cobra.Command{
	Use:   "delete <meal-id>",
	Short: "Delete a meal not used by any plan",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("meal id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			if err := s.DeleteMeal(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted meal %d\n", id)
			return nil
		})
	},
}

func bindDisplayFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&displayMode, "mode", "as_recorded", "Display frame: as_recorded, per_100g, per_serving, full")
	cmd.Flags().Float64Var(&displayServing, "serving", 0, "Serving size in grams for per_serving")
	cmd.Flags().Float64Var(&displayTarget, "target", 0, "Target weight in grams for full (defaults to the cooked weight)")
}

func init() {
	rootCmd.AddCommand(mealCmd)
	mealCmd.AddCommand(mealCreateCmd, mealListCmd, mealShowCmd, mealUpdateCmd, mealAddIngredientCmd,
		mealSetQuantityCmd, mealRemoveIngredientCmd, mealFinalWeightCmd, mealImportCmd,
		mealNutritionCmd, mealBreakdownCmd, mealRecalcCmd, mealDeleteCmd)

	for _, c := range []*cobra.Command{mealCreateCmd, mealUpdateCmd} {
		c.Flags().StringVar(&mealName, "name", "", "Meal name")
		c.Flags().StringVar(&mealType, "type", "", "Meal type: breakfast, lunch, dinner, snack")
		c.Flags().StringVar(&mealCuisine, "cuisine", "", "Cuisine (default general)")
		c.Flags().StringVar(&mealDescription, "description", "", "Description")
		_ = c.MarkFlagRequired("name")
	}
	mealListCmd.Flags().StringVar(&mealListType, "type", "", "Filter by meal type")
	for _, c := range []*cobra.Command{mealListCmd, mealShowCmd, mealImportCmd, mealNutritionCmd, mealBreakdownCmd} {
		c.Flags().BoolVar(&mealJSON, "json", false, "Output JSON")
	}
	bindDisplayFlags(mealNutritionCmd)
	for _, c := range []*cobra.Command{mealNutritionCmd, mealBreakdownCmd} {
		c.Flags().Float64Var(&mealPortion, "quantity", 0, "Portion of the meal in grams (default the whole meal)")
	}
}
