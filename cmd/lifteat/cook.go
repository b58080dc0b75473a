package lifteat

import (
	"fmt"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
	"github.com/spf13/cobra"
)

var (
	cookMethod string
	cookWeight float64
	cookMacros macroFlags
	cookList   bool
)

var cookCmd = &cobra.Command{
	Use:   "cook",
	Short: "Apply cooking retention factors to raw nutrition values",
	RunE: func(cmd *cobra.Command, args []string) error {
		e := nutrition.New(nutrition.Config{Logger: logger})
		w := cmd.OutOrStdout()
		if cookList {
			for _, m := range e.CookingMethods() {
				fmt.Fprintln(w, m)
			}
			return nil
		}
		method, err := e.ParseCookingMethod(cookMethod)
		if err != nil {
			return err
		}
		raw := cookMacros.vector(cmd)
		if err := e.RequireValid(raw); err != nil {
			return err
		}
		cooked, err := e.AdjustForCooking(raw, method)
		if err != nil {
			return err
		}
		pct := nutrition.AdjustmentPercentages(raw, cooked)
		fmt.Fprintf(w, "Raw: %s\n", formatVector(raw))
		fmt.Fprintf(w, "Cooked (%s): %s\n", method, formatVector(cooked))
		fmt.Fprintf(w, "Change: kcal %+.1f%%, carbs %+.1f%%, protein %+.1f%%, fat %+.1f%%\n", pct.Calories, pct.Carbs, pct.Protein, pct.Fat)
		if cmd.Flags().Changed("weight") {
			cw, err := e.CookedWeight(cookWeight, method)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "Weight: %.1fg raw -> %.1fg cooked\n", cookWeight, cw)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cookCmd)
	cookCmd.Flags().StringVar(&cookMethod, "method", string(nutrition.CookingRaw), "Cooking method")
	cookCmd.Flags().Float64Var(&cookWeight, "weight", 0, "Raw weight in grams")
	cookCmd.Flags().BoolVar(&cookList, "list", false, "List cooking methods")
	cookMacros.bind(cookCmd)
}
