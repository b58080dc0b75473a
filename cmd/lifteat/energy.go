package lifteat

import (
	"fmt"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
	"github.com/spf13/cobra"
)

var (
	energyAge      int
	energySex      string
	energyWeight   float64
	energyHeight   float64
	energyActivity string
	energySplit    nutrition.MacroPercentages
)

var energyCmd = &cobra.Command{
	Use:   "energy",
	Short: "Estimate daily energy needs (Mifflin-St Jeor) and macro targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		p := nutrition.Profile{
			AgeYears:      energyAge,
			Sex:           nutrition.Sex(energySex),
			WeightKg:      energyWeight,
			HeightCm:      energyHeight,
			ActivityLevel: nutrition.ActivityLevel(energyActivity),
		}
		bmr, err := nutrition.BMR(p)
		if err != nil {
			return err
		}
		tdee, err := nutrition.DailyEnergy(p)
		if err != nil {
			return err
		}
		targets, err := nutrition.TargetsFromCalories(float64(tdee), energySplit)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "BMR: %.2f kcal\n", bmr)
		fmt.Fprintf(w, "Activity factor: %.3f\n", nutrition.ActivityFactor(p.ActivityLevel))
		fmt.Fprintf(w, "Daily energy: %d kcal\n", tdee)
		fmt.Fprintf(w, "Targets: %s\n", formatVector(targets))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(energyCmd)
	energyCmd.Flags().IntVar(&energyAge, "age", 0, "Age in years")
	energyCmd.Flags().StringVar(&energySex, "sex", "", "male or female (anything else uses the female formula)")
	energyCmd.Flags().Float64Var(&energyWeight, "weight", 0, "Body weight (kg)")
	energyCmd.Flags().Float64Var(&energyHeight, "height", 0, "Height (cm)")
	energyCmd.Flags().StringVar(&energyActivity, "activity", string(nutrition.ActivitySedentary), "sedentary, light, moderate, active, very_active")
	energyCmd.Flags().Float64Var(&energySplit.Protein, "protein-pct", nutrition.DefaultMacroPercentages.Protein, "Protein share of energy (%)")
	energyCmd.Flags().Float64Var(&energySplit.Carbs, "carbs-pct", nutrition.DefaultMacroPercentages.Carbs, "Carbohydrate share of energy (%)")
	energyCmd.Flags().Float64Var(&energySplit.Fat, "fat-pct", nutrition.DefaultMacroPercentages.Fat, "Fat share of energy (%)")
	for _, f := range []string{"age", "sex", "weight", "height"} {
		_ = energyCmd.MarkFlagRequired(f)
	}
}
