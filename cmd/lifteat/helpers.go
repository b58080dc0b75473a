package lifteat

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/app"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/db"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/service"
	"github.com/spf13/cobra"
)

func withDB(run func(*sql.DB) error) error {
	path, err := resolveDBPath()
	if err != nil {
		return err
	}
	if err := app.EnsureDBDir(path); err != nil {
		return err
	}
	sqldb, err := db.Open(path)
	if err != nil {
		return err
	}
	defer sqldb.Close()

	if err := db.ApplyMigrations(sqldb); err != nil {
		return err
	}
	return run(sqldb)
}

// withStore opens the database and builds a store whose engine carries the
// persisted policy from app_config.
func withStore(cmd *cobra.Command, run func(context.Context, *service.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return withDB(func(sqldb *sql.DB) error {
		cfg, err := service.LoadEngineConfig(ctx, sqldb, nutrition.Config{Logger: logger})
		if err != nil {
			return err
		}
		return run(ctx, service.NewStore(sqldb, nutrition.New(cfg), logger))
	})
}

func parseInt64Arg(name, value string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be > 0", name)
	}
	return v, nil
}

func parseGramsArg(name, value string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, value)
	}
	return v, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Fprintln(w, string(b))
	return nil
}

// formatVector renders grams the way the app shows them: one decimal and
// "< 1" for traces.
func formatVector(v nutrition.Vector) string {
	g := func(x float64) string { return nutrition.FormatForUI(x, 1) }
	out := fmt.Sprintf("%.0f kcal\tC %sg\tP %sg\tF %sg", v.Calories, g(v.CarbsG), g(v.ProteinG), g(v.FatG))
	if v.SugarG != nil {
		out += fmt.Sprintf("\tS %sg", g(*v.SugarG))
	}
	return out
}

// macroFlags binds the common --calories/--carbs/--protein/--fat/--sugar set.
type macroFlags struct {
	calories, carbs, protein, fat, sugar float64
}

func (m *macroFlags) bind(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&m.calories, "calories", 0, "Calories (kcal)")
	cmd.Flags().Float64Var(&m.carbs, "carbs", 0, "Carbohydrates (g)")
	cmd.Flags().Float64Var(&m.protein, "protein", 0, "Protein (g)")
	cmd.Flags().Float64Var(&m.fat, "fat", 0, "Fat (g)")
	cmd.Flags().Float64Var(&m.sugar, "sugar", 0, "Sugar (g), optional")
}

func (m *macroFlags) vector(cmd *cobra.Command) nutrition.Vector {
	v := nutrition.Vector{Calories: m.calories, CarbsG: m.carbs, ProteinG: m.protein, FatG: m.fat, Unit: nutrition.UnitGram}
	if cmd.Flags().Changed("sugar") {
		v.SugarG = nutrition.Float(m.sugar)
	}
	return v
}
