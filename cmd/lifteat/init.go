package lifteat

import (
	"context"
	"fmt"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/app"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/db"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/service"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or upgrade the local lifteat database and show the engine policy",
	RunE: func(cmd *cobra.Command, args []string) error {
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

		before, err := db.SchemaVersion(sqldb)
		if err != nil {
			return err
		}
		if err := db.ApplyMigrations(sqldb); err != nil {
			return err
		}
		after, err := db.SchemaVersion(sqldb)
		if err != nil {
			return err
		}
		logger.Info("database ready", "path", path, "from", before, "to", after)

		w := cmd.OutOrStdout()
		switch {
		case before == 0:
			fmt.Fprintf(w, "Initialized lifteat database at %s (schema v%d)\n", path, after)
		case before < after:
			fmt.Fprintf(w, "Upgraded lifteat database at %s from schema v%d to v%d\n", path, before, after)
		default:
			fmt.Fprintf(w, "Database at %s is up to date (schema v%d)\n", path, after)
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		cfg, err := service.LoadEngineConfig(ctx, sqldb, nutrition.Config{})
		if err != nil {
			return err
		}
		cfg = nutrition.New(cfg).Config()
		fmt.Fprintf(w, "Engine policy: max %.0f kcal, max %.0fg per macro, min weight %vg, calorie tolerance %.0f%%\n",
			cfg.MaxCalories, cfg.MaxMacroG, cfg.MinWeightG, cfg.CalorieTolerance*100)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func resolveDBPath() (string, error) {
	if dbPath != "" {
		return dbPath, nil
	}
	return app.DefaultDBPath()
}
