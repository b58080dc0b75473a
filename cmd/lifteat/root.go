package lifteat

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/app"
	"github.com/spf13/cobra"
)

var (
	dbPath   string
	logLevel string
	logger   *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lifteat",
	Short: "lifteat normalizes and aggregates meal nutrition from your terminal",
	Long:  "lifteat is a local-first nutrition engine: ingredient catalog, meals, weekly plans and daily progress with exact macro aggregation.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := app.LoadDotEnv(); err != nil {
			return err
		}
		level := logLevel
		if level == "" {
			level = app.ReadEnv().LogLevel
		}
		lvl, err := app.ParseLogLevel(level)
		if err != nil {
			return err
		}
		logger = app.NewLogger(cmd.ErrOrStderr(), lvl)
		return nil
	},
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to SQLite database (default $LIFTEAT_DB or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default $LIFTEAT_LOG_LEVEL or warn)")
}
