package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	EnvDB          = "LIFTEAT_DB"
	EnvLogLevel    = "LIFTEAT_LOG_LEVEL"
	EnvOFFBaseURL  = "LIFTEAT_OFF_BASE_URL"
	EnvUSDAAPIKey  = "LIFTEAT_USDA_API_KEY"
	EnvUSDABaseURL = "LIFTEAT_USDA_BASE_URL"
)

// LoadDotEnv reads KEY=VALUE pairs from the given files (default ".env")
// into the process environment. Variables already set win, and a missing
// file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}
	return nil
}

type Env struct {
	DBPath      string
	LogLevel    string
	OFFBaseURL  string
	USDAAPIKey  string
	USDABaseURL string
}

func ReadEnv() Env {
	return Env{
		DBPath:      strings.TrimSpace(os.Getenv(EnvDB)),
		LogLevel:    strings.TrimSpace(os.Getenv(EnvLogLevel)),
		OFFBaseURL:  strings.TrimSpace(os.Getenv(EnvOFFBaseURL)),
		USDAAPIKey:  strings.TrimSpace(os.Getenv(EnvUSDAAPIKey)),
		USDABaseURL: strings.TrimSpace(os.Getenv(EnvUSDABaseURL)),
	}
}

// ParseLogLevel accepts debug, info, warn/warning and error. Empty means warn.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return slog.LevelWarn, nil
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelWarn, fmt.Errorf("invalid log level %q (expected debug, info, warn or error)", s)
	}
}

func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
