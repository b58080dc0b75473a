package app

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "LIFTEAT_LOG_LEVEL=debug\nLIFTEAT_OFF_BASE_URL=http://localhost:8080\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv(EnvLogLevel, "error")
	t.Setenv(EnvOFFBaseURL, "")
	os.Unsetenv(EnvOFFBaseURL)

	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("load env: %v", err)
	}
	env := ReadEnv()
	if env.LogLevel != "error" {
		t.Fatalf("expected process value to win, got %q", env.LogLevel)
	}
	if env.OFFBaseURL != "http://localhost:8080" {
		t.Fatalf("expected value from file, got %q", env.OFFBaseURL)
	}
}

func TestDefaultDBPathFromEnv(t *testing.T) {
	want := filepath.Join(t.TempDir(), "custom.db")
	t.Setenv(EnvDB, want)
	got, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("default db path: %v", err)
	}
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":        slog.LevelWarn,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range cases {
		got, err := ParseLogLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Fatalf("expected invalid level error")
	}
}

func TestNewLoggerFiltersByLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	log := NewLogger(buf, slog.LevelWarn)
	log.Info("hidden")
	log.Warn("shown", "meal_id", 7)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "meal_id=7") {
		t.Fatalf("unexpected log output %q", out)
	}
}
