package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

const (
	ConfigCalorieTolerance = "calorie_tolerance"
	ConfigMinWeightG       = "min_weight_g"
	ConfigMaxCalories      = "max_calories"
	ConfigMaxMacroG        = "max_macro_g"
	ConfigOFFBaseURL       = "off_base_url"
	ConfigUSDAAPIKey       = "usda_api_key"
	ConfigUSDABaseURL      = "usda_base_url"
)

var numericConfigKeys = map[string]bool{
	ConfigCalorieTolerance: true,
	ConfigMinWeightG:       true,
	ConfigMaxCalories:      true,
	ConfigMaxMacroG:        true,
}

func SetConfig(db *sql.DB, key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return fmt.Errorf("config key is required")
	}
	value = strings.TrimSpace(value)
	if numericConfigKeys[key] {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f <= 0 {
			return fmt.Errorf("config %q must be a positive number, got %q", key, value)
		}
	}
	_, err := db.Exec(`
INSERT INTO app_config(key, value, updated_at)
VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, value)
	if err != nil {
		return fmt.Errorf("set config %q: %w", key, err)
	}
	return nil
}

func GetConfig(db *sql.DB, key string) (string, bool, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "", false, fmt.Errorf("config key is required")
	}
	var value string
	err := db.QueryRow(`SELECT value FROM app_config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get config %q: %w", key, err)
	}
	return value, true, nil
}

func ListConfig(db *sql.DB) (map[string]string, error) {
	rows, err := db.Query(`SELECT key, value FROM app_config ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list config: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate config: %w", err)
	}
	return out, nil
}

// LoadEngineConfig overlays persisted engine policy onto base.
func LoadEngineConfig(ctx context.Context, db *sql.DB, base nutrition.Config) (nutrition.Config, error) {
	if err := ctx.Err(); err != nil {
		return base, err
	}
	values, err := ListConfig(db)
	if err != nil {
		return base, err
	}
	cfg := base
	targets := map[string]*float64{
		ConfigCalorieTolerance: &cfg.CalorieTolerance,
		ConfigMinWeightG:       &cfg.MinWeightG,
		ConfigMaxCalories:      &cfg.MaxCalories,
		ConfigMaxMacroG:        &cfg.MaxMacroG,
	}
	for key, dst := range targets {
		raw, ok := values[key]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return base, fmt.Errorf("parse config %q: %w", key, err)
		}
		*dst = f
	}
	return cfg, nil
}
