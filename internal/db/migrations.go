package db

import (
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	name    string
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		name:    "initial_schema",
		sql: `
CREATE TABLE IF NOT EXISTS ingredients (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  name_norm TEXT NOT NULL,
  brand TEXT NOT NULL DEFAULT '',
  barcode TEXT NOT NULL DEFAULT '',
  reference_qty_g REAL NOT NULL CHECK(reference_qty_g > 0),
  calories REAL NOT NULL CHECK(calories >= 0),
  carbs_g REAL NOT NULL CHECK(carbs_g >= 0),
  protein_g REAL NOT NULL CHECK(protein_g >= 0),
  fat_g REAL NOT NULL CHECK(fat_g >= 0),
  sugar_g REAL CHECK(sugar_g >= 0),
  unit TEXT NOT NULL DEFAULT 'g',
  source TEXT NOT NULL DEFAULT 'manual',
  source_ref TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_ingredients_name_norm ON ingredients(name_norm);
CREATE INDEX IF NOT EXISTS idx_ingredients_barcode ON ingredients(barcode);

CREATE TABLE IF NOT EXISTS meals (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  type TEXT NOT NULL DEFAULT 'breakfast',
  cuisine TEXT NOT NULL DEFAULT 'general',
  description TEXT NOT NULL DEFAULT '',
  total_weight_g REAL NOT NULL DEFAULT 0 CHECK(total_weight_g >= 0),
  final_weight_g REAL NOT NULL DEFAULT 0 CHECK(final_weight_g >= 0),
  calories REAL NOT NULL DEFAULT 0 CHECK(calories >= 0),
  carbs_g REAL NOT NULL DEFAULT 0 CHECK(carbs_g >= 0),
  protein_g REAL NOT NULL DEFAULT 0 CHECK(protein_g >= 0),
  fat_g REAL NOT NULL DEFAULT 0 CHECK(fat_g >= 0),
  sugar_g REAL,
  source TEXT NOT NULL DEFAULT 'manual',
  import_ref TEXT NOT NULL DEFAULT '',
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS meal_ingredients (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  meal_id INTEGER NOT NULL,
  ingredient_id INTEGER NOT NULL,
  quantity_g REAL NOT NULL CHECK(quantity_g > 0),
  calories REAL NOT NULL CHECK(calories >= 0),
  carbs_g REAL NOT NULL CHECK(carbs_g >= 0),
  protein_g REAL NOT NULL CHECK(protein_g >= 0),
  fat_g REAL NOT NULL CHECK(fat_g >= 0),
  sugar_g REAL,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(meal_id) REFERENCES meals(id) ON DELETE CASCADE,
  FOREIGN KEY(ingredient_id) REFERENCES ingredients(id) ON DELETE RESTRICT
);

CREATE INDEX IF NOT EXISTS idx_meal_ingredients_meal_id ON meal_ingredients(meal_id);
CREATE INDEX IF NOT EXISTS idx_meal_ingredients_ingredient_id ON meal_ingredients(ingredient_id);

CREATE TABLE IF NOT EXISTS plans (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  name TEXT NOT NULL,
  goal_kind TEXT NOT NULL DEFAULT 'maintain',
  target_calories REAL NOT NULL DEFAULT 0 CHECK(target_calories >= 0),
  target_carbs_g REAL NOT NULL DEFAULT 0 CHECK(target_carbs_g >= 0),
  target_protein_g REAL NOT NULL DEFAULT 0 CHECK(target_protein_g >= 0),
  target_fat_g REAL NOT NULL DEFAULT 0 CHECK(target_fat_g >= 0),
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS daily_plans (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  plan_id INTEGER NOT NULL,
  week INTEGER NOT NULL CHECK(week > 0),
  day TEXT NOT NULL,
  total_weight_g REAL NOT NULL DEFAULT 0 CHECK(total_weight_g >= 0),
  calories REAL NOT NULL DEFAULT 0 CHECK(calories >= 0),
  carbs_g REAL NOT NULL DEFAULT 0 CHECK(carbs_g >= 0),
  protein_g REAL NOT NULL DEFAULT 0 CHECK(protein_g >= 0),
  fat_g REAL NOT NULL DEFAULT 0 CHECK(fat_g >= 0),
  sugar_g REAL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(plan_id) REFERENCES plans(id) ON DELETE CASCADE,
  UNIQUE(plan_id, week, day)
);

CREATE TABLE IF NOT EXISTS daily_plan_meals (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  daily_plan_id INTEGER NOT NULL,
  meal_id INTEGER NOT NULL,
  meal_type TEXT NOT NULL,
  quantity_g REAL NOT NULL CHECK(quantity_g > 0),
  calories REAL NOT NULL CHECK(calories >= 0),
  carbs_g REAL NOT NULL CHECK(carbs_g >= 0),
  protein_g REAL NOT NULL CHECK(protein_g >= 0),
  fat_g REAL NOT NULL CHECK(fat_g >= 0),
  sugar_g REAL,
  FOREIGN KEY(daily_plan_id) REFERENCES daily_plans(id) ON DELETE CASCADE,
  FOREIGN KEY(meal_id) REFERENCES meals(id) ON DELETE RESTRICT
);

CREATE INDEX IF NOT EXISTS idx_daily_plan_meals_daily_plan_id ON daily_plan_meals(daily_plan_id);

CREATE TABLE IF NOT EXISTS daily_progress (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  plan_id INTEGER NOT NULL,
  date TEXT NOT NULL,
  calories REAL NOT NULL DEFAULT 0 CHECK(calories >= 0),
  carbs_g REAL NOT NULL DEFAULT 0 CHECK(carbs_g >= 0),
  protein_g REAL NOT NULL DEFAULT 0 CHECK(protein_g >= 0),
  fat_g REAL NOT NULL DEFAULT 0 CHECK(fat_g >= 0),
  sugar_g REAL,
  percentage_completion REAL NOT NULL DEFAULT 0,
  created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(plan_id) REFERENCES plans(id) ON DELETE CASCADE,
  UNIQUE(user_id, plan_id, date)
);

CREATE TABLE IF NOT EXISTS daily_meal_progress (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  daily_progress_id INTEGER NOT NULL,
  meal_id INTEGER NOT NULL,
  daily_plan_meal_id INTEGER NOT NULL,
  consumed INTEGER NOT NULL DEFAULT 0,
  percentage_consumed REAL NOT NULL DEFAULT 100 CHECK(percentage_consumed >= 0 AND percentage_consumed <= 100),
  calories REAL NOT NULL DEFAULT 0 CHECK(calories >= 0),
  carbs_g REAL NOT NULL DEFAULT 0 CHECK(carbs_g >= 0),
  protein_g REAL NOT NULL DEFAULT 0 CHECK(protein_g >= 0),
  fat_g REAL NOT NULL DEFAULT 0 CHECK(fat_g >= 0),
  sugar_g REAL,
  FOREIGN KEY(daily_progress_id) REFERENCES daily_progress(id) ON DELETE CASCADE,
  FOREIGN KEY(daily_plan_meal_id) REFERENCES daily_plan_meals(id) ON DELETE CASCADE,
  UNIQUE(daily_progress_id, daily_plan_meal_id)
);

CREATE INDEX IF NOT EXISTS idx_daily_meal_progress_dpm ON daily_meal_progress(daily_plan_meal_id);
`,
	},
	{
		version: 2,
		name:    "app_config",
		sql: `
CREATE TABLE IF NOT EXISTS app_config (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`,
	},
	{
		version: 3,
		name:    "product_cache",
		sql: `
CREATE TABLE IF NOT EXISTS product_cache (
  barcode TEXT PRIMARY KEY,
  provider TEXT NOT NULL,
  facts_json TEXT NOT NULL,
  raw_json TEXT NOT NULL DEFAULT '',
  fetched_at DATETIME NOT NULL,
  expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_product_cache_expires_at ON product_cache(expires_at);
`,
	},
}

func ApplyMigrations(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  version INTEGER PRIMARY KEY,
  name TEXT NOT NULL,
  applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists int
		err := db.QueryRow(`SELECT 1 FROM schema_migrations WHERE version = ?`, m.version).Scan(&exists)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return fmt.Errorf("check migration version %d: %w", m.version, err)
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration version %d (%s): %w", m.version, m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version, name) VALUES(?, ?)`, m.version, m.name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration version %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration version %d: %w", m.version, err)
		}
	}
	return nil
}

// SchemaVersion reports the highest applied migration, 0 for a fresh database.
// SchemaVersion returns the highest applied migration, or 0 for a database
// that has never been migrated.
func SchemaVersion(db *sql.DB) (int, error) {
	var tables int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_migrations'`).Scan(&tables); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}
	var v sql.NullInt64
	if err := db.QueryRow(`SELECT MAX(version) FROM schema_migrations`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}
