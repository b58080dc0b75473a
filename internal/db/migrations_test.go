package db_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/db"
)

func TestApplyMigrationsIdempotent(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "lifteat.db")
	sqldb, err := db.Open(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer sqldb.Close()

	if err := db.ApplyMigrations(sqldb); err != nil {
		t.Fatalf("first apply migrations: %v", err)
	}
	if err := db.ApplyMigrations(sqldb); err != nil {
		t.Fatalf("second apply migrations: %v", err)
	}

	version, err := db.SchemaVersion(sqldb)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 3 {
		t.Fatalf("expected schema version 3, got %d", version)
	}

	for _, table := range []string{
		"ingredients", "meals", "meal_ingredients", "plans", "daily_plans",
		"daily_plan_meals", "daily_progress", "daily_meal_progress", "app_config", "product_cache",
	} {
		var count int
		if err := sqldb.QueryRow(`SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count); err != nil {
			t.Fatalf("check %s table: %v", table, err)
		}
		if count != 1 {
			t.Fatalf("expected %s table to exist", table)
		}
	}

	var sugarCol int
	if err := sqldb.QueryRow(`SELECT COUNT(1) FROM pragma_table_info('meal_ingredients') WHERE name = 'sugar_g' AND "notnull" = 0`).Scan(&sugarCol); err != nil {
		t.Fatalf("check sugar column: %v", err)
	}
	if sugarCol != 1 {
		t.Fatalf("expected nullable sugar_g column on meal_ingredients")
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected db file to exist: %v", err)
	}
}

func TestForeignKeysRejectOrphanLinks(t *testing.T) {
	t.Parallel()

	sqldb, err := db.Open(filepath.Join(t.TempDir(), "lifteat.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer sqldb.Close()
	if err := db.ApplyMigrations(sqldb); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	_, err = sqldb.Exec(`
INSERT INTO meal_ingredients(meal_id, ingredient_id, quantity_g, calories, carbs_g, protein_g, fat_g)
VALUES(42, 42, 100, 0, 0, 0, 0)`)
	if err == nil {
		t.Fatalf("expected foreign key violation for orphan link")
	}
}

func TestSchemaVersionOnFreshDatabase(t *testing.T) {
	t.Parallel()

	sqldb, err := db.Open(filepath.Join(t.TempDir(), "fresh.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer sqldb.Close()
	if version, err := db.SchemaVersion(sqldb); err != nil || version != 0 {
		t.Fatalf("expected version 0 before any migration table, got %d (%v)", version, err)
	}
	if _, err := sqldb.Exec(`CREATE TABLE schema_migrations (version INTEGER PRIMARY KEY, name TEXT NOT NULL)`); err != nil {
		t.Fatalf("create schema_migrations: %v", err)
	}
	version, err := db.SchemaVersion(sqldb)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected version 0, got %d", version)
	}
}
