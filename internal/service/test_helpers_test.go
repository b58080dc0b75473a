package service_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/db"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/service"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lifteat.db")
	sqldb, err := db.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.ApplyMigrations(sqldb); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return sqldb
}

func newTestStore(t *testing.T) *service.Store {
	t.Helper()
	sqldb := newTestDB(t)
	t.Cleanup(func() { sqldb.Close() })
	return service.NewStore(sqldb, nutrition.New(nutrition.Config{}), nil)
}

type fixture struct {
	oats, milk int64
	meal       int64
}

// oatsAndMilk creates oats (300 kcal, 50/10/5 per 100g), milk (64 kcal,
// 4.8/3.4/3.6 per 100g) and a meal of 80g oats with 200g milk.
func oatsAndMilk(t *testing.T, s *service.Store) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	var err error
	f.oats, err = s.CreateIngredient(ctx, service.IngredientInput{
		Name:      "Oats",
		Reference: nutrition.Vector{Calories: 300, CarbsG: 50, ProteinG: 10, FatG: 5},
	})
	if err != nil {
		t.Fatalf("create oats: %v", err)
	}
	f.milk, err = s.CreateIngredient(ctx, service.IngredientInput{
		Name:      "Milk",
		Reference: nutrition.Vector{Calories: 64, CarbsG: 4.8, ProteinG: 3.4, FatG: 3.6},
	})
	if err != nil {
		t.Fatalf("create milk: %v", err)
	}
	f.meal, err = s.CreateMeal(ctx, service.MealInput{Name: "Porridge", Type: "breakfast"})
	if err != nil {
		t.Fatalf("create meal: %v", err)
	}
	if _, err := s.AddMealIngredient(ctx, f.meal, f.oats, 80); err != nil {
		t.Fatalf("add oats: %v", err)
	}
	if _, err := s.AddMealIngredient(ctx, f.meal, f.milk, 200); err != nil {
		t.Fatalf("add milk: %v", err)
	}
	return f
}

func macros(carbs, protein, fat float64) nutrition.Vector {
	return nutrition.Vector{CarbsG: carbs, ProteinG: protein, FatG: fat}.WithCaloriesFromMacros()
}
