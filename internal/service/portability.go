package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
)

// CatalogFormatVersion is bumped whenever the export layout changes.
const CatalogFormatVersion = 1

type ExportIngredient struct {
	Name               string           `json:"name"`
	Brand              string           `json:"brand,omitempty"`
	Barcode            string           `json:"barcode,omitempty"`
	ReferenceQuantityG float64          `json:"reference_quantity_g"`
	Reference          nutrition.Vector `json:"reference"`
	Source             string           `json:"source"`
	SourceRef          string           `json:"source_ref,omitempty"`
}

type ExportMealIngredient struct {
	Ingredient string  `json:"ingredient"`
	QuantityG  float64 `json:"quantity_g"`
}

// ExportMeal carries its aggregate for readers only. Imports rebuild it from
// the ingredient links.
type ExportMeal struct {
	Name         string                 `json:"name"`
	Type         string                 `json:"type"`
	Cuisine      string                 `json:"cuisine"`
	Description  string                 `json:"description,omitempty"`
	FinalWeightG float64                `json:"final_weight_g,omitempty"`
	Source       string                 `json:"source"`
	ImportRef    string                 `json:"import_ref,omitempty"`
	Aggregate    nutrition.Vector       `json:"aggregate"`
	Ingredients  []ExportMealIngredient `json:"ingredients"`
}

type CatalogExport struct {
	Version     int                `json:"version"`
	ExportedAt  time.Time          `json:"exported_at"`
	Ingredients []ExportIngredient `json:"ingredients"`
	Meals       []ExportMeal       `json:"meals"`
}

type ImportMode string

const (
	ImportModeFail    ImportMode = "fail"
	ImportModeSkip    ImportMode = "skip"
	ImportModeMerge   ImportMode = "merge"
	ImportModeReplace ImportMode = "replace"
)

type ImportOptions struct {
	Mode   ImportMode
	DryRun bool
}

type ImportReport struct {
	Inserted  int      `json:"inserted"`
	Updated   int      `json:"updated"`
	Skipped   int      `json:"skipped"`
	Conflicts int      `json:"conflicts"`
	Warnings  []string `json:"warnings,omitempty"`
}

var errDryRun = errors.New("dry run")

func ParseImportMode(raw string) (ImportMode, error) {
	mode := ImportMode(strings.ToLower(strings.TrimSpace(raw)))
	if mode == "" {
		return ImportModeMerge, nil
	}
	switch mode {
	case ImportModeFail, ImportModeSkip, ImportModeMerge, ImportModeReplace:
		return mode, nil
	}
	return "", fmt.Errorf("%w: unknown import mode %q (use fail|skip|merge|replace)", nutrition.ErrValidation, raw)
}

// ExportCatalog snapshots the ingredient catalog and every meal with its links.
// Plans and progress stay behind; they belong to a user, not the catalog.
func (s *Store) ExportCatalog(ctx context.Context) (*CatalogExport, error) {
	ings, err := s.ListIngredients(ctx, "")
	if err != nil {
		return nil, err
	}
	meals, err := s.ListMeals(ctx, "")
	if err != nil {
		return nil, err
	}
	out := &CatalogExport{
		Version:     CatalogFormatVersion,
		ExportedAt:  time.Now().UTC().Truncate(time.Second),
		Ingredients: make([]ExportIngredient, 0, len(ings)),
		Meals:       make([]ExportMeal, 0, len(meals)),
	}
	for _, ing := range ings {
		out.Ingredients = append(out.Ingredients, ExportIngredient{
			Name:               ing.Name,
			Brand:              ing.Brand,
			Barcode:            ing.Barcode,
			ReferenceQuantityG: ing.ReferenceQuantityG,
			Reference:          ing.Reference,
			Source:             ing.Source,
			SourceRef:          ing.SourceRef,
		})
	}
	for _, m := range meals {
		links, err := mealLinks(ctx, s.db, m.ID)
		if err != nil {
			return nil, err
		}
		em := ExportMeal{
			Name:         m.Name,
			Type:         m.Type,
			Cuisine:      m.Cuisine,
			Description:  m.Description,
			FinalWeightG: m.FinalWeightG,
			Source:       m.Source,
			ImportRef:    m.ImportRef,
			Aggregate:    m.Aggregate,
			Ingredients:  make([]ExportMealIngredient, 0, len(links)),
		}
		for _, l := range links {
			em.Ingredients = append(em.Ingredients, ExportMealIngredient{Ingredient: l.IngredientName, QuantityG: l.QuantityG})
		}
		out.Meals = append(out.Meals, em)
	}
	return out, nil
}

// ImportCatalog loads an export in one transaction. Ingredients match by
// normalized name, meals by name and type. Meal aggregates are always
// rescaled from the catalog, never copied from the file.
func (s *Store) ImportCatalog(ctx context.Context, data *CatalogExport, opts ImportOptions) (ImportReport, error) {
	report := ImportReport{}
	if data == nil {
		return report, fmt.Errorf("%w: catalog export is empty", nutrition.ErrValidation)
	}
	if data.Version != CatalogFormatVersion {
		return report, fmt.Errorf("%w: unsupported catalog version %d", nutrition.ErrValidation, data.Version)
	}
	mode := opts.Mode
	if mode == "" {
		mode = ImportModeMerge
	}
	touched := make([]int64, 0, len(data.Meals))

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if mode == ImportModeReplace {
			if err := clearCatalog(ctx, tx); err != nil {
				return err
			}
		}
		seen := map[string]bool{}
		for _, e := range data.Ingredients {
			key := normalizeName(e.Name)
			if seen[key] {
				report.Skipped++
				report.Warnings = append(report.Warnings, fmt.Sprintf("duplicate ingredient %q in file ignored", e.Name))
				continue
			}
			seen[key] = true
			if err := s.importIngredient(ctx, tx, e, mode, &report); err != nil {
				return err
			}
		}
		for _, m := range data.Meals {
			id, err := s.importMeal(ctx, tx, m, mode, &report)
			if err != nil {
				return err
			}
			if id > 0 {
				touched = append(touched, id)
			}
		}
		if opts.DryRun {
			return errDryRun
		}
		return nil
	})
	if errors.Is(err, errDryRun) {
		return report, nil
	}
	if err != nil {
		return report, err
	}
	if mode == ImportModeReplace {
		s.cache.Reset()
	}
	for _, id := range touched {
		s.cache.Invalidate(mealKey(id))
	}
	s.log.Info("catalog imported", "mode", mode, "inserted", report.Inserted, "updated", report.Updated, "skipped", report.Skipped)
	return report, nil
}

func (s *Store) importIngredient(ctx context.Context, tx *sql.Tx, e ExportIngredient, mode ImportMode, report *ImportReport) error {
	in := IngredientInput{
		Name:               e.Name,
		Brand:              e.Brand,
		Barcode:            e.Barcode,
		ReferenceQuantityG: e.ReferenceQuantityG,
		Reference:          e.Reference,
		Source:             e.Source,
		SourceRef:          e.SourceRef,
	}
	if err := s.validateIngredient(&in); err != nil {
		return fmt.Errorf("import ingredient %q: %w", e.Name, err)
	}
	existing, err := ingredientByName(ctx, tx, in.Name)
	if err != nil {
		return err
	}
	if existing == nil {
		if _, err := createIngredient(ctx, tx, in); err != nil {
			return err
		}
		report.Inserted++
		return nil
	}
	switch mode {
	case ImportModeFail:
		report.Conflicts++
		return fmt.Errorf("%w: ingredient %q already exists (id %d)", nutrition.ErrValidation, e.Name, existing.ID)
	case ImportModeMerge:
		if err := updateIngredient(ctx, tx, existing.ID, in); err != nil {
			return err
		}
		report.Updated++
	default:
		report.Skipped++
	}
	return nil
}

// importMeal returns the id of the meal it wrote, or 0 when it left the
// catalog untouched.
func (s *Store) importMeal(ctx context.Context, tx *sql.Tx, m ExportMeal, mode ImportMode, report *ImportReport) (int64, error) {
	in := MealInput{
		Name:        m.Name,
		Type:        m.Type,
		Cuisine:     m.Cuisine,
		Description: m.Description,
		Source:      m.Source,
		ImportRef:   m.ImportRef,
	}
	if err := normalizeMealInput(&in); err != nil {
		return 0, fmt.Errorf("import meal %q: %w", m.Name, err)
	}
	if m.FinalWeightG != 0 {
		if err := requireWeight(s.engine, "final weight", m.FinalWeightG); err != nil {
			return 0, fmt.Errorf("import meal %q: %w", m.Name, err)
		}
	}

	var existing int64
	err := tx.QueryRowContext(ctx, `SELECT id FROM meals WHERE lower(name) = lower(?) AND type = ? ORDER BY id LIMIT 1`,
		strings.TrimSpace(in.Name), in.Type).Scan(&existing)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("check existing meal %q: %w", m.Name, err)
	}

	mealID := existing
	switch {
	case existing == 0:
		if mealID, err = createMeal(ctx, tx, in); err != nil {
			return 0, err
		}
		report.Inserted++
	case mode == ImportModeFail:
		report.Conflicts++
		return 0, fmt.Errorf("%w: meal %q (%s) already exists (id %d)", nutrition.ErrValidation, m.Name, in.Type, existing)
	case mode == ImportModeMerge:
		if _, err := tx.ExecContext(ctx, `DELETE FROM meal_ingredients WHERE meal_id = ?`, existing); err != nil {
			return 0, fmt.Errorf("reset meal %d links: %w", existing, err)
		}
		if err := saveMealAggregate(ctx, tx, existing, nutrition.Zero()); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE meals SET cuisine = ?, description = ? WHERE id = ?`, in.Cuisine, strings.TrimSpace(in.Description), existing); err != nil {
			return 0, fmt.Errorf("update meal %d: %w", existing, err)
		}
		report.Updated++
	default:
		report.Skipped++
		return 0, nil
	}

	for _, l := range m.Ingredients {
		ing, err := ingredientByName(ctx, tx, l.Ingredient)
		if err != nil {
			return 0, err
		}
		if ing == nil {
			return 0, fmt.Errorf("import meal %q: %w", m.Name, notFound("ingredient", fmt.Sprintf("%q", l.Ingredient)))
		}
		if err := requireWeight(s.engine, "quantity", l.QuantityG); err != nil {
			return 0, fmt.Errorf("import meal %q: %w", m.Name, err)
		}
		if _, err := s.addMealLink(ctx, tx, mealID, ing.ID, l.QuantityG); err != nil {
			return 0, err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE meals SET final_weight_g = ? WHERE id = ?`, m.FinalWeightG, mealID); err != nil {
		return 0, fmt.Errorf("set meal %d final weight: %w", mealID, err)
	}

	rebuilt, err := mealByID(ctx, tx, mealID)
	if err != nil {
		return 0, err
	}
	if !m.Aggregate.IsZero() && !rebuilt.Aggregate.Equal(m.Aggregate.Round()) {
		report.Warnings = append(report.Warnings, fmt.Sprintf("meal %q recomputed from catalog: %.0f kcal in file, %.0f kcal now", m.Name, m.Aggregate.Calories, rebuilt.Aggregate.Calories))
	}
	return mealID, nil
}

// clearCatalog removes everything that hangs off the catalog. Plans go too
// since their daily links pin meals.
func clearCatalog(ctx context.Context, tx *sql.Tx) error {
	stmts := []string{
		`DELETE FROM plans`,
		`DELETE FROM meals`,
		`DELETE FROM ingredients`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear catalog for replace mode: %w", err)
		}
	}
	return nil
}
