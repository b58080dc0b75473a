package lifteat

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/service"
	"github.com/spf13/cobra"
)

var (
	exportFormat string
	exportOut    string
	importIn     string
	importMode   string
	importDryRun bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the ingredient and meal catalog (json, or csv for ingredients)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(exportOut) == "" {
			return fmt.Errorf("--out is required")
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			data, err := s.ExportCatalog(ctx)
			if err != nil {
				return err
			}
			switch strings.ToLower(strings.TrimSpace(exportFormat)) {
			case "json":
				b, err := json.MarshalIndent(data, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal export json: %w", err)
				}
				if err := os.WriteFile(exportOut, b, 0o644); err != nil {
					return fmt.Errorf("write export file: %w", err)
				}
			case "csv":
				if err := writeIngredientCSV(exportOut, data.Ingredients); err != nil {
					return err
				}
			default:
				return fmt.Errorf("unsupported --format %q (use json or csv)", exportFormat)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d ingredients and %d meals to %s\n", len(data.Ingredients), len(data.Meals), exportOut)
			return nil
		})
	},
}

func writeIngredientCSV(path string, items []service.ExportIngredient) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export csv: %w", err)
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write([]string{"name", "brand", "barcode", "reference_qty_g", "calories", "carbs_g", "protein_g", "fat_g", "sugar_g", "source", "source_ref"}); err != nil {
		return fmt.Errorf("write export csv header: %w", err)
	}
	ff := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, ing := range items {
		sugar := ""
		if ing.Reference.SugarG != nil {
			sugar = ff(*ing.Reference.SugarG)
		}
		record := []string{
			ing.Name,
			ing.Brand,
			ing.Barcode,
			ff(ing.ReferenceQuantityG),
			ff(ing.Reference.Calories),
			ff(ing.Reference.CarbsG),
			ff(ing.Reference.ProteinG),
			ff(ing.Reference.FatG),
			sugar,
			ing.Source,
			ing.SourceRef,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write export csv row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a catalog export (json)",
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(importIn) == "" {
			return fmt.Errorf("--in is required")
		}
		mode, err := service.ParseImportMode(importMode)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(importIn)
		if err != nil {
			return fmt.Errorf("read import file: %w", err)
		}
		var payload service.CatalogExport
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("parse import json: %w", err)
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			report, err := s.ImportCatalog(ctx, &payload, service.ImportOptions{Mode: mode, DryRun: importDryRun})
			if err != nil {
				return err
			}
			prefix := "Import report"
			if importDryRun {
				prefix = "Dry run"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: inserted=%d updated=%d skipped=%d conflicts=%d\n", prefix, report.Inserted, report.Updated, report.Skipped, report.Conflicts)
			for _, w := range report.Warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
			}
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)

	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "Export format: json|csv")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "Output file path")
	importCmd.Flags().StringVar(&importIn, "in", "", "Input file path")
	importCmd.Flags().StringVar(&importMode, "mode", "merge", "Conflict mode: fail|skip|merge|replace")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate and report without writing")
}
