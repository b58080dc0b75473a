package lifteat

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/app"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/model"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/provider/openfoodfacts"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/provider/usda"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/service"
	"github.com/spf13/cobra"
)

var ingredientCmd = &cobra.Command{
	Use:     "ingredient",
	Aliases: []string{"ing"},
	Short:   "Manage the ingredient catalog",
}

var (
	ingName    string
	ingBrand   string
	ingBarcode string
	ingRefQty  float64
	ingMacros  macroFlags
	ingUpdate  macroFlags
	ingJSON    bool
	ingSource  string
)

func ingredientInput(cmd *cobra.Command, m *macroFlags) service.IngredientInput {
	return service.IngredientInput{
		Name:               ingName,
		Brand:              ingBrand,
		Barcode:            ingBarcode,
		ReferenceQuantityG: ingRefQty,
		Reference:          m.vector(cmd),
	}
}

var ingredientAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add an ingredient with macros at a reference quantity (default 100g)",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := ingredientInput(cmd, &ingMacros)
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			id, err := s.CreateIngredient(ctx, in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created ingredient %d\n", id)
			return nil
		})
	},
}

var ingredientListCmd = &cobra.Command{
	Use:   "list [query]",
	Short: "List ingredients, optionally filtered by name or barcode",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			items, err := s.ListIngredients(ctx, query)
			if err != nil {
				return err
			}
			if ingJSON {
				return printJSON(cmd.OutOrStdout(), items)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ID\tNAME\tREF\tKCAL\tC\tP\tF\tSOURCE")
			for _, i := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%.1fg\t%.0f\t%.1f\t%.1f\t%.1f\t%s\n",
					i.ID, i.Name, i.ReferenceQuantityG, i.Reference.Calories, i.Reference.CarbsG, i.Reference.ProteinG, i.Reference.FatG, i.Source)
			}
			return nil
		})
	},
}

var ingredientShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show one ingredient",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			ing, err := s.ResolveIngredient(ctx, args[0])
			if err != nil {
				return err
			}
			if ingJSON {
				return printJSON(cmd.OutOrStdout(), ing)
			}
			printIngredient(cmd, ing)
			return nil
		})
	},
}

func printIngredient(cmd *cobra.Command, ing *model.Ingredient) {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Ingredient %d: %s\n", ing.ID, ing.Name)
	if ing.Brand != "" {
		fmt.Fprintf(w, "Brand: %s\n", ing.Brand)
	}
	if ing.Barcode != "" {
		fmt.Fprintf(w, "Barcode: %s\n", ing.Barcode)
	}
	fmt.Fprintf(w, "Per %.1fg: %s\n", ing.ReferenceQuantityG, formatVector(ing.Reference))
	fmt.Fprintf(w, "Source: %s", ing.Source)
	if ing.SourceRef != "" {
		fmt.Fprintf(w, " (%s)", ing.SourceRef)
	}
	fmt.Fprintln(w)
}

var ingredientUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace an ingredient's catalog values (existing meal links keep their values)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("ingredient id", args[0])
		if err != nil {
			return err
		}
		in := ingredientInput(cmd, &ingUpdate)
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			if err := s.UpdateIngredient(ctx, id, in); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated ingredient %d\n", id)
			return nil
		})
	},
}

var ingredientDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an ingredient not used by any meal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseInt64Arg("ingredient id", args[0])
		if err != nil {
			return err
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			if err := s.DeleteIngredient(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted ingredient %d\n", id)
			return nil
		})
	},
}

var ingredientImportCmd = &cobra.Command{
	Use:   "import <barcode>",
	Short: "Import a packaged product by barcode (Open Food Facts, USDA FoodData Central)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		barcode := strings.TrimSpace(args[0])
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			lookup, err := buildProductLookup(s.DB(), ingSource)
			if err != nil {
				return err
			}
			res, err := s.ImportProduct(ctx, lookup, barcode)
			if err != nil {
				return err
			}
			if ingJSON {
				return printJSON(cmd.OutOrStdout(), res)
			}
			source := "live"
			if res.Existing {
				source = "catalog"
			} else if res.FromCache {
				source = "cache"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Provider: %s (%s)\n", res.Provider, source)
			printIngredient(cmd, res.Ingredient)
			for _, w := range res.Warnings {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", w)
			}
			return nil
		})
	},
}

var ingredientCachePurgeCmd = &cobra.Command{
	Use:   "cache-purge [barcode]",
	Short: "Drop cached product lookups (all of them without a barcode)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		barcode := ""
		if len(args) == 1 {
			barcode = args[0]
		}
		return withStore(cmd, func(ctx context.Context, s *service.Store) error {
			n, err := s.PurgeProductCache(ctx, barcode)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cached product(s)\n", n)
			return nil
		})
	},
}

// buildProductLookup resolves --provider. auto asks USDA first when an API
// key is configured and falls back to Open Food Facts.
func buildProductLookup(sqldb *sql.DB, provider string) (service.ProductLookup, error) {
	env := app.ReadEnv()
	offBase, err := resolveSetting(sqldb, env.OFFBaseURL, service.ConfigOFFBaseURL, openfoodfacts.DefaultBaseURL)
	if err != nil {
		return nil, err
	}
	off := service.OpenFoodFactsLookup{Client: &openfoodfacts.Client{BaseURL: offBase}}

	key, err := resolveSetting(sqldb, env.USDAAPIKey, service.ConfigUSDAAPIKey, "")
	if err != nil {
		return nil, err
	}
	usdaBase, err := resolveSetting(sqldb, env.USDABaseURL, service.ConfigUSDABaseURL, usda.DefaultBaseURL)
	if err != nil {
		return nil, err
	}
	fdc := service.USDALookup{Client: &usda.Client{APIKey: key, BaseURL: usdaBase}}

	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", "auto":
		if key == "" {
			return off, nil
		}
		return service.FallbackLookup{fdc, off}, nil
	case "openfoodfacts", "off":
		return off, nil
	case "usda":
		if key == "" {
			return nil, fmt.Errorf("usda lookups need an API key (%s or config %s)", app.EnvUSDAAPIKey, service.ConfigUSDAAPIKey)
		}
		return fdc, nil
	default:
		return nil, fmt.Errorf("unknown --provider %q (use auto|openfoodfacts|usda)", provider)
	}
}

// resolveSetting prefers the environment over the persisted config.
func resolveSetting(sqldb *sql.DB, envValue, configKey, fallback string) (string, error) {
	if envValue != "" {
		return envValue, nil
	}
	value, ok, err := service.GetConfig(sqldb, configKey)
	if err != nil {
		return "", err
	}
	if !ok {
		return fallback, nil
	}
	return value, nil
}

func bindIngredientFields(cmd *cobra.Command, m *macroFlags) {
	cmd.Flags().StringVar(&ingName, "name", "", "Ingredient name")
	cmd.Flags().StringVar(&ingBrand, "brand", "", "Brand")
	cmd.Flags().StringVar(&ingBarcode, "barcode", "", "Barcode")
	cmd.Flags().Float64Var(&ingRefQty, "ref-qty", 0, "Reference quantity in grams the macros are given for (default 100)")
	m.bind(cmd)
}

func init() {
	rootCmd.AddCommand(ingredientCmd)
	ingredientCmd.AddCommand(ingredientAddCmd, ingredientListCmd, ingredientShowCmd, ingredientUpdateCmd,
		ingredientDeleteCmd, ingredientImportCmd, ingredientCachePurgeCmd)

	bindIngredientFields(ingredientAddCmd, &ingMacros)
	bindIngredientFields(ingredientUpdateCmd, &ingUpdate)
	for _, c := range []*cobra.Command{ingredientListCmd, ingredientShowCmd, ingredientImportCmd} {
		c.Flags().BoolVar(&ingJSON, "json", false, "Output JSON")
	}
	ingredientImportCmd.Flags().StringVar(&ingSource, "provider", "auto", "Lookup provider: auto|openfoodfacts|usda")
	_ = ingredientAddCmd.MarkFlagRequired("name")
	_ = ingredientUpdateCmd.MarkFlagRequired("name")
}
