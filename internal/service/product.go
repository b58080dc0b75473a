package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/ingest"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/model"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/nutrition"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/provider/openfoodfacts"
	"github.com/NibrasoftNet/lift-eat-mobile-sub003/internal/provider/usda"
)

const (
	defaultProductTTL    = 30 * 24 * time.Hour
	productLookupTimeout = 15 * time.Second
)

var barcodePattern = regexp.MustCompile(`^\d{8,14}$`)

// ProductLookup fetches per-100g product facts by barcode. The raw response
// is kept in the product cache when it is valid JSON.
type ProductLookup interface {
	LookupProduct(ctx context.Context, barcode string) (ingest.ProductFacts, []byte, error)
}

// OpenFoodFactsLookup adapts the Open Food Facts client to ProductLookup.
type OpenFoodFactsLookup struct {
	Client *openfoodfacts.Client
}

func (l OpenFoodFactsLookup) Provider() string { return "openfoodfacts" }

func (l OpenFoodFactsLookup) LookupProduct(ctx context.Context, barcode string) (ingest.ProductFacts, []byte, error) {
	client := l.Client
	if client == nil {
		client = &openfoodfacts.Client{}
	}
	p, raw, err := client.LookupProduct(ctx, barcode)
	if err != nil {
		return ingest.ProductFacts{}, raw, err
	}
	return ingest.ProductFacts{
		Provider:       l.Provider(),
		Barcode:        p.Code,
		Name:           p.Name,
		Brand:          p.Brand,
		EnergyKcal100g: p.EnergyKcal,
		EnergyKJ100g:   p.EnergyKJ,
		Carbs100g:      p.Carbohydrates,
		Proteins100g:   p.Proteins,
		Fat100g:        p.Fat,
		Sugars100g:     p.Sugars,
	}, raw, nil
}

// USDALookup adapts the FoodData Central branded search to ProductLookup.
type USDALookup struct {
	Client *usda.Client
}

func (l USDALookup) Provider() string { return "usda" }

func (l USDALookup) LookupProduct(ctx context.Context, barcode string) (ingest.ProductFacts, []byte, error) {
	if l.Client == nil {
		return ingest.ProductFacts{}, nil, errors.New("usda client is not configured")
	}
	f, raw, err := l.Client.LookupBarcode(ctx, barcode)
	if err != nil {
		return ingest.ProductFacts{}, raw, err
	}
	return ingest.ProductFacts{
		Provider:       l.Provider(),
		Barcode:        barcode,
		Name:           f.Description,
		Brand:          f.Brand,
		EnergyKcal100g: f.EnergyKcal,
		EnergyKJ100g:   f.EnergyKJ,
		Carbs100g:      f.Carbohydrates,
		Proteins100g:   f.Proteins,
		Fat100g:        f.Fat,
		Sugars100g:     f.Sugars,
	}, raw, nil
}

// FallbackLookup asks each lookup in order and returns the first answer.
type FallbackLookup []ProductLookup

func (f FallbackLookup) Provider() string {
	names := make([]string, 0, len(f))
	for _, l := range f {
		names = append(names, providerName(l))
	}
	return strings.Join(names, ",")
}

func (f FallbackLookup) LookupProduct(ctx context.Context, barcode string) (ingest.ProductFacts, []byte, error) {
	if len(f) == 0 {
		return ingest.ProductFacts{}, nil, errors.New("no lookup providers configured")
	}
	errs := make([]string, 0, len(f))
	for _, l := range f {
		facts, raw, err := l.LookupProduct(ctx, barcode)
		if err == nil {
			if facts.Provider == "" {
				facts.Provider = providerName(l)
			}
			return facts, raw, nil
		}
		if ctx.Err() != nil {
			return ingest.ProductFacts{}, nil, ctx.Err()
		}
		errs = append(errs, fmt.Sprintf("%s: %v", providerName(l), err))
	}
	return ingest.ProductFacts{}, nil, fmt.Errorf("lookup failed for %q across providers [%s]", barcode, strings.Join(errs, "; "))
}

type ProductImport struct {
	Ingredient *model.Ingredient `json:"ingredient"`
	Provider   string            `json:"provider"`
	FromCache  bool              `json:"from_cache"`
	Existing   bool              `json:"existing"`
	Warnings   []string          `json:"warnings,omitempty"`
}

func providerName(lookup ProductLookup) string {
	if p, ok := lookup.(interface{ Provider() string }); ok {
		return p.Provider()
	}
	return "custom"
}

// ImportProduct adds a product to the catalog by barcode. A barcode already
// in the catalog is returned as is; otherwise cached facts are used while
// fresh and the lookup is called only on a miss.
func (s *Store) ImportProduct(ctx context.Context, lookup ProductLookup, barcode string) (*ProductImport, error) {
	barcode = strings.TrimSpace(barcode)
	if !barcodePattern.MatchString(barcode) {
		return nil, fmt.Errorf("%w: barcode must be 8 to 14 digits, got %q", nutrition.ErrValidation, barcode)
	}
	if lookup == nil {
		return nil, errors.New("product lookup is not configured")
	}
	provider := providerName(lookup)
	out := &ProductImport{Provider: provider}

	existing, err := s.ListIngredients(ctx, barcode)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Barcode == barcode {
			out.Ingredient = &existing[i]
			out.Existing = true
			return out, nil
		}
	}

	facts, found, err := s.cachedProduct(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if found {
		out.FromCache = true
		if facts.Provider != "" {
			provider = facts.Provider
		}
	} else {
		lookupCtx, cancel := context.WithTimeout(ctx, productLookupTimeout)
		var raw []byte
		facts, raw, err = lookup.LookupProduct(lookupCtx, barcode)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("lookup product %s via %s: %w", barcode, provider, err)
		}
		if facts.Barcode == "" {
			facts.Barcode = barcode
		}
		if facts.Provider == "" {
			facts.Provider = provider
		}
		provider = facts.Provider
		if err := s.cacheProduct(ctx, provider, barcode, facts, raw); err != nil {
			return nil, err
		}
	}

	out.Provider = provider
	ing, err := ingest.IngredientFromProduct(s.engine, facts)
	if err != nil {
		return nil, fmt.Errorf("import product %s: %w", barcode, err)
	}
	id, err := s.CreateIngredient(ctx, IngredientInput{
		Name:               ing.Name,
		Brand:              ing.Brand,
		Barcode:            barcode,
		ReferenceQuantityG: ing.ReferenceQuantityG,
		Reference:          ing.Reference,
		Source:             model.SourceProduct,
		SourceRef:          provider + ":" + barcode,
	})
	if err != nil {
		return nil, err
	}
	out.Ingredient, err = s.IngredientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out.Warnings = ing.Warnings
	s.log.Info("product imported", "barcode", barcode, "provider", provider, "from_cache", out.FromCache, "ingredient_id", id)
	return out, nil
}

func (s *Store) cachedProduct(ctx context.Context, barcode string) (ingest.ProductFacts, bool, error) {
	var factsRaw, expiresAtRaw string
	err := s.db.QueryRowContext(ctx, `SELECT facts_json, expires_at FROM product_cache WHERE barcode = ?`, barcode).Scan(&factsRaw, &expiresAtRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return ingest.ProductFacts{}, false, nil
	}
	if err != nil {
		return ingest.ProductFacts{}, false, fmt.Errorf("lookup product cache: %w", err)
	}
	expiresAt, err := time.Parse(time.RFC3339, expiresAtRaw)
	if err != nil {
		return ingest.ProductFacts{}, false, fmt.Errorf("parse product cache expiry: %w", err)
	}
	if time.Now().After(expiresAt) {
		return ingest.ProductFacts{}, false, nil
	}
	var facts ingest.ProductFacts
	if err := json.Unmarshal([]byte(factsRaw), &facts); err != nil {
		return ingest.ProductFacts{}, false, fmt.Errorf("decode product cache facts: %w", err)
	}
	return facts, true, nil
}

func (s *Store) cacheProduct(ctx context.Context, provider, barcode string, facts ingest.ProductFacts, raw []byte) error {
	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("encode product facts: %w", err)
	}
	rawStr := ""
	if json.Valid(raw) {
		rawStr = string(raw)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
INSERT INTO product_cache(barcode, provider, facts_json, raw_json, fetched_at, expires_at)
VALUES(?, ?, ?, ?, ?, ?)
ON CONFLICT(barcode) DO UPDATE SET
  provider=excluded.provider,
  facts_json=excluded.facts_json,
  raw_json=excluded.raw_json,
  fetched_at=excluded.fetched_at,
  expires_at=excluded.expires_at
`, barcode, provider, string(factsJSON), rawStr, now.Format(time.RFC3339), now.Add(defaultProductTTL).Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("upsert product cache: %w", err)
	}
	return nil
}

// PurgeProductCache deletes one cached barcode, or every row when barcode is empty.
func (s *Store) PurgeProductCache(ctx context.Context, barcode string) (int64, error) {
	barcode = strings.TrimSpace(barcode)
	res, err := s.db.ExecContext(ctx, `DELETE FROM product_cache WHERE ? = '' OR barcode = ?`, barcode, barcode)
	if err != nil {
		return 0, fmt.Errorf("purge product cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge product cache rows affected: %w", err)
	}
	return n, nil
}
