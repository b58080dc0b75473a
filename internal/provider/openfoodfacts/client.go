package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://world.openfoodfacts.org"
	userAgent      = "lifteat/1.0 (nutrition engine)"
)

// Product holds the per-100g facts of a product. Nil values were absent
// from the response.
type Product struct {
	Code          string
	Name          string
	Brand         string
	EnergyKcal    *float64
	EnergyKJ      *float64
	Carbohydrates *float64
	Proteins      *float64
	Fat           *float64
	Sugars        *float64
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// LookupProduct fetches one product by barcode. The raw body is returned
// alongside for caching, also on decode failures.
func (c *Client) LookupProduct(ctx context.Context, barcode string) (Product, []byte, error) {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}
	url := fmt.Sprintf("%s/api/v2/product/%s.json", base, barcode)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Product{}, nil, fmt.Errorf("create openfoodfacts request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := httpClient.Do(req)
	if err != nil {
		return Product{}, nil, fmt.Errorf("execute openfoodfacts request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Product{}, nil, fmt.Errorf("read openfoodfacts response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Product{}, body, fmt.Errorf("openfoodfacts request failed with status %d", resp.StatusCode)
	}

	var parsed offResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Product{}, body, fmt.Errorf("decode openfoodfacts response: %w", err)
	}
	if parsed.Status != 1 {
		return Product{}, body, fmt.Errorf("no openfoodfacts product found for barcode %q", barcode)
	}

	p := parsed.Product
	code := strings.TrimSpace(p.Code)
	if code == "" {
		code = barcode
	}
	return Product{
		Code:          code,
		Name:          strings.TrimSpace(p.ProductName),
		Brand:         firstBrand(p.Brands),
		EnergyKcal:    per100g(p.Nutriments, "energy-kcal"),
		EnergyKJ:      per100g(p.Nutriments, "energy-kj"),
		Carbohydrates: per100g(p.Nutriments, "carbohydrates"),
		Proteins:      per100g(p.Nutriments, "proteins"),
		Fat:           per100g(p.Nutriments, "fat"),
		Sugars:        per100g(p.Nutriments, "sugars"),
	}, body, nil
}

func per100g(n map[string]any, base string) *float64 {
	if v, ok := parseFloatAny(n[base+"_100g"]); ok {
		return &v
	}
	return nil
}

func firstBrand(brands string) string {
	first, _, _ := strings.Cut(brands, ",")
	return strings.TrimSpace(first)
}

func parseFloatAny(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

type offResponse struct {
	Status  int        `json:"status"`
	Product offProduct `json:"product"`
}

type offProduct struct {
	Code        string         `json:"code"`
	ProductName string         `json:"product_name"`
	Brands      string         `json:"brands"`
	Nutriments  map[string]any `json:"nutriments"`
}
