package usda

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.nal.usda.gov"

// Food holds the per-100g facts of a branded food. FoodData Central reports
// branded nutrients per 100g regardless of the label serving.
type Food struct {
	FDCID         int64
	GTINUPC       string
	Description   string
	Brand         string
	EnergyKcal    *float64
	EnergyKJ      *float64
	Carbohydrates *float64
	Proteins      *float64
	Fat           *float64
	Sugars        *float64
}

type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// LookupBarcode searches the branded foods for an exact GTIN/UPC match.
func (c *Client) LookupBarcode(ctx context.Context, barcode string) (Food, []byte, error) {
	if strings.TrimSpace(c.APIKey) == "" {
		return Food{}, nil, fmt.Errorf("missing USDA API key")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 12 * time.Second}
	}

	payload, err := json.Marshal(map[string]any{
		"query":    barcode,
		"dataType": []string{"Branded"},
		"pageSize": 20,
	})
	if err != nil {
		return Food{}, nil, fmt.Errorf("marshal USDA search payload: %w", err)
	}

	url := fmt.Sprintf("%s/fdc/v1/foods/search?api_key=%s", baseURL, c.APIKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Food{}, nil, fmt.Errorf("create USDA request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return Food{}, nil, fmt.Errorf("execute USDA request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Food{}, nil, fmt.Errorf("read USDA response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Food{}, body, fmt.Errorf("USDA request failed with status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return Food{}, body, fmt.Errorf("decode USDA response: %w", err)
	}
	food, ok := matchGTIN(parsed.Foods, barcode)
	if !ok {
		return Food{}, body, fmt.Errorf("no USDA branded food found for barcode %q", barcode)
	}

	out := Food{
		FDCID:       food.FDCID,
		GTINUPC:     strings.TrimSpace(food.GTINUPC),
		Description: strings.TrimSpace(food.Description),
		Brand:       strings.TrimSpace(food.BrandOwner),
	}
	for _, n := range food.FoodNutrients {
		v := n.Value
		switch strings.ToLower(strings.TrimSpace(n.NutrientName)) {
		case "energy":
			if strings.EqualFold(strings.TrimSpace(n.UnitName), "kj") {
				out.EnergyKJ = &v
			} else {
				out.EnergyKcal = &v
			}
		case "protein":
			out.Proteins = &v
		case "carbohydrate, by difference":
			out.Carbohydrates = &v
		case "total lipid (fat)":
			out.Fat = &v
		case "sugars, total including nlea", "sugars, total":
			out.Sugars = &v
		}
	}
	return out, body, nil
}

// matchGTIN ignores leading zeros so EAN-13 and GTIN-14 forms of the same
// code compare equal.
func matchGTIN(foods []usdaFood, barcode string) (usdaFood, bool) {
	want := strings.TrimLeft(strings.TrimSpace(barcode), "0")
	for _, f := range foods {
		if strings.TrimLeft(strings.TrimSpace(f.GTINUPC), "0") == want {
			return f, true
		}
	}
	return usdaFood{}, false
}

type searchResponse struct {
	Foods []usdaFood `json:"foods"`
}

type usdaFood struct {
	FDCID         int64          `json:"fdcId"`
	Description   string         `json:"description"`
	BrandOwner    string         `json:"brandOwner"`
	GTINUPC       string         `json:"gtinUpc"`
	FoodNutrients []usdaNutrient `json:"foodNutrients"`
}

type usdaNutrient struct {
	NutrientName string  `json:"nutrientName"`
	UnitName     string  `json:"unitName"`
	Value        float64 `json:"value"`
}
