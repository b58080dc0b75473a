package usda

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const yogurtSearch = `{
  "foods": [
    {
      "fdcId": 999,
      "description": "Other Yogurt",
      "gtinUpc": "111111111111",
      "foodNutrients": [{"nutrientName": "Energy", "unitName": "KCAL", "value": 1}]
    },
    {
      "fdcId": 12345,
      "description": "Greek Yogurt",
      "brandOwner": "Test Brand",
      "gtinUpc": "0012345678905",
      "foodNutrients": [
        {"nutrientName": "Energy", "unitName": "KCAL", "value": 59},
        {"nutrientName": "Protein", "unitName": "G", "value": 10},
        {"nutrientName": "Carbohydrate, by difference", "unitName": "G", "value": 3.6},
        {"nutrientName": "Total lipid (fat)", "unitName": "G", "value": 0.4},
        {"nutrientName": "Sugars, total including NLEA", "unitName": "G", "value": 3.2}
      ]
    }
  ]
}`

func TestLookupBarcodeParsesUSDAResponse(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Query().Get("api_key") != "demo" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(yogurtSearch))
	}))
	defer ts.Close()

	c := &Client{APIKey: "demo", BaseURL: ts.URL, HTTPClient: ts.Client()}
	food, raw, err := c.LookupBarcode(context.Background(), "012345678905")
	if err != nil {
		t.Fatalf("lookup barcode: %v", err)
	}
	if food.FDCID != 12345 || food.Brand != "Test Brand" || len(raw) == 0 {
		t.Fatalf("unexpected food %+v", food)
	}
	if food.EnergyKcal == nil || *food.EnergyKcal != 59 || *food.Proteins != 10 || *food.Carbohydrates != 3.6 || *food.Fat != 0.4 || *food.Sugars != 3.2 {
		t.Fatalf("unexpected nutrients %+v", food)
	}
	if food.EnergyKJ != nil {
		t.Fatalf("expected no kJ value, got %v", *food.EnergyKJ)
	}
}

func TestLookupBarcodeRequiresExactMatchAndKey(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(yogurtSearch))
	}))
	defer ts.Close()

	c := &Client{APIKey: "demo", BaseURL: ts.URL, HTTPClient: ts.Client()}
	if _, _, err := c.LookupBarcode(context.Background(), "222222222222"); err == nil || !strings.Contains(err.Error(), "no USDA branded food") {
		t.Fatalf("expected no match, got %v", err)
	}
	c.APIKey = ""
	if _, _, err := c.LookupBarcode(context.Background(), "012345678905"); err == nil {
		t.Fatalf("expected missing key error")
	}
}
