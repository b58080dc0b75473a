package openfoodfacts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestLookupProductParsesPer100gFacts(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/product/3017620422003.json" || !strings.HasPrefix(r.Header.Get("User-Agent"), "lifteat/") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
  "status": 1,
  "product": {
    "code": "3017620422003",
    "product_name": "Hazelnut spread",
    "brands": "Acme, Acme Foods",
    "nutriments": {
      "energy-kj_100g": 2252,
      "energy-kcal_serving": 80,
      "carbohydrates_100g": "57.5",
      "proteins_100g": 6.3,
      "fat_100g": 30.9
    }
  }
}`))
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL + "/", HTTPClient: ts.Client()}
	p, raw, err := c.LookupProduct(context.Background(), "3017620422003")
	if err != nil {
		t.Fatalf("lookup product: %v", err)
	}
	if p.Name != "Hazelnut spread" || p.Brand != "Acme" || p.Code != "3017620422003" {
		t.Fatalf("unexpected product header: %+v", p)
	}
	if p.EnergyKcal != nil {
		t.Fatalf("expected per-serving energy to be ignored, got %v", *p.EnergyKcal)
	}
	if p.EnergyKJ == nil || *p.EnergyKJ != 2252 {
		t.Fatalf("expected kJ per 100g, got %v", p.EnergyKJ)
	}
	if p.Carbohydrates == nil || *p.Carbohydrates != 57.5 {
		t.Fatalf("expected string carbs parsed, got %v", p.Carbohydrates)
	}
	if p.Sugars != nil {
		t.Fatalf("expected missing sugars to stay nil")
	}
	if len(raw) == 0 {
		t.Fatalf("expected raw body")
	}
}

func TestLookupProductNotFound(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status": 0, "status_verbose": "product not found"}`))
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, HTTPClient: ts.Client()}
	if _, _, err := c.LookupProduct(context.Background(), "00000000"); err == nil || !strings.Contains(err.Error(), "no openfoodfacts product") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestLookupProductHTTPError(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := &Client{BaseURL: ts.URL, HTTPClient: ts.Client()}
	if _, _, err := c.LookupProduct(context.Background(), "12345678"); err == nil || !strings.Contains(err.Error(), "status 503") {
		t.Fatalf("expected status error, got %v", err)
	}
}
