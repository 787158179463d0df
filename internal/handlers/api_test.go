package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"chocosales-dashboard/internal/models"
	"chocosales-dashboard/internal/services"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func price(v float64) *float64 { return &v }

func createTestSales() *services.Sales {
	s := services.NewSales(services.WithLogger(testLogger()))
	s.SetData([]models.SalesRecord{
		{
			Date:         time.Date(2022, 1, 4, 0, 0, 0, 0, time.UTC),
			SalesPerson:  "Jehu Rudeforth",
			Country:      "UK",
			Product:      "Mint Chip Choco",
			Amount:       5320,
			BoxesShipped: 180,
			PricePerBox:  price(29.56),
		},
		{
			Date:         time.Date(2022, 8, 1, 0, 0, 0, 0, time.UTC),
			SalesPerson:  "Van Tuxwell",
			Country:      "India",
			Product:      "85% Dark Bars",
			Amount:       7896,
			BoxesShipped: 94,
			PricePerBox:  price(84),
		},
		{
			Date:         time.Date(2022, 7, 7, 0, 0, 0, 0, time.UTC),
			SalesPerson:  "Gigi Bohling",
			Country:      "India",
			Product:      "Peanut Butter Cubes",
			Amount:       4501,
			BoxesShipped: 91,
			PricePerBox:  price(49.46),
		},
		{
			Date:         time.Date(2022, 4, 27, 0, 0, 0, 0, time.UTC),
			SalesPerson:  "Jan Morforth",
			Country:      "Australia",
			Product:      "Peanut Butter Cubes",
			Amount:       12726,
			BoxesShipped: 342,
			PricePerBox:  price(37.21),
		},
		{
			Date:         time.Date(2022, 2, 24, 0, 0, 0, 0, time.UTC),
			SalesPerson:  "Jehu Rudeforth",
			Country:      "UK",
			Product:      "Peanut Butter Cubes",
			Amount:       13685,
			BoxesShipped: 184,
			PricePerBox:  price(74.38),
		},
	})
	return s
}

type envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var resp envelope[T]
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
	if !resp.Success {
		t.Error("expected success=true in response")
	}
	return resp.Data
}

func TestNewAPIHandlers(t *testing.T) {
	sales := createTestSales()
	handlers := NewAPIHandlers(sales, slog.Default())

	if handlers == nil {
		t.Fatal("NewAPIHandlers() returned nil")
	}
	if handlers.sales != sales {
		t.Error("NewAPIHandlers() should set sales field")
	}
}

func TestAPIHandlers_HandleFilters(t *testing.T) {
	handlers := NewAPIHandlers(createTestSales(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleFilters(w, httptest.NewRequest(http.MethodGet, "/api/filters", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	opts := decode[models.FilterOptions](t, w)
	if len(opts.SalesPeople) != 4 {
		t.Errorf("expected 4 sales people, got %v", opts.SalesPeople)
	}
	if len(opts.Countries) != 3 || opts.Countries[0] != "UK" {
		t.Errorf("countries should be distinct in first-seen order, got %v", opts.Countries)
	}
	if len(opts.Products) != 3 {
		t.Errorf("expected 3 products, got %v", opts.Products)
	}
}

func TestAPIHandlers_HandleSummary(t *testing.T) {
	handlers := NewAPIHandlers(createTestSales(), testLogger())

	tests := []struct {
		name         string
		query        string
		transactions int
		revenue      float64
		boxes        int
		products     int
	}{
		{"no filter", "", 5, 44128, 891, 3},
		{"single country", "?country=India", 2, 12397, 185, 2},
		{"countries are OR-combined", "?country=India&country=UK", 4, 31402, 549, 3},
		{"fields are AND-combined", "?country=UK&product=Peanut+Butter+Cubes", 1, 13685, 184, 1},
		{"no match", "?country=Narnia", 0, 0, 0, 0},
		{"empty value is ignored", "?country=", 5, 44128, 891, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handlers.HandleSummary(w, httptest.NewRequest(http.MethodGet, "/api/summary"+tt.query, nil))

			if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
				t.Errorf("expected cache-control 'public, max-age=300', got %q", cc)
			}

			m := decode[models.SummaryMetrics](t, w)
			if m.TransactionCount != tt.transactions {
				t.Errorf("transaction_count = %d, want %d", m.TransactionCount, tt.transactions)
			}
			if m.TotalRevenue != tt.revenue {
				t.Errorf("total_revenue = %v, want %v", m.TotalRevenue, tt.revenue)
			}
			if m.TotalBoxes != tt.boxes {
				t.Errorf("total_boxes = %d, want %d", m.TotalBoxes, tt.boxes)
			}
			if m.DistinctProductCount != tt.products {
				t.Errorf("distinct_product_count = %d, want %d", m.DistinctProductCount, tt.products)
			}
			if m.TopProductsByRevenue == nil {
				t.Error("top products should encode as an array, not null")
			}
		})
	}
}

func TestAPIHandlers_HandleRecords(t *testing.T) {
	handlers := NewAPIHandlers(createTestSales(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleRecords(w, httptest.NewRequest(http.MethodGet, "/api/records?product=Peanut+Butter+Cubes&limit=2", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	resp := decode[recordsResponse](t, w)
	if resp.Total != 3 {
		t.Errorf("total = %d, want 3", resp.Total)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(resp.Records))
	}
	if resp.Records[0].SalesPerson != "Gigi Bohling" || resp.Records[1].SalesPerson != "Jan Morforth" {
		t.Errorf("records should keep source order, got %q then %q", resp.Records[0].SalesPerson, resp.Records[1].SalesPerson)
	}
}

func TestAPIHandlers_HandleRecords_NoLimit(t *testing.T) {
	handlers := NewAPIHandlers(createTestSales(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleRecords(w, httptest.NewRequest(http.MethodGet, "/api/records", nil))

	resp := decode[recordsResponse](t, w)
	if len(resp.Records) != 5 || resp.Total != 5 {
		t.Errorf("expected all 5 records, got %d of %d", len(resp.Records), resp.Total)
	}
}

func TestAPIHandlers_HandleRecords_BadLimit(t *testing.T) {
	handlers := NewAPIHandlers(createTestSales(), testLogger())

	for _, limit := range []string{"abc", "-1", "1.5"} {
		t.Run(limit, func(t *testing.T) {
			w := httptest.NewRecorder()
			handlers.HandleRecords(w, httptest.NewRequest(http.MethodGet, "/api/records?limit="+limit, nil))

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}

			var response map[string]interface{}
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("failed to decode JSON: %v", err)
			}
			if success, _ := response["success"].(bool); success {
				t.Error("expected success=false in response")
			}
		})
	}
}

func TestAPIHandlers_HandleTopProducts(t *testing.T) {
	handlers := NewAPIHandlers(createTestSales(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleTopProducts(w, httptest.NewRequest(http.MethodGet, "/api/top-products", nil))

	top := decode[[]models.ProductRevenue](t, w)
	want := []models.ProductRevenue{
		{Product: "Peanut Butter Cubes", Revenue: 30912},
		{Product: "85% Dark Bars", Revenue: 7896},
		{Product: "Mint Chip Choco", Revenue: 5320},
	}
	if len(top) != len(want) {
		t.Fatalf("expected %d products, got %v", len(want), top)
	}
	for i := range want {
		if top[i] != want[i] {
			t.Errorf("top[%d] = %+v, want %+v", i, top[i], want[i])
		}
	}
}

func TestAPIHandlers_HandleHealth(t *testing.T) {
	handlers := NewAPIHandlers(createTestSales(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected content-type 'application/json', got %q", ct)
	}
	// Health endpoint should NOT have cache-control header
	if cc := w.Header().Get("Cache-Control"); cc != "" {
		t.Errorf("health endpoint should not set cache-control, got %q", cc)
	}

	data := decode[map[string]string](t, w)
	if data["status"] != "healthy" {
		t.Errorf("expected status 'healthy', got %q", data["status"])
	}
	if _, err := time.Parse(time.RFC3339, data["timestamp"]); err != nil {
		t.Errorf("invalid timestamp format: %v", err)
	}
}

func TestAPIHandlers_HandleStats(t *testing.T) {
	handlers := NewAPIHandlers(createTestSales(), testLogger())

	w := httptest.NewRecorder()
	handlers.HandleStats(w, httptest.NewRequest(http.MethodGet, "/admin/stats", nil))

	data := decode[map[string]interface{}](t, w)
	if count, _ := data["record_count"].(float64); count != 5 {
		t.Errorf("record_count = %v, want 5", data["record_count"])
	}
}

// Test that handlers set correct headers consistently
func TestAPIHandlers_HeaderConsistency(t *testing.T) {
	handlers := NewAPIHandlers(createTestSales(), testLogger())

	apiEndpoints := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"filters", handlers.HandleFilters},
		{"summary", handlers.HandleSummary},
		{"records", handlers.HandleRecords},
		{"top-products", handlers.HandleTopProducts},
	}

	for _, endpoint := range apiEndpoints {
		t.Run(endpoint.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			endpoint.handler(w, httptest.NewRequest(http.MethodGet, "/test", nil))

			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected content-type 'application/json', got %q", ct)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "public, max-age=300" {
				t.Errorf("expected cache-control 'public, max-age=300', got %q", cc)
			}
		})
	}
}

func TestSelectionFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/summary?salesPerson=A&salesPerson=B&country=&unknown=x", nil)
	sel := selectionFromQuery(req.URL.Query())

	if got := sel[models.FieldSalesPerson]; len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Errorf("salesPerson = %v", got)
	}
	if _, ok := sel[models.FieldCountry]; ok {
		t.Error("empty values should not restrict a field")
	}
	if len(sel) != 1 {
		t.Errorf("unknown keys should be ignored, got %v", sel)
	}
}
