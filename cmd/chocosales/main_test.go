package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"chocosales-dashboard/internal/models"
	"chocosales-dashboard/internal/services"
)

const testCSV = `Sales Person,Country,Date,Product,Amount,Boxes Shipped
A,UK,04-Jan-22,X,$100,10
B,UK,05-Jan-22,Y,$40,4
A,India,06-Jan-22,X,$50,5
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "chocosales.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes the CLI and returns what it wrote to stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr
	err := app.Run(append([]string{"chocosales"}, args...))
	return stdout.String(), err
}

func TestSummary_JSON(t *testing.T) {
	path := writeCSV(t, testCSV)

	out, err := run(t, "summary", "--file", path, "--sales-person", "A", "--format", "json")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}

	var got summaryOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}

	want := models.SummaryMetrics{
		TransactionCount:     2,
		TotalRevenue:         150,
		TotalBoxes:           15,
		DistinctProductCount: 1,
		TopProductsByRevenue: []models.ProductRevenue{{Product: "X", Revenue: 150}},
	}
	if diff := cmp.Diff(want, got.Metrics); diff != "" {
		t.Errorf("metrics mismatch (-want +got):\n%s", diff)
	}
	if got.Total != 2 || len(got.Preview) != 2 {
		t.Errorf("preview = %d of %d, want 2 of 2", len(got.Preview), got.Total)
	}
	if p := got.Preview[0].PricePerBox; p == nil || *p != 10 {
		t.Errorf("price per box of first row = %v, want 10", p)
	}
}

func TestSummary_RepeatedFlags(t *testing.T) {
	path := writeCSV(t, testCSV)

	out, err := run(t, "summary", "--file", path, "--product", "X", "--product", "Y", "--country", "UK", "--format", "json")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}

	var got summaryOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got.Metrics.TransactionCount != 2 || got.Metrics.TotalRevenue != 140 {
		t.Errorf("unexpected metrics %+v", got.Metrics)
	}
}

func TestSummary_Table(t *testing.T) {
	path := writeCSV(t, testCSV)

	out, err := run(t, "summary", "--file", path, "--preview", "1")
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}

	for _, want := range []string{"Transactions", "$190.00", "TOP PRODUCTS BY REVENUE", "PREVIEW (1 of 3 transactions)", "04-Jan-22"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
}

func TestSummary_InvalidFlags(t *testing.T) {
	path := writeCSV(t, testCSV)

	tests := []struct {
		name string
		args []string
	}{
		{"bad format", []string{"summary", "--file", path, "--format", "xml"}},
		{"negative preview", []string{"summary", "--file", path, "--preview", "-1"}},
		{"bad policy", []string{"--zero-boxes", "skip", "summary", "--file", path}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSummary_MissingFile(t *testing.T) {
	_, err := run(t, "summary", "--file", filepath.Join(t.TempDir(), "missing.csv"))

	var notFound *services.SourceNotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("expected SourceNotFoundError, got %v", err)
	}
}

func TestSummary_ZeroBoxesPolicy(t *testing.T) {
	path := writeCSV(t, testCSV+"B,UK,07-Jan-22,Z,$30,0\n")

	_, err := run(t, "summary", "--file", path)
	var divErr *services.DivisionError
	if !errors.As(err, &divErr) {
		t.Fatalf("default policy should reject zero boxes, got %v", err)
	}

	out, err := run(t, "--zero-boxes", "null", "summary", "--file", path, "--product", "Z", "--format", "json")
	if err != nil {
		t.Fatalf("null policy should keep the row: %v", err)
	}
	var got summaryOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if len(got.Preview) != 1 || got.Preview[0].PricePerBox != nil {
		t.Errorf("zero-box row should have no price per box, got %+v", got.Preview)
	}
}

func TestOptions(t *testing.T) {
	path := writeCSV(t, testCSV)

	out, err := run(t, "options", "--file", path, "--format", "json")
	if err != nil {
		t.Fatalf("options failed: %v", err)
	}

	var got models.FilterOptions
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	want := models.FilterOptions{
		SalesPeople: []string{"A", "B"},
		Countries:   []string{"UK", "India"},
		Products:    []string{"X", "Y"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}
}

func TestOptions_Table(t *testing.T) {
	path := writeCSV(t, testCSV)

	out, err := run(t, "options", "--file", path)
	if err != nil {
		t.Fatalf("options failed: %v", err)
	}
	for _, want := range []string{"Sales Person (2)", "Country (2)", "Product (2)", "  India"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
}
