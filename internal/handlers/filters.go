package handlers

import (
	"fmt"
	"net/url"
	"strconv"

	"chocosales-dashboard/internal/models"
)

// selectionFromQuery builds a selection from repeated query parameters,
// e.g. ?salesPerson=A&salesPerson=B&country=UK. Unknown keys are ignored.
func selectionFromQuery(q url.Values) models.FilterSelection {
	sel := make(models.FilterSelection)
	for _, field := range models.Fields {
		if vals := nonEmpty(q[string(field)]); len(vals) > 0 {
			sel[field] = vals
		}
	}
	return sel
}

func nonEmpty(vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// parseLimit reads a non-negative row limit; 0 or absent means no limit.
func parseLimit(q url.Values) (int, error) {
	raw := q.Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit %q is not an integer", raw)
	}
	if n < 0 {
		return 0, fmt.Errorf("limit must not be negative, got %d", n)
	}
	return n, nil
}

// dashboardSignals mirrors the multi-select bindings on the dashboard page.
type dashboardSignals struct {
	SalesPerson []string `json:"salesPerson"`
	Country     []string `json:"country"`
	Product     []string `json:"product"`
}

func (s dashboardSignals) selection() models.FilterSelection {
	return models.FilterSelection{
		models.FieldSalesPerson: nonEmpty(s.SalesPerson),
		models.FieldCountry:     nonEmpty(s.Country),
		models.FieldProduct:     nonEmpty(s.Product),
	}
}
