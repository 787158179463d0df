package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"chocosales-dashboard/internal/errors"
	"chocosales-dashboard/internal/models"
	"chocosales-dashboard/internal/services"
)

// The dataset is loaded once at startup, so every filtered view is cacheable.
const cacheControl = "public, max-age=300"

type APIHandlers struct {
	sales  *services.Sales
	logger *slog.Logger
}

func NewAPIHandlers(sales *services.Sales, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		sales:  sales,
		logger: logger,
	}
}

type recordsResponse struct {
	Records models.Dataset `json:"records"`
	Total   int            `json:"total"`
}

func (h *APIHandlers) writeCached(w http.ResponseWriter, r *http.Request, data any) {
	err := errors.WriteSuccessWithHeaders(w, data, map[string]string{
		"Cache-Control": cacheControl,
	})
	if err != nil {
		h.logger.Warn("write response", "path", r.URL.Path, "error", err)
	}
}

// HandleFilters lists the values each dropdown can offer.
func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	h.writeCached(w, r, h.sales.Options())
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	_, metrics := h.sales.Apply(selectionFromQuery(r.URL.Query()))
	h.writeCached(w, r, metrics)
}

// HandleRecords returns the filtered rows, optionally capped by ?limit=N.
// Total always counts every matching row.
func (h *APIHandlers) HandleRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := parseLimit(q)
	if err != nil {
		errors.Respond(w, r, h.logger, errors.InvalidParam("limit", err))
		return
	}

	filtered, _ := h.sales.Apply(selectionFromQuery(q))
	h.writeCached(w, r, recordsResponse{
		Records: services.Preview(filtered, limit),
		Total:   len(filtered),
	})
}

func (h *APIHandlers) HandleTopProducts(w http.ResponseWriter, r *http.Request) {
	_, metrics := h.sales.Apply(selectionFromQuery(r.URL.Query()))
	h.writeCached(w, r, metrics.TopProductsByRevenue)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.sales.Stats())
}
