package server

import (
	"log/slog"
	"net/http"

	"chocosales-dashboard/internal/handlers"
	"chocosales-dashboard/internal/services"
)

// Server routes dashboard, API and SSE requests against one loaded dataset.
type Server struct {
	mux *http.ServeMux
}

type route struct {
	pattern string
	handler http.HandlerFunc
}

// NewServer wires the handlers for sales. page renders the dashboard shell at
// "/"; it lives outside this package so the page template can be swapped.
func NewServer(sales *services.Sales, logger *slog.Logger, page http.HandlerFunc, previewRows int) *Server {
	api := handlers.NewAPIHandlers(sales, logger)
	sse := handlers.NewSSEHandlers(sales, logger, previewRows)

	routes := []route{
		{"GET /{$}", page},
		{"GET /health", api.HandleHealth},
		{"GET /admin/stats", api.HandleStats},

		{"GET /api/filters", api.HandleFilters},
		{"GET /api/summary", api.HandleSummary},
		{"GET /api/records", api.HandleRecords},
		{"GET /api/top-products", api.HandleTopProducts},

		{"GET /sse/dashboard", sse.HandleDashboard},
	}

	s := &Server{mux: http.NewServeMux()}
	for _, rt := range routes {
		s.mux.HandleFunc(rt.pattern, rt.handler)
	}
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
