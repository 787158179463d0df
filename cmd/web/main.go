package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"chocosales-dashboard/internal/config"
	"chocosales-dashboard/internal/errors"
	"chocosales-dashboard/internal/middleware"
	"chocosales-dashboard/internal/observability"
	"chocosales-dashboard/internal/server"
	"chocosales-dashboard/internal/services"
	"chocosales-dashboard/internal/ui/templates"
)

const (
	version        = "1.0.0"
	renderTimeout  = 10 * time.Second
	csvLoadTimeout = 30 * time.Second
)

// dashboardHandler renders the page shell with the filter options of the
// loaded dataset.
func dashboardHandler(sales *services.Sales, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), renderTimeout)
		defer cancel()

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=300")
		if err := templates.Dashboard(sales.Options()).Render(ctx, w); err != nil {
			errors.Respond(w, r, logger, errors.Internal(fmt.Errorf("render dashboard: %w", err)))
		}
	}
}

// buildHandler wraps the router in the middleware stack. Recovery sits
// outermost so a panic anywhere below still produces a JSON 500.
func buildHandler(cfg *config.Config, sales *services.Sales, logger *slog.Logger) http.Handler {
	router := server.NewServer(sales, logger, dashboardHandler(sales, logger), cfg.Data.PreviewRows)

	return middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(middleware.NewRateLimiter(cfg.Security), logger),
	)(router)
}

func loadSales(cfg *config.Config, logger *slog.Logger) (*services.Sales, error) {
	policy, err := services.ParseZeroBoxesPolicy(cfg.Data.ZeroBoxesPolicy)
	if err != nil {
		return nil, err
	}

	sales := services.NewSales(
		services.WithLogger(logger),
		services.WithZeroBoxesPolicy(policy),
	)

	ctx, cancel := context.WithTimeout(context.Background(), csvLoadTimeout)
	defer cancel()
	if err := sales.LoadFromCSV(ctx, cfg.Data.CSVFile); err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.Data.CSVFile, err)
	}
	return sales, nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)
	logger.Info("starting chocosales dashboard", "version", version, "config", cfg)

	sales, err := loadSales(cfg, logger)
	if err != nil {
		return err
	}

	gs := server.NewGracefulServer(&http.Server{
		Addr:         cfg.Address(),
		Handler:      buildHandler(cfg, sales, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}, logger, cfg.Server.ShutdownTimeout)

	gs.OnShutdown("sales-stats", func(ctx context.Context) error {
		logger.Info("final sales stats", "stats", sales.Stats())
		return nil
	})

	return gs.ListenAndServe()
}

func main() {
	if err := run(); err != nil {
		slog.Error("dashboard stopped", "error", err)
		os.Exit(1)
	}
}
