package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"chocosales-dashboard/internal/models"
)

// Sales owns the base dataset for the lifetime of the process and answers
// filter queries over it.
type Sales struct {
	mu        sync.RWMutex
	dataset   models.Dataset
	options   models.FilterOptions
	source    string
	loadedAt  time.Time
	zeroBoxes ZeroBoxesPolicy
	logger    *slog.Logger
}

type Option func(*Sales)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sales) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithZeroBoxesPolicy(policy ZeroBoxesPolicy) Option {
	return func(s *Sales) {
		s.zeroBoxes = policy
	}
}

func NewSales(opts ...Option) *Sales {
	s := &Sales{
		dataset:   models.Dataset{},
		options:   Options(nil),
		zeroBoxes: ZeroBoxesReject,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetData replaces the base dataset. The records are copied.
func (s *Sales) SetData(records []models.SalesRecord) {
	dataset := make(models.Dataset, len(records))
	copy(dataset, records)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = dataset
	s.options = Options(dataset)
	s.loadedAt = time.Now()
}

func (s *Sales) LoadFromCSV(ctx context.Context, filename string) error {
	start := time.Now()
	s.logger.Info("loading sales data", "filename", filename, "zero_boxes_policy", s.zeroBoxes)

	dataset, err := Load(ctx, filename, LoadOptions{ZeroBoxes: s.zeroBoxes, Logger: s.logger})
	if err != nil {
		return fmt.Errorf("load sales data: %w", err)
	}

	s.mu.Lock()
	s.dataset = dataset
	s.options = Options(dataset)
	s.source = filename
	s.loadedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("sales data loaded",
		"records", len(dataset),
		"duration", time.Since(start),
	)
	return nil
}

// Dataset returns a copy of the base dataset.
func (s *Sales) Dataset() models.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.dataset)
}

func (s *Sales) Options() models.FilterOptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.options
}

func (s *Sales) Apply(selection models.FilterSelection) (models.Dataset, models.SummaryMetrics) {
	s.mu.RLock()
	dataset := s.dataset
	s.mu.RUnlock()
	return Apply(dataset, selection)
}

// Stats reports dataset shape for monitoring.
func (s *Sales) Stats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]any{
		"record_count":      len(s.dataset),
		"source":            s.source,
		"loaded_at":         s.loadedAt,
		"sales_people":      len(s.options.SalesPeople),
		"countries":         len(s.options.Countries),
		"products":          len(s.options.Products),
		"zero_boxes_policy": s.zeroBoxes,
	}
}
