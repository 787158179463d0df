package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// Each hook gets at most this long, even when the overall budget is larger.
const hookTimeout = 10 * time.Second

type shutdownHook struct {
	name string
	fn   func(ctx context.Context) error
}

// GracefulServer runs an http.Server until SIGINT or SIGTERM, then drains
// connections and runs the registered hooks concurrently.
type GracefulServer struct {
	server  *http.Server
	logger  *slog.Logger
	timeout time.Duration

	mu    sync.Mutex
	hooks []shutdownHook
}

func NewGracefulServer(server *http.Server, logger *slog.Logger, shutdownTimeout time.Duration) *GracefulServer {
	return &GracefulServer{
		server:  server,
		logger:  logger,
		timeout: shutdownTimeout,
	}
}

// OnShutdown registers fn to run while the server drains.
func (gs *GracefulServer) OnShutdown(name string, fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.hooks = append(gs.hooks, shutdownHook{name: name, fn: fn})
}

func (gs *GracefulServer) ListenAndServe() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return gs.Run(ctx)
}

// Run serves until the listener fails or ctx is done.
func (gs *GracefulServer) Run(ctx context.Context) error {
	listenErr := make(chan error, 1)
	go func() {
		gs.logger.Info("listening", "addr", gs.server.Addr)
		listenErr <- gs.server.ListenAndServe()
	}()

	select {
	case err := <-listenErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen on %s: %w", gs.server.Addr, err)
	case <-ctx.Done():
	}

	gs.logger.Info("shutting down", "cause", context.Cause(ctx), "timeout", gs.timeout)
	drainCtx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()
	return gs.drain(drainCtx)
}

func (gs *GracefulServer) drain(ctx context.Context) error {
	gs.mu.Lock()
	hooks := append([]shutdownHook(nil), gs.hooks...)
	gs.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gs.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	for _, h := range hooks {
		g.Go(func() error {
			hctx, cancel := context.WithTimeout(gctx, hookTimeout)
			defer cancel()
			if err := h.fn(hctx); err != nil {
				gs.logger.Error("shutdown hook failed", "hook", h.name, "error", err)
				return fmt.Errorf("hook %s: %w", h.name, err)
			}
			return nil
		})
	}

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	select {
	case err := <-done:
		if err == nil {
			gs.logger.Info("shutdown complete")
		}
		return err
	case <-ctx.Done():
		gs.logger.Warn("shutdown timed out", "timeout", gs.timeout)
		return ctx.Err()
	}
}
