package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

const testShutdownTimeout = 2 * time.Second

func newTestGracefulServer() *GracefulServer {
	httpServer := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}
	return NewGracefulServer(httpServer, testLogger(), testShutdownTimeout)
}

func TestGracefulServer_RunsHooksOnShutdown(t *testing.T) {
	gs := newTestGracefulServer()

	var calls atomic.Int32
	for _, name := range []string{"stats", "flush", "close"} {
		gs.OnShutdown(name, func(ctx context.Context) error {
			calls.Add(1)
			return nil
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := gs.Run(ctx); err != nil {
		t.Fatalf("Run() = %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 hooks to run, got %d", calls.Load())
	}
}

func TestGracefulServer_HookError(t *testing.T) {
	gs := newTestGracefulServer()

	boom := errors.New("flush failed")
	gs.OnShutdown("flush", func(ctx context.Context) error { return boom })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := gs.Run(ctx); !errors.Is(err, boom) {
		t.Errorf("Run() = %v, want wrapped %v", err, boom)
	}
}

func TestGracefulServer_ListenError(t *testing.T) {
	httpServer := &http.Server{Addr: "256.0.0.1:bad", Handler: http.NotFoundHandler()}
	gs := NewGracefulServer(httpServer, testLogger(), testShutdownTimeout)

	if err := gs.Run(context.Background()); err == nil {
		t.Error("Run() should report a listen failure")
	}
}
