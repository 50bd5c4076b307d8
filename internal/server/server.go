// Package server implements the status server: a small net/http server that
// exposes the Discipline Loop's published status to external observers
// through Prometheus exposition, a JSON endpoint, and a health check. It
// uses a routed mux, recovery and logging middleware, and context-driven
// graceful shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/khronos/khronos/pkg/logger"
)

// Server is the status HTTP server.
type Server struct {
	addr     string
	registry *prometheus.Registry
	snap     Snapshotter

	server *http.Server
}

// New creates a status server listening on addr, serving Prometheus metrics
// from registry and JSON/health data from snap.
func New(addr string, registry *prometheus.Registry, snap Snapshotter) *Server {
	return &Server{addr: addr, registry: registry, snap: snap}
}

// Start runs the server until ctx is cancelled or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	h := NewHandlers(s.registry, s.snap)

	mux.HandleFunc("/metrics", h.MetricsHandler)
	mux.HandleFunc("/status", h.StatusHandler)
	mux.HandleFunc("/healthz", h.HealthHandler)
	mux.HandleFunc("/", h.IndexHandler)

	handler := NewMiddleware().Apply(mux)

	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}

	logger.Infof("server", "starting status server on %s", s.addr)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("server", "shutting down status server")
		return s.Shutdown(context.Background())
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server", "status server failed", err)
			return fmt.Errorf("status server failed on %s: %w", s.addr, err)
		}
		return nil
	}
}

// Shutdown gracefully stops the server, bounded to 10 seconds.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server", "status server shutdown failed", err)
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("status server shutdown timeout after 10s: %w", err)
		}
		return fmt.Errorf("status server shutdown failed: %w", err)
	}

	logger.Info("server", "status server stopped")
	return nil
}
