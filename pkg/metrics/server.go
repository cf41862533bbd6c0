package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dbehnke/dsd-nexus/pkg/logger"
)

// Config holds the metrics HTTP endpoint configuration.
type Config struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Server serves a Collector's registry over HTTP, grounded on
// pkg/web.Server's listener-then-Serve-then-graceful-Shutdown shape.
type Server struct {
	config    Config
	collector *Collector
	logger    *logger.Logger
	server    *http.Server
}

// NewServer builds a metrics HTTP server for collector.
func NewServer(cfg Config, collector *Collector, log *logger.Logger) *Server {
	return &Server{config: cfg, collector: collector, logger: log}
}

// Start serves the metrics endpoint until ctx is cancelled. It returns
// nil immediately if metrics are disabled.
func (s *Server) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Metrics server disabled")
		return nil
	}

	path := s.config.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, s.collector.Handler())

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics: listen on %s: %w", addr, err)
	}

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("Starting metrics server", logger.String("address", listener.Addr().String()), logger.String("path", path))

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("metrics: shutdown: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
