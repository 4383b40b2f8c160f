package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"switchyard-hq/switchyard/pkg/server/middleware"
	"switchyard-hq/switchyard/pkg/telemetry/metrics"
)

// Config holds the HTTP listener settings.
type Config struct {
	// ListenAddress is "host:port" for the proxy listener. Populated from
	// the top-level listen_address, not from this section.
	ListenAddress string `yaml:"-"`

	// ReadTimeout bounds reading the whole inbound request.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout bounds writing the response. Zero means no limit, which
	// streaming responses generally require.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout bounds keep-alive idle connections.
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// Server owns the proxy listener and the optional metrics listener.
type Server struct {
	config    Config
	handler   http.Handler
	collector *metrics.Collector
	metricsCfg metrics.Config

	httpServer    *http.Server
	metricsServer *http.Server
	shutdownOnce  sync.Once
}

// New creates a server around the given handler. The middleware chain is
// applied here: recovery outermost, then request ID, then request logging.
func New(cfg Config, handler http.Handler, collector *metrics.Collector, metricsCfg metrics.Config) *Server {
	wrapped := middleware.Recovery(middleware.RequestID(middleware.Logging(handler)))
	return &Server{
		config:     cfg,
		handler:    wrapped,
		collector:  collector,
		metricsCfg: metricsCfg,
	}
}

// Start runs the listeners and blocks until the context is cancelled, a
// termination signal arrives, or a listener fails.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         s.config.ListenAddress,
		Handler:      s.handler,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 2)

	go func() {
		slog.Info("proxy server listening", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("proxy server error: %w", err)
		}
	}()

	if s.metricsCfg.Enabled && s.collector != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.collector.Handler())
		s.metricsServer = &http.Server{
			Addr:    s.metricsCfg.ListenAddress,
			Handler: mux,
		}
		go func() {
			slog.Info("metrics server listening", "address", s.metricsCfg.ListenAddress)
			if err := s.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
		return s.Shutdown(context.Background())
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig.String())
		return s.Shutdown(context.Background())
	case err := <-errChan:
		return err
	}
}

// Shutdown stops accepting connections and waits for in-flight requests up
// to the configured timeout. Requests still running after that are
// abandoned; there is no drain protocol beyond this.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		slog.Info("shutting down", "timeout", timeout.String())

		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
				shutdownErr = fmt.Errorf("proxy shutdown error: %w", err)
			}
		}
		if s.metricsServer != nil {
			if err := s.metricsServer.Shutdown(shutdownCtx); err != nil && shutdownErr == nil {
				shutdownErr = fmt.Errorf("metrics shutdown error: %w", err)
			}
		}
	})

	return shutdownErr
}
