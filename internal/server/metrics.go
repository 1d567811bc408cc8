package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teemow/outlook-mcp/internal/instrumentation"
)

const (
	// DefaultMetricsAddr is the default listen address for the metrics server.
	DefaultMetricsAddr = ":9090"

	// DefaultMetricsReadTimeout bounds how long reading a scrape request may take.
	DefaultMetricsReadTimeout = 10 * time.Second

	// DefaultMetricsWriteTimeout bounds how long writing a scrape response may take.
	DefaultMetricsWriteTimeout = 10 * time.Second

	// DefaultMetricsIdleTimeout closes idle scrape connections.
	DefaultMetricsIdleTimeout = 60 * time.Second

	// DefaultShutdownTimeout caps how long graceful shutdown may drain.
	DefaultShutdownTimeout = 30 * time.Second
)

// MetricsServerConfig configures the metrics listener.
type MetricsServerConfig struct {
	// Addr is the listen address, e.g. ":9090".
	Addr string

	// Enabled gates whether the serve command starts the listener at all.
	Enabled bool

	// InstrumentationProvider supplies the Prometheus-exported metrics.
	InstrumentationProvider *instrumentation.Provider

	// Logger receives the server's lifecycle log lines. Defaults to
	// slog.Default.
	Logger *slog.Logger
}

// MetricsServer serves Prometheus metrics on a dedicated port, keeping
// operational metrics off the MCP and auth listeners.
type MetricsServer struct {
	httpServer *http.Server
	addr       string
	logger     *slog.Logger
}

// NewMetricsServer creates a metrics server exposing /metrics for Prometheus
// scraping and /healthz for liveness probes.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	if config.InstrumentationProvider == nil {
		return nil, fmt.Errorf("instrumentation provider is required for metrics server")
	}
	if !config.InstrumentationProvider.Enabled() {
		return nil, fmt.Errorf("instrumentation provider is not enabled")
	}

	return &MetricsServer{
		addr:   config.Addr,
		logger: config.Logger,
	}, nil
}

func (s *MetricsServer) buildServer() {
	mux := http.NewServeMux()

	// The OpenTelemetry prometheus exporter registers with the default
	// Prometheus registry, which promhttp.Handler() serves.
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: DefaultMetricsReadTimeout,
		WriteTimeout:      DefaultMetricsWriteTimeout,
		IdleTimeout:       DefaultMetricsIdleTimeout,
	}
}

// Start runs the server until Shutdown or a listener error. Call it in a
// goroutine for non-blocking operation.
func (s *MetricsServer) Start() error {
	s.buildServer()
	s.logger.Info("starting metrics server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// StartWithReadySignal is Start, but closes ready once the listener is
// bound, so callers can fail fast when the port is taken instead of racing
// a sleep.
func (s *MetricsServer) StartWithReadySignal(ready chan struct{}) error {
	s.buildServer()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.logger.Info("starting metrics server", "addr", s.addr)
	close(ready)
	return s.httpServer.Serve(ln)
}

// Shutdown stops the server, letting in-flight scrapes finish within ctx.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.logger.Info("shutting down metrics server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// Addr returns the listen address the server was configured with.
func (s *MetricsServer) Addr() string {
	return s.addr
}
