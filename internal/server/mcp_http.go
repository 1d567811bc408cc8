package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/outlook-mcp/internal/instrumentation"
)

// MCPHTTPServer hosts the MCP server over the streamable HTTP transport.
// Authentication against Microsoft happens server-side through the auth
// manager; MCP clients connect without credentials, so this host stays on
// loopback or behind a trusted proxy.
type MCPHTTPServer struct {
	mcpServer        *mcpserver.MCPServer
	httpServer       *http.Server
	health           *HealthChecker
	metrics          *instrumentation.Metrics
	logger           *slog.Logger
	disableStreaming bool
}

// NewMCPHTTPServer creates an HTTP host for the given MCP server.
// disableStreaming makes the /mcp endpoint answer plain JSON responses for
// clients that cannot consume streams.
func NewMCPHTTPServer(mcpSrv *mcpserver.MCPServer, disableStreaming bool) (*MCPHTTPServer, error) {
	if mcpSrv == nil {
		return nil, fmt.Errorf("mcp server is required")
	}
	return &MCPHTTPServer{
		mcpServer:        mcpSrv,
		logger:           slog.Default(),
		disableStreaming: disableStreaming,
	}, nil
}

// SetHealthChecker wires liveness and readiness endpoints into the host.
func (s *MCPHTTPServer) SetHealthChecker(h *HealthChecker) {
	s.health = h
}

// SetMetrics enables request metrics for all hosted endpoints.
func (s *MCPHTTPServer) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
}

// SetLogger sets the structured logger.
func (s *MCPHTTPServer) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

func (s *MCPHTTPServer) buildServer(addr string) {
	mux := http.NewServeMux()

	var streamHandler http.Handler
	if s.disableStreaming {
		streamHandler = mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
			mcpserver.WithDisableStreaming(true),
		)
	} else {
		streamHandler = mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath("/mcp"),
		)
	}
	mux.Handle("/mcp", streamHandler)

	if s.health != nil {
		s.health.RegisterHealthEndpoints(mux)
	} else {
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
	}

	// No WriteTimeout: streamable responses stay open past any fixed
	// deadline.
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           requestMetricsMiddleware(s.metrics, mux),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Start serves the MCP endpoint on addr until Shutdown or a listener error.
func (s *MCPHTTPServer) Start(addr string) error {
	s.buildServer(addr)
	s.logger.Info("starting mcp http server", "addr", addr, "endpoint", "/mcp")
	return s.httpServer.ListenAndServe()
}

// StartWithReadySignal is Start, but closes ready once the listener is
// bound.
func (s *MCPHTTPServer) StartWithReadySignal(addr string, ready chan struct{}) error {
	s.buildServer(addr)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	s.logger.Info("starting mcp http server", "addr", addr, "endpoint", "/mcp")
	close(ready)
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the host. Readiness flips first so a load
// balancer stops routing new clients while in-flight requests drain.
func (s *MCPHTTPServer) Shutdown(ctx context.Context) error {
	if s.health != nil {
		s.health.SetReady(false)
	}
	if s.httpServer != nil {
		s.logger.Info("shutting down mcp http server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
