package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/teemow/outlook-mcp/internal/auth"
	"github.com/teemow/outlook-mcp/internal/instrumentation"
)

const (
	// DefaultAuthAddr matches the port of the default OAuth redirect URI,
	// http://localhost:3333/auth/callback.
	DefaultAuthAddr = ":3333"

	// DefaultAuthReadHeaderTimeout bounds how long header reads may take.
	DefaultAuthReadHeaderTimeout = 10 * time.Second

	// DefaultAuthWriteTimeout bounds response writes. The callback exchange
	// runs inside this window.
	DefaultAuthWriteTimeout = 10 * time.Second

	// DefaultAuthIdleTimeout closes idle keep-alive connections.
	DefaultAuthIdleTimeout = 120 * time.Second
)

// AuthHTTPServerConfig holds configuration for the authorization HTTP server.
type AuthHTTPServerConfig struct {
	// Addr is the listen address. Its port must match the redirect URI
	// registered with the identity provider.
	Addr string

	// Manager is the credential manager the routes operate on.
	Manager *auth.Manager

	// Logger is optional; slog.Default() is used when nil.
	Logger *slog.Logger

	// Metrics is optional; when set, every request is recorded.
	Metrics *instrumentation.Metrics
}

// AuthHTTPServer hosts the browser-facing authorization endpoints: /auth
// kicks off the consent flow, /auth/callback completes it, /token-status
// reports credential state, and /healthz answers liveness probes. It runs
// alongside the MCP transport so users can (re)authenticate while the
// server is up.
type AuthHTTPServer struct {
	routes     *auth.RouteHandler
	httpServer *http.Server
	addr       string
	logger     *slog.Logger
	metrics    *instrumentation.Metrics
}

// NewAuthHTTPServer creates the authorization HTTP server.
func NewAuthHTTPServer(cfg AuthHTTPServerConfig) (*AuthHTTPServer, error) {
	if cfg.Manager == nil {
		return nil, fmt.Errorf("auth manager is required for auth http server")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAuthAddr
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &AuthHTTPServer{
		routes:  auth.NewRouteHandler(cfg.Manager, cfg.Logger),
		addr:    cfg.Addr,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// OnAuthenticated registers a hook invoked after a callback exchange has
// persisted tokens. The auth login command uses it to know when to exit.
func (s *AuthHTTPServer) OnAuthenticated(fn func(*auth.TokenRecord)) {
	s.routes.OnAuthenticated(fn)
}

// Addr returns the configured listen address.
func (s *AuthHTTPServer) Addr() string {
	return s.addr
}

// AuthURL returns the browser URL that starts the consent flow.
func (s *AuthHTTPServer) AuthURL() string {
	host := s.addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}
	return "http://" + host + "/auth"
}

func (s *AuthHTTPServer) buildServer() {
	mux := http.NewServeMux()
	s.routes.Register(mux)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           requestMetricsMiddleware(s.metrics, mux),
		ReadHeaderTimeout: DefaultAuthReadHeaderTimeout,
		WriteTimeout:      DefaultAuthWriteTimeout,
		IdleTimeout:       DefaultAuthIdleTimeout,
	}
}

// Start runs the server until Shutdown or a listener error. Call it in a
// goroutine for non-blocking operation.
func (s *AuthHTTPServer) Start() error {
	s.buildServer()
	s.logger.Info("starting auth http server", "addr", s.addr)
	return s.httpServer.ListenAndServe()
}

// StartWithReadySignal is Start, but closes ready once the listener is
// bound. Callers use it to print the auth URL only when the server can
// actually answer.
func (s *AuthHTTPServer) StartWithReadySignal(ready chan struct{}) error {
	s.buildServer()

	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.logger.Info("starting auth http server", "addr", s.addr)
	close(ready)
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server.
func (s *AuthHTTPServer) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		s.logger.Info("shutting down auth http server")
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
