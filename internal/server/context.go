package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/outlook-mcp/internal/auth"
	"github.com/teemow/outlook-mcp/internal/graph"
	"github.com/teemow/outlook-mcp/internal/instrumentation"
	"github.com/teemow/outlook-mcp/internal/logging"
)

// ServerContext holds the shared state of the MCP server: the credential
// manager, the lazily created Graph client, and optional instrumentation.
// All methods are safe for concurrent use by tool handlers.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	authManager *auth.Manager
	logger      *slog.Logger

	mu          sync.RWMutex
	graphClient *graph.Client
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	shutdown    bool
}

// ContextOption configures a ServerContext.
type ContextOption func(*ServerContext)

// WithContextLogger sets the structured logger used by the context and the
// clients it creates.
func WithContextLogger(logger *slog.Logger) ContextOption {
	return func(sc *ServerContext) {
		if logger != nil {
			sc.logger = logger
		}
	}
}

// NewServerContext creates the server context around the credential manager.
// The Graph client is created lazily on first use, so serving can start
// before the user has authenticated.
func NewServerContext(ctx context.Context, manager *auth.Manager, opts ...ContextOption) (*ServerContext, error) {
	if manager == nil {
		return nil, fmt.Errorf("auth manager is required")
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:         shutdownCtx,
		cancel:      cancel,
		authManager: manager,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc, nil
}

// Context returns the shutdown-aware context. Long-running operations should
// derive from it so Shutdown cancels them.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// AuthManager returns the credential manager.
func (sc *ServerContext) AuthManager() *auth.Manager {
	return sc.authManager
}

// Logger returns the structured logger.
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// GraphClient returns the Graph client, creating it on first use. The client
// picks up the metrics recorder configured at creation time, so set metrics
// before serving traffic.
func (sc *ServerContext) GraphClient() *graph.Client {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.graphClient == nil {
		opts := []graph.Option{
			graph.WithLogger(logging.WithComponent(sc.logger, "graph")),
		}
		if sc.metrics != nil {
			opts = append(opts, graph.WithMetrics(sc.metrics))
		}
		sc.graphClient = graph.NewClient(sc.authManager, opts...)
	}
	return sc.graphClient
}

// SetGraphClient replaces the Graph client. Tests use this to point tool
// handlers at a stub Graph server.
func (sc *ServerContext) SetGraphClient(client *graph.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.graphClient = client
}

// Metrics returns the metrics recorder, or nil when instrumentation is
// disabled.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetMetrics sets the metrics recorder used by tool instrumentation and by
// Graph clients created after this call.
func (sc *ServerContext) SetMetrics(metrics *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = metrics
}

// AuditLogger returns the audit logger, or nil when audit logging is
// disabled.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetAuditLogger sets the audit logger used by tool instrumentation.
func (sc *ServerContext) SetAuditLogger(logger *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = logger
}

// IsShutdown reports whether Shutdown has been called.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. Safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()
	return nil
}
