package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/outlook-mcp/internal/auth"
	"github.com/teemow/outlook-mcp/internal/instrumentation"
	"github.com/teemow/outlook-mcp/internal/logging"
	"github.com/teemow/outlook-mcp/internal/resources"
	"github.com/teemow/outlook-mcp/internal/server"
	"github.com/teemow/outlook-mcp/internal/tools/auth_tools"
	"github.com/teemow/outlook-mcp/internal/tools/calendar_tools"
	"github.com/teemow/outlook-mcp/internal/tools/folder_tools"
	"github.com/teemow/outlook-mcp/internal/tools/mail_tools"
	"github.com/teemow/outlook-mcp/internal/tools/rules_tools"
)

// MetricsConfig carries the metrics listener settings from flags into
// runServe.
type MetricsConfig struct {
	// Enabled starts the dedicated metrics listener (on by default).
	Enabled bool

	// Addr is the metrics listen address, e.g. ":9090".
	Addr string
}

func newServeCmd() *cobra.Command {
	var (
		debugMode        bool
		transport        string
		httpAddr         string
		authAddr         string
		yolo             bool
		disableStreaming bool
		clientID         string
		clientSecret     string
		tenantID         string
		redirectURI      string
		scopes           string
		tokenFile        string
		metricsEnabled   bool
		metricsAddr      string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing Outlook mail,
folder, calendar, and inbox-rule tools for AI assistants.

Supports multiple transport types:
  - stdio: Standard input/output (default)
  - streamable-http: Streamable HTTP transport

Safety Mode:
  By default, the server operates in read-only mode, providing only safe
  operations. Use --yolo to enable write operations (sending mail, moving
  messages, creating events and rules).

Authentication:
  The server needs an Azure app registration. Provide the client credentials
  via --client-id and --client-secret or the OUTLOOK_CLIENT_ID and
  OUTLOOK_CLIENT_SECRET environment variables. An authorization HTTP server
  runs alongside the MCP transport; open its /auth page in a browser to
  grant access. Tokens are persisted and refreshed automatically.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			authConfig := auth.NewConfigFromEnv()
			if clientID != "" {
				authConfig.ClientID = clientID
			}
			if clientSecret != "" {
				authConfig.ClientSecret = clientSecret
			}
			if tenantID != "" {
				authConfig.TenantID = tenantID
			}
			if redirectURI != "" {
				authConfig.RedirectURI = redirectURI
			}
			if scopes != "" {
				authConfig.Scopes = parseCommaSeparatedList(scopes)
			}
			if tokenFile != "" {
				authConfig.TokenFile = tokenFile
			}

			metricsConfig := MetricsConfig{
				Enabled: metricsEnabled,
				Addr:    metricsAddr,
			}

			return runServe(cmd, serveOptions{
				Transport:        transport,
				Debug:            debugMode,
				HTTPAddr:         httpAddr,
				AuthAddr:         authAddr,
				Yolo:             yolo,
				DisableStreaming: disableStreaming,
				AuthConfig:       authConfig,
				Metrics:          metricsConfig,
			})
		},
	}

	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport type: stdio or streamable-http")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address (for streamable-http transport)")
	cmd.Flags().StringVar(&authAddr, "auth-addr", "", "Authorization server address. Defaults to the port of the redirect URI.")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable write operations (sending mail, moving messages, creating events and rules). Default is read-only mode.")
	cmd.Flags().BoolVar(&disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "Azure app registration client ID. Can also use OUTLOOK_CLIENT_ID env var.")
	cmd.Flags().StringVar(&clientSecret, "client-secret", "", "Azure app registration client secret. Can also use OUTLOOK_CLIENT_SECRET env var.")
	cmd.Flags().StringVar(&tenantID, "tenant-id", "", "Azure tenant: common, organizations, consumers, or a directory GUID. Can also use OUTLOOK_TENANT_ID env var.")
	cmd.Flags().StringVar(&redirectURI, "redirect-uri", "", "OAuth redirect URI registered with the app. Can also use OUTLOOK_REDIRECT_URI env var.")
	cmd.Flags().StringVar(&scopes, "scopes", "", "Comma-separated OAuth scopes to request. Can also use OUTLOOK_SCOPES env var.")
	cmd.Flags().StringVar(&tokenFile, "token-file", "", "Path of the persisted token record. Can also use OUTLOOK_TOKEN_FILE env var.")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// serveOptions carries the resolved serve configuration into runServe.
type serveOptions struct {
	Transport        string
	Debug            bool
	HTTPAddr         string
	AuthAddr         string
	Yolo             bool
	DisableStreaming bool
	AuthConfig       *auth.Config
	Metrics          MetricsConfig
}

func runServe(cmd *cobra.Command, opts serveOptions) error {
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Environment variables apply only when the flag was not explicitly set
	if !cmd.Flags().Changed("metrics-enabled") {
		if os.Getenv("METRICS_ENABLED") == "false" {
			opts.Metrics.Enabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			opts.Metrics.Addr = addr
		}
	}

	// Logs always go to stderr: in stdio transport, stdout carries the MCP
	// protocol stream.
	logger := newLogger(opts.Debug)
	slog.SetDefault(logger)

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Error("instrumentation shutdown failed", logging.Err(err))
		}
	}()

	// The metrics listener only runs for HTTP transports: a stdio server is
	// a child process of the assistant and should not open ports.
	var metricsServer *server.MetricsServer
	if opts.Transport != "stdio" && opts.Metrics.Enabled && provider.Enabled() {
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.Metrics.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
			Logger:                  logging.WithComponent(logger, "metrics"),
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Fail fast if the metrics port cannot be bound.
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		select {
		case <-metricsReady:
			logger.Info("metrics server started", "addr", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}
	}

	// Credential manager; the Graph client, the tools, and the authorization
	// routes all share it.
	managerOpts := []auth.Option{auth.WithLogger(logging.WithComponent(logger, "auth"))}
	if provider.Enabled() {
		managerOpts = append(managerOpts, auth.WithMetrics(provider.Metrics()))
	}
	manager := auth.NewManager(opts.AuthConfig, managerOpts...)

	if !opts.AuthConfig.HasClientCredentials() {
		logger.Warn("no client credentials configured; mailbox tools will fail until OUTLOOK_CLIENT_ID and OUTLOOK_CLIENT_SECRET are set")
	}

	serverContext, err := server.NewServerContext(shutdownCtx, manager,
		server.WithContextLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}

	// The tool wrappers read these off the server context per invocation.
	if provider.Enabled() {
		serverContext.SetMetrics(provider.Metrics())
		serverContext.SetAuditLogger(instrumentation.NewAuditLoggerWithConfig(
			logging.WithComponent(logger, "audit"), instrConfig.AuditLogging))
	}
	defer func() {
		// Metrics listener first so the final scrape can still land.
		if metricsServer != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("metrics server shutdown failed", logging.Err(err))
			}
		}
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("server context shutdown failed", logging.Err(err))
		}
	}()

	// The authorization server runs for both transports so the browser
	// consent flow stays reachable while the server is up.
	authAddr := opts.AuthAddr
	if authAddr == "" {
		authAddr = addrFromRedirectURI(opts.AuthConfig.RedirectURI)
	}
	authServer, err := server.NewAuthHTTPServer(server.AuthHTTPServerConfig{
		Addr:    authAddr,
		Manager: manager,
		Logger:  logging.WithComponent(logger, "auth-server"),
		Metrics: serverContext.Metrics(),
	})
	if err != nil {
		return fmt.Errorf("failed to create authorization server: %w", err)
	}

	authReady := make(chan struct{})
	authErr := make(chan error, 1)
	go func() {
		if err := authServer.StartWithReadySignal(authReady); err != nil && err != http.ErrServerClosed {
			authErr <- err
		}
		close(authErr)
	}()

	select {
	case <-authReady:
		logger.Info("authorization server started",
			"addr", authServer.Addr(), "auth_url", authServer.AuthURL())
	case err := <-authErr:
		return fmt.Errorf("authorization server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return fmt.Errorf("authorization server startup timed out")
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := authServer.Shutdown(ctx); err != nil {
			logger.Error("authorization server shutdown failed", logging.Err(err))
		}
	}()

	mcpSrv := mcpserver.NewMCPServer("outlook-mcp", version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, false), // subscribe, listChanged
	)

	readOnly := !opts.Yolo
	if readOnly {
		logger.Info("starting in read-only mode (use --yolo to enable write operations)")
	} else {
		logger.Info("write operations enabled (--yolo)")
	}

	if err := registerAllTools(mcpSrv, serverContext, readOnly); err != nil {
		return err
	}

	switch opts.Transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "streamable-http":
		return runStreamableHTTPServer(shutdownCtx, mcpSrv, serverContext, opts.HTTPAddr, opts.DisableStreaming, provider, opts.Metrics)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http)", opts.Transport)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, addr string, disableStreaming bool, provider *instrumentation.Provider, metricsConfig MetricsConfig) error {
	httpServer, err := server.NewMCPHTTPServer(mcpSrv, disableStreaming)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	httpServer.SetHealthChecker(server.NewHealthChecker(sc))
	httpServer.SetLogger(logging.WithComponent(sc.Logger(), "mcp"))
	if provider.Enabled() {
		httpServer.SetMetrics(provider.Metrics())
	}

	fmt.Printf("Streamable HTTP server starting on %s\n", addr)
	fmt.Printf("  MCP endpoint: /mcp\n")
	fmt.Printf("  Health endpoints: /healthz, /readyz\n")
	if metricsConfig.Enabled {
		fmt.Printf("  Metrics endpoint: %s/metrics\n", metricsConfig.Addr)
	}

	ready := make(chan struct{})
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.StartWithReadySignal(addr, ready); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case <-ready:
	case err := <-serverDone:
		return fmt.Errorf("HTTP server failed to start: %w", err)
	case <-time.After(5 * time.Second):
		return fmt.Errorf("HTTP server startup timed out")
	}

	select {
	case <-ctx.Done():
		fmt.Println("Shutdown signal received, stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		fmt.Println("HTTP server stopped normally")
	}

	fmt.Println("HTTP server gracefully stopped")
	return nil
}

// registerAllTools wires every tool package and the user resources into the
// MCP server, failing on the first registration error.
func registerAllTools(mcpSrv *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	type toolRegistration struct {
		name     string
		register func() error
	}

	registrations := []toolRegistration{
		{
			name: "Authentication",
			register: func() error {
				return auth_tools.RegisterAuthTools(mcpSrv, sc)
			},
		},
		{
			name: "Mail",
			register: func() error {
				return mail_tools.RegisterMailTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Folders",
			register: func() error {
				return folder_tools.RegisterFolderTools(mcpSrv, sc)
			},
		},
		{
			name: "Calendar",
			register: func() error {
				return calendar_tools.RegisterCalendarTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "Rules",
			register: func() error {
				return rules_tools.RegisterRulesTools(mcpSrv, sc, readOnly)
			},
		},
		{
			name: "User Resources",
			register: func() error {
				return resources.RegisterUserResources(mcpSrv, sc)
			},
		},
	}

	for _, reg := range registrations {
		if err := reg.register(); err != nil {
			return fmt.Errorf("failed to register %s: %w", reg.name, err)
		}
	}

	return nil
}

// newLogger builds the process logger. Debug mode lowers the level; the
// handler always writes to stderr.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// addrFromRedirectURI derives the authorization server's listen address from
// the port of the redirect URI, so the provider's callback lands on this
// process.
func addrFromRedirectURI(redirectURI string) string {
	u, err := url.Parse(redirectURI)
	if err != nil || u.Port() == "" {
		return server.DefaultAuthAddr
	}
	return ":" + u.Port()
}

// parseCommaSeparatedList splits s on commas, trims each element, and drops
// empty ones; it returns nil when nothing remains.
func parseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}
