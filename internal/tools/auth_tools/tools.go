package auth_tools

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/outlook-mcp/internal/auth"
	"github.com/teemow/outlook-mcp/internal/server"
	"github.com/teemow/outlook-mcp/internal/tools/common"
)

// RegisterAuthTools registers credential lifecycle tools with the MCP server.
// They stay available in read-only mode: they manage the server's own
// Microsoft credentials, not mailbox content.
func RegisterAuthTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	// Authenticate tool
	authenticateTool := mcp.NewTool("authenticate",
		mcp.WithDescription("Start interactive authentication with Microsoft. Returns a URL to open in a browser; after consent the server stores and auto-refreshes the tokens."),
	)

	s.AddTool(authenticateTool, common.InstrumentedToolHandler(
		"authenticate", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleAuthenticate(ctx, request, sc)
		}))

	// Check auth status tool
	checkStatusTool := mcp.NewTool("check-auth-status",
		mcp.WithDescription("Report whether a Microsoft token is present, valid, or expired."),
	)

	s.AddTool(checkStatusTool, common.InstrumentedToolHandler(
		"check-auth-status", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleCheckAuthStatus(ctx, request, sc)
		}))

	// Clear authentication tool
	clearTool := mcp.NewTool("clear-authentication",
		mcp.WithDescription("Remove the stored Microsoft tokens. The next mailbox operation will require authenticating again."),
	)

	s.AddTool(clearTool, common.InstrumentedToolHandler(
		"clear-authentication", sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleClearAuthentication(ctx, request, sc)
		}))

	return nil
}

// authPageURL derives the interactive sign-in URL from the configured
// redirect URI; the auth HTTP server listens on the same host and port.
func authPageURL(cfg *auth.Config) (string, error) {
	u, err := url.Parse(cfg.RedirectURI)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid redirect URI %q", cfg.RedirectURI)
	}
	return u.Scheme + "://" + u.Host + "/auth", nil
}

func handleAuthenticate(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	manager := sc.AuthManager()

	if rec, err := manager.Store().LoadSync(); err == nil && !rec.Expired(time.Now(), manager.Cache().Buffer()) {
		return mcp.NewToolResultText(fmt.Sprintf(
			"Already authenticated. The current token is valid until %s.\nRun clear-authentication first to sign in with a different account.",
			rec.ExpiryTime().Format(time.RFC3339))), nil
	}

	if !manager.Config().HasClientCredentials() {
		return mcp.NewToolResultError("OAuth client credentials are not configured. Set OUTLOOK_CLIENT_ID and OUTLOOK_CLIENT_SECRET and restart the server."), nil
	}

	authURL, err := authPageURL(manager.Config())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to derive the sign-in URL: %v", err)), nil
	}

	msg := fmt.Sprintf(`To authenticate with Microsoft:

1. Open this URL in your browser:
   %s

2. Sign in and grant the requested permissions.
3. The browser returns to this server, which stores the tokens.

You only need to do this once; tokens are refreshed automatically.`, authURL)

	return mcp.NewToolResultText(msg), nil
}

func handleCheckAuthStatus(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	manager := sc.AuthManager()

	rec, err := manager.Store().LoadSync()
	if err != nil {
		// A status probe answering "not authenticated" is a result, not a
		// tool failure.
		msg := fmt.Sprintf("Not authenticated: %v", err)
		if reason := manager.LastReason(); reason != nil {
			msg += fmt.Sprintf("\nDetail: %s: %s", reason.Code, reason.Message)
		}
		msg += "\nRun the authenticate tool to sign in."
		return mcp.NewToolResultText(msg), nil
	}

	now := time.Now()
	expiry := rec.ExpiryTime().Format(time.RFC3339)

	switch {
	case rec.Expired(now, 0):
		if rec.RefreshToken != "" {
			return mcp.NewToolResultText(fmt.Sprintf(
				"Token expired at %s. A refresh token is stored; the next mailbox operation will refresh it automatically.", expiry)), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf(
			"Token expired at %s and no refresh token is stored. Run the authenticate tool to sign in again.", expiry)), nil
	case rec.Expired(now, manager.Cache().Buffer()):
		return mcp.NewToolResultText(fmt.Sprintf(
			"Token expires at %s (inside the refresh buffer); it will be refreshed on next use.", expiry)), nil
	default:
		return mcp.NewToolResultText(fmt.Sprintf("Authenticated. Token valid until %s.", expiry)), nil
	}
}

func handleClearAuthentication(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	sc.AuthManager().Store().Clear()
	return mcp.NewToolResultText("Stored credentials cleared. Run the authenticate tool to sign in again."), nil
}
