package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/teemow/outlook-mcp/internal/auth"
	"github.com/teemow/outlook-mcp/internal/logging"
	"github.com/teemow/outlook-mcp/internal/server"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the stored Microsoft credentials",
		Long: `Manage the OAuth2 credentials this server uses against Microsoft Graph.

The login subcommand starts the authorization server, prints the URL of the
consent page, and waits until the browser flow has persisted tokens. The
status and clear subcommands inspect and remove the stored record.`,
	}

	cmd.AddCommand(newAuthLoginCmd())
	cmd.AddCommand(newAuthStatusCmd())
	cmd.AddCommand(newAuthClearCmd())
	return cmd
}

func newAuthLoginCmd() *cobra.Command {
	var authAddr string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate interactively via the browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := auth.NewConfigFromEnv()
			if !cfg.HasClientCredentials() {
				return fmt.Errorf("client credentials missing: set OUTLOOK_CLIENT_ID and OUTLOOK_CLIENT_SECRET")
			}

			ctx, cancel := signal.NotifyContext(context.Background(),
				os.Interrupt, syscall.SIGTERM)
			defer cancel()

			logger := newLogger(false)
			manager := auth.NewManager(cfg,
				auth.WithLogger(logging.WithComponent(logger, "auth")))

			if authAddr == "" {
				authAddr = addrFromRedirectURI(cfg.RedirectURI)
			}
			authServer, err := server.NewAuthHTTPServer(server.AuthHTTPServerConfig{
				Addr:    authAddr,
				Manager: manager,
				Logger:  logging.WithComponent(logger, "auth-server"),
			})
			if err != nil {
				return fmt.Errorf("failed to create authorization server: %w", err)
			}

			done := make(chan *auth.TokenRecord, 1)
			authServer.OnAuthenticated(func(rec *auth.TokenRecord) {
				done <- rec
			})

			ready := make(chan struct{})
			serverErr := make(chan error, 1)
			go func() {
				if err := authServer.StartWithReadySignal(ready); err != nil && err != http.ErrServerClosed {
					serverErr <- err
				}
				close(serverErr)
			}()

			select {
			case <-ready:
			case err := <-serverErr:
				return fmt.Errorf("authorization server failed to start: %w", err)
			case <-time.After(5 * time.Second):
				return fmt.Errorf("authorization server startup timed out")
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := authServer.Shutdown(shutdownCtx); err != nil {
					logger.Error("authorization server shutdown failed", logging.Err(err))
				}
			}()

			fmt.Printf("Open this URL in your browser to sign in:\n\n  %s\n\nWaiting for the callback (Ctrl-C to abort)...\n", authServer.AuthURL())

			select {
			case rec := <-done:
				fmt.Printf("Authenticated. Token valid until %s, stored at %s.\n",
					rec.ExpiryTime().Format(time.RFC3339), manager.Store().Path())
				return nil
			case err := <-serverErr:
				if err != nil {
					return fmt.Errorf("authorization server stopped: %w", err)
				}
				return fmt.Errorf("authorization server stopped before the flow completed")
			case <-ctx.Done():
				return fmt.Errorf("aborted before the flow completed")
			}
		},
	}

	cmd.Flags().StringVar(&authAddr, "auth-addr", "", "Authorization server address. Defaults to the port of the redirect URI.")
	return cmd
}

func newAuthStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report the state of the stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := auth.NewConfigFromEnv()
			logger := newLogger(false)
			manager := auth.NewManager(cfg, auth.WithLogger(logger))

			rec, err := manager.Store().LoadSync()
			if err != nil {
				fmt.Printf("Not authenticated: %v\n", err)
				if reason := manager.LastReason(); reason != nil {
					fmt.Printf("Reason: %s\n", reason.Code)
				}
				fmt.Printf("Token file: %s\n", manager.Store().Path())
				fmt.Println("Run 'outlook-mcp auth login' to authenticate.")
				return nil
			}

			expiry := rec.ExpiryTime()
			switch {
			case !rec.Expired(time.Now(), 0):
				fmt.Printf("Authenticated. Token valid until %s.\n", expiry.Format(time.RFC3339))
			case rec.RefreshToken != "":
				fmt.Printf("Token expired at %s; a refresh token is stored and will be used automatically.\n",
					expiry.Format(time.RFC3339))
			default:
				fmt.Printf("Token expired at %s and no refresh token is stored.\n", expiry.Format(time.RFC3339))
				fmt.Println("Run 'outlook-mcp auth login' to authenticate.")
			}
			fmt.Printf("Token file: %s\n", manager.Store().Path())
			return nil
		},
	}
}

func newAuthClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove the stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := auth.NewConfigFromEnv()
			logger := newLogger(false)
			manager := auth.NewManager(cfg, auth.WithLogger(logger))

			manager.Store().Clear()
			fmt.Printf("Stored credentials cleared (%s).\n", manager.Store().Path())
			return nil
		},
	}
}
