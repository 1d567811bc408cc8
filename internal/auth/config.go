package auth

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/oauth2/microsoft"
)

// Defaults applied by DefaultConfig and NewConfigFromEnv.
const (
	// DefaultTenantID is the multi-tenant endpoint segment used when no
	// tenant is configured.
	DefaultTenantID = "common"

	// DefaultRedirectURI must match one of the redirect URIs registered on
	// the Azure app registration.
	DefaultRedirectURI = "http://localhost:3333/auth/callback"

	// DefaultRefreshBuffer is how long before expiry a token is treated as
	// expired, so callers never present a token about to lapse mid-request.
	DefaultRefreshBuffer = 5 * time.Minute

	// DefaultHTTPTimeout bounds token endpoint round trips.
	DefaultHTTPTimeout = 30 * time.Second
)

// DefaultScopes covers the mailbox, calendar, and rules surface plus
// offline_access, which is required for the provider to issue refresh tokens.
var DefaultScopes = []string{
	"offline_access",
	"User.Read",
	"Mail.Read",
	"Mail.ReadWrite",
	"Mail.Send",
	"Calendars.ReadWrite",
	"MailboxSettings.ReadWrite",
}

// Config carries everything the credential lifecycle needs: app registration
// credentials, endpoint URLs, the requested scopes, and storage/expiry tuning.
type Config struct {
	// ClientID and ClientSecret identify the Azure app registration. The
	// secret is the secret VALUE shown once at creation, not the secret ID.
	ClientID     string
	ClientSecret string

	// TenantID selects the identity endpoint ("common", "organizations",
	// "consumers", or a directory GUID).
	TenantID string

	// RedirectURI is where the provider sends the browser after consent.
	RedirectURI string

	// Scopes requested during authorization and token exchange.
	Scopes []string

	// AuthorizeURL and TokenURL are derived from TenantID unless overridden.
	AuthorizeURL string
	TokenURL     string

	// TokenFile is the path of the persisted token record.
	TokenFile string

	// RefreshBuffer is subtracted from expires_at when deciding staleness.
	RefreshBuffer time.Duration
}

// DefaultConfig returns a Config populated with defaults for the "common"
// tenant. Client credentials are left empty; operations that need them fail
// with CLIENT_CONFIG_MISSING until they are set.
func DefaultConfig() *Config {
	endpoint := microsoft.AzureADEndpoint(DefaultTenantID)
	return &Config{
		TenantID:      DefaultTenantID,
		RedirectURI:   DefaultRedirectURI,
		Scopes:        append([]string(nil), DefaultScopes...),
		AuthorizeURL:  endpoint.AuthURL,
		TokenURL:      endpoint.TokenURL,
		TokenFile:     DefaultTokenFile(),
		RefreshBuffer: DefaultRefreshBuffer,
	}
}

// DefaultTokenFile returns the default token record path under the user's
// XDG data directory.
func DefaultTokenFile() string {
	return filepath.Join(xdg.DataHome, "outlook-mcp", "tokens.json")
}

// NewConfigFromEnv builds a Config from defaults layered with environment
// overrides:
//
//	OUTLOOK_CLIENT_ID, OUTLOOK_CLIENT_SECRET, OUTLOOK_TENANT_ID,
//	OUTLOOK_REDIRECT_URI, OUTLOOK_SCOPES (space-separated),
//	OUTLOOK_AUTHORIZE_URL, OUTLOOK_TOKEN_URL, OUTLOOK_TOKEN_FILE,
//	OUTLOOK_REFRESH_BUFFER_MS
//
// A blank or whitespace-only OUTLOOK_SCOPES falls back to DefaultScopes
// rather than requesting an empty scope set.
func NewConfigFromEnv() *Config {
	cfg := DefaultConfig()

	if v := os.Getenv("OUTLOOK_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("OUTLOOK_CLIENT_SECRET"); v != "" {
		cfg.ClientSecret = v
	}
	if v := os.Getenv("OUTLOOK_TENANT_ID"); v != "" {
		cfg.TenantID = v
		endpoint := microsoft.AzureADEndpoint(v)
		cfg.AuthorizeURL = endpoint.AuthURL
		cfg.TokenURL = endpoint.TokenURL
	}
	if v := os.Getenv("OUTLOOK_REDIRECT_URI"); v != "" {
		cfg.RedirectURI = v
	}
	if scopes := strings.Fields(os.Getenv("OUTLOOK_SCOPES")); len(scopes) > 0 {
		cfg.Scopes = scopes
	}
	// Explicit endpoint overrides win over the tenant-derived pair.
	if v := os.Getenv("OUTLOOK_AUTHORIZE_URL"); v != "" {
		cfg.AuthorizeURL = v
	}
	if v := os.Getenv("OUTLOOK_TOKEN_URL"); v != "" {
		cfg.TokenURL = v
	}
	if v := os.Getenv("OUTLOOK_TOKEN_FILE"); v != "" {
		cfg.TokenFile = v
	}
	if v := os.Getenv("OUTLOOK_REFRESH_BUFFER_MS"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ms < 0 {
			slog.Warn("ignoring invalid OUTLOOK_REFRESH_BUFFER_MS",
				"value", v)
		} else {
			cfg.RefreshBuffer = time.Duration(ms) * time.Millisecond
		}
	}

	return cfg
}

// HasClientCredentials reports whether both client id and secret are set.
// Refresh and code exchange require them.
func (c *Config) HasClientCredentials() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// ScopeString returns the scopes space-joined, as the provider expects them
// in authorize URLs and token request bodies.
func (c *Config) ScopeString() string {
	return strings.Join(c.Scopes, " ")
}

// Validate checks the fields every flow depends on. Client credentials are
// deliberately not validated here; their absence is a runtime condition with
// its own reason code.
func (c *Config) Validate() error {
	if c.AuthorizeURL == "" {
		return fmt.Errorf("authorize URL must not be empty")
	}
	if c.TokenURL == "" {
		return fmt.Errorf("token URL must not be empty")
	}
	if c.RedirectURI == "" {
		return fmt.Errorf("redirect URI must not be empty")
	}
	if c.TokenFile == "" {
		return fmt.Errorf("token file path must not be empty")
	}
	if len(c.Scopes) == 0 {
		return fmt.Errorf("at least one scope is required")
	}
	if c.RefreshBuffer < 0 {
		return fmt.Errorf("refresh buffer must not be negative")
	}
	return nil
}
