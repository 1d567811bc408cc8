package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// MetricsRecorder receives credential lifecycle outcomes. The
// instrumentation package's Metrics satisfies it; a nil recorder disables
// reporting.
type MetricsRecorder interface {
	RecordOAuthAuth(ctx context.Context, result string)
	RecordOAuthTokenRefresh(ctx context.Context, result string)
}

// Manager owns the credential lifecycle for one identity: the in-memory
// cache, the file-backed store, the refresh/exchange flows, and the
// last-reason diagnostic slot. Construct one per process and share it.
type Manager struct {
	cfg        *Config
	cache      *TokenCache
	store      *TokenStore
	reasons    *reasonSlot
	httpClient *http.Client
	logger     *slog.Logger
	metrics    MetricsRecorder

	refreshGroup singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithHTTPClient sets the client used for token endpoint requests. The
// default has a 30 second timeout; token exchanges must not hang forever.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithMetrics sets the lifecycle metrics recorder.
func WithMetrics(rec MetricsRecorder) Option {
	return func(m *Manager) {
		m.metrics = rec
	}
}

// NewManager builds the credential lifecycle around cfg.
func NewManager(cfg *Config, opts ...Option) *Manager {
	m := &Manager{
		cfg:        cfg,
		logger:     slog.Default(),
		httpClient: &http.Client{Timeout: DefaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(m)
	}

	m.cache = NewTokenCache(cfg.RefreshBuffer)
	m.reasons = &reasonSlot{}
	m.store = newTokenStore(cfg.TokenFile, m.cache, m.reasons, m.logger)
	return m
}

// Config returns the manager's configuration.
func (m *Manager) Config() *Config {
	return m.cfg
}

// Store exposes the token store for status probes and explicit clears.
func (m *Manager) Store() *TokenStore {
	return m.store
}

// Cache exposes the in-memory token slot.
func (m *Manager) Cache() *TokenCache {
	return m.cache
}

// LastReason returns a copy of the most recent failure classification, or
// nil after a success.
func (m *Manager) LastReason() *Reason {
	return m.reasons.get()
}

// GetAccessToken walks the cache → store → refresh ladder and returns a
// usable bearer token. A cached non-expired record is returned without any
// disk or network I/O. On failure it returns the deepest error; the reason
// slot keeps the matching classification for diagnosis.
func (m *Manager) GetAccessToken(ctx context.Context) (string, error) {
	now := time.Now()
	buffer := m.cache.Buffer()

	if rec := m.cache.Get(); !rec.Expired(now, buffer) {
		m.reasons.clear()
		return rec.AccessToken, nil
	}

	if rec, err := m.store.Load(); err == nil && !rec.Expired(now, buffer) {
		return rec.AccessToken, nil
	}

	rec, err := m.Refresh(ctx)
	if err != nil {
		return "", err
	}
	return rec.AccessToken, nil
}

// EnsureAuthenticated returns a usable access token, or an *AuthError whose
// message tells the user how to get unstuck. The message is chosen from the
// recorded reason; IsAuthError(err) is true for every failure returned here.
func (m *Manager) EnsureAuthenticated(ctx context.Context) (string, error) {
	token, err := m.GetAccessToken(ctx)
	if err == nil {
		return token, nil
	}

	reason := m.reasons.get()
	authErr := &AuthError{
		Message: guidance(reason, err),
		Err:     err,
	}
	if reason != nil {
		authErr.Code = reason.Code
		authErr.Path = reason.Path
		authErr.StatusCode = reason.StatusCode
		authErr.RawBody = reason.RawBody
	}
	return "", authErr
}

// guidance translates the recorded failure into an actionable message. This
// is the only place reason codes become prose.
func guidance(reason *Reason, err error) string {
	if reason == nil {
		if errors.Is(err, ErrNoRefreshToken) {
			return "Your session has expired and no refresh token is available. Run the authenticate tool to sign in again."
		}
		return "Authentication required. Run the authenticate tool to sign in."
	}

	switch reason.Code {
	case ReasonTokenFileMissing:
		return "Not authenticated yet: no saved tokens were found. Run the authenticate tool to sign in."
	case ReasonTokenFileInvalidJSON, ReasonTokenFileInvalidShape, ReasonTokenFileReadError:
		return "The saved tokens are unreadable. Run the authenticate tool to sign in again."
	case ReasonClientConfigMissing:
		return "The OAuth client is not configured. Set OUTLOOK_CLIENT_ID and OUTLOOK_CLIENT_SECRET and restart."
	case ReasonRefreshFailedInvalidClient, ReasonCodeExchangeInvalidClient:
		return "The identity provider rejected the client credentials. Check that OUTLOOK_CLIENT_SECRET holds the client secret VALUE, not the secret ID."
	case ReasonRefreshNetworkError, ReasonCodeExchangeNetworkError:
		return "Could not reach the identity provider. Check connectivity and try again."
	case ReasonRefreshFailed, ReasonCodeExchangeFailed:
		return fmt.Sprintf("The identity provider rejected the request: %s. Run the authenticate tool if this persists.", reason.Message)
	default:
		return "Authentication required. Run the authenticate tool to sign in."
	}
}

// TokenSource adapts the manager to oauth2.TokenSource. Token consults the
// facade on every call, so a transport built on it honors the cache → store
// → refresh ladder for each outgoing request.
func (m *Manager) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &managerTokenSource{m: m, ctx: ctx}
}

type managerTokenSource struct {
	m   *Manager
	ctx context.Context
}

func (ts *managerTokenSource) Token() (*oauth2.Token, error) {
	if _, err := ts.m.EnsureAuthenticated(ts.ctx); err != nil {
		return nil, err
	}
	// A concurrent Clear can empty the slot between the facade call and
	// this read.
	rec := ts.m.cache.Get()
	if !rec.Valid() {
		return nil, &AuthError{Message: "authentication was cleared while a request was in flight"}
	}
	return rec.OAuth2Token(), nil
}
