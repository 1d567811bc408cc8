package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/teemow/outlook-mcp/internal/logging"
)

// Metric result values reported through the MetricsRecorder.
const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// grantCodes maps one grant's failure modes onto the reason taxonomy.
type grantCodes struct {
	network       ReasonCode
	rejected      ReasonCode
	invalidClient ReasonCode
}

var (
	refreshCodes = grantCodes{
		network:       ReasonRefreshNetworkError,
		rejected:      ReasonRefreshFailed,
		invalidClient: ReasonRefreshFailedInvalidClient,
	}
	exchangeCodes = grantCodes{
		network:       ReasonCodeExchangeNetworkError,
		rejected:      ReasonCodeExchangeFailed,
		invalidClient: ReasonCodeExchangeInvalidClient,
	}
)

// providerError is the OAuth2 error payload (RFC 6749 section 5.2).
type providerError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// ExchangeCode redeems an authorization code for a fresh token record and
// persists it. This is the first-login path, driven by the /auth/callback
// route or the authenticate tool.
func (m *Manager) ExchangeCode(ctx context.Context, code string) (*TokenRecord, error) {
	if !m.cfg.HasClientCredentials() {
		m.recordAuth(ctx, resultFailure)
		return nil, m.fail(clientConfigMissingError())
	}

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {m.cfg.RedirectURI},
		"client_id":     {m.cfg.ClientID},
		"client_secret": {m.cfg.ClientSecret},
		"scope":         {m.cfg.ScopeString()},
	}

	rec, err := m.doTokenRequest(ctx, form, exchangeCodes)
	if err != nil {
		m.recordAuth(ctx, resultFailure)
		return nil, err
	}
	if err := m.store.Save(rec); err != nil {
		m.recordAuth(ctx, resultFailure)
		return nil, fmt.Errorf("persisting exchanged tokens: %w", err)
	}

	m.recordAuth(ctx, resultSuccess)
	m.logger.Info("authorization code exchanged",
		slog.Time("expires_at", rec.ExpiryTime()),
		slog.String("access_token", logging.SanitizeToken(rec.AccessToken)),
		slog.Bool("refresh_token", rec.RefreshToken != ""))
	return rec, nil
}

// Refresh exchanges the stored refresh token for a new token record. All
// concurrent callers share one in-flight exchange and receive the identical
// record or error; a duplicate refresh could invalidate a rotated refresh
// token at the provider.
func (m *Manager) Refresh(ctx context.Context) (*TokenRecord, error) {
	v, err, _ := m.refreshGroup.Do("refresh", func() (any, error) {
		return m.doRefresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*TokenRecord), nil
}

func (m *Manager) doRefresh(ctx context.Context) (*TokenRecord, error) {
	if !m.cfg.HasClientCredentials() {
		m.recordRefresh(ctx, resultFailure)
		return nil, m.fail(clientConfigMissingError())
	}

	// The cache may be empty while the disk copy still holds a refresh
	// token; fall back to a fresh read before giving up.
	prior := m.cache.Get()
	if prior == nil || prior.RefreshToken == "" {
		if rec, err := m.store.Load(); err == nil {
			prior = rec
		}
	}
	if prior == nil || prior.RefreshToken == "" {
		m.recordRefresh(ctx, resultFailure)
		return nil, ErrNoRefreshToken
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {prior.RefreshToken},
		"client_id":     {m.cfg.ClientID},
		"client_secret": {m.cfg.ClientSecret},
		"scope":         {m.cfg.ScopeString()},
	}

	rec, err := m.doTokenRequest(ctx, form, refreshCodes)
	if err != nil {
		m.recordRefresh(ctx, resultFailure)
		return nil, err
	}

	// Providers omit the refresh token when it has not rotated.
	if rec.RefreshToken == "" {
		rec.RefreshToken = prior.RefreshToken
	}
	if err := m.store.Save(rec); err != nil {
		m.recordRefresh(ctx, resultFailure)
		return nil, fmt.Errorf("persisting refreshed tokens: %w", err)
	}

	m.recordRefresh(ctx, resultSuccess)
	m.logger.Info("access token refreshed",
		slog.Time("expires_at", rec.ExpiryTime()),
		slog.String("access_token", logging.SanitizeToken(rec.AccessToken)))
	return rec, nil
}

// doTokenRequest posts a form to the token endpoint and converts the
// response into a token record, classifying transport faults and provider
// rejections with the given grant's codes. It never retries.
func (m *Manager) doTokenRequest(ctx context.Context, form url.Values, codes grantCodes) (*TokenRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, m.fail(&AuthError{
			Code:    codes.network,
			Message: fmt.Sprintf("building token request: %v", err),
			Err:     err,
		})
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	issuedAt := time.Now()
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, m.fail(&AuthError{
			Code:    codes.network,
			Message: fmt.Sprintf("token endpoint unreachable: %v", err),
			Err:     err,
		})
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, m.fail(&AuthError{
			Code:    codes.network,
			Message: fmt.Sprintf("reading token response: %v", err),
			Err:     err,
		})
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, m.fail(classifyRejection(resp.StatusCode, body, codes))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, m.fail(&AuthError{
			Code:       codes.rejected,
			Message:    fmt.Sprintf("decoding token response: %v", err),
			StatusCode: resp.StatusCode,
			RawBody:    string(body),
			Err:        err,
		})
	}
	return newTokenRecord(&tr, issuedAt), nil
}

// classifyRejection builds the error for a non-2xx token endpoint response.
// The message prefers the provider's error_description, then its error code,
// then the bare status.
func classifyRejection(status int, body []byte, codes grantCodes) *AuthError {
	var pe providerError
	_ = json.Unmarshal(body, &pe) // body may not be JSON

	code := codes.rejected
	if pe.Error == "invalid_client" || strings.Contains(string(body), "invalid_client") {
		code = codes.invalidClient
	}

	msg := pe.ErrorDescription
	if msg == "" {
		msg = pe.Error
	}
	if msg == "" {
		msg = fmt.Sprintf("token endpoint returned status %d", status)
	}

	return &AuthError{
		Code:       code,
		Message:    msg,
		StatusCode: status,
		RawBody:    string(body),
	}
}

func clientConfigMissingError() *AuthError {
	return &AuthError{
		Code:    ReasonClientConfigMissing,
		Message: "client id and secret are not configured; set OUTLOOK_CLIENT_ID and OUTLOOK_CLIENT_SECRET",
	}
}

// fail records the error in the reason slot and hands it back.
func (m *Manager) fail(e *AuthError) *AuthError {
	m.reasons.record(e.reason())
	m.logger.Debug("auth operation failed",
		logging.ReasonCode(string(e.Code)),
		logging.Err(e))
	return e
}

func (m *Manager) recordRefresh(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordOAuthTokenRefresh(ctx, result)
	}
}

func (m *Manager) recordAuth(ctx context.Context, result string) {
	if m.metrics != nil {
		m.metrics.RecordOAuthAuth(ctx, result)
	}
}
