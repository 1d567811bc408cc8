package auth

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func newRouteServer(t *testing.T, h *RouteHandler) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	return string(body)
}

func TestHandleAuthorize(t *testing.T) {
	m := newTestManager(t, "http://127.0.0.1:1/token")
	srv := newRouteServer(t, NewRouteHandler(m, testLogger()))

	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := client.Get(srv.URL + "/auth")
	if err != nil {
		t.Fatalf("GET /auth: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusFound)
	}

	location := resp.Header.Get("Location")
	if !strings.HasPrefix(location, m.Config().AuthorizeURL) {
		t.Fatalf("Location = %q, want prefix %q", location, m.Config().AuthorizeURL)
	}
	loc, err := url.Parse(location)
	if err != nil {
		t.Fatalf("parsing Location: %v", err)
	}

	q := loc.Query()
	checks := map[string]string{
		"client_id":     "client-id",
		"response_type": "code",
		"redirect_uri":  m.Config().RedirectURI,
		"scope":         m.Config().ScopeString(),
		"response_mode": "query",
	}
	for key, want := range checks {
		if got := q.Get(key); got != want {
			t.Errorf("query %s = %q, want %q", key, got, want)
		}
	}
	if q.Get("state") == "" {
		t.Error("authorize redirect is missing the state parameter")
	}
}

func TestHandleAuthorizeWithoutClientID(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TokenFile = filepath.Join(t.TempDir(), "tokens.json")
	m := NewManager(cfg, WithLogger(testLogger()))
	srv := newRouteServer(t, NewRouteHandler(m, testLogger()))

	resp, err := http.Get(srv.URL + "/auth")
	if err != nil {
		t.Fatalf("GET /auth: %v", err)
	}
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	if !strings.Contains(body, "OUTLOOK_CLIENT_ID") {
		t.Errorf("error page should name the missing setting, got:\n%s", body)
	}
}

func TestCallbackRejectsMissingState(t *testing.T) {
	var exchanges int32
	tokenSrv := newCountingTokenServer(t, &exchanges)
	m := newTestManager(t, tokenSrv.URL)
	srv := newRouteServer(t, NewRouteHandler(m, testLogger()))

	// A callback carrying a code but no state did not originate from our
	// /auth redirect and must be rejected before any exchange.
	resp, err := http.Get(srv.URL + "/auth/callback?code=forged-code")
	if err != nil {
		t.Fatalf("GET /auth/callback: %v", err)
	}
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if !strings.Contains(body, "Missing state parameter") {
		t.Errorf("body should name the missing state, got:\n%s", body)
	}
	if n := atomic.LoadInt32(&exchanges); n != 0 {
		t.Errorf("token endpoint was called %d times for a stateless callback, want 0", n)
	}
	if _, err := os.Stat(m.Config().TokenFile); !os.IsNotExist(err) {
		t.Error("no token file should be written for a rejected callback")
	}
}

func TestCallbackProviderError(t *testing.T) {
	m := newTestManager(t, "http://127.0.0.1:1/token")
	srv := newRouteServer(t, NewRouteHandler(m, testLogger()))

	resp, err := http.Get(srv.URL + "/auth/callback?state=s&error=access_denied&error_description=user+cancelled")
	if err != nil {
		t.Fatalf("GET /auth/callback: %v", err)
	}
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if !strings.Contains(body, "access_denied: user cancelled") {
		t.Errorf("body should echo the provider error, got:\n%s", body)
	}
}

func TestCallbackMissingCode(t *testing.T) {
	m := newTestManager(t, "http://127.0.0.1:1/token")
	srv := newRouteServer(t, NewRouteHandler(m, testLogger()))

	resp, err := http.Get(srv.URL + "/auth/callback?state=s")
	if err != nil {
		t.Fatalf("GET /auth/callback: %v", err)
	}
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}
	if !strings.Contains(body, "No authorization code") {
		t.Errorf("body should name the missing code, got:\n%s", body)
	}
}

func TestCallbackSuccess(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(w, `{"access_token":"new-access","refresh_token":"new-refresh","expires_in":3600,"token_type":"Bearer"}`)
	}))
	defer tokenSrv.Close()

	m := newTestManager(t, tokenSrv.URL)
	h := NewRouteHandler(m, testLogger())
	authenticated := make(chan *TokenRecord, 1)
	h.OnAuthenticated(func(rec *TokenRecord) { authenticated <- rec })
	srv := newRouteServer(t, h)

	resp, err := http.Get(srv.URL + "/auth/callback?state=s&code=good-code")
	if err != nil {
		t.Fatalf("GET /auth/callback: %v", err)
	}
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d\n%s", resp.StatusCode, http.StatusOK, body)
	}
	if !strings.Contains(body, "Authentication successful") {
		t.Errorf("body should show the success page, got:\n%s", body)
	}

	select {
	case rec := <-authenticated:
		if rec.AccessToken != "new-access" {
			t.Errorf("hook received %+v, want the exchanged record", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("the authenticated hook was never invoked")
	}

	if _, err := os.Stat(m.Config().TokenFile); err != nil {
		t.Errorf("token file should be persisted after the callback: %v", err)
	}
	if got := m.Cache().Get(); got == nil || got.AccessToken != "new-access" {
		t.Errorf("cache after callback = %+v, want the exchanged record", got)
	}
}

func TestCallbackExchangeFailure(t *testing.T) {
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = fmt.Fprint(w, `{"error":"invalid_grant","error_description":"code already redeemed"}`)
	}))
	defer tokenSrv.Close()

	m := newTestManager(t, tokenSrv.URL)
	srv := newRouteServer(t, NewRouteHandler(m, testLogger()))

	resp, err := http.Get(srv.URL + "/auth/callback?state=s&code=used-code")
	if err != nil {
		t.Fatalf("GET /auth/callback: %v", err)
	}
	body := readBody(t, resp)

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusInternalServerError)
	}
	if !strings.Contains(body, "code already redeemed") {
		t.Errorf("body should carry the provider message, got:\n%s", body)
	}
}

func TestHandleTokenStatus(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		m := newTestManager(t, "http://127.0.0.1:1/token")
		if err := m.Store().Save(&TokenRecord{
			AccessToken: "persisted",
			ExpiresAt:   time.Now().Add(time.Hour).UnixMilli(),
		}); err != nil {
			t.Fatalf("Save() error: %v", err)
		}
		srv := newRouteServer(t, NewRouteHandler(m, testLogger()))

		resp, err := http.Get(srv.URL + "/token-status")
		if err != nil {
			t.Fatalf("GET /token-status: %v", err)
		}
		body := readBody(t, resp)

		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if !strings.Contains(body, "Token is valid") {
			t.Errorf("body should report a valid token, got:\n%s", body)
		}
	})

	t.Run("no token", func(t *testing.T) {
		m := newTestManager(t, "http://127.0.0.1:1/token")
		srv := newRouteServer(t, NewRouteHandler(m, testLogger()))

		resp, err := http.Get(srv.URL + "/token-status")
		if err != nil {
			t.Fatalf("GET /token-status: %v", err)
		}
		body := readBody(t, resp)

		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
		}
		if !strings.Contains(body, "No valid token.") {
			t.Errorf("body should report the missing token, got:\n%s", body)
		}
		if !strings.Contains(body, string(ReasonTokenFileMissing)) {
			t.Errorf("body should carry the reason code, got:\n%s", body)
		}
	})
}
