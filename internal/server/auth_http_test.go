package server

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func newTestAuthHTTPServer(t *testing.T, addr string) *AuthHTTPServer {
	t.Helper()
	srv, err := NewAuthHTTPServer(AuthHTTPServerConfig{
		Addr:    addr,
		Manager: testAuthManager(t),
		Logger:  discardLogger(),
	})
	if err != nil {
		t.Fatalf("NewAuthHTTPServer() error = %v", err)
	}
	return srv
}

func TestNewAuthHTTPServer(t *testing.T) {
	t.Run("requires a manager", func(t *testing.T) {
		_, err := NewAuthHTTPServer(AuthHTTPServerConfig{Addr: ":3333"})
		if err == nil {
			t.Fatal("expected error for missing manager, got nil")
		}
	})

	t.Run("defaults the addr", func(t *testing.T) {
		srv := newTestAuthHTTPServer(t, "")
		if srv.Addr() != DefaultAuthAddr {
			t.Errorf("Addr() = %q, want %q", srv.Addr(), DefaultAuthAddr)
		}
	})
}

func TestAuthHTTPServer_AuthURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":3333", "http://localhost:3333/auth"},
		{"127.0.0.1:8444", "http://127.0.0.1:8444/auth"},
	}
	for _, tt := range tests {
		srv := newTestAuthHTTPServer(t, tt.addr)
		if got := srv.AuthURL(); got != tt.want {
			t.Errorf("AuthURL() with addr %q = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestAuthHTTPServer_Routes(t *testing.T) {
	srv := newTestAuthHTTPServer(t, ":3333")
	srv.buildServer()
	handler := srv.httpServer.Handler

	t.Run("healthz", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET /healthz status = %d, want %d", rec.Code, http.StatusOK)
		}
	})

	t.Run("auth redirects to consent page", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/auth", nil))
		if rec.Code != http.StatusFound {
			t.Fatalf("GET /auth status = %d, want %d", rec.Code, http.StatusFound)
		}
		location := rec.Header().Get("Location")
		if !strings.Contains(location, "client_id=client-id") {
			t.Errorf("Location %q missing client_id", location)
		}
		if !strings.Contains(location, "state=") {
			t.Errorf("Location %q missing state parameter", location)
		}
	})

	t.Run("callback without state is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/auth/callback?code=abc", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("GET /auth/callback status = %d, want %d", rec.Code, http.StatusBadRequest)
		}
	})
}

func TestAuthHTTPServer_StartWithReadySignal(t *testing.T) {
	srv := newTestAuthHTTPServer(t, "127.0.0.1:0")

	ready := make(chan struct{})
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.StartWithReadySignal(ready)
	}()

	select {
	case <-ready:
	case <-time.After(2 * time.Second):
		t.Fatal("server did not become ready")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	if err := <-errCh; err != http.ErrServerClosed {
		t.Errorf("StartWithReadySignal() returned %v, want http.ErrServerClosed", err)
	}
}

func TestAuthHTTPServer_StartWithReadySignalPortTaken(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	srv := newTestAuthHTTPServer(t, ln.Addr().String())

	ready := make(chan struct{})
	if err := srv.StartWithReadySignal(ready); err == nil {
		t.Fatal("expected listener error for occupied port, got nil")
	}

	select {
	case <-ready:
		t.Error("ready channel closed although the listener failed")
	default:
	}
}

func TestAuthHTTPServer_ShutdownWithoutStart(t *testing.T) {
	srv := newTestAuthHTTPServer(t, ":3333")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() without Start() error = %v", err)
	}
}
