package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *TokenStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tokens.json")
	return newTokenStore(path, NewTokenCache(DefaultRefreshBuffer), &reasonSlot{}, testLogger())
}

func writeTokenFile(t *testing.T, s *TokenStore, content string) {
	t.Helper()
	if err := os.WriteFile(s.Path(), []byte(content), 0600); err != nil {
		t.Fatalf("writing token file: %v", err)
	}
}

func TestTokenStoreRoundTrip(t *testing.T) {
	s := newTestStore(t)

	rec := &TokenRecord{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresAt:    time.Now().Add(time.Hour).UnixMilli(),
		ExpiresIn:    3600,
		Scope:        "Mail.Read",
		TokenType:    "Bearer",
	}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	// Save primes the cache; empty it so Load has to hit the disk.
	s.cache.Clear()

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.AccessToken != rec.AccessToken || got.RefreshToken != rec.RefreshToken {
		t.Errorf("Load() = %+v, want %+v", got, rec)
	}
	if got.ExpiresAt != rec.ExpiresAt {
		t.Errorf("ExpiresAt = %d, want %d", got.ExpiresAt, rec.ExpiresAt)
	}
	if s.cache.Get() == nil {
		t.Error("Load() should prime the cache")
	}
	if reason := s.reasons.get(); reason != nil {
		t.Errorf("reason slot should be clear after a successful load, got %+v", reason)
	}
}

func TestTokenStoreSaveFormat(t *testing.T) {
	s := newTestStore(t)

	rec := &TokenRecord{AccessToken: "access", ExpiresAt: 1700000000000}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("reading saved file: %v", err)
	}
	// Pretty-printed JSON: indented fields, not a single compact line.
	if !json.Valid(data) {
		t.Fatal("saved file is not valid JSON")
	}
	if !strings.Contains(string(data), "\n  \"access_token\"") {
		t.Errorf("saved file is not 2-space indented:\n%s", data)
	}

	info, err := os.Stat(s.Path())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if got := info.Mode().Perm(); got != os.FileMode(0600) {
		t.Errorf("file mode = %o, want 0600", got)
	}
}

func TestTokenStoreSaveCreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "tokens.json")
	s := newTokenStore(path, NewTokenCache(DefaultRefreshBuffer), &reasonSlot{}, testLogger())

	if err := s.Save(&TokenRecord{AccessToken: "access"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected token file to exist: %v", err)
	}
}

func TestTokenStoreSaveNil(t *testing.T) {
	s := newTestStore(t)

	if err := s.Save(nil); err != nil {
		t.Fatalf("Save(nil) error: %v", err)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("Save(nil) should not create a file")
	}

	// An existing record survives a nil save untouched.
	rec := &TokenRecord{AccessToken: "keep", ExpiresAt: time.Now().Add(time.Hour).UnixMilli()}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if err := s.Save(nil); err != nil {
		t.Fatalf("Save(nil) error: %v", err)
	}
	if got := s.cache.Get(); got == nil || got.AccessToken != "keep" {
		t.Errorf("cache after Save(nil) = %+v, want the prior record", got)
	}
	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.AccessToken != "keep" {
		t.Errorf("disk after Save(nil) holds %q, want %q", got.AccessToken, "keep")
	}
}

func TestTokenStoreClear(t *testing.T) {
	s := newTestStore(t)

	// Clearing with no file present must not blow up.
	s.Clear()

	rec := &TokenRecord{AccessToken: "access", ExpiresAt: time.Now().Add(time.Hour).UnixMilli()}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	s.Clear()

	if s.cache.Get() != nil {
		t.Error("cache should be empty after Clear")
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("token file should be removed after Clear")
	}

	_, err := s.Load()
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Code != ReasonTokenFileMissing {
		t.Errorf("Load() after Clear = %v, want TOKEN_FILE_MISSING", err)
	}
}

func TestTokenStoreLoadClassification(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(t *testing.T, s *TokenStore)
		wantCode ReasonCode
	}{
		{
			name:     "missing file",
			setup:    func(t *testing.T, s *TokenStore) {},
			wantCode: ReasonTokenFileMissing,
		},
		{
			name: "malformed JSON",
			setup: func(t *testing.T, s *TokenStore) {
				writeTokenFile(t, s, "{this is not json")
			},
			wantCode: ReasonTokenFileInvalidJSON,
		},
		{
			name: "JSON array instead of object",
			setup: func(t *testing.T, s *TokenStore) {
				writeTokenFile(t, s, `["not","a","record"]`)
			},
			wantCode: ReasonTokenFileInvalidShape,
		},
		{
			name: "object without access_token",
			setup: func(t *testing.T, s *TokenStore) {
				writeTokenFile(t, s, `{"refresh_token":"ref","expires_at":1700000000000}`)
			},
			wantCode: ReasonTokenFileInvalidShape,
		},
		{
			name: "unreadable file",
			setup: func(t *testing.T, s *TokenStore) {
				s.readFile = func(string) ([]byte, error) {
					return nil, fmt.Errorf("open token file: %w", os.ErrPermission)
				}
			},
			wantCode: ReasonTokenFileReadError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			tt.setup(t, s)

			rec, err := s.Load()
			if rec != nil {
				t.Errorf("Load() record = %+v, want nil", rec)
			}
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Fatalf("Load() error = %v, want *AuthError", err)
			}
			if authErr.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", authErr.Code, tt.wantCode)
			}
			if authErr.Path != s.Path() {
				t.Errorf("path = %q, want %q", authErr.Path, s.Path())
			}

			reason := s.reasons.get()
			if reason == nil {
				t.Fatal("failure should be recorded in the reason slot")
			}
			if reason.Code != tt.wantCode {
				t.Errorf("recorded reason = %s, want %s", reason.Code, tt.wantCode)
			}
			if s.cache.Get() != nil {
				t.Error("a failed load must not populate the cache")
			}
		})
	}
}

func TestTokenStoreLoadSync(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LoadSync()
	var authErr *AuthError
	if !errors.As(err, &authErr) || authErr.Code != ReasonTokenFileMissing {
		t.Fatalf("LoadSync() = %v, want TOKEN_FILE_MISSING", err)
	}

	rec := &TokenRecord{AccessToken: "access", ExpiresAt: time.Now().Add(time.Hour).UnixMilli()}
	if err := s.Save(rec); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	s.cache.Clear()

	got, err := s.LoadSync()
	if err != nil {
		t.Fatalf("LoadSync() error: %v", err)
	}
	if got.AccessToken != "access" {
		t.Errorf("LoadSync() = %+v", got)
	}
	if reason := s.reasons.get(); reason != nil {
		t.Errorf("reason slot should be clear after a successful LoadSync, got %+v", reason)
	}
}

func TestTokenStoreConcurrentLoadsShareOneRead(t *testing.T) {
	s := newTestStore(t)

	data, err := json.Marshal(&TokenRecord{
		AccessToken: "access",
		ExpiresAt:   time.Now().Add(time.Hour).UnixMilli(),
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var reads int32
	s.readFile = func(string) ([]byte, error) {
		// Stall so concurrent callers overlap the in-flight read.
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&reads, 1)
		return data, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := s.Load()
			if err != nil {
				t.Errorf("Load() error: %v", err)
				return
			}
			if rec.AccessToken != "access" {
				t.Errorf("AccessToken = %q, want %q", rec.AccessToken, "access")
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&reads); n != 1 {
		t.Errorf("expected 1 disk read across concurrent loads, got %d", n)
	}
}

func TestTokenStoreConcurrentLoadsShareOneFailure(t *testing.T) {
	s := newTestStore(t)

	var reads int32
	s.readFile = func(string) ([]byte, error) {
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&reads, 1)
		return nil, os.ErrNotExist
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Load()
			var authErr *AuthError
			if !errors.As(err, &authErr) || authErr.Code != ReasonTokenFileMissing {
				t.Errorf("Load() = %v, want TOKEN_FILE_MISSING", err)
			}
		}()
	}
	wg.Wait()

	if n := atomic.LoadInt32(&reads); n != 1 {
		t.Errorf("expected 1 disk read across concurrent loads, got %d", n)
	}
}
