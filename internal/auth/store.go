package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/singleflight"

	"github.com/teemow/outlook-mcp/internal/logging"
)

// TokenStore persists the current token record as a pretty-printed JSON file
// and classifies every way reading it back can fail. All methods are safe for
// concurrent use; concurrent Loads collapse into a single disk read.
type TokenStore struct {
	path    string
	cache   *TokenCache
	reasons *reasonSlot
	logger  *slog.Logger

	// readFile is swapped out in tests to observe and stall disk reads.
	readFile func(string) ([]byte, error)

	loadGroup singleflight.Group
}

func newTokenStore(path string, cache *TokenCache, reasons *reasonSlot, logger *slog.Logger) *TokenStore {
	return &TokenStore{
		path:     path,
		cache:    cache,
		reasons:  reasons,
		logger:   logger,
		readFile: os.ReadFile,
	}
}

// Path returns the location of the backing file.
func (s *TokenStore) Path() string {
	return s.path
}

// Load reads the token record from disk. On success the record is placed in
// the cache and the reason slot is cleared. On failure it returns a nil
// record and an *AuthError classifying the fault; the same reason is
// recorded in the slot. Callers that arrive while a load is in flight share
// the outcome of the read already underway instead of hitting the disk
// again.
func (s *TokenStore) Load() (*TokenRecord, error) {
	v, err, _ := s.loadGroup.Do(s.path, func() (any, error) {
		rec, authErr := s.readAndDecode()
		if authErr != nil {
			s.reasons.record(authErr.reason())
			s.logger.Debug("token file load failed",
				logging.ReasonCode(string(authErr.Code)),
				slog.String("path", s.path))
			return nil, authErr
		}
		s.cache.Set(rec)
		s.reasons.clear()
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TokenRecord), nil
}

// LoadSync reads and classifies the token file directly, without joining the
// in-flight load deduplication. Status probes use it so they never contend
// with a load already underway. Classification and side effects are
// identical to Load.
func (s *TokenStore) LoadSync() (*TokenRecord, error) {
	rec, authErr := s.readAndDecode()
	if authErr != nil {
		s.reasons.record(authErr.reason())
		return nil, authErr
	}
	s.cache.Set(rec)
	s.reasons.clear()
	return rec, nil
}

// Save writes the record as 2-space-indented JSON, updates the cache, and
// clears the reason slot. Saving nil is a logged no-op: the file and the
// cache keep whatever they already hold.
func (s *TokenStore) Save(rec *TokenRecord) error {
	if rec == nil {
		s.logger.Warn("ignoring attempt to save a nil token record",
			slog.String("path", s.path))
		return nil
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding token record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("creating token directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}

	s.cache.Set(rec)
	s.reasons.clear()
	s.logger.Debug("token record saved",
		slog.String("path", s.path),
		slog.Time("expires_at", rec.ExpiryTime()))
	return nil
}

// Clear removes the backing file and empties the cache. A missing file is
// fine; any other removal error is logged and swallowed, since clearing is
// best-effort cleanup.
func (s *TokenStore) Clear() {
	s.cache.Clear()
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("could not remove token file",
			logging.Err(err),
			slog.String("path", s.path))
	}
}

// readAndDecode performs one classified read of the backing file.
func (s *TokenStore) readAndDecode() (*TokenRecord, *AuthError) {
	data, err := s.readFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &AuthError{
				Code:    ReasonTokenFileMissing,
				Message: fmt.Sprintf("no token file at %s", s.path),
				Path:    s.path,
				Err:     err,
			}
		}
		return nil, &AuthError{
			Code:    ReasonTokenFileReadError,
			Message: fmt.Sprintf("reading token file: %v", err),
			Path:    s.path,
			Err:     err,
		}
	}

	rec, err := decodeTokenRecord(data)
	if err != nil {
		code := ReasonTokenFileInvalidShape
		if errors.Is(err, ErrMalformedJSON) {
			code = ReasonTokenFileInvalidJSON
		}
		return nil, &AuthError{
			Code:    code,
			Message: err.Error(),
			Path:    s.path,
			Err:     err,
		}
	}
	return rec, nil
}
