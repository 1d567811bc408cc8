package auth

import (
	"errors"
	"sync"
)

// ReasonCode identifies one failure class in the credential lifecycle
// taxonomy. The string values are stable API: they appear in logs, tool
// output, and tests.
type ReasonCode string

// The full taxonomy. Four non-overlapping families: configuration, storage,
// transport, and provider rejection.
const (
	// Configuration: fatal until the operator fixes credentials.
	ReasonClientConfigMissing ReasonCode = "CLIENT_CONFIG_MISSING"

	// Storage: recoverable by re-running the browser auth flow.
	ReasonTokenFileMissing      ReasonCode = "TOKEN_FILE_MISSING"
	ReasonTokenFileInvalidJSON  ReasonCode = "TOKEN_FILE_INVALID_JSON"
	ReasonTokenFileInvalidShape ReasonCode = "TOKEN_FILE_INVALID_SHAPE"
	ReasonTokenFileReadError    ReasonCode = "TOKEN_FILE_READ_ERROR"

	// Transport: transient; the user is told to try again.
	ReasonRefreshNetworkError      ReasonCode = "REFRESH_NETWORK_ERROR"
	ReasonCodeExchangeNetworkError ReasonCode = "CODE_EXCHANGE_NETWORK_ERROR"

	// Provider rejection: carries the HTTP status and raw body. The
	// INVALID_CLIENT variants flag a misconfigured client secret.
	ReasonRefreshFailed              ReasonCode = "REFRESH_FAILED"
	ReasonRefreshFailedInvalidClient ReasonCode = "REFRESH_FAILED_INVALID_CLIENT"
	ReasonCodeExchangeFailed         ReasonCode = "CODE_EXCHANGE_FAILED"
	ReasonCodeExchangeInvalidClient  ReasonCode = "CODE_EXCHANGE_INVALID_CLIENT"
)

// Reason is the structured description of the last failure, kept in a single
// slot on the Manager as a diagnostic convenience. The primary error channel
// is the *AuthError returned by each operation.
type Reason struct {
	Code    ReasonCode
	Message string

	// Path is set for storage failures.
	Path string

	// StatusCode and RawBody are set for provider rejections.
	StatusCode int
	RawBody    string
}

// reasonSlot is the last-write-wins register shared by the store, the
// exchanger, and the manager. Every fallible operation overwrites it;
// successes clear it to nil.
type reasonSlot struct {
	mu   sync.Mutex
	last *Reason
}

func (s *reasonSlot) record(r *Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = r
}

func (s *reasonSlot) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = nil
}

// get returns a copy so callers cannot mutate the slot.
func (s *reasonSlot) get() *Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	cp := *s.last
	return &cp
}

// AuthError is the error type for every classified failure in this package.
// Message is the user-facing text (for provider rejections, the provider's
// error_description); StatusCode and RawBody are populated for provider
// rejections only.
type AuthError struct {
	Code       ReasonCode
	Message    string
	Path       string
	StatusCode int
	RawBody    string

	// Err is the underlying cause, when one exists.
	Err error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// reason converts the error into its slot representation.
func (e *AuthError) reason() *Reason {
	return &Reason{
		Code:       e.Code,
		Message:    e.Message,
		Path:       e.Path,
		StatusCode: e.StatusCode,
		RawBody:    e.RawBody,
	}
}

// IsAuthError reports whether err is (or wraps) a classified authentication
// failure. Remote-API callers use this to distinguish "not authenticated"
// from transport or server trouble.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// ErrNoRefreshToken is the terminal refresh failure: there is nothing to
// exchange, so the only way forward is the browser flow. It deliberately has
// no reason code; the slot keeps whatever the preceding load recorded.
var ErrNoRefreshToken = errors.New("no refresh token available; authenticate again via the authenticate tool or the /auth page")
