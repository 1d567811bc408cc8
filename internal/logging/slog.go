package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// Attribute keys shared across the codebase so log lines stay greppable.
const (
	KeyOperation  = "operation"
	KeyComponent  = "component"
	KeyError      = "error"
	KeyReasonCode = "reason_code"
	KeyStatusCode = "status_code"
	KeyUserHash   = "user_hash"
)

// WithOperation returns a logger scoped to one named operation.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithComponent returns a logger scoped to one subsystem, so interleaved
// lines from the MCP, authorization and metrics servers can be told apart.
func WithComponent(logger *slog.Logger, component string) *slog.Logger {
	return logger.With(slog.String(KeyComponent, component))
}

// ReasonCode returns a slog attribute for an auth failure classification.
func ReasonCode(code string) slog.Attr {
	return slog.String(KeyReasonCode, code)
}

// StatusCode returns a slog attribute for an HTTP status code.
func StatusCode(code int) slog.Attr {
	return slog.Int(KeyStatusCode, code)
}

// Err returns a slog attribute for an error. A nil err yields an empty
// group, which slog omits, so call sites can pass a maybe-nil error
// straight through.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail reduces an email address to a short stable hash. Log lines
// stay correlatable per account without carrying the address itself.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(email))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized email.
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// SanitizeToken renders a token as a length indicator only. Even token
// prefixes can leak; JWT headers decode to tenant and issuer details.
func SanitizeToken(token string) string {
	if token == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[token:%d chars]", len(token))
}
