// Package logging carries the slog conventions shared across the server:
// attribute key constants, scoped-logger helpers, and sanitizers for values
// that must not reach log output verbatim.
//
// Scope a logger to a subsystem or an operation:
//
//	logger := logging.WithComponent(slog.Default(), "auth-server")
//	logger = logging.WithOperation(logger, "callback")
//
// Sanitize before logging:
//
//	logger.Info("authorization code exchanged",
//	    logging.UserHash(email),
//	    slog.String("access_token", logging.SanitizeToken(token)))
//
// Emails are hashed so lines stay correlatable per account without carrying
// the address; tokens are reduced to a length indicator.
package logging
