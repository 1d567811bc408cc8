package server

import (
	"net/http"
	"time"

	"github.com/teemow/outlook-mcp/internal/instrumentation"
)

// responseWriter wraps http.ResponseWriter to capture the status code for
// request metrics.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	// Handlers that never call WriteHeader implicitly answer 200.
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (w *responseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// requestMetricsMiddleware records method, path, status, and duration of
// every request. With a nil recorder it passes requests through untouched.
func requestMetricsMiddleware(metrics *instrumentation.Metrics, next http.Handler) http.Handler {
	if metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		metrics.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rw.statusCode, time.Since(start))
	})
}
