package server

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// Status strings reported in health responses.
const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker provides liveness and readiness endpoints for Kubernetes
// probes.
type HealthChecker struct {
	// ready indicates whether the server is ready to receive traffic.
	ready atomic.Bool
	// serverContext is consulted for shutdown state; nil is allowed in tests.
	serverContext *ServerContext
	// startTime is reported as uptime in readiness responses.
	startTime time.Time
}

// NewHealthChecker creates a HealthChecker that starts out ready.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{
		serverContext: sc,
		startTime:     time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady flips the readiness gate reported by /readyz.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the current readiness gate.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

func (h *HealthChecker) isShuttingDown() bool {
	return h.serverContext != nil && h.serverContext.IsShutdown()
}

// HealthResponse is the JSON body of health endpoint responses.
type HealthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler answers /healthz. Liveness only says the process runs;
// failing it makes Kubernetes restart the pod.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler answers /readyz. Readiness gates traffic: it fails while
// the server is marked not ready or is shutting down.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		checks := make(map[string]string)
		allOK := true

		if h.ready.Load() {
			checks["ready"] = healthStatusOK
		} else {
			checks["ready"] = healthStatusNotReady
			allOK = false
		}

		if h.isShuttingDown() {
			checks["shutdown"] = healthStatusShuttingDown
			allOK = false
		} else {
			checks["shutdown"] = healthStatusOK
		}

		response := HealthResponse{
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
			Checks: checks,
		}
		if allOK {
			response.Status = healthStatusOK
			w.WriteHeader(http.StatusOK)
		} else {
			response.Status = healthStatusNotReady
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(response)
	})
}

// RegisterHealthEndpoints registers /healthz and /readyz on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
}
