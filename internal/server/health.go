package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	healthStatusOK       = "ok"
	healthStatusNotReady = "not ready"

	readinessCheckTimeout = 2 * time.Second
)

// ReadinessCheck probes one dependency. A nil error means healthy.
type ReadinessCheck func(ctx context.Context) error

// HealthChecker serves the Kubernetes liveness and readiness probes.
type HealthChecker struct {
	ready     atomic.Bool
	checks    map[string]ReadinessCheck
	startTime time.Time
}

// NewHealthChecker creates a checker with the given named dependency probes.
// The server starts ready.
func NewHealthChecker(checks map[string]ReadinessCheck) *HealthChecker {
	h := &HealthChecker{
		checks:    checks,
		startTime: time.Now(),
	}
	h.ready.Store(true)
	return h
}

// SetReady flips readiness, used during graceful shutdown.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports the readiness flag, dependency probes not included.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

type healthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler serves /healthz. Process-level only; restarting does not
// fix dependency outages, so no dependency probes here.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status: healthStatusOK,
			Uptime: time.Since(h.startTime).Truncate(time.Second).String(),
		})
	})
}

// ReadinessHandler serves /readyz: the readiness flag plus every dependency
// probe, each bounded by a short timeout.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string, len(h.checks)+1)
		allOK := true

		if h.ready.Load() {
			checks["ready"] = healthStatusOK
		} else {
			checks["ready"] = healthStatusNotReady
			allOK = false
		}

		for name, check := range h.checks {
			ctx, cancel := context.WithTimeout(r.Context(), readinessCheckTimeout)
			if err := check(ctx); err != nil {
				checks[name] = err.Error()
				allOK = false
			} else {
				checks[name] = healthStatusOK
			}
			cancel()
		}

		status := http.StatusOK
		overall := healthStatusOK
		if !allOK {
			status = http.StatusServiceUnavailable
			overall = healthStatusNotReady
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status: overall,
			Checks: checks,
		})
	})
}

// RegisterEndpoints mounts the probe handlers on the given mux.
func (h *HealthChecker) RegisterEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
}
