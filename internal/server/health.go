package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"
)

// storePingTimeout bounds the token store check of a readiness probe.
const storePingTimeout = 2 * time.Second

const (
	healthStatusOK           = "ok"
	healthStatusNotReady     = "not ready"
	healthStatusShuttingDown = "shutting down"
)

// HealthChecker serves liveness and readiness endpoints for the HTTP transport.
type HealthChecker struct {
	ready     atomic.Bool
	sc        *ServerContext // nil in tests
	startTime time.Time
}

// NewHealthChecker creates a HealthChecker that starts out ready.
func NewHealthChecker(sc *ServerContext) *HealthChecker {
	h := &HealthChecker{sc: sc, startTime: time.Now()}
	h.ready.Store(true)
	return h
}

// SetReady sets the readiness state of the server.
func (h *HealthChecker) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady returns whether the server is ready to receive traffic.
func (h *HealthChecker) IsReady() bool {
	return h.ready.Load()
}

// HealthResponse represents the JSON response for health endpoints.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// DetailedHealthResponse adds runtime details to the readiness result.
type DetailedHealthResponse struct {
	Status        string `json:"status"`
	Uptime        string `json:"uptime"`
	TokenStore    string `json:"tokenStore"`
	CachedClients int    `json:"cachedClients"`
	ReadOnly      bool   `json:"readOnly"`
}

// readiness runs every check. It returns the per-check results and the
// overall status, which is the first failing check or ok.
func (h *HealthChecker) readiness(ctx context.Context) (map[string]string, string) {
	checks := map[string]string{
		"ready":       healthStatusOK,
		"shutdown":    healthStatusOK,
		"token_store": h.pingStore(ctx),
	}
	status := healthStatusOK

	if !h.ready.Load() {
		checks["ready"] = healthStatusNotReady
		status = healthStatusNotReady
	}
	if h.sc != nil && h.sc.IsShutdown() {
		checks["shutdown"] = healthStatusShuttingDown
		if status == healthStatusOK {
			status = healthStatusShuttingDown
		}
	}
	if checks["token_store"] != healthStatusOK && status == healthStatusOK {
		status = healthStatusNotReady
	}
	return checks, status
}

// pingStore reports the token store state. A missing store counts as healthy.
func (h *HealthChecker) pingStore(ctx context.Context) string {
	if h.sc == nil || h.sc.Store() == nil {
		return healthStatusOK
	}
	ctx, cancel := context.WithTimeout(ctx, storePingTimeout)
	defer cancel()
	if err := h.sc.Store().Ping(ctx); err != nil {
		return "unavailable: " + err.Error()
	}
	return healthStatusOK
}

func writeHealth(w http.ResponseWriter, status string, body any) {
	w.Header().Set("Content-Type", "application/json")
	if status == healthStatusOK {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(body)
}

// LivenessHandler serves /healthz. It only reports that the process runs.
func (h *HealthChecker) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHealth(w, healthStatusOK, HealthResponse{Status: healthStatusOK})
	})
}

// ReadinessHandler serves /readyz: 200 when the server is ready, not
// shutting down and the token store answers, 503 otherwise.
func (h *HealthChecker) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, status := h.readiness(r.Context())
		body := HealthResponse{Status: status, Checks: checks}
		if status == healthStatusShuttingDown {
			body.Status = healthStatusNotReady
		}
		writeHealth(w, status, body)
	})
}

// DetailedHealthHandler serves /healthz/detailed.
func (h *HealthChecker) DetailedHealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		checks, status := h.readiness(r.Context())
		body := DetailedHealthResponse{
			Status:     status,
			Uptime:     time.Since(h.startTime).Truncate(time.Second).String(),
			TokenStore: checks["token_store"],
		}
		if h.sc != nil {
			body.CachedClients = h.sc.CachedClients()
			body.ReadOnly = h.sc.ReadOnly()
		}
		writeHealth(w, status, body)
	})
}

// RegisterHealthEndpoints registers health check endpoints on the given mux.
func (h *HealthChecker) RegisterHealthEndpoints(mux *http.ServeMux) {
	mux.Handle("/healthz", h.LivenessHandler())
	mux.Handle("/readyz", h.ReadinessHandler())
	mux.Handle("/healthz/detailed", h.DetailedHealthHandler())
}
