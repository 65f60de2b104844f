package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serve(t *testing.T, h http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON from %s: %v", path, err)
	}
	return rec, body
}

func TestLivenessHandler(t *testing.T) {
	h := NewHealthChecker(nil)
	rec, body := serve(t, h.LivenessHandler(), "/healthz")
	if rec.Code != http.StatusOK || body["status"] != healthStatusOK {
		t.Errorf("liveness = %d %v", rec.Code, body)
	}
}

func TestReadinessHandler(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(t *testing.T) *HealthChecker
		wantStatus int
		wantCheck  map[string]string
	}{
		{
			name:       "ready",
			setup:      func(t *testing.T) *HealthChecker { return NewHealthChecker(newTestContext(t, nil)) },
			wantStatus: http.StatusOK,
			wantCheck:  map[string]string{"ready": "ok", "shutdown": "ok", "token_store": "ok"},
		},
		{
			name: "not ready",
			setup: func(t *testing.T) *HealthChecker {
				h := NewHealthChecker(newTestContext(t, nil))
				h.SetReady(false)
				return h
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCheck:  map[string]string{"ready": healthStatusNotReady},
		},
		{
			name: "shutting down",
			setup: func(t *testing.T) *HealthChecker {
				sc := newTestContext(t, nil)
				_ = sc.Shutdown()
				return NewHealthChecker(sc)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCheck:  map[string]string{"shutdown": healthStatusShuttingDown},
		},
		{
			name: "token store unreachable",
			setup: func(t *testing.T) *HealthChecker {
				sc := newTestContext(t, func(o *Options) { o.Store = pingFailStore{Store: o.Store} })
				return NewHealthChecker(sc)
			},
			wantStatus: http.StatusServiceUnavailable,
			wantCheck:  map[string]string{"token_store": "unavailable: connection refused"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := tt.setup(t)
			rec, body := serve(t, h.ReadinessHandler(), "/readyz")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			checks, _ := body["checks"].(map[string]interface{})
			for k, want := range tt.wantCheck {
				if checks[k] != want {
					t.Errorf("checks[%s] = %v, want %q", k, checks[k], want)
				}
			}
		})
	}
}

func TestDetailedHealthHandler(t *testing.T) {
	sc := newTestContext(t, nil)
	if _, err := sc.DriveClientForAccount(testAccount); err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	NewHealthChecker(sc).RegisterHealthEndpoints(mux)

	rec, body := serve(t, mux, "/healthz/detailed")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	if body["cachedClients"] != float64(1) {
		t.Errorf("cachedClients = %v, want 1", body["cachedClients"])
	}
	if body["readOnly"] != true || body["tokenStore"] != healthStatusOK {
		t.Errorf("body = %v", body)
	}
	if body["uptime"] == "" {
		t.Error("uptime is empty")
	}
}
