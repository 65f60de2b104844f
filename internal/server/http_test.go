package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
)

func TestForwardedEmailContextFunc(t *testing.T) {
	tests := []struct {
		name      string
		header    string
		value     string
		wantEmail string
	}{
		{name: "trusted header", header: "X-Forwarded-Email", value: "Proxy@Example.com", wantEmail: "proxy@example.com"},
		{name: "disabled", header: "", value: "proxy@example.com"},
		{name: "missing header", header: "X-Forwarded-Email"},
		{name: "not an email", header: "X-Forwarded-Email", value: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, MCPEndpointPath, nil)
			if tt.value != "" {
				r.Header.Set("X-Forwarded-Email", tt.value)
			}
			ctx := ForwardedEmailContextFunc(tt.header)(context.Background(), r)

			email, ok := google.UserEmailFromContext(ctx)
			assert.Equal(t, tt.wantEmail != "", ok)
			assert.Equal(t, tt.wantEmail, email)
		})
	}
}

func TestNewHTTPServer(t *testing.T) {
	mcp := mcpserver.NewMCPServer("test", "0.0.0")

	_, err := NewHTTPServer(mcp, newTestContext(t, nil), HTTPServerConfig{})
	assert.Error(t, err)

	withoutAuth, err := NewHTTPServer(mcp, newTestContext(t, nil), HTTPServerConfig{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	withoutAuth.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CallbackPath, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	withoutAuth.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	withAuth, err := NewHTTPServer(mcp, newCallbackContext(t), HTTPServerConfig{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	withAuth.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, CallbackPath+"?error=access_denied", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	require.NoError(t, withAuth.Shutdown(context.Background()))
	rec = httptest.NewRecorder()
	withAuth.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestInstrumentedHandler(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer mp.Shutdown(context.Background())
	m, err := instrumentation.NewMetrics(mp.Meter("test"), false)
	require.NoError(t, err)

	h := instrumentedHandler(m, CallbackPath, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, CallbackPath+"?code=secret", nil))

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	var found bool
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			if metric.Name != "http_requests_total" {
				continue
			}
			sum := metric.Data.(metricdata.Sum[int64])
			require.Len(t, sum.DataPoints, 1)
			status, _ := sum.DataPoints[0].Attributes.Value("status")
			path, _ := sum.DataPoints[0].Attributes.Value("path")
			assert.Equal(t, "418", status.AsString())
			assert.Equal(t, CallbackPath, path.AsString())
			found = true
		}
	}
	assert.True(t, found, "http_requests_total was not recorded")

	plain := http.NotFoundHandler()
	assert.NotNil(t, instrumentedHandler(nil, "/", plain))
}
