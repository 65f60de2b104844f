package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/logging"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

// MCPEndpointPath is the streamable-http endpoint.
const MCPEndpointPath = "/mcp"

// HTTPServerConfig configures the streamable-http transport.
type HTTPServerConfig struct {
	Addr string

	// ForwardedEmailHeader names the header a fronting proxy sets to the
	// authenticated user's email. Empty disables it; the header is then
	// ignored entirely.
	ForwardedEmailHeader string
}

// HTTPServer serves MCP over streamable HTTP together with the health
// endpoints and, when OAuth is configured, the consent callback.
type HTTPServer struct {
	httpServer *http.Server
	health     *HealthChecker
	logger     *slog.Logger
}

// NewHTTPServer creates the streamable-http server for mcpServer.
func NewHTTPServer(mcpServer *mcpserver.MCPServer, sc *ServerContext, config HTTPServerConfig) (*HTTPServer, error) {
	if config.Addr == "" {
		return nil, fmt.Errorf("http address is required")
	}

	streamable := mcpserver.NewStreamableHTTPServer(mcpServer,
		mcpserver.WithEndpointPath(MCPEndpointPath),
		mcpserver.WithHTTPContextFunc(ForwardedEmailContextFunc(config.ForwardedEmailHeader)),
	)

	health := NewHealthChecker(sc)
	mux := http.NewServeMux()
	mux.Handle(MCPEndpointPath, instrumentedHandler(sc.Metrics(), MCPEndpointPath, streamable))
	health.RegisterHealthEndpoints(mux)
	if sc.Authenticator() != nil {
		mux.Handle(CallbackPath, instrumentedHandler(sc.Metrics(), CallbackPath, CallbackHandler(sc)))
	}

	return &HTTPServer{
		httpServer: &http.Server{
			Addr:              config.Addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		health: health,
		logger: logging.WithComponent(sc.Logger(), "http_server"),
	}, nil
}

// Handler returns the server's mux.
func (s *HTTPServer) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until Shutdown is called. It returns nil after a graceful
// shutdown.
func (s *HTTPServer) Start() error {
	s.logger.Info("starting streamable-http server",
		slog.String("addr", s.httpServer.Addr),
		slog.String("endpoint", MCPEndpointPath))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown marks the server not ready, then drains connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	return s.httpServer.Shutdown(ctx)
}

// ForwardedEmailContextFunc copies a proxy-asserted email from header into
// the request context. Invalid emails are dropped. An empty header name
// returns a function that leaves ctx unchanged.
func ForwardedEmailContextFunc(header string) mcpserver.HTTPContextFunc {
	header = strings.TrimSpace(header)
	return func(ctx context.Context, r *http.Request) context.Context {
		if header == "" {
			return ctx
		}
		email, err := tokenstore.NormalizeEmail(r.Header.Get(header))
		if err != nil {
			return ctx
		}
		return google.WithUserEmail(ctx, email)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// instrumentedHandler records http_requests_total for next under a fixed
// path label.
func instrumentedHandler(m *instrumentation.Metrics, path string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		m.RecordHTTPRequest(r.Context(), r.Method, path, rec.status, time.Since(start))
	})
}
