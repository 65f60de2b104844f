package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/logging"
)

// CallbackPath is where Google redirects the browser after consent.
const CallbackPath = "/oauth/callback"

// CallbackHandler finishes consent flows started by auth_start or
// "auth login". It renders plain text so nothing from the query string is
// interpreted by the browser.
func CallbackHandler(sc *ServerContext) http.Handler {
	logger := logging.WithComponent(sc.Logger(), "oauth_callback")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("X-Content-Type-Options", "nosniff")

		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		auth := sc.Authenticator()
		if auth == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprintln(w, "Google OAuth is not configured on this server.")
			return
		}

		state, code, err := google.ParseCallbackURL(r.URL.String())
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, "Authorization failed: %v\n", err)
			return
		}

		email, err := auth.CompleteAuth(r.Context(), state, code)
		switch {
		case errors.Is(err, google.ErrUnknownState), errors.Is(err, google.ErrFlowExpired):
			w.WriteHeader(http.StatusBadRequest)
			_, _ = fmt.Fprintf(w, "Authorization failed: %v. Start again with auth_start.\n", err)
			return
		case err != nil:
			logger.Error("oauth callback failed", logging.Err(err))
			w.WriteHeader(http.StatusBadGateway)
			_, _ = fmt.Fprintln(w, "Authorization failed while talking to Google. Check the server logs and try again.")
			return
		}
		sc.InvalidateAccount(email)

		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "Connected Google account %s.\nYou can close this window and return to your MCP client.\n", email)
	})
}

// CallbackServer serves CallbackPath on its own listener. The stdio
// transport uses it; the streamable-http transport mounts CallbackHandler
// on its mux instead.
type CallbackServer struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewCallbackServer creates a callback server on addr.
func NewCallbackServer(addr string, sc *ServerContext) *CallbackServer {
	mux := http.NewServeMux()
	mux.Handle(CallbackPath, instrumentedHandler(sc.Metrics(), CallbackPath, CallbackHandler(sc)))

	return &CallbackServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		logger: logging.WithComponent(sc.Logger(), "oauth_callback"),
	}
}

// Start serves until Shutdown is called. It returns nil after a graceful
// shutdown.
func (s *CallbackServer) Start() error {
	s.logger.Info("starting oauth callback server", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("oauth callback server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *CallbackServer) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the listen address.
func (s *CallbackServer) Addr() string {
	return s.httpServer.Addr
}
