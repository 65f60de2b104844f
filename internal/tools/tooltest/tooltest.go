// Package tooltest runs tool handlers against fake Google endpoints.
package tooltest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

// Account is the connected account every harness starts with.
const Account = "user@example.com"

// AccessToken is the bearer token sent for Account.
const AccessToken = "test-access-token"

// RegisterFunc matches the Register*Tools functions.
type RegisterFunc func(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error

// Harness is an MCP server with one tool package registered and its Google
// clients pointed at an httptest server.
type Harness struct {
	t      testing.TB
	Server *mcpserver.MCPServer
	SC     *server.ServerContext
	Store  *tokenstore.MemoryStore
	API    *httptest.Server
}

// New starts api and registers tools with Account connected.
func New(t testing.TB, api http.Handler, register RegisterFunc, readOnly bool) *Harness {
	t.Helper()
	return NewWithOptions(t, api, register, readOnly, nil)
}

// Configure adjusts the server options before the ServerContext is built.
// opts.Store and opts.Provider are already set.
type Configure func(opts *server.Options, api *httptest.Server)

// NewWithOptions is New with a hook to customize the ServerContext.
func NewWithOptions(t testing.TB, api http.Handler, register RegisterFunc, readOnly bool, configure Configure) *Harness {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	store := tokenstore.NewMemoryStore(nil)
	require.NoError(t, store.Upsert(context.Background(), &tokenstore.Document{
		Email: Account,
		Token: &oauth2.Token{
			AccessToken:  AccessToken,
			RefreshToken: "refresh",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(time.Hour),
		},
	}))

	conf := &oauth2.Config{ClientID: "client", Endpoint: oauth2.Endpoint{TokenURL: srv.URL + "/token"}}
	opts := server.Options{
		Provider:      google.NewStoreTokenProvider(conf, store, google.StoreTokenProviderOptions{}),
		Store:         store,
		ReadOnly:      readOnly,
		Base:          srv.Client().Transport,
		ClientOptions: []option.ClientOption{option.WithEndpoint(srv.URL + "/")},
	}
	if configure != nil {
		configure(&opts, srv)
	}
	sc, err := server.NewServerContext(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(false))
	require.NoError(t, register(s, sc, readOnly))

	return &Harness{t: t, Server: s, SC: sc, Store: store, API: srv}
}

// ToolNames returns the registered tool names in order.
func (h *Harness) ToolNames() []string {
	names := make([]string, 0)
	for name := range h.Server.ListTools() {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call invokes a tool handler directly. Handlers must never return a Go error.
func (h *Harness) Call(name string, args map[string]interface{}) *mcp.CallToolResult {
	return h.CallContext(context.Background(), name, args)
}

// CallContext is Call with a caller-supplied context.
func (h *Harness) CallContext(ctx context.Context, name string, args map[string]interface{}) *mcp.CallToolResult {
	h.t.Helper()

	tool, ok := h.Server.ListTools()[name]
	require.Truef(h.t, ok, "tool %s is not registered", name)

	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	res, err := tool.Handler(ctx, req)
	require.NoError(h.t, err)
	require.NotNil(h.t, res)
	return res
}

// Text joins the text content of a result.
func Text(res *mcp.CallToolResult) string {
	var parts []string
	for _, c := range res.Content {
		switch tc := c.(type) {
		case mcp.TextContent:
			parts = append(parts, tc.Text)
		case *mcp.TextContent:
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// RequireBearer fails the request unless it carries AccessToken.
func RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+AccessToken {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"code":401,"message":"Request had invalid authentication credentials."}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WriteError writes a Google API style error body.
func WriteError(w http.ResponseWriter, code int, message, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"code":    code,
			"message": message,
			"errors":  []map[string]string{{"reason": reason, "message": message}},
		},
	})
}

// WriteJSON writes v as a 200 JSON response.
func WriteJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
