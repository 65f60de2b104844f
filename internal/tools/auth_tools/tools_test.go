package auth_tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
	"github.com/chayan-1906/google-workspace-mcp/internal/tools/tooltest"
)

const newAccount = "new@example.com"

type fakeOAuth struct {
	revoked atomic.Int32
}

func (f *fakeOAuth) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.Form.Get("code") != "good-code" || r.Form.Get("code_verifier") == "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"fresh","refresh_token":"r2","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		f.revoked.Add(1)
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func withAuthenticator(opts *server.Options, api *httptest.Server) {
	conf := &oauth2.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://127.0.0.1:8589/oauth/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: api.URL + "/token",
		},
	}
	opts.Authenticator = google.NewAuthenticator(conf, opts.Store, google.AuthenticatorOptions{
		HTTPClient: api.Client(),
		RevokeURL:  api.URL + "/revoke",
		UserInfo: func(ctx context.Context, client *http.Client) (string, error) {
			return "New@Example.com", nil
		},
	})
}

func newHarness(t *testing.T, readOnly bool) (*tooltest.Harness, *fakeOAuth) {
	t.Helper()
	fake := &fakeOAuth{}
	h := tooltest.NewWithOptions(t, fake.handler(), RegisterAuthTools, readOnly, withAuthenticator)
	return h, fake
}

func jsonPart(text string) string {
	if i := strings.LastIndex(text, "\n\n"); i >= 0 {
		return text[i+2:]
	}
	return text
}

func TestRegisterAuthTools(t *testing.T) {
	h, _ := newHarness(t, true)
	assert.Equal(t, []string{"auth_complete", "auth_list_accounts", "auth_start", "auth_status"}, h.ToolNames())

	h, _ = newHarness(t, false)
	assert.Contains(t, h.ToolNames(), "auth_revoke")
	assert.Len(t, h.ToolNames(), 5)
}

func TestNotConfigured(t *testing.T) {
	h := tooltest.New(t, http.NotFoundHandler(), RegisterAuthTools, false)

	for _, name := range []string{"auth_start", "auth_complete", "auth_revoke"} {
		res := h.Call(name, map[string]interface{}{"account": tooltest.Account, "state": "s", "code": "c"})
		assert.True(t, res.IsError, name)
		assert.Contains(t, tooltest.Text(res), "GOOGLE_CLIENT_ID", name)
	}
}

func TestStartAndCompleteWithRedirectURL(t *testing.T) {
	h, _ := newHarness(t, true)

	res := h.Call("auth_start", map[string]interface{}{"email": newAccount})
	require.False(t, res.IsError, tooltest.Text(res))

	var start StartResponse
	require.NoError(t, json.Unmarshal([]byte(jsonPart(tooltest.Text(res))), &start))
	require.NotEmpty(t, start.State)

	authURL, err := url.Parse(start.AuthURL)
	require.NoError(t, err)
	q := authURL.Query()
	assert.Equal(t, start.State, q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, newAccount, q.Get("login_hint"))

	redirect := "http://127.0.0.1:8589/oauth/callback?state=" + start.State + "&code=good-code"
	res = h.Call("auth_complete", map[string]interface{}{"redirectUrl": redirect})
	require.False(t, res.IsError, tooltest.Text(res))
	assert.Contains(t, tooltest.Text(res), "Connected Google account new@example.com")

	doc, err := h.Store.Get(context.Background(), newAccount)
	require.NoError(t, err)
	assert.Equal(t, "fresh", doc.Token.AccessToken)

	res = h.Call("auth_list_accounts", nil)
	require.False(t, res.IsError)
	var list AccountsResponse
	require.NoError(t, json.Unmarshal([]byte(jsonPart(tooltest.Text(res))), &list))
	assert.ElementsMatch(t, []string{tooltest.Account, newAccount}, list.Accounts)
	assert.Empty(t, list.DefaultAccount)
}

func TestCompleteErrors(t *testing.T) {
	h, _ := newHarness(t, true)

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{name: "no arguments", args: map[string]interface{}{}, want: "provide redirectUrl, or both state and code"},
		{name: "state without code", args: map[string]interface{}{"state": "s"}, want: "provide redirectUrl"},
		{name: "unknown state", args: map[string]interface{}{"state": "nope", "code": "good-code"}, want: "Failed to complete authorization"},
		{name: "consent denied", args: map[string]interface{}{"redirectUrl": "http://127.0.0.1:8589/oauth/callback?error=access_denied"}, want: "Invalid arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := h.Call("auth_complete", tt.args)
			assert.True(t, res.IsError)
			assert.Contains(t, tooltest.Text(res), tt.want)
		})
	}
}

func TestCompleteBadCode(t *testing.T) {
	h, _ := newHarness(t, true)

	req, err := h.SC.Authenticator().BeginAuth("")
	require.NoError(t, err)

	res := h.Call("auth_complete", map[string]interface{}{"state": req.State, "code": "bad-code"})
	assert.True(t, res.IsError)
	assert.Contains(t, tooltest.Text(res), "failed to exchange authorization code")
}

func TestStatus(t *testing.T) {
	h, _ := newHarness(t, true)

	res := h.Call("auth_status", map[string]interface{}{"account": tooltest.Account})
	require.False(t, res.IsError)
	var status StatusResponse
	require.NoError(t, json.Unmarshal([]byte(tooltest.Text(res)), &status))
	assert.Equal(t, StatusValid, status.Status)
	assert.True(t, status.HasRefreshToken)
	assert.NotNil(t, status.Expiry)

	res = h.Call("auth_status", map[string]interface{}{"account": "stranger@example.com"})
	require.False(t, res.IsError)
	status = StatusResponse{}
	require.NoError(t, json.Unmarshal([]byte(tooltest.Text(res)), &status))
	assert.Equal(t, StatusNotAuthenticated, status.Status)
	assert.Contains(t, status.Message, "auth_start")
}

func TestStatusReauthRequired(t *testing.T) {
	h, _ := newHarness(t, true)
	require.NoError(t, h.Store.Upsert(context.Background(), &tokenstore.Document{
		Email: "stale@example.com",
		Token: &oauth2.Token{AccessToken: "old", TokenType: "Bearer", Expiry: time.Now().Add(-time.Hour)},
	}))

	res := h.Call("auth_status", map[string]interface{}{"account": "stale@example.com"})
	var status StatusResponse
	require.NoError(t, json.Unmarshal([]byte(tooltest.Text(res)), &status))
	assert.Equal(t, StatusReauthRequired, status.Status)
	assert.False(t, status.HasRefreshToken)
}

func TestListSingleAccountIsDefault(t *testing.T) {
	h, _ := newHarness(t, true)

	res := h.Call("auth_list_accounts", nil)
	assert.Contains(t, tooltest.Text(res), "1 connected account(s)")
	var list AccountsResponse
	require.NoError(t, json.Unmarshal([]byte(jsonPart(tooltest.Text(res))), &list))
	assert.Equal(t, tooltest.Account, list.DefaultAccount)
}

func TestRevoke(t *testing.T) {
	h, fake := newHarness(t, false)

	res := h.Call("auth_revoke", map[string]interface{}{"account": tooltest.Account})
	require.False(t, res.IsError, tooltest.Text(res))
	assert.Contains(t, tooltest.Text(res), "Revoked access for "+tooltest.Account)
	assert.Equal(t, int32(1), fake.revoked.Load())

	_, err := h.Store.Get(context.Background(), tooltest.Account)
	assert.ErrorIs(t, err, tokenstore.ErrNotFound)

	res = h.Call("auth_revoke", map[string]interface{}{"account": tooltest.Account})
	assert.True(t, res.IsError)
	assert.Contains(t, tooltest.Text(res), "No stored token")

	res = h.Call("auth_revoke", map[string]interface{}{"account": "not-an-email"})
	assert.True(t, res.IsError)
	assert.Contains(t, tooltest.Text(res), "Invalid arguments")

	res = h.Call("auth_revoke", map[string]interface{}{})
	assert.True(t, res.IsError)
	assert.Contains(t, tooltest.Text(res), "account is required")
}
