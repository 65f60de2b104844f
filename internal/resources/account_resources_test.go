package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

func seededStore(t *testing.T) *tokenstore.MemoryStore {
	t.Helper()
	store := tokenstore.NewMemoryStore(nil)
	ctx := context.Background()
	require.NoError(t, store.Upsert(ctx, &tokenstore.Document{
		Email:  "a@example.com",
		Token:  &oauth2.Token{AccessToken: "secret-a", RefreshToken: "refresh-a", Expiry: time.Now().Add(time.Hour)},
		Scopes: []string{"openid"},
	}))
	require.NoError(t, store.Upsert(ctx, &tokenstore.Document{
		Email: "b@example.com",
		Token: &oauth2.Token{AccessToken: "secret-b", Expiry: time.Now().Add(-time.Hour)},
	}))
	return store
}

func TestListAccounts(t *testing.T) {
	infos, err := listAccounts(context.Background(), seededStore(t))
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byEmail := map[string]AccountInfo{}
	for _, info := range infos {
		byEmail[info.Email] = info
	}

	a := byEmail["a@example.com"]
	assert.False(t, a.Expired)
	assert.True(t, a.HasRefreshToken)
	assert.Equal(t, []string{"openid"}, a.Scopes)
	require.NotNil(t, a.Expiry)

	b := byEmail["b@example.com"]
	assert.True(t, b.Expired)
	assert.False(t, b.HasRefreshToken)
}

func TestAccountInfo_NoExpiry(t *testing.T) {
	info := accountInfo(&tokenstore.Document{Email: "x@example.com", Token: &oauth2.Token{AccessToken: "t"}}, time.Now())
	assert.Nil(t, info.Expiry)
	assert.False(t, info.Expired)

	info = accountInfo(&tokenstore.Document{Email: "y@example.com"}, time.Now())
	assert.False(t, info.HasRefreshToken)
}

func readResource(t *testing.T, s *mcpserver.MCPServer, ctx context.Context, uri string) string {
	t.Helper()
	msg := fmt.Sprintf(`{"jsonrpc":"2.0","id":1,"method":"resources/read","params":{"uri":%q}}`, uri)
	resp := s.HandleMessage(ctx, json.RawMessage(msg))

	raw, err := json.Marshal(resp)
	require.NoError(t, err)
	var decoded struct {
		Result struct {
			Contents []struct {
				URI  string `json:"uri"`
				Text string `json:"text"`
			} `json:"contents"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Nil(t, decoded.Error, "resources/read failed: %s", raw)
	require.Len(t, decoded.Result.Contents, 1)
	assert.Equal(t, uri, decoded.Result.Contents[0].URI)
	return decoded.Result.Contents[0].Text
}

func newResourceServer(t *testing.T, store tokenstore.Store, defaultAccount string) *mcpserver.MCPServer {
	t.Helper()
	sc, err := server.NewServerContext(context.Background(), server.Options{
		Provider:       google.NewStoreTokenProvider(&oauth2.Config{}, store, google.StoreTokenProviderOptions{}),
		Store:          store,
		DefaultAccount: defaultAccount,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithResourceCapabilities(false, false))
	require.NoError(t, RegisterAccountResources(s, sc))
	return s
}

func TestAccountsResource(t *testing.T) {
	s := newResourceServer(t, seededStore(t), "")

	text := readResource(t, s, context.Background(), AccountsURI)
	assert.NotContains(t, text, "secret-a")
	assert.NotContains(t, text, "refresh-a")

	var infos []AccountInfo
	require.NoError(t, json.Unmarshal([]byte(text), &infos))
	assert.Len(t, infos, 2)
}

func TestCurrentAccountResource(t *testing.T) {
	tests := []struct {
		name           string
		ctxEmail       string
		defaultAccount string
		wantAccount    string
		wantAuthed     bool
	}{
		{name: "no default among several accounts", wantAccount: ""},
		{name: "configured default", defaultAccount: "a@example.com", wantAccount: "a@example.com", wantAuthed: true},
		{name: "context email", ctxEmail: "b@example.com", wantAccount: "b@example.com", wantAuthed: true},
		{name: "unknown context email", ctxEmail: "c@example.com", wantAccount: "c@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newResourceServer(t, seededStore(t), tt.defaultAccount)
			ctx := google.WithUserEmail(context.Background(), tt.ctxEmail)

			var current CurrentAccount
			require.NoError(t, json.Unmarshal([]byte(readResource(t, s, ctx, CurrentAccountURI)), &current))
			assert.Equal(t, tt.wantAccount, current.Account)
			assert.Equal(t, tt.wantAuthed, current.Authenticated)
		})
	}
}

func TestRegisterAccountResources_NoStore(t *testing.T) {
	sc, err := server.NewServerContext(context.Background(), server.Options{
		Provider: google.NewStoreTokenProvider(&oauth2.Config{}, tokenstore.NewMemoryStore(nil), google.StoreTokenProviderOptions{}),
	})
	require.NoError(t, err)
	defer sc.Shutdown()

	err = RegisterAccountResources(mcpserver.NewMCPServer("test", "0.0.0"), sc)
	assert.Error(t, err)
}
