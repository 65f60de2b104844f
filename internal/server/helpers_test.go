package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

const testAccount = "user@example.com"

// pingFailStore fails health checks while serving documents normally.
type pingFailStore struct {
	tokenstore.Store
}

func (pingFailStore) Ping(context.Context) error { return errors.New("connection refused") }

// fakeTokenEndpoint accepts code "good-code" only.
func fakeTokenEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		w.Header().Set("Content-Type", "application/json")
		if r.Form.Get("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"fresh","refresh_token":"r","token_type":"Bearer","expires_in":3600}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testAuthenticator(t *testing.T, store tokenstore.Store) *google.Authenticator {
	t.Helper()
	tokenSrv := fakeTokenEndpoint(t)
	conf := &oauth2.Config{
		ClientID:    "client",
		RedirectURL: "http://127.0.0.1:8589" + CallbackPath,
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://accounts.google.com/o/oauth2/auth",
			TokenURL: tokenSrv.URL,
		},
	}
	return google.NewAuthenticator(conf, store, google.AuthenticatorOptions{
		HTTPClient: tokenSrv.Client(),
		UserInfo: func(context.Context, *http.Client) (string, error) {
			return "new@example.com", nil
		},
	})
}

// newTestContext returns a context whose store holds testAccount.
func newTestContext(t *testing.T, configure func(*Options)) *ServerContext {
	t.Helper()
	store := tokenstore.NewMemoryStore(nil)
	if err := store.Upsert(context.Background(), &tokenstore.Document{
		Email: testAccount,
		Token: &oauth2.Token{AccessToken: "a", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)},
	}); err != nil {
		t.Fatal(err)
	}

	opts := Options{
		Provider: google.NewStoreTokenProvider(&oauth2.Config{}, store, google.StoreTokenProviderOptions{}),
		Store:    store,
		ReadOnly: true,
	}
	if configure != nil {
		configure(&opts)
	}
	sc, err := NewServerContext(context.Background(), opts)
	if err != nil {
		t.Fatalf("NewServerContext() error = %v", err)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}
