package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

// fakeGoogle imitates Google's token and revocation endpoints.
type fakeGoogle struct {
	srv           *httptest.Server
	exchanges     int32
	refreshes     int32
	revocations   int32
	refreshDelay  time.Duration
	lastVerifier  atomic.Value
	lastRevokeTok atomic.Value
}

func newFakeGoogle(t *testing.T) *fakeGoogle {
	t.Helper()
	f := &fakeGoogle{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", f.handleToken)
	mux.HandleFunc("/revoke", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		atomic.AddInt32(&f.revocations, 1)
		f.lastRevokeTok.Store(r.PostForm.Get("token"))
		w.WriteHeader(http.StatusOK)
	})
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeGoogle) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch r.PostForm.Get("grant_type") {
	case "authorization_code":
		atomic.AddInt32(&f.exchanges, 1)
		f.lastVerifier.Store(r.PostForm.Get("code_verifier"))
		resp := map[string]interface{}{
			"access_token": "at-" + r.PostForm.Get("code"),
			"token_type":   "Bearer",
			"expires_in":   3600,
			"scope":        "openid https://www.googleapis.com/auth/drive",
		}
		if r.PostForm.Get("code") == "first" {
			resp["refresh_token"] = "rt-first"
		}
		if r.PostForm.Get("code") == "bad" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(resp)

	case "refresh_token":
		atomic.AddInt32(&f.refreshes, 1)
		if f.refreshDelay > 0 {
			time.Sleep(f.refreshDelay)
		}
		if r.PostForm.Get("refresh_token") == "revoked" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "refreshed",
			"token_type":   "Bearer",
			"expires_in":   3600,
		})

	default:
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unsupported_grant_type"})
	}
}

func (f *fakeGoogle) config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.srv.URL + "/auth",
			TokenURL:  f.srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: "http://127.0.0.1:8589/oauth/callback",
		Scopes:      DefaultOAuthScopes,
	}
}

func staticUserInfo(email string) UserInfoFunc {
	return func(context.Context, *http.Client) (string, error) {
		return email, nil
	}
}
