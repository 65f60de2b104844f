package google

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

// DefaultAccount is the placeholder account name used when a tool call does
// not say which user it is for.
const DefaultAccount = "default"

// DefaultRedirectURL is served by the local OAuth callback server.
const DefaultRedirectURL = "http://127.0.0.1:8589/oauth/callback"

// OAuthConfig holds the Google OAuth client registration.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Validate checks the client registration.
func (c OAuthConfig) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("google client ID is required (set GOOGLE_CLIENT_ID or --google-client-id)")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("google client secret is required (set GOOGLE_CLIENT_SECRET or --google-client-secret)")
	}
	if c.RedirectURL != "" {
		if err := ValidateRedirectURL(c.RedirectURL); err != nil {
			return err
		}
	}
	return nil
}

// NewOAuth2Config builds the oauth2 configuration against Google's endpoints.
func NewOAuth2Config(c OAuthConfig) *oauth2.Config {
	redirect := c.RedirectURL
	if redirect == "" {
		redirect = DefaultRedirectURL
	}
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     googleoauth.Endpoint,
		RedirectURL:  redirect,
		Scopes:       append([]string(nil), scopes...),
	}
}

// ValidateRedirectURL requires https, except for loopback hosts where plain
// http is allowed.
func ValidateRedirectURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid redirect URL: %w", err)
	}
	if u.Host == "" {
		return fmt.Errorf("redirect URL %q has no host", raw)
	}

	switch u.Scheme {
	case "https":
		return nil
	case "http":
		if isLoopback(u.Hostname()) {
			return nil
		}
		return fmt.Errorf("redirect URL must use HTTPS for non-loopback host %q", u.Hostname())
	default:
		return fmt.Errorf("redirect URL must use http or https, got %q", u.Scheme)
	}
}

func isLoopback(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ParseCallbackURL extracts state and code from the URL Google redirected the
// browser to. An error parameter in the URL is returned as an error.
func ParseCallbackURL(raw string) (state, code string, err error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", "", fmt.Errorf("invalid callback URL: %w", err)
	}
	q := u.Query()
	if e := q.Get("error"); e != "" {
		return "", "", fmt.Errorf("authorization denied: %s", e)
	}
	state, code = q.Get("state"), q.Get("code")
	if code == "" {
		return "", "", fmt.Errorf("callback URL has no code parameter")
	}
	if state == "" {
		return "", "", fmt.Errorf("callback URL has no state parameter")
	}
	return state, code, nil
}
