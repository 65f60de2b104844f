package google

import (
	"context"
	"net/http"

	"golang.org/x/oauth2"
)

// providerTokenSource adapts a TokenProvider to oauth2.TokenSource.
type providerTokenSource struct {
	ctx      context.Context
	provider TokenProvider
	account  string
}

func (s *providerTokenSource) Token() (*oauth2.Token, error) {
	return s.provider.TokenForAccount(s.ctx, s.account)
}

// TokenSourceForAccount returns a cached token source that goes back to
// provider once the cached token expires.
func TokenSourceForAccount(ctx context.Context, provider TokenProvider, account string) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &providerTokenSource{ctx: ctx, provider: provider, account: account})
}

// NewHTTPClientForAccount returns an HTTP client that authorizes requests as
// account. base performs the requests; nil uses http.DefaultTransport.
func NewHTTPClientForAccount(ctx context.Context, provider TokenProvider, account string, base http.RoundTripper) *http.Client {
	return &http.Client{
		Transport: &oauth2.Transport{
			Source: TokenSourceForAccount(ctx, provider, account),
			Base:   base,
		},
	}
}
