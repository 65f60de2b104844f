package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/chayan-1906/google-workspace-mcp/internal/logging"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

// DefaultRefreshThreshold refreshes tokens this long before they expire.
const DefaultRefreshThreshold = 5 * time.Minute

const refreshTimeout = 30 * time.Second

// Refresh result values passed to OnRefresh.
const (
	RefreshResultSuccess = "success"
	RefreshResultFailure = "failure"
	RefreshResultExpired = "expired"
)

// TokenProvider supplies OAuth tokens for Google APIs per account.
type TokenProvider interface {
	// TokenForAccount returns a valid token for the account email.
	TokenForAccount(ctx context.Context, account string) (*oauth2.Token, error)

	// HasTokenForAccount reports whether a token is stored for the account.
	HasTokenForAccount(ctx context.Context, account string) bool
}

// StoreTokenProviderOptions customizes a StoreTokenProvider.
type StoreTokenProviderOptions struct {
	Threshold  time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger

	// OnRefresh observes refresh attempts with one of the RefreshResult values.
	OnRefresh func(ctx context.Context, result string)
}

// StoreTokenProvider reads tokens from a tokenstore.Store and refreshes them
// when they are about to expire. Concurrent refreshes for the same account
// share one request to Google.
type StoreTokenProvider struct {
	conf       *oauth2.Config
	store      tokenstore.Store
	threshold  time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	onRefresh  func(ctx context.Context, result string)
	now        func() time.Time
	group      singleflight.Group
}

// NewStoreTokenProvider creates a provider over store.
func NewStoreTokenProvider(conf *oauth2.Config, store tokenstore.Store, opts StoreTokenProviderOptions) *StoreTokenProvider {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultRefreshThreshold
	}
	return &StoreTokenProvider{
		conf:       conf,
		store:      store,
		threshold:  threshold,
		httpClient: opts.HTTPClient,
		logger:     logging.WithComponent(opts.Logger, "token_provider"),
		onRefresh:  opts.OnRefresh,
		now:        time.Now,
	}
}

// TokenForAccount implements TokenProvider.
func (p *StoreTokenProvider) TokenForAccount(ctx context.Context, account string) (*oauth2.Token, error) {
	email, err := tokenstore.NormalizeEmail(account)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAuthenticated, account)
	}

	doc, err := p.load(ctx, email)
	if err != nil {
		return nil, err
	}
	if !p.expiringSoon(doc.Token) {
		return doc.Token, nil
	}

	v, err, _ := p.group.Do(email, func() (interface{}, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return p.refresh(rctx, email)
	})
	if err != nil {
		return nil, err
	}
	return v.(*oauth2.Token), nil
}

// HasTokenForAccount implements TokenProvider.
func (p *StoreTokenProvider) HasTokenForAccount(ctx context.Context, account string) bool {
	email, err := tokenstore.NormalizeEmail(account)
	if err != nil {
		return false
	}
	_, err = p.store.Get(ctx, email)
	return err == nil
}

func (p *StoreTokenProvider) load(ctx context.Context, email string) (*tokenstore.Document, error) {
	doc, err := p.store.Get(ctx, email)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotAuthenticated, email)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load token for %s: %w", email, err)
	}
	if doc.Token == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotAuthenticated, email)
	}
	return doc, nil
}

func (p *StoreTokenProvider) expiringSoon(tok *oauth2.Token) bool {
	return isTokenExpired(tok, p.threshold, p.now())
}

// isTokenExpired reports whether tok expires within threshold of now.
// Tokens without an expiry never expire.
func isTokenExpired(tok *oauth2.Token, threshold time.Duration, now time.Time) bool {
	if tok.Expiry.IsZero() {
		return false
	}
	return now.Add(threshold).After(tok.Expiry)
}

func (p *StoreTokenProvider) refresh(ctx context.Context, email string) (*oauth2.Token, error) {
	// Another caller may have refreshed while this one waited.
	doc, err := p.load(ctx, email)
	if err != nil {
		return nil, err
	}
	if !p.expiringSoon(doc.Token) {
		return doc.Token, nil
	}

	if doc.Token.RefreshToken == "" {
		p.observe(ctx, RefreshResultExpired)
		return nil, fmt.Errorf("%w: token for %s expired and has no refresh token", ErrReauthRequired, email)
	}

	if p.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	}

	stale := *doc.Token
	stale.Expiry = time.Unix(1, 0)
	fresh, err := p.conf.TokenSource(ctx, &stale).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			p.observe(ctx, RefreshResultExpired)
			return nil, fmt.Errorf("%w: refresh token for %s was revoked or expired", ErrReauthRequired, email)
		}
		p.observe(ctx, RefreshResultFailure)
		return nil, fmt.Errorf("failed to refresh token for %s: %w", email, err)
	}

	if fresh.RefreshToken == "" {
		fresh.RefreshToken = doc.Token.RefreshToken
	}

	doc.Token = fresh
	if err := p.store.Upsert(ctx, doc); err != nil {
		// The new token is still usable for this call.
		p.logger.Warn("failed to save refreshed token", logging.UserHash(email), logging.Err(err))
	}

	p.observe(ctx, RefreshResultSuccess)
	p.logger.Debug("refreshed google token", logging.UserHash(email))
	return fresh, nil
}

func (p *StoreTokenProvider) observe(ctx context.Context, result string) {
	if p.onRefresh != nil {
		p.onRefresh(ctx, result)
	}
}
