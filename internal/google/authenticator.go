package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/chayan-1906/google-workspace-mcp/internal/logging"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

const (
	// DefaultFlowTTL bounds how long a consent flow may stay pending.
	DefaultFlowTTL = 10 * time.Minute

	// GoogleRevokeURL is Google's token revocation endpoint.
	GoogleRevokeURL = "https://oauth2.googleapis.com/revoke"
)

// Auth result values passed to OnAuth.
const (
	AuthResultSuccess = "success"
	AuthResultFailure = "failure"
)

// AuthRequest is a started consent flow.
type AuthRequest struct {
	URL       string    `json:"url"`
	State     string    `json:"state"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type pendingFlow struct {
	verifier  string
	loginHint string
	expiresAt time.Time
}

// AuthenticatorOptions customizes an Authenticator. Zero values use defaults.
type AuthenticatorOptions struct {
	// HTTPClient is used for token exchange, userinfo and revocation calls.
	HTTPClient *http.Client

	// UserInfo resolves the signed-in email. Defaults to FetchUserEmail.
	UserInfo UserInfoFunc

	FlowTTL   time.Duration
	RevokeURL string
	Logger    *slog.Logger

	// OnAuth observes each completed exchange with AuthResultSuccess or AuthResultFailure.
	OnAuth func(ctx context.Context, result string)
}

// Authenticator runs the consent flow and persists the resulting tokens.
type Authenticator struct {
	conf       *oauth2.Config
	store      tokenstore.Store
	httpClient *http.Client
	userInfo   UserInfoFunc
	flowTTL    time.Duration
	revokeURL  string
	logger     *slog.Logger
	onAuth     func(ctx context.Context, result string)
	now        func() time.Time

	mu      sync.Mutex
	pending map[string]pendingFlow
}

// NewAuthenticator creates an Authenticator writing to store.
func NewAuthenticator(conf *oauth2.Config, store tokenstore.Store, opts AuthenticatorOptions) *Authenticator {
	a := &Authenticator{
		conf:       conf,
		store:      store,
		httpClient: opts.HTTPClient,
		userInfo:   opts.UserInfo,
		flowTTL:    opts.FlowTTL,
		revokeURL:  opts.RevokeURL,
		logger:     logging.WithComponent(opts.Logger, "auth"),
		onAuth:     opts.OnAuth,
		now:        time.Now,
		pending:    make(map[string]pendingFlow),
	}
	if a.userInfo == nil {
		a.userInfo = FetchUserEmail
	}
	if a.flowTTL <= 0 {
		a.flowTTL = DefaultFlowTTL
	}
	if a.revokeURL == "" {
		a.revokeURL = GoogleRevokeURL
	}
	return a
}

// Store returns the backing token store.
func (a *Authenticator) Store() tokenstore.Store {
	return a.store
}

// BeginAuth starts a consent flow. loginHint pre-selects a Google account
// and may be empty.
func (a *Authenticator) BeginAuth(loginHint string) (*AuthRequest, error) {
	state := uuid.NewString()
	verifier := oauth2.GenerateVerifier()
	now := a.now()

	opts := []oauth2.AuthCodeOption{
		oauth2.AccessTypeOffline,
		oauth2.ApprovalForce,
		oauth2.S256ChallengeOption(verifier),
	}
	if hint := strings.TrimSpace(loginHint); hint != "" {
		opts = append(opts, oauth2.SetAuthURLParam("login_hint", hint))
	}

	flow := pendingFlow{
		verifier:  verifier,
		loginHint: loginHint,
		expiresAt: now.Add(a.flowTTL),
	}

	a.mu.Lock()
	a.pruneLocked(now)
	a.pending[state] = flow
	a.mu.Unlock()

	return &AuthRequest{
		URL:       a.conf.AuthCodeURL(state, opts...),
		State:     state,
		ExpiresAt: flow.expiresAt,
	}, nil
}

// PendingFlows returns the number of consent flows awaiting a callback.
func (a *Authenticator) PendingFlows() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pruneLocked(a.now())
	return len(a.pending)
}

func (a *Authenticator) pruneLocked(now time.Time) {
	for state, flow := range a.pending {
		if now.After(flow.expiresAt) {
			delete(a.pending, state)
		}
	}
}

// CompleteAuth finishes the flow identified by state, stores the token under
// the user's email, and returns that email.
func (a *Authenticator) CompleteAuth(ctx context.Context, state, code string) (string, error) {
	if state == "" || code == "" {
		return "", fmt.Errorf("state and code are required")
	}

	a.mu.Lock()
	flow, ok := a.pending[state]
	delete(a.pending, state)
	a.mu.Unlock()

	if !ok {
		return "", ErrUnknownState
	}
	if a.now().After(flow.expiresAt) {
		return "", ErrFlowExpired
	}

	email, err := a.exchange(ctx, code, flow.verifier)
	if err != nil {
		a.observe(ctx, AuthResultFailure)
		return "", err
	}
	a.observe(ctx, AuthResultSuccess)

	if flow.loginHint != "" && !strings.EqualFold(strings.TrimSpace(flow.loginHint), email) {
		a.logger.Warn("signed in with a different account than requested",
			logging.UserHash(email))
	}
	return email, nil
}

func (a *Authenticator) observe(ctx context.Context, result string) {
	if a.onAuth != nil {
		a.onAuth(ctx, result)
	}
}

func (a *Authenticator) oauthContext(ctx context.Context) context.Context {
	if a.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)
	}
	return ctx
}

func (a *Authenticator) exchange(ctx context.Context, code, verifier string) (string, error) {
	octx := a.oauthContext(ctx)

	tok, err := a.conf.Exchange(octx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return "", fmt.Errorf("failed to exchange authorization code: %w", err)
	}

	rawEmail, err := a.userInfo(ctx, a.conf.Client(octx, tok))
	if err != nil {
		return "", err
	}
	email, err := tokenstore.NormalizeEmail(rawEmail)
	if err != nil {
		return "", err
	}

	doc := &tokenstore.Document{
		Email:  email,
		Token:  tok,
		Scopes: grantedScopes(tok, a.conf.Scopes),
	}

	existing, err := a.store.Get(ctx, email)
	switch {
	case err == nil:
		doc.CreatedAt = existing.CreatedAt
		// Google only returns a refresh token on first consent for some clients.
		if tok.RefreshToken == "" && existing.Token != nil {
			doc.Token.RefreshToken = existing.Token.RefreshToken
		}
	case errors.Is(err, tokenstore.ErrNotFound):
	default:
		return "", fmt.Errorf("failed to read existing token document: %w", err)
	}

	if err := a.store.Upsert(ctx, doc); err != nil {
		return "", fmt.Errorf("failed to save token: %w", err)
	}

	a.logger.Info("stored google token", logging.UserHash(email))
	return email, nil
}

func grantedScopes(tok *oauth2.Token, requested []string) []string {
	if raw, ok := tok.Extra("scope").(string); ok && raw != "" {
		return strings.Fields(raw)
	}
	return append([]string(nil), requested...)
}

// Revoke asks Google to revoke the user's grant and deletes the stored
// document. Revocation failures are logged; the document is removed anyway.
func (a *Authenticator) Revoke(ctx context.Context, email string) error {
	key, err := tokenstore.NormalizeEmail(email)
	if err != nil {
		return err
	}

	doc, err := a.store.Get(ctx, key)
	if errors.Is(err, tokenstore.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrNotAuthenticated, key)
	}
	if err != nil {
		return err
	}

	if err := a.revokeRemote(ctx, doc.Token); err != nil {
		a.logger.Warn("google token revocation failed", logging.UserHash(key), logging.Err(err))
	}

	if err := a.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete token document: %w", err)
	}
	a.logger.Info("revoked google token", logging.UserHash(key))
	return nil
}

func (a *Authenticator) revokeRemote(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil {
		return nil
	}
	value := tok.RefreshToken
	if value == "" {
		value = tok.AccessToken
	}
	if value == "" {
		return nil
	}

	form := url.Values{"token": {value}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := a.httpClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke endpoint returned %s", resp.Status)
	}
	return nil
}

// Accounts lists the emails with stored tokens.
func (a *Authenticator) Accounts(ctx context.Context) ([]string, error) {
	return a.store.List(ctx)
}
