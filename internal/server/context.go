package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"google.golang.org/api/option"

	"github.com/chayan-1906/google-workspace-mcp/internal/docs"
	"github.com/chayan-1906/google-workspace-mcp/internal/drive"
	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/logging"
	"github.com/chayan-1906/google-workspace-mcp/internal/ratelimit"
	"github.com/chayan-1906/google-workspace-mcp/internal/sheets"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

// Options configures a ServerContext.
type Options struct {
	Provider      google.TokenProvider
	Authenticator *google.Authenticator
	Store         tokenstore.Store

	// DefaultAccount is used when a call names no account.
	DefaultAccount string
	ReadOnly       bool

	// Limiters holds the per-account token buckets. Nil disables limiting.
	Limiters *ratelimit.Limiters

	// MaxRetries bounds retries of throttled or failed Google calls. Zero disables retries.
	MaxRetries    int
	MaxRetryDelay time.Duration

	// Base performs Google API requests. Defaults to an HTTP/1.1-only transport.
	Base http.RoundTripper

	// ClientOptions are appended to the options of every Google API client.
	ClientOptions []option.ClientOption

	Logger      *slog.Logger
	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger
}

// ServerContext holds the shared state of the MCP server: token access,
// per-account Google API clients and instrumentation.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   Options
	logger *slog.Logger

	mu            sync.RWMutex
	driveClients  map[string]*drive.Client
	sheetsClients map[string]*sheets.Client
	docsClients   map[string]*docs.Client
	shutdown      bool
}

// NewServerContext creates a server context. Clients are created lazily on
// first use per account.
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("token provider is required")
	}
	if opts.Base == nil {
		opts.Base = ratelimit.HTTP1Transport()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:           shutdownCtx,
		cancel:        cancel,
		opts:          opts,
		logger:        logging.WithComponent(opts.Logger, "server"),
		driveClients:  make(map[string]*drive.Client),
		sheetsClients: make(map[string]*sheets.Client),
		docsClients:   make(map[string]*docs.Client),
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

func (sc *ServerContext) Provider() google.TokenProvider { return sc.opts.Provider }

// Authenticator returns the consent flow runner, or nil when the server was
// started without OAuth client credentials.
func (sc *ServerContext) Authenticator() *google.Authenticator { return sc.opts.Authenticator }

func (sc *ServerContext) Store() tokenstore.Store { return sc.opts.Store }

func (sc *ServerContext) ReadOnly() bool { return sc.opts.ReadOnly }

func (sc *ServerContext) Logger() *slog.Logger { return sc.logger }

// Metrics returns the metrics recorder, or nil if instrumentation is off.
func (sc *ServerContext) Metrics() *instrumentation.Metrics { return sc.opts.Metrics }

// AuditLogger returns the audit logger, or nil if auditing is off.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger { return sc.opts.AuditLogger }

// ResolveAccount picks the account a call runs as.
//
// Priority order:
//  1. the user email carried by ctx (trusted proxy header)
//  2. the explicit account argument
//  3. the configured default account
//  4. the only stored account, when exactly one exists
//  5. google.DefaultAccount
func (sc *ServerContext) ResolveAccount(ctx context.Context, explicit string) string {
	if email, ok := google.UserEmailFromContext(ctx); ok {
		return email
	}
	if explicit != "" && explicit != google.DefaultAccount {
		return explicit
	}
	if sc.opts.DefaultAccount != "" {
		return sc.opts.DefaultAccount
	}
	if sc.opts.Store != nil {
		accounts, err := sc.opts.Store.List(ctx)
		if err != nil {
			sc.logger.Warn("failed to list stored accounts", logging.Err(err))
		} else if len(accounts) == 1 {
			return accounts[0]
		}
	}
	return google.DefaultAccount
}

// HTTPClientForAccount returns an authorized, rate limited client for account.
func (sc *ServerContext) HTTPClientForAccount(account string) *http.Client {
	rt := ratelimit.NewTransport(sc.opts.Base, sc.opts.Limiters, cacheKey(account))
	rt.MaxRetries = sc.opts.MaxRetries
	if sc.opts.MaxRetryDelay > 0 {
		rt.MaxDelay = sc.opts.MaxRetryDelay
	}
	rt.Logger = sc.logger
	if m := sc.opts.Metrics; m != nil {
		rt.OnRetry = func(ctx context.Context, status int) {
			m.RecordGoogleAPIRetry(ctx, status)
		}
	}
	return google.NewHTTPClientForAccount(sc.ctx, sc.opts.Provider, account, rt)
}

func (sc *ServerContext) clientOptions(account string) []option.ClientOption {
	opts := []option.ClientOption{option.WithHTTPClient(sc.HTTPClientForAccount(account))}
	return append(opts, sc.opts.ClientOptions...)
}

// checkAccount fails with ErrNotAuthenticated when no token is stored.
func (sc *ServerContext) checkAccount(account string) error {
	if sc.IsShutdown() {
		return fmt.Errorf("server is shutting down")
	}
	if !sc.opts.Provider.HasTokenForAccount(sc.ctx, account) {
		return fmt.Errorf("%w: %s", google.ErrNotAuthenticated, account)
	}
	return nil
}

// DriveClientForAccount returns the Drive client for account, creating and
// caching it on first use.
func (sc *ServerContext) DriveClientForAccount(account string) (*drive.Client, error) {
	key := cacheKey(account)
	sc.mu.RLock()
	client, ok := sc.driveClients[key]
	sc.mu.RUnlock()
	if ok {
		return client, nil
	}
	if err := sc.checkAccount(account); err != nil {
		return nil, err
	}

	client, err := drive.NewClient(sc.ctx, account, sc.clientOptions(account)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive client for account %s: %w", account, err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if existing, ok := sc.driveClients[key]; ok {
		return existing, nil
	}
	sc.driveClients[key] = client
	return client, nil
}

// SheetsClientForAccount returns the Sheets client for account.
func (sc *ServerContext) SheetsClientForAccount(account string) (*sheets.Client, error) {
	key := cacheKey(account)
	sc.mu.RLock()
	client, ok := sc.sheetsClients[key]
	sc.mu.RUnlock()
	if ok {
		return client, nil
	}
	if err := sc.checkAccount(account); err != nil {
		return nil, err
	}

	client, err := sheets.NewClient(sc.ctx, account, sc.clientOptions(account)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sheets client for account %s: %w", account, err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if existing, ok := sc.sheetsClients[key]; ok {
		return existing, nil
	}
	sc.sheetsClients[key] = client
	return client, nil
}

// DocsClientForAccount returns the Docs client for account.
func (sc *ServerContext) DocsClientForAccount(account string) (*docs.Client, error) {
	key := cacheKey(account)
	sc.mu.RLock()
	client, ok := sc.docsClients[key]
	sc.mu.RUnlock()
	if ok {
		return client, nil
	}
	if err := sc.checkAccount(account); err != nil {
		return nil, err
	}

	client, err := docs.NewClient(sc.ctx, account, sc.clientOptions(account)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Docs client for account %s: %w", account, err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	if existing, ok := sc.docsClients[key]; ok {
		return existing, nil
	}
	sc.docsClients[key] = client
	return client, nil
}

// InvalidateAccount drops cached clients for account so the next call picks
// up a new or revoked token.
func (sc *ServerContext) InvalidateAccount(account string) {
	key := cacheKey(account)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	delete(sc.driveClients, key)
	delete(sc.sheetsClients, key)
	delete(sc.docsClients, key)
}

func cacheKey(account string) string {
	if email, err := tokenstore.NormalizeEmail(account); err == nil {
		return email
	}
	return account
}

// CachedClients returns the number of cached API clients.
func (sc *ServerContext) CachedClients() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.driveClients) + len(sc.sheetsClients) + len(sc.docsClients)
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and drops cached clients. It is safe
// to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	sc.driveClients = make(map[string]*drive.Client)
	sc.sheetsClients = make(map[string]*sheets.Client)
	sc.docsClients = make(map[string]*docs.Client)
	return nil
}
