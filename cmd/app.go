package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chayan-1906/google-workspace-mcp/internal/config"
	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/instrumentation"
	"github.com/chayan-1906/google-workspace-mcp/internal/logging"
	"github.com/chayan-1906/google-workspace-mcp/internal/ratelimit"
	"github.com/chayan-1906/google-workspace-mcp/internal/server"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

const limiterSweepInterval = time.Minute

// app bundles the long-lived dependencies shared by serve and auth.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    tokenstore.Store
	provider *google.StoreTokenProvider
	auth     *google.Authenticator
	limiters *ratelimit.Limiters
	metrics  *instrumentation.Metrics

	stopSweeper chan struct{}
}

// loadConfig resolves the configuration for the --config and --debug
// persistent flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if debugMode {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// newLogger installs the process logger. Output always goes to stderr since
// stdout carries MCP frames in stdio mode.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	logger, err := logging.Setup(logging.Options{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid log configuration: %w", err)
	}
	return logger, nil
}

// newApp validates cfg and opens the token store. metrics may be nil.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *instrumentation.Metrics) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	storeCfg, err := cfg.TokenStoreConfig()
	if err != nil {
		return nil, err
	}
	store, err := tokenstore.Open(ctx, storeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}
	logger.Debug("token store opened",
		slog.String("type", storeCfg.Type),
		slog.Bool("encrypted", len(storeCfg.EncryptionKey) > 0))

	conf := google.NewOAuth2Config(cfg.OAuthConfig())
	provider := google.NewStoreTokenProvider(conf, store, google.StoreTokenProviderOptions{
		Logger: logger,
		OnRefresh: func(ctx context.Context, result string) {
			metrics.RecordOAuthTokenRefresh(ctx, result)
		},
	})
	auth := google.NewAuthenticator(conf, store, google.AuthenticatorOptions{
		Logger: logger,
		OnAuth: func(ctx context.Context, result string) {
			metrics.RecordOAuthAuth(ctx, result)
		},
	})

	a := &app{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		provider:    provider,
		auth:        auth,
		limiters:    ratelimit.NewLimiters(cfg.RateLimit.RPS, cfg.RateLimit.Burst),
		metrics:     metrics,
		stopSweeper: make(chan struct{}),
	}
	go a.limiters.RunSweeper(limiterSweepInterval, a.stopSweeper)
	return a, nil
}

// serverContext builds the shared tool state. audit may be nil.
func (a *app) serverContext(ctx context.Context, audit *instrumentation.AuditLogger) (*server.ServerContext, error) {
	return server.NewServerContext(ctx, server.Options{
		Provider:       a.provider,
		Authenticator:  a.auth,
		Store:          a.store,
		DefaultAccount: a.cfg.DefaultAccount,
		ReadOnly:       a.cfg.ReadOnly,
		Limiters:       a.limiters,
		MaxRetries:     a.cfg.RateLimit.MaxRetries,
		MaxRetryDelay:  a.cfg.RateLimit.MaxDelay,
		Logger:         a.logger,
		Metrics:        a.metrics,
		AuditLogger:    audit,
	})
}

// accountsMissingWriteScopes lists the stored accounts whose recorded grant
// lacks a write scope. Documents without recorded scopes are skipped.
func (a *app) accountsMissingWriteScopes(ctx context.Context) ([]string, error) {
	emails, err := a.store.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, email := range emails {
		doc, err := a.store.Get(ctx, email)
		if err != nil {
			return nil, err
		}
		if len(doc.Scopes) > 0 && len(google.MissingWriteScopes(doc.Scopes)) > 0 {
			out = append(out, email)
		}
	}
	return out, nil
}

// warnReadOnlyGrants logs accounts that will fail write tools with permission
// denied until they sign in again with write access.
func (a *app) warnReadOnlyGrants(ctx context.Context) {
	emails, err := a.accountsMissingWriteScopes(ctx)
	if err != nil {
		a.logger.Warn("failed to check stored grants", logging.Err(err))
		return
	}
	for _, email := range emails {
		a.logger.Warn("account was signed in read-only; write tools will be denied until it signs in with 'auth login --yolo'",
			logging.UserHash(email))
	}
}

// Close stops background work and closes the token store.
func (a *app) Close() error {
	close(a.stopSweeper)
	if err := a.store.Close(); err != nil {
		return fmt.Errorf("failed to close token store: %w", err)
	}
	return nil
}
