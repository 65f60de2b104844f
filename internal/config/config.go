package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/ratelimit"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

// AppName names the XDG directories used for the config file and token database.
const AppName = "google-workspace-mcp"

const (
	configFileName = "config.yaml"
	sqliteFileName = "tokens.db"

	// DefaultCallbackAddr is where the OAuth callback server listens.
	DefaultCallbackAddr = "127.0.0.1:8589"

	// DefaultForwardedEmailHeader carries the authenticated user from a fronting proxy.
	DefaultForwardedEmailHeader = "X-Forwarded-Email"
)

// Config is the fully resolved server configuration.
type Config struct {
	Google GoogleConfig `yaml:"google"`

	// DefaultAccount is used when a tool call names no account.
	DefaultAccount string `yaml:"default_account"`

	// ReadOnly hides every tool that modifies Drive, Sheets or Docs.
	ReadOnly bool `yaml:"read_only"`

	Store StoreConfig `yaml:"store"`

	RateLimit RateLimitConfig `yaml:"rate_limit"`

	CallbackAddr string `yaml:"callback_addr"`

	// TrustForwardedEmail lets the streamable-http transport take the caller's
	// identity from ForwardedEmailHeader. Only enable behind an authenticating proxy.
	TrustForwardedEmail  bool   `yaml:"trust_forwarded_email"`
	ForwardedEmailHeader string `yaml:"forwarded_email_header"`

	Log LogConfig `yaml:"log"`
}

// GoogleConfig is the OAuth client registration.
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// StoreConfig selects the token document store.
type StoreConfig struct {
	Type       string `yaml:"type"`
	SQLitePath string `yaml:"sqlite_path"`

	Valkey ValkeyConfig `yaml:"valkey"`

	// EncryptionKey is a base64-encoded 32-byte AES key.
	EncryptionKey string `yaml:"encryption_key"`
}

// ValkeyConfig mirrors tokenstore.ValkeyConfig with YAML tags.
type ValkeyConfig struct {
	Addr       string `yaml:"addr"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	KeyPrefix  string `yaml:"key_prefix"`
	TLSEnabled bool   `yaml:"tls_enabled"`
	TLSCAFile  string `yaml:"tls_ca_file"`
}

// RateLimitConfig bounds the request rate to Google per account.
type RateLimitConfig struct {
	RPS        float64       `yaml:"rps"`
	Burst      int           `yaml:"burst"`
	MaxRetries int           `yaml:"max_retries"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// LogConfig controls the stderr logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Google: GoogleConfig{
			RedirectURL: google.DefaultRedirectURL,
		},
		ReadOnly: true,
		Store: StoreConfig{
			Type: tokenstore.TypeSQLite,
			Valkey: ValkeyConfig{
				KeyPrefix: tokenstore.DefaultValkeyKeyPrefix,
			},
		},
		RateLimit: RateLimitConfig{
			RPS:        ratelimit.DefaultRequestsPerSecond,
			Burst:      ratelimit.DefaultBurst,
			MaxRetries: ratelimit.DefaultMaxRetries,
			MaxDelay:   ratelimit.DefaultMaxDelay,
		},
		CallbackAddr:         DefaultCallbackAddr,
		ForwardedEmailHeader: DefaultForwardedEmailHeader,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path and the
// environment. An empty path searches the XDG config directories and skips the
// file when none exists.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		found, err := xdg.SearchConfigFile(AppName + "/" + configFileName)
		if err == nil {
			path = found
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config file %s does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the settings that must be present before serving.
func (c *Config) Validate() error {
	oauth := c.OAuthConfig()
	if err := oauth.Validate(); err != nil {
		return err
	}

	switch c.Store.Type {
	case tokenstore.TypeMemory, tokenstore.TypeSQLite:
	case tokenstore.TypeValkey:
		if c.Store.Valkey.Addr == "" {
			return fmt.Errorf("valkey store requires an address (set VALKEY_URL or store.valkey.addr)")
		}
	default:
		return fmt.Errorf("invalid store type %q, must be one of: memory, sqlite, valkey", c.Store.Type)
	}

	if _, err := c.encryptionKey(); err != nil {
		return err
	}

	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("rate limit rps must not be negative, got %v", c.RateLimit.RPS)
	}
	if c.RateLimit.Burst < 0 {
		return fmt.Errorf("rate limit burst must not be negative, got %d", c.RateLimit.Burst)
	}
	if c.RateLimit.MaxRetries < 0 {
		return fmt.Errorf("max retries must not be negative, got %d", c.RateLimit.MaxRetries)
	}

	if c.DefaultAccount != "" {
		if _, err := tokenstore.NormalizeEmail(c.DefaultAccount); err != nil {
			return fmt.Errorf("default account: %w", err)
		}
	}
	if c.TrustForwardedEmail && strings.TrimSpace(c.ForwardedEmailHeader) == "" {
		return fmt.Errorf("forwarded email header must be set when trust_forwarded_email is enabled")
	}
	return nil
}

// OAuthConfig returns the Google client registration with scopes matching
// the read-only setting.
func (c *Config) OAuthConfig() google.OAuthConfig {
	return google.OAuthConfig{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		RedirectURL:  c.Google.RedirectURL,
		Scopes:       google.ScopesFor(c.ReadOnly),
	}
}

// TokenStoreConfig converts the store section for tokenstore.Open.
func (c *Config) TokenStoreConfig() (tokenstore.Config, error) {
	key, err := c.encryptionKey()
	if err != nil {
		return tokenstore.Config{}, err
	}

	path := c.Store.SQLitePath
	if path == "" && c.Store.Type != tokenstore.TypeMemory && c.Store.Type != tokenstore.TypeValkey {
		path, err = DefaultSQLitePath()
		if err != nil {
			return tokenstore.Config{}, err
		}
	}

	return tokenstore.Config{
		Type:       c.Store.Type,
		SQLitePath: path,
		Valkey: tokenstore.ValkeyConfig{
			Addr:       c.Store.Valkey.Addr,
			Username:   c.Store.Valkey.Username,
			Password:   c.Store.Valkey.Password,
			DB:         c.Store.Valkey.DB,
			KeyPrefix:  c.Store.Valkey.KeyPrefix,
			TLSEnabled: c.Store.Valkey.TLSEnabled,
			TLSCAFile:  c.Store.Valkey.TLSCAFile,
		},
		EncryptionKey: key,
	}, nil
}

func (c *Config) encryptionKey() ([]byte, error) {
	if c.Store.EncryptionKey == "" {
		return nil, nil
	}
	key, err := tokenstore.KeyFromBase64(c.Store.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	return key, nil
}

// DefaultSQLitePath returns the token database location under XDG_DATA_HOME.
func DefaultSQLitePath() (string, error) {
	path, err := xdg.DataFile(AppName + "/" + sqliteFileName)
	if err != nil {
		return "", fmt.Errorf("failed to resolve token database path: %w", err)
	}
	return path, nil
}

// EncodeKey renders a raw key the way Store.EncryptionKey expects it.
func EncodeKey(key []byte) string {
	return base64.StdEncoding.EncodeToString(key)
}
