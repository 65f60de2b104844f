package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chayan-1906/google-workspace-mcp/internal/google"
	"github.com/chayan-1906/google-workspace-mcp/internal/tokenstore"
)

const testKey = "MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY=" // 32 bytes

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.ReadOnly)
	assert.Equal(t, tokenstore.TypeSQLite, cfg.Store.Type)
	assert.Equal(t, google.DefaultRedirectURL, cfg.Google.RedirectURL)
	assert.Equal(t, DefaultCallbackAddr, cfg.CallbackAddr)
	assert.Equal(t, DefaultForwardedEmailHeader, cfg.ForwardedEmailHeader)
	assert.False(t, cfg.TrustForwardedEmail)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := writeFile(t, `
google:
  client_id: file-id
  client_secret: file-secret
default_account: Jane@Example.com
read_only: false
store:
  type: valkey
  valkey:
    addr: valkey:6379
    db: 2
rate_limit:
  rps: 2.5
  burst: 4
  max_delay: 10s
`)
	t.Setenv("GOOGLE_CLIENT_ID", "env-id")
	t.Setenv("VALKEY_DB", "3")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.Google.ClientID)
	assert.Equal(t, "file-secret", cfg.Google.ClientSecret)
	assert.Equal(t, "Jane@Example.com", cfg.DefaultAccount)
	assert.False(t, cfg.ReadOnly)
	assert.Equal(t, tokenstore.TypeValkey, cfg.Store.Type)
	assert.Equal(t, "valkey:6379", cfg.Store.Valkey.Addr)
	assert.Equal(t, 3, cfg.Store.Valkey.DB)
	assert.Equal(t, tokenstore.DefaultValkeyKeyPrefix, cfg.Store.Valkey.KeyPrefix)
	assert.Equal(t, 2.5, cfg.RateLimit.RPS)
	assert.Equal(t, 4, cfg.RateLimit.Burst)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.MaxDelay)
	require.NoError(t, cfg.Validate())
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "google: [unterminated"))
		assert.Error(t, err)
	})

	t.Run("bad env bool", func(t *testing.T) {
		t.Setenv("GWMCP_READ_ONLY", "sometimes")
		_, err := Load(writeFile(t, ""))
		assert.ErrorContains(t, err, "GWMCP_READ_ONLY")
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Default()
		cfg.Google.ClientID = "id"
		cfg.Google.ClientSecret = "secret"
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"missing client id", func(c *Config) { c.Google.ClientID = "" }, "client ID"},
		{"insecure redirect", func(c *Config) { c.Google.RedirectURL = "http://example.com/cb" }, "redirect"},
		{"unknown store", func(c *Config) { c.Store.Type = "mongo" }, "invalid store type"},
		{"valkey without addr", func(c *Config) { c.Store.Type = tokenstore.TypeValkey }, "valkey"},
		{"bad key", func(c *Config) { c.Store.EncryptionKey = "c2hvcnQ=" }, "encryption key"},
		{"good key", func(c *Config) { c.Store.EncryptionKey = testKey }, ""},
		{"negative rps", func(c *Config) { c.RateLimit.RPS = -1 }, "rps"},
		{"bad default account", func(c *Config) { c.DefaultAccount = "jane" }, "default account"},
		{"trusted header empty", func(c *Config) {
			c.TrustForwardedEmail = true
			c.ForwardedEmailHeader = " "
		}, "forwarded email header"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestOAuthConfig_ScopesFollowReadOnly(t *testing.T) {
	cfg := Default()
	assert.Equal(t, google.ReadOnlyOAuthScopes, cfg.OAuthConfig().Scopes)

	cfg.ReadOnly = false
	assert.Equal(t, google.DefaultOAuthScopes, cfg.OAuthConfig().Scopes)
}

func TestTokenStoreConfig(t *testing.T) {
	cfg := Default()
	cfg.Store.SQLitePath = "/tmp/tokens.db"
	cfg.Store.EncryptionKey = testKey

	sc, err := cfg.TokenStoreConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/tokens.db", sc.SQLitePath)
	assert.Len(t, sc.EncryptionKey, tokenstore.KeySize)

	cfg.Store.Type = tokenstore.TypeMemory
	cfg.Store.SQLitePath = ""
	sc, err = cfg.TokenStoreConfig()
	require.NoError(t, err)
	assert.Empty(t, sc.SQLitePath)
}

func TestValkeyApplyURL(t *testing.T) {
	tests := []struct {
		in   string
		want ValkeyConfig
	}{
		{in: "valkey:6379", want: ValkeyConfig{Addr: "valkey:6379"}},
		{in: "redis://valkey:6379", want: ValkeyConfig{Addr: "valkey:6379"}},
		{in: "valkey://localhost", want: ValkeyConfig{Addr: "localhost:6379"}},
		{
			in:   "rediss://:s3cret@cache.example.com:6380/2",
			want: ValkeyConfig{Addr: "cache.example.com:6380", Password: "s3cret", DB: 2, TLSEnabled: true},
		},
		{
			in:   "valkeys://app:pw@cache.example.com:6380?db=5",
			want: ValkeyConfig{Addr: "cache.example.com:6380", Username: "app", Password: "pw", DB: 5, TLSEnabled: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got ValkeyConfig
			require.NoError(t, got.applyURL(tt.in))
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("invalid scheme", func(t *testing.T) {
		var got ValkeyConfig
		assert.Error(t, got.applyURL("http://cache.example.com:6379"))
	})
}

func TestApplyEnv_ValkeyURL(t *testing.T) {
	t.Run("url carries credentials, db and tls", func(t *testing.T) {
		t.Setenv("VALKEY_URL", "rediss://:s3cret@cache.example.com:6380/2")
		cfg := Default()
		require.NoError(t, cfg.ApplyEnv())

		v := cfg.Store.Valkey
		assert.Equal(t, "cache.example.com:6380", v.Addr)
		assert.Equal(t, "s3cret", v.Password)
		assert.Equal(t, 2, v.DB)
		assert.True(t, v.TLSEnabled)

		sc, err := cfg.TokenStoreConfig()
		require.NoError(t, err)
		assert.Equal(t, "s3cret", sc.Valkey.Password)
		assert.Equal(t, 2, sc.Valkey.DB)
		assert.True(t, sc.Valkey.TLSEnabled)
	})

	t.Run("explicit variables override the url", func(t *testing.T) {
		t.Setenv("VALKEY_URL", "rediss://:s3cret@cache.example.com:6380/2")
		t.Setenv("VALKEY_PASSWORD", "override")
		t.Setenv("VALKEY_DB", "7")
		t.Setenv("VALKEY_TLS_ENABLED", "false")
		cfg := Default()
		require.NoError(t, cfg.ApplyEnv())

		v := cfg.Store.Valkey
		assert.Equal(t, "override", v.Password)
		assert.Equal(t, 7, v.DB)
		assert.False(t, v.TLSEnabled)
	})

	t.Run("bad url", func(t *testing.T) {
		t.Setenv("VALKEY_URL", "ftp://cache.example.com")
		assert.ErrorContains(t, Default().ApplyEnv(), "VALKEY_URL")
	})
}

func TestEncodeKey(t *testing.T) {
	key, err := tokenstore.KeyFromBase64(testKey)
	require.NoError(t, err)
	assert.Equal(t, testKey, EncodeKey(key))
}
