package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ApplyEnv overrides c with every environment variable that is set.
func (c *Config) ApplyEnv() error {
	setString(&c.Google.ClientID, "GOOGLE_CLIENT_ID")
	setString(&c.Google.ClientSecret, "GOOGLE_CLIENT_SECRET")
	setString(&c.Google.RedirectURL, "GOOGLE_REDIRECT_URL")
	setString(&c.DefaultAccount, "GWMCP_DEFAULT_ACCOUNT")

	setString(&c.Store.Type, "GWMCP_STORE_TYPE")
	setString(&c.Store.SQLitePath, "GWMCP_SQLITE_PATH")
	setString(&c.Store.EncryptionKey, "GWMCP_ENCRYPTION_KEY")

	// The explicit VALKEY_* variables below override what the URL carries.
	if v := os.Getenv("VALKEY_URL"); v != "" {
		if err := c.Store.Valkey.applyURL(v); err != nil {
			return fmt.Errorf("invalid VALKEY_URL value: %w", err)
		}
	}
	setString(&c.Store.Valkey.Username, "VALKEY_USERNAME")
	setString(&c.Store.Valkey.Password, "VALKEY_PASSWORD")
	setString(&c.Store.Valkey.KeyPrefix, "VALKEY_KEY_PREFIX")
	setString(&c.Store.Valkey.TLSCAFile, "VALKEY_TLS_CA_FILE")

	setString(&c.CallbackAddr, "GWMCP_CALLBACK_ADDR")
	setString(&c.ForwardedEmailHeader, "GWMCP_FORWARDED_EMAIL_HEADER")
	setString(&c.Log.Level, "GWMCP_LOG_LEVEL")
	setString(&c.Log.Format, "GWMCP_LOG_FORMAT")

	for _, e := range []error{
		setInt(&c.Store.Valkey.DB, "VALKEY_DB"),
		setBool(&c.Store.Valkey.TLSEnabled, "VALKEY_TLS_ENABLED"),
		setBool(&c.ReadOnly, "GWMCP_READ_ONLY"),
		setBool(&c.TrustForwardedEmail, "GWMCP_TRUST_FORWARDED_EMAIL"),
		setFloat(&c.RateLimit.RPS, "GWMCP_RATE_LIMIT_RPS"),
		setInt(&c.RateLimit.Burst, "GWMCP_RATE_LIMIT_BURST"),
		setInt(&c.RateLimit.MaxRetries, "GWMCP_MAX_RETRIES"),
		setDuration(&c.RateLimit.MaxDelay, "GWMCP_MAX_RETRY_DELAY"),
	} {
		if e != nil {
			return e
		}
	}
	return nil
}

// applyURL sets the connection fields from host:port or a valkey://,
// valkeys://, redis:// or rediss:// URL. Credentials, the database index and
// the TLS implied by the scheme come from valkey.ParseURL.
func (v *ValkeyConfig) applyURL(raw string) error {
	if !strings.Contains(raw, "://") {
		v.Addr = raw
		return nil
	}
	opt, err := valkey.ParseURL(raw)
	if err != nil {
		return err
	}
	if len(opt.InitAddress) > 0 {
		v.Addr = opt.InitAddress[0]
	}
	if opt.Username != "" {
		v.Username = opt.Username
	}
	if opt.Password != "" {
		v.Password = opt.Password
	}
	v.DB = opt.SelectDB
	if opt.TLSConfig != nil {
		v.TLSEnabled = true
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = parsed
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = parsed
	return nil
}

func setFloat(dst *float64, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = parsed
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", key, v, err)
	}
	*dst = parsed
	return nil
}
