// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// FingerprintPolicyStrict rejects a session when the request fingerprint differs from the bound one.
const FingerprintPolicyStrict = "strict"

// FingerprintPolicyPermissive accepts a mismatched fingerprint but flags the session for step-up.
const FingerprintPolicyPermissive = "permissive"

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN; empty runs the server on in-memory stores (dev only).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// SessionTTL is the session lifetime (e.g. "1h"). Refresh extends expiry by this amount.
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// SessionGrace is the window after expiry before a session record is purged (e.g. "24h").
	SessionGrace string `mapstructure:"SESSION_GRACE"`
	// SessionSweepInterval is the interval of the background purge sweep; "0" disables the sweep
	// and leaves garbage collection to lazy purge on lookup.
	SessionSweepInterval string `mapstructure:"SESSION_SWEEP_INTERVAL"`
	// FingerprintPolicy is "strict" or "permissive"; decides how a device-fingerprint
	// mismatch at validation is handled.
	FingerprintPolicy string `mapstructure:"DEVICE_MISMATCH_POLICY"`
	// FingerprintRego is an optional Rego policy (inline or file path) overriding the
	// built-in fingerprint policy module.
	FingerprintRego string `mapstructure:"DEVICE_MISMATCH_REGO"`
	// CookieName is the name of the session cookie issued at login.
	CookieName string `mapstructure:"SESSION_COOKIE_NAME"`
	// CookieSecure sets the Secure attribute on the session cookie. Disable only for local dev over http.
	CookieSecure bool `mapstructure:"SESSION_COOKIE_SECURE"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// ResetPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; signs password-reset tokens.
	ResetPrivateKey string `mapstructure:"RESET_PRIVATE_KEY"`
	// ResetPublicKey is the PEM-encoded public key or path to file; verifies password-reset tokens.
	ResetPublicKey string `mapstructure:"RESET_PUBLIC_KEY"`
	// ResetTokenTTL is the password-reset token lifetime (e.g. "30m").
	ResetTokenTTL string `mapstructure:"RESET_TOKEN_TTL"`
	// OTLPEndpoint is the OTLP collector endpoint (e.g. http://localhost:4317); empty disables telemetry export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_TTL", "1h")
	v.SetDefault("SESSION_GRACE", "24h")
	v.SetDefault("SESSION_SWEEP_INTERVAL", "10m")
	v.SetDefault("DEVICE_MISMATCH_POLICY", FingerprintPolicyStrict)
	v.SetDefault("DEVICE_MISMATCH_REGO", "")
	v.SetDefault("SESSION_COOKIE_NAME", "loandesk_session")
	v.SetDefault("SESSION_COOKIE_SECURE", true)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RESET_TOKEN_TTL", "30m")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	if cfg.FingerprintPolicy != FingerprintPolicyStrict && cfg.FingerprintPolicy != FingerprintPolicyPermissive {
		return nil, errors.New("config: DEVICE_MISMATCH_POLICY must be strict or permissive")
	}

	if cfg.CookieName == "" {
		return nil, errors.New("config: SESSION_COOKIE_NAME must be set")
	}

	if !cfg.CookieSecure && cfg.Env == "production" {
		return nil, errors.New("config: SESSION_COOKIE_SECURE must not be false when APP_ENV=production")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// TTL parses SessionTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) TTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// Grace parses SessionGrace as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) Grace() time.Duration {
	d, err := time.ParseDuration(c.SessionGrace)
	if err != nil || d < 0 {
		return 24 * time.Hour
	}
	return d
}

// SweepInterval parses SessionSweepInterval as a time.Duration.
// Returns 0 (sweep disabled) if unset, invalid, or non-positive.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.SessionSweepInterval)
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

// ResetTTL parses ResetTokenTTL as a time.Duration. Returns 30m if unset or invalid.
func (c *Config) ResetTTL() time.Duration {
	d, err := time.ParseDuration(c.ResetTokenTTL)
	if err != nil || d <= 0 {
		return 30 * time.Minute
	}
	return d
}
