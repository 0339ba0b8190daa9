// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// BaseURL is the externally visible base URL, used for OAuth redirect URIs and email sign-in links.
	BaseURL string `mapstructure:"BASE_URL"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// MigrateOnStart runs embedded migrations at server startup when true.
	MigrateOnStart bool `mapstructure:"MIGRATE_ON_START"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim (e.g. "tap-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "tap-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// SessionTTL is the session token lifetime (e.g. "720h").
	SessionTTL string `mapstructure:"SESSION_TTL"`
	// EmailTokenTTL is the email verification token lifetime (e.g. "24h").
	EmailTokenTTL string `mapstructure:"EMAIL_TOKEN_TTL"`
	// GoogleClientID is the OAuth client id for Google sign-in; empty disables the provider.
	GoogleClientID string `mapstructure:"GOOGLE_CLIENT_ID"`
	// GoogleClientSecret is the OAuth client secret for Google sign-in.
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	// CORSAllowedOrigins is a comma-separated list of allowed origins for the admin API.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint (e.g. http://localhost:4317); empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// PruneInterval is how often the worker prunes expired verification tokens (e.g. "1h").
	PruneInterval string `mapstructure:"PRUNE_INTERVAL"`
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
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("MIGRATE_ON_START", false)
	v.SetDefault("JWT_ISSUER", "tap-auth")
	v.SetDefault("JWT_AUDIENCE", "tap-api")
	v.SetDefault("SESSION_TTL", "720h") // 30d
	v.SetDefault("EMAIL_TOKEN_TTL", "24h")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("PRUNE_INTERVAL", "1h")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.BaseURL == "" {
		return nil, errors.New("config: BASE_URL must be set")
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &cfg, nil
}

// SessionTTLDuration parses SessionTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) SessionTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// EmailTokenTTLDuration parses EmailTokenTTL as a time.Duration. Returns 24h if unset or invalid.
func (c *Config) EmailTokenTTLDuration() time.Duration {
	d, err := time.ParseDuration(c.EmailTokenTTL)
	if err != nil || d <= 0 {
		return 24 * time.Hour
	}
	return d
}

// PruneIntervalDuration parses PruneInterval as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) PruneIntervalDuration() time.Duration {
	d, err := time.ParseDuration(c.PruneInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// CORSAllowedOriginsList returns allowed origins from the comma-separated config.
func (c *Config) CORSAllowedOriginsList() []string {
	if c == nil || c.CORSAllowedOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSAllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
