// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Once loaded, configuration is read-only and passed to components through
their constructors.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/EduNauta/sindicapp/internal/platform/constants"
	"github.com/EduNauta/sindicapp/internal/platform/sec"
)

// # Configuration Schema

// Config holds all runtime configuration for the SindicApp API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"4000"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis), used for reset and verification tokens
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Token signing. Secrets are validated by the token codec, not here, so an
	// absent variable and an empty one fail the same way.
	JWTSecret           string `env:"JWT_SECRET"`
	JWTRefreshSecret    string `env:"JWT_REFRESH_SECRET"`
	JWTExpiresIn        string `env:"JWT_EXPIRES_IN"         envDefault:"15m"`
	JWTRefreshExpiresIn string `env:"JWT_REFRESH_EXPIRES_IN" envDefault:"7d"`
	PasswordHashCost    int    `env:"BCRYPT_COST"            envDefault:"12"`

	// SessionCleanupInterval is the period of the expired-session purge. Zero disables it.
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"1h"`

	// ExposeActionTokens returns reset and verification tokens in API responses
	// instead of relying on email delivery. Local testing only; refused in production.
	ExposeActionTokens bool `env:"EXPOSE_ACTION_TOKENS" envDefault:"false"`

	// Cross-Origin Resource Sharing
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:3000"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	cfg := &Config{}

	// Fails if any field marked 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if cfg.SessionCleanupInterval < 0 {
		return nil, fmt.Errorf("config: SESSION_CLEANUP_INTERVAL must not be negative")
	}

	if cfg.ExposeActionTokens && cfg.IsProduction() {
		return nil, fmt.Errorf("config: EXPOSE_ACTION_TOKENS cannot be enabled in production")
	}

	return cfg, nil
}

// CodecConfig converts the token settings into a [sec.CodecConfig].
// An unparsable lifetime is reported as a [*sec.ConfigurationError].
func (c *Config) CodecConfig() (sec.CodecConfig, error) {
	accessTTL, err := sec.ParseLifetime(c.JWTExpiresIn)
	if err != nil {
		return sec.CodecConfig{}, &sec.ConfigurationError{Setting: "JWT_EXPIRES_IN", Reason: err.Error()}
	}

	refreshTTL, err := sec.ParseLifetime(c.JWTRefreshExpiresIn)
	if err != nil {
		return sec.CodecConfig{}, &sec.ConfigurationError{Setting: "JWT_REFRESH_EXPIRES_IN", Reason: err.Error()}
	}

	return sec.CodecConfig{
		AccessSecret:  c.JWTSecret,
		RefreshSecret: c.JWTRefreshSecret,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		Issuer:        constants.AuthIssuer,
	}, nil
}

// AllowedOrigins returns the comma-separated CORS_ORIGIN entries.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSOrigin, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
