// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, limiter) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/taibuivan/gatekeeper/internal/platform/middleware"
	"github.com/taibuivan/gatekeeper/internal/platform/ratelimit"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
)

// # Backends

const (
	// StorageDriverPostgres persists users and sessions in PostgreSQL.
	StorageDriverPostgres = "postgres"

	// StorageDriverMemory keeps users and sessions in process memory (development only).
	StorageDriverMemory = "memory"

	// RateLimitStoreMemory keeps window records in process memory.
	RateLimitStoreMemory = "memory"

	// RateLimitStoreRedis shares window records across replicas through Redis.
	RateLimitStoreRedis = "redis"
)

// # Configuration Schema

// Config holds all runtime configuration for the Gatekeeper API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// AuthEndpoint is the prefix under which the single /{action} route is mounted.
	AuthEndpoint string `env:"AUTH_ENDPOINT" envDefault:"/api/auth"`

	// Persistence adapter
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	DatabaseURL   string `env:"DATABASE_URL"`

	// MigrationPath overrides the embedded migrations with a directory on disk.
	MigrationPath string `env:"MIGRATION_PATH"`

	// Rate limiting
	RateLimitStore         string          `env:"RATE_LIMIT_STORE"          envDefault:"memory"`
	RedisURL               string          `env:"REDIS_URL"`
	RateLimits             ratelimit.Rules `env:"RATE_LIMITS"               envDefault:"/register=10/1m"`
	RateLimitSweepInterval time.Duration   `env:"RATE_LIMIT_SWEEP_INTERVAL" envDefault:"1m"`
	ShieldRPS              float64         `env:"GLOBAL_RATE_LIMIT_RPS"     envDefault:"100"`
	ShieldBurst            int             `env:"GLOBAL_RATE_LIMIT_BURST"   envDefault:"150"`

	// Password policy and hashing
	PasswordMinLength         int  `env:"PASSWORD_MIN_LENGTH"         envDefault:"6"`
	PasswordMaxLength         int  `env:"PASSWORD_MAX_LENGTH"         envDefault:"128"`
	PasswordRequireAlphabetic bool `env:"PASSWORD_REQUIRE_ALPHABETIC" envDefault:"true"`
	PasswordRequireNumeric    bool `env:"PASSWORD_REQUIRE_NUMERIC"    envDefault:"true"`
	PasswordRequireSpecial    bool `env:"PASSWORD_REQUIRE_SPECIAL"    envDefault:"true"`
	PasswordKeyLength         int  `env:"PASSWORD_KEY_LENGTH"         envDefault:"64"`

	// Sessions
	SessionTTL           time.Duration `env:"SESSION_TTL"            envDefault:"168h"`
	SessionSweepInterval time.Duration `env:"SESSION_SWEEP_INTERVAL" envDefault:"1h"`

	// TrustedProxies are the networks allowed to set X-Real-IP / X-Forwarded-For.
	// Empty means the socket address is always the client key.
	TrustedProxies middleware.TrustedProxies `env:"TRUSTED_PROXIES"`

	// Cross-Origin Resource Sharing
	CORSOriginSuffix string `env:"CORS_ORIGIN_SUFFIX"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom parses the given key/value map instead of the process environment.
// It exists for tests and embedding hosts.
func LoadFrom(environment map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environment})
}

func parse(options env.Options) (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	if err := env.ParseWithOptions(cfg, options); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// validate enforces cross-field rules that struct tags cannot express.
func (c *Config) validate() error {
	var problems []error

	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.DatabaseURL == "" {
			problems = append(problems, errors.New("DATABASE_URL is required when STORAGE_DRIVER=postgres"))
		}
	case StorageDriverMemory:
	default:
		problems = append(problems, fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver))
	}

	switch c.RateLimitStore {
	case RateLimitStoreRedis:
		if c.RedisURL == "" {
			problems = append(problems, errors.New("REDIS_URL is required when RATE_LIMIT_STORE=redis"))
		}
	case RateLimitStoreMemory:
	default:
		problems = append(problems, fmt.Errorf("unknown RATE_LIMIT_STORE %q", c.RateLimitStore))
	}

	if c.PasswordMinLength < 0 || (c.PasswordMaxLength > 0 && c.PasswordMaxLength < c.PasswordMinLength) {
		problems = append(problems, errors.New("PASSWORD_MAX_LENGTH must be >= PASSWORD_MIN_LENGTH"))
	}

	if c.SessionTTL <= 0 {
		problems = append(problems, errors.New("SESSION_TTL must be positive"))
	}

	if !strings.HasPrefix(c.AuthEndpoint, "/") {
		problems = append(problems, errors.New("AUTH_ENDPOINT must start with '/'"))
	}

	return errors.Join(problems...)
}

// PasswordRequirements builds the immutable password policy value.
func (c *Config) PasswordRequirements() sec.PasswordRequirements {
	return sec.PasswordRequirements{
		MinLength:         c.PasswordMinLength,
		MaxLength:         c.PasswordMaxLength,
		RequireAlphabetic: c.PasswordRequireAlphabetic,
		RequireNumeric:    c.PasswordRequireNumeric,
		RequireSpecial:    c.PasswordRequireSpecial,
	}
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// AllowsOrigin reports whether a cross-origin request from origin may proceed.
// Development allows every origin; otherwise the origin must end in CORS_ORIGIN_SUFFIX.
func (c *Config) AllowsOrigin(origin string) bool {
	if c.IsDevelopment() {
		return true
	}
	return c.CORSOriginSuffix != "" && strings.HasSuffix(origin, c.CORSOriginSuffix)
}
