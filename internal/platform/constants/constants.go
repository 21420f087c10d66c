// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Shield capacities, sweep intervals and response headers.
  - Authentication: Session lifetime and header names.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "gatekeeper"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// MaxRequestBodyBytes caps the size of an auth request body.
	MaxRequestBodyBytes = 1 << 20
)

// # Rate Limiting

const (
	// DefaultShieldRPS is the requests per second allowed per IP by the outer shield.
	DefaultShieldRPS = 100.0

	// DefaultShieldBurst is the maximum burst allowed by the outer shield.
	DefaultShieldBurst = 150

	// RateLimitCleanupInterval is how often idle entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its shield entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// SessionTTL is the fixed lifetime of an issued session.
	SessionTTL = 7 * 24 * time.Hour

	// SessionSweepInterval is how often expired sessions are purged from storage.
	SessionSweepInterval = 1 * time.Hour

	// BearerPrefix is the scheme prefix of the Authorization header.
	BearerPrefix = "Bearer "
)

// # HTTP Headers

const (
	HeaderXRequestID     = "X-Request-ID"
	HeaderXRealIP        = "X-Real-IP"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderOrigin         = "Origin"
	HeaderAuthorization  = "Authorization"
	HeaderRetryAfter     = "Retry-After"
	HeaderRateLimitLimit = "X-RateLimit-Limit"
	HeaderRateLimitLeft  = "X-RateLimit-Remaining"
	HeaderRateLimitReset = "X-RateLimit-Reset"
)

// # JSON Field Identifiers

const (
	FieldStatus  = "status"
	FieldApp     = "app"
	FieldVersion = "version"
	FieldChecks  = "checks"
)

// # Redis Prefixes (Cache Taxonomy)

const (
	RedisPrefixRateLimit = "gatekeeper:ratelimit:"
)
