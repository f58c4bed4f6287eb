// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

/*
Package constants provides centralized, immutable values for the entire platform.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Security: token issuer and volatile-token lifetimes.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "sindicapp-api"
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

	// HealthCheckTimeout bounds each dependency probe of the readiness endpoint.
	HealthCheckTimeout = 2 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 100.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 150

	// CredentialRateLimitRPS throttles login, register and password endpoints per IP.
	CredentialRateLimitRPS = 0.2

	// CredentialRateLimitBurst allows a handful of quick retries before throttling.
	CredentialRateLimitBurst = 10

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Authentication

const (
	// AuthIssuer is the 'iss' claim of every token.
	AuthIssuer = "sindicapp"

	// DefaultRoleName is assigned to self-registered accounts.
	DefaultRoleName = "user"

	// PasswordResetTTL is how long a password-reset token stays redeemable.
	PasswordResetTTL = 1 * time.Hour

	// EmailVerificationTTL is how long an e-mail verification token stays redeemable.
	EmailVerificationTTL = 24 * time.Hour

	// VolatileTokenBytes is the entropy of reset and verification tokens.
	VolatileTokenBytes = 32
)

// # HTTP Headers

const (
	HeaderXRequestID    = "X-Request-ID"
	HeaderXRealIP       = "X-Real-IP"
	HeaderXForwardedFor = "X-Forwarded-For"
	HeaderOrigin        = "Origin"
	HeaderRetryAfter    = "Retry-After"
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
	RedisPrefixResetToken  = "auth:reset_token:"
	RedisPrefixVerifyToken = "auth:verify_token:"
)
