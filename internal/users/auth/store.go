// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package auth

import (
	"context"
	"time"

	"github.com/EduNauta/sindicapp/internal/platform/sec"
	"github.com/EduNauta/sindicapp/pkg/pagination"
)

// # Identity Data Access

// IdentityStore defines the data access contract for accounts and roles.
// Every returned [Identity] has its [sec.Role] hydrated.
type IdentityStore interface {

	/*
		FindByID returns the account with the given ID.

		Returns:
		  - *Identity: Hydrated entity
		  - error: apperr.NotFound or database failures
	*/
	FindByID(context context.Context, id string) (*Identity, error)

	/*
		FindByLogin returns the account whose email OR username equals
		identifier exactly (case-sensitive). An email match wins when both exist.

		Returns:
		  - *Identity: Hydrated entity
		  - error: apperr.NotFound or database failures
	*/
	FindByLogin(context context.Context, identifier string) (*Identity, error)

	// FindByEmail returns the account registered with email.
	FindByEmail(context context.Context, email string) (*Identity, error)

	// ExistsByEmailOrUsername reports which of the two values are already taken.
	ExistsByEmailOrUsername(context context.Context, email, username string) (emailTaken, usernameTaken bool, err error)

	/*
		Create inserts a new account and returns it hydrated.

		Returns:
		  - *Identity: The stored account
		  - error: ErrEmailAlreadyRegistered, ErrUsernameTaken or database failures
	*/
	Create(context context.Context, identity NewIdentity) (*Identity, error)

	// UpdatePassword replaces the credential hash of the account.
	UpdatePassword(context context.Context, id, passwordHash string) error

	// TouchLastLogin stamps the last successful login.
	TouchLastLogin(context context.Context, id string, at time.Time) error

	// MarkEmailVerified flags the account's e-mail as verified.
	MarkEmailVerified(context context.Context, id string) error

	// FindRoleByName resolves a seeded role.
	FindRoleByName(context context.Context, name string) (*sec.Role, error)
}

// # Session Data Access

// SessionLedger is the durable record of issued refresh tokens.
//
// A session is usable only while it is valid, unexpired and owned by an
// active identity. Implementations must make [SessionLedger.Rotate] atomic
// per token: when two callers rotate the same token concurrently, exactly
// one succeeds.
type SessionLedger interface {

	/*
		Create records a freshly issued refresh token.

		Description: The session starts valid and expires one refresh
		lifetime from now. Empty userAgent or ipAddress are stored as NULL.

		Returns:
		  - *Session: The stored record
		  - error: apperr.Conflict on a duplicate token, or database failures
	*/
	Create(context context.Context, refreshToken, identityID, userAgent, ipAddress string) (*Session, error)

	// IsUsable reports whether refreshToken may still be exchanged.
	IsUsable(context context.Context, refreshToken string) (bool, error)

	// Invalidate marks one session invalid. Unknown tokens are not an error.
	Invalidate(context context.Context, refreshToken string) error

	// InvalidateAllForIdentity marks every session of the identity invalid
	// and returns how many rows changed.
	InvalidateAllForIdentity(context context.Context, identityID string) (int64, error)

	// InvalidateByID marks one session of the identity invalid.
	// apperr.NotFound when the session does not belong to the identity.
	InvalidateByID(context context.Context, identityID, sessionID string) error

	// PurgeExpiredOrInvalid physically deletes sessions that can never be
	// used again and returns how many were removed.
	PurgeExpiredOrInvalid(context context.Context) (int64, error)

	/*
		Rotate invalidates presented and records next in one transaction.

		Description: The invalidation is a conditional update that only
		matches a valid, unexpired session owned by identityID. When it
		matches nothing the transaction is rolled back.

		Returns:
		  - *Session: The new session
		  - error: ErrSessionNotUsable when presented was not usable
	*/
	Rotate(context context.Context, presented, identityID string, next NewSession) (*Session, error)

	// ListForIdentity returns the identity's usable sessions, newest first.
	ListForIdentity(context context.Context, identityID string, page pagination.Params) ([]*Session, int, error)
}

// # Volatile Data Access

// TokenVault stores single-use secrets that map to an identity for a while.
type TokenVault interface {

	// Put stores token for identityID with the given lifetime.
	Put(context context.Context, token, identityID string, ttl time.Duration) error

	// Consume returns the identity behind token and deletes it atomically.
	// ErrVolatileTokenNotFound when absent, expired or already consumed.
	Consume(context context.Context, token string) (string, error)
}
