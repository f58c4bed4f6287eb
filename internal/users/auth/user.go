// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

/*
Package auth implements identities, refresh-token sessions and the session
manager that issues, rotates and revokes token pairs.

# Architecture

  - [IdentityStore] and [SessionLedger] are the persistence contracts
    (PostgreSQL in store_postgres.go).
  - [TokenVault] holds single-use reset and verification tokens (Redis).
  - [Service] orchestrates them with the token codec from package sec.
  - [Handler] exposes the service under /api/auth.
  - [Janitor] purges dead sessions in the background.
*/
package auth

import (
	"time"

	"github.com/EduNauta/sindicapp/internal/platform/sec"
)

// # Domain Entities

// Identity is a registered account with its role hydrated.
type Identity struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Username      string     `json:"username"`
	PasswordHash  string     `json:"-"`
	FirstName     *string    `json:"firstName,omitempty"`
	LastName      *string    `json:"lastName,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	EmailVerified bool       `json:"emailVerified"`
	IsActive      bool       `json:"isActive"`
	Role          sec.Role   `json:"role"`
	LastLoginAt   *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Summary returns the client-facing projection of the identity.
func (identity *Identity) Summary() IdentitySummary {
	return IdentitySummary{
		ID:            identity.ID,
		Email:         identity.Email,
		Username:      identity.Username,
		FirstName:     identity.FirstName,
		LastName:      identity.LastName,
		EmailVerified: identity.EmailVerified,
		Role:          identity.Role.Name,
	}
}

// Principal returns the request-scoped view used by the access gate.
func (identity *Identity) Principal() sec.Principal {
	return sec.Principal{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Username:   identity.Username,
		Role:       identity.Role,
	}
}

// tokenPayload is the snapshot embedded in both tokens.
func (identity *Identity) tokenPayload() sec.TokenPayload {
	return sec.TokenPayload{
		IdentityID: identity.ID,
		Email:      identity.Email,
		Username:   identity.Username,
		RoleID:     identity.Role.ID,
	}
}

// IdentitySummary is what login, register and refresh return about the caller.
type IdentitySummary struct {
	ID            string  `json:"id"`
	Email         string  `json:"email"`
	Username      string  `json:"username"`
	FirstName     *string `json:"firstName,omitempty"`
	LastName      *string `json:"lastName,omitempty"`
	EmailVerified bool    `json:"emailVerified"`
	Role          string  `json:"role"`
}

// Profile is the authenticated caller's own account view.
type Profile struct {
	IdentitySummary
	Phone       *string           `json:"phone,omitempty"`
	Permissions sec.PermissionSet `json:"permissions"`
	LastLoginAt *time.Time        `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Session is one issued refresh token. The token itself is never stored,
// only its digest.
type Session struct {
	ID         string    `json:"id"`
	IdentityID string    `json:"userId"`
	TokenHash  string    `json:"-"`
	UserAgent  *string   `json:"userAgent,omitempty"`
	IPAddress  *string   `json:"ipAddress,omitempty"`
	ExpiresAt  time.Time `json:"expiresAt"`
	IsValid    bool      `json:"isValid"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Usable reports whether the session can still be exchanged at now.
// Owner activity is checked separately by the ledger.
func (session *Session) Usable(now time.Time) bool {
	return session.IsValid && session.ExpiresAt.After(now)
}

// NewSession carries what the ledger needs to record an issued refresh token.
type NewSession struct {
	RefreshToken string
	UserAgent    string
	IPAddress    string
}

// # Service Results

// AuthResult is returned by login and register.
type AuthResult struct {
	Tokens    sec.TokenPair   `json:"tokens"`
	ExpiresIn int64           `json:"expiresIn"`
	User      IdentitySummary `json:"user"`

	// VerificationToken is only set when action tokens are exposed.
	VerificationToken string `json:"verificationToken,omitempty"`
}

// RefreshResult is returned by a successful rotation.
type RefreshResult struct {
	Tokens    sec.TokenPair `json:"tokens"`
	ExpiresIn int64         `json:"expiresIn"`
}

// # Service Inputs

// LoginInput carries the credentials and device metadata of a login attempt.
type LoginInput struct {
	Identifier string
	Password   string
	UserAgent  string
	IPAddress  string
}

// RefreshInput carries a presented refresh token and the device presenting it.
type RefreshInput struct {
	RefreshToken string
	UserAgent    string
	IPAddress    string
}

// RegisterInput carries a self-registration request.
type RegisterInput struct {
	Email     string
	Username  string
	Password  string
	FirstName *string
	LastName  *string
	Phone     *string
	UserAgent string
	IPAddress string
}

// NewIdentity is what the store needs to insert an account.
type NewIdentity struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	FirstName    *string
	LastName     *string
	Phone        *string
	RoleID       string
}
