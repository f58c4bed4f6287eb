// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package auth

import (
	"errors"
	"net/http"

	"github.com/EduNauta/sindicapp/internal/platform/apperr"
)

// # Domain Errors

var (
	// ErrInvalidCredentials covers unknown identifier, inactive account and
	// wrong password alike, so login cannot be used to enumerate accounts.
	ErrInvalidCredentials = apperr.New("INVALID_CREDENTIALS", http.StatusUnauthorized, "Invalid credentials")

	// ErrInvalidOrExpiredToken is returned for any refresh token that cannot be exchanged.
	ErrInvalidOrExpiredToken = apperr.New("INVALID_TOKEN", http.StatusUnauthorized, "Invalid or expired token")

	// ErrIdentityUnavailable means the token is fine but its owner is gone or deactivated.
	ErrIdentityUnavailable = apperr.New("IDENTITY_UNAVAILABLE", http.StatusUnauthorized, "User not found or inactive")

	// ErrInvalidVolatileToken is returned for unknown, expired or reused reset and verification tokens.
	ErrInvalidVolatileToken = apperr.New("INVALID_ACTION_TOKEN", http.StatusBadRequest, "Token is invalid or expired")

	// ErrEmailAlreadyRegistered and ErrUsernameTaken are registration conflicts.
	ErrEmailAlreadyRegistered = apperr.New("EMAIL_TAKEN", http.StatusConflict, "Email already registered")
	ErrUsernameTaken          = apperr.New("USERNAME_TAKEN", http.StatusConflict, "Username already taken")
)

// ErrSessionNotUsable is the ledger's signal that a presented refresh token
// lost the rotation race or was never usable. It never reaches clients.
var ErrSessionNotUsable = errors.New("auth: session not usable")

// ErrVolatileTokenNotFound is returned by a [TokenVault] when the token is
// absent, expired or already consumed.
var ErrVolatileTokenNotFound = errors.New("auth: volatile token not found")
