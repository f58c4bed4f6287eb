// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

// Package sec provides cryptographic primitives, token management and the
// permission model shared by the authentication core and the HTTP gate.
//
// # Architecture
//
// This package isolates security-sensitive code (hashing, JWT signing,
// permission evaluation) from the domain logic. It performs no I/O: storage
// and transport layers call into it, never the other way around.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// # Token Kinds

// TokenKind distinguishes access tokens from refresh tokens inside the claims.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// ErrInvalidToken is the only verification failure the codec reports.
//
// Malformed input, signature mismatch, wrong token kind and expiry all
// collapse into this value so callers cannot be used as an oracle.
var ErrInvalidToken = errors.New("sec: invalid or expired token")

// ConfigurationError reports a missing or unusable signing configuration.
// It is a startup-class failure: the process must not serve traffic with it.
type ConfigurationError struct {
	Setting string
	Reason  string
}

// Error implements the error interface.
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("sec: configuration error: %s %s", e.Setting, e.Reason)
}

// IsConfigurationError reports whether err (or its chain) is a [*ConfigurationError].
func IsConfigurationError(err error) bool {
	var target *ConfigurationError
	return errors.As(err, &target)
}

// # Claims

// TokenPayload is the identity snapshot embedded in both token kinds.
type TokenPayload struct {
	IdentityID string
	Email      string
	Username   string
	RoleID     string
}

// TokenClaims represents the decoded content of a verified token.
type TokenClaims struct {
	jwt.RegisteredClaims

	IdentityID string    `json:"userId"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	RoleID     string    `json:"roleId"`
	Kind       TokenKind `json:"typ"`
}

// TokenPair is the credential bundle handed to a client after login or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// # Codec

// CodecConfig holds the signing material and lifetimes of the [TokenCodec].
type CodecConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string

	// Clock overrides time.Now. Tests only.
	Clock func() time.Time
}

// TokenCodec signs and verifies access and refresh tokens with HS256.
//
// Each kind has its own secret, so a leaked refresh secret cannot be used to
// mint access tokens and vice versa. The codec is stateless and safe for
// concurrent use.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	now           func() time.Time
}

// NewTokenCodec validates the configuration and builds a codec.
//
// It returns a [*ConfigurationError] when a secret is empty, when both
// secrets are identical, or when a lifetime is not positive.
func NewTokenCodec(cfg CodecConfig) (*TokenCodec, error) {
	if cfg.AccessSecret == "" {
		return nil, &ConfigurationError{Setting: "JWT_SECRET", Reason: "is not set"}
	}
	if cfg.RefreshSecret == "" {
		return nil, &ConfigurationError{Setting: "JWT_REFRESH_SECRET", Reason: "is not set"}
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, &ConfigurationError{Setting: "JWT_REFRESH_SECRET", Reason: "must differ from JWT_SECRET"}
	}
	if cfg.AccessTTL <= 0 {
		return nil, &ConfigurationError{Setting: "JWT_EXPIRES_IN", Reason: "must be positive"}
	}
	if cfg.RefreshTTL <= 0 {
		return nil, &ConfigurationError{Setting: "JWT_REFRESH_EXPIRES_IN", Reason: "must be positive"}
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}

	return &TokenCodec{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     cfg.AccessTTL,
		refreshTTL:    cfg.RefreshTTL,
		issuer:        cfg.Issuer,
		now:           clock,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (codec *TokenCodec) AccessTTL() time.Duration { return codec.accessTTL }

// RefreshTTL returns the configured refresh-token lifetime.
func (codec *TokenCodec) RefreshTTL() time.Duration { return codec.refreshTTL }

// IssueAccess signs a short-lived access token for payload.
func (codec *TokenCodec) IssueAccess(payload TokenPayload) (string, error) {
	if len(codec.accessSecret) == 0 {
		return "", &ConfigurationError{Setting: "JWT_SECRET", Reason: "is not set"}
	}
	return codec.sign(payload, TokenKindAccess, codec.accessSecret, codec.accessTTL)
}

// IssueRefresh signs a long-lived refresh token for payload.
func (codec *TokenCodec) IssueRefresh(payload TokenPayload) (string, error) {
	if len(codec.refreshSecret) == 0 {
		return "", &ConfigurationError{Setting: "JWT_REFRESH_SECRET", Reason: "is not set"}
	}
	return codec.sign(payload, TokenKindRefresh, codec.refreshSecret, codec.refreshTTL)
}

// IssuePair signs both tokens for payload.
func (codec *TokenCodec) IssuePair(payload TokenPayload) (TokenPair, error) {
	accessToken, err := codec.IssueAccess(payload)
	if err != nil {
		return TokenPair{}, err
	}

	refreshToken, err := codec.IssueRefresh(payload)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// VerifyAccess checks an access token against the access secret.
func (codec *TokenCodec) VerifyAccess(token string) (*TokenClaims, error) {
	return codec.verify(token, TokenKindAccess, codec.accessSecret)
}

// VerifyRefresh checks a refresh token against the refresh secret.
func (codec *TokenCodec) VerifyRefresh(token string) (*TokenClaims, error) {
	return codec.verify(token, TokenKindRefresh, codec.refreshSecret)
}

func (codec *TokenCodec) sign(payload TokenPayload, kind TokenKind, secret []byte, timeToLive time.Duration) (string, error) {
	currentTime := codec.now()
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        ulid.Make().String(),
			Subject:   payload.IdentityID,
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(timeToLive)),
		},
		IdentityID: payload.IdentityID,
		Email:      payload.Email,
		Username:   payload.Username,
		RoleID:     payload.RoleID,
		Kind:       kind,
	}

	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign %s token: %w", kind, err)
	}

	return signedToken, nil
}

func (codec *TokenCodec) verify(tokenString string, kind TokenKind, secret []byte) (*TokenClaims, error) {
	if tokenString == "" || len(secret) == 0 {
		return nil, ErrInvalidToken
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(codec.now),
	}
	if codec.issuer != "" {
		options = append(options, jwt.WithIssuer(codec.issuer))
	}

	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	}, options...)
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.Kind != kind || claims.IdentityID == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
