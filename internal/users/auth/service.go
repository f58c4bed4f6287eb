// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/EduNauta/sindicapp/internal/platform/apperr"
	"github.com/EduNauta/sindicapp/internal/platform/constants"
	"github.com/EduNauta/sindicapp/internal/platform/ctxutil"
	"github.com/EduNauta/sindicapp/internal/platform/dberr"
	"github.com/EduNauta/sindicapp/internal/platform/metrics"
	"github.com/EduNauta/sindicapp/internal/platform/sec"
	"github.com/EduNauta/sindicapp/internal/platform/validate"
	"github.com/EduNauta/sindicapp/pkg/pagination"
	"github.com/EduNauta/sindicapp/pkg/pointer"
	"github.com/EduNauta/sindicapp/pkg/uuid"
)

// # Contracts & Types

// Dependencies groups everything the [Service] needs. Metrics and Logger are optional.
type Dependencies struct {
	Identities         IdentityStore
	Sessions           SessionLedger
	ResetTokens        TokenVault
	VerificationTokens TokenVault
	Codec              *sec.TokenCodec
	Hasher             *sec.PasswordHasher
	Metrics            *metrics.Registry
	Logger             *slog.Logger

	// ExposeActionTokens returns reset and verification tokens in API
	// responses. Local testing only: there is no mail delivery.
	ExposeActionTokens bool

	// Clock overrides time.Now. Tests only.
	Clock func() time.Time
}

// Service implements the session manager: login, rotation, revocation and
// the account flows built on top of them.
//
// # Review Process
//
// This service is critical for security. Any change to credential checks,
// token issuance or session rotation must keep the error surface generic.
type Service struct {
	identities         IdentityStore
	sessions           SessionLedger
	resetTokens        TokenVault
	verificationTokens TokenVault
	codec              *sec.TokenCodec
	hasher             *sec.PasswordHasher
	metrics            *metrics.Registry
	logger             *slog.Logger
	exposeActionTokens bool
	now                func() time.Time
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	hasher := deps.Hasher
	if hasher == nil {
		hasher = sec.NewPasswordHasher(sec.DefaultPasswordCost)
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	return &Service{
		identities:         deps.Identities,
		sessions:           deps.Sessions,
		resetTokens:        deps.ResetTokens,
		verificationTokens: deps.VerificationTokens,
		codec:              deps.Codec,
		hasher:             hasher,
		metrics:            deps.Metrics,
		logger:             logger,
		exposeActionTokens: deps.ExposeActionTokens,
		now:                clock,
	}
}

// # Registration Flow

/*
Register validates, hashes and persists a new account with the default role,
then opens its first session.

Description: A verification token is stored as a side effect. Failing to
store it does not fail the registration.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *AuthResult: Token pair and account summary
  - err: Validation, ErrEmailAlreadyRegistered, ErrUsernameTaken or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (result *AuthResult, err error) {
	defer func() { service.record(EventRegister, err) }()

	validator := &validate.Validator{}
	validator.Required(FieldEmail, input.Email).Email(FieldEmail, input.Email)
	validator.Username(FieldUsername, input.Username)
	validator.StrongPassword(FieldPassword, input.Password)
	validator.Custom(FieldPassword, len(input.Password) > sec.MaxPasswordBytes, "Password is too long")
	validator.MaxLen(FieldFirstName, pointer.Val(input.FirstName), validate.NameMaxLen)
	validator.MaxLen(FieldLastName, pointer.Val(input.LastName), validate.NameMaxLen)
	validator.Phone(FieldPhone, pointer.Val(input.Phone))
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// E-mail conflicts are reported before username conflicts
	emailTaken, usernameTaken, err := service.identities.ExistsByEmailOrUsername(context, input.Email, input.Username)
	if err != nil {
		return nil, fmt.Errorf("auth_service_register_lookup_failed: %w", err)
	}
	if emailTaken {
		return nil, ErrEmailAlreadyRegistered
	}
	if usernameTaken {
		return nil, ErrUsernameTaken
	}

	role, err := service.identities.FindRoleByName(context, constants.DefaultRoleName)
	if err != nil {
		return nil, fmt.Errorf("auth_service_default_role_missing: %w", err)
	}

	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	identity, err := service.identities.Create(context, NewIdentity{
		ID:           uuid.New(),
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: hashedPassword,
		FirstName:    pointer.NonEmpty(pointer.Val(input.FirstName)),
		LastName:     pointer.NonEmpty(pointer.Val(input.LastName)),
		Phone:        pointer.NonEmpty(pointer.Val(input.Phone)),
		RoleID:       role.ID,
	})
	if err != nil {
		// The store maps constraint races onto the same conflict errors
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	result, err = service.openSession(context, identity, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	token, tokenErr := service.issueActionToken(context, service.verificationTokens, identity.ID, constants.EmailVerificationTTL)
	if tokenErr != nil {
		service.log(context).WarnContext(context, "verification_token_failed",
			slog.String("user_id", identity.ID),
			slog.String("error", tokenErr.Error()),
		)
	} else if service.exposeActionTokens {
		result.VerificationToken = token
	}

	service.log(context).InfoContext(context, "user_registered", slog.String("user_id", identity.ID))
	return result, nil
}

// # Authentication Flow

/*
Login validates credentials and issues a token pair bound to a new session.

Description: Unknown identifier, inactive account and wrong password return
the same error after the same amount of bcrypt work.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *AuthResult: Token pair and account summary
  - err: ErrInvalidCredentials, validation or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (result *AuthResult, err error) {
	defer func() { service.record(EventLogin, err) }()

	validator := &validate.Validator{}
	validator.Required(FieldIdentifier, input.Identifier).MaxLen(FieldIdentifier, input.Identifier, maxIdentifierLen)
	validator.Required(FieldPassword, input.Password).MaxLen(FieldPassword, input.Password, validate.PasswordMaxLen)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	identity, err := service.identities.FindByLogin(context, input.Identifier)
	if err != nil {
		if !isNotFound(err) {
			return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
		}
		service.hasher.CompareDummy(input.Password)
		return nil, ErrInvalidCredentials
	}

	// Compare before checking activity so both rejections cost the same
	passwordMatches := service.hasher.Compare(input.Password, identity.PasswordHash)
	if !passwordMatches || !identity.IsActive {
		service.log(context).InfoContext(context, "login_rejected",
			slog.String("user_id", identity.ID),
			slog.Bool("active", identity.IsActive),
		)
		return nil, ErrInvalidCredentials
	}

	result, err = service.openSession(context, identity, input.UserAgent, input.IPAddress)
	if err != nil {
		return nil, err
	}

	if touchErr := service.identities.TouchLastLogin(context, identity.ID, service.now()); touchErr != nil {
		service.log(context).WarnContext(context, "last_login_update_failed",
			slog.String("user_id", identity.ID),
			slog.String("error", touchErr.Error()),
		)
	}

	return result, nil
}

/*
Authenticate verifies an access token and resolves its owner.

Description: The owner is re-read on every call so deactivation and role
changes take effect before the token expires.

Returns:
  - *sec.Principal: The authenticated caller
  - err: 401 for bad tokens or unavailable identities, internal otherwise
*/
func (service *Service) Authenticate(context context.Context, accessToken string) (*sec.Principal, error) {
	claims, err := service.codec.VerifyAccess(accessToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid or expired token")
	}

	identity, err := service.activeIdentity(context, claims.IdentityID)
	if err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, apperr.Internal(err)
	}

	principal := identity.Principal()
	return &principal, nil
}

// # Session Management

/*
Refresh exchanges a refresh token for a new pair and retires the old one.

Description: The ledger's conditional rotation decides the winner, so of two
concurrent exchanges of the same token exactly one succeeds.

Parameters:
  - context: context.Context
  - input: RefreshInput

Returns:
  - *RefreshResult: The rotated pair
  - err: ErrInvalidOrExpiredToken, ErrIdentityUnavailable or internal failures
*/
func (service *Service) Refresh(context context.Context, input RefreshInput) (result *RefreshResult, err error) {
	defer func() { service.record(EventRefresh, err) }()

	validator := &validate.Validator{}
	if err := validator.Required(FieldRefreshToken, input.RefreshToken).Err(); err != nil {
		return nil, err
	}

	usable, err := service.sessions.IsUsable(context, input.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err)
	}
	if !usable {
		return nil, ErrInvalidOrExpiredToken
	}

	claims, err := service.codec.VerifyRefresh(input.RefreshToken)
	if err != nil {
		return nil, ErrInvalidOrExpiredToken
	}

	identity, err := service.activeIdentity(context, claims.IdentityID)
	if err != nil {
		return nil, err
	}

	// Claims come from the current record, never from the presented token
	pair, err := service.codec.IssuePair(identity.tokenPayload())
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_issue_failed: %w", err)
	}

	_, err = service.sessions.Rotate(context, input.RefreshToken, identity.ID, NewSession{
		RefreshToken: pair.RefreshToken,
		UserAgent:    input.UserAgent,
		IPAddress:    input.IPAddress,
	})
	if err != nil {
		if errors.Is(err, ErrSessionNotUsable) {
			service.log(context).WarnContext(context, "refresh_rotation_lost",
				slog.String("user_id", identity.ID),
			)
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, fmt.Errorf("auth_service_refresh_rotate_failed: %w", err)
	}

	return &RefreshResult{Tokens: pair, ExpiresIn: service.expiresIn()}, nil
}

/*
Logout retires one refresh token.

Description: Idempotent. Unknown tokens succeed, and store failures are
logged rather than reported so the client can always discard its tokens.
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {
	validator := &validate.Validator{}
	if err := validator.Required(FieldRefreshToken, refreshToken).Err(); err != nil {
		return err
	}

	if err := service.sessions.Invalidate(context, refreshToken); err != nil {
		service.log(context).ErrorContext(context, "logout_invalidate_failed", slog.String("error", err.Error()))
		service.record(EventLogout, err)
		return nil
	}

	service.record(EventLogout, nil)
	return nil
}

// LogoutAll retires every session of the identity.
func (service *Service) LogoutAll(context context.Context, identityID string) (err error) {
	defer func() { service.record(EventLogoutAll, err) }()

	revoked, err := service.sessions.InvalidateAllForIdentity(context, identityID)
	if err != nil {
		return fmt.Errorf("auth_service_logout_all_failed: %w", err)
	}

	service.log(context).InfoContext(context, "sessions_revoked",
		slog.String("user_id", identityID),
		slog.Int64("count", revoked),
	)
	return nil
}

// ListSessions returns one page of the identity's usable sessions.
func (service *Service) ListSessions(context context.Context, identityID string, params pagination.Params) ([]*Session, pagination.Meta, error) {
	params = params.Normalize()

	sessions, total, err := service.sessions.ListForIdentity(context, identityID, params)
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("auth_service_list_sessions_failed: %w", err)
	}

	return sessions, pagination.NewMeta(params, total), nil
}

// RevokeSession signs one device out. Sessions of other identities are reported as not found.
func (service *Service) RevokeSession(context context.Context, identityID, sessionID string) error {
	validator := &validate.Validator{}
	if err := validator.UUID(FieldSessionID, sessionID).Err(); err != nil {
		return err
	}

	if err := service.sessions.InvalidateByID(context, identityID, sessionID); err != nil {
		if apperr.IsAppError(err) {
			return err
		}
		return fmt.Errorf("auth_service_revoke_session_failed: %w", err)
	}
	return nil
}

/*
CleanExpiredSessions deletes sessions that can never be used again.

Returns:
  - int64: Number of purged rows
  - err: Storage failures
*/
func (service *Service) CleanExpiredSessions(context context.Context) (purged int64, err error) {
	defer func() { service.record(EventPurge, err) }()

	purged, err = service.sessions.PurgeExpiredOrInvalid(context)
	if err != nil {
		return 0, fmt.Errorf("auth_service_purge_failed: %w", err)
	}

	service.metrics.SessionsPurged(purged)
	service.log(context).InfoContext(context, "sessions_purged", slog.Int64("count", purged))
	return purged, nil
}

// # Account Flows

// Profile returns the caller's own account view with resolved permissions.
func (service *Service) Profile(context context.Context, identityID string) (*Profile, error) {
	identity, err := service.identities.FindByID(context, identityID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("auth_service_profile_failed: %w", err)
	}

	return &Profile{
		IdentitySummary: identity.Summary(),
		Phone:           identity.Phone,
		Permissions:     identity.Role.Permissions,
		LastLoginAt:     identity.LastLoginAt,
		CreatedAt:       identity.CreatedAt,
	}, nil
}

/*
ChangePassword replaces the caller's credential after checking the current one.

Description: Every session of the identity is revoked afterwards, including
the one making the request.

Parameters:
  - context: context.Context
  - identityID: string
  - currentPassword: string
  - newPassword: string

Returns:
  - err: ErrInvalidCredentials, validation or storage failures
*/
func (service *Service) ChangePassword(context context.Context, identityID, currentPassword, newPassword string) (err error) {
	defer func() { service.record(EventChangePassword, err) }()

	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, currentPassword)
	validator.StrongPassword(FieldNewPassword, newPassword)
	validator.Custom(FieldNewPassword, len(newPassword) > sec.MaxPasswordBytes, "Password is too long")
	if err := validator.Err(); err != nil {
		return err
	}

	identity, err := service.identities.FindByID(context, identityID)
	if err != nil {
		if isNotFound(err) {
			return apperr.NotFound("User")
		}
		return fmt.Errorf("auth_service_change_password_lookup_failed: %w", err)
	}

	if !service.hasher.Compare(currentPassword, identity.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := service.replacePassword(context, identity.ID, newPassword); err != nil {
		return err
	}

	service.log(context).InfoContext(context, "password_changed", slog.String("user_id", identity.ID))
	return nil
}

// # Password Recovery

/*
RequestPasswordReset stores a single-use reset token for the account
registered with email.

Description: Unknown or inactive addresses succeed silently so the endpoint
cannot be used to enumerate accounts.

Returns:
  - string: The token, only when ExposeActionTokens is set
  - err: Validation or storage failures
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) (string, error) {
	validator := &validate.Validator{}
	if err := validator.Required(FieldEmail, email).Email(FieldEmail, email).Err(); err != nil {
		return "", err
	}

	identity, err := service.identities.FindByEmail(context, email)
	if err != nil {
		if isNotFound(err) {
			return service.decoyActionToken()
		}
		return "", fmt.Errorf("auth_service_reset_lookup_failed: %w", err)
	}
	if !identity.IsActive {
		return service.decoyActionToken()
	}

	token, err := service.issueActionToken(context, service.resetTokens, identity.ID, constants.PasswordResetTTL)
	if err != nil {
		return "", err
	}

	service.log(context).InfoContext(context, "password_reset_requested", slog.String("user_id", identity.ID))
	if !service.exposeActionTokens {
		return "", nil
	}
	return token, nil
}

// decoyActionToken keeps the response shape identical for unknown accounts
// when tokens are exposed. The value is never stored, so it cannot be redeemed.
func (service *Service) decoyActionToken() (string, error) {
	if !service.exposeActionTokens {
		return "", nil
	}
	return sec.GenerateSecureToken(constants.VolatileTokenBytes)
}

/*
ResetPassword redeems a reset token and replaces the credential.

Description: The token is consumed first, so it cannot be replayed even if
the update fails. All sessions are revoked afterwards.
*/
func (service *Service) ResetPassword(context context.Context, token, newPassword string) (err error) {
	defer func() { service.record(EventResetPassword, err) }()

	validator := &validate.Validator{}
	validator.Required(FieldToken, token)
	validator.StrongPassword(FieldNewPassword, newPassword)
	validator.Custom(FieldNewPassword, len(newPassword) > sec.MaxPasswordBytes, "Password is too long")
	if err := validator.Err(); err != nil {
		return err
	}

	identityID, err := service.consumeActionToken(context, service.resetTokens, token)
	if err != nil {
		return err
	}

	if _, err := service.activeIdentity(context, identityID); err != nil {
		if errors.Is(err, ErrIdentityUnavailable) {
			return ErrInvalidVolatileToken
		}
		return err
	}

	return service.replacePassword(context, identityID, newPassword)
}

// # Email Verification

// RequestEmailVerification stores a fresh verification token for the caller.
// The token is returned only when ExposeActionTokens is set.
func (service *Service) RequestEmailVerification(context context.Context, identityID string) (string, error) {
	identity, err := service.identities.FindByID(context, identityID)
	if err != nil {
		if isNotFound(err) {
			return "", apperr.NotFound("User")
		}
		return "", fmt.Errorf("auth_service_verification_lookup_failed: %w", err)
	}
	if identity.EmailVerified {
		return "", apperr.Conflict("Email is already verified")
	}

	token, err := service.issueActionToken(context, service.verificationTokens, identity.ID, constants.EmailVerificationTTL)
	if err != nil {
		return "", err
	}

	if !service.exposeActionTokens {
		return "", nil
	}
	return token, nil
}

// VerifyEmail redeems a verification token and flags the account's e-mail.
func (service *Service) VerifyEmail(context context.Context, token string) (err error) {
	defer func() { service.record(EventVerifyEmail, err) }()

	validator := &validate.Validator{}
	if err := validator.Required(FieldToken, token).Err(); err != nil {
		return err
	}

	identityID, err := service.consumeActionToken(context, service.verificationTokens, token)
	if err != nil {
		return err
	}

	if err := service.identities.MarkEmailVerified(context, identityID); err != nil {
		if isNotFound(err) {
			return ErrInvalidVolatileToken
		}
		return fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}
	return nil
}

// # Helpers

// openSession issues a pair for identity and records its refresh token.
func (service *Service) openSession(context context.Context, identity *Identity, userAgent, ipAddress string) (*AuthResult, error) {
	pair, err := service.codec.IssuePair(identity.tokenPayload())
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_issue_failed: %w", err)
	}

	if _, err := service.sessions.Create(context, pair.RefreshToken, identity.ID, userAgent, ipAddress); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	return &AuthResult{
		Tokens:    pair,
		ExpiresIn: service.expiresIn(),
		User:      identity.Summary(),
	}, nil
}

// activeIdentity loads an identity and rejects it when missing or deactivated.
func (service *Service) activeIdentity(context context.Context, identityID string) (*Identity, error) {
	identity, err := service.identities.FindByID(context, identityID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrIdentityUnavailable
		}
		return nil, fmt.Errorf("auth_service_identity_lookup_failed: %w", err)
	}
	if !identity.IsActive {
		return nil, ErrIdentityUnavailable
	}
	return identity, nil
}

func (service *Service) replacePassword(context context.Context, identityID, newPassword string) error {
	hashedPassword, err := service.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	if err := service.identities.UpdatePassword(context, identityID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_password_update_failed: %w", err)
	}

	if _, err := service.sessions.InvalidateAllForIdentity(context, identityID); err != nil {
		return fmt.Errorf("auth_service_password_revoke_failed: %w", err)
	}
	return nil
}

func (service *Service) issueActionToken(context context.Context, vault TokenVault, identityID string, ttl time.Duration) (string, error) {
	token, err := sec.GenerateSecureToken(constants.VolatileTokenBytes)
	if err != nil {
		return "", fmt.Errorf("auth_service_generate_token_failed: %w", err)
	}
	if err := vault.Put(context, token, identityID, ttl); err != nil {
		return "", fmt.Errorf("auth_service_store_token_failed: %w", err)
	}
	return token, nil
}

func (service *Service) consumeActionToken(context context.Context, vault TokenVault, token string) (string, error) {
	identityID, err := vault.Consume(context, token)
	if err != nil {
		if errors.Is(err, ErrVolatileTokenNotFound) {
			return "", ErrInvalidVolatileToken
		}
		return "", fmt.Errorf("auth_service_consume_token_failed: %w", err)
	}
	return identityID, nil
}

func (service *Service) expiresIn() int64 {
	return int64(service.codec.AccessTTL() / time.Second)
}

// log prefers the request-scoped logger so entries carry the request ID.
func (service *Service) log(context context.Context) *slog.Logger {
	if logger, ok := ctxutil.LookupLogger(context); ok {
		return logger
	}
	return service.logger
}

// record classifies err for the auth event counter.
func (service *Service) record(event string, err error) {
	switch {
	case err == nil:
		service.metrics.AuthEvent(event, metrics.OutcomeSuccess)
	case isClientError(err):
		service.metrics.AuthEvent(event, metrics.OutcomeRejected)
	default:
		service.metrics.AuthEvent(event, metrics.OutcomeError)
	}
}

func isClientError(err error) bool {
	appError := apperr.As(err)
	return appError != nil && appError.HTTPStatus > 0 && appError.HTTPStatus < 500
}

// isNotFound accepts both store-level NotFound errors and raw no-rows errors.
func isNotFound(err error) bool {
	if dberr.IsNotFound(err) {
		return true
	}
	appError := apperr.As(err)
	return appError != nil && appError.Code == "NOT_FOUND"
}
