// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package auth

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EduNauta/sindicapp/internal/platform/constants"
	"github.com/EduNauta/sindicapp/internal/platform/middleware"
	requestutil "github.com/EduNauta/sindicapp/internal/platform/request"
	"github.com/EduNauta/sindicapp/internal/platform/respond"
	"github.com/EduNauta/sindicapp/internal/platform/sec"
	"github.com/EduNauta/sindicapp/pkg/pagination"
)

// # Definitions & Constructors

// Handler implements the /api/auth endpoints.
//
// # Scope
//
// Transport concerns only: decoding, status codes and the access gate.
// Every rule about credentials and sessions lives in [Service].
type Handler struct {
	authService *Service
}

// NewHandler constructs a new [Handler] with its service dependency.
func NewHandler(service *Service) *Handler {
	return &Handler{authService: service}
}

/*
Routes returns a [chi.Router] configured with the authentication routes.

The context bounds the lifetime of the credential rate limiter.

# Endpoints
  - POST   /register              : Creates an account and opens a session.
  - POST   /login                 : Exchanges credentials for a token pair.
  - POST   /refresh               : Rotates a refresh token.
  - POST   /logout                : Retires one refresh token.
  - POST   /forgot-password       : Issues a reset token.
  - POST   /reset-password        : Redeems a reset token.
  - POST   /verify-email          : Redeems a verification token.
  - GET    /profile               : Caller's own account (auth).
  - POST   /logout-all            : Retires every session (auth).
  - POST   /change-password       : Replaces the credential (auth).
  - GET    /sessions              : Lists active devices (auth).
  - DELETE /sessions/{id}         : Signs one device out (auth).
  - POST   /verify-email/request  : Issues a verification token (auth).
  - POST   /clean-sessions        : Purges dead sessions (admin).
*/
func (handler *Handler) Routes(context context.Context) chi.Router {
	router := chi.NewRouter()

	// Credential endpoints share a stricter per-IP budget
	router.Group(func(r chi.Router) {
		r.Use(middleware.RateLimitPerIP(context, constants.CredentialRateLimitRPS, constants.CredentialRateLimitBurst))
		r.Post("/register", handler.register)
		r.Post("/login", handler.login)
		r.Post("/forgot-password", handler.forgotPassword)
		r.Post("/reset-password", handler.resetPassword)
	})

	router.Post("/refresh", handler.refresh)
	router.Post("/logout", handler.logout)
	router.Post("/verify-email", handler.verifyEmail)

	// Protected endpoints
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(handler.authService))
		r.Get("/profile", handler.profile)
		r.Post("/logout-all", handler.logoutAll)
		r.Post("/change-password", handler.changePassword)
		r.Get("/sessions", handler.listSessions)
		r.Delete("/sessions/{id}", handler.revokeSession)
		r.Post("/verify-email/request", handler.requestVerification)

		r.With(middleware.RequireRole(sec.RoleAdmin)).Post("/clean-sessions", handler.cleanSessions)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Email     string  `json:"email"`
	Username  string  `json:"username"`
	Password  string  `json:"password"`
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
}

type loginRequest struct {
	Identifier      string `json:"identifier"`
	EmailOrUsername string `json:"emailOrUsername"`
	Password        string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenRequest struct {
	Token string `json:"token"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"newPassword"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// # Response Payloads

type messageResponse struct {
	Message string `json:"message"`
	Token   string `json:"token,omitempty"`
}

type purgeResponse struct {
	Message      string `json:"message"`
	DeletedCount int64  `json:"deletedCount"`
}

// # Public Endpoints

/*
Register handles the creation of a new account.

POST /api/auth/register

Response:
  - 201: AuthResult: Token pair and account summary
  - 400: Validation failure
  - 409: Email or username already taken
*/
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Register(request.Context(), RegisterInput{
		Email:     input.Email,
		Username:  input.Username,
		Password:  input.Password,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Phone:     input.Phone,
		UserAgent: request.UserAgent(),
		IPAddress: middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, result)
}

/*
Login authenticates a caller by e-mail or username.

POST /api/auth/login

Request:
  - Body: loginRequest. "emailOrUsername" is accepted for older clients.

Response:
  - 200: AuthResult: Token pair and account summary
  - 401: Invalid credentials
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input loginRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	identifier := input.Identifier
	if identifier == "" {
		identifier = input.EmailOrUsername
	}

	result, err := handler.authService.Login(request.Context(), LoginInput{
		Identifier: identifier,
		Password:   input.Password,
		UserAgent:  request.UserAgent(),
		IPAddress:  middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

/*
Refresh rotates a refresh token.

POST /api/auth/refresh

Response:
  - 200: RefreshResult: New token pair
  - 401: Invalid, expired, reused token or unavailable account
*/
func (handler *Handler) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Refresh(request.Context(), RefreshInput{
		RefreshToken: input.RefreshToken,
		UserAgent:    request.UserAgent(),
		IPAddress:    middleware.RealIP(request),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, result)
}

// logout handles POST /api/auth/logout. It succeeds for unknown tokens.
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.Logout(request.Context(), input.RefreshToken); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Logout successful"})
}

// forgotPassword handles POST /api/auth/forgot-password. The answer does not
// reveal whether the address is registered.
func (handler *Handler) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	token, err := handler.authService.RequestPasswordReset(request.Context(), input.Email)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{
		Message: "If the email is registered, a reset link has been sent",
		Token:   token,
	})
}

// resetPassword handles POST /api/auth/reset-password.
func (handler *Handler) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ResetPassword(request.Context(), input.Token, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Password reset successfully"})
}

// verifyEmail handles POST /api/auth/verify-email.
func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) {
	var input tokenRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.VerifyEmail(request.Context(), input.Token); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Email verified successfully"})
}

// # Protected Endpoints

// profile handles GET /api/auth/profile.
func (handler *Handler) profile(writer http.ResponseWriter, request *http.Request) {
	identityID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.authService.Profile(request.Context(), identityID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, profile)
}

// logoutAll handles POST /api/auth/logout-all.
func (handler *Handler) logoutAll(writer http.ResponseWriter, request *http.Request) {
	identityID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.LogoutAll(request.Context(), identityID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Logged out from all devices"})
}

/*
ChangePassword replaces the caller's credential.

POST /api/auth/change-password

Response:
  - 200: Every session is revoked, the client must log in again
  - 400: Validation failure
  - 401: Current password is wrong
*/
func (handler *Handler) changePassword(writer http.ResponseWriter, request *http.Request) {
	identityID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input changePasswordRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.ChangePassword(request.Context(), identityID, input.CurrentPassword, input.NewPassword); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Password changed successfully. Please log in again."})
}

// listSessions handles GET /api/auth/sessions?page=&limit=.
func (handler *Handler) listSessions(writer http.ResponseWriter, request *http.Request) {
	identityID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	sessions, meta, err := handler.authService.ListSessions(request.Context(), identityID, pagination.FromRequest(request))
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, sessions, meta)
}

// revokeSession handles DELETE /api/auth/sessions/{id}.
func (handler *Handler) revokeSession(writer http.ResponseWriter, request *http.Request) {
	identityID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.authService.RevokeSession(request.Context(), identityID, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// requestVerification handles POST /api/auth/verify-email/request.
func (handler *Handler) requestVerification(writer http.ResponseWriter, request *http.Request) {
	identityID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	token, err := handler.authService.RequestEmailVerification(request.Context(), identityID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, messageResponse{Message: "Verification email sent", Token: token})
}

// cleanSessions handles POST /api/auth/clean-sessions (admin only).
func (handler *Handler) cleanSessions(writer http.ResponseWriter, request *http.Request) {
	purged, err := handler.authService.CleanExpiredSessions(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, purgeResponse{Message: "Expired sessions cleaned", DeletedCount: purged})
}
