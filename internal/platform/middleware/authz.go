// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/EduNauta/sindicapp/internal/platform/apperr"
	"github.com/EduNauta/sindicapp/internal/platform/ctxutil"
	requestutil "github.com/EduNauta/sindicapp/internal/platform/request"
	"github.com/EduNauta/sindicapp/internal/platform/respond"
	"github.com/EduNauta/sindicapp/internal/platform/sec"
)

// Authenticator turns a bearer token into the caller it belongs to.
//
// The implementation must verify the token and re-read the identity, so a
// deactivated account or a changed role takes effect on the next request.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*sec.Principal, error)
}

// # Authentication

// Authenticate rejects the request with 401 unless it carries a valid
// "Authorization: Bearer <token>" header. On success the principal is
// attached to the request context.
func Authenticate(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token, ok := requestutil.BearerToken(request)
			if !ok {
				respond.Error(writer, request, apperr.Unauthorized("Access token required"))
				return
			}

			principal, err := authenticator.Authenticate(request.Context(), token)
			if err != nil {
				respond.Error(writer, request, unauthenticated(err))
				return
			}

			next.ServeHTTP(writer, withPrincipal(request, *principal))
		})
	}
}

// OptionalAuthenticate attaches the principal when a valid token is present
// and otherwise lets the request through anonymously. It never rejects.
func OptionalAuthenticate(authenticator Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			token, ok := requestutil.BearerToken(request)
			if !ok {
				next.ServeHTTP(writer, request)
				return
			}

			principal, err := authenticator.Authenticate(request.Context(), token)
			if err != nil {
				ctxutil.GetLogger(request.Context()).DebugContext(request.Context(), "optional_auth_ignored",
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(writer, request)
				return
			}

			next.ServeHTTP(writer, withPrincipal(request, *principal))
		})
	}
}

func withPrincipal(request *http.Request, principal sec.Principal) *http.Request {
	noteIdentity(request.Context(), principal.IdentityID)
	return request.WithContext(ctxutil.WithPrincipal(request.Context(), principal))
}

// unauthenticated keeps 401 messages from the authenticator and maps
// everything else to a generic 401, except genuine server failures.
func unauthenticated(err error) error {
	var appError *apperr.AppError
	if errors.As(err, &appError) {
		if appError.HTTPStatus >= http.StatusInternalServerError {
			return appError
		}
		if appError.HTTPStatus == http.StatusUnauthorized {
			return apperr.Unauthorized(appError.Message)
		}
	}
	return apperr.Unauthorized("Invalid or expired token")
}

// # Authorization

// Require lets the request through only when the attached principal
// satisfies req. It answers 401 when no principal is attached, so it must
// be mounted after [Authenticate].
func Require(req sec.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			principal, ok := ctxutil.GetPrincipal(request.Context())
			if !ok {
				respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
				return
			}

			if !principal.Can(req) {
				ctxutil.GetLogger(request.Context()).InfoContext(request.Context(), "access_denied",
					slog.String("user_id", principal.IdentityID),
					slog.String("role", principal.Role.Name),
					slog.String("requirement", req.String()),
				)
				respond.Error(writer, request, apperr.Forbidden("Insufficient permissions"))
				return
			}

			next.ServeHTTP(writer, request)
		})
	}
}

// RequirePermission requires a single permission flag.
func RequirePermission(permission sec.Permission) func(http.Handler) http.Handler {
	return Require(sec.Allow(permission))
}

// RequireRole requires every flag of the given role.
func RequireRole(role sec.RoleTag) func(http.Handler) http.Handler {
	return Require(sec.AnyRole(role))
}

// RequireAnyRole requires every flag of at least one of the given roles.
func RequireAnyRole(roles ...sec.RoleTag) func(http.Handler) http.Handler {
	return Require(sec.AnyRole(roles...))
}
