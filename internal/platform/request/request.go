// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

/*
Package requestutil provides utilities for extracting data from HTTP requests.

It hides the router's parameter extraction and the body decoding rules so
handlers stay uniform.
*/
package requestutil

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/EduNauta/sindicapp/internal/platform/apperr"
	"github.com/EduNauta/sindicapp/internal/platform/ctxutil"
	"github.com/EduNauta/sindicapp/internal/platform/sec"
	"github.com/EduNauta/sindicapp/internal/platform/validate"
)

// maxBodyBytes caps JSON bodies on the auth endpoints.
const maxBodyBytes = 1 << 20

/*
DecodeJSON reads the request body and decodes it into the target structure.

Returns validate.ErrInvalidJSON if decoding fails.
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target interface{}) error {
	body := http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
BearerToken extracts the token from an "Authorization: Bearer <token>" header.

The scheme is matched case-insensitively. ok is false when the header is
missing, uses another scheme, or carries an empty token.
*/
func BearerToken(request *http.Request) (string, bool) {
	header := request.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}

/*
Principal returns the authenticated caller, if any.
*/
func Principal(request *http.Request) (sec.Principal, bool) {
	return ctxutil.GetPrincipal(request.Context())
}

/*
RequiredPrincipal ensures the request is authenticated and returns the caller.

Returns apperr.Unauthorized when the access gate did not attach a principal.
*/
func RequiredPrincipal(request *http.Request) (sec.Principal, error) {
	principal, ok := ctxutil.GetPrincipal(request.Context())
	if !ok {
		return sec.Principal{}, apperr.Unauthorized("Authentication required")
	}
	return principal, nil
}

/*
RequiredUserID returns the identity id of the authenticated caller.
*/
func RequiredUserID(request *http.Request) (string, error) {
	principal, err := RequiredPrincipal(request)
	if err != nil {
		return "", err
	}
	return principal.IdentityID, nil
}
