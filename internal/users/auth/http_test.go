// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EduNauta/sindicapp/internal/users/auth"
)

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Pagination map[string]any  `json:"pagination"`
	Error      string          `json:"error"`
	Code       string          `json:"code"`
}

func newRouter(t *testing.T, f *fixture) http.Handler {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	router := chi.NewRouter()
	router.Mount("/api/auth", auth.NewHandler(f.service).Routes(ctx))
	return router
}

func call(t *testing.T, handler http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	request := httptest.NewRequest(method, path, strings.NewReader(body))
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)

	var decoded envelope
	if recorder.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	}
	return recorder, decoded
}

/*
TestHTTP_LoginAndProfile verifies the login envelope and the protected profile route.
*/
func TestHTTP_LoginAndProfile(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "ana@example.com", "ana", roleUser)
	router := newRouter(t, f)

	recorder, body := call(t, router, http.MethodPost, "/api/auth/login",
		`{"emailOrUsername":"ana","password":"`+testPassword+`"}`, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var result auth.AuthResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.Equal(t, int64(900), result.ExpiresIn)

	recorder, body = call(t, router, http.MethodGet, "/api/auth/profile", "", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "Access token required", body.Error)

	recorder, body = call(t, router, http.MethodGet, "/api/auth/profile", "", result.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, recorder.Code)

	var profile map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &profile))
	assert.Equal(t, "ana", profile["username"])
	assert.Equal(t, map[string]any{
		"canCreatePosts":   true,
		"canModeratePosts": false,
		"canManageUsers":   false,
		"canViewReports":   false,
		"canManageCompany": false,
		"canAdminSystem":   false,
	}, profile["permissions"])
}

/*
TestHTTP_ErrorMapping verifies status codes for the common failures.
*/
func TestHTTP_ErrorMapping(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "ana@example.com", "ana", roleUser)
	router := newRouter(t, f)

	recorder, body := call(t, router, http.MethodPost, "/api/auth/login", `{"identifier":"ana","password":"nope"}`, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", body.Code)

	recorder, body = call(t, router, http.MethodPost, "/api/auth/login", `{not json`, "")
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "VALIDATION_ERROR", body.Code)

	recorder, body = call(t, router, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"stale"}`, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	assert.Equal(t, "INVALID_TOKEN", body.Code)

	recorder, _ = call(t, router, http.MethodPost, "/api/auth/logout", `{"refreshToken":"unknown"}`, "")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestHTTP_RefreshRotation verifies the refresh endpoint end to end.
*/
func TestHTTP_RefreshRotation(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "ana@example.com", "ana", roleUser)
	router := newRouter(t, f)
	token := f.login(t, "ana").Tokens.RefreshToken

	recorder, body := call(t, router, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"`+token+`"}`, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var result auth.RefreshResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.NotEqual(t, token, result.Tokens.RefreshToken)

	recorder, _ = call(t, router, http.MethodPost, "/api/auth/refresh", `{"refreshToken":"`+token+`"}`, "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestHTTP_AdminCleanSessions verifies the admin guard on the purge endpoint.
*/
func TestHTTP_AdminCleanSessions(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "ana@example.com", "ana", roleUser)
	f.seed(t, "root@example.com", "root", roleAdmin)
	router := newRouter(t, f)

	userToken := f.login(t, "ana").Tokens.AccessToken
	adminToken := f.login(t, "root").Tokens.AccessToken

	recorder, body := call(t, router, http.MethodPost, "/api/auth/clean-sessions", "", userToken)
	assert.Equal(t, http.StatusForbidden, recorder.Code)
	assert.Equal(t, "Insufficient permissions", body.Error)

	recorder, body = call(t, router, http.MethodPost, "/api/auth/clean-sessions", "", adminToken)
	require.Equal(t, http.StatusOK, recorder.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.Equal(t, float64(0), result["deletedCount"])
}

/*
TestHTTP_Sessions verifies listing and revoking devices.
*/
func TestHTTP_Sessions(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "ana@example.com", "ana", roleUser)
	router := newRouter(t, f)
	f.login(t, "ana")
	accessToken := f.login(t, "ana").Tokens.AccessToken

	recorder, body := call(t, router, http.MethodGet, "/api/auth/sessions?limit=1", "", accessToken)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, float64(2), body.Pagination["total"])
	assert.Equal(t, true, body.Pagination["hasNext"])

	var sessions []map[string]any
	require.NoError(t, json.Unmarshal(body.Data, &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, "test-agent", sessions[0]["userAgent"])
	assert.NotContains(t, sessions[0], "tokenHash")

	recorder, _ = call(t, router, http.MethodDelete, "/api/auth/sessions/"+sessions[0]["id"].(string), "", accessToken)
	assert.Equal(t, http.StatusNoContent, recorder.Code)

	recorder, _ = call(t, router, http.MethodDelete, "/api/auth/sessions/"+sessions[0]["id"].(string), "", "")
	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

/*
TestHTTP_CredentialRateLimit verifies the stricter budget on credential routes.
*/
func TestHTTP_CredentialRateLimit(t *testing.T) {
	f := newFixture(t)
	router := newRouter(t, f)

	var last *httptest.ResponseRecorder
	for range 11 {
		last, _ = call(t, router, http.MethodPost, "/api/auth/login", `{"identifier":"x","password":"y"}`, "")
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))

	recorder, _ := call(t, router, http.MethodPost, "/api/auth/logout", `{"refreshToken":"x"}`, "")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestHTTP_RegisterThenLogin verifies the public credential flow end to end.
A wrong password and an unknown identifier produce the same response body.
*/
func TestHTTP_RegisterThenLogin(t *testing.T) {
	f := newFixture(t)
	router := newRouter(t, f)

	recorder, _ := call(t, router, http.MethodPost, "/api/auth/register",
		`{"email":"user@example.com","username":"member1","password":"Correct1pw"}`, "")
	require.Equal(t, http.StatusCreated, recorder.Code)

	recorder, body := call(t, router, http.MethodPost, "/api/auth/login",
		`{"identifier":"user@example.com","password":"Correct1pw"}`, "")
	require.Equal(t, http.StatusOK, recorder.Code)

	var result auth.AuthResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.Equal(t, "user@example.com", result.User.Email)

	wrongPassword, _ := call(t, router, http.MethodPost, "/api/auth/login",
		`{"identifier":"user@example.com","password":"Wrong1pw"}`, "")
	unknownUser, _ := call(t, router, http.MethodPost, "/api/auth/login",
		`{"identifier":"nobody@example.com","password":"Correct1pw"}`, "")

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.JSONEq(t, wrongPassword.Body.String(), unknownUser.Body.String())
}
