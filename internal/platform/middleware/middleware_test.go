// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EduNauta/sindicapp/internal/platform/middleware"
)

type corsConfig struct {
	development bool
	origins     []string
}

func (c corsConfig) IsDevelopment() bool      { return c.development }
func (c corsConfig) AllowedOrigins() []string { return c.origins }

/*
TestRequestID_GeneratesAndPropagates verifies the correlation header.
*/
func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	handler := middleware.RequestID()(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set("X-Request-ID", "given")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, "given", recorder.Header().Get("X-Request-ID"))
}

/*
TestStructuredLogger_LogsAuthenticatedUser verifies the finished line carries user_id.
*/
func TestStructuredLogger_LogsAuthenticatedUser(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buffer, nil))

	chain := middleware.StructuredLogger(logger)(middleware.Authenticate(newStub())(echoPrincipal))
	serve(chain, "Bearer admin-token")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &line))
	assert.Equal(t, "http_request_finished", line["msg"])
	assert.Equal(t, "u-3", line["user_id"])
	assert.EqualValues(t, 200, line["status"])
}

/*
TestRateLimitPerIP verifies the bucket is per client address.
*/
func TestRateLimitPerIP(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.RateLimitPerIP(ctx, 0.001, 2)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	hit := func(ip string) *httptest.ResponseRecorder {
		request := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		request.RemoteAddr = ip + ":1234"
		recorder := httptest.NewRecorder()
		handler.ServeHTTP(recorder, request)
		return recorder
	}

	assert.Equal(t, http.StatusOK, hit("198.51.100.1").Code)
	assert.Equal(t, http.StatusOK, hit("198.51.100.1").Code)

	limited := hit("198.51.100.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMITED", errorCode(t, limited))
	assert.Contains(t, limited.Header().Get("Content-Type"), "application/json")

	assert.Equal(t, http.StatusOK, hit("198.51.100.2").Code)
}

/*
TestPanicRecovery verifies a panicking handler becomes a 500 envelope.
*/
func TestPanicRecovery(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	handler := middleware.PanicRecovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
	assert.Equal(t, "INTERNAL_ERROR", errorCode(t, recorder))
}

/*
TestCORS verifies allowed and foreign origins outside development.
*/
func TestCORS(t *testing.T) {
	handler := middleware.CORS(corsConfig{origins: []string{"https://sindicapp.example"}})(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}),
	)

	request := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	request.Header.Set("Origin", "https://sindicapp.example")
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Equal(t, "https://sindicapp.example", recorder.Header().Get("Access-Control-Allow-Origin"))

	request = httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	request.Header.Set("Origin", "https://evil.example")
	recorder = httptest.NewRecorder()
	handler.ServeHTTP(recorder, request)
	assert.Empty(t, recorder.Header().Get("Access-Control-Allow-Origin"))
}
