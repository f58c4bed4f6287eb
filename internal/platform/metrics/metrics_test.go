// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EduNauta/sindicapp/internal/platform/metrics"
)

/*
TestInstrument_UsesRoutePattern verifies requests are labelled by chi pattern, not raw path.
*/
func TestInstrument_UsesRoutePattern(t *testing.T) {
	registry := metrics.New()

	router := chi.NewRouter()
	router.Use(registry.Instrument)
	router.Delete("/api/auth/sessions/{id}", func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"a", "b", "c"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/auth/sessions/"+id, nil))
	}

	text := scrape(t, registry)
	assert.Contains(t, text, `sindicapp_http_requests_total{method="DELETE",route="/api/auth/sessions/{id}",status="204"} 3`)
	assert.NotContains(t, text, `route="/api/auth/sessions/a"`)
}

func scrape(t *testing.T, registry *metrics.Registry) string {
	t.Helper()

	recorder := httptest.NewRecorder()
	registry.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, recorder.Code)

	body, err := io.ReadAll(recorder.Body)
	require.NoError(t, err)
	return string(body)
}

/*
TestAuthEvents verifies the auth counters and the exposition handler.
*/
func TestAuthEvents(t *testing.T) {
	registry := metrics.New()
	registry.AuthEvent("login", metrics.OutcomeSuccess)
	registry.AuthEvent("login", metrics.OutcomeRejected)
	registry.AuthEvent("login", metrics.OutcomeRejected)
	registry.SessionsPurged(4)
	registry.SessionsPurged(0)

	text := scrape(t, registry)
	assert.Contains(t, text, `sindicapp_auth_events_total{event="login",outcome="rejected"} 2`)
	assert.Contains(t, text, `sindicapp_auth_events_total{event="login",outcome="success"} 1`)
	assert.Contains(t, text, `sindicapp_sessions_purged_total 4`)
}

/*
TestNilRegistry verifies a nil registry is a silent no-op.
*/
func TestNilRegistry(t *testing.T) {
	var registry *metrics.Registry

	assert.NotPanics(t, func() {
		registry.AuthEvent("login", metrics.OutcomeSuccess)
		registry.SessionsPurged(1)
	})

	handler := registry.Instrument(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusTeapot)
	}))
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, recorder.Code)
}
