// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/EduNauta/sindicapp/internal/platform/apperr"
	"github.com/EduNauta/sindicapp/internal/platform/constants"
	"github.com/EduNauta/sindicapp/internal/platform/respond"
)

// HealthDependencies holds the injectable dependency checkers for the /ready endpoint.
type HealthDependencies struct {
	// CheckDatabase pings PostgreSQL.
	CheckDatabase func(ctx context.Context) error

	// CheckCache pings Redis.
	CheckCache func(ctx context.Context) error
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// NewHealthHandlers creates the /health and /ready http.HandlerFuncs.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	if logger == nil {
		logger = slog.Default()
	}
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health (Liveness probe).
func (handler *healthHandler) liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]string{
		constants.FieldStatus:  "ok",
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
	})
}

// readiness handles GET /ready (Readiness probe). Each probe gets its own deadline;
// failed probes are listed in the 503 error details.
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	results := make([]checkResult, 0, 2)
	isSystemReady := true

	probe := func(name string, check func(ctx context.Context) error) {
		if check == nil {
			return
		}

		ctx, cancel := context.WithTimeout(request.Context(), constants.HealthCheckTimeout)
		defer cancel()

		result := checkResult{Name: name, IsOK: true}
		if err := check(ctx); err != nil {
			result.IsOK = false
			result.Error = err.Error()
			isSystemReady = false
			handler.logger.ErrorContext(request.Context(), "readiness_check_failed",
				slog.String("dependency", name),
				slog.Any("error", err),
			)
		}
		results = append(results, result)
	}

	probe("postgres", handler.dependencies.CheckDatabase)
	probe("redis", handler.dependencies.CheckCache)

	if !isSystemReady {
		unavailable := apperr.ServiceUnavailable("One or more dependencies are unavailable")
		for _, result := range results {
			if !result.IsOK {
				unavailable.Details = append(unavailable.Details, apperr.FieldError{Field: result.Name, Message: result.Error})
			}
		}
		respond.Error(writer, request, unavailable)
		return
	}

	respond.OK(writer, map[string]any{
		constants.FieldStatus: "ready",
		constants.FieldChecks: results,
	})
}
