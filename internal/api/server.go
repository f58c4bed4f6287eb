// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

/*
Package api wires together the HTTP router, middleware chain, and all
domain handlers into a runnable [http.Server].

Architecture:

  - This package is the topmost Presentation layer boundary.
  - It acts as the central composition root for the HTTP transport framework (chi router).
  - Only this package and cmd/api are allowed to import net/http server primitives.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/EduNauta/sindicapp/internal/platform/apperr"
	"github.com/EduNauta/sindicapp/internal/platform/config"
	"github.com/EduNauta/sindicapp/internal/platform/constants"
	"github.com/EduNauta/sindicapp/internal/platform/metrics"
	"github.com/EduNauta/sindicapp/internal/platform/middleware"
	"github.com/EduNauta/sindicapp/internal/platform/respond"
	"github.com/EduNauta/sindicapp/internal/users/auth"
)

// # Server Definitions

var errRouteNotFound = apperr.New("NOT_FOUND", http.StatusNotFound, "Route not found")

// Server wraps the chi router and the [http.Server].
//
// It is constructed once in main.go with all dependencies injected.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups all HTTP handler sets mounted by the server.
type Handlers struct {
	// Liveness is the /health handler. Always 200 while the process is alive.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. 200 only when Postgres and Redis answer.
	Readiness http.HandlerFunc

	// Auth handles registration, login, token refresh and session management.
	Auth *auth.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups. authenticator backs the bearer guards of the
// collaborator routes; the auth handler installs its own.
func NewServer(
	context context.Context,
	cfg *config.Config,
	log *slog.Logger,
	registry *metrics.Registry,
	authenticator middleware.Authenticator,
	h Handlers,
) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	r.Use(registry.Instrument)
	r.Use(chimw.Timeout(constants.GlobalRequestTimeout))
	r.Use(middleware.RateLimit(context))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.CORS(cfg))
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	r.Method(http.MethodGet, "/metrics", registry.Handler())

	// # Application API
	r.Route("/api", func(api chi.Router) {
		api.Get("/", apiInfo)
		api.Mount("/auth", h.Auth.Routes(context))
		mountGuardedCatalogue(api, authenticator)
	})

	r.NotFound(func(writer http.ResponseWriter, request *http.Request) {
		respond.Error(writer, request, errRouteNotFound)
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
		},
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// apiInfo handles GET /api.
func apiInfo(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]any{
		constants.FieldApp:     constants.AppName,
		constants.FieldVersion: constants.AppVersion,
		"endpoints": map[string]string{
			"auth":      "/api/auth",
			"companies": "/api/companies",
			"forums":    "/api/forums",
			"posts":     "/api/posts",
			"reports":   "/api/reports",
		},
	})
}

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
