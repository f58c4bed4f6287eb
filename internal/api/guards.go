// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/EduNauta/sindicapp/internal/platform/apperr"
	"github.com/EduNauta/sindicapp/internal/platform/middleware"
	"github.com/EduNauta/sindicapp/internal/platform/respond"
	"github.com/EduNauta/sindicapp/internal/platform/sec"
)

// # Guarded Catalogue
//
// Companies, forums, posts and reports are served by other deployments.
// Their routes are mounted here with the production guard chains in front
// of a 501 placeholder, so access policy is enforced and testable in one place.

// notServed answers 501 for a resource whose handlers live elsewhere.
func notServed(resource string) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		respond.Error(writer, request, apperr.NotImplemented(resource))
	}
}

// mountGuardedCatalogue registers the collaborator routes on router.
func mountGuardedCatalogue(router chi.Router, authenticator middleware.Authenticator) {
	authenticate := middleware.Authenticate(authenticator)

	router.Route("/companies", func(r chi.Router) {
		handler := notServed("Companies")
		r.Get("/", handler)
		r.Get("/stats", handler)
		r.Get("/{identifier}", handler)

		r.With(authenticate).Post("/", handler)
		r.With(authenticate).Put("/{id}", handler)

		r.With(authenticate, middleware.RequirePermission(sec.PermAdminSystem)).Post("/{id}/verify", handler)
		r.With(authenticate, middleware.RequirePermission(sec.PermAdminSystem)).Delete("/{id}", handler)
	})

	router.Route("/forums", func(r chi.Router) {
		handler := notServed("Forums")
		r.Get("/", handler)
		r.Get("/{identifier}", handler)

		r.With(authenticate, middleware.RequirePermission(sec.PermCreatePosts)).Post("/", handler)
		r.With(authenticate, middleware.RequirePermission(sec.PermModeratePosts)).Put("/{id}", handler)
		r.With(authenticate, middleware.RequirePermission(sec.PermModeratePosts)).Delete("/{id}", handler)
	})

	router.Route("/posts", func(r chi.Router) {
		handler := notServed("Posts")
		r.Get("/", handler)
		r.Get("/{identifier}", handler)

		r.With(authenticate, middleware.RequirePermission(sec.PermCreatePosts)).Post("/", handler)
		r.With(authenticate).Put("/{id}", handler)
		r.With(authenticate).Post("/{id}/like", handler)
		r.With(authenticate).Delete("/{id}", handler)
	})

	router.Route("/reports", func(r chi.Router) {
		handler := notServed("Reports")

		// Reports may be filed anonymously
		r.With(middleware.OptionalAuthenticate(authenticator)).Post("/", handler)
		r.With(authenticate).Get("/my", handler)

		r.Group(func(triage chi.Router) {
			triage.Use(authenticate, middleware.RequirePermission(sec.PermViewReports))
			triage.Get("/", handler)
			triage.Get("/stats", handler)
			triage.Get("/{id}", handler)
			triage.Put("/{id}/status", handler)
		})
	})
}
