// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

// Package ctxkey holds the context keys shared by middleware and handlers.
//
// Keys are values of an unexported type, so no other package can produce a
// colliding key even with the same string.
package ctxkey

type key string

const (
	// KeyRequestID carries the X-Request-ID correlation value.
	KeyRequestID key = "request_id"

	// KeyPrincipal carries the caller attached by the access gate ([sec.Principal]).
	// It is written once per request and only read afterwards.
	KeyPrincipal key = "principal"

	// KeyLogger carries the request-scoped [*log/slog.Logger].
	KeyLogger key = "logger"
)
