// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

// Package pagination provides shared types and helpers for API list endpoints.
//
// Clients send "page" (1-based) and "limit" query parameters; list responses
// carry a "pagination" block next to "data".
package pagination

import (
	"net/http"
	"strconv"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
	DefaultPage  = 1
)

// Params holds the parsed page and limit from a request's query string.
type Params struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit into their accepted ranges.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

// Offset returns the SQL OFFSET value for the page.
func (p Params) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

// Meta is the pagination block included in list responses.
type Meta struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// NewMeta builds the pagination block for a page of total items.
func NewMeta(params Params, total int) Meta {
	params = params.Normalize()
	totalPages := (total + params.Limit - 1) / params.Limit

	return Meta{
		Page:       params.Page,
		Limit:      params.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}
}

// FromRequest parses "page" and "limit" from the query string.
// Garbage falls back to the defaults; an oversized limit is capped at [MaxLimit].
func FromRequest(r *http.Request) Params {
	query := r.URL.Query()
	return Params{
		Page:  intOr(query.Get("page"), DefaultPage),
		Limit: intOr(query.Get("limit"), DefaultLimit),
	}.Normalize()
}

func intOr(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}
