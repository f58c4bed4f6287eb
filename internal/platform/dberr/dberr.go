// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/EduNauta/sindicapp/internal/platform/apperr"
)

// IsNotFound reports whether err means the queried row does not exist,
// for both the native pgx API and database/sql.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows) || errors.Is(err, sql.ErrNoRows)
}

// UniqueViolation returns the violated constraint name when err is a
// Postgres unique violation (SQLSTATE 23505).
func UniqueViolation(err error) (constraint string, ok bool) {
	var pgError *pgconn.PgError
	if errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation {
		return pgError.ConstraintName, true
	}
	return "", false
}

// isForeignKeyViolation reports whether err is SQLSTATE 23503.
func isForeignKeyViolation(err error) bool {
	var pgError *pgconn.PgError
	return errors.As(err, &pgError) && pgError.Code == pgerrcode.ForeignKeyViolation
}

// Wrap classifies a database error into an [apperr.AppError] named after
// resource. The original error is kept as Cause for logging.
func Wrap(err error, resource string) error {
	if err == nil {
		return nil
	}

	switch {
	case IsNotFound(err):
		return apperr.NotFound(resource).WithCause(err)
	case isUnique(err):
		return apperr.Conflict(resource + " already exists").WithCause(err)
	case isForeignKeyViolation(err):
		return apperr.ValidationError(resource + " references a missing record").WithCause(err)
	default:
		return apperr.Internal(err)
	}
}

func isUnique(err error) bool {
	_, ok := UniqueViolation(err)
	return ok
}
