// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

/*
Package uuid provides the time-ordered identifiers used as primary keys.

Version 7 values sort by creation time, which keeps PostgreSQL B-tree
indexes on accounts and sessions append-mostly.
*/
package uuid

import "github.com/google/uuid"

// New generates a new UUIDv7 string.
func New() string {
	id, err := uuid.NewV7()

	// entropy failure is an unrecoverable system-level error
	if err != nil {
		panic("uuid: failed to generate UUIDv7: " + err.Error())
	}

	return id.String()
}

// IsValid reports whether value is a canonical, hyphenated UUID.
// Used to reject malformed path parameters before they reach the database.
func IsValid(value string) bool {
	if len(value) != 36 {
		return false
	}
	_, err := uuid.Parse(value)
	return err == nil
}
