// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

/*
Package pointer converts between values and the pointers used for
optional (NULL-able) fields.
*/
package pointer

import "strings"

// To returns a pointer to the provided value.
func To[T any](v T) *T {
	return &v
}

// Val safely dereferences a pointer, returning the zero value for nil.
func Val[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// NonEmpty returns nil for a blank string and a pointer to the trimmed
// value otherwise. Optional text columns store NULL instead of "".
func NonEmpty(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
