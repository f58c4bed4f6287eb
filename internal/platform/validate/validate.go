// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// Only the credential shapes the auth core accepts live here: account
// names, passwords, e-mail addresses and phone numbers.
package validate

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/EduNauta/sindicapp/internal/platform/apperr"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 30
	PasswordMinLen = 8
	PasswordMaxLen = 128
	NameMaxLen     = 50
	EmailMaxLen    = 255
)

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phoneRegex    = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
	uuidRegex     = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

	// ErrInvalidJSON is returned when the request body cannot be decoded.
	ErrInvalidJSON = apperr.ValidationError("Invalid JSON payload")
)

// Validator collects field-level validation errors via a fluent, chainable API.
// It is not safe for concurrent use; create one per operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// MaxLen fails if the Unicode character count exceeds max.
func (v *Validator) MaxLen(field, value string, max int) *Validator {
	if utf8.RuneCountInString(value) > max {
		v.add(field, fmt.Sprintf("Maximum %d characters", max))
	}
	return v
}

// Email fails if the value is not a bare RFC 5322 address.
func (v *Validator) Email(field, value string) *Validator {
	address, err := mail.ParseAddress(value)
	if err != nil || address.Address != value || utf8.RuneCountInString(value) > EmailMaxLen {
		v.add(field, "Must be a valid email address")
	}
	return v
}

// Username fails unless value is 3 to 30 letters, digits or underscores.
func (v *Validator) Username(field, value string) *Validator {
	length := utf8.RuneCountInString(value)
	switch {
	case length < UsernameMinLen:
		v.add(field, fmt.Sprintf("Username must be at least %d characters", UsernameMinLen))
	case length > UsernameMaxLen:
		v.add(field, fmt.Sprintf("Username must be less than %d characters", UsernameMaxLen))
	case !usernameRegex.MatchString(value):
		v.add(field, "Username can only contain letters, numbers, and underscores")
	}
	return v
}

// StrongPassword fails unless value is 8 to 128 characters long and mixes
// lowercase, uppercase and digits.
func (v *Validator) StrongPassword(field, value string) *Validator {
	length := utf8.RuneCountInString(value)
	if length < PasswordMinLen {
		v.add(field, fmt.Sprintf("Password must be at least %d characters", PasswordMinLen))
		return v
	}
	if length > PasswordMaxLen {
		v.add(field, "Password is too long")
		return v
	}

	var lower, upper, digit bool
	for _, r := range value {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower || !upper || !digit {
		v.add(field, "Password must contain at least one lowercase letter, one uppercase letter, and one number")
	}
	return v
}

// Phone fails if a non-empty value is not an E.164-style number.
func (v *Validator) Phone(field, value string) *Validator {
	if value != "" && !phoneRegex.MatchString(value) {
		v.add(field, "Invalid phone number format")
	}
	return v
}

// UUID fails if the value is not a valid UUID string (case-insensitive).
func (v *Validator) UUID(field, value string) *Validator {
	if !uuidRegex.MatchString(strings.ToLower(value)) {
		v.add(field, "Must be a valid UUID")
	}
	return v
}

// Custom adds a failure with a custom message if the condition is true.
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a VALIDATION_ERROR [apperr.AppError] if any rule failed, or nil.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
