// Copyright (c) 2026 SindicApp. All rights reserved.
// Author: SindicApp maintainers

package auth

// # Event Names

// Event labels used for metrics and structured logs.
const (
	EventLogin          = "login"
	EventRegister       = "register"
	EventRefresh        = "refresh"
	EventLogout         = "logout"
	EventLogoutAll      = "logout_all"
	EventChangePassword = "change_password"
	EventResetPassword  = "reset_password"
	EventVerifyEmail    = "verify_email"
	EventPurge          = "session_purge"
)

// # Field Identifiers

// JSON field names used in validation errors.
const (
	FieldIdentifier      = "identifier"
	FieldEmail           = "email"
	FieldUsername        = "username"
	FieldPassword        = "password"
	FieldFirstName       = "firstName"
	FieldLastName        = "lastName"
	FieldPhone           = "phone"
	FieldRefreshToken    = "refreshToken"
	FieldToken           = "token"
	FieldCurrentPassword = "currentPassword"
	FieldNewPassword     = "newPassword"
	FieldSessionID       = "id"
)

// maxIdentifierLen bounds the login identifier, matching the e-mail column limit.
const maxIdentifierLen = 255

// maxUserAgentLen truncates stored user agents.
const maxUserAgentLen = 512
