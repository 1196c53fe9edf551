// Package apperror defines the typed errors the service layer raises and
// the HTTP layer maps onto JSON error responses.
package apperror

import (
	"errors"
	"net/http"
)

// Error codes returned to clients.
const (
	CodeUserExists         = "USER_EXISTS"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeForbidden          = "FORBIDDEN"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeUserNotFound       = "USER_NOT_FOUND"
	CodeProfileNotFound    = "PROFILE_NOT_FOUND"
	CodeProfileExists      = "PROFILE_EXISTS"
	CodeWorkspaceNotFound  = "WORKSPACE_NOT_FOUND"
	CodeInvitationNotFound = "INVITATION_NOT_FOUND"
	CodeValidation         = "VALIDATION_ERROR"
	CodeTokenExpired       = "TOKEN_EXPIRED"
	CodeEmailMismatch      = "EMAIL_MISMATCH"
	CodeRateLimited        = "RATE_LIMITED"
)

// Error is an application error carrying an HTTP status and a
// machine-readable code alongside the user-facing message.
type Error struct {
	Code    string `json:"code"`
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *Error) Error() string {
	return e.Message
}

// New creates an Error with the given code, status and message.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// As extracts an *Error from err, if it carries one.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// UserExists signals a registration attempt with an already registered email.
func UserExists() *Error {
	return New(CodeUserExists, http.StatusConflict, "email already registered")
}

// InvalidCredentials covers both unknown email and wrong password, with
// identical wording so accounts cannot be enumerated.
func InvalidCredentials() *Error {
	return New(CodeInvalidCredentials, http.StatusUnauthorized, "invalid credentials")
}

// Forbidden signals a request the authenticated user may not perform.
func Forbidden() *Error {
	return New(CodeForbidden, http.StatusForbidden, "access denied")
}

// Unauthorized signals a missing or invalid bearer token.
func Unauthorized(message string) *Error {
	return New(CodeUnauthorized, http.StatusUnauthorized, message)
}

// UserNotFound signals a lookup of a non-existent user.
func UserNotFound() *Error {
	return New(CodeUserNotFound, http.StatusNotFound, "user not found")
}

// ProfileNotFound signals that no profile links the user to the workspace.
func ProfileNotFound() *Error {
	return New(CodeProfileNotFound, http.StatusNotFound, "profile not found")
}

// ProfileExists signals that the invitee already holds a profile in the
// workspace.
func ProfileExists() *Error {
	return New(CodeProfileExists, http.StatusConflict, "user is already a member of this workspace")
}

// WorkspaceNotFound signals a lookup of a non-existent workspace.
func WorkspaceNotFound() *Error {
	return New(CodeWorkspaceNotFound, http.StatusNotFound, "workspace not found")
}

// InvitationNotFound signals an unknown or already consumed invitation token.
func InvitationNotFound() *Error {
	return New(CodeInvitationNotFound, http.StatusNotFound, "invitation not found")
}

// Validation signals invalid request data.
func Validation(message string) *Error {
	return New(CodeValidation, http.StatusBadRequest, message)
}

// TokenExpired signals an expired invitation or verification token.
func TokenExpired(message string) *Error {
	return New(CodeTokenExpired, http.StatusBadRequest, message)
}

// EmailMismatch signals that the accepting user's email does not match the
// invitation's target email.
func EmailMismatch() *Error {
	return New(CodeEmailMismatch, http.StatusBadRequest, "invitation was issued for a different email address")
}

// RateLimited signals that a per-user rate limit was exceeded.
func RateLimited(message string) *Error {
	return New(CodeRateLimited, http.StatusTooManyRequests, message)
}
