// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apperr defines the centralized error handling framework for Gatekeeper.

It provides a rich error type that bridges the gap between low-level domain or
storage errors and the uniform response+status shape of the auth endpoint.

Architecture:

  - AppError: A struct containing a machine-readable Code and a client-safe message.
  - Taxonomy: ClientInput, Auth, Conflict, NotFound, RateLimit, and Internal classes.
  - Mapping: Explicit mapping from AppError to standard HTTP Status Codes.

Every error that leaves the service layer should be an [AppError] to ensure
consistent API responses. Anything else is reported as INTERNAL_ERROR.
*/
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// # Wire Codes

// Machine-readable error codes returned in the "error" field.
const (
	CodeInvalidPayload   = "INVALID_PAYLOAD"
	CodeInvalidEmail     = "INVALID_EMAIL"
	CodePasswordMismatch = "PASSWORD_MISMATCH"
	CodeEmailTaken       = "EMAIL_TAKEN"
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeInvalidPassword  = "INVALID_PASSWORD"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeInvalidRoute     = "INVALID_ROUTE"
	CodeRateLimited      = "RATE_LIMITED"
	CodeInternal         = "INTERNAL_ERROR"
)

// AppError is the canonical error type for the Gatekeeper API.
//
// It carries an HTTP status code, a machine-readable code, and a client-safe
// message.
//
// # Security
//
// The Cause field is for server-side logging only and is never sent to clients
// to avoid leaking internal implementation details (e.g., SQL queries).
type AppError struct {
	// Code is a machine-readable error identifier (e.g. "EMAIL_TAKEN").
	Code string `json:"error"`
	// Message is a human-readable description safe to return to the client.
	Message string `json:"message"`
	// HTTPStatus is the HTTP response status code.
	HTTPStatus int `json:"-"`
	// Cause is the underlying error, used for server-side logging only.
	Cause error `json:"-"`
}

// Error implements the error interface. It returns the client-safe message.
func (e *AppError) Error() string { return e.Message }

// Unwrap allows [errors.Is] and [errors.As] to traverse the cause chain.
func (e *AppError) Unwrap() error { return e.Cause }

// Is reports whether target is an [*AppError] with the same code, so callers
// can write errors.Is(err, apperr.Unauthorized("")).
func (e *AppError) Is(target error) bool {
	var other *AppError
	if !errors.As(target, &other) {
		return false
	}
	return other.Code == e.Code
}

// # Client Errors (4xx)

// BadRequest creates a 400 [AppError] with an arbitrary client-input code.
func BadRequest(code, msg string) *AppError {
	return &AppError{
		Code:       code,
		Message:    msg,
		HTTPStatus: http.StatusBadRequest,
	}
}

// InvalidPayload creates the 400 returned for unparseable or incomplete bodies.
func InvalidPayload() *AppError {
	return BadRequest(CodeInvalidPayload, "Request body is missing or malformed")
}

// InvalidEmail creates the 400 returned for a malformed email address.
func InvalidEmail() *AppError {
	return BadRequest(CodeInvalidEmail, "Email address is not valid")
}

// PasswordMismatch creates the 400 returned when the confirmation differs.
func PasswordMismatch() *AppError {
	return BadRequest(CodePasswordMismatch, "Passwords do not match")
}

// EmailTaken creates the 400 returned for a duplicate registration.
// It is reported as 400, not 409, to keep the status surface of the endpoint small.
func EmailTaken() *AppError {
	return BadRequest(CodeEmailTaken, "Email is already registered")
}

// UserNotFound creates the 400 returned when no account matches a login email.
func UserNotFound() *AppError {
	return BadRequest(CodeUserNotFound, "No account exists for this email")
}

// InvalidPassword creates the 400 returned when login credentials do not match.
func InvalidPassword() *AppError {
	return BadRequest(CodeInvalidPassword, "Password is incorrect")
}

// Unauthorized creates a 401 [AppError].
func Unauthorized(msg string) *AppError {
	return &AppError{
		Code:       CodeUnauthorized,
		Message:    msg,
		HTTPStatus: http.StatusUnauthorized,
	}
}

// InvalidRoute creates a 404 [AppError] for an unmatched method/action pair.
func InvalidRoute() *AppError {
	return &AppError{
		Code:       CodeInvalidRoute,
		Message:    "Route not found",
		HTTPStatus: http.StatusNotFound,
	}
}

// RateLimited creates a 429 [AppError].
func RateLimited(retryAfterSeconds int) *AppError {
	return &AppError{
		Code:       CodeRateLimited,
		Message:    fmt.Sprintf("Too many requests. Try again in %ds.", retryAfterSeconds),
		HTTPStatus: http.StatusTooManyRequests,
	}
}

// # Server Errors (5xx)

// Internal creates a 500 [AppError] wrapping an unexpected server-side error.
// The cause is stored for logging but is never sent to the client.
func Internal(cause error) *AppError {
	return &AppError{
		Code:       CodeInternal,
		Message:    "An unexpected error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

// # Helpers

// As extracts the [*AppError] from err's chain. It returns nil if not found.
func As(err error) *AppError {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// From returns err as an [*AppError], converting anything else to [Internal].
func From(err error) *AppError {
	if ae := As(err); ae != nil {
		return ae
	}
	return Internal(err)
}
