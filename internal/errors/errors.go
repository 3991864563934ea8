// Package errors provides standardized domain errors with codes for the agency network API.
//
// Usage:
//
//	// In services - return typed errors
//	if pending != nil {
//	    return errors.Conflict("a pending invitation already exists for this email")
//	}
//
//	// Callers check with errors.Is, which compares codes
//	if errors.Is(err, errors.ErrStaleTransition) {
//	    // another request resolved the record first
//	}
//
//	// The API layer maps codes to HTTP statuses
//	var domainErr *errors.Error
//	if errors.As(err, &domainErr) {
//	    return huma.NewError(domainErr.HTTPStatus(), domainErr.Message)
//	}
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Re-export standard library functions for convenience.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	Join   = errors.Join
)

// Code represents a machine-readable error code.
type Code string

// Error codes used throughout the application.
const (
	CodeNotFound        Code = "NOT_FOUND"
	CodeAlreadyExists   Code = "ALREADY_EXISTS"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeForbidden       Code = "FORBIDDEN"
	CodeValidation      Code = "VALIDATION"
	CodeConflict        Code = "CONFLICT"
	CodeInternal        Code = "INTERNAL"
	CodeTokenExpired    Code = "TOKEN_EXPIRED"
	CodeStaleTransition Code = "STALE_TRANSITION"
	CodePartialFailure  Code = "PARTIAL_FAILURE"
	CodeRateLimited     Code = "RATE_LIMITED"
)

// HTTPStatus returns the appropriate HTTP status code for an error code.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeNotFound:
		return http.StatusNotFound
	case CodeAlreadyExists, CodeConflict, CodeStaleTransition:
		return http.StatusConflict
	case CodeTokenExpired:
		return http.StatusGone
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeRateLimited:
		return http.StatusTooManyRequests
	case CodeForbidden:
		return http.StatusForbidden
	case CodeValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a domain error with a code, message, and optional details.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
	cause   error  // unexported, for wrapping
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target matches this error.
// Matches if target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// HTTPStatus returns the HTTP status code for this error.
func (e *Error) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// WithDetails returns a new error with additional details.
func (e *Error) WithDetails(details any) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		cause:   e.cause,
	}
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		cause:   err,
	}
}

// Sentinel errors for use with errors.Is().
var (
	ErrNotFound        = &Error{Code: CodeNotFound, Message: "not found"}
	ErrForbidden       = &Error{Code: CodeForbidden, Message: "forbidden"}
	ErrValidation      = &Error{Code: CodeValidation, Message: "validation error"}
	ErrConflict        = &Error{Code: CodeConflict, Message: "conflict"}
	ErrTokenExpired    = &Error{Code: CodeTokenExpired, Message: "token expired"}
	ErrStaleTransition = &Error{Code: CodeStaleTransition, Message: "stale transition"}
	ErrPartialFailure  = &Error{Code: CodePartialFailure, Message: "partial failure"}
)

// NotFound creates a not found error.
func NotFound(msg string) *Error {
	return &Error{Code: CodeNotFound, Message: msg}
}

// Forbidden creates a forbidden error.
func Forbidden(msg string) *Error {
	return &Error{Code: CodeForbidden, Message: msg}
}

// Validation creates a validation error.
func Validation(msg string) *Error {
	return &Error{Code: CodeValidation, Message: msg}
}

// Validationf creates a validation error with formatted message.
func Validationf(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

// ValidationWithDetails creates a validation error with details.
func ValidationWithDetails(msg string, details any) *Error {
	return &Error{Code: CodeValidation, Message: msg, Details: details}
}

// Conflict creates a conflict error.
func Conflict(msg string) *Error {
	return &Error{Code: CodeConflict, Message: msg}
}

// TokenExpired creates a token expired error.
func TokenExpired(msg string) *Error {
	return &Error{Code: CodeTokenExpired, Message: msg}
}

// StaleTransition creates an error for a state transition whose precondition no longer holds,
// typically because a concurrent request already moved the record.
func StaleTransition(msg string) *Error {
	return &Error{Code: CodeStaleTransition, Message: msg}
}

// StaleTransitionf creates a stale transition error with formatted message.
func StaleTransitionf(format string, args ...any) *Error {
	return &Error{Code: CodeStaleTransition, Message: fmt.Sprintf(format, args...)}
}

// PartialFailureDetails describes how far a multi-step transition got before failing.
type PartialFailureDetails struct {
	SagaID         string   `json:"saga_id"`
	FailedStep     string   `json:"failed_step"`
	CompletedSteps []string `json:"completed_steps"`
}

// PartialFailure creates an error for a multi-step transition that stopped midway.
// Retrying the same operation resumes from FailedStep.
func PartialFailure(details PartialFailureDetails, cause error) *Error {
	return &Error{
		Code:    CodePartialFailure,
		Message: fmt.Sprintf("step %q failed; retry to resume", details.FailedStep),
		Details: details,
		cause:   cause,
	}
}

// RateLimited creates a rate limited error.
func RateLimited(msg string) *Error {
	return &Error{Code: CodeRateLimited, Message: msg}
}
