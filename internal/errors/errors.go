package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Input validation: malformed or out-of-range field, always recoverable
	// by re-prompting in place.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// Authorization: wrong chat type or missing admin role.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"

	// State violations: challenge status forbids the action, no active
	// challenge, no baseline set.
	ErrCodeStateViolation ErrorCode = "STATE_VIOLATION"

	// Capacity limits: suggestion cap, per-day/total point caps.
	ErrCodeCapacityLimit ErrorCode = "CAPACITY_LIMIT"

	// Session lifecycle
	ErrCodeSessionExpired ErrorCode = "SESSION_EXPIRED"
	ErrCodeNoSession      ErrorCode = "NO_SESSION"

	// Resource
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"

	// Rate limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// AppError is a structured error that can be surfaced to chat users
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// WithDetails adds details to the error
func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func StateViolation(message string) *AppError {
	return New(ErrCodeStateViolation, message)
}

func CapacityLimit(message string) *AppError {
	return New(ErrCodeCapacityLimit, message)
}

func SessionExpired() *AppError {
	return New(ErrCodeSessionExpired, "Session expired. Please start over.")
}

func NoSession() *AppError {
	return New(ErrCodeNoSession, "No operation in progress.")
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func AlreadyExists(resource string) *AppError {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Something went wrong. Please try again.", cause)
}

// AsAppError extracts an AppError from an error chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
