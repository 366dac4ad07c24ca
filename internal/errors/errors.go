package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the portal's failure taxonomy. The first three cover
// upstream (MLM backend) failures; the rest cover local request handling.
var (
	// ErrUpstreamUnreachable marks a transport-level failure: connection
	// refused, DNS failure, or the fixed request timeout.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrUpstreamRejected marks a non-2xx upstream reply that carried a
	// parseable, human-readable message.
	ErrUpstreamRejected = errors.New("upstream rejected request")

	// ErrMalformedReply marks an upstream body that could not be decoded
	// into the expected shape, regardless of status code.
	ErrMalformedReply = errors.New("malformed upstream reply")

	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrAuthPending  = errors.New("authentication already in progress")
	ErrCooldown     = errors.New("operation is in cooldown")
	ErrUnavailable  = errors.New("service unavailable")
)

// AppError is a structured application error with an HTTP status mapping.
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// UpstreamUnreachable wraps a transport failure talking to the MLM backend.
func UpstreamUnreachable(err error) *AppError {
	return &AppError{
		Code:    "UPSTREAM_UNREACHABLE",
		Message: "could not reach the portal backend",
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %w", ErrUpstreamUnreachable, err),
	}
}

// UpstreamRejected carries the backend's own human-readable error message.
func UpstreamRejected(status int, message string) *AppError {
	return &AppError{
		Code:    "UPSTREAM_REJECTED",
		Message: message,
		Status:  status,
		Err:     ErrUpstreamRejected,
	}
}

// MalformedReply marks an upstream body that did not match the expected shape.
func MalformedReply(err error) *AppError {
	return &AppError{
		Code:    "MALFORMED_REPLY",
		Message: "the portal backend returned an unexpected response",
		Status:  http.StatusBadGateway,
		Err:     fmt.Errorf("%w: %w", ErrMalformedReply, err),
	}
}

// NotFound creates a 404 error.
func NotFound(resource, id string) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s with id %s not found", resource, id),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput creates a 400 error.
func InvalidInput(message string) *AppError {
	return &AppError{
		Code:    "INVALID_INPUT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidInput,
	}
}

// Unauthorized creates a 401 error.
func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     ErrUnauthorized,
	}
}

// AuthPending creates a 409 error for a second auth call issued while one
// is still in flight.
func AuthPending() *AppError {
	return &AppError{
		Code:    "AUTH_PENDING",
		Message: "another authentication request is already in progress",
		Status:  http.StatusConflict,
		Err:     ErrAuthPending,
	}
}

// Cooldown creates a 429 error for a deposit request inside the cooldown window.
func Cooldown(message string) *AppError {
	return &AppError{
		Code:    "COOLDOWN",
		Message: message,
		Status:  http.StatusTooManyRequests,
		Err:     ErrCooldown,
	}
}

// Unavailable creates a 503 error.
func Unavailable(message string) *AppError {
	return &AppError{
		Code:    "SERVICE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     ErrUnavailable,
	}
}

// Internal creates a 500 error.
func Internal(err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: "an internal error occurred",
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// HTTPStatus returns the HTTP status code for the given error.
func HTTPStatus(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}

	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAuthPending):
		return http.StatusConflict
	case errors.Is(err, ErrCooldown):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUpstreamUnreachable), errors.Is(err, ErrMalformedReply):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
