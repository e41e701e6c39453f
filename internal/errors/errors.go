// Package errors provides structured error types for the inactivity report.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure kinds a run can abort with.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrAuthFailure   = errors.New("authentication failed")
	ErrInvalidInput  = errors.New("invalid input")
	ErrUnavailable   = errors.New("service unavailable")
)

// APIError represents an error from an external API call. Code carries the
// API's own error code when the service returned one in its payload.
type APIError struct {
	Service    string
	StatusCode int
	Code       string
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %s: %v", e.Service, e.StatusCode, msg, e.Err)
	}
	return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, msg)
}

func (e *APIError) Unwrap() error { return e.Err }

// NewAPIError creates a new API error.
func NewAPIError(service string, statusCode int, message string) *APIError {
	return &APIError{Service: service, StatusCode: statusCode, Message: message}
}

// Configuration wraps err as a configuration failure.
func Configuration(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// InvalidInput wraps err as a malformed argument.
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// IsAuthFailure reports whether err is an authentication failure, either the
// sentinel or an API response the server rejected for lack of credentials.
func IsAuthFailure(err error) bool {
	if errors.Is(err, ErrAuthFailure) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 401, 403:
			return true
		}
		switch apiErr.Code {
		case "assertuserfailed", "assertnameduserfailed", "readapidenied", "permissiondenied":
			return true
		}
	}
	return false
}

// Kind returns a short label for err, used as a metrics label.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case IsAuthFailure(err):
		return "auth_failure"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return "api"
	}
	return "other"
}
