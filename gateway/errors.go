package gateway

import (
	"errors"
	"time"
)

// Error represents a classified gateway failure.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	RetryAfter *time.Duration
	StatusCode int
	RequestID  string
	Cause      error // Original backend or SDK error
}

// ErrorType represents the category of error.
type ErrorType string

const (
	// ErrorTypeAuthentication indicates every credential strategy was
	// exhausted or a secret/token fetch failed. Never retried.
	ErrorTypeAuthentication ErrorType = "authentication"

	// ErrorTypeRetryable indicates a transient backend failure (429/5xx).
	// Retried internally up to the attempt budget.
	ErrorTypeRetryable ErrorType = "retryable"

	// ErrorTypeGateway indicates a non-retryable backend failure: other
	// 4xx, a mid-stream failure, or an exhausted retry budget.
	ErrorTypeGateway ErrorType = "gateway"
)

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Context returns the structured fields attached to the error for
// logging and observability.
func (e *Error) Context() map[string]interface{} {
	ctx := map[string]interface{}{
		"type":      string(e.Type),
		"retryable": e.Retryable,
	}
	if e.StatusCode != 0 {
		ctx["status_code"] = e.StatusCode
	}
	if e.RequestID != "" {
		ctx["request_id"] = e.RequestID
	}
	if e.RetryAfter != nil {
		ctx["retry_after"] = e.RetryAfter.String()
	}
	return ctx
}

// IsAuthenticationError checks if an error is an authentication error.
func IsAuthenticationError(err error) bool {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Type == ErrorTypeAuthentication
	}
	return false
}

// IsRetryableError checks if an error is retryable.
func IsRetryableError(err error) bool {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Retryable
	}
	return false
}

// IsGatewayError checks if an error is a non-retryable gateway error.
func IsGatewayError(err error) bool {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Type == ErrorTypeGateway
	}
	return false
}

// ExtractRetryAfter extracts the retry-after hint from an error.
func ExtractRetryAfter(err error) *time.Duration {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.RetryAfter
	}
	return nil
}

// NewAuthenticationError creates a new authentication error.
func NewAuthenticationError(message string, cause error) *Error {
	return &Error{
		Type:      ErrorTypeAuthentication,
		Message:   message,
		Retryable: false,
		Cause:     cause,
	}
}

// NewRetryableError creates a new retryable error carrying the backend
// status code and an optional retry-after hint.
func NewRetryableError(message string, statusCode int, retryAfter *time.Duration, cause error) *Error {
	return &Error{
		Type:       ErrorTypeRetryable,
		Message:    message,
		Retryable:  true,
		RetryAfter: retryAfter,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// NewGatewayError creates a new non-retryable gateway error.
func NewGatewayError(message string, statusCode int, requestID string, cause error) *Error {
	return &Error{
		Type:       ErrorTypeGateway,
		Message:    message,
		Retryable:  false,
		StatusCode: statusCode,
		RequestID:  requestID,
		Cause:      cause,
	}
}
