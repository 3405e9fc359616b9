package gateway

import (
	"errors"
	"testing"
	"time"
)

func TestIsAuthenticationError(t *testing.T) {
	err := NewAuthenticationError("all strategies exhausted", nil)
	if !IsAuthenticationError(err) {
		t.Error("Expected IsAuthenticationError to return true for authentication error")
	}

	other := NewGatewayError("bad request", 400, "req_1", nil)
	if IsAuthenticationError(other) {
		t.Error("Expected IsAuthenticationError to return false for gateway error")
	}
}

func TestIsRetryableError(t *testing.T) {
	retryable := NewRetryableError("service unavailable", 503, nil, nil)
	if !IsRetryableError(retryable) {
		t.Error("Expected IsRetryableError to return true for retryable error")
	}

	fatal := NewGatewayError("bad request", 400, "req_1", nil)
	if IsRetryableError(fatal) {
		t.Error("Expected IsRetryableError to return false for gateway error")
	}
	if IsRetryableError(NewAuthenticationError("denied", nil)) {
		t.Error("Expected IsRetryableError to return false for authentication error")
	}
}

func TestIsGatewayError(t *testing.T) {
	err := NewGatewayError("bad request", 400, "req_1", nil)
	if !IsGatewayError(err) {
		t.Error("Expected IsGatewayError to return true for gateway error")
	}
	if IsGatewayError(NewRetryableError("overloaded", 503, nil, nil)) {
		t.Error("Expected IsGatewayError to return false for retryable error")
	}
}

func TestExtractRetryAfter(t *testing.T) {
	hint := 7 * time.Second
	err := NewRetryableError("rate limited", 429, &hint, nil)
	extracted := ExtractRetryAfter(err)
	if extracted == nil {
		t.Fatal("Expected non-nil retry after")
	}
	if *extracted != hint {
		t.Errorf("Expected retry after %v, got %v", hint, *extracted)
	}

	if ExtractRetryAfter(NewGatewayError("bad request", 400, "req_1", nil)) != nil {
		t.Error("Expected nil retry after for gateway error")
	}
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	wrapped := NewRetryableError("backend failure", 503, nil, cause)
	if !errors.Is(wrapped, cause) {
		t.Error("Expected error to unwrap to original cause")
	}
}

func TestErrorContext(t *testing.T) {
	hint := 5 * time.Second
	err := &Error{
		Type:       ErrorTypeRetryable,
		Message:    "overloaded",
		Retryable:  true,
		RetryAfter: &hint,
		StatusCode: 429,
		RequestID:  "req_42",
	}
	ctx := err.Context()
	if ctx["status_code"] != 429 {
		t.Errorf("Expected status_code 429, got %v", ctx["status_code"])
	}
	if ctx["request_id"] != "req_42" {
		t.Errorf("Expected request_id req_42, got %v", ctx["request_id"])
	}
	if ctx["retryable"] != true {
		t.Error("Expected retryable true in context")
	}
}
