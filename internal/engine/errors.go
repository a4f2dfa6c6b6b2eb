// internal/engine/errors.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Common engine errors
var (
	ErrTimeout           = errors.New("request timeout")
	ErrNetworkError      = errors.New("network error")
	ErrHTTPStatus        = errors.New("unexpected http status")
	ErrParseError        = errors.New("failed to parse response")
	ErrBrowserNotFound   = errors.New("chrome browser not found")
	ErrNoValidPrices     = errors.New("no valid prices")
	ErrComponentNotFound = errors.New("component not found")
)

// ErrorCode is the reason attached to a failed crawl outcome
type ErrorCode string

const (
	ErrCodeUnsearchable     ErrorCode = "UNSEARCHABLE"
	ErrCodeNetworkError     ErrorCode = "NETWORK_ERROR"
	ErrCodeTimeout          ErrorCode = "TIMEOUT"
	ErrCodeHTTPStatus       ErrorCode = "HTTP_STATUS"
	ErrCodeNoProductsFound  ErrorCode = "NO_PRODUCTS_FOUND"
	ErrCodeNoConfidentMatch ErrorCode = "NO_CONFIDENT_MATCH"
	ErrCodeInvalidPrice     ErrorCode = "INVALID_PRICE"
	ErrCodeSinkError        ErrorCode = "SINK_ERROR"
	ErrCodeInternal         ErrorCode = "INTERNAL"
)

// EngineError wraps errors with additional context
type EngineError struct {
	Code       ErrorCode
	Message    string
	Underlying error
	Retry      bool
	Details    map[string]interface{}
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Underlying
}

// Is checks if the error matches the target
func (e *EngineError) Is(target error) bool {
	if t, ok := target.(*EngineError); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// NewEngineError creates a new EngineError
func NewEngineError(code ErrorCode, message string, err error) *EngineError {
	return &EngineError{
		Code:       code,
		Message:    message,
		Underlying: err,
		Retry:      false,
		Details:    make(map[string]interface{}),
	}
}

// WithRetry marks the error as retryable
func (e *EngineError) WithRetry() *EngineError {
	e.Retry = true
	return e
}

// WithDetail adds a detail to the error
func (e *EngineError) WithDetail(key string, value interface{}) *EngineError {
	e.Details[key] = value
	return e
}

// GetStatusCode returns the HTTP status for HTTP_STATUS errors, 0 otherwise
func (e *EngineError) GetStatusCode() int {
	if code, ok := e.Details["status"].(int); ok {
		return code
	}
	return 0
}

// Retryable reports whether another attempt may succeed
func (e *EngineError) Retryable() bool {
	return e.Retry
}

// Timeout reports whether the error is a request timeout
func (e *EngineError) Timeout() bool {
	return e.Code == ErrCodeTimeout
}

// NewHTTPStatusError builds the failure for a non-2xx response
func NewHTTPStatusError(status int, url string) *EngineError {
	err := NewEngineError(ErrCodeHTTPStatus, fmt.Sprintf("status %d", status), ErrHTTPStatus).
		WithDetail("status", status).
		WithDetail("url", url)
	if status == 429 || status >= 500 {
		err.WithRetry()
	}
	return err
}

// ClassifyFetchError maps a transport error to a TIMEOUT or NETWORK_ERROR EngineError.
// EngineErrors pass through unchanged.
func ClassifyFetchError(err error, url string) error {
	if err == nil {
		return nil
	}

	var ee *EngineError
	if errors.As(err, &ee) {
		return ee
	}

	if isTimeout(err) {
		return NewEngineError(ErrCodeTimeout, "request timed out", err).
			WithRetry().
			WithDetail("url", url)
	}
	ne := NewEngineError(ErrCodeNetworkError, "request failed", err).
		WithDetail("url", url)
	if !errors.Is(err, context.Canceled) {
		ne.WithRetry()
	}
	return ne
}

// ReasonOf maps any error produced while crawling a pair to a failure reason
func ReasonOf(err error) ErrorCode {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code
	}
	switch {
	case errors.Is(err, ErrTimeout), isTimeout(err):
		return ErrCodeTimeout
	case errors.Is(err, ErrNetworkError):
		return ErrCodeNetworkError
	case errors.Is(err, ErrHTTPStatus):
		return ErrCodeHTTPStatus
	}
	return ErrCodeInternal
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
