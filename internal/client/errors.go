package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
)

// ErrStreamIdleTimeout is reported when a provider stops sending data.
var ErrStreamIdleTimeout = errors.New("stream idle timeout")

// APIError represents a provider error with an HTTP status code.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s API error %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Timeout reports gateway and request timeouts as timeouts.
func (e *APIError) Timeout() bool {
	return e.StatusCode == 408 || e.StatusCode == 504
}

// IsTimeoutError reports whether err is a timeout of any kind: a context
// deadline, an I/O deadline, a stalled stream, or a network timeout.
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, os.ErrDeadlineExceeded) ||
		errors.Is(err, ErrStreamIdleTimeout) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Timeout() {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsRetryableAPIError returns true if the API error has a retryable status code.
func IsRetryableAPIError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 408, 429, 500, 502, 503, 504, 529:
			return true
		}
	}
	return false
}

// IsRetryableError reports whether opening the stream again may succeed.
// Cancellation is never retryable.
func IsRetryableError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if IsTimeoutError(err) || IsRetryableAPIError(err) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// String fallback only for untyped errors from third-party libraries
	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"rate limit",
		"resource_exhausted",
		"unavailable",
		"overloaded",
		"connection reset",
		"connection refused",
		"unexpected eof",
		"tls handshake",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
