package pardot

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrNotLoggedIn is returned by AuthHeader when no session token is held.
	ErrNotLoggedIn = errors.New("pardot: not logged in")

	// ErrAuthentication means a login attempt did not yield a usable token.
	ErrAuthentication = errors.New("pardot: authentication failed")

	// ErrTokenExpired matches any *APIError carrying one of the vendor's
	// token expiry messages.
	ErrTokenExpired = errors.New("pardot: session token expired")

	// ErrUnsupportedOperation is returned when an object has no such operation.
	ErrUnsupportedOperation = errors.New("pardot: unsupported operation")
)

const (
	legacyExpiredMessage = "Invalid API key or user key"
	oauthExpiredMessage  = "access_token is invalid, unknown, or malformed"
	unknownErrorMessage  = "Unknown API error occurred"
)

// APIError is an error reported by the Pardot API in a JSON response body,
// or a non-JSON error status.
type APIError struct {
	Code       int
	Message    string
	StatusCode int
	Response   map[string]any
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Error #%d: %s", e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	if target != ErrTokenExpired {
		return false
	}
	return e.Message == legacyExpiredMessage || e.Message == oauthExpiredMessage
}

// ArgumentError reports a missing identifying parameter. It is raised before
// any request is sent.
type ArgumentError struct {
	Object    string
	Operation string
	Param     string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("pardot: %s is required for %s %s", e.Param, e.Object, e.Operation)
}

// TransportError wraps a network failure. It is never retried by the session.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("pardot: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a request timeout.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}
