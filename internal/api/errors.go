package api

import (
	"fmt"
	"strings"

	"github.com/tphakala/go-esm/internal/catalog"
)

// sessionMarkers are response body fragments the appliance uses to signal an
// invalidated or expired session.
var sessionMarkers = []string{
	"ERROR_INVALID_SESSION",
	"Invalid Session",
	"invalid_session",
	"Session has expired",
	"Not Authorized",
	"Unauthorized",
}

// APIError represents a general ESM API error.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("esm: API error %d: %s", e.StatusCode, e.Message)
}

// AuthenticationError indicates rejected credentials or an invalidated session.
type AuthenticationError struct {
	APIError
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("esm: authentication failed: %s", e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *AuthenticationError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// ApplianceError is any other error status or processing failure reported by
// the appliance. It carries the failing method and its parameters.
type ApplianceError struct {
	APIError
	Method string
	Params catalog.Params
}

func (e *ApplianceError) Error() string {
	return fmt.Sprintf("esm: appliance error %d calling %s: %s", e.StatusCode, e.Method, e.Message)
}

// As implements error unwrapping for errors.As to match *APIError.
func (e *ApplianceError) As(target any) bool {
	if t, ok := target.(**APIError); ok {
		*t = &e.APIError
		return true
	}
	return false
}

// SessionExpired reports whether the response text carries a session
// invalidation marker.
func (e *ApplianceError) SessionExpired() bool {
	return hasSessionMarker(e.Message)
}

// TransportError is a network level failure: timeout, excessive redirects,
// refused connection or an open circuit breaker.
type TransportError struct {
	Op      string
	Timeout bool
	Err     error
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("esm: %s timed out: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("esm: %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func hasSessionMarker(text string) bool {
	for _, m := range sessionMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
