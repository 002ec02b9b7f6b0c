package esm

import (
	"errors"
	"fmt"

	"github.com/tphakala/go-esm/internal/api"
)

// Sentinel errors for common failure modes.
var (
	ErrNoCredentials = errors.New("esm: no credentials configured")
	ErrNoHost        = errors.New("esm: no host configured")
	ErrUserCancelled = errors.New("esm: operation cancelled by user")
	ErrNotFound      = errors.New("esm: not found")
	ErrEmptyIterator = errors.New("esm: iterator is empty")
)

// APIError represents a general ESM API error.
type APIError = api.APIError

// AuthenticationError indicates rejected credentials at login (HTTP 400/401)
// or a session that stayed invalid after re-login.
type AuthenticationError = api.AuthenticationError

// ApplianceError is any other HTTP error or processing failure reported by
// the appliance. It carries the failing method, its parameters and the
// response text.
type ApplianceError = api.ApplianceError

// TransportError is a timeout, redirect loop or other network failure. It is
// never retried.
type TransportError = api.TransportError

// ConfigurationError reports an invalid argument combination: a bad perform
// option, filter operator, value type, time range or collection element.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("esm: configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("esm: invalid %s: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
