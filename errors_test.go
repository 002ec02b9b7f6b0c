package esm_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tphakala/go-esm"
)

func TestAPIError(t *testing.T) {
	err := &esm.APIError{StatusCode: 500, Message: "internal error"}
	assert.Equal(t, "esm: API error 500: internal error", err.Error())
}

func TestAuthenticationError(t *testing.T) {
	err := &esm.AuthenticationError{
		APIError: esm.APIError{StatusCode: 401, Message: "bad password"},
	}
	assert.Equal(t, "esm: authentication failed: bad password", err.Error())

	var apiErr *esm.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)
}

func TestApplianceError(t *testing.T) {
	err := &esm.ApplianceError{
		APIError: esm.APIError{StatusCode: 400, Message: "ERROR_INVALID_FILTER"},
		Method:   "event_query",
	}
	assert.Equal(t, "esm: appliance error 400 calling event_query: ERROR_INVALID_FILTER", err.Error())
	assert.False(t, err.SessionExpired())

	var apiErr *esm.APIError
	require.ErrorAs(t, fmt.Errorf("wrapped: %w", err), &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)

	expired := &esm.ApplianceError{APIError: esm.APIError{StatusCode: 500, Message: "Session has expired"}}
	assert.True(t, expired.SessionExpired())
}

func TestTransportError(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		err := &esm.TransportError{Op: "qryGetStatus", Timeout: true, Err: context.DeadlineExceeded}
		assert.Equal(t, "esm: qryGetStatus timed out: context deadline exceeded", err.Error())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("failure", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := &esm.TransportError{Op: "login", Err: cause}
		assert.Equal(t, "esm: login failed: connection refused", err.Error())
		assert.ErrorIs(t, err, cause)
	})
}

func TestConfigurationError(t *testing.T) {
	tests := []struct {
		name string
		err  *esm.ConfigurationError
		want string
	}{
		{
			name: "with field",
			err:  &esm.ConfigurationError{Field: "workers", Reason: "must be positive"},
			want: "esm: invalid workers: must be positive",
		},
		{
			name: "without field",
			err:  &esm.ConfigurationError{Reason: "nothing to do"},
			want: "esm: configuration error: nothing to do",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestSentinelErrors(t *testing.T) {
	sentinels := []error{
		esm.ErrNoCredentials,
		esm.ErrNoHost,
		esm.ErrUserCancelled,
		esm.ErrNotFound,
		esm.ErrEmptyIterator,
	}
	for _, err := range sentinels {
		assert.Contains(t, err.Error(), "esm:")
		wrapped := fmt.Errorf("context: %w", err)
		assert.ErrorIs(t, wrapped, err)
	}
}
