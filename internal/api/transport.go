// Package api provides low-level HTTP transport for ESM API calls.
//
// A Transport speaks both appliance dialects: the documented JSON API under
// /rs/esm/ and the legacy private API under /ess/, selected per request by
// the catalog entry's command name.
package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tphakala/go-esm/internal/auth"
	"github.com/tphakala/go-esm/internal/catalog"
	"github.com/tphakala/go-esm/internal/metrics"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	defaultMaxBodySize = 256 * 1024 * 1024 // 256MB
	defaultRetries     = 1
	defaultRetryDelay  = 500 * time.Millisecond
)

const (
	dialectPublic  = "public"
	dialectPrivate = "private"
)

// Transport handles HTTP communication with the ESM appliance.
type Transport struct {
	PublicURL   *url.URL
	PrivateURL  *url.URL
	HTTPClient  *http.Client
	Credentials *auth.Credentials
	Session     *auth.Session
	Catalog     *catalog.Catalog
	UserAgent   string

	// Retries is the number of times a failed request is retried. Requests
	// failing on an expired session log in again before retrying.
	Retries    int
	RetryDelay time.Duration

	Logger  zerolog.Logger
	Breaker *gobreaker.CircuitBreaker[*Response]
	Metrics *metrics.Metrics

	now func() time.Time
}

// NewTransport creates a Transport for host. host is either a bare host name
// (https is assumed) or a URL with scheme.
func NewTransport(host string, creds *auth.Credentials, httpClient *http.Client) (*Transport, error) {
	if creds == nil {
		return nil, fmt.Errorf("credentials must be provided")
	}

	base, err := parseHost(host)
	if err != nil {
		return nil, err
	}

	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: defaultHTTPTimeout,
		}
	}

	return &Transport{
		PublicURL:   base.JoinPath("rs", "esm"),
		PrivateURL:  base.JoinPath("ess"),
		HTTPClient:  httpClient,
		Credentials: creds,
		Session:     auth.NewSession(),
		Catalog:     catalog.Default(),
		UserAgent:   "go-esm/1.0",
		Retries:     defaultRetries,
		RetryDelay:  defaultRetryDelay,
		Logger:      zerolog.Nop(),
		now:         time.Now,
	}, nil
}

// SetClock replaces the clock used for login timestamps.
func (t *Transport) SetClock(now func() time.Time) {
	if now != nil {
		t.now = now
	}
}

func parseHost(host string) (*url.URL, error) {
	host = strings.TrimSuffix(strings.TrimSpace(host), "/")
	if host == "" {
		return nil, fmt.Errorf("invalid host: empty")
	}
	if !strings.Contains(host, "://") {
		host = "https://" + host
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid host: %w", err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("invalid host: %q", host)
	}
	return u, nil
}

// Response represents a raw API response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
}

// Request builds the named catalog request from params, sends it and returns
// the unpacked result: the decoded JSON value for public calls, or a
// map[string]string for private calls.
//
// The session logs in on demand. Failures are retried up to Retries times;
// an expired session is invalidated first so the retry logs in again.
// Transport errors are never retried.
func (t *Transport) Request(ctx context.Context, name string, params catalog.Params) (any, error) {
	call, err := t.Catalog.Build(name, params)
	if err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		if name != catalog.Login && !t.Session.LoggedIn() {
			if err := t.Login(ctx); err != nil {
				return nil, err
			}
		}

		result, err := t.send(ctx, name, call, params)
		if err == nil {
			return result, nil
		}

		var transportErr *TransportError
		if errors.As(err, &transportErr) || ctx.Err() != nil {
			return nil, err
		}

		var applianceErr *ApplianceError
		expired := errors.As(err, &applianceErr) && applianceErr.SessionExpired()

		if attempt >= t.Retries {
			if expired {
				return nil, &AuthenticationError{APIError: applianceErr.APIError}
			}
			return nil, err
		}

		if expired {
			t.Logger.Warn().Str("request", name).Int("attempt", attempt+1).Msg("session expired, logging in again")
			t.Session.Invalidate()
			t.Metrics.IncRelogin()
			continue
		}

		t.Logger.Warn().Err(err).Str("request", name).Int("attempt", attempt+1).Msg("request failed, retrying")
		if err := sleep(ctx, t.RetryDelay); err != nil {
			return nil, err
		}
	}
}

// Login authenticates against the appliance, stores the session headers and
// records the appliance version.
func (t *Transport) Login(ctx context.Context) error {
	if !t.Credentials.Valid() {
		return &AuthenticationError{APIError: APIError{Message: "no credentials configured"}}
	}

	call, err := t.Catalog.Build(catalog.Login, catalog.Params{
		"username": t.Credentials.EncodedUsername(),
		"password": t.Credentials.Password,
	})
	if err != nil {
		return err
	}

	resp, err := t.roundTrip(ctx, call)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return &AuthenticationError{APIError: APIError{StatusCode: resp.StatusCode, Message: string(resp.Body)}}
	case resp.StatusCode > http.StatusUnauthorized && resp.StatusCode <= 600:
		return &ApplianceError{
			APIError: APIError{StatusCode: resp.StatusCode, Message: string(resp.Body)},
			Method:   catalog.Login,
		}
	}

	t.Session.Establish(resp.Headers.Get("Set-Cookie"), resp.Headers.Get("Xsrf-Token"), t.Credentials.Username, t.now())

	version, err := t.buildStamp(ctx)
	if err != nil {
		t.Session.Invalidate()
		return fmt.Errorf("reading appliance version: %w", err)
	}
	t.Session.SetVersion(version)

	t.Logger.Debug().Str("user", t.Credentials.Username).Str("version", version).
		Int("api_version", t.Session.APIVersion()).Msg("logged in")
	return nil
}

func (t *Transport) buildStamp(ctx context.Context) (string, error) {
	call, err := t.Catalog.Build(catalog.BuildStamp, nil)
	if err != nil {
		return "", err
	}
	result, err := t.send(ctx, catalog.BuildStamp, call, nil)
	if err != nil {
		return "", err
	}
	switch v := result.(type) {
	case string:
		return strings.TrimSpace(v), nil
	case map[string]any:
		if stamp, ok := v["buildStamp"].(string); ok {
			return strings.TrimSpace(stamp), nil
		}
	}
	return "", fmt.Errorf("unexpected build stamp response %T", result)
}

// Logout ends the session on the appliance and resets local session state.
// Local state is reset even if the appliance call fails.
func (t *Transport) Logout(ctx context.Context) error {
	if !t.Session.LoggedIn() {
		return nil
	}
	defer t.Session.Invalidate()

	call, err := t.Catalog.Build(catalog.Logout, nil)
	if err != nil {
		return err
	}
	_, err = t.send(ctx, catalog.Logout, call, nil)
	return err
}

// send performs one round trip and unpacks the body according to dialect.
func (t *Transport) send(ctx context.Context, name string, call catalog.Call, params catalog.Params) (any, error) {
	resp, err := t.roundTrip(ctx, call)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &ApplianceError{
			APIError: APIError{StatusCode: resp.StatusCode, Message: string(resp.Body)},
			Method:   name,
			Params:   params,
		}
	}

	if call.Private() {
		fields, err := DecodePrivate(string(resp.Body))
		if err != nil {
			return nil, &ApplianceError{
				APIError: APIError{StatusCode: resp.StatusCode, Message: string(resp.Body)},
				Method:   name,
				Params:   params,
			}
		}
		return fields, nil
	}

	return Unpack(resp.Body), nil
}

// roundTrip executes one HTTP exchange, through the circuit breaker when
// one is configured.
func (t *Transport) roundTrip(ctx context.Context, call catalog.Call) (*Response, error) {
	dialect := dialectPublic
	if call.Private() {
		dialect = dialectPrivate
	}

	start := time.Now()
	var (
		resp *Response
		err  error
	)
	if t.Breaker != nil {
		resp, err = t.Breaker.Execute(func() (*Response, error) {
			return t.do(ctx, call)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = &TransportError{Op: call.Command(), Err: err}
		}
	} else {
		resp, err = t.do(ctx, call)
	}

	outcome := "success"
	switch {
	case err != nil:
		outcome = "transport_error"
	case resp.StatusCode >= http.StatusBadRequest:
		outcome = "http_error"
	}
	t.Metrics.ObserveRequest(dialect, outcome, time.Since(start))

	t.Logger.Debug().Str("dialect", dialect).Str("method", call.Method).Str("endpoint", call.Command()).
		Str("outcome", outcome).Dur("elapsed", time.Since(start)).Msg("esm request")

	return resp, err
}

func (t *Transport) do(ctx context.Context, call catalog.Call) (*Response, error) {
	httpReq, err := t.buildRequest(ctx, call)
	if err != nil {
		return nil, err
	}

	httpResp, err := t.HTTPClient.Do(httpReq)
	if err != nil {
		var netErr net.Error
		timeout := errors.As(err, &netErr) && netErr.Timeout()
		return nil, &TransportError{Op: call.Command(), Timeout: timeout, Err: err}
	}
	defer func() { _ = httpResp.Body.Close() }()

	limitedReader := io.LimitReader(httpResp.Body, defaultMaxBodySize+1)
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, &TransportError{Op: call.Command(), Err: fmt.Errorf("reading response body: %w", err)}
	}

	if int64(len(body)) > defaultMaxBodySize {
		return nil, &TransportError{Op: call.Command(), Err: fmt.Errorf("response too large: exceeds %d bytes", defaultMaxBodySize)}
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
		Headers:    httpResp.Header,
	}, nil
}

func (t *Transport) buildRequest(ctx context.Context, call catalog.Call) (*http.Request, error) {
	var (
		target      string
		bodyReader  io.Reader
		contentType string
	)

	if call.Private() {
		target = t.PrivateURL.String() + "/"
		bodyReader = strings.NewReader(EncodePrivate(call.Command(), call.Pairs()))
		contentType = "text/plain"
	} else {
		cmd, query, _ := strings.Cut(call.Endpoint, "?")
		u := t.PublicURL.JoinPath(cmd)
		u.RawQuery = query
		target = u.String()
		if call.Body != nil {
			data, err := json.Marshal(call.Body)
			if err != nil {
				return nil, fmt.Errorf("marshaling request body: %w", err)
			}
			bodyReader = bytes.NewReader(data)
			contentType = "application/json"
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, call.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", t.UserAgent)

	t.Session.Apply(httpReq)

	return httpReq, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
