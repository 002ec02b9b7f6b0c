// Package esm provides a Go client for the McAfee Enterprise Security Manager
// (ESM) HTTP API.
//
// Basic usage:
//
//	client, err := esm.NewClient(
//	    esm.WithHost("esm.example.com"),
//	    esm.WithCredentials("admin", password),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	q := client.NewQuery().WithTimeRange(esm.LastHour).WithFilter("DstIP", "10.0.0.0/8")
//	events, err := client.Events.Query(ctx, q)
package esm

import (
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"maps"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tphakala/go-esm/internal/api"
	"github.com/tphakala/go-esm/internal/auth"
	"github.com/tphakala/go-esm/internal/catalog"
	"github.com/tphakala/go-esm/internal/metrics"
)

// Default configuration values.
const (
	defaultTimeout      = 60 * time.Second
	defaultPollInterval = 350 * time.Millisecond
)

// LoginInfo describes the current authenticated session.
type LoginInfo = auth.LoginInfo

// API version flags reported by APIVersion.
const (
	APIVersionUnknown = auth.APIVersionUnknown
	APIVersion1       = auth.APIVersion1
	APIVersion2       = auth.APIVersion2
)

// Client is the ESM API client. One Client holds one appliance session;
// share it between goroutines rather than creating one per call.
type Client struct {
	// Events provides event queries, details and notes.
	Events EventService
	// Alarms provides triggered alarm queries and mutations.
	Alarms AlarmService
	// Datasources provides the device tree and datasource management.
	Datasources DatasourceService
	// Watchlists provides watchlist listing and value management.
	Watchlists WatchlistService

	transport    *api.Transport
	performer    *Performer
	performance  Performance
	logger       zerolog.Logger
	metrics      *metrics.Metrics
	pollInterval time.Duration
	pollTimeout  time.Duration
	now          func() time.Time
}

// NewClient creates a new ESM client with the given options.
func NewClient(opts ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		timeout:      defaultTimeout,
		logger:       zerolog.Nop(),
		pollInterval: defaultPollInterval,
		progressOut:  os.Stderr,
		performance:  DefaultPerformance(),
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if strings.TrimSpace(cfg.host) == "" {
		return nil, ErrNoHost
	}

	if cfg.username == "" || cfg.password == "" {
		return nil, ErrNoCredentials
	}

	if err := cfg.performance.Validate(); err != nil {
		return nil, &ConfigurationError{Field: "performance", Reason: err.Error()}
	}

	creds := &auth.Credentials{
		Username: cfg.username,
		Password: cfg.password,
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = newHTTPClient(cfg.timeout, cfg.insecure)
	}

	transport, err := api.NewTransport(cfg.host, creds, httpClient)
	if err != nil {
		return nil, err
	}

	if cfg.userAgent != "" {
		transport.UserAgent = cfg.userAgent
	}
	if cfg.retries != nil {
		transport.Retries = *cfg.retries
		transport.RetryDelay = cfg.retryDelay
	}
	transport.Logger = cfg.logger
	transport.SetClock(cfg.now)

	if cfg.breaker != nil {
		transport.Breaker = gobreaker.NewCircuitBreaker[*api.Response](*cfg.breaker)
	}

	var m *metrics.Metrics
	if cfg.registerer != nil {
		m, err = metrics.New(cfg.registerer)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
		transport.Metrics = m
	}

	prompter := cfg.prompter
	if prompter == nil {
		prompter = NewTerminalPrompter(os.Stdin, os.Stderr)
	}

	client := &Client{
		transport: transport,
		performer: &Performer{
			Prompter: prompter,
			Progress: cfg.progressOut,
			Quiet:    cfg.quiet,
		},
		performance:  cfg.performance,
		logger:       cfg.logger,
		metrics:      m,
		pollInterval: cfg.pollInterval,
		pollTimeout:  cfg.pollTimeout,
		now:          cfg.now,
	}

	// Initialize services
	client.Events = newEventService(client)
	client.Alarms = newAlarmService(client)
	client.Datasources = newDatasourceService(client)
	client.Watchlists = newWatchlistService(client)

	return client, nil
}

func newHTTPClient(timeout time.Duration, insecure bool) *http.Client {
	client := &http.Client{Timeout: timeout}
	if insecure {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in for self-signed appliances
		client.Transport = tr
	}
	return client
}

func encodePassword(clear string) string {
	if clear == "" {
		return ""
	}
	return base64.StdEncoding.EncodeToString([]byte(clear))
}

// Host returns the public API base URL.
func (c *Client) Host() string {
	return c.transport.PublicURL.String()
}

// Performance returns the worker pool, row limit and split settings.
func (c *Client) Performance() Performance {
	return c.performance
}

// Performer returns the runner used for bulk operations.
func (c *Client) Performer() *Performer {
	return c.performer
}

// Login authenticates explicitly. Requests log in on demand, so calling
// Login is only needed to validate credentials early.
func (c *Client) Login(ctx context.Context) error {
	return c.transport.Login(ctx)
}

// Logout ends the appliance session.
func (c *Client) Logout(ctx context.Context) error {
	return c.transport.Logout(ctx)
}

// LoggedIn reports whether the session is authenticated.
func (c *Client) LoggedIn() bool {
	return c.transport.Session.LoggedIn()
}

// LoginInfo returns the login metadata of the current session.
func (c *Client) LoginInfo() LoginInfo {
	return c.transport.Session.Info()
}

// APIVersion returns the API version flag derived from the appliance version,
// or APIVersionUnknown before login.
func (c *Client) APIVersion() int {
	return c.transport.Session.APIVersion()
}

// Version returns the appliance build stamp, logging in if needed.
func (c *Client) Version(ctx context.Context) (string, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return "", err
	}
	return c.transport.Session.Info().Version, nil
}

// Time returns the appliance clock.
func (c *Client) Time(ctx context.Context) (time.Time, error) {
	result, err := c.Request(ctx, catalog.ESMTime, nil)
	if err != nil {
		return time.Time{}, err
	}
	s, ok := result.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("unexpected time response %T", result)
	}
	return parseESMTime(s)
}

// Request sends the named catalog request. The session API version is added
// to params as "api_version" unless params already carries one.
//
// Public requests return the unpacked JSON value; private requests return a
// map[string]string of response fields.
func (c *Client) Request(ctx context.Context, name string, params map[string]any) (any, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	p := catalog.Params{}
	maps.Copy(p, params)
	if _, ok := p[catalog.APIVersionParam]; !ok {
		p[catalog.APIVersionParam] = c.transport.Session.APIVersion()
	}

	return c.transport.Request(ctx, name, p)
}

// RequestInto sends the named request and decodes the result into out.
func (c *Client) RequestInto(ctx context.Context, name string, params map[string]any, out any) error {
	result, err := c.Request(ctx, name, params)
	if err != nil {
		return err
	}
	return api.Decode(result, out)
}

// ReadFile retrieves a server-side buffered file and deletes it afterwards.
func (c *Client) ReadFile(ctx context.Context, name string) (string, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return "", err
	}
	return c.transport.ReadFile(ctx, name)
}

// Catalog lists the request names Request understands.
func (c *Client) Catalog() []string {
	return c.transport.Catalog.Names()
}

func (c *Client) ensureLogin(ctx context.Context) error {
	if c.transport.Session.LoggedIn() {
		return nil
	}
	return c.transport.Login(ctx)
}
