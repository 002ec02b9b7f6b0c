package esm

import (
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tphakala/go-esm/internal/config"
)

// Config is a loaded settings file. See LoadConfig.
type Config = config.Config

// Performance holds worker pool, row limit and split settings.
type Performance = config.Performance

// LoadConfig reads the INI settings file at path, or at the default location
// when path is empty. A missing file is created with default values.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultPerformance returns the built-in performance settings.
func DefaultPerformance() Performance {
	return config.New().Performance()
}

// ClientOption configures a Client.
type ClientOption func(*clientConfig)

type clientConfig struct {
	host         string
	username     string
	password     string // base64 encoded
	httpClient   *http.Client
	timeout      time.Duration
	insecure     bool
	userAgent    string
	logger       zerolog.Logger
	retries      *int
	retryDelay   time.Duration
	breaker      *gobreaker.Settings
	registerer   prometheus.Registerer
	pollInterval time.Duration
	pollTimeout  time.Duration
	prompter     Prompter
	progressOut  io.Writer
	quiet        bool
	performance  Performance
	now          func() time.Time
}

// WithHost sets the appliance host name or URL. A bare host name implies https.
func WithHost(host string) ClientOption {
	return func(c *clientConfig) {
		c.host = host
	}
}

// WithCredentials sets the login user and clear text password.
func WithCredentials(username, password string) ClientOption {
	return func(c *clientConfig) {
		c.username = username
		c.password = encodePassword(password)
	}
}

// WithConfig applies host, credentials, timeout, TLS verification, quiet
// mode and performance settings from a loaded settings file. Options given
// after WithConfig override it.
func WithConfig(cfg *Config) ClientOption {
	return func(c *clientConfig) {
		if cfg == nil {
			return
		}
		e := cfg.ESM()
		c.host = e.Host
		c.username = e.User
		c.password = e.Password

		g := cfg.General()
		if g.Timeout > 0 {
			c.timeout = g.Timeout
		}
		c.insecure = !g.SSLVerify
		c.quiet = g.Quiet

		c.performance = cfg.Performance()
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.httpClient = client
	}
}

// WithTimeout sets the per request timeout.
// Note: This option is ignored when WithHTTPClient is used;
// set the timeout directly on the provided client instead.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// WithInsecureSkipVerify disables TLS certificate verification. Appliances
// commonly ship self-signed certificates. Ignored with WithHTTPClient.
func WithInsecureSkipVerify(skip bool) ClientOption {
	return func(c *clientConfig) {
		c.insecure = skip
	}
}

// WithUserAgent sets a custom User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *clientConfig) {
		c.userAgent = ua
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger zerolog.Logger) ClientOption {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithRetries sets how many times a failed request is retried and the pause
// between attempts. Expired sessions log in again without pausing.
func WithRetries(retries int, delay time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.retries = &retries
		c.retryDelay = delay
	}
}

// WithCircuitBreaker routes every appliance round trip through a circuit
// breaker built from settings.
func WithCircuitBreaker(settings gobreaker.Settings) ClientOption {
	return func(c *clientConfig) {
		c.breaker = &settings
	}
}

// WithMetrics registers client collectors on reg.
func WithMetrics(reg prometheus.Registerer) ClientOption {
	return func(c *clientConfig) {
		c.registerer = reg
	}
}

// WithPollInterval sets the pause between query status polls.
func WithPollInterval(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.pollInterval = d
	}
}

// WithPollTimeout bounds the total time spent waiting for one query to
// complete. Zero, the default, waits until the appliance reports completion.
func WithPollTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.pollTimeout = d
	}
}

// WithPrompter sets the prompter used by confirmed bulk operations.
func WithPrompter(p Prompter) ClientOption {
	return func(c *clientConfig) {
		c.prompter = p
	}
}

// WithProgressWriter sets where progress bars are drawn. Defaults to stderr.
func WithProgressWriter(w io.Writer) ClientOption {
	return func(c *clientConfig) {
		c.progressOut = w
	}
}

// WithQuiet suppresses progress output.
func WithQuiet(quiet bool) ClientOption {
	return func(c *clientConfig) {
		c.quiet = quiet
	}
}

// WithPerformance sets worker pool, row limit and split settings.
func WithPerformance(p Performance) ClientOption {
	return func(c *clientConfig) {
		c.performance = p
	}
}

// withClock replaces the wall clock; used by tests through export_test.go.
func withClock(now func() time.Time) ClientOption {
	return func(c *clientConfig) {
		c.now = now
	}
}
