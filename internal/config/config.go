// Package config loads and persists ESM connection and performance settings.
//
// Settings live in an INI file with three sections:
//
//	[esm]          host, user, passwd (base64)
//	[general]      verbose, quiet, logfile, timeout (seconds), ssl_verify
//	[performance]  max_workers, max_rows, default_rows, slots, max_query_depth
//
// Every key can be overridden from the environment as ESM_<SECTION>_<KEY>.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	localDir = ".msiem"
	fileName = "conf.ini"
)

// Default values.
const (
	DefaultTimeout       = 60 * time.Second
	DefaultMaxWorkers    = 10
	DefaultMaxRows       = 200000
	DefaultDefaultRows   = 500
	DefaultSlots         = 4
	DefaultMaxQueryDepth = 1
)

// ESM holds appliance connection settings.
type ESM struct {
	Host string
	User string
	// Password is base64 encoded.
	Password string
}

// General holds logging and HTTP settings.
type General struct {
	Verbose   bool
	Quiet     bool
	Logfile   string
	Timeout   time.Duration
	SSLVerify bool
}

// Performance holds query engine settings.
type Performance struct {
	MaxWorkers    int
	MaxRows       int
	DefaultRows   int
	Slots         int
	MaxQueryDepth int
}

// Validate checks performance limits.
func (p Performance) Validate() error {
	switch {
	case p.MaxWorkers <= 0:
		return fmt.Errorf("max_workers must be positive, got %d", p.MaxWorkers)
	case p.MaxRows <= 0:
		return fmt.Errorf("max_rows must be positive, got %d", p.MaxRows)
	case p.DefaultRows <= 0:
		return fmt.Errorf("default_rows must be positive, got %d", p.DefaultRows)
	case p.Slots <= 0:
		return fmt.Errorf("slots must be positive, got %d", p.Slots)
	case p.MaxQueryDepth < 0:
		return fmt.Errorf("max_query_depth must not be negative, got %d", p.MaxQueryDepth)
	}
	return nil
}

// Config is a loaded settings file.
type Config struct {
	v    *viper.Viper
	path string
}

// New returns a Config holding defaults and environment overrides only.
func New() *Config {
	v := viper.New()
	v.SetConfigType("ini")
	v.SetEnvPrefix("ESM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("esm.host", "")
	v.SetDefault("esm.user", "")
	v.SetDefault("esm.passwd", "")
	v.SetDefault("general.verbose", false)
	v.SetDefault("general.quiet", false)
	v.SetDefault("general.logfile", "")
	v.SetDefault("general.timeout", int(DefaultTimeout/time.Second))
	v.SetDefault("general.ssl_verify", true)
	v.SetDefault("performance.max_workers", DefaultMaxWorkers)
	v.SetDefault("performance.max_rows", DefaultMaxRows)
	v.SetDefault("performance.default_rows", DefaultDefaultRows)
	v.SetDefault("performance.slots", DefaultSlots)
	v.SetDefault("performance.max_query_depth", DefaultMaxQueryDepth)

	return &Config{v: v}
}

// Load reads the settings file at path, or at the discovered default
// location when path is empty. A missing file is created with defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := New()
	cfg.path = path
	cfg.v.SetConfigFile(path)

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("creating config %s: %w", path, err)
		}
		return cfg, nil
	}

	if err := cfg.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := cfg.Performance().Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns the first matching settings location: ./.msiem when it
// exists, then $APPDATA, $XDG_CONFIG_HOME and $HOME, falling back to the
// working directory.
func DefaultPath() string {
	return discoverPath(os.Getenv, isDir)
}

func discoverPath(getenv func(string) string, dirExists func(string) bool) string {
	if dirExists(localDir) {
		return filepath.Join(localDir, fileName)
	}
	for _, env := range []string{"APPDATA", "XDG_CONFIG_HOME", "HOME"} {
		if dir := getenv(env); dir != "" {
			return filepath.Join(dir, localDir, fileName)
		}
	}
	return filepath.Join(localDir, fileName)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// Path returns the file backing this config, if any.
func (c *Config) Path() string {
	return c.path
}

// Save writes the settings to Path.
func (c *Config) Save() error {
	if c.path == "" {
		return errors.New("config has no file path")
	}
	return c.SaveAs(c.path)
}

// SaveAs writes the settings to path and makes it the backing file.
func (c *Config) SaveAs(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	if err := c.v.WriteConfigAs(path); err != nil {
		return err
	}
	c.path = path
	c.v.SetConfigFile(path)
	return os.Chmod(path, 0o600)
}

// ESM returns the connection settings.
func (c *Config) ESM() ESM {
	return ESM{
		Host:     c.v.GetString("esm.host"),
		User:     c.v.GetString("esm.user"),
		Password: c.v.GetString("esm.passwd"),
	}
}

// General returns the logging and HTTP settings.
func (c *Config) General() General {
	return General{
		Verbose:   c.v.GetBool("general.verbose"),
		Quiet:     c.v.GetBool("general.quiet"),
		Logfile:   c.v.GetString("general.logfile"),
		Timeout:   time.Duration(c.v.GetInt("general.timeout")) * time.Second,
		SSLVerify: c.v.GetBool("general.ssl_verify"),
	}
}

// Performance returns the query engine settings.
func (c *Config) Performance() Performance {
	return Performance{
		MaxWorkers:    c.v.GetInt("performance.max_workers"),
		MaxRows:       c.v.GetInt("performance.max_rows"),
		DefaultRows:   c.v.GetInt("performance.default_rows"),
		Slots:         c.v.GetInt("performance.slots"),
		MaxQueryDepth: c.v.GetInt("performance.max_query_depth"),
	}
}

// SetHost sets the appliance host.
func (c *Config) SetHost(host string) {
	c.v.Set("esm.host", host)
}

// SetCredentials stores the user and the base64 encoded password.
func (c *Config) SetCredentials(user, password string) {
	c.v.Set("esm.user", user)
	c.v.Set("esm.passwd", base64.StdEncoding.EncodeToString([]byte(password)))
}

// SetGeneral replaces the general settings.
func (c *Config) SetGeneral(g General) {
	c.v.Set("general.verbose", g.Verbose)
	c.v.Set("general.quiet", g.Quiet)
	c.v.Set("general.logfile", g.Logfile)
	c.v.Set("general.timeout", int(g.Timeout/time.Second))
	c.v.Set("general.ssl_verify", g.SSLVerify)
}

// SetPerformance validates and replaces the performance settings.
func (c *Config) SetPerformance(p Performance) error {
	if err := p.Validate(); err != nil {
		return err
	}
	c.v.Set("performance.max_workers", p.MaxWorkers)
	c.v.Set("performance.max_rows", p.MaxRows)
	c.v.Set("performance.default_rows", p.DefaultRows)
	c.v.Set("performance.slots", p.Slots)
	c.v.Set("performance.max_query_depth", p.MaxQueryDepth)
	return nil
}
