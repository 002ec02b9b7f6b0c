// Package logging builds the zerolog logger used by the esm command.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

// Config selects verbosity and destinations.
type Config struct {
	// Verbose lowers the level to debug.
	Verbose bool
	// Quiet raises the level to warn. Verbose wins when both are set.
	Quiet bool
	// Logfile, when set, receives JSON lines in addition to the console.
	Logfile string
	// Console defaults to os.Stderr.
	Console io.Writer
	// NoColor disables console colors.
	NoColor bool
}

// Level returns the minimum level implied by cfg.
func (cfg Config) Level() zerolog.Level {
	switch {
	case cfg.Verbose:
		return zerolog.DebugLevel
	case cfg.Quiet:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// New returns a logger for cfg. The returned close function releases the
// logfile, if one was opened, and is always safe to call.
func New(cfg Config) (zerolog.Logger, func() error, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        console,
		TimeFormat: "15:04:05",
		NoColor:    cfg.NoColor,
	}
	closeFn := func() error { return nil }

	if cfg.Logfile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logfile), 0o750); err != nil {
			return zerolog.Nop(), closeFn, fmt.Errorf("creating log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return zerolog.Nop(), closeFn, fmt.Errorf("opening logfile: %w", err)
		}
		out = zerolog.MultiLevelWriter(out, f)
		closeFn = f.Close
	}

	logger := zerolog.New(out).Level(cfg.Level()).With().Timestamp().Logger()
	return logger, closeFn, nil
}
