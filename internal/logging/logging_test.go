package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Level(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want zerolog.Level
	}{
		{"default", Config{}, zerolog.InfoLevel},
		{"verbose", Config{Verbose: true}, zerolog.DebugLevel},
		{"quiet", Config{Quiet: true}, zerolog.WarnLevel},
		{"verbose wins", Config{Verbose: true, Quiet: true}, zerolog.DebugLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.Level())
		})
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger, closeFn, err := New(Config{Quiet: true, Console: &buf, NoColor: true})
	require.NoError(t, err)
	defer func() { _ = closeFn() }()

	logger.Info().Msg("hidden")
	logger.Warn().Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_Logfile(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "esm.log")

	logger, closeFn, err := New(Config{Verbose: true, Logfile: path, Console: &buf, NoColor: true})
	require.NoError(t, err)

	logger.Debug().Str("request", "login").Msg("esm request")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	line := strings.TrimSpace(string(data))
	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "login", entry["request"])
	assert.Contains(t, buf.String(), "esm request")
}
