package logging_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/paveg/filmdash/internal/logging"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, logging.ParseLevel(tt.input))
		})
	}
}

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	logger := logging.Component("loader")
	logger.Warn().Err(errors.New("boom")).Int("rows", 3).Msg("table loaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "loader", entry["component"])
	assert.Equal(t, "boom", entry["error"])
	assert.InDelta(t, 3.0, entry["rows"], 1e-9)
	assert.Equal(t, "table loaded", entry["message"])
}

func TestInitLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "error", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	logging.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	logging.Error().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestInitConsole(t *testing.T) {
	var buf bytes.Buffer
	logging.Init(logging.Config{Level: "info", Format: "console", Output: &buf})
	t.Cleanup(func() { logging.Init(logging.DefaultConfig()) })

	logging.Info().Str("stage", "filter").Msg("done")
	assert.Contains(t, buf.String(), "done")
	assert.Contains(t, buf.String(), "stage=")
}
