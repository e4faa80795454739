package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Level: "info", Format: "json", Output: &buf})

	logger.Info().Str("kind", "timeout").Msg("delivery errored")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "timeout", entry["kind"])
	assert.Equal(t, "delivery errored", entry["message"])
}

func TestNewDefaultsToWarn(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Options{Format: "json", Output: &buf})

	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
	logger.Info().Msg("hidden")
	assert.Zero(t, buf.Len())
}

func TestNewInvalidLevel(t *testing.T) {
	logger := New(Options{Level: "loud", Output: &bytes.Buffer{}})
	assert.Equal(t, zerolog.WarnLevel, logger.GetLevel())
}
