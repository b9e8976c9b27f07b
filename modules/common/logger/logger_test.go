package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_Production(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(false, &buf)

	assert.Equal(t, zerolog.InfoLevel, log.GetLevel())
	log.Debug().Msg("hidden")
	log.Info().Str("session", "abc").Msg("visible")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "visible", entry["message"])
	assert.Equal(t, "abc", entry["session"])
	assert.Equal(t, "face-fusion", entry["service"])
}

func TestNewWithWriter_Development(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(true, &buf)

	assert.Equal(t, zerolog.DebugLevel, log.GetLevel())
	log.Debug().Msg("console line")
	assert.Contains(t, buf.String(), "console line")
}
