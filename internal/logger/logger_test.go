package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{Format: "json"}.New(&buf)

	l.Info().Str("ref", "BL-1").Msg("GeoJSON uploaded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "BL-1", entry["ref"])
	assert.Equal(t, "GeoJSON uploaded", entry["message"])
	assert.Equal(t, "info", entry["level"])
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := Logger{Format: "text", NoColor: true}.New(&buf)

	l.Warn().Msg("empty source")

	assert.Contains(t, buf.String(), "empty source")
	assert.Contains(t, buf.String(), "WRN")
}

func TestLogger_Level(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, Logger{Level: "debug"}.level())
	assert.Equal(t, zerolog.InfoLevel, Logger{}.level())
	assert.Equal(t, zerolog.InfoLevel, Logger{Level: "loud"}.level())
}
