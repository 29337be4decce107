package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactEmail(t *testing.T) {
	tests := map[string]string{
		"john.doe@example.com": "jo***@example.com",
		"ab@example.com":       "***@example.com",
		"not-an-email":         "***@***",
		"a@b@c":                "***@***",
	}
	for in, want := range tests {
		assert.Equal(t, want, RedactEmail(in), in)
	}
}

func TestRedact_FreeText(t *testing.T) {
	got := Redact("send to ursula@example.com failed: mailbox ursula@example.com full")
	assert.Equal(t, "send to ur***@example.com failed: mailbox ur***@example.com full", got)
	assert.Equal(t, "no addresses here", Redact("no addresses here"))
}

func TestNew_JSONInProduction(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter("production", "", &buf)

	log.Debug().Msg("hidden")
	log.Info().Str("k", "v").Msg("shown")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "shown", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "v", entry["k"])
	assert.Equal(t, "newsletter", entry["service"])
}

func TestNew_ExplicitLevel(t *testing.T) {
	var buf bytes.Buffer
	log := newWithWriter("production", "warn", &buf)

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())
	log.Warn().Msg("kept")
	assert.NotZero(t, buf.Len())
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Error().Msg("discarded")
}
