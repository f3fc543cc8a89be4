package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: FormatJSON, Out: &buf})
	require.NoError(t, err)

	logger.Debug().Int("iterations", 42).Msg("search-done")

	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	require.Equal(t, "debug", payload["level"])
	require.Equal(t, "search-done", payload["message"])
	require.EqualValues(t, 42, payload["iterations"])
	require.Contains(t, payload, "time")
}

func TestNew_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "WARN", Format: FormatJSON, Out: &buf})
	require.NoError(t, err)
	require.Equal(t, zerolog.WarnLevel, logger.GetLevel())

	logger.Info().Msg("hidden")
	require.Zero(t, buf.Len())
	logger.Warn().Msg("shown")
	require.Contains(t, buf.String(), "shown")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Options{Level: "loud"})
	require.Error(t, err)

	_, err = New(Options{Format: "xml"})
	require.Error(t, err)
}

func TestPrettyJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Format: FormatPretty, Out: &buf})
	require.NoError(t, err)

	logger.Info().Str("winner", "A").Msg("game-over")

	out := buf.String()
	require.True(t, strings.HasPrefix(out, "{\n  "), "got %q", out)
	require.True(t, strings.HasSuffix(out, "}\n"))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &payload))
	require.Equal(t, "A", payload["winner"])
}

func TestPrettyJSONWriter_PassesThroughNonJSON(t *testing.T) {
	var buf bytes.Buffer
	w := NewPrettyJSONWriter(&buf)
	n, err := w.Write([]byte("plain text\n"))
	require.NoError(t, err)
	require.Equal(t, len("plain text\n"), n)
	require.Equal(t, "plain text\n", buf.String())
}
