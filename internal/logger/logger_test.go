package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "info", "JSON")

	l.Debug("hidden")
	l.Info("login", slog.Int64("user_id", 7))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "login", rec["msg"])
	assert.EqualValues(t, 7, rec["user_id"])
}

func TestNewTextDefault(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug", "")

	l.Debug("sweep", slog.Int("removed", 3))
	assert.Contains(t, buf.String(), "msg=sweep")
	assert.Contains(t, buf.String(), "removed=3")
}
