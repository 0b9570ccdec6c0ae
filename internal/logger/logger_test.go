package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("chatty"))
	assert.Equal(t, zerolog.Disabled, ParseLevel("disabled"))
}

func TestLogger_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "warn", Output: &buf})

	l.Info("hidden").Send()
	l.Warn("shown").Send()

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.Equal(t, "semdiff", lines[0]["service"])
}

func TestLogger_LogLocate(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", Output: &buf})

	l.LogLocate("q1", "exact", 1.0, time.Millisecond, nil)
	l.LogLocate("q2", "", 0, time.Millisecond, errors.New("no candidate"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "q1", lines[0]["id"])
	assert.Equal(t, "exact", lines[0]["method"])
	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, "no candidate", lines[1]["error"])
}

func TestLogger_LogRequestLevels(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "info", Output: &buf})

	l.LogRequest("POST", "/api/locate", 200, time.Millisecond)
	l.LogRequest("POST", "/api/locate", 400, time.Millisecond)
	l.LogRequest("POST", "/api/locate", 500, time.Millisecond)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, "error", lines[2]["level"])
	assert.EqualValues(t, 400, lines[1]["status"])
}

func TestLogger_ComponentAndFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf}).Component("mcp").WithFields(map[string]interface{}{"session": "abc"})

	l.Info("hello").Send()

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "mcp", lines[0]["component"])
	assert.Equal(t, "abc", lines[0]["session"])
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error("nothing").Send()
	l.LogBatch(1, 1, time.Second)
}
