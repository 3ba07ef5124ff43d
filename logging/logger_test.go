package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Logger = NoOpLogger{}
	_ Logger = (*SlogAdapter)(nil)
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLevel(" error "))
	assert.Equal(t, LogLevelInfo, ParseLevel("verbose"))
	assert.Equal(t, "WARN", LogLevelWarn.String())
}

func TestNewLogger_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(&LoggerConfig{Level: LogLevelInfo, Format: "json", Output: &buf, Component: "engine"})
	l.Debug("hidden")
	With(l, "agent_id", "ag1").Info("agent completed", "outputs", 1)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "agent completed", entry["msg"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "ag1", entry["agent_id"])
	assert.Equal(t, float64(1), entry["outputs"])
}

func TestWith_NonSlogLoggerUnchanged(t *testing.T) {
	var l Logger = NoOpLogger{}
	assert.Equal(t, l, With(l, "k", "v"))
}
