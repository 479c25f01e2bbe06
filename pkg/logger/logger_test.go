package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Config{Level: "warn", Format: "json"})

	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Warn("retry exhausted", "account", "47288276269")
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "retry exhausted", entry["msg"])
	assert.Equal(t, "47288276269", entry["account"])
}

func TestNew_Defaults(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, Config{Level: "nonsense", Format: "nonsense"})

	l.Debug("hidden")
	assert.Zero(t, buf.Len())
	l.Info("account opened")
	assert.Contains(t, buf.String(), "account opened")
}
