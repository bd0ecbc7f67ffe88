package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedact(t *testing.T) {
	kv := []interface{}{"question", "급수란?", "llm_api_key", "sk-123", "Authorization", "Bearer x", "dangling"}

	out := redact(kv)

	assert.Equal(t, []interface{}{"question", "급수란?", "llm_api_key", redacted, "Authorization", redacted, "dangling"}, out)
	assert.Equal(t, "sk-123", kv[3], "input is not modified")
}

func TestLogger_WritesFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.With("request_id", "r1").Warn("query failed", "reason", "timeout", "password", "hunter2")

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "query failed", entry.Message)
	fields := entry.ContextMap()
	assert.Equal(t, "r1", fields["request_id"])
	assert.Equal(t, "timeout", fields["reason"])
	assert.Equal(t, redacted, fields["password"])
}

func TestNew(t *testing.T) {
	l, err := New("production", "warn")
	require.NoError(t, err)
	assert.False(t, l.SugaredLogger.Desugar().Core().Enabled(zap.InfoLevel))

	_, err = New("development", "loud")
	assert.Error(t, err)

	Nop().Info("discarded")
}
