package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogger_KeyValuesAndFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := FromZap(zap.New(core))

	log.Info("alert escalated", "alert_id", "a-1", zap.String("org_id", "o-1"))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "alert escalated", entry.Message)
	ctx := entry.ContextMap()
	assert.Equal(t, "a-1", ctx["alert_id"])
	assert.Equal(t, "o-1", ctx["org_id"])
}

func TestLogger_With(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	log := FromZap(zap.New(core)).With("request_id", "r-42")

	log.Warn("slow query")
	log.Debug("dropped below level")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "r-42", logs.All()[0].ContextMap()["request_id"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel("DEBUG"))
	assert.Equal(t, zapcore.WarnLevel, parseLevel("warning"))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel("error"))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(""))
}
