package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := NewZap(zap.New(core).Sugar())

	logger.Debug("resolving partitions", "definition", "daily")
	logger.Info("tick requested runs", "count", 2)
	logger.Warn("selector failed", "schedule", "s1")
	logger.Error("store unavailable", "backend", "redis")

	entries := logs.AllUntimed()
	require.Len(t, entries, 4)

	require.Equal(t, zapcore.DebugLevel, entries[0].Level)
	require.Equal(t, "resolving partitions", entries[0].Message)
	require.Equal(t, "daily", entries[0].ContextMap()["definition"])

	require.Equal(t, zapcore.InfoLevel, entries[1].Level)
	require.EqualValues(t, 2, entries[1].ContextMap()["count"])

	require.Equal(t, zapcore.WarnLevel, entries[2].Level)
	require.Equal(t, zapcore.ErrorLevel, entries[3].Level)
}

func TestNewZap_NilFallsBackToNop(t *testing.T) {
	logger := NewZap(nil)
	require.NotPanics(t, func() { logger.Info("discarded", "k", "v") })
}

func TestNopLogger(t *testing.T) {
	logger := NewNop()
	require.NotPanics(t, func() {
		logger.Debug("a")
		logger.Info("b", "k", 1)
		logger.Warn("c")
		logger.Error("d")
		logger.Fatal("e")
	})
}
