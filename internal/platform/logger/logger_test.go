// Package logger_test contains tests for the logger package
package logger_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/phrazzld/apitask/internal/config"
	"github.com/phrazzld/apitask/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
		ok    bool
	}{
		{"debug", slog.LevelDebug, true},
		{"INFO", slog.LevelInfo, true},
		{"warn", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"verbose", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := logger.ParseLevel(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

// TestSetupWithWriter verifies that the configured level filters output and
// that entries are written as JSON.
func TestSetupWithWriter(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	buf := &logger.TestLogBuffer{}
	l, err := logger.SetupWithWriter(config.ServerConfig{Port: 8080, LogLevel: "warn"}, buf)
	require.NoError(t, err)
	require.NotNil(t, l)

	l.Info("hidden")
	l.Warn("shown", "component", "test")

	entries, err := buf.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0]["msg"])
	assert.Equal(t, "test", entries[0]["component"])
	assert.Same(t, l, slog.Default(), "Setup should install the logger as default")
}

func TestFromContextOrDefault(t *testing.T) {
	ctxLogger, _ := logger.NewTestLogger()
	fallback, _ := logger.NewTestLogger()

	t.Run("logger in context wins", func(t *testing.T) {
		ctx := logger.WithLogger(context.Background(), ctxLogger)
		assert.Same(t, ctxLogger, logger.FromContextOrDefault(ctx, fallback))
	})

	t.Run("fallback without context logger", func(t *testing.T) {
		assert.Same(t, fallback, logger.FromContextOrDefault(context.Background(), fallback))
	})

	t.Run("default when nothing is set", func(t *testing.T) {
		assert.Same(t, slog.Default(), logger.FromContext(context.Background()))
	})

	t.Run("nil logger is ignored", func(t *testing.T) {
		ctx := logger.WithLogger(context.Background(), nil)
		assert.Same(t, fallback, logger.FromContextOrDefault(ctx, fallback))
	})
}
