package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("respects log level", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(
			WithOutput(&buf),
			WithLevel(slog.LevelWarn),
		)

		logger.Debug("debug message")
		logger.Info("info message")
		logger.Warn("warn message")
		logger.Error("error message")

		output := buf.String()
		assert.NotContains(t, output, "debug message")
		assert.NotContains(t, output, "info message")
		assert.Contains(t, output, "warn message")
		assert.Contains(t, output, "error message")
	})

	t.Run("JSON format", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(
			WithOutput(&buf),
			WithFormat(FormatJSON),
		)

		logger.Info("test message", "key", "value")
		assert.Contains(t, buf.String(), `"msg":"test message"`)
		assert.Contains(t, buf.String(), `"key":"value"`)
	})

	t.Run("component attribute", func(t *testing.T) {
		var buf bytes.Buffer
		logger := New(
			WithOutput(&buf),
			WithComponent("promote"),
		)

		logger.Info("renamed")
		assert.Contains(t, buf.String(), "component=promote")
	})
}

func TestComponent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(WithOutput(&buf))

	Component(parent, "copy").Warn("skipped", "item", "docs")
	assert.Contains(t, buf.String(), "component=copy")
	assert.Contains(t, buf.String(), "item=docs")

	// nil parent must not panic
	Component(nil, "copy").Warn("dropped")
}

func TestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(WithOutput(&buf))

	ctx := WithContext(context.Background(), logger)
	FromContext(ctx).Info("from context")
	assert.True(t, strings.Contains(buf.String(), "from context"))

	// Missing logger falls back to Nop
	require.NotNil(t, FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for input, want := range tests {
		got, err := ParseLevel(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("json")
	require.NoError(t, err)
	assert.Equal(t, FormatJSON, f)

	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}
