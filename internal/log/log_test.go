package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHandler_Levels(t *testing.T) {
	tests := map[string]slog.Level{
		"error":   slog.LevelError,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"info":    slog.LevelInfo,
		"Debug":   slog.LevelDebug,
	}
	for in, want := range tests {
		h, err := NewHandler(&bytes.Buffer{}, in, "logfmt")
		require.NoError(t, err, in)
		assert.True(t, h.Enabled(context.Background(), want), in)
		assert.False(t, h.Enabled(context.Background(), want-1), in)
	}
}

func TestNewHandler_Formats(t *testing.T) {
	for _, f := range AllFormats {
		_, err := NewHandler(&bytes.Buffer{}, "info", strings.ToUpper(f))
		require.NoError(t, err, f)
	}
}

func TestNewHandler_JSON(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, "info", "json")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Debug("hidden")
	logger.Info("run complete", "rules", 2, "modified", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run complete", entry["msg"])
	assert.EqualValues(t, 2, entry["rules"])
	assert.EqualValues(t, 3, entry["modified"])
}

func TestNewHandler_Logfmt(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, "debug", "logfmt")
	require.NoError(t, err)

	slog.New(h).Debug("rule applied", "entity", "album", "matched", 2)
	assert.Contains(t, buf.String(), `msg="rule applied" entity=album matched=2`)
}

func TestNewHandler_Text(t *testing.T) {
	var buf bytes.Buffer
	h, err := NewHandler(&buf, "warn", "text")
	require.NoError(t, err)

	logger := slog.New(h)
	logger.Info("hidden")
	logger.Warn("skipping record", "id", 42)

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "tagrules")
	assert.Contains(t, buf.String(), "skipping record")
	assert.Contains(t, buf.String(), "id=42")
}

func TestNewHandler_Invalid(t *testing.T) {
	_, err := NewHandler(&bytes.Buffer{}, "loud", "text")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.ErrorIs(t, err, ErrUnknownLogLevel)

	_, err = NewHandler(&bytes.Buffer{}, "info", "xml")
	assert.ErrorIs(t, err, ErrUnknownLogFormat)
}

func TestWithContext(t *testing.T) {
	assert.Same(t, slog.Default(), WithContext(context.Background()))

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := NewContext(context.Background(), logger)
	assert.Same(t, logger, WithContext(ctx))
}
