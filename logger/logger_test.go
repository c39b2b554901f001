package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/routekit/trace"
)

const testMessage = "test message"

func newBufferLogger(t *testing.T, level string) (*ZeroLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	return NewWithOptions(Options{Level: level, Output: &buf}), &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestNewLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{name: "debug", level: "debug", want: zerolog.DebugLevel},
		{name: "warn", level: "warn", want: zerolog.WarnLevel},
		{name: "invalid_defaults_to_info", level: "loud", want: zerolog.InfoLevel},
		{name: "empty_defaults_to_info", level: "", want: zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _ := newBufferLogger(t, tt.level)
			assert.Equal(t, tt.want, l.Level())
		})
	}
}

func TestEventFields(t *testing.T) {
	l, buf := newBufferLogger(t, "debug")

	l.Info().
		Str("method", http.MethodGet).
		Int("status", 200).
		Int64("body_size", 12).
		Uint64("attempt", 2).
		Bool("retry", true).
		Dur("elapsed", 1500*time.Millisecond).
		Err(errors.New("boom")).
		Msg(testMessage)

	entry := decodeLine(t, buf)
	assert.Equal(t, testMessage, entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.EqualValues(t, 200, entry["status"])
	assert.EqualValues(t, 12, entry["body_size"])
	assert.EqualValues(t, 2, entry["attempt"])
	assert.Equal(t, true, entry["retry"])
	assert.Equal(t, "boom", entry["error"])
}

func TestSensitiveFieldsMaskedOnEvents(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	l.Info().Str("authorization", "Bearer abc").Interface("headers", map[string]string{"X-Api-Key": "k"}).Msg(testMessage)

	entry := decodeLine(t, buf)
	assert.Equal(t, DefaultMaskValue, entry["authorization"])
	assert.Equal(t, map[string]any{"X-Api-Key": DefaultMaskValue}, entry["headers"])
}

func TestLevelFiltering(t *testing.T) {
	l, buf := newBufferLogger(t, "warn")
	l.Info().Msg("dropped")
	l.Debug().Msg("dropped")
	assert.Zero(t, buf.Len())

	l.Warn().Msgf("kept %d", 1)
	entry := decodeLine(t, buf)
	assert.Equal(t, "kept 1", entry["message"])
}

func TestWithFields(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	l.WithFields(map[string]any{"component": "provider", "refresh_token": "r"}).Info().Msg(testMessage)

	entry := decodeLine(t, buf)
	assert.Equal(t, "provider", entry["component"])
	assert.Equal(t, DefaultMaskValue, entry["refresh_token"])
}

func TestWithContextAddsRequestID(t *testing.T) {
	l, buf := newBufferLogger(t, "info")

	ctx := trace.WithTraceID(context.Background(), "req-123")
	l.WithContext(ctx).Info().Msg(testMessage)
	assert.Equal(t, "req-123", decodeLine(t, buf)["request_id"])

	assert.Same(t, l, l.WithContext(context.Background()))
	assert.Same(t, l, l.WithContext("not a context"))
}

func TestNopDiscards(t *testing.T) {
	n := Nop()
	assert.NotPanics(t, func() {
		n.Error().Str("k", "v").Msg(testMessage)
		n.WithFields(map[string]any{"a": 1}).Warn().Msg(testMessage)
	})
}
