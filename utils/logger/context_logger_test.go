package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestContextLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	cl := NewContextLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithUserID(ctx, "user-456")
	ctx = WithOperation(ctx, "POST /auth/login")

	cl.WithContext(ctx).Info("test message")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "user-456", entry["user_id"])
	assert.Equal(t, "POST /auth/login", entry["operation"])
	assert.Equal(t, "test message", entry["msg"])
}

func TestContextLogger_WithContext_NoKeys(t *testing.T) {
	base := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	cl := NewContextLogger(base)

	assert.Same(t, base, cl.WithContext(context.Background()))
}

func TestContextLogger_LogDuration(t *testing.T) {
	var buf bytes.Buffer
	cl := NewContextLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	cl.LogDuration(WithRequestID(context.Background(), "req-1"), "current_user", 1500*time.Millisecond)

	entry := decodeLine(t, &buf)
	assert.Equal(t, "operation completed", entry["msg"])
	assert.Equal(t, "current_user", entry["operation"])
	assert.Equal(t, float64(1500), entry["duration_ms"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestContextLogger_LogError(t *testing.T) {
	var buf bytes.Buffer
	cl := NewContextLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	cl.LogError(context.Background(), "end_session", errors.New("boom"))

	entry := decodeLine(t, &buf)
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "operation failed", entry["msg"])
	assert.Equal(t, "boom", entry["error"])
}

func TestContextAttrs_IgnoresEmptyValues(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	ctx = WithUserID(ctx, "u1")

	attrs := contextAttrs(ctx)

	require.Len(t, attrs, 1)
	assert.Equal(t, "user_id", attrs[0].Key)
	assert.Equal(t, "u1", attrs[0].Value.String())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.in))
		})
	}
}

func TestInit(t *testing.T) {
	saved := slog.Default()
	t.Cleanup(func() { slog.SetDefault(saved) })

	var buf bytes.Buffer
	l := Init(Options{Level: "warn", Output: &buf})

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	slog.WarnContext(WithRequestID(context.Background(), "req-9"), "kept")
	entry := decodeLine(t, &buf)
	assert.Equal(t, "kept", entry["msg"])
	assert.Equal(t, "req-9", entry["request_id"])
}
