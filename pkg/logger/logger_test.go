package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func withBufferLogger(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	l, err := New(Config{Level: level, Format: "json", Output: "stdout"}, &buf)
	require.NoError(t, err)

	prev := globalLogger
	globalLogger = l
	t.Cleanup(func() { globalLogger = prev })
	return &buf
}

func TestInfoInjectsContextIDs(t *testing.T) {
	buf := withBufferLogger(t, "info")

	ctx := context.WithValue(context.Background(), TraceIDKey, "trace-1")
	ctx = context.WithValue(ctx, SpanIDKey, "span-1")
	ctx = context.WithValue(ctx, RequestIDKey, "req-1")
	Info(ctx, "priced", "symbol", "AAPL")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "priced", line["msg"])
	assert.Equal(t, "AAPL", line["symbol"])
	assert.Equal(t, "trace-1", line["trace_id"])
	assert.Equal(t, "span-1", line["span_id"])
	assert.Equal(t, "req-1", line["request_id"])
}

func TestOtelSpanContextWins(t *testing.T) {
	buf := withBufferLogger(t, "info")

	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})

	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = context.WithValue(ctx, TraceIDKey, "ignored")
	Warn(ctx, "slow")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", line["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", line["span_id"])
}

func TestLevelFiltering(t *testing.T) {
	buf := withBufferLogger(t, "warn")

	Info(context.Background(), "dropped")
	assert.Zero(t, buf.Len())

	Error(context.Background(), "kept")
	assert.Contains(t, buf.String(), "kept")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewFileOutputCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pricing.log")
	l, err := New(Config{Output: "file", FilePath: path, MaxSize: 1, Format: "text"}, &bytes.Buffer{})
	require.NoError(t, err)
	l.Info("hello")
	assert.DirExists(t, filepath.Dir(path))
}
