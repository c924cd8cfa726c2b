package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", Document(ctx))
	assert.Equal(t, "", RequestID(ctx))
	assert.Equal(t, "", Tool(ctx))

	ctx = WithDocument(ctx, "BP_Hero")
	ctx = WithRequestID(ctx, "req-1")
	ctx = WithTool(ctx, "create_node_by_action_name")

	assert.Equal(t, "BP_Hero", Document(ctx))
	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "create_node_by_action_name", Tool(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithRequestID(WithDocument(context.Background(), "BP_Door"), "req-9")
	LogWith(ctx, logger).Info("test message")

	output := buf.String()
	assert.Contains(t, output, "document=BP_Door")
	assert.Contains(t, output, "request_id=req-9")
	assert.NotContains(t, output, "tool=")
	assert.Contains(t, output, "test message")
}

func TestLogWithEmptyContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	LogWith(context.Background(), logger).Info("no context")

	output := buf.String()
	assert.NotContains(t, output, "document")
	assert.NotContains(t, output, "request_id")
	assert.Contains(t, output, "no context")
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner))

	ctx := WithTool(WithRequestID(WithDocument(context.Background(), "BP_A"), "r-2"), "get_node_pin_info")
	logger.InfoContext(ctx, "auto inject")

	output := buf.String()
	assert.Contains(t, output, `"document":"BP_A"`)
	assert.Contains(t, output, `"request_id":"r-2"`)
	assert.Contains(t, output, `"tool":"get_node_pin_info"`)
}

func TestCorrelationHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	handler := NewCorrelationHandler(inner)
	logger := slog.New(handler.WithAttrs([]slog.Attr{slog.String("component", "resolver")}))

	logger.InfoContext(WithDocument(context.Background(), "BP_B"), "with attrs")

	output := buf.String()
	assert.Contains(t, output, `"document":"BP_B"`)
	assert.Contains(t, output, `"component":"resolver"`)
}

func TestCorrelationHandlerWithGroup(t *testing.T) {
	var buf bytes.Buffer
	inner := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	logger := slog.New(NewCorrelationHandler(inner).WithGroup("synth"))

	logger.InfoContext(WithDocument(context.Background(), "BP_C"), "grouped", "key", "val")

	output := buf.String()
	assert.Contains(t, output, "BP_C")
	assert.Contains(t, output, "grouped")
}

func TestNewRenamesErrorKey(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelDebug)

	logger.Error("boom", slog.String("error", errors.New("bad").Error()))

	assert.Contains(t, buf.String(), "err=bad")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
