package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"coverforge/internal/services"
)

func TestConsoleHandlerRendersComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	NewComponentLogger(logger, "pipeline").Info("stage started",
		String(FieldStage, "separate_pass1"),
		Int("attempt", 1),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO pipeline: stage started") {
		t.Fatalf("unexpected line: %q", line)
	}
	if !strings.Contains(line, "stage=separate_pass1") || !strings.Contains(line, "attempt=1") {
		t.Fatalf("missing attrs in line: %q", line)
	}
}

func TestJSONHandlerLowersLevelKey(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl))
	logger.Warn("cleanup skipped", String("reason", "file gone"))

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("invalid json output: %v", err)
	}
	if payload["level"] != "warn" {
		t.Fatalf("unexpected level: %v", payload["level"])
	}
	if payload["msg"] != "cleanup skipped" {
		t.Fatalf("unexpected msg: %v", payload["msg"])
	}
}

func TestWithContextAddsRunFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl))

	ctx := services.WithRunID(context.Background(), "a1b2c3d4e5f")
	ctx = WithStage(ctx, "mix")
	WithContext(ctx, logger).Info("ok")

	line := buf.String()
	if !strings.Contains(line, "run_id=a1b2c3d4e5f") || !strings.Contains(line, "stage=mix") {
		t.Fatalf("missing context fields: %q", line)
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "pretty-xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
