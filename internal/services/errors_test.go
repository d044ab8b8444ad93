package services_test

import (
	"errors"
	"strings"
	"testing"

	"coverforge/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrStageExecution, "separate", "pass1", "engine crashed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrStageExecution) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"separate", "pass1", "engine crashed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsMarker(t *testing.T) {
	err := services.Wrap(nil, "convert", "lead", "rvc exited", nil)
	if !errors.Is(err, services.ErrStageExecution) {
		t.Fatalf("expected default marker, got %v", err)
	}
}

func TestMessageSingleLine(t *testing.T) {
	err := errors.New("first line\nsecond line")
	if got := services.Message(err); got != "first line" {
		t.Fatalf("unexpected message: %q", got)
	}
	if got := services.Message(nil); got != "" {
		t.Fatalf("expected empty message for nil error, got %q", got)
	}
}
