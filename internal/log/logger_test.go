package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLoggerComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: "api",
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	logger.InfoContext(context.Background(), "hello", "key", "value")

	out := buf.String()
	if !strings.Contains(out, "component=api") {
		t.Errorf("output missing component tag: %s", out)
	}
	if !strings.Contains(out, "key=value") {
		t.Errorf("output missing attribute: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: "app",
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	sub := logger.WithComponent("worker")
	if sub.Component() != "worker" {
		t.Errorf("Component() = %q, want worker", sub.Component())
	}
}
