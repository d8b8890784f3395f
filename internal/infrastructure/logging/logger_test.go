package logging

import (
	"log/slog"
	"testing"

	"github.com/gridwatch/gridwatch-core/internal/infrastructure/config"
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
		{"nonsense", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNew_DoesNotPanic(t *testing.T) {
	for _, format := range []string{"json", "text", "unknown"} {
		log := New(config.LoggingConfig{Level: "debug", Format: format, Output: "stderr"}, "test")
		if log == nil {
			t.Fatalf("New() returned nil for format %q", format)
		}
		log.Debug("test message", "format", format)
	}
}

func TestWith_AddsAttributes(t *testing.T) {
	log := Default().With("component", "test")
	if log == nil {
		t.Fatal("With() returned nil")
	}
	log.Info("attributed message")
}
