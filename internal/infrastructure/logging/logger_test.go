package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/raunerlucas/app-gestao-projetos/internal/infrastructure/config"
)

func TestNew_Formats(t *testing.T) {
	for _, format := range []string{"json", "text", "JSON", "bogus", ""} {
		cfg := config.LoggingConfig{Level: "info", Format: format, Output: "stdout"}
		if logger := New(cfg, "1.0.0"); logger == nil {
			t.Errorf("New with format %q returned nil", format)
		}
	}
}

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
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestLogger_With(t *testing.T) {
	logger := Default()
	child := logger.With("component", "api")

	if child == nil {
		t.Fatal("With returned nil")
	}
	if child == logger {
		t.Error("With should return a distinct logger")
	}
}

func TestLogger_JSONOutputCarriesDefaultFields(t *testing.T) {
	var buf bytes.Buffer

	handler := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}).
		WithAttrs([]slog.Attr{
			slog.String("service", serviceName),
			slog.String("version", "test"),
		})
	logger := &Logger{Logger: slog.New(handler)}

	logger.Info("author created", "id", "aut-123")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}

	if entry["service"] != serviceName {
		t.Errorf("service = %v, want %q", entry["service"], serviceName)
	}
	if entry["version"] != "test" {
		t.Errorf("version = %v, want %q", entry["version"], "test")
	}
	if entry["msg"] != "author created" {
		t.Errorf("msg = %v, want %q", entry["msg"], "author created")
	}
	if entry["id"] != "aut-123" {
		t.Errorf("id = %v, want %q", entry["id"], "aut-123")
	}
}
