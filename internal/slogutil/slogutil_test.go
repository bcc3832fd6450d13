package slogutil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"Warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"nonsense", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := LevelFromString(tt.in); got != tt.want {
			t.Errorf("LevelFromString(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLevelFromVerbosity(t *testing.T) {
	if got := LevelFromVerbosity(0, false); got != slog.LevelWarn {
		t.Errorf("verbosity 0 = %v, want warn", got)
	}
	if got := LevelFromVerbosity(2, false); got != slog.LevelDebug {
		t.Errorf("verbosity 2 = %v, want debug", got)
	}
	if got := LevelFromVerbosity(2, true); got <= slog.LevelError {
		t.Errorf("quiet should suppress all levels, got %v", got)
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "json", "debug")
	logger.Info("hello", "key", "value")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("Expected JSON output, got %q: %v", buf.String(), err)
	}
	if record["msg"] != "hello" || record["key"] != "value" {
		t.Errorf("Unexpected record: %v", record)
	}
}

func TestNewLoggerHumanRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "human", "warn")
	logger.Info("dropped")
	logger.Warn("kept")
	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Error("Info record should be suppressed at warn level")
	}
	if !strings.Contains(out, "kept") {
		t.Error("Warn record missing from output")
	}
}
