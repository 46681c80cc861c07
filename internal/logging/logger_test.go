package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromContext_AddsRunID(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	SetupWriter(&buf, "info", "json")

	ctx := WithRunID(context.Background(), "run-123")
	WithFields(ctx, "table", "users").Info("user data loaded", "inserted", 2)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if entry["run_id"] != "run-123" {
		t.Errorf("run_id = %v, want %q", entry["run_id"], "run-123")
	}
	if entry["table"] != "users" {
		t.Errorf("table = %v, want %q", entry["table"], "users")
	}
	if entry["msg"] != "user data loaded" {
		t.Errorf("msg = %v, want %q", entry["msg"], "user data loaded")
	}
}

func TestFromContext_NoRunID(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	SetupWriter(&buf, "info", "text")

	FromContext(context.Background()).Info("hello")

	if strings.Contains(buf.String(), "run_id") {
		t.Errorf("unexpected run_id in %q", buf.String())
	}
}

func TestSetupWriter_LevelFilters(t *testing.T) {
	prev := slog.Default()
	defer slog.SetDefault(prev)

	var buf bytes.Buffer
	SetupWriter(&buf, "warn", "text")

	slog.Info("dropped")
	slog.Warn("kept")

	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Errorf("info entry written at warn level: %q", out)
	}
	if !strings.Contains(out, "kept") {
		t.Errorf("warn entry missing: %q", out)
	}
}
