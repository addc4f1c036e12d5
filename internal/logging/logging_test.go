package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestJSONLogger(t *testing.T) {
	t.Setenv("DEBUG", "")
	t.Setenv("PRETTY", "")
	var buf bytes.Buffer
	log, err := NewLogger(Config{Level: "info", Format: "json", Out: &buf})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Debug().Msg("hidden")
	log.Info().Str("scan", "abc").Msg("bound")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1: %q", len(lines), buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["message"] != "bound" || m["scan"] != "abc" {
		t.Fatalf("unexpected entry: %v", m)
	}
	if _, ok := m["time"]; !ok {
		t.Fatalf("missing time field: %v", m)
	}
	if c, _ := m["caller"].(string); !strings.Contains(c, "logging_test.go") {
		t.Fatalf("caller = %q", c)
	}
}

func TestDebugEnvOverridesLevel(t *testing.T) {
	t.Setenv("DEBUG", "1")
	t.Setenv("PRETTY", "")
	var buf bytes.Buffer
	log, err := NewLogger(Config{Level: "warn", Out: &buf})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Debug().Msg("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Fatalf("debug entry missing: %q", buf.String())
	}
}

func TestConsoleFormat(t *testing.T) {
	t.Setenv("DEBUG", "")
	t.Setenv("PRETTY", "")
	var buf bytes.Buffer
	log, err := NewLogger(Config{Format: "console", Out: &buf})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	log.Info().Msg("hello")
	if strings.HasPrefix(strings.TrimSpace(buf.String()), "{") {
		t.Fatalf("console output looks like json: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("message missing: %q", buf.String())
	}
}

func TestBadLevel(t *testing.T) {
	if _, err := NewLogger(Config{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
