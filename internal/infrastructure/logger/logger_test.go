package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"unknown", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.input); got != tt.want {
			t.Fatalf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Format: "json", Level: "info", Service: "ledgerd"})
	log.Info().Str("entry_number", "JE/2025/0001").Msg("entry posted")
	log.Debug().Msg("dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line at info level, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("expected json output: %v", err)
	}
	if rec["service"] != "ledgerd" || rec["entry_number"] != "JE/2025/0001" || rec["message"] != "entry posted" {
		t.Errorf("unexpected record %v", rec)
	}
}

func TestNewConsole(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf, Format: "console", Level: "debug"})
	log.Debug().Msg("hello")

	if out := buf.String(); strings.HasPrefix(out, "{") || !strings.Contains(out, "hello") {
		t.Fatalf("expected console output, got %q", out)
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf})
	ctx := log.WithContext(context.Background())

	zerolog.Ctx(ctx).Warn().Msg("from context")

	if !strings.Contains(buf.String(), "from context") {
		t.Fatalf("expected the context logger to write, got %q", buf.String())
	}
}
