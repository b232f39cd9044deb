package logger

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNew_LevelFiltering(t *testing.T) {
	t.Setenv("SUBBURN_ENV", "")
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %s", buf.String())
	}
	l.Warn().Msg("shown")
	if buf.Len() == 0 {
		t.Fatal("warn not logged")
	}
}

func TestNew_UnknownLevelIsInfo(t *testing.T) {
	t.Setenv("SUBBURN_ENV", "")
	var buf bytes.Buffer
	l := New(&buf, "chatty")

	l.Debug().Msg("hidden")
	l.Info().Msg("shown")
	if got := bytes.Count(buf.Bytes(), []byte("\n")); got != 1 {
		t.Fatalf("lines = %d, want 1: %s", got, buf.String())
	}
}

func TestComponent(t *testing.T) {
	t.Setenv("SUBBURN_ENV", "")
	var buf bytes.Buffer
	l := Component(New(&buf, "info"), "daemon")
	l.Info().Msg("up")

	var ev map[string]any
	if err := json.Unmarshal(buf.Bytes(), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev["component"] != "daemon" || ev["message"] != "up" {
		t.Errorf("event = %v", ev)
	}
}
