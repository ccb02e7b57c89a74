package logx

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestParseEnvironment(t *testing.T) {
	cases := map[string]Environment{
		"production":  Production,
		" Production": Production,
		"testing":     Testing,
		"":            Development,
		"staging":     Development,
	}
	for in, want := range cases {
		if got := ParseEnvironment(in); got != want {
			t.Fatalf("ParseEnvironment(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestInitProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Environment: Production, Output: &buf})
	defer Init(Options{Environment: Testing})

	Debug().Msg("hidden")
	Info().Str("tool", "web_search").Msg("dispatched")

	var line map[string]interface{}
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if line["tool"] != "web_search" || line["message"] != "dispatched" {
		t.Fatalf("unexpected log line: %v", line)
	}
}

func TestInitHonorsLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Environment: Production, Level: "warn", Output: &buf})
	defer Init(Options{Environment: Testing})

	Info().Msg("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}
}
