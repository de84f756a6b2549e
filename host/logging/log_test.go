package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		in       string
		expected slog.Level
		wantErr  bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{" warning ", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tc := range testCases {
		got, err := ParseLevel(tc.in)
		if (err != nil) != tc.wantErr || got != tc.expected {
			t.Errorf("ParseLevel(%q) = %v, %v", tc.in, got, err)
		}
	}
}

func TestComponentAttribute(t *testing.T) {
	prev := logger()
	prevLevel := GetLogLevel()
	defer func() {
		SetLogger(prev)
		SetLogLevel(prevLevel)
	}()

	var buf bytes.Buffer
	SetLogFormat(&buf, LogFormatJSON)
	SetLogLevel(slog.LevelDebug)

	LogInfo(ComponentRadio, "transition", "from", "Sleep", "to", "Idle")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not JSON: %v: %s", err, buf.String())
	}
	if rec["component"] != "radio" || rec["msg"] != "transition" || rec["to"] != "Idle" {
		t.Errorf("record = %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	prev := logger()
	prevLevel := GetLogLevel()
	defer func() {
		SetLogger(prev)
		SetLogLevel(prevLevel)
	}()

	var buf bytes.Buffer
	SetLogFormat(&buf, LogFormatText)
	SetLogLevel(slog.LevelWarn)

	LogDebug(ComponentBridge, "hidden")
	DebugWriter(ComponentBridge)("also hidden")
	LogWarn(ComponentBridge, "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Errorf("unexpected output %q", out)
	}
}
