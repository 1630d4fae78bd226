package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want slog.Level
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "warning", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "unknown", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
	}

	for _, tc := range cases {
		got := parseLogLevel(tc.in)
		if got != tc.want {
			t.Fatalf("parseLogLevel(%q)=%v want=%v", tc.in, got, tc.want)
		}
	}
}

func TestNewLoggerFormats(t *testing.T) {
	t.Parallel()

	var jsonBuf bytes.Buffer
	newLogger(&jsonBuf, "info", "json").Info("session.cleanup.sweep", "deactivated", 3)

	var rec map[string]any
	if err := json.Unmarshal(jsonBuf.Bytes(), &rec); err != nil {
		t.Fatalf("json output not parseable: %v (%q)", err, jsonBuf.String())
	}
	if rec["msg"] != "session.cleanup.sweep" {
		t.Fatalf("msg=%v", rec["msg"])
	}
	if _, ok := rec["source"]; !ok {
		t.Fatalf("expected source attribute in %v", rec)
	}

	var textBuf bytes.Buffer
	newLogger(&textBuf, "info", "TEXT").Info("auth.login.success", "employee_id", "emp-1")
	if !strings.Contains(textBuf.String(), "msg=auth.login.success") {
		t.Fatalf("text output=%q", textBuf.String())
	}
}

func TestNewLoggerHonoursLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := newLogger(&buf, "warn", "json")
	log.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	log.Warn("kept")
	if !strings.Contains(buf.String(), "kept") {
		t.Fatalf("warn not logged: %q", buf.String())
	}
}
