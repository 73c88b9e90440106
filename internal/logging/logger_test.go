package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestLevelFromString(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := levelFromString(in).Level(); got != want {
			t.Fatalf("level %q: expected %v, got %v", in, want, got)
		}
	}
}

func TestNewLoggerToWritesServiceField(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "driver-api", "info")
	l.Debug("hidden")
	l.Info("ride_accepted", "ride_id", "1")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected exactly one json record, got %q: %v", buf.String(), err)
	}
	if rec["service"] != "driver-api" || rec["ride_id"] != "1" {
		t.Fatalf("unexpected record: %v", rec)
	}
}
