package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"trace", zerolog.TraceLevel},
		{"  DEBUG  ", zerolog.DebugLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, c := range cases {
		if got := parseLogLevel(c.in); got != c.want {
			t.Errorf("parseLogLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestInitWithOptionsWritesLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	log, err := InitWithOptions(path, false)
	if err != nil {
		t.Fatalf("InitWithOptions: %v", err)
	}
	log.Info().Msg("hello")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected log output in file")
	}
}

func TestInitWithOptionsBadPath(t *testing.T) {
	_, err := InitWithOptions(filepath.Join(t.TempDir(), "missing-dir", "app.log"), false)
	if err == nil {
		t.Fatal("expected error for unwritable log path")
	}
}
