package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"DEBUG":   zerolog.DebugLevel,
		"info":    zerolog.InfoLevel,
		"warn":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"bogus":   zerolog.InfoLevel,
	}

	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerFiltersLevel(t *testing.T) {
	var a, b bytes.Buffer
	log := newLogger("warn", &a, &b)

	log.Info().Msg("hidden")
	log.Warn().Msg("shown")

	for _, out := range []string{a.String(), b.String()} {
		if strings.Contains(out, "hidden") {
			t.Errorf("info message should be filtered: %s", out)
		}
		if !strings.Contains(out, "shown") {
			t.Errorf("warn message missing: %s", out)
		}
	}
}
