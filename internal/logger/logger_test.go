package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	testCases := []struct {
		raw  string
		want zerolog.Level
	}{
		{raw: "", want: zerolog.InfoLevel},
		{raw: "DEBUG", want: zerolog.DebugLevel},
		{raw: " warning ", want: zerolog.WarnLevel},
		{raw: "off", want: zerolog.Disabled},
		{raw: "nonsense", want: zerolog.InfoLevel},
	}

	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			if got := ParseLevel(tc.raw); got != tc.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tc.raw, got, tc.want)
			}
		})
	}
}

func TestInitWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "azathoth.log")
	if err := Init(Options{File: path, Level: "info"}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() {
		Close()
		Log = zerolog.Nop()
	})

	Log.Info().Str("cell", "[1, 2, 3]").Msg("reached")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), `"message":"reached"`) || !strings.Contains(string(data), `"cell":"[1, 2, 3]"`) {
		t.Errorf("log file is missing the structured entry:\n%s", data)
	}
}
