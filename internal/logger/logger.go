package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Log is the process-wide logger. It discards everything until Init runs.
var Log = zerolog.Nop()

type Options struct {
	File    string
	Level   string
	Console bool
}

var logFile *os.File

func Init(opts Options) error {
	var writers []io.Writer
	if opts.File != "" {
		file, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
		if err != nil {
			return err
		}
		logFile = file
		writers = append(writers, file)
	}
	if opts.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	Log = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Str("app", "azathoth").Logger()
	Log.Info().Msg("Logger initialized.")
	return nil
}

func Close() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

func ParseLevel(raw string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "off", "disabled", "none":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
