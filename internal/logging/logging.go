// Package logging builds the zerolog loggers used by the yaan commands.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Options selects the level and destination of a logger.
type Options struct {
	Level string
	// File, when set, receives JSON lines. It takes precedence over Writer.
	File string
	// Writer receives human-readable console output when File is empty.
	Writer io.Writer
	// NoColor disables ANSI colors on the console writer.
	NoColor bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger and a closer for its destination. With neither File nor
// Writer set the logger discards everything; the TUI owns the terminal and
// only logs when given a file.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	level, ok := ParseLevel(opts.Level)
	if !ok {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("unknown log level %q", opts.Level)
	}

	switch {
	case opts.File != "":
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), nopCloser{}, fmt.Errorf("open log file: %w", err)
		}
		return zerolog.New(f).Level(level).With().Timestamp().Logger(), f, nil

	case opts.Writer != nil:
		cw := zerolog.ConsoleWriter{
			Out:        opts.Writer,
			NoColor:    opts.NoColor,
			TimeFormat: time.DateTime,
		}
		return zerolog.New(cw).Level(level).With().Timestamp().Logger(), nopCloser{}, nil

	default:
		return zerolog.Nop(), nopCloser{}, nil
	}
}

// ParseLevel maps a level name to a zerolog level. The empty string means info.
func ParseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return zerolog.InfoLevel, true
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "off", "none", "disabled":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}
