// Package logger builds the service zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/magnetodb/magneto/config"
	"github.com/rs/zerolog"
)

// Configure creates a logger writing to stdout. Unknown or empty levels fall
// back to info; a disabled logger discards everything.
func Configure(cfg config.Logging) zerolog.Logger {
	return New(os.Stdout, cfg)
}

// New creates a logger writing to out
func New(out io.Writer, cfg config.Logging) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	output := out

	switch {
	case !cfg.Enabled:
		output = io.Discard
	case cfg.Format == "console":
		output = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: true}
	}

	return zerolog.New(output).
		Level(level).
		With().
		Timestamp().
		Str("service", "magnetodb").
		Logger()
}
