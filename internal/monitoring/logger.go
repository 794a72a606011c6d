// Package monitoring - logger.go configures the global zerolog logger.
//
// DESIGN: Every package logs through github.com/rs/zerolog/log. SetupLogger
// is called once from main. "auto" format picks a console writer on a TTY
// and JSON lines otherwise so container logs stay machine-readable.
package monitoring

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"
)

// SetupLogger installs the global logger. The returned closer releases a
// log file when Output is a path; it is a no-op otherwise.
func SetupLogger(cfg LoggerConfig) (io.Closer, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out, closer, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}

	var w io.Writer = out
	if useConsole(cfg.Format, out) {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return closer, nil
}

func parseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return zerolog.InfoLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	}
	return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", s)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openOutput(output string) (*os.File, io.Closer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nopCloser{}, nil
	case "stderr":
		return os.Stderr, nopCloser{}, nil
	}
	// #nosec G304 -- log path comes from operator config
	f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}
	return f, f, nil
}

func useConsole(format string, f *os.File) bool {
	switch format {
	case "console":
		return true
	case "json":
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
