// Package logging provides structured logging configuration using zerolog.
//
// Library packages log through the global logger (or a component logger from
// NewLogger); binaries call Setup once at startup.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"

	// LevelDisabled turns logging off, e.g. for CLI output meant for pipes.
	LevelDisabled LogLevel = "disabled"
)

// Levels returns the accepted level names.
func Levels() []LogLevel {
	return []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError, LevelDisabled}
}

// ParseLevel validates a level name from configuration. Matching is
// case-insensitive and "warning" is accepted for warn.
func ParseLevel(s string) (LogLevel, error) {
	lower := LogLevel(strings.ToLower(strings.TrimSpace(s)))
	if lower == "warning" {
		return LevelWarn, nil
	}
	for _, l := range Levels() {
		if l == lower {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	// Set global log level
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	// Configure output
	var output io.Writer = cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	// Create logger with timestamp
	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Outgoing inspection requests (url, attempt)
//   - Store reads and writes (run_id, report_id)
//   - Rate limit checks that pass
//
// Info: Normal operation events
//   - Inspected URLs (status_code, duration, run_id)
//   - Reports created
//   - Server startup/shutdown
//
// Warn: Conditions that don't prevent operation
//   - Retry attempts after network errors
//   - Ignored Cache-Status entries or parameters
//   - Rate limit blocks
//   - Undetermined served-by results
//
// Error: Conditions requiring attention
//   - Store unavailable
//   - Failed requests after all retries
//   - Configuration errors
//
// Context Fields:
//   - component: Emitting package (inspector, store, server, ...)
//   - url: Normalized URL being inspected
//   - run_id: Run identifier
//   - report_id: Report identifier
//   - status_code: HTTP status code
//   - duration: Request duration
//   - served_by: Resolved serving component
//   - error_class: Inspection error class (invalid_url, network, not_netlify)
