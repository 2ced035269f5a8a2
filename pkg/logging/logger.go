// Package logging provides structured logging configuration using zerolog.
package logging

import (
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
)

// Component names used in the "component" field.
const (
	ComponentClient     = "lims-client"
	ComponentHarvester  = "harvester"
	ComponentDispatcher = "dispatcher"
	ComponentCache      = "cache"
	ComponentProxy      = "lims-proxy"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// Service, when set, is attached to every entry as "service".
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger. Loggers created with
// NewLogger afterwards inherit it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// Valid reports whether l is one of the known levels ("warning" included).
func (l LogLevel) Valid() bool {
	switch strings.ToLower(string(l)) {
	case "debug", "info", "warn", "warning", "error":
		return true
	}
	return false
}

// parseLevel converts LogLevel to zerolog.Level. Unknown levels map to info.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
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
// Debug: per-request detail
//   - Cache hit/miss per uri
//   - Each harvested page, each batch retrieve
//   - Worker start/stop in the dispatcher
//
// Info: one line per completed operation
//   - Harvest complete (pages, fragments, duration)
//   - Files downloaded
//   - Proxy startup/shutdown
//
// Warn: the call fails or degrades
//   - Non-2xx LIMS responses
//   - Fetch group cancelled after a failure
//   - Cache read/write errors (the request still goes to the LIMS)
//   - Query parameters dropped on a batch retrieve
//
// Error: network failures and startup errors
//
// Context Fields:
//   - component: see the Component constants
//   - uri / method: request target
//   - status: HTTP status code
//   - error_class: client, server, network, unexpected
//   - family: resource family of a batch retrieve
//   - pages / fragments / duration: harvest results
