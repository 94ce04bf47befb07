// Package log provides the structured logging facade used across the
// training pipeline.
//
// It wraps rs/zerolog behind a minimal surface so every package logs through
// a single, consistently configured logger: console output on stderr, one
// process-wide level, and field chaining via With. Warnings raised through
// pkg/errors are routed here at init time to avoid a circular import.
package log

import (
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu     sync.RWMutex
	logger = newConsoleLogger(zerolog.InfoLevel)
)

func newConsoleLogger(level zerolog.Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Setup configures the process-wide logger at the given level.
// Unknown level strings fall back to "info".
func Setup(level string) {
	mu.Lock()
	defer mu.Unlock()
	logger = newConsoleLogger(toLevel(level))
}

func toLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// L returns the process-wide logger.
func L() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// With returns a logger carrying a component field, the convention used by
// every package in this module.
func With(component string) zerolog.Logger {
	return L().With().Str("component", component).Logger()
}

// SetLogger replaces the process-wide logger. Tests use this to capture
// output.
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	defer mu.Unlock()
	logger = l
}
