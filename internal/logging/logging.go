// Package logging provides the tool's ambient diagnostics: a leveled
// stderr logger plus a structured Diagnostic slice that --format json
// surfaces inline instead of interleaving with the result payload on
// stdout.
package logging

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Level orders verbosity from least to most chatty.
type Level int

const (
	LevelSilent Level = iota
	LevelError
	LevelWarn
	LevelInfo
	LevelDebug
)

func levelFromEnv() Level {
	switch os.Getenv("SCOPETEST_LOG") {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "silent":
		return LevelSilent
	default:
		return LevelWarn
	}
}

// Diagnostic is one logged event, retained for --format json's diagnostics
// array in addition to being written to stderr immediately.
type Diagnostic struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Logger writes to stderr at or below its configured level and retains
// every message for later inclusion in a JSON result envelope. It is safe
// for concurrent use: the parallel build stages log per-file diagnostics.
type Logger struct {
	level Level

	mu          sync.Mutex
	diagnostics []Diagnostic
}

// New builds a Logger at the level named by SCOPETEST_LOG (default warn).
func New() *Logger {
	return &Logger{level: levelFromEnv()}
}

func (l *Logger) log(level Level, name, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	l.mu.Lock()
	l.diagnostics = append(l.diagnostics, Diagnostic{Level: name, Message: msg})
	l.mu.Unlock()
	if level > l.level {
		return
	}
	fmt.Fprintf(os.Stderr, "%s [%s] %s\n", time.Now().UTC().Format(time.RFC3339), name, msg)
}

func (l *Logger) Errorf(format string, args ...any) { l.log(LevelError, "error", format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.log(LevelWarn, "warn", format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.log(LevelInfo, "info", format, args...) }
func (l *Logger) Debugf(format string, args ...any) { l.log(LevelDebug, "debug", format, args...) }

// Diagnostics returns a copy of every message logged so far, in order.
func (l *Logger) Diagnostics() []Diagnostic {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Diagnostic(nil), l.diagnostics...)
}
