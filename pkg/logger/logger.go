// Package logger provides the leveled, printf-style logger shared by every repaircoord component
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a configuration string (debug, info, warn, error) into a Level
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// LoggerInterface is the subset of Logger that collaborators depend on
type LoggerInterface interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Logger writes leveled lines to one or more writers.
// Child loggers created with WithPrefix share the parent's writers and lock.
type Logger struct {
	level     Level
	writers   []io.Writer
	prefix    string
	timestamp bool
	mu        *sync.Mutex
}

// Config holds logger configuration
type Config struct {
	Level     Level
	LogFile   string
	Timestamp bool
	Prefix    string
}

// New creates a new logger with the given configuration
func New(config Config) (*Logger, error) {
	var writers []io.Writer

	// Keep test output clean; stdout is reserved for command results
	if !testing.Testing() {
		writers = append(writers, os.Stderr)
	}

	if config.LogFile != "" {
		logDir := filepath.Dir(config.LogFile)
		if err := os.MkdirAll(logDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}

		file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.LogFile, err)
		}
		writers = append(writers, file)
	}

	return &Logger{
		level:     config.Level,
		writers:   writers,
		prefix:    config.Prefix,
		timestamp: config.Timestamp,
		mu:        &sync.Mutex{},
	}, nil
}

// NewWithWriter creates a logger that writes only to w
func NewWithWriter(w io.Writer, level Level, prefix string) *Logger {
	return &Logger{
		level:   level,
		writers: []io.Writer{w},
		prefix:  prefix,
		mu:      &sync.Mutex{},
	}
}

// NewDefault creates a logger with default settings
func NewDefault() *Logger {
	logger, _ := New(Config{ //nolint:errcheck // no log file, cannot fail
		Level:     LevelInfo,
		Timestamp: true,
		Prefix:    "repaircoord",
	})
	return logger
}

// SetLevel sets the logging level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// GetLevel returns the active level
func (l *Logger) GetLevel() Level {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if level < l.level {
		return
	}

	parts := make([]string, 0, 4)
	if l.timestamp {
		parts = append(parts, time.Now().Format("2006-01-02 15:04:05"))
	}
	parts = append(parts, "["+level.String()+"]")
	if l.prefix != "" {
		parts = append(parts, "["+l.prefix+"]")
	}
	parts = append(parts, fmt.Sprintf(format, args...))

	line := strings.Join(parts, " ") + "\n"
	for _, w := range l.writers {
		_, _ = io.WriteString(w, line) //nolint:errcheck // logging output errors are not critical
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// WithPrefix creates a child logger with an additional prefix segment
func (l *Logger) WithPrefix(prefix string) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	child := &Logger{
		level:     l.level,
		writers:   l.writers,
		prefix:    prefix,
		timestamp: l.timestamp,
		mu:        l.mu,
	}
	if l.prefix != "" {
		child.prefix = l.prefix + ":" + prefix
	}
	return child
}

var (
	globalMu     sync.RWMutex
	globalLogger = NewDefault()
)

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetGlobalLogger replaces the global logger instance
func SetGlobalLogger(logger *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = logger
}

func Debug(format string, args ...interface{}) {
	GetLogger().Debug(format, args...)
}

func Info(format string, args ...interface{}) {
	GetLogger().Info(format, args...)
}

func Warn(format string, args ...interface{}) {
	GetLogger().Warn(format, args...)
}

func Error(format string, args ...interface{}) {
	GetLogger().Error(format, args...)
}
