// Package logging wraps log/slog with file rotation and a package-wide
// "component" tag, so every package in the read pipeline (catalog, cypher,
// planner, analyzer, cte, render, backend, httpapi, bolt, discovery) can
// call logging.Component(name) once at construction and log through the
// same sink the rest of the process uses, without threading a *Logger
// value through every constructor by hand.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// LogLevel is the severity of a log message.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

// Config holds logger configuration.
type Config struct {
	Level      LogLevel
	OutputFile string // path to log file; empty = stdout only
	MaxSize    int64  // max size in bytes before rotation (default: 10MB)
	MaxBackups int    // number of old log files to keep (default: 3)
	JSONFormat bool   // structured JSON instead of slog's text handler
	AddSource  bool   // attach source file:line to every record
}

// Logger wraps slog.Logger with file rotation and the Fatal/Close
// lifecycle the rest of the codebase expects from its one logging sink.
type Logger struct {
	slog      *slog.Logger
	config    Config
	file      *os.File
	mu        sync.Mutex
	debugMode bool
}

var (
	globalLogger *Logger
	once         sync.Once
)

// Initialize creates the process-wide logger. Must be called once before
// any package calls Component; a second call is a no-op.
func Initialize(config Config) error {
	var initErr error
	once.Do(func() {
		logger, err := NewLogger(config)
		if err != nil {
			initErr = fmt.Errorf("failed to initialize logger: %w", err)
			return
		}
		globalLogger = logger
	})
	return initErr
}

// NewLogger builds a standalone logger from config, independent of the
// process-wide Initialize/Component pair — used directly by tests that
// want their own sink rather than sharing the global one.
func NewLogger(config Config) (*Logger, error) {
	if config.MaxSize == 0 {
		config.MaxSize = 10 * 1024 * 1024
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 3
	}

	logger := &Logger{
		config:    config,
		debugMode: config.Level == DEBUG,
	}

	writers := []io.Writer{os.Stdout}
	if config.OutputFile != "" {
		dir := filepath.Dir(config.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
		if err := logger.rotateIfNeeded(); err != nil {
			return nil, fmt.Errorf("failed to rotate logs: %w", err)
		}
		file, err := os.OpenFile(config.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.OutputFile, err)
		}
		logger.file = file
		writers = append(writers, file)
	}

	opts := &slog.HandlerOptions{
		Level:     logger.toSlogLevel(config.Level),
		AddSource: config.AddSource,
	}
	var handler slog.Handler
	if config.JSONFormat {
		handler = slog.NewJSONHandler(io.MultiWriter(writers...), opts)
	} else {
		handler = slog.NewTextHandler(io.MultiWriter(writers...), opts)
	}
	logger.slog = slog.New(handler)
	return logger, nil
}

// rotateIfNeeded renames the current log file to .1 (shifting existing
// backups up by one) once it has crossed MaxSize, keeping at most
// MaxBackups old files around.
func (l *Logger) rotateIfNeeded() error {
	if l.config.OutputFile == "" {
		return nil
	}
	info, err := os.Stat(l.config.OutputFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	if info.Size() < l.config.MaxSize {
		return nil
	}

	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	for i := l.config.MaxBackups - 1; i >= 1; i-- {
		oldPath := fmt.Sprintf("%s.%d", l.config.OutputFile, i)
		newPath := fmt.Sprintf("%s.%d", l.config.OutputFile, i+1)
		if _, err := os.Stat(oldPath); err == nil {
			os.Rename(oldPath, newPath)
		}
	}
	backupPath := fmt.Sprintf("%s.1", l.config.OutputFile)
	if err := os.Rename(l.config.OutputFile, backupPath); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return nil
}

func (l *Logger) toSlogLevel(level LogLevel) slog.Level {
	switch level {
	case DEBUG:
		return slog.LevelDebug
	case INFO:
		return slog.LevelInfo
	case WARN:
		return slog.LevelWarn
	case ERROR, FATAL:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Fatal logs at error level, flushes the log file, then exits the process.
func (l *Logger) Fatal(msg string, args ...any) {
	l.slog.Error(msg, args...)
	l.Close()
	os.Exit(1)
}

// With returns a logger carrying additional structured fields on every
// subsequent call — the mechanism Component builds on to attach a fixed
// "component" field.
func (l *Logger) With(args ...any) *Logger {
	newLogger := *l
	newLogger.slog = l.slog.With(args...)
	return &newLogger
}

// Close closes the log file, if one is open.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// Component returns a logger scoped to one pipeline component, tagging
// every record it emits with "component"=name. Every constructor across
// the read pipeline calls this once rather than threading a *Logger value
// through by hand. Falls back to slog.Default() if Initialize was never
// called, so packages constructed outside of cmd/ (tests, one-off tools)
// still get a usable logger instead of a nil one.
func Component(name string) *Logger {
	if globalLogger != nil {
		return globalLogger.With("component", name)
	}
	return &Logger{slog: slog.Default().With("component", name)}
}

// Close closes the process-wide logger's file, if Initialize opened one.
func Close() error {
	if globalLogger != nil {
		return globalLogger.Close()
	}
	return nil
}
