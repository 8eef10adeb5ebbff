// logger/logger.go
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel maps "debug", "info", "warn" and "error" onto a LogLevel, defaulting to INFO
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

type Logger struct {
	slog   *slog.Logger
	level  *slog.LevelVar
	file   *os.File
	sentry atomic.Bool
}

var (
	defaultLogger *Logger
	once          sync.Once
	mu            sync.Mutex
)

func newLogger(w io.Writer, file *os.File) *Logger {
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	h := slog.NewTextHandler(w, &slog.HandlerOptions{AddSource: true, Level: level})
	return &Logger{slog: slog.New(h), level: level, file: file}
}

// ensureInitialized creates a default console logger if one doesn't exist
func ensureInitialized() {
	once.Do(func() {
		mu.Lock()
		defer mu.Unlock()
		if defaultLogger == nil {
			defaultLogger = newLogger(os.Stdout, nil)
		}
	})
}

func current() *Logger {
	ensureInitialized()
	mu.Lock()
	defer mu.Unlock()
	return defaultLogger
}

// Init initializes the logger with optional file and console output
// If filename is empty, logs only to console
// If console is false, logs only to file
func Init(filename string, console bool) error {
	once.Do(func() {})
	mu.Lock()
	defer mu.Unlock()

	var sentryOn bool
	if defaultLogger != nil {
		sentryOn = defaultLogger.sentry.Load()
		if defaultLogger.file != nil {
			defaultLogger.file.Close()
		}
	}

	var writers []io.Writer
	var file *os.File
	if filename != "" {
		f, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writers = append(writers, f)
	}
	if console {
		writers = append(writers, os.Stdout)
	}
	if len(writers) == 0 {
		return fmt.Errorf("no output destination specified")
	}

	defaultLogger = newLogger(io.MultiWriter(writers...), file)
	defaultLogger.sentry.Store(sentryOn)
	return nil
}

// SetOutput points the logger at an arbitrary writer. Tests use it to capture output.
func SetOutput(w io.Writer) {
	once.Do(func() {})
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = newLogger(w, nil)
}

// SetLevel sets the minimum log level (DEBUG, INFO, WARN, ERROR)
func SetLevel(level LogLevel) {
	l := current()
	l.level.Set(level.slogLevel())
}

// EnableSentry forwards ERROR entries to Sentry. sentry.Init must already have run.
func EnableSentry(enabled bool) {
	current().sentry.Store(enabled)
}

// Close closes the log file if one is open
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if defaultLogger != nil && defaultLogger.file != nil {
		defaultLogger.file.Close()
		defaultLogger.file = nil
	}
}

func (l *Logger) output(level LogLevel, msg string, args ...any) {
	lvl := level.slogLevel()
	if !l.slog.Enabled(context.Background(), lvl) {
		return
	}

	// skip runtime.Callers, output and the exported wrapper
	var pcs [1]uintptr
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), lvl, msg, pcs[0])
	r.Add(args...)
	_ = l.slog.Handler().Handle(context.Background(), r)

	if level == ERROR && l.sentry.Load() {
		sentry.CaptureMessage(msg)
	}
}

// Debug logs a debug message
func Debug(v ...interface{}) {
	current().output(DEBUG, fmt.Sprint(v...))
}

// Debugf logs a formatted debug message
func Debugf(format string, v ...interface{}) {
	current().output(DEBUG, fmt.Sprintf(format, v...))
}

// Debugw logs a debug message with structured key/value pairs
func Debugw(msg string, kv ...any) {
	current().output(DEBUG, msg, kv...)
}

// Info logs an info message
func Info(v ...interface{}) {
	current().output(INFO, fmt.Sprint(v...))
}

// Infof logs a formatted info message
func Infof(format string, v ...interface{}) {
	current().output(INFO, fmt.Sprintf(format, v...))
}

// Infow logs a message with structured key/value pairs
func Infow(msg string, kv ...any) {
	current().output(INFO, msg, kv...)
}

// Warn logs a warning message
func Warn(v ...interface{}) {
	current().output(WARN, fmt.Sprint(v...))
}

// Warnf logs a formatted warning message
func Warnf(format string, v ...interface{}) {
	current().output(WARN, fmt.Sprintf(format, v...))
}

// Error logs an error message
func Error(v ...interface{}) {
	current().output(ERROR, fmt.Sprint(v...))
}

// Errorf logs a formatted error message
func Errorf(format string, v ...interface{}) {
	current().output(ERROR, fmt.Sprintf(format, v...))
}

// Errorw logs an error with structured key/value pairs
func Errorw(msg string, kv ...any) {
	current().output(ERROR, msg, kv...)
}

// Fatal logs an error message and exits the program
func Fatal(v ...interface{}) {
	current().output(ERROR, fmt.Sprint(v...))
	sentry.Flush(2 * time.Second)
	os.Exit(1)
}

// Fatalf logs a formatted error message and exits the program
func Fatalf(format string, v ...interface{}) {
	current().output(ERROR, fmt.Sprintf(format, v...))
	sentry.Flush(2 * time.Second)
	os.Exit(1)
}
