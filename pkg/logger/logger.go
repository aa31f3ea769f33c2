// Package logger is the process-wide structured log. It is safe to
// reconfigure while handlers, the broadcast job and the HTTP server log
// concurrently.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

type LogLevel int32

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	current      atomic.Pointer[slog.Logger]
	currentLevel atomic.Int32

	// sinkMu guards the open log file across Configure and Close.
	sinkMu  sync.Mutex
	logFile *os.File
	format  = FormatText
)

func init() {
	currentLevel.Store(int32(INFO))
	current.Store(newLogger(os.Stdout, FormatText, INFO))
}

type Options struct {
	Level string
	// File, when set, receives a copy of everything written to stdout.
	File string
	// Format is "text" (default) or "json".
	Format string
}

// Configure replaces the logger. Invalid values fall back to INFO and text
// output; every problem found is returned joined.
func Configure(opts Options) error {
	var errs []error

	level := Level()
	if strings.TrimSpace(opts.Level) != "" {
		parsed, err := ParseLogLevel(opts.Level)
		if err != nil {
			errs = append(errs, err)
		}
		level = parsed
	}

	sinkMu.Lock()
	defer sinkMu.Unlock()

	if strings.TrimSpace(opts.Format) != "" {
		parsed, err := parseFormat(opts.Format)
		if err != nil {
			errs = append(errs, err)
		}
		format = parsed
	}

	writer := io.Writer(os.Stdout)
	if path := strings.TrimSpace(opts.File); path != "" {
		file, err := openLogFile(path)
		if err != nil {
			errs = append(errs, err)
		} else {
			closeLogFile()
			logFile = file
			writer = io.MultiWriter(os.Stdout, file)
		}
	} else {
		closeLogFile()
	}

	currentLevel.Store(int32(level))
	current.Store(newLogger(writer, format, level))
	return errors.Join(errs...)
}

// Close detaches and closes the log file, if any. Logging continues on
// stdout.
func Close() error {
	sinkMu.Lock()
	defer sinkMu.Unlock()
	if logFile == nil {
		return nil
	}
	current.Store(newLogger(os.Stdout, format, Level()))
	err := logFile.Close()
	logFile = nil
	return err
}

func closeLogFile() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return file, nil
}

func newLogger(w io.Writer, format string, level LogLevel) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(level)}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// L returns the current logger for callers that need slog directly.
func L() *slog.Logger {
	return current.Load()
}

// SetLogger installs l as is. Tests use it to capture output.
func SetLogger(l *slog.Logger) {
	current.Store(l)
}

func SetLogLevel(level LogLevel) {
	currentLevel.Store(int32(level))
}

func Level() LogLevel {
	return LogLevel(currentLevel.Load())
}

// Enabled reports whether messages at level pass the current filter.
func Enabled(level LogLevel) bool {
	return Level() <= level
}

func ParseLogLevel(value string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return DEBUG, nil
	case "info":
		return INFO, nil
	case "warn", "warning":
		return WARN, nil
	case "error":
		return ERROR, nil
	default:
		return INFO, fmt.Errorf("invalid log level %q", value)
	}
}

func parseFormat(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case FormatText:
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return FormatText, fmt.Errorf("invalid log format %q", value)
	}
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
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

// Log writes msg at level with the request context attached.
func Log(ctx context.Context, level LogLevel, msg string, args ...any) {
	if Enabled(level) {
		current.Load().Log(ctx, slogLevel(level), msg, args...)
	}
}

func Debug(msg string, args ...any) {
	Log(context.Background(), DEBUG, msg, args...)
}

func Info(msg string, args ...any) {
	Log(context.Background(), INFO, msg, args...)
}

func Warn(msg string, args ...any) {
	Log(context.Background(), WARN, msg, args...)
}

func Error(msg string, args ...any) {
	Log(context.Background(), ERROR, msg, args...)
}
