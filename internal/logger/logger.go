// Package logger provides structured logging for processes embedding
// the regionlock core, built on log/slog: a terminal-friendly text
// handler for humans and a JSON handler for machine consumption. Lock
// operations carry a LogContext through context.Context so every line
// logged on behalf of a request names the owner (pid, descriptor) and
// segment it acted on.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Config selects the log level, output format, and destination.
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or a file path
}

var (
	// levelVar is shared by every handler this package builds, so
	// SetLevel takes effect without swapping handlers.
	levelVar slog.LevelVar

	mu       sync.RWMutex
	out      io.Writer = os.Stdout
	useColor bool
	jsonFmt  bool
	slogger  *slog.Logger
)

func init() {
	useColor = isTerminal(os.Stdout.Fd())
	slogger = build()
}

// build constructs a logger for the current output and format. Callers
// hold mu (init runs before any concurrent use).
func build() *slog.Logger {
	if jsonFmt {
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: &levelVar}))
	}
	return slog.New(newTextHandler(out, &levelVar, useColor))
}

// Init configures the package-level logger. Output may be "stdout",
// "stderr", or a file path, which is opened in append mode.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	switch strings.ToLower(cfg.Output) {
	case "", "stdout":
		out = os.Stdout
		useColor = isTerminal(os.Stdout.Fd())
	case "stderr":
		out = os.Stderr
		useColor = isTerminal(os.Stderr.Fd())
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file %q: %w", cfg.Output, err)
		}
		out = f
		useColor = false
	}

	if cfg.Level != "" {
		if l, ok := parseLevel(cfg.Level); ok {
			levelVar.Set(l)
		}
	}
	if f := strings.ToLower(cfg.Format); f == "text" || f == "json" {
		jsonFmt = f == "json"
	}

	slogger = build()
	return nil
}

// InitWithWriter points the logger at an arbitrary writer, used by
// tests to capture output.
func InitWithWriter(w io.Writer, level, format string, color bool) {
	mu.Lock()
	defer mu.Unlock()

	out = w
	useColor = color
	if l, ok := parseLevel(level); ok {
		levelVar.Set(l)
	}
	if f := strings.ToLower(format); f == "text" || f == "json" {
		jsonFmt = f == "json"
	}
	slogger = build()
}

func parseLevel(level string) (slog.Level, bool) {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug, true
	case "INFO":
		return slog.LevelInfo, true
	case "WARN":
		return slog.LevelWarn, true
	case "ERROR":
		return slog.LevelError, true
	}
	return 0, false
}

// SetLevel adjusts the minimum level in place, without rebuilding any
// handler. Unknown levels are ignored so a bad config reload cannot
// silence a running process.
func SetLevel(level string) {
	if l, ok := parseLevel(level); ok {
		levelVar.Set(l)
	}
}

// SetFormat switches between text and json output. Unknown formats
// are ignored.
func SetFormat(format string) {
	f := strings.ToLower(format)
	if f != "text" && f != "json" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	jsonFmt = f == "json"
	slogger = build()
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at debug level: Debug("msg", "key", value, ...) or with
// the typed constructors in fields.go.
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs at info level.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs at warn level.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs at error level.
func Error(msg string, args ...any) { get().Error(msg, args...) }

// DebugCtx logs at debug level, prefixing the fields carried by ctx's
// LogContext (trace id, operation, owner pid/descriptor, segment).
func DebugCtx(ctx context.Context, msg string, args ...any) {
	get().Debug(msg, withContextFields(ctx, args)...)
}

// InfoCtx logs at info level with ctx's LogContext fields.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	get().Info(msg, withContextFields(ctx, args)...)
}

// WarnCtx logs at warn level with ctx's LogContext fields.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	get().Warn(msg, withContextFields(ctx, args)...)
}

// ErrorCtx logs at error level with ctx's LogContext fields.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	get().Error(msg, withContextFields(ctx, args)...)
}

// withContextFields prepends the LogContext fields so they lead every
// line and the caller's own fields follow.
func withContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	ctxArgs := make([]any, 0, 12+len(args))
	if lc.TraceID != "" {
		ctxArgs = append(ctxArgs, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		ctxArgs = append(ctxArgs, KeySpanID, lc.SpanID)
	}
	if lc.ClientOp != "" {
		ctxArgs = append(ctxArgs, KeyClientOp, lc.ClientOp)
	}
	if lc.SegmentName != "" {
		ctxArgs = append(ctxArgs, KeySegmentName, lc.SegmentName)
	}
	if lc.PID != 0 {
		ctxArgs = append(ctxArgs, KeyPID, lc.PID)
	}
	if lc.Descriptor != 0 {
		ctxArgs = append(ctxArgs, KeyDescriptor, lc.Descriptor)
	}
	return append(ctxArgs, args...)
}
