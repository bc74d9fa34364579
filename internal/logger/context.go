package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context for a single lock
// operation as it crosses the core's call boundary.
type LogContext struct {
	TraceID     string    // correlation id for a chain of related calls
	SpanID      string    // id for this specific call within the trace
	ClientOp    string    // attach, detach, request, duplicate, inherit_on_fork
	SegmentName string    // shared segment name (/f_<dev>_<ino>)
	PID         int       // calling process id
	Descriptor  int       // owner descriptor component
	StartTime   time.Time // for duration calculation
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a call originating from pid.
func NewLogContext(pid int) *LogContext {
	return &LogContext{
		PID:       pid,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	return &LogContext{
		TraceID:     lc.TraceID,
		SpanID:      lc.SpanID,
		ClientOp:    lc.ClientOp,
		SegmentName: lc.SegmentName,
		PID:         lc.PID,
		Descriptor:  lc.Descriptor,
		StartTime:   lc.StartTime,
	}
}

// WithOp returns a copy with the client operation set
func (lc *LogContext) WithOp(op string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ClientOp = op
	}
	return clone
}

// WithSegment returns a copy with the segment name set
func (lc *LogContext) WithSegment(name string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.SegmentName = name
	}
	return clone
}

// WithOwner returns a copy with pid/descriptor set
func (lc *LogContext) WithOwner(pid, descriptor int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.PID = pid
		clone.Descriptor = descriptor
	}
	return clone
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
