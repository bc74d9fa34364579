package logger

import (
	"log/slog"
)

// Standard field keys for structured logging across the region-lock core.
// Use these keys consistently across all log statements for log aggregation
// and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // correlation id for a chain of related calls
	KeySpanID  = "span_id"  // id for this specific call within the trace

	// ========================================================================
	// Call Identification
	// ========================================================================
	KeyClientOp    = "client_op"    // attach, detach, request, duplicate, inherit_on_fork
	KeySegmentName = "segment_name" // shared segment name (/f_<dev>_<ino>)
	KeyPID         = "pid"          // calling process id
	KeyDescriptor  = "descriptor"   // owner descriptor component
	KeyDevice      = "device"       // underlying file device number
	KeyInode       = "inode"        // underlying file inode number

	// ========================================================================
	// Lock Records
	// ========================================================================
	KeyLockType    = "lock_type"    // read, write
	KeyStart       = "start"        // region start offset
	KeyLength      = "length"       // region length
	KeyOwnerCount  = "owner_count"  // number of owners on a record
	KeyTableHead   = "table_head"   // index of the table's head slot
	KeyBlockedCnt  = "blocked_count"
	KeyRefCount    = "ref_count"
	KeySweptOwners = "swept_owners" // owners removed by the liveness sweeper

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // operation duration in milliseconds
	KeyError      = "error"       // error message
	KeyErrorKind  = "error_kind"  // error taxonomy (CapacityExceeded, WouldBlock, ...)
)

// ============================================================================
// Field constructors for type safety
// ============================================================================

// TraceID returns a slog.Attr for the trace id
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for the span id
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ClientOp returns a slog.Attr for the external operation name
func ClientOp(op string) slog.Attr {
	return slog.String(KeyClientOp, op)
}

// SegmentName returns a slog.Attr for a shared segment name
func SegmentName(name string) slog.Attr {
	return slog.String(KeySegmentName, name)
}

// PID returns a slog.Attr for a process id
func PID(pid int) slog.Attr {
	return slog.Int(KeyPID, pid)
}

// Descriptor returns a slog.Attr for an owner descriptor
func Descriptor(fd int) slog.Attr {
	return slog.Int(KeyDescriptor, fd)
}

// Device returns a slog.Attr for a device number
func Device(dev uint64) slog.Attr {
	return slog.Uint64(KeyDevice, dev)
}

// Inode returns a slog.Attr for an inode number
func Inode(ino uint64) slog.Attr {
	return slog.Uint64(KeyInode, ino)
}

// LockType returns a slog.Attr for a lock record's type
func LockType(t string) slog.Attr {
	return slog.String(KeyLockType, t)
}

// Start returns a slog.Attr for a region's start offset
func Start(off int64) slog.Attr {
	return slog.Int64(KeyStart, off)
}

// Length returns a slog.Attr for a region's length
func Length(length int64) slog.Attr {
	return slog.Int64(KeyLength, length)
}

// OwnerCount returns a slog.Attr for a record's owner count
func OwnerCount(n int) slog.Attr {
	return slog.Int(KeyOwnerCount, n)
}

// TableHead returns a slog.Attr for the table's head index
func TableHead(idx int) slog.Attr {
	return slog.Int(KeyTableHead, idx)
}

// BlockedCount returns a slog.Attr for the number of sleeping waiters
func BlockedCount(n int) slog.Attr {
	return slog.Int(KeyBlockedCnt, n)
}

// RefCount returns a slog.Attr for a segment's reference count
func RefCount(n int) slog.Attr {
	return slog.Int(KeyRefCount, n)
}

// SweptOwners returns a slog.Attr for the number of owners the sweeper removed
func SweptOwners(n int) slog.Attr {
	return slog.Int(KeySweptOwners, n)
}

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// ErrorKind returns a slog.Attr for the error taxonomy kind
func ErrorKind(kind string) slog.Attr {
	return slog.String(KeyErrorKind, kind)
}
