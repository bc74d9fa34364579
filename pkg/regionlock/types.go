package regionlock

// Capacity constants. Documented and stable across every process that
// shares a segment: all participants must agree, since they are baked
// into the segment's fixed-size layout (table.go).
const (
	MaxLocks  = 10
	MaxOwners = 20
)

// Sentinel values for LockRecord.Next / LockTable.Head.
const (
	sentinelLast = -1 // terminates an active chain
	sentinelFree = -2 // marks an unused slot
)

// LockType distinguishes a read (shared) lock from a write (exclusive) one.
type LockType int32

const (
	LockRead LockType = iota
	LockWrite
)

func (t LockType) String() string {
	if t == LockWrite {
		return "WRITE"
	}
	return "READ"
}

// Whence selects the reference point a LockSpec's Start is relative to,
// mirroring fcntl's SEEK_SET/SEEK_CUR/SEEK_END.
type Whence int

const (
	WhenceBegin Whence = iota
	WhenceCurrent
	WhenceEnd
)

// Mode selects blocking behaviour, mirroring F_SETLK vs F_SETLKW.
type Mode int

const (
	// ModeNonBlocking returns WouldBlock immediately on conflict.
	ModeNonBlocking Mode = iota
	// ModeBlocking suspends the caller until the region is compatible.
	ModeBlocking
)

// Op identifies the kind of mutation a LockSpec requests.
type Op int

const (
	OpRead Op = iota
	OpWrite
	OpUnlock
)

// LockSpec is the caller-supplied, unnormalized lock request, mirroring
// the fields of a POSIX struct flock.
type LockSpec struct {
	Op     Op
	Whence Whence
	Start  int64
	Len    int64
}

// Region is a normalized half-open byte interval [Start, Start+Length).
// Length is always > 0 once normalized; see Normalize.
type Region struct {
	Start  int64
	Length int64
}

// End returns the exclusive upper bound of the region.
func (r Region) End() int64 {
	return r.Start + r.Length
}

// Owner is the unit of lock ownership: a (pid, descriptor) pair.
// Two descriptors opened by the same process are independent owners.
type Owner struct {
	PID        int32
	Descriptor int32
}
