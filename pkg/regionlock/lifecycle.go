package regionlock

import (
	"os"
	"time"
)

// Handle is the external unit of ownership returned by Attach: a
// descriptor paired with the shared segment backing the underlying
// file's lock table. Two handles obtained from separate Attach calls
// on the same file hold independent claims; Duplicate and
// DuplicateTo produce handles that share ownership instead.
type Handle struct {
	Descriptor int32
	PID        int32
	file       *sharedFile
}

// owner returns the (pid, descriptor) pair this handle uses as its
// identity in the lock table.
func (h *Handle) owner() Owner {
	return Owner{PID: h.PID, Descriptor: h.Descriptor}
}

func currentPID() int32 {
	return int32(os.Getpid())
}

// usable reports whether h can still reach its segment. A nil handle or
// one that has already been detached fails every operation with
// InvalidHandle rather than dereferencing a stale mapping.
func (h *Handle) usable() bool {
	return h != nil && h.file != nil
}

// Attach opens (creating if necessary) the shared segment for the
// file at path and returns a new handle with a freshly allocated
// descriptor and no locks held.
func Attach(path string) (*Handle, error) {
	var st syscallStat
	if err := stat(path, &st); err != nil {
		return nil, newError(SystemFailure, "stat underlying file", err)
	}

	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	if len(defaultRegistry.bySegment) >= maxOpenFiles {
		if _, exists := defaultRegistry.bySegment[segmentName(st.dev, st.ino)]; !exists {
			return nil, newError(CapacityExceeded, "process-local open file registry is full", nil)
		}
	}

	sf, err := defaultRegistry.openSharedFile(st.dev, st.ino)
	if err != nil {
		return nil, err
	}

	pid := currentPID()
	h := defaultRegistry.allocDescriptor(pid, func(d int32) *Handle {
		return &Handle{Descriptor: d, PID: pid, file: sf}
	})
	return h, nil
}

// Detach closes h: any locks it still holds are released as if by an
// UNLOCK spanning the whole address space, then the underlying
// segment's reference count is decremented. The last detach on a
// segment unlinks it.
func Detach(h *Handle) error {
	if !h.usable() {
		return newError(InvalidHandle, "handle is nil or already detached", nil)
	}

	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	err := withMutex(h.file.seg, func() error {
		h.file.seg.table.sweep()
		full := Region{Start: 0, Length: 1<<62 - 1}
		if relErr := h.file.seg.table.release(full, h.owner()); relErr != nil {
			return relErr
		}
		h.file.seg.table.BlockedCount = 0
		updateBlockedGauge(h.file.seg)
		return nil
	})
	if err != nil {
		return err
	}

	delete(defaultRegistry.handles, h.Descriptor)
	sf := h.file
	h.file = nil
	return defaultRegistry.closeSharedFile(sf)
}

// Duplicate returns a new handle sharing h's SharedFile and all of
// h's currently held locks, with a descriptor chosen by the registry.
// Every existing record owned by h gains the new handle as a
// co-owner.
func Duplicate(h *Handle) (*Handle, error) {
	return duplicateInto(h, -1)
}

// DuplicateTo behaves like Duplicate but assigns the specific
// descriptor newfd, as dup2 would. If newfd already names a handle in
// this process, that handle is first detached.
func DuplicateTo(h *Handle, newfd int32) (*Handle, error) {
	return duplicateInto(h, newfd)
}

func duplicateInto(h *Handle, newfd int32) (*Handle, error) {
	if !h.usable() {
		return nil, newError(InvalidHandle, "handle is nil or already detached", nil)
	}

	defaultRegistry.mu.Lock()
	if existing, ok := defaultRegistry.handles[newfd]; ok && newfd >= 0 {
		defaultRegistry.mu.Unlock()
		if err := Detach(existing); err != nil {
			return nil, err
		}
		defaultRegistry.mu.Lock()
	}
	defer defaultRegistry.mu.Unlock()

	h.file.localRefs++

	pid := h.PID
	var nh *Handle
	if newfd >= 0 {
		nh = &Handle{Descriptor: newfd, PID: pid, file: h.file}
		defaultRegistry.handles[newfd] = nh
		if newfd >= defaultRegistry.nextDescriptor {
			defaultRegistry.nextDescriptor = newfd + 1
		}
	} else {
		nh = defaultRegistry.allocDescriptor(pid, func(d int32) *Handle {
			return &Handle{Descriptor: d, PID: pid, file: h.file}
		})
	}

	err := withMutex(h.file.seg, func() error {
		var addErr error
		h.file.seg.table.walk(func(idx int) bool {
			s := &h.file.seg.table.Slots[idx]
			if s.hasOwner(h.owner()) {
				if e := s.addOwner(nh.owner()); e != nil {
					addErr = e
					return false
				}
			}
			return true
		})
		if addErr == nil {
			h.file.seg.table.RefCount++
		}
		return addErr
	})
	return nh, err
}

// InheritOnFork records that the OS-level fork just returned childPID
// in the child. It duplicates every owner entry (PID, d) held by the
// calling process to (childPID, d) across every currently attached
// segment, the same way a real fork duplicates file descriptor table
// entries and their associated lock ownership.
func InheritOnFork(childPID int32) error {
	parentPID := currentPID()
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()

	for _, sf := range defaultRegistry.bySegment {
		err := withMutex(sf.seg, func() error {
			var addErr error
			sf.seg.table.walk(func(idx int) bool {
				s := &sf.seg.table.Slots[idx]
				for i := int32(0); i < s.OwnerCount; i++ {
					if s.Owners[i].PID != parentPID {
						continue
					}
					child := Owner{PID: childPID, Descriptor: s.Owners[i].Descriptor}
					if e := s.addOwner(child); e != nil {
						addErr = e
						return false
					}
				}
				return true
			})
			if addErr == nil {
				sf.seg.table.RefCount++
			}
			return addErr
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Request applies spec to h's segment, normalizing start/len against
// curPos and fileSize. mode selects blocking (SETLKW) or non-blocking
// (SETLK) behaviour for READ/WRITE; UNLOCK always succeeds against
// h's own intersecting records regardless of mode.
func Request(h *Handle, mode Mode, spec LockSpec, curPos, fileSize int64) error {
	if !h.usable() {
		return newError(InvalidHandle, "handle is nil or already detached", nil)
	}
	start := time.Now()
	err := requestLock(h.file.seg, spec, mode, h.owner(), curPos, fileSize)
	observeRequest(spec.Op, time.Since(start).Seconds(), err)
	return err
}
