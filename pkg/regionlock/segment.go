package regionlock

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// SegmentDir is the directory segments and their companion lock files
// live in. /dev/shm keeps them off persistent storage, so stale
// segments never survive a reboot.
var SegmentDir = "/dev/shm"

// segment owns the memory-mapped bytes backing a Table plus the
// companion file used as the cross-process mutex. Cgo-free Go has no
// equivalent of a PTHREAD_PROCESS_SHARED mutex that can be placed in
// mmap'd memory, so an advisory lock (flock) held on a separate,
// always-present companion file provides the cross-process mutual
// exclusion instead. As a side benefit, the kernel drops a flock when
// its holder exits, so a crashed process can never leave the table
// mutex held forever. See coordinator.go for the blocking wait/signal
// policy built on top.
type segment struct {
	name     string
	dataPath string
	lockPath string

	dataFile *os.File
	lockFile *os.File
	data     []byte
	table    *Table
}

func segmentName(dev, ino uint64) string {
	return fmt.Sprintf("f_%d_%d", dev, ino)
}

func lockFileName(dev, ino uint64) string {
	return fmt.Sprintf("s_%d_%d", dev, ino)
}

// openSegment creates-or-attaches the shared segment for the file
// identified by (dev, ino). Creation is serialized by an exclusive flock
// on the companion lock file (opened, created if absent): the process
// that exclusively creates the data file initializes the table; any
// other process simply attaches.
func openSegment(dev, ino uint64) (*segment, bool, error) {
	name := segmentName(dev, ino)
	lname := lockFileName(dev, ino)
	dataPath := filepath.Join(SegmentDir, name)
	lockPath := filepath.Join(SegmentDir, lname)

	lockFile, err := os.OpenFile(lockPath, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, false, newError(SystemFailure, "open companion lock file", err)
	}

	if err := unix.Flock(int(lockFile.Fd()), unix.LOCK_EX); err != nil {
		lockFile.Close()
		return nil, false, newError(SystemFailure, "acquire creation lock", err)
	}
	defer unix.Flock(int(lockFile.Fd()), unix.LOCK_UN)

	created := false
	dataFile, err := os.OpenFile(dataPath, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		if !os.IsExist(err) {
			lockFile.Close()
			return nil, false, newError(SystemFailure, "create shared segment", err)
		}
		dataFile, err = os.OpenFile(dataPath, os.O_RDWR, 0o600)
		if err != nil {
			lockFile.Close()
			return nil, false, newError(SystemFailure, "open existing shared segment", err)
		}
	} else {
		created = true
	}

	if created {
		if err := dataFile.Truncate(int64(tableSize)); err != nil {
			dataFile.Close()
			os.Remove(dataPath)
			lockFile.Close()
			return nil, false, newError(SystemFailure, "size shared segment", err)
		}
	}

	data, err := unix.Mmap(int(dataFile.Fd()), 0, tableSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		dataFile.Close()
		if created {
			os.Remove(dataPath)
		}
		lockFile.Close()
		return nil, false, newError(SystemFailure, "mmap shared segment", err)
	}

	table := tableFromBytes(data)
	if created {
		table.initialize()
	} else if !table.valid() {
		unix.Munmap(data)
		dataFile.Close()
		lockFile.Close()
		return nil, false, newError(SystemFailure, "attached segment failed validity check", nil)
	}

	s := &segment{
		name:     name,
		dataPath: dataPath,
		lockPath: lockPath,
		dataFile: dataFile,
		lockFile: lockFile,
		data:     data,
		table:    table,
	}
	return s, created, nil
}

// lockMutex acquires the external mutual-exclusion substitute for this
// segment's table. Held for the duration of any table read or mutation.
func (s *segment) lockMutex() error {
	if err := unix.Flock(int(s.lockFile.Fd()), unix.LOCK_EX); err != nil {
		return newError(SystemFailure, "acquire table mutex", err)
	}
	return nil
}

// unlockMutex releases the mutex acquired by lockMutex.
func (s *segment) unlockMutex() error {
	if err := unix.Flock(int(s.lockFile.Fd()), unix.LOCK_UN); err != nil {
		return newError(SystemFailure, "release table mutex", err)
	}
	return nil
}

// destroy unmaps the segment and unlinks both backing files. Called by
// the last handle to detach, once RefCount has reached zero.
func (s *segment) destroy() error {
	if err := s.sync(); err != nil {
		return err
	}
	if err := unix.Munmap(s.data); err != nil {
		return newError(SystemFailure, "munmap shared segment", err)
	}
	s.dataFile.Close()
	s.lockFile.Close()
	if err := os.Remove(s.dataPath); err != nil && !os.IsNotExist(err) {
		return newError(SystemFailure, "unlink shared segment", err)
	}
	if err := os.Remove(s.lockPath); err != nil && !os.IsNotExist(err) {
		return newError(SystemFailure, "unlink companion lock file", err)
	}
	return nil
}

// closeMapping unmaps and closes this process's view of the segment
// without unlinking the backing files, used when other processes are
// still attached to it.
func (s *segment) closeMapping() error {
	if err := unix.Munmap(s.data); err != nil {
		return newError(SystemFailure, "munmap shared segment", err)
	}
	s.dataFile.Close()
	s.lockFile.Close()
	return nil
}

// sync flushes the mapped pages, used defensively before a destructive
// operation such as destroy on platforms that do not guarantee mmap
// writes are visible to a subsequent stat/read without it.
func (s *segment) sync() error {
	return unix.Msync(s.data, unix.MS_SYNC)
}
