package regionlock

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// withTestSegmentDir points SegmentDir at a fresh temporary directory for
// the duration of one test, so concurrent test runs never collide over
// /dev/shm and every segment this test creates is cleaned up afterwards.
func withTestSegmentDir(t *testing.T) {
	t.Helper()
	prev := SegmentDir
	SegmentDir = t.TempDir()
	t.Cleanup(func() { SegmentDir = prev })
}

func newLockedFile(t *testing.T) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "regionlock-*.dat")
	require.NoError(t, err)
	require.NoError(t, f.Truncate(4096))
	path := f.Name()
	require.NoError(t, f.Close())
	return path
}

func TestAttachDetachRoundTrip(t *testing.T) {
	withTestSegmentDir(t)
	require := require.New(t)
	path := newLockedFile(t)

	h, err := Attach(path)
	require.NoError(err)
	require.NotNil(h)

	entries, err := os.ReadDir(SegmentDir)
	require.NoError(err)
	require.NotEmpty(entries, "attach should create a segment and its companion lock file")

	require.NoError(Detach(h))

	entries, err = os.ReadDir(SegmentDir)
	require.NoError(err)
	require.Empty(entries, "the last detach should unlink the segment and its companion file")
}

func TestSingleReadSingleWriterConflict(t *testing.T) {
	withTestSegmentDir(t)
	require := require.New(t)
	path := newLockedFile(t)

	h1, err := Attach(path)
	require.NoError(err)
	defer Detach(h1)
	h2, err := Attach(path)
	require.NoError(err)
	defer Detach(h2)

	require.NoError(Request(h1, ModeNonBlocking, LockSpec{Op: OpRead, Start: 0, Len: 100}, 0, 4096))

	err = Request(h2, ModeNonBlocking, LockSpec{Op: OpWrite, Start: 50, Len: 30}, 0, 4096)
	require.True(IsWouldBlock(err), "an overlapping write from a second owner must not block non-blocking")

	require.NoError(Request(h1, ModeNonBlocking, LockSpec{Op: OpUnlock, Start: 0, Len: 100}, 0, 4096))

	require.NoError(Request(h2, ModeNonBlocking, LockSpec{Op: OpWrite, Start: 50, Len: 30}, 0, 4096))
}

func TestCoalescingAcrossTwoRequests(t *testing.T) {
	withTestSegmentDir(t)
	require := require.New(t)
	path := newLockedFile(t)

	h, err := Attach(path)
	require.NoError(err)
	defer Detach(h)

	require.NoError(Request(h, ModeNonBlocking, LockSpec{Op: OpRead, Start: 0, Len: 100}, 0, 4096))
	require.NoError(Request(h, ModeNonBlocking, LockSpec{Op: OpRead, Start: 100, Len: 100}, 0, 4096))

	recs := recordsOwnedBy(h.file.seg.table, h.owner())
	require.Len(recs, 1)
	require.Equal(Region{Start: 0, Length: 200}, recs[0])
}

func TestSplitOnUnlockThroughRequest(t *testing.T) {
	withTestSegmentDir(t)
	require := require.New(t)
	path := newLockedFile(t)

	h, err := Attach(path)
	require.NoError(err)
	defer Detach(h)

	require.NoError(Request(h, ModeNonBlocking, LockSpec{Op: OpWrite, Start: 0, Len: 1000}, 0, 4096))
	require.NoError(Request(h, ModeNonBlocking, LockSpec{Op: OpUnlock, Start: 200, Len: 200}, 0, 4096))

	recs := recordsOwnedBy(h.file.seg.table, h.owner())
	require.ElementsMatch([]Region{
		{Start: 0, Length: 200},
		{Start: 400, Length: 600},
	}, recs)
}

func TestDuplicateSharesOwnership(t *testing.T) {
	withTestSegmentDir(t)
	require := require.New(t)
	path := newLockedFile(t)

	h, err := Attach(path)
	require.NoError(err)
	defer Detach(h)

	require.NoError(Request(h, ModeNonBlocking, LockSpec{Op: OpRead, Start: 0, Len: 100}, 0, 4096))

	dup, err := Duplicate(h)
	require.NoError(err)
	require.NotEqual(h.Descriptor, dup.Descriptor)

	recs := recordsOwnedBy(h.file.seg.table, dup.owner())
	require.Len(recs, 1, "duplicate should become a co-owner of every record h holds")

	require.NoError(Detach(dup))
	// h's own ownership must survive the duplicate's detach.
	recs = recordsOwnedBy(h.file.seg.table, h.owner())
	require.Len(recs, 1)

	require.NoError(Detach(h))
}

func TestInheritOnForkAddsChildAsCoOwner(t *testing.T) {
	withTestSegmentDir(t)
	require := require.New(t)
	path := newLockedFile(t)

	h, err := Attach(path)
	require.NoError(err)
	defer Detach(h)

	require.NoError(Request(h, ModeNonBlocking, LockSpec{Op: OpRead, Start: 0, Len: 100}, 0, 4096))

	childPID := currentPID() + 1
	require.NoError(InheritOnFork(childPID))

	childOwner := Owner{PID: childPID, Descriptor: h.Descriptor}
	require.True(h.file.seg.table.Slots[h.file.seg.table.Head].hasOwner(childOwner),
		"the child pid should appear as a co-owner of the parent's record immediately after inherit")

	// The parent's own ownership is untouched.
	require.True(h.file.seg.table.Slots[h.file.seg.table.Head].hasOwner(h.owner()))
}

func TestDeadOwnerReclaimedBySweep(t *testing.T) {
	withTestSegmentDir(t)
	require := require.New(t)
	path := newLockedFile(t)

	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("could not run a throwaway child process: %v", err)
	}
	deadPID := int32(cmd.Process.Pid)

	h1, err := Attach(path)
	require.NoError(err)
	defer Detach(h1)

	// Splice in a lock owned by a pid that has already exited, simulating
	// a process that crashed without ever calling Detach.
	require.NoError(withMutex(h1.file.seg, func() error {
		_, err := h1.file.seg.table.insert(Region{0, 100}, LockWrite, Owner{PID: deadPID, Descriptor: 7})
		return err
	}))

	h2, err := Attach(path)
	require.NoError(err)
	defer Detach(h2)

	// Any request by a survivor sweeps dead owners before consulting the
	// oracle, so this should succeed against what is now an empty table.
	require.NoError(Request(h2, ModeNonBlocking, LockSpec{Op: OpWrite, Start: 0, Len: 100}, 0, 4096))
}

func TestBlockingWakeOnUnlock(t *testing.T) {
	withTestSegmentDir(t)
	require := require.New(t)
	path := newLockedFile(t)

	h1, err := Attach(path)
	require.NoError(err)
	defer Detach(h1)
	h2, err := Attach(path)
	require.NoError(err)
	defer Detach(h2)

	require.NoError(Request(h1, ModeNonBlocking, LockSpec{Op: OpWrite, Start: 0, Len: 800}, 0, 4096))

	done := make(chan error, 1)
	go func() {
		done <- Request(h2, ModeBlocking, LockSpec{Op: OpWrite, Start: 200, Len: 200}, 0, 4096)
	}()

	// Give the blocking waiter time to register itself before unlocking.
	time.Sleep(50 * time.Millisecond)
	require.NoError(Request(h1, ModeNonBlocking, LockSpec{Op: OpUnlock, Start: 200, Len: 200}, 0, 4096))

	select {
	case err := <-done:
		require.NoError(err, "the blocked waiter should wake and acquire once the conflicting region is freed")
	case <-time.After(5 * time.Second):
		t.Fatal("blocked request never woke up after the conflicting region was released")
	}

	// The release zeroed the sleeper count and the waiter acquired
	// without re-registering, so no ghost sleepers remain.
	require.NoError(withMutex(h1.file.seg, func() error {
		require.Zero(h1.file.seg.table.BlockedCount)
		return nil
	}))
}

func TestDetachedHandleIsRejected(t *testing.T) {
	withTestSegmentDir(t)
	require := require.New(t)
	path := newLockedFile(t)

	h, err := Attach(path)
	require.NoError(err)
	require.NoError(Detach(h))

	err = Detach(h)
	require.True(IsInvalidHandle(err), "a second detach must fail with InvalidHandle, got %v", err)

	err = Request(h, ModeNonBlocking, LockSpec{Op: OpRead, Start: 0, Len: 10}, 0, 4096)
	require.True(IsInvalidHandle(err))

	_, err = Duplicate(h)
	require.True(IsInvalidHandle(err))

	_, err = Inspect(h)
	require.True(IsInvalidHandle(err))

	var nilHandle *Handle
	require.True(IsInvalidHandle(Detach(nilHandle)))
}

func TestRequestRejectsUnknownOperation(t *testing.T) {
	withTestSegmentDir(t)
	require := require.New(t)
	path := newLockedFile(t)

	h, err := Attach(path)
	require.NoError(err)
	defer Detach(h)

	err = Request(h, ModeNonBlocking, LockSpec{Op: Op(42), Start: 0, Len: 10}, 0, 4096)
	var rlErr *Error
	require.ErrorAs(err, &rlErr)
	require.Equal(InvalidArgument, rlErr.Kind)
}

func TestAttachRejectsMissingFile(t *testing.T) {
	withTestSegmentDir(t)
	_, err := Attach(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}
