package regionlock

import (
	"os"
	"os/exec"
	"testing"
)

func TestPidAliveForCurrentProcess(t *testing.T) {
	if !pidAlive(int32(os.Getpid())) {
		t.Error("the calling process's own pid should be reported alive")
	}
}

func TestPidAliveForExitedProcess(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("could not run a throwaway child process: %v", err)
	}
	if pidAlive(int32(cmd.Process.Pid)) {
		t.Error("an exited process's pid should not be reported alive")
	}
}

func TestSweepRemovesDeadOwnerAndRetiresRecord(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("could not run a throwaway child process: %v", err)
	}
	deadPID := int32(cmd.Process.Pid)

	tbl := newTestTable()
	dead := Owner{PID: deadPID, Descriptor: 1}
	if _, err := tbl.insert(Region{0, 100}, LockWrite, dead); err != nil {
		t.Fatalf("insert: %v", err)
	}

	swept := tbl.sweep()
	if swept != 1 {
		t.Fatalf("sweep removed %d owners, want 1", swept)
	}
	var active int
	tbl.walk(func(idx int) bool { active++; return true })
	if active != 0 {
		t.Error("a record whose only owner died should be retired")
	}
}

func TestSweepLeavesLiveOwnersAlone(t *testing.T) {
	tbl := newTestTable()
	alive := Owner{PID: int32(os.Getpid()), Descriptor: 1}
	if _, err := tbl.insert(Region{0, 100}, LockWrite, alive); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if swept := tbl.sweep(); swept != 0 {
		t.Errorf("sweep removed %d owners, want 0 for a live process", swept)
	}
	var active int
	tbl.walk(func(idx int) bool { active++; return true })
	if active != 1 {
		t.Error("the live owner's record should survive the sweep")
	}
}

func TestSweepMixedOwnersKeepsOnlyLive(t *testing.T) {
	cmd := exec.Command("true")
	if err := cmd.Run(); err != nil {
		t.Skipf("could not run a throwaway child process: %v", err)
	}
	deadPID := int32(cmd.Process.Pid)
	alivePID := int32(os.Getpid())

	tbl := newTestTable()
	idx, err := tbl.insert(Region{0, 100}, LockRead, Owner{PID: deadPID, Descriptor: 1})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tbl.Slots[idx].addOwner(Owner{PID: alivePID, Descriptor: 2}); err != nil {
		t.Fatalf("addOwner: %v", err)
	}

	swept := tbl.sweep()
	if swept != 1 {
		t.Fatalf("sweep removed %d owners, want 1", swept)
	}
	if !tbl.Slots[idx].hasOwner(Owner{PID: alivePID, Descriptor: 2}) {
		t.Error("the live co-owner should remain after the sweep")
	}
	if tbl.Slots[idx].hasOwner(Owner{PID: deadPID, Descriptor: 1}) {
		t.Error("the dead owner should have been removed")
	}
}
