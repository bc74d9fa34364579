package regionlock

import (
	"bytes"
	"strings"
	"testing"
)

func newTestTable() *Table {
	var tbl Table
	tbl.initialize()
	return &tbl
}

func TestTableInsertAndWalk(t *testing.T) {
	tbl := newTestTable()
	owner := Owner{PID: 1, Descriptor: 1}

	idx1, err := tbl.insert(Region{0, 10}, LockRead, owner)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	idx2, err := tbl.insert(Region{10, 10}, LockWrite, owner)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	var seen []int
	tbl.walk(func(idx int) bool {
		seen = append(seen, idx)
		return true
	})
	if len(seen) != 2 {
		t.Fatalf("walk visited %d slots, want 2", len(seen))
	}
	// insert links at head, so the most recent insert comes first.
	if seen[0] != idx2 || seen[1] != idx1 {
		t.Errorf("walk order = %v, want [%d %d]", seen, idx2, idx1)
	}
}

func TestTableInsertCapacityExceeded(t *testing.T) {
	tbl := newTestTable()
	owner := Owner{PID: 1, Descriptor: 1}
	for i := 0; i < MaxLocks; i++ {
		if _, err := tbl.insert(Region{int64(i * 10), 10}, LockRead, owner); err != nil {
			t.Fatalf("insert %d: %v", i, err)
		}
	}
	_, err := tbl.insert(Region{1000, 10}, LockRead, owner)
	if !IsCapacityExceeded(err) {
		t.Fatalf("expected CapacityExceeded, got %v", err)
	}
}

func TestTableRemoveFromHeadAndMiddle(t *testing.T) {
	tbl := newTestTable()
	owner := Owner{PID: 1, Descriptor: 1}
	a, _ := tbl.insert(Region{0, 10}, LockRead, owner)
	b, _ := tbl.insert(Region{10, 10}, LockRead, owner)
	c, _ := tbl.insert(Region{20, 10}, LockRead, owner)

	// head is c (most recently inserted); remove the middle element b.
	tbl.remove(b)
	var seen []int
	tbl.walk(func(idx int) bool {
		seen = append(seen, idx)
		return true
	})
	if len(seen) != 2 || seen[0] != c || seen[1] != a {
		t.Fatalf("walk after middle removal = %v, want [%d %d]", seen, c, a)
	}
	if !tbl.Slots[b].free() {
		t.Error("removed slot should be free")
	}

	tbl.remove(c) // now remove the head
	seen = nil
	tbl.walk(func(idx int) bool {
		seen = append(seen, idx)
		return true
	})
	if len(seen) != 1 || seen[0] != a {
		t.Fatalf("walk after head removal = %v, want [%d]", seen, a)
	}
}

func TestTableFreeSlotCount(t *testing.T) {
	tbl := newTestTable()
	if n := tbl.freeSlotCount(); n != MaxLocks {
		t.Fatalf("freeSlotCount = %d, want %d", n, MaxLocks)
	}
	idx, _ := tbl.insert(Region{0, 10}, LockRead, Owner{1, 1})
	if n := tbl.freeSlotCount(); n != MaxLocks-1 {
		t.Fatalf("freeSlotCount = %d, want %d", n, MaxLocks-1)
	}
	tbl.remove(idx)
	if n := tbl.freeSlotCount(); n != MaxLocks {
		t.Fatalf("freeSlotCount = %d, want %d after remove", n, MaxLocks)
	}
}

func TestTableDumpRendersActiveChain(t *testing.T) {
	tbl := newTestTable()
	if _, err := tbl.insert(Region{0, 10}, LockRead, Owner{PID: 1, Descriptor: 1}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	var buf bytes.Buffer
	tbl.dump(&buf)
	out := buf.String()
	if !strings.Contains(out, "[0,10)") || !strings.Contains(out, "READ") {
		t.Errorf("dump output missing the record rendering: %q", out)
	}
}

func TestTableValidAfterInitialize(t *testing.T) {
	tbl := newTestTable()
	if !tbl.valid() {
		t.Error("expected a freshly initialized table to be valid")
	}
	if tbl.Head != sentinelLast {
		t.Errorf("Head = %d, want sentinelLast", tbl.Head)
	}
}
