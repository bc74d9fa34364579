package regionlock

import (
	"fmt"
	"io"
	"unsafe"
)

const tableMagic uint32 = 0x524c4b31 // "RLK1"
const tableVersion uint32 = 1

// lockSlot is one row of the lock table: a region, its type, and the
// bounded set of owners holding it. Fixed layout, no pointers, so it can
// sit inside a segment mapped into multiple address spaces.
type lockSlot struct {
	Start      int64
	Length     int64
	Type       int32
	Next       int32
	OwnerCount int32
	_          int32 // padding to keep Owners 8-byte aligned
	Owners     [MaxOwners]Owner
}

func (s *lockSlot) region() Region {
	return Region{Start: s.Start, Length: s.Length}
}

func (s *lockSlot) free() bool {
	return s.Length == 0
}

func (s *lockSlot) reset() {
	*s = lockSlot{Next: sentinelFree}
}

// Table is the lock table embedded at the front of every shared
// segment. An advisory file lock held around every Table access (see
// segment.go and coordinator.go) stands in for an in-segment
// process-shared mutex, which cgo-free Go cannot express in mapped
// memory. BlockedCount and RefCount are part of the mapped layout so
// every attached process observes the same values.
type Table struct {
	Magic        uint32
	Version      uint32
	Head         int32
	BlockedCount int32
	RefCount     int32
	_            int32
	Slots        [MaxLocks]lockSlot
}

// tableSize is the fixed byte size of a Table, used to size new segments.
const tableSize = int(unsafe.Sizeof(Table{}))

// tableFromBytes reinterprets a mapped byte slice as a *Table. The slice
// must be at least tableSize bytes and must not be moved or resized for
// as long as the returned pointer is in use.
func tableFromBytes(b []byte) *Table {
	if len(b) < tableSize {
		panic("regionlock: mapped segment smaller than Table")
	}
	return (*Table)(unsafe.Pointer(&b[0]))
}

// initialize zero-fills the table's logical state. Called once, by
// whichever process creates a brand-new segment.
func (t *Table) initialize() {
	t.Magic = tableMagic
	t.Version = tableVersion
	t.Head = sentinelLast
	t.BlockedCount = 0
	t.RefCount = 0
	for i := range t.Slots {
		t.Slots[i].reset()
	}
}

// valid reports whether the mapped bytes look like an initialized table.
func (t *Table) valid() bool {
	return t.Magic == tableMagic && t.Version == tableVersion
}

// insert links a new record at the head of the active chain and returns
// its slot index, or a CapacityExceeded error if every slot is taken.
func (t *Table) insert(region Region, typ LockType, owner Owner) (int, error) {
	for i := range t.Slots {
		if t.Slots[i].free() {
			s := &t.Slots[i]
			s.Start = region.Start
			s.Length = region.Length
			s.Type = int32(typ)
			s.OwnerCount = 1
			s.Owners[0] = owner
			s.Next = t.Head
			t.Head = int32(i)
			return i, nil
		}
	}
	return 0, newError(CapacityExceeded, "lock table has no free slot", nil)
}

// freeSlotCount reports how many slots are currently unused, used by the
// region mutator to validate capacity before an unlock-driven split
// mutates anything (see mutator.go, release).
func (t *Table) freeSlotCount() int {
	n := 0
	for i := range t.Slots {
		if t.Slots[i].free() {
			n++
		}
	}
	return n
}

// remove unlinks slot index idx from the active chain and zeros it.
func (t *Table) remove(idx int) {
	if t.Head == int32(idx) {
		t.Head = t.Slots[idx].Next
		t.Slots[idx].reset()
		return
	}
	cur := t.Head
	for cur != sentinelLast {
		next := t.Slots[cur].Next
		if next == int32(idx) {
			t.Slots[cur].Next = t.Slots[idx].Next
			t.Slots[idx].reset()
			return
		}
		cur = next
	}
}

// walk calls fn for every active slot index in chain order. fn returning
// false stops the traversal early.
func (t *Table) walk(fn func(idx int) bool) {
	cur := t.Head
	for cur != sentinelLast {
		next := t.Slots[cur].Next
		if !fn(int(cur)) {
			return
		}
		cur = next
	}
}

// dump writes a human-readable rendering of the active chain for
// debugging.
func (t *Table) dump(w io.Writer) {
	fmt.Fprintf(w, "table head=%d blocked=%d refs=%d\n", t.Head, t.BlockedCount, t.RefCount)
	t.walk(func(idx int) bool {
		s := &t.Slots[idx]
		fmt.Fprintf(w, "  [%d] %s [%d,%d) owners=%d next=%d\n",
			idx, LockType(s.Type), s.Start, s.Start+s.Length, s.OwnerCount, s.Next)
		return true
	})
}
