package regionlock

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// recordsOwnedBy returns the regions of every active record that owner
// belongs to, in table order, used to assert round-trip equivalence.
func recordsOwnedBy(t *Table, owner Owner) []Region {
	var out []Region
	t.walk(func(idx int) bool {
		if t.Slots[idx].hasOwner(owner) {
			out = append(out, t.Slots[idx].region())
		}
		return true
	})
	return out
}

func TestAcquireReadCoalescesAdjacentSameOwner(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h := Owner{PID: 1, Descriptor: 1}

	require.NoError(tbl.acquireRead(Region{0, 100}, h))
	require.NoError(tbl.acquireRead(Region{100, 100}, h))

	recs := recordsOwnedBy(tbl, h)
	require.Len(recs, 1, "adjacent same-owner reads should coalesce into one record")
	require.Equal(Region{Start: 0, Length: 200}, recs[0])
}

func TestAcquireReadExactRegionIsIdempotent(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h := Owner{PID: 1, Descriptor: 1}

	require.NoError(tbl.acquireRead(Region{0, 100}, h))
	require.NoError(tbl.acquireRead(Region{0, 100}, h))

	recs := recordsOwnedBy(tbl, h)
	require.Len(recs, 1)
	require.Equal(Region{Start: 0, Length: 100}, recs[0])
}

func TestAcquireReadAddsSecondOwnerOnExactRegion(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h1 := Owner{PID: 1, Descriptor: 1}
	h2 := Owner{PID: 2, Descriptor: 1}

	require.NoError(tbl.acquireRead(Region{0, 100}, h1))
	require.NoError(tbl.acquireRead(Region{0, 100}, h2))

	var count int
	tbl.walk(func(idx int) bool { count++; return true })
	require.Equal(1, count, "two readers on the identical region should share a single record")
}

func TestAcquireWritePromotesFromRead(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h := Owner{PID: 1, Descriptor: 1}

	require.NoError(tbl.acquireRead(Region{0, 100}, h))
	require.NoError(tbl.acquireWrite(Region{50, 50}, h))

	recs := recordsOwnedBy(tbl, h)
	require.Len(recs, 1, "intersecting mixed-type same-owner regions should merge into one write record")
	require.Equal(Region{Start: 0, Length: 100}, recs[0])

	var typ LockType
	tbl.walk(func(idx int) bool {
		typ = LockType(tbl.Slots[idx].Type)
		return true
	})
	require.Equal(LockWrite, typ)
}

func TestReleaseSplitOnUnlockInterior(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h := Owner{PID: 1, Descriptor: 1}

	require.NoError(tbl.acquireWrite(Region{0, 1000}, h))
	require.NoError(tbl.release(Region{200, 200}, h))

	recs := recordsOwnedBy(tbl, h)
	require.Len(recs, 2)
	require.ElementsMatch([]Region{
		{Start: 0, Length: 200},
		{Start: 400, Length: 600},
	}, recs)
}

func TestReleaseFullyCoveredRecordIsRemoved(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h := Owner{PID: 1, Descriptor: 1}

	require.NoError(tbl.acquireWrite(Region{0, 100}, h))
	require.NoError(tbl.release(Region{0, 100}, h))

	recs := recordsOwnedBy(tbl, h)
	require.Empty(recs)
	var active int
	tbl.walk(func(idx int) bool { active++; return true })
	require.Zero(active)
}

func TestReleaseOfUnheldRegionIsNotAnError(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h := Owner{PID: 1, Descriptor: 1}
	require.NoError(tbl.release(Region{0, 100}, h))
}

func TestReleaseTrimsLeftAndRightEdges(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h := Owner{PID: 1, Descriptor: 1}

	require.NoError(tbl.acquireWrite(Region{0, 100}, h))
	require.NoError(tbl.release(Region{0, 50}, h)) // trims the left edge

	recs := recordsOwnedBy(tbl, h)
	require.Equal([]Region{{Start: 50, Length: 50}}, recs)

	require.NoError(tbl.release(Region{80, 20}, h)) // trims the right edge
	recs = recordsOwnedBy(tbl, h)
	require.Equal([]Region{{Start: 50, Length: 30}}, recs)
}

func TestAcquireReleaseRoundTrip(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h := Owner{PID: 1, Descriptor: 1}

	before := recordsOwnedBy(tbl, h)
	require.NoError(tbl.acquireWrite(Region{10, 40}, h))
	require.NoError(tbl.release(Region{10, 40}, h))
	after := recordsOwnedBy(tbl, h)

	require.Equal(before, after, "acquire then release should return to the pre-state")
}

func TestReleaseCapacityValidatedBeforeMutation(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h := Owner{PID: 1, Descriptor: 1}

	// Fill every remaining slot so a release requiring an interior
	// split (two replacement pieces) cannot be satisfied.
	require.NoError(tbl.acquireWrite(Region{0, 1000}, h))
	other := Owner{PID: 2, Descriptor: 1}
	for i := 0; i < MaxLocks-1; i++ {
		_, err := tbl.insert(Region{int64(2000 + i*10), 10}, LockRead, other)
		require.NoError(err)
	}
	require.Zero(tbl.freeSlotCount())

	before := tbl.Slots // snapshot by value: lockSlot has no pointer fields
	err := tbl.release(Region{400, 200}, h)
	require.Error(err)
	require.True(IsCapacityExceeded(err))
	require.Equal(before, tbl.Slots, "a failed release must leave the table completely untouched")
}

func TestReleaseCapacityAtomicForSharedRecord(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h1 := Owner{PID: 1, Descriptor: 1}
	h2 := Owner{PID: 2, Descriptor: 1}

	// Two readers share one record. An interior release by h1 inserts
	// two pieces while the shared record survives with h2, so the
	// record's own slot is never freed and both pieces need fresh slots.
	require.NoError(tbl.acquireRead(Region{0, 100}, h1))
	require.NoError(tbl.acquireRead(Region{0, 100}, h2))

	filler := Owner{PID: 3, Descriptor: 1}
	next := int64(2000)
	for tbl.freeSlotCount() > 1 {
		_, err := tbl.insert(Region{next, 10}, LockRead, filler)
		require.NoError(err)
		next += 10
	}

	before := tbl.Slots
	err := tbl.release(Region{40, 20}, h1)
	require.Error(err)
	require.True(IsCapacityExceeded(err))
	require.Equal(before, tbl.Slots, "a rejected release on a shared record must leave the table untouched")
}

func TestReleaseInteriorOnSharedRecordKeepsCoOwner(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h1 := Owner{PID: 1, Descriptor: 1}
	h2 := Owner{PID: 2, Descriptor: 1}

	require.NoError(tbl.acquireRead(Region{0, 100}, h1))
	require.NoError(tbl.acquireRead(Region{0, 100}, h2))

	require.NoError(tbl.release(Region{40, 20}, h1))

	require.ElementsMatch([]Region{
		{Start: 0, Length: 40},
		{Start: 60, Length: 40},
	}, recordsOwnedBy(tbl, h1))
	require.Equal([]Region{{Start: 0, Length: 100}}, recordsOwnedBy(tbl, h2),
		"the co-owner's coverage must survive h1's partial release intact")
}

func TestMergeOfThreeTouchingReadsIntoOne(t *testing.T) {
	require := require.New(t)
	tbl := newTestTable()
	h := Owner{PID: 1, Descriptor: 1}

	require.NoError(tbl.acquireRead(Region{0, 10}, h))
	require.NoError(tbl.acquireRead(Region{20, 10}, h))
	// A read spanning the gap should merge all three into one record.
	require.NoError(tbl.acquireRead(Region{10, 10}, h))

	recs := recordsOwnedBy(tbl, h)
	require.Len(recs, 1)
	require.Equal(Region{Start: 0, Length: 30}, recs[0])
}
