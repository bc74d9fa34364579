package regionlock

// The region mutator is the only component that inserts, merges, splits
// or removes lock records. Every entry point here assumes the caller
// already holds the segment's external mutex (see coordinator.go) for
// the whole call: these functions are not safe for concurrent use on
// the same table.

// acquireRead grants owner a read lock over region, merging any of
// owner's own touching-or-intersecting records into the new coverage
// first.
func (t *Table) acquireRead(region Region, owner Owner) error {
	return t.acquire(region, LockRead, owner)
}

// acquireWrite grants owner a write lock over region, merging into the
// new coverage first any of owner's own records that intersect region,
// and any of owner's own write records that merely touch it.
func (t *Table) acquireWrite(region Region, owner Owner) error {
	return t.acquire(region, LockWrite, owner)
}

func (t *Table) acquire(region Region, typ LockType, owner Owner) error {
	// Exact same-region, same-type fast path: the record takes the
	// requester as a co-owner instead of spawning a second record for
	// the same bytes. This is how two readers end up sharing one slot.
	if idx, ok := t.findExact(region, typ); ok {
		return t.Slots[idx].addOwner(owner)
	}

	for {
		idx := t.findMergeCandidate(region, typ, owner)
		if idx < 0 {
			break
		}
		s := &t.Slots[idx]
		region = unionBounds(region, s.region())
		s.removeOwner(owner)
		if s.OwnerCount == 0 {
			t.remove(idx)
		}
	}

	if t.freeSlotCount() < 1 {
		return newError(CapacityExceeded, "lock table has no free slot", nil)
	}
	_, err := t.insert(region, typ, owner)
	return err
}

// findExact returns the slot index of an active record whose region and
// type both match the proposal exactly. Ownership is not required: the
// compatibility oracle has already ruled out conflicting other-owner
// records by the time the mutator runs.
func (t *Table) findExact(region Region, typ LockType) (int, bool) {
	found := -1
	t.walk(func(idx int) bool {
		s := &t.Slots[idx]
		if regionsEqual(s.region(), region) && LockType(s.Type) == typ {
			found = idx
			return false
		}
		return true
	})
	if found >= 0 {
		return found, true
	}
	return -1, false
}

// findMergeCandidate returns the index of a record owned by owner that
// should be folded into the proposed (region, typ) before insertion, or
// -1 if none remains.
func (t *Table) findMergeCandidate(region Region, typ LockType, owner Owner) int {
	result := -1
	t.walk(func(idx int) bool {
		s := &t.Slots[idx]
		if !s.hasOwner(owner) {
			return true
		}
		sr := s.region()
		var merges bool
		if typ == LockRead {
			merges = touchesOrIntersects(sr, region)
		} else {
			merges = (touchesOrIntersects(sr, region) && LockType(s.Type) == LockWrite) || intersects(sr, region)
		}
		if merges {
			result = idx
			return false
		}
		return true
	})
	return result
}

// release removes owner's claim to region, splitting any of owner's
// records that only partially overlap it. Unlike acquire, release
// pre-counts every new slot the whole operation will need and fails
// atomically with CapacityExceeded before mutating anything if the
// table cannot provide them, so a failed unlock never leaves a record
// half split.
func (t *Table) release(region Region, owner Owner) error {
	if !t.releaseCanProceed(region, owner) {
		return newError(CapacityExceeded, "unlock split requires more free slots than available", nil)
	}

restart:
	for cur := t.Head; cur != sentinelLast; {
		idx := int(cur)
		s := &t.Slots[idx]
		next := s.Next
		if !s.hasOwner(owner) || !intersects(s.region(), region) {
			cur = next
			continue
		}

		left, right := releaseSplit(s.region(), region)

		typ := LockType(s.Type)
		s.removeOwner(owner)
		if s.OwnerCount == 0 {
			t.remove(idx)
		}

		if left != nil {
			if _, err := t.insert(*left, typ, owner); err != nil {
				return err
			}
		}
		if right != nil {
			if _, err := t.insert(*right, typ, owner); err != nil {
				return err
			}
		}
		goto restart
	}
	return nil
}

// releaseSplit classifies how region overlaps a record's own region sr
// and returns the zero, one, or two remaining pieces owner keeps.
func releaseSplit(sr, region Region) (left, right *Region) {
	switch {
	case contains(region, sr):
		// region fully covers R: owner simply leaves R.
	case contains(sr, region) && sr.Start != region.Start && sr.End() != region.End():
		l := Region{Start: sr.Start, Length: region.Start - sr.Start}
		r := Region{Start: region.End(), Length: sr.End() - region.End()}
		left, right = &l, &r
	case region.Start <= sr.Start:
		r := Region{Start: region.End(), Length: sr.End() - region.End()}
		right = &r
	default:
		l := Region{Start: sr.Start, Length: region.Start - sr.Start}
		left = &l
	}
	return left, right
}

// releaseCanProceed reports whether the table can supply every slot
// releasing region on behalf of owner will consume, simulating the
// removals and inserts in the order release applies them without
// mutating anything. A record that keeps other owners after owner
// leaves it frees no slot of its own, so its replacement pieces are
// charged at full cost; only a record whose last owner is leaving
// funds its pieces with the slot it vacates.
func (t *Table) releaseCanProceed(region Region, owner Owner) bool {
	free := t.freeSlotCount()
	ok := true
	t.walk(func(idx int) bool {
		s := &t.Slots[idx]
		if !s.hasOwner(owner) || !intersects(s.region(), region) {
			return true
		}
		if s.OwnerCount == 1 {
			free++
		}
		left, right := releaseSplit(s.region(), region)
		if left != nil {
			free--
		}
		if right != nil {
			free--
		}
		if free < 0 {
			ok = false
			return false
		}
		return true
	})
	return ok
}
