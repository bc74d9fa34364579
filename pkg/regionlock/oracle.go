package regionlock

// compatible reports whether a proposed (region, typ, owner) lock can
// coexist with the existing slot s without blocking. Two locks held by
// the same owner never conflict with each other: a second request from
// the same (pid, descriptor) is always a promotion/extension, handled
// by the region mutator rather than the oracle.
func compatible(s *lockSlot, region Region, typ LockType, owner Owner) bool {
	if s.free() {
		return true
	}
	if !intersects(s.region(), region) {
		return true
	}
	if !s.hasOtherOwner(owner) {
		return true
	}
	if typ == LockRead && LockType(s.Type) == LockRead {
		return true
	}
	return false
}

// firstConflict walks the active chain and returns the slot index of the
// first record that conflicts with the proposed lock, or sentinelLast if
// none does.
func (t *Table) firstConflict(region Region, typ LockType, owner Owner) int {
	conflict := int32(sentinelLast)
	t.walk(func(idx int) bool {
		if !compatible(&t.Slots[idx], region, typ, owner) {
			conflict = int32(idx)
			return false
		}
		return true
	})
	return int(conflict)
}

// wouldBlock reports whether granting (region, typ, owner) right now
// would conflict with any existing record.
func (t *Table) wouldBlock(region Region, typ LockType, owner Owner) bool {
	return t.firstConflict(region, typ, owner) != sentinelLast
}
