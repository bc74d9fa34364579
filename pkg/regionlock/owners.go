package regionlock

// addOwner adds owner to the slot if absent, idempotently. Returns a
// CapacityExceeded error if the owner set is already at MaxOwners.
func (s *lockSlot) addOwner(owner Owner) error {
	for i := int32(0); i < s.OwnerCount; i++ {
		if s.Owners[i] == owner {
			return nil
		}
	}
	if s.OwnerCount >= MaxOwners {
		return newError(CapacityExceeded, "owner set is full", nil)
	}
	s.Owners[s.OwnerCount] = owner
	s.OwnerCount++
	return nil
}

// removeOwner removes owner from the slot, shifting the tail left.
// Returns true if the owner was present.
func (s *lockSlot) removeOwner(owner Owner) bool {
	for i := int32(0); i < s.OwnerCount; i++ {
		if s.Owners[i] != owner {
			continue
		}
		for j := i; j < s.OwnerCount-1; j++ {
			s.Owners[j] = s.Owners[j+1]
		}
		s.OwnerCount--
		return true
	}
	return false
}

// hasOwner reports whether owner is a member of the slot.
func (s *lockSlot) hasOwner(owner Owner) bool {
	for i := int32(0); i < s.OwnerCount; i++ {
		if s.Owners[i] == owner {
			return true
		}
	}
	return false
}

// hasOtherOwner reports whether the slot has any owner besides owner.
func (s *lockSlot) hasOtherOwner(owner Owner) bool {
	for i := int32(0); i < s.OwnerCount; i++ {
		if s.Owners[i] != owner {
			return true
		}
	}
	return false
}

// removeOwnersByPID removes every owner entry for pid, regardless of
// descriptor, used by the liveness sweeper. Returns the count removed.
func (s *lockSlot) removeOwnersByPID(pid int32) int {
	removed := 0
	i := int32(0)
	for i < s.OwnerCount {
		if s.Owners[i].PID == pid {
			for j := i; j < s.OwnerCount-1; j++ {
				s.Owners[j] = s.Owners[j+1]
			}
			s.OwnerCount--
			removed++
			continue
		}
		i++
	}
	return removed
}
