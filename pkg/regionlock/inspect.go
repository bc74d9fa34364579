package regionlock

// LockRecord is a read-only snapshot of one active record in a
// segment's lock table, the exported counterpart to the internal
// lockSlot used by diagnostic tools such as rlockctl inspect.
type LockRecord struct {
	Region Region
	Type   LockType
	Owners []Owner
}

// Snapshot is a point-in-time view of a segment's lock table returned
// by Inspect.
type Snapshot struct {
	Records      []LockRecord
	BlockedCount int32
	RefCount     int32
}

// Inspect sweeps dead owners and then returns a snapshot of every
// active record in h's segment.
func Inspect(h *Handle) (Snapshot, error) {
	var snap Snapshot
	if !h.usable() {
		return snap, newError(InvalidHandle, "handle is nil or already detached", nil)
	}
	err := withMutex(h.file.seg, func() error {
		observeSweep(h.file.seg.table.sweep())
		snap.BlockedCount = h.file.seg.table.BlockedCount
		snap.RefCount = h.file.seg.table.RefCount
		h.file.seg.table.walk(func(idx int) bool {
			s := &h.file.seg.table.Slots[idx]
			owners := make([]Owner, s.OwnerCount)
			copy(owners, s.Owners[:s.OwnerCount])
			snap.Records = append(snap.Records, LockRecord{
				Region: s.region(),
				Type:   LockType(s.Type),
				Owners: owners,
			})
			return true
		})
		return nil
	})
	return snap, err
}
