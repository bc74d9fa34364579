package regionlock

import "golang.org/x/sys/unix"

// SweepOnEveryOp controls whether the liveness sweeper runs before
// every acquire. Unlock and Detach always sweep regardless, so dead
// owners are still reclaimed eventually when this is disabled; the
// trade is crash-reclaim latency against kill(pid, 0) probes on the
// acquire hot path.
var SweepOnEveryOp = true

// pidAlive reports whether pid still identifies a live process, probed
// with a zero-effect signal: delivery is skipped but error reporting
// still occurs, so ESRCH means the process is gone.
func pidAlive(pid int32) bool {
	err := unix.Kill(int(pid), 0)
	if err == nil {
		return true
	}
	// EPERM means the pid exists but we may not signal it: still alive.
	return err == unix.EPERM
}

// sweep scans every active record, probing each owner's pid and
// removing entries for processes that no longer exist. Records that
// become ownerless are retired. Invoked at the start of every
// lock-table operation, before the compatibility oracle runs, so a
// survivor never blocks on a lock abandoned by a crashed process.
//
// sweep does not broadcast on its own: the caller's own operation
// either succeeds without anyone needing to wake, or is an unlock that
// already broadcasts after mutating the table.
func (t *Table) sweep() (sweptOwners int) {
	for cur := t.Head; cur != sentinelLast; {
		idx := int(cur)
		s := &t.Slots[idx]
		next := s.Next

		i := int32(0)
		for i < s.OwnerCount {
			pid := s.Owners[i].PID
			if pidAlive(pid) {
				i++
				continue
			}
			// One probe covers every entry the dead pid holds on this
			// record, descriptors included.
			sweptOwners += s.removeOwnersByPID(pid)
		}
		if s.OwnerCount == 0 {
			t.remove(idx)
		}
		cur = next
	}
	return sweptOwners
}
