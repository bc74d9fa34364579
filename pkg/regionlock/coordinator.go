package regionlock

import "time"

// Backoff schedule for a blocking waiter re-checking the compatibility
// oracle. There is no cgo-free process-shared condition variable to
// sleep on, so a waiter instead releases the table mutex, sleeps, and
// re-acquires it to re-check, polling with exponential backoff rather
// than busy-waiting. Constants follow the same starting/max/factor
// shape used for lock-retry backoff elsewhere in the ecosystem.
const (
	startingBackoff = 50 * time.Microsecond
	maxBackoff      = 500 * time.Millisecond
	backoffFactor   = 2
)

// requestLock is the single entry point for a READ/WRITE/UNLOCK
// request against a segment's table, implementing the sweep ->
// oracle -> (block or mutate) -> broadcast pipeline. Every call holds
// the segment mutex for its own table access only; a blocking waiter
// releases it while asleep so other processes can make progress.
func requestLock(s *segment, spec LockSpec, mode Mode, owner Owner, curPos, fileSize int64) error {
	if spec.Op == OpUnlock {
		region, err := Normalize(LockSpec{Whence: spec.Whence, Start: spec.Start, Len: spec.Len}, curPos, fileSize)
		if err != nil {
			return err
		}
		return withMutex(s, func() error {
			observeSweep(s.table.sweep())
			err := s.table.release(region, owner)
			if err == nil {
				// The broadcast: every sleeper will re-check on its next
				// poll, so the sleeper count resets wholesale.
				s.table.BlockedCount = 0
				updateBlockedGauge(s)
			}
			return err
		})
	}

	if spec.Op != OpRead && spec.Op != OpWrite {
		return newError(InvalidArgument, "unsupported lock operation", nil)
	}

	region, err := Normalize(spec, curPos, fileSize)
	if err != nil {
		return err
	}

	typ := LockRead
	if spec.Op == OpWrite {
		typ = LockWrite
	}

	backoff := startingBackoff

	if err := s.lockMutex(); err != nil {
		return err
	}
	for {
		if SweepOnEveryOp {
			observeSweep(s.table.sweep())
		}
		if !s.table.wouldBlock(region, typ, owner) {
			var acqErr error
			if typ == LockRead {
				acqErr = s.table.acquireRead(region, owner)
			} else {
				acqErr = s.table.acquireWrite(region, owner)
			}
			s.unlockMutex()
			return acqErr
		}

		if mode == ModeNonBlocking {
			s.unlockMutex()
			return newError(WouldBlock, "region conflicts with an existing lock", nil)
		}

		s.table.BlockedCount++
		updateBlockedGauge(s)
		if err := s.unlockMutex(); err != nil {
			return err
		}

		time.Sleep(backoff)
		backoff *= backoffFactor
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		if err := s.lockMutex(); err != nil {
			return err
		}
		// Deregister as a sleeper before re-checking. A release since we
		// went to sleep has already zeroed the count for every sleeper at
		// once; only our own registration is undone here.
		if s.table.BlockedCount > 0 {
			s.table.BlockedCount--
			updateBlockedGauge(s)
		}
	}
}

// withMutex runs fn with the segment mutex held.
func withMutex(s *segment, fn func() error) error {
	if err := s.lockMutex(); err != nil {
		return err
	}
	defer s.unlockMutex()
	return fn()
}
