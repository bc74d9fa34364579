package regionlock

import "golang.org/x/sys/unix"

// syscallStat holds the identity fields used to derive a segment name:
// the same underlying file (including via a hard link) must always
// resolve to the same (dev, ino) pair.
type syscallStat struct {
	dev uint64
	ino uint64
}

func stat(path string, out *syscallStat) error {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return err
	}
	out.dev = uint64(st.Dev)
	out.ino = st.Ino
	return nil
}
