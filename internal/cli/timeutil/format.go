// Package timeutil formats timestamps for rlockctl table output.
package timeutil

import "time"

// localTimeFormat is the layout for human-readable local times, using
// Go's reference time: Mon Jan 2 15:04:05 2006.
const localTimeFormat = "Mon Jan 2 15:04:05 2006"

// FormatLocal renders t in the local timezone for display alongside a
// lock-table snapshot.
func FormatLocal(t time.Time) string {
	return t.Local().Format(localTimeFormat)
}
