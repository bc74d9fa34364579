// Package regionlock implements a cross-process advisory region-locking
// service: byte-range read/write locks over regular files, coordinated
// across independent processes through a segment of memory shared by
// every process that has the same underlying file attached.
//
// Ownership is per-descriptor rather than per-process, matching the
// semantics fcntl(F_SETLK) lacks: two descriptors opened by the same pid
// hold independent locks. A read lock admits any number of owners over
// overlapping regions; a write lock excludes every owner but itself; a
// blocking request suspends the caller until the region becomes
// compatible; a fork propagates the parent's ownership to the child.
package regionlock
