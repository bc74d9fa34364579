package regionlock

import (
	"sync"
)

// maxOpenFiles bounds the process-local registry. It has no effect on
// the shared segment's own capacity; it only limits how many distinct
// underlying files one process can have attached at once.
const maxOpenFiles = 256

// sharedFile is the process-local view of one attached segment: the
// mapped table plus how many of this process's own handles reference
// it. The table's own RefCount field is the cross-process count used
// to decide who unlinks; localRefs only decides when this process may
// safely munmap its own mapping.
type sharedFile struct {
	seg        *segment
	dev, ino   uint64
	localRefs  int32
}

// registry is the process-local cache of open shared files and the
// handles drawn from them, guarded by its own mutex since multiple
// goroutines in one process may attach/detach concurrently.
type registry struct {
	mu             sync.Mutex
	bySegment      map[string]*sharedFile
	handles        map[int32]*Handle
	nextDescriptor int32
}

var defaultRegistry = &registry{
	bySegment: make(map[string]*sharedFile),
	handles:   make(map[int32]*Handle),
}

func (r *registry) openSharedFile(dev, ino uint64) (*sharedFile, error) {
	name := segmentName(dev, ino)
	if sf, ok := r.bySegment[name]; ok {
		sf.localRefs++
		if err := withMutex(sf.seg, func() error {
			sf.seg.table.RefCount++
			return nil
		}); err != nil {
			return nil, err
		}
		return sf, nil
	}
	seg, _, err := openSegment(dev, ino)
	if err != nil {
		return nil, err
	}
	sf := &sharedFile{seg: seg, dev: dev, ino: ino, localRefs: 1}
	if err := withMutex(sf.seg, func() error {
		sf.seg.table.RefCount++
		return nil
	}); err != nil {
		return nil, err
	}
	r.bySegment[name] = sf
	if defaultMetrics != nil {
		defaultMetrics.segmentsOpen.Inc()
	}
	return sf, nil
}

func (r *registry) closeSharedFile(sf *sharedFile) error {
	sf.localRefs--
	var last bool
	if err := withMutex(sf.seg, func() error {
		sf.seg.table.RefCount--
		last = sf.seg.table.RefCount <= 0
		return nil
	}); err != nil {
		return err
	}
	if sf.localRefs > 0 {
		return nil
	}
	delete(r.bySegment, sf.seg.name)
	if defaultMetrics != nil {
		defaultMetrics.segmentsOpen.Dec()
	}
	if last {
		return sf.seg.destroy()
	}
	return sf.seg.closeMapping()
}

func (r *registry) allocDescriptor(pid int32, h func(int32) *Handle) *Handle {
	for {
		d := r.nextDescriptor
		r.nextDescriptor++
		if _, taken := r.handles[d]; taken {
			continue
		}
		handle := h(d)
		r.handles[d] = handle
		return handle
	}
}
