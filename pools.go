package librarian

import "sync"

var segmentBytesPool = &sync.Pool{
	New: func() any {
		return make([]byte, 0, 256)
	},
}

func acquireSegmentBytes() []byte {
	return segmentBytesPool.Get().([]byte)[:0]
}

// releaseSegmentBytes returns b to the pool unless it grew past 64 KiB.
func releaseSegmentBytes(b []byte) {
	if cap(b) > 65536 {
		return
	}
	segmentBytesPool.Put(b[:0])
}
