package reactor

import "sync"

// bufPool recycles the per-event read buffers so a busy reactor servicing
// thousands of fds doesn't churn the allocator on every readiness event.
// Adapted from the teacher's BytePool: same sync.Pool-of-byte-slices
// shape, sized for the read path only; replies are built separately by
// evalToBuffer.
type bufPool struct {
	pool sync.Pool
}

func newBufPool() *bufPool {
	return &bufPool{
		pool: sync.Pool{
			New: func() any {
				return make([]byte, readBufferSize)
			},
		},
	}
}

func (p *bufPool) get(size int) []byte {
	buf := p.pool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size)
	}
	return buf[:size]
}

func (p *bufPool) put(buf []byte) {
	if cap(buf) <= 64*1024 {
		p.pool.Put(buf[:0])
	}
}
