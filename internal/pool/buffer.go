// Package pool recycles the read buffers the HTTP engine streams response
// bodies through.
package pool

import (
	"sync"
)

const (
	// SmallBufferSize suits error bodies and small listings (4KB)
	SmallBufferSize = 4 * 1024
	// MediumBufferSize is the default read size for object bodies (64KB)
	MediumBufferSize = 64 * 1024
	// LargeBufferSize is used when the engine is tuned for high throughput (1MB)
	LargeBufferSize = 1024 * 1024
)

var classes = []int{SmallBufferSize, MediumBufferSize, LargeBufferSize}

// BufferPool hands out fixed-size read buffers. Buffers are returned at full
// length, ready to be passed to io.Reader.Read.
type BufferPool struct {
	pools []*sync.Pool
}

// NewBufferPool creates a pool with one size class per buffer size constant.
func NewBufferPool() *BufferPool {
	bp := &BufferPool{pools: make([]*sync.Pool, len(classes))}
	for i, size := range classes {
		bp.pools[i] = &sync.Pool{
			New: func() any {
				buf := make([]byte, size)
				return &buf
			},
		}
	}
	return bp
}

// ClassFor returns the buffer size Get would hand out for a request of size
// bytes. Sizes above LargeBufferSize are returned unchanged.
func ClassFor(size int) int {
	for _, c := range classes {
		if size <= c {
			return c
		}
	}
	return size
}

// Get returns a buffer of at least size bytes. Requests larger than
// LargeBufferSize are allocated and never pooled.
func (bp *BufferPool) Get(size int) []byte {
	for i, c := range classes {
		if size <= c {
			return *bp.pools[i].Get().(*[]byte)
		}
	}
	return make([]byte, size)
}

// Put returns buf to its size class. The buffer must not be used afterwards.
// Buffers whose capacity matches no class are dropped.
func (bp *BufferPool) Put(buf []byte) {
	for i, c := range classes {
		if cap(buf) == c {
			buf = buf[:c]
			bp.pools[i].Put(&buf)
			return
		}
	}
}
