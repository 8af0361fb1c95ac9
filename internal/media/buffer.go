package media

import (
	"sync"
	"sync/atomic"
)

/*
A SharedBuffer represents a read-only byte buffer that may be accessed
concurrently from multiple goroutines. A decoded frame's pixels or samples live
in a SharedBuffer so that the frame queue, the renderer and the step-back
history can all reference the same bytes. Each holder calls Release() when it
is done; the last release returns the bytes to the pool they came from.

Example usage:

	frame := queue.Pop()
	defer frame.Release()
	upload(frame.Bytes())

If the bytes cannot be processed quickly, the consumer should make a copy,
Release(), then continue processing its local copy.
*/
type SharedBuffer struct {
	data []byte

	count   int32
	release func()
}

func NewSharedBuffer(data []byte, release func()) *SharedBuffer {
	return &SharedBuffer{data, 1, release}
}

// Bytes returns the underlying byte buffer.
func (buf *SharedBuffer) Bytes() []byte {
	return buf.data
}

// Increments the hold count.
func (buf *SharedBuffer) Hold() {
	atomic.AddInt32(&buf.count, 1)
}

// Decrements the hold count. When the hold count reaches zero, the underlying
// byte buffer is released.
func (buf *SharedBuffer) Release() {
	if buf == nil {
		return
	}
	newCount := atomic.AddInt32(&buf.count, -1)
	switch {
	case newCount == 0 && buf.release != nil:
		buf.release()
	case newCount < 0:
		panic("media.SharedBuffer: released more times than held")
	}
}

// Holds returns the current hold count.
func (buf *SharedBuffer) Holds() int {
	return int(atomic.LoadInt32(&buf.count))
}

// A BufferPool recycles byte buffers by exact size. Frame sizes are fixed for
// the lifetime of a stream, so a handful of size classes is the norm.
type BufferPool struct {
	pools sync.Map // int -> *sync.Pool
}

// Get returns a SharedBuffer of length n with a hold count of one. Its
// contents are undefined.
func (p *BufferPool) Get(n int) *SharedBuffer {
	v, ok := p.pools.Load(n)
	if !ok {
		v, _ = p.pools.LoadOrStore(n, &sync.Pool{
			New: func() interface{} {
				b := make([]byte, n)
				return &b
			},
		})
	}
	pool := v.(*sync.Pool)
	b := pool.Get().(*[]byte)
	return NewSharedBuffer(*b, func() { pool.Put(b) })
}

// DefaultPool backs decoded frame allocations.
var DefaultPool = &BufferPool{}
