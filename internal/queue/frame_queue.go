package queue

import (
	"context"
	"io"
	"sync"

	"github.com/lanikai/alohaplay/internal/media"
)

// FrameQueue is a FIFO of decoded frames for one elementary stream. Frames
// pushed by a decoder are owned by the queue until popped; Flush releases
// whatever is still queued.
type FrameQueue struct {
	mu       sync.Mutex
	items    *ring
	capacity int
	eof      bool
	changed  notifier
}

func NewFrameQueue(capacity int) *FrameQueue {
	if capacity < 1 {
		panic("queue: capacity must be positive")
	}
	return &FrameQueue{
		items:    newRing(capacity),
		capacity: capacity,
	}
}

func (q *FrameQueue) Push(f media.Frame) {
	q.mu.Lock()
	q.items.pushBack(f)
	q.changed.broadcast()
	q.mu.Unlock()
}

// Pop removes and returns the oldest frame, or nil if the queue is empty.
// Ownership passes to the caller.
func (q *FrameQueue) Pop() media.Frame {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.len() == 0 {
		return nil
	}
	f := q.items.popFront().(media.Frame)
	q.changed.broadcast()
	return f
}

// Front returns the oldest frame without removing it, or nil. The queue keeps
// ownership; callers must not Release it or retain it past the next Pop.
func (q *FrameQueue) Front() media.Frame {
	q.mu.Lock()
	defer q.mu.Unlock()

	if v := q.items.front(); v != nil {
		return v.(media.Frame)
	}
	return nil
}

// PopWait is Pop, waiting for a frame if the queue is empty. It returns
// io.EOF once the queue is empty and marked exhausted.
func (q *FrameQueue) PopWait(ctx context.Context) (media.Frame, error) {
	for {
		q.mu.Lock()
		if q.items.len() > 0 {
			f := q.items.popFront().(media.Frame)
			q.changed.broadcast()
			q.mu.Unlock()
			return f, nil
		}
		if q.eof {
			q.mu.Unlock()
			return nil, io.EOF
		}
		ch := q.changed.wait()
		q.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// WaitSpace blocks while the queue holds capacity or more frames.
func (q *FrameQueue) WaitSpace(ctx context.Context) error {
	for {
		q.mu.Lock()
		if q.items.len() < q.capacity {
			q.mu.Unlock()
			return nil
		}
		ch := q.changed.wait()
		q.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Flush releases every queued frame and clears the end-of-stream mark.
func (q *FrameQueue) Flush() {
	q.mu.Lock()
	q.items.clear(func(v interface{}) {
		v.(media.Frame).Release()
	})
	q.eof = false
	q.changed.broadcast()
	q.mu.Unlock()
}

// SetEOF marks that the decoder has produced its last frame.
func (q *FrameQueue) SetEOF() {
	q.mu.Lock()
	q.eof = true
	q.changed.broadcast()
	q.mu.Unlock()
}

// Exhausted reports whether the queue is empty and will stay empty.
func (q *FrameQueue) Exhausted() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.eof && q.items.len() == 0
}

func (q *FrameQueue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.len()
}

func (q *FrameQueue) Cap() int {
	return q.capacity
}
