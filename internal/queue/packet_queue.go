// Package queue implements the bounded, thread-safe FIFOs that sit between the
// demuxer, the decoders and the renderer.
//
// Push never blocks. Capacity is enforced by producers calling WaitSpace
// before pushing, which suspends them until a consumer makes room. Consumers
// either poll with Pop or suspend in PopWait until data arrives or the
// producer marks the end of the stream.
package queue

import (
	"context"
	"io"
	"sync"

	"github.com/lanikai/alohaplay/internal/media"
)

// PacketQueue is a FIFO of compressed packets for one elementary stream.
type PacketQueue struct {
	mu       sync.Mutex
	items    *ring
	capacity int
	eof      bool
	changed  notifier
}

func NewPacketQueue(capacity int) *PacketQueue {
	if capacity < 1 {
		panic("queue: capacity must be positive")
	}
	return &PacketQueue{
		items:    newRing(capacity),
		capacity: capacity,
	}
}

// Push appends a copy of pkt, so the caller may reuse its payload buffer
// immediately.
func (q *PacketQueue) Push(pkt media.Packet) {
	pkt = pkt.Clone()

	q.mu.Lock()
	q.items.pushBack(pkt)
	q.changed.broadcast()
	q.mu.Unlock()
}

// Pop removes and returns the oldest packet. It does not block; ok is false
// when the queue is empty.
func (q *PacketQueue) Pop() (pkt media.Packet, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.items.len() == 0 {
		return media.Packet{}, false
	}
	pkt = q.items.popFront().(media.Packet)
	q.changed.broadcast()
	return pkt, true
}

// PopWait removes and returns the oldest packet, waiting for one if the queue
// is empty. It returns io.EOF once the queue is empty and marked exhausted,
// or the context's error if ctx is done first.
func (q *PacketQueue) PopWait(ctx context.Context) (media.Packet, error) {
	for {
		q.mu.Lock()
		if q.items.len() > 0 {
			pkt := q.items.popFront().(media.Packet)
			q.changed.broadcast()
			q.mu.Unlock()
			return pkt, nil
		}
		if q.eof {
			q.mu.Unlock()
			return media.Packet{}, io.EOF
		}
		ch := q.changed.wait()
		q.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return media.Packet{}, ctx.Err()
		}
	}
}

// WaitSpace blocks while the queue holds capacity or more entries.
func (q *PacketQueue) WaitSpace(ctx context.Context) error {
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

// Full reports whether a producer should stop pushing.
func (q *PacketQueue) Full() bool {
	return q.Count() >= q.capacity
}

// Flush discards every queued packet and leaves the FlushMarker at the head,
// so a decoder draining this queue resets instead of silently starving. It
// also clears the end-of-stream mark.
func (q *PacketQueue) Flush() {
	q.mu.Lock()
	q.items.clear(nil)
	q.items.pushFront(media.FlushMarker)
	q.eof = false
	q.changed.broadcast()
	q.mu.Unlock()
}

// SetEOF marks that no more packets will be pushed until the next Flush.
func (q *PacketQueue) SetEOF() {
	q.mu.Lock()
	q.eof = true
	q.changed.broadcast()
	q.mu.Unlock()
}

// EOF reports whether the producer has marked the end of the stream.
func (q *PacketQueue) EOF() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.eof
}

func (q *PacketQueue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.len()
}

func (q *PacketQueue) Cap() int {
	return q.capacity
}
