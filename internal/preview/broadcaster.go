//////////////////////////////////////////////////////////////////////////////
//
// Broadcast byte slices from one writer to multiple subscribers.
//
// Each subscriber has its own channel (i.e. queue). When a writer
// broadcasts a byte slice, the byte slice is added to each subscriber's
// channel. Note that this is a shallow copy -- the data within the slice
// is not copied.
//
// Each subscriber may specify the maximum number of byte slices it
// wishes to buffer. Once this capacity is reached, the oldest byte slice
// is dropped for each new written byte slice, so a slow preview viewer
// sees a lower frame rate instead of an ever growing delay.
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package preview

import (
	"sync"
)

// Broadcaster implements io.WriteCloser, fanning writes out to subscribers.
type Broadcaster struct {
	mutex       sync.Mutex
	subscribers []chan []byte
	closed      bool
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Close the broadcaster. All subscriber channels are closed and later
// writes return an error.
func (b *Broadcaster) Close() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, subscriber := range b.subscribers {
		close(subscriber)
	}
	b.subscribers = nil
	b.closed = true
	return nil
}

// Subscribe to broadcasts, buffering up to n byte slices for the subscriber.
// The channel is closed when the broadcaster closes.
func (b *Broadcaster) Subscribe(n int) <-chan []byte {
	if n < 1 {
		panic("malformed buffer size")
	}

	channel := make(chan []byte, n)
	b.mutex.Lock()
	if b.closed {
		close(channel)
	} else {
		b.subscribers = append(b.subscribers, channel)
	}
	b.mutex.Unlock()
	return channel
}

// Unsubscribe from broadcaster by providing the read-only channel returned
// by Subscribe().
func (b *Broadcaster) Unsubscribe(s <-chan []byte) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for i, subscriber := range b.subscribers {
		if s == subscriber {
			// Remove subscriber from slice (order not preserved)
			subs := b.subscribers
			close(subs[i])
			subs[len(subs)-1], subs[i] = subs[i], subs[len(subs)-1]
			b.subscribers = subs[:len(subs)-1]
			return nil
		}
	}
	return errNotFound
}

// Subscribers returns the number of current subscribers.
func (b *Broadcaster) Subscribers() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.subscribers)
}

// Write buffer to subscribers
func (b *Broadcaster) Write(p []byte) (n int, err error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed {
		return 0, errClosed
	}
	for _, subscriber := range b.subscribers {
		select {
		case subscriber <- p:
			// Added slice reference to subscriber
		default:
			// Subscriber backlogged. Drop oldest byte slice, add newest.
			select {
			case <-subscriber:
			default:
			}
			subscriber <- p
		}
	}
	return len(p), nil
}
