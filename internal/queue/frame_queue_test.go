package queue

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohaplay/internal/media"
)

type fakeFrame struct {
	pts      time.Duration
	released *int32
}

func (f fakeFrame) Time() time.Duration { return f.pts }
func (f fakeFrame) Hold()               {}
func (f fakeFrame) Release()            { atomic.AddInt32(f.released, 1) }

func TestFrameQueueFrontDoesNotRemove(t *testing.T) {
	var released int32
	q := NewFrameQueue(3)
	assert.Nil(t, q.Front())
	assert.Nil(t, q.Pop())

	q.Push(fakeFrame{pts: 1, released: &released})
	q.Push(fakeFrame{pts: 2, released: &released})

	assert.Equal(t, time.Duration(1), q.Front().Time())
	assert.Equal(t, time.Duration(1), q.Front().Time())
	assert.Equal(t, 2, q.Count())

	assert.Equal(t, time.Duration(1), q.Pop().Time())
	assert.Equal(t, time.Duration(2), q.Front().Time())
}

func TestFrameQueueFlushReleases(t *testing.T) {
	var released int32
	q := NewFrameQueue(3)
	for i := 0; i < 3; i++ {
		q.Push(fakeFrame{pts: time.Duration(i), released: &released})
	}
	q.SetEOF()
	q.Flush()

	assert.Equal(t, int32(3), atomic.LoadInt32(&released))
	assert.Equal(t, 0, q.Count())
	assert.False(t, q.Exhausted())
}

func TestFrameQueueExhausted(t *testing.T) {
	var released int32
	q := NewFrameQueue(3)
	q.Push(fakeFrame{pts: 1, released: &released})
	q.SetEOF()
	assert.False(t, q.Exhausted())

	f, err := q.PopWait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, time.Duration(1), f.Time())
	assert.True(t, q.Exhausted())

	_, err = q.PopWait(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestFrameQueueProducerStallsAtCapacity(t *testing.T) {
	var released int32
	q := NewFrameQueue(2)
	ctx, cancel := context.WithCancel(context.Background())

	var pushed int32
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			if q.WaitSpace(ctx) != nil {
				return
			}
			q.Push(fakeFrame{pts: time.Duration(i), released: &released})
			atomic.AddInt32(&pushed, 1)
		}
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), atomic.LoadInt32(&pushed))

	// Cancellation releases a producer stuck on a full queue.
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("producer did not observe cancellation")
	}
	assert.Equal(t, 2, q.Count())
}

var _ media.Frame = fakeFrame{}
