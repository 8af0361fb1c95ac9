package media

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharedBufferReleasesOnLastHolder(t *testing.T) {
	released := 0
	buf := NewSharedBuffer([]byte{0xc0, 0xff, 0xee}, func() { released++ })

	buf.Hold()
	buf.Hold()
	assert.Equal(t, 3, buf.Holds())

	buf.Release()
	buf.Release()
	assert.Equal(t, 0, released)

	buf.Release()
	assert.Equal(t, 1, released)
	assert.Panics(t, buf.Release)
}

func TestSharedBufferConcurrentHolders(t *testing.T) {
	done := make(chan struct{})
	buf := NewSharedBuffer(make([]byte, 16), func() { close(done) })

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		buf.Hold()
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer buf.Release()
			_ = buf.Bytes()[0]
		}()
	}
	wg.Wait()
	buf.Release()
	<-done
}

func TestBufferPoolSizes(t *testing.T) {
	var pool BufferPool
	a := pool.Get(12)
	b := pool.Get(48)
	assert.Len(t, a.Bytes(), 12)
	assert.Len(t, b.Bytes(), 48)
	a.Release()
	b.Release()
}

func TestVideoFrameLayout(t *testing.T) {
	f := NewVideoFrame(4, 2, 0)
	defer f.Release()
	assert.Equal(t, 24, f.Len())
	assert.Equal(t, 12, f.Stride())
}

func TestAudioFrameDuration(t *testing.T) {
	f := NewAudioFrame(2, 8000, 160, 0)
	defer f.Release()
	assert.Equal(t, 640, f.Len())
	assert.Equal(t, "20ms", f.Duration().String())
}

func TestPacketClone(t *testing.T) {
	src := []byte{1, 2, 3}
	p := Packet{Idx: 1, Data: src}
	c := p.Clone()
	src[0] = 9
	assert.Equal(t, byte(1), c.Data[0])
	assert.False(t, c.IsFlush())
	assert.True(t, FlushMarker.IsFlush())
}
