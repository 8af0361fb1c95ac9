package alohaplay

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohaplay/internal/media"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Duration
}

func (c *manualClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Duration) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestPlayer(t *testing.T, config Config, input string) (*Player, *manualClock) {
	clock := &manualClock{}
	p := NewPlayer(config, clock)
	require.NoError(t, p.Open(input))
	return p, clock
}

// frameTime is the presentation time of frame k at 30 fps, computed the same
// way the synthetic source does.
func frameTime(k int) time.Duration {
	return time.Duration(k) * time.Second / 30
}

// waitFrame polls until a frame is due at now. Decoding runs in the
// background, so the first few polls may come up empty.
func waitFrame(t *testing.T, p *Player, now time.Duration) *media.VideoFrame {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f := p.ConsumeDueFrame(now); f != nil {
			return f
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("no frame due at %v", now)
	return nil
}

func waitState(t *testing.T, p *Player, now time.Duration, want State) {
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if f := p.ConsumeDueFrame(now); f != nil {
			f.Release()
		}
		if p.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("player still %v, want %v", p.State(), want)
}

func TestPlaybackDeliversEveryFrameOnTime(t *testing.T) {
	p, _ := newTestPlayer(t, DefaultConfig(), "testsrc:duration=10s,fps=30,gop=30,size=16x12")
	defer p.Close()

	assert.True(t, p.HasVideo())
	assert.False(t, p.HasAudio())
	w, h := p.VideoSize()
	assert.Equal(t, 16, w)
	assert.Equal(t, 12, h)

	require.NoError(t, p.Play())
	for k := 0; k < 300; k++ {
		now := frameTime(k)
		f := waitFrame(t, p, now)
		assert.Equal(t, now, f.Time())
		assert.Equal(t, 16*12*3, f.Len())

		// The next frame is not due before the next tick.
		assert.Nil(t, p.ConsumeDueFrame(now))
		f.Release()
	}

	waitState(t, p, frameTime(300), Finished)
	assert.Equal(t, int64(300), p.Stats().VideoFrames)
	assert.Nil(t, p.ConsumeDueFrame(frameTime(400)))
}

func TestNoEarlyDelivery(t *testing.T) {
	config := DefaultConfig()
	config.Tolerance = Duration(10 * time.Millisecond)
	p, _ := newTestPlayer(t, config, "testsrc:duration=1s,fps=10")
	defer p.Close()
	require.NoError(t, p.Play())

	f := waitFrame(t, p, 0)
	f.Release()

	// Frame 1 is at 100ms: not due at 89ms, due at 90ms with tolerance.
	time.Sleep(20 * time.Millisecond)
	assert.Nil(t, p.ConsumeDueFrame(89*time.Millisecond))
	f = waitFrame(t, p, 90*time.Millisecond)
	assert.Equal(t, 100*time.Millisecond, f.Time())
	f.Release()
}

func TestSeekScenario(t *testing.T) {
	p, clock := newTestPlayer(t, DefaultConfig(), "testsrc:duration=10s,fps=30,gop=30")
	defer p.Close()

	require.NoError(t, p.Play())
	f := waitFrame(t, p, 0)
	f.Release()

	require.NoError(t, p.Seek(5*time.Second))
	assert.True(t, p.IsPlaying())
	assert.Equal(t, 5*time.Second, p.Position(clock.Now()))

	for k := 0; k < 30; k++ {
		now := frameTime(k)
		f := waitFrame(t, p, now)
		assert.Equal(t, 5*time.Second+now, f.Time())
		f.Release()
	}
}

func TestSeekWhilePausedStaysPaused(t *testing.T) {
	p, clock := newTestPlayer(t, DefaultConfig(), "testsrc:duration=10s,fps=30")
	defer p.Close()

	require.NoError(t, p.Play())
	require.NoError(t, p.Pause())
	require.NoError(t, p.Seek(2*time.Second))
	assert.True(t, p.IsPaused())

	clock.Set(time.Hour)
	assert.Equal(t, 2*time.Second, p.Position(clock.Now()))
	assert.Nil(t, p.ConsumeDueFrame(clock.Now()))

	require.NoError(t, p.Play())
	f := waitFrame(t, p, clock.Now())
	assert.Equal(t, 2*time.Second, f.Time())
	f.Release()
}

func TestPauseResume(t *testing.T) {
	p, clock := newTestPlayer(t, DefaultConfig(), "testsrc:duration=10s,fps=30")
	defer p.Close()

	require.NoError(t, p.Play())
	clock.Set(time.Second)
	require.NoError(t, p.Pause())
	assert.Equal(t, time.Second, p.Position(clock.Now()))

	clock.Set(5 * time.Second)
	assert.Equal(t, time.Second, p.Position(clock.Now()))
	assert.Nil(t, p.ConsumeDueFrame(clock.Now()))

	// Resuming shifts the anchor by the paused span.
	require.NoError(t, p.Play())
	assert.Equal(t, 1100*time.Millisecond, p.Position(5100*time.Millisecond))

	assert.NoError(t, p.Play())
	require.NoError(t, p.Pause())
	assert.NoError(t, p.Pause())
	assert.Equal(t, Paused, p.State())
}

func TestPauseOutsidePlayingDoesNothing(t *testing.T) {
	p, _ := newTestPlayer(t, DefaultConfig(), "testsrc:duration=1s,fps=10")
	defer p.Close()

	assert.NoError(t, p.Pause())
	assert.Equal(t, Stopped, p.State())

	closed := NewPlayer(DefaultConfig(), &manualClock{})
	assert.NoError(t, closed.Pause())
	assert.Equal(t, Stopped, closed.State())
}

func TestTeardownAndReopen(t *testing.T) {
	p, _ := newTestPlayer(t, DefaultConfig(), "testsrc:duration=10s,fps=30,audio=pcmu")
	defer p.Close()

	require.NoError(t, p.Play())
	for k := 0; k < 10; k++ {
		f := waitFrame(t, p, frameTime(k))
		f.Release()
	}

	assert.Equal(t, ErrInvalidState, errors.Cause(p.Open("testsrc:")))

	require.NoError(t, p.Stop())
	assert.True(t, p.IsStopped())
	assert.False(t, p.workers.running())
	assert.Equal(t, time.Duration(0), p.Position(time.Hour))

	// Stop rewinds: playing again starts from the first frame.
	require.NoError(t, p.Play())
	f := waitFrame(t, p, 0)
	assert.Equal(t, time.Duration(0), f.Time())
	f.Release()
	require.NoError(t, p.Stop())

	require.NoError(t, p.Open("testsrc:duration=1s,fps=10,size=8x8"))
	assert.False(t, p.HasAudio())
	require.NoError(t, p.Play())
	f = waitFrame(t, p, 0)
	assert.Equal(t, 8, f.Width)
	f.Release()

	require.NoError(t, p.Close())
	assert.Equal(t, ErrNotOpen, p.Play())
}

func TestOpenFailureLeavesPlayerClosed(t *testing.T) {
	p := NewPlayer(DefaultConfig(), &manualClock{})
	require.NoError(t, p.Open("testsrc:duration=1s"))

	assert.Error(t, p.Open("/no/such/file.mp4"))
	assert.False(t, p.HasVideo())
	assert.Equal(t, ErrNotOpen, p.Play())
}

func TestOpenFailureWhileFinished(t *testing.T) {
	p, _ := newTestPlayer(t, DefaultConfig(), "testsrc:duration=200ms,fps=10")
	defer p.Close()

	require.NoError(t, p.Play())
	waitState(t, p, time.Second, Finished)

	assert.Error(t, p.Open("/no/such/file.mp4"))
	assert.Equal(t, Stopped, p.State())
	assert.False(t, p.IsFinished())
	assert.False(t, p.HasVideo())
	assert.Equal(t, ErrNotOpen, p.Play())
}

func TestFinishedAndRestart(t *testing.T) {
	p, _ := newTestPlayer(t, DefaultConfig(), "testsrc:duration=200ms,fps=10,audio=pcma")
	defer p.Close()

	require.NoError(t, p.Play())
	waitState(t, p, time.Second, Finished)
	assert.True(t, p.Stats().LateAudioFrames > 0)

	// Play from Finished starts over.
	require.NoError(t, p.Play())
	f := waitFrame(t, p, 0)
	assert.Equal(t, time.Duration(0), f.Time())
	f.Release()
}

func TestLooping(t *testing.T) {
	p, _ := newTestPlayer(t, DefaultConfig(), "testsrc:duration=200ms,fps=10,gop=1")
	defer p.Close()
	p.SetLooping(true)
	assert.True(t, p.IsLooping())

	require.NoError(t, p.Play())
	for _, now := range []time.Duration{0, 100 * time.Millisecond} {
		f := waitFrame(t, p, now)
		assert.Equal(t, now, f.Time())
		f.Release()
	}

	// At the end playback wraps around, re-anchored at the current time.
	f := waitFrame(t, p, 200*time.Millisecond)
	assert.Equal(t, time.Duration(0), f.Time())
	f.Release()
	assert.True(t, p.IsPlaying())
	assert.Equal(t, int64(1), p.Stats().Loops)
}

func step(t *testing.T, fn func(context.Context) (*media.VideoFrame, error)) time.Duration {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	f, err := fn(ctx)
	require.NoError(t, err)
	defer f.Release()
	return f.Time()
}

func TestStepping(t *testing.T) {
	p, _ := newTestPlayer(t, DefaultConfig(), "testsrc:duration=2s,fps=10,size=8x8")
	defer p.Close()

	ms := time.Millisecond
	assert.Equal(t, 0*ms, step(t, p.StepForward))
	assert.True(t, p.IsPaused())
	assert.Equal(t, 100*ms, step(t, p.StepForward))
	assert.Equal(t, 200*ms, step(t, p.StepForward))

	assert.Equal(t, 100*ms, step(t, p.StepBackward))
	assert.Equal(t, 0*ms, step(t, p.StepBackward))
	_, err := p.StepBackward(context.Background())
	assert.Equal(t, io.EOF, err)

	assert.Equal(t, 100*ms, step(t, p.StepForward))
	assert.Equal(t, 200*ms, step(t, p.StepForward))
	assert.Equal(t, 300*ms, step(t, p.StepForward))
	assert.Equal(t, 300*ms, p.Position(time.Hour))
	assert.Equal(t, 4, p.Stats().HistoryFrames)
}

func TestStepBackwardBySeeking(t *testing.T) {
	config := DefaultConfig()
	config.StepHistory = 0
	p, _ := newTestPlayer(t, config, "testsrc:duration=2s,fps=10,size=8x8")
	defer p.Close()

	require.NoError(t, p.Play())
	for _, now := range []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond} {
		f := waitFrame(t, p, now)
		f.Release()
	}

	assert.Equal(t, 100*time.Millisecond, step(t, p.StepBackward))
	assert.True(t, p.IsPaused())
	assert.Equal(t, 200*time.Millisecond, step(t, p.StepForward))
}

type recordingSink struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	rate     int
	channels int
	format   av.SampleFormat
}

func (s *recordingSink) Configure(rate, channels int, format av.SampleFormat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rate, s.channels, s.format = rate, channels, format
	return nil
}

func (s *recordingSink) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(b)
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Len()
}

var _ media.AudioSink = &recordingSink{}

func TestAudioPumpKeepsBuffersInFlight(t *testing.T) {
	p, clock := newTestPlayer(t, DefaultConfig(), "testsrc:duration=1s,fps=10,audio=pcmu")
	defer p.Close()
	rate, channels := p.AudioFormat()
	assert.Equal(t, 8000, rate)
	assert.Equal(t, 1, channels)

	sink := &recordingSink{}
	pump := NewAudioPump(p, sink)
	require.NoError(t, p.Play())

	// Three 20ms frames of 160 mono samples each.
	const frameBytes = 320
	fillUntil := func(n int) {
		deadline := time.Now().Add(5 * time.Second)
		for sink.Len() < n && time.Now().Before(deadline) {
			require.NoError(t, pump.fill())
			time.Sleep(time.Millisecond)
		}
		require.Equal(t, n, sink.Len())
	}
	fillUntil(3 * frameBytes)
	require.NoError(t, pump.fill())
	assert.Equal(t, 3*frameBytes, sink.Len())
	assert.Equal(t, 8000, sink.rate)
	assert.Equal(t, av.S16, sink.format)

	clock.Set(20 * time.Millisecond)
	fillUntil(4 * frameBytes)
	assert.Equal(t, 80*time.Millisecond, p.AudioTime())
}

func TestVolume(t *testing.T) {
	p := NewPlayer(DefaultConfig(), nil)
	assert.Equal(t, 1.0, p.Volume())
	p.SetVolume(2)
	assert.Equal(t, 1.0, p.Volume())
	p.SetVolume(-1)
	assert.Equal(t, 0.0, p.Volume())

	f := media.NewAudioFrame(1, 8000, 2, 0)
	defer f.Release()
	copy(f.Bytes(), []byte{0xe8, 0x03, 0x18, 0xfc}) // 1000, -1000
	applyVolume(f, 0.5)
	assert.Equal(t, []byte{0xf4, 0x01, 0x0c, 0xfe}, f.Bytes())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "playing", Playing.String())
	assert.Equal(t, "finished", Finished.String())
}
