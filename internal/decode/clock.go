package decode

import (
	"sort"
	"time"
)

// DefaultFrameDuration is assumed when neither the codec nor the packet
// timestamps say how long a frame lasts.
const DefaultFrameDuration = time.Second / 25

// streamClock assigns presentation times to decoded frames. Frames take the
// first known of: codec timestamp, packet PTS, packet DTS, running clock.
// Times never go backwards; a regression is clamped to the previous time.
type streamClock struct {
	// Nominal frame duration from the codec, zero if unknown.
	nominal time.Duration

	// Time at which the next frame is expected.
	next time.Duration

	last    time.Duration
	started bool

	lastDTS    time.Duration
	hasLastDTS bool
	dtsDelta   time.Duration
}

func (c *streamClock) reset(t time.Duration) {
	c.next = t
	c.last = 0
	c.started = false
	c.hasLastDTS = false
}

// observe records packet timing used to estimate frame durations.
func (c *streamClock) observe(dts time.Duration, hasDTS bool) {
	if !hasDTS {
		return
	}
	if c.hasLastDTS && dts > c.lastDTS {
		c.dtsDelta = dts - c.lastDTS
	}
	c.lastDTS = dts
	c.hasLastDTS = true
}

// frameDuration is the nominal duration of one frame.
func (c *streamClock) frameDuration() time.Duration {
	switch {
	case c.nominal > 0:
		return c.nominal
	case c.dtsDelta > 0:
		return c.dtsDelta
	}
	return DefaultFrameDuration
}

// stamp returns the presentation time for a frame and advances the running
// clock past it. Each repeat extends the frame by half a frame period.
func (c *streamClock) stamp(t time.Duration, known bool, duration time.Duration, repeat int) time.Duration {
	if !known {
		t = c.next
	}
	if c.started && t < c.last {
		t = c.last
	}
	c.last = t
	c.started = true

	if duration <= 0 {
		duration = c.frameDuration()
	}
	c.next = t + duration + duration*time.Duration(repeat)/2
	return t
}

// Pictures a codec may hold back before returning them. Timestamps of
// pictures the codec dropped are discarded once this many are pending.
const maxReorder = 16

// ptsQueue holds the timestamps of packets whose pictures the codec has not
// returned yet, in ascending order. Codecs that reorder (B-frames) return
// pictures in presentation order, so each picture takes the smallest
// pending timestamp.
type ptsQueue struct {
	ts []time.Duration
}

func (q *ptsQueue) push(t time.Duration) {
	if len(q.ts) == maxReorder {
		q.pop()
	}
	i := sort.Search(len(q.ts), func(i int) bool { return q.ts[i] > t })
	q.ts = append(q.ts, 0)
	copy(q.ts[i+1:], q.ts[i:])
	q.ts[i] = t
}

// pop removes and returns the smallest pending timestamp.
func (q *ptsQueue) pop() (time.Duration, bool) {
	if len(q.ts) == 0 {
		return 0, false
	}
	t := q.ts[0]
	copy(q.ts, q.ts[1:])
	q.ts = q.ts[:len(q.ts)-1]
	return t, true
}

// remove forgets one occurrence of t, e.g. for a packet the codec rejected.
func (q *ptsQueue) remove(t time.Duration) {
	for i, v := range q.ts {
		if v == t {
			q.ts = append(q.ts[:i], q.ts[i+1:]...)
			return
		}
	}
}

func (q *ptsQueue) clear() {
	q.ts = q.ts[:0]
}
