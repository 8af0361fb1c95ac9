// Package demux splits a container into elementary streams. Packets of the
// streams somebody registered interest in are routed to per-stream queues;
// everything else is discarded.
package demux

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/pkg/errors"

	"github.com/lanikai/alohaplay/internal/codec"
	"github.com/lanikai/alohaplay/internal/logging"
	"github.com/lanikai/alohaplay/internal/media"
	"github.com/lanikai/alohaplay/internal/queue"
)

var log = logging.DefaultLogger.WithTag("demux")

// DefaultQueueCapacity bounds each stream's packet queue.
const DefaultQueueCapacity = 64

// Stream is an elementary stream somebody registered interest in.
type Stream struct {
	Index int
	Codec av.CodecData
	Queue *queue.PacketQueue
}

// Kind returns whether s carries video or audio.
func (s *Stream) Kind() media.Kind {
	if s.Codec.Type().IsAudio() {
		return media.Audio
	}
	return media.Video
}

// Demuxer reads one input and distributes its packets. DemuxOne, Seek, Run
// and Close are serialized internally, but only one goroutine should drive
// the demuxer at a time.
type Demuxer struct {
	name string
	open OpenFunc
	arg  string

	mu        sync.Mutex
	src       Source
	streams   []av.CodecData
	interest  []*Stream
	capacity  int
	exhausted bool

	// Packets to deliver before reading from src again, left by a seek that
	// had to scan forward.
	pending []media.Packet
}

// Open opens name, which is a file path or "tag:path" (see
// RegisterFormat).
func Open(name string) (*Demuxer, error) {
	open, arg, err := lookup(name)
	if err != nil {
		return nil, &Error{"open", name, err}
	}

	src, err := open(arg)
	if err != nil {
		return nil, &Error{"open", name, err}
	}

	streams, err := src.Streams()
	if err == nil && len(streams) == 0 {
		err = errNoStreams
	}
	if err != nil {
		src.Close()
		return nil, &Error{"open", name, err}
	}

	for i, cd := range streams {
		log.Debug("%s: stream %d: %s", name, i, describe(cd))
	}

	return &Demuxer{
		name:     name,
		open:     open,
		arg:      arg,
		src:      src,
		streams:  streams,
		interest: make([]*Stream, len(streams)),
		capacity: DefaultQueueCapacity,
	}, nil
}

func describe(cd av.CodecData) string {
	switch cd := cd.(type) {
	case av.VideoCodecData:
		return fmt.Sprintf("%v %dx%d", cd.Type(), cd.Width(), cd.Height())
	case av.AudioCodecData:
		return fmt.Sprintf("%v %dHz %dch", cd.Type(), cd.SampleRate(), cd.ChannelLayout().Count())
	}
	return cd.Type().String()
}

// Name returns the input name passed to Open.
func (d *Demuxer) Name() string {
	return d.name
}

// Streams describes every stream in the input.
func (d *Demuxer) Streams() []av.CodecData {
	return d.streams
}

// Seekable reports whether Seek is native rather than a re-open and scan.
func (d *Demuxer) Seekable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.src.(SeekableSource)
	return ok
}

// SetQueueCapacity changes the capacity of packet queues created by later
// RegisterInterest calls.
func (d *Demuxer) SetQueueCapacity(n int) {
	d.mu.Lock()
	d.capacity = n
	d.mu.Unlock()
}

// BestStream picks the stream of the given kind to play: the largest picture
// for video, the most channels for audio. Streams without a registered
// decoder are skipped. Ties go to the lowest index.
func (d *Demuxer) BestStream(kind media.Kind) (int, bool) {
	best, bestScore := -1, -1
	for i, cd := range d.streams {
		if !codec.Supported(cd) {
			continue
		}
		score := -1
		switch cd := cd.(type) {
		case av.VideoCodecData:
			if kind == media.Video {
				score = cd.Width() * cd.Height()
			}
		case av.AudioCodecData:
			if kind == media.Audio {
				score = cd.ChannelLayout().Count()
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return best, best >= 0
}

// RegisterInterest starts routing packets of stream idx to a queue, which is
// allocated on the first call and returned again by later ones.
func (d *Demuxer) RegisterInterest(idx int) (*Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if idx < 0 || idx >= len(d.streams) {
		return nil, errors.Wrapf(errBadIndex, "stream %d", idx)
	}
	if s := d.interest[idx]; s != nil {
		return s, nil
	}
	s := &Stream{
		Index: idx,
		Codec: d.streams[idx],
		Queue: queue.NewPacketQueue(d.capacity),
	}
	d.interest[idx] = s
	return s, nil
}

// UnregisterInterest stops routing packets of stream idx. Its queue is
// marked EOF so a consumer still waiting on it returns.
func (d *Demuxer) UnregisterInterest(idx int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if idx < 0 || idx >= len(d.interest) || d.interest[idx] == nil {
		return
	}
	d.interest[idx].Queue.SetEOF()
	d.interest[idx] = nil
}

func (d *Demuxer) registered() []*Stream {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []*Stream
	for _, s := range d.interest {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// DemuxOne reads packets until one is routed to stream target. It returns
// false once the input is exhausted, at which point every registered queue
// is marked EOF.
func (d *Demuxer) DemuxOne(target int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for {
		idx, ok := d.readOne()
		if !ok {
			return false
		}
		if idx == target {
			return true
		}
	}
}

// readOne routes the next packet and returns its stream index, or -1 if it
// was discarded. Must be called with d.mu held.
func (d *Demuxer) readOne() (int, bool) {
	if d.exhausted {
		return 0, false
	}

	var pkt media.Packet
	if len(d.pending) > 0 {
		pkt = d.pending[0]
		d.pending = d.pending[1:]
	} else {
		var err error
		if d.src == nil {
			err = errClosed
		} else {
			pkt, err = d.src.ReadPacket()
		}
		if err != nil {
			if err != io.EOF {
				log.Error("Error reading packet from %s: %v", d.name, err)
			} else {
				log.Debug("End of %s", d.name)
			}
			d.markExhausted()
			return 0, false
		}
	}

	if pkt.Idx < 0 || pkt.Idx >= len(d.interest) || d.interest[pkt.Idx] == nil {
		return -1, true
	}
	d.interest[pkt.Idx].Queue.Push(pkt)
	return pkt.Idx, true
}

func (d *Demuxer) markExhausted() {
	d.exhausted = true
	for _, s := range d.interest {
		if s != nil {
			s.Queue.SetEOF()
		}
	}
}

// Run demuxes until the input is exhausted or ctx is done, pausing whenever
// any registered queue is full.
func (d *Demuxer) Run(ctx context.Context) error {
	streams := d.registered()
	for {
		for _, s := range streams {
			if err := s.Queue.WaitSpace(ctx); err != nil {
				return err
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		d.mu.Lock()
		_, ok := d.readOne()
		d.mu.Unlock()
		if !ok {
			return nil
		}
	}
}

// Seek flushes every registered queue and repositions the input so the next
// packets start at the keyframe at or before t. Inputs that can't seek are
// re-opened and scanned forward.
func (d *Demuxer) Seek(t time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.src == nil {
		return &Error{"seek", d.name, errClosed}
	}
	if t < 0 {
		t = 0
	}

	for _, s := range d.interest {
		if s != nil {
			s.Queue.Flush()
		}
	}
	d.pending = nil
	d.exhausted = false

	var err error
	if src, ok := d.src.(SeekableSource); ok {
		err = src.SeekToTime(t)
	} else {
		err = d.seekByScan(t)
	}
	if err != nil {
		return &Error{"seek", d.name, err}
	}
	log.Debug("%s: seeked to %v", d.name, t)
	return nil
}

// seekByScan re-opens the input and reads up to t, remembering the packets
// since the last keyframe of the leading stream so they can be replayed.
func (d *Demuxer) seekByScan(t time.Duration) error {
	src, err := d.open(d.arg)
	if err != nil {
		return err
	}
	streams, err := src.Streams()
	if err == nil && len(streams) != len(d.streams) {
		err = errors.Errorf("stream count changed from %d to %d", len(d.streams), len(streams))
	}
	if err != nil {
		src.Close()
		return err
	}
	d.src.Close()
	d.src = src

	lead := d.leadingStream()
	untimed := false
	var pending []media.Packet
	for {
		pkt, err := src.ReadPacket()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if pkt.Idx < 0 || pkt.Idx >= len(d.interest) || d.interest[pkt.Idx] == nil {
			continue
		}

		if pkt.Idx == lead && pkt.IsKeyFrame {
			ts, ok := packetTime(pkt)
			if ok && ts > t {
				pending = append(pending, pkt.Clone())
				break
			}
			untimed = untimed || !ok
			pending = pending[:0]
		}
		pending = append(pending, pkt.Clone())
	}
	if untimed && t > 0 {
		log.Warn("%s: keyframes without timestamps, seek to %v lands on the last one read", d.name, t)
	}
	d.pending = pending
	return nil
}

// leadingStream is the registered stream whose keyframes define seek points:
// video if any, otherwise the first registered stream.
func (d *Demuxer) leadingStream() int {
	lead := -1
	for i, s := range d.interest {
		if s == nil {
			continue
		}
		if s.Kind() == media.Video {
			return i
		}
		if lead < 0 {
			lead = i
		}
	}
	return lead
}

func packetTime(pkt media.Packet) (time.Duration, bool) {
	switch {
	case pkt.HasPTS:
		return pkt.PTS, true
	case pkt.HasDTS:
		return pkt.DTS, true
	}
	return 0, false
}

// Close releases the input. Queues keep whatever they hold.
func (d *Demuxer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.src == nil {
		return nil
	}
	err := d.src.Close()
	d.src = nil
	d.pending = nil
	return err
}
