// Package decode turns the packet queue of one elementary stream into
// presentation-ready frames: packed RGB24 pictures or interleaved S16 PCM.
package decode

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/pkg/errors"

	"github.com/lanikai/alohaplay/internal/codec"
	"github.com/lanikai/alohaplay/internal/color"
	"github.com/lanikai/alohaplay/internal/demux"
	"github.com/lanikai/alohaplay/internal/logging"
	"github.com/lanikai/alohaplay/internal/media"
	"github.com/lanikai/alohaplay/internal/queue"
)

var log = logging.DefaultLogger.WithTag("decode")

// Stats counts what a decoder has done since it was opened.
type Stats struct {
	Packets int64
	Frames  int64

	// Packets the codec rejected. They are skipped.
	CorruptPackets int64

	// Frames decoded but discarded because they precede a seek target.
	DroppedFrames int64
}

// StreamDecoder decodes one stream of a demuxer. The codec and clock are
// owned by whichever goroutine calls NextFrame or Run; SeekToTime and Reset
// must not run concurrently with them.
type StreamDecoder struct {
	kind    media.Kind
	demuxer *demux.Demuxer
	stream  *demux.Stream

	video codec.VideoDecoder
	audio codec.AudioDecoder

	clock streamClock

	// Timestamps of video packets inside the codec.
	pending ptsQueue

	// Frames before target are dropped after a seek.
	target    time.Duration
	hasTarget bool

	stats Stats
}

// OpenVideo opens a decoder for the best video stream of d.
func OpenVideo(d *demux.Demuxer) (*StreamDecoder, error) {
	idx, ok := d.BestStream(media.Video)
	if !ok {
		return nil, ErrNoVideoStream
	}
	return open(d, idx, media.Video)
}

// OpenAudio opens a decoder for the best audio stream of d.
func OpenAudio(d *demux.Demuxer) (*StreamDecoder, error) {
	idx, ok := d.BestStream(media.Audio)
	if !ok {
		return nil, ErrNoAudioStream
	}
	return open(d, idx, media.Audio)
}

func open(d *demux.Demuxer, idx int, kind media.Kind) (*StreamDecoder, error) {
	stream, err := d.RegisterInterest(idx)
	if err != nil {
		return nil, err
	}

	dec := &StreamDecoder{
		kind:    kind,
		demuxer: d,
		stream:  stream,
	}
	if kind == media.Video {
		dec.video, err = codec.NewVideoDecoder(stream.Codec)
		if fr, ok := stream.Codec.(codec.FrameRater); ok {
			if num, den := fr.FrameRate(); num > 0 && den > 0 {
				dec.clock.nominal = time.Duration(den) * time.Second / time.Duration(num)
			}
		}
	} else {
		dec.audio, err = codec.NewAudioDecoder(stream.Codec)
	}
	if err != nil {
		d.UnregisterInterest(idx)
		return nil, errors.Wrapf(err, "opening %v stream %d", kind, idx)
	}

	log.Info("Decoding %v stream %d of %s", kind, idx, d.Name())
	return dec, nil
}

func (dec *StreamDecoder) Kind() media.Kind {
	return dec.kind
}

// Stream returns the demuxed stream this decoder consumes.
func (dec *StreamDecoder) Stream() *demux.Stream {
	return dec.stream
}

// VideoSize returns the picture size announced by the container.
func (dec *StreamDecoder) VideoSize() (width, height int) {
	if vcd, ok := dec.stream.Codec.(av.VideoCodecData); ok {
		return vcd.Width(), vcd.Height()
	}
	return 0, 0
}

// AudioFormat returns the sample rate and channel count of decoded frames.
func (dec *StreamDecoder) AudioFormat() (rate, channels int) {
	if acd, ok := dec.stream.Codec.(av.AudioCodecData); ok {
		return acd.SampleRate(), acd.ChannelLayout().Count()
	}
	return 0, 0
}

// FrameDuration returns the nominal duration of one frame.
func (dec *StreamDecoder) FrameDuration() time.Duration {
	return dec.clock.frameDuration()
}

func (dec *StreamDecoder) Stats() Stats {
	return Stats{
		Packets:        atomic.LoadInt64(&dec.stats.Packets),
		Frames:         atomic.LoadInt64(&dec.stats.Frames),
		CorruptPackets: atomic.LoadInt64(&dec.stats.CorruptPackets),
		DroppedFrames:  atomic.LoadInt64(&dec.stats.DroppedFrames),
	}
}

// NextFrame decodes until a frame is ready, asking the demuxer for more
// packets whenever the queue runs dry. It returns io.EOF at the end of the
// stream.
func (dec *StreamDecoder) NextFrame() (media.Frame, error) {
	q := dec.stream.Queue
	for {
		pkt, ok := q.Pop()
		if !ok {
			if !dec.demuxer.DemuxOne(dec.stream.Index) && q.Count() == 0 {
				return nil, io.EOF
			}
			continue
		}
		if f := dec.decode(pkt); f != nil {
			return f, nil
		}
	}
}

// Run decodes into frames until the stream ends or ctx is done. It waits
// while frames is full and while the packet queue is empty. At the end of
// the stream frames is marked EOF and Run returns nil.
func (dec *StreamDecoder) Run(ctx context.Context, frames *queue.FrameQueue) error {
	for {
		if err := frames.WaitSpace(ctx); err != nil {
			return err
		}
		pkt, err := dec.stream.Queue.PopWait(ctx)
		if err == io.EOF {
			log.Debug("%v stream %d finished", dec.kind, dec.stream.Index)
			frames.SetEOF()
			return nil
		}
		if err != nil {
			return err
		}
		if f := dec.decode(pkt); f != nil {
			frames.Push(f)
		}
	}
}

// SeekToTime repositions the demuxer and drops decoded frames until t.
func (dec *StreamDecoder) SeekToTime(t time.Duration) error {
	if err := dec.demuxer.Seek(t); err != nil {
		return err
	}
	dec.Reset(t)
	return nil
}

// SeekToFrame seeks to the n'th frame at the nominal frame rate.
func (dec *StreamDecoder) SeekToFrame(n int) error {
	return dec.SeekToTime(time.Duration(n) * dec.FrameDuration())
}

// Reset prepares the decoder for packets that follow a demuxer seek to t,
// for when several decoders share one demuxer seek.
func (dec *StreamDecoder) Reset(t time.Duration) {
	dec.clock.reset(t)
	dec.pending.clear()
	dec.target = t
	dec.hasTarget = true
}

// decode handles one packet and returns the resulting frame, if any.
func (dec *StreamDecoder) decode(pkt media.Packet) media.Frame {
	if pkt.IsFlush() {
		dec.flush()
		return nil
	}
	atomic.AddInt64(&dec.stats.Packets, 1)
	dec.clock.observe(pkt.DTS, pkt.HasDTS)

	var f media.Frame
	var err error
	if dec.kind == media.Video {
		f, err = dec.decodeVideo(pkt)
	} else {
		f, err = dec.decodeAudio(pkt)
	}
	if err != nil {
		atomic.AddInt64(&dec.stats.CorruptPackets, 1)
		log.Warn("Skipping corrupt %v packet at %v: %v", dec.kind, pkt.DTS, err)
		return nil
	}
	if f == nil {
		return nil
	}

	if dec.hasTarget {
		if dec.beforeTarget(f) {
			atomic.AddInt64(&dec.stats.DroppedFrames, 1)
			f.Release()
			return nil
		}
		dec.hasTarget = false
	}
	atomic.AddInt64(&dec.stats.Frames, 1)
	return f
}

func (dec *StreamDecoder) beforeTarget(f media.Frame) bool {
	if af, ok := f.(*media.AudioFrame); ok {
		return af.PTS+af.Duration() <= dec.target
	}
	return f.Time() < dec.target
}

// flush drops codec state after a FlushMarker.
func (dec *StreamDecoder) flush() {
	log.Debug("Flushing %v decoder", dec.kind)
	var err error
	if dec.video != nil {
		err = dec.video.Flush()
	} else {
		err = dec.audio.Flush()
	}
	if err != nil {
		log.Warn("Flushing %v decoder: %v", dec.kind, err)
	}
	dec.clock.reset(dec.target)
	dec.pending.clear()
}

func presentationTime(pkt media.Packet) (time.Duration, bool) {
	switch {
	case pkt.HasPTS:
		return pkt.PTS, true
	case pkt.HasDTS:
		return pkt.DTS, true
	}
	return 0, false
}

func (dec *StreamDecoder) decodeVideo(pkt media.Packet) (media.Frame, error) {
	t, known := presentationTime(pkt)
	if known {
		dec.pending.push(t)
	}

	pic, ok, err := dec.video.Decode(pkt.Data)
	if err != nil {
		if known {
			dec.pending.remove(t)
		}
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	// The picture returned need not belong to this packet.
	t, known = dec.pending.pop()
	if pic.HasPTS {
		t, known = pic.PTS, true
	}
	pts := dec.clock.stamp(t, known, pkt.Duration, pic.Repeat)

	r := pic.Image.Rect
	frame := media.NewVideoFrame(r.Dx(), r.Dy(), pts)
	frame.Seq = int64((pts + dec.FrameDuration()/2) / dec.FrameDuration())
	color.YCbCrToRGB24(frame.Bytes(), pic.Image)
	return frame, nil
}

func (dec *StreamDecoder) decodeAudio(pkt media.Packet) (media.Frame, error) {
	af, ok, err := dec.audio.Decode(pkt.Data)
	if err != nil || !ok {
		return nil, err
	}

	channels := af.ChannelLayout.Count()
	frame := media.NewAudioFrame(channels, af.SampleRate, af.SampleCount, 0)
	if err := toS16(frame.Bytes(), af); err != nil {
		frame.Release()
		return nil, err
	}

	t, known := presentationTime(pkt)
	frame.PTS = dec.clock.stamp(t, known, frame.Duration(), 0)
	return frame, nil
}

// Close releases the codec. Queued packets are left alone.
func (dec *StreamDecoder) Close() error {
	if dec.video != nil {
		return dec.video.Close()
	}
	return dec.audio.Close()
}
