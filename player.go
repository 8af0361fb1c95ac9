// Package alohaplay plays media files and streams. A Player demuxes and
// decodes ahead of time on background goroutines; the renderer pulls frames
// when they are due:
//
//	p := alohaplay.NewPlayer(alohaplay.DefaultConfig(), nil)
//	if err := p.Open("movie.mp4"); err != nil {
//		...
//	}
//	p.Play()
//	for range ticker.C {
//		if f := p.DueFrame(); f != nil {
//			upload(f.Bytes(), f.Width, f.Height)
//			f.Release()
//		}
//	}
package alohaplay

import (
	"context"
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/lanikai/alohaplay/internal/codec"
	"github.com/lanikai/alohaplay/internal/decode"
	"github.com/lanikai/alohaplay/internal/demux"
	"github.com/lanikai/alohaplay/internal/logging"
	"github.com/lanikai/alohaplay/internal/media"
	"github.com/lanikai/alohaplay/internal/queue"
)

var log = logging.DefaultLogger.WithTag("player")

// Init sets up process-wide codec and container state. NewPlayer calls it;
// it is safe to call more than once.
func Init() {
	codec.Init()
	demux.Init()
}

// Shutdown undoes Init. Players opened afterwards fail until Init runs again.
func Shutdown() {
	codec.Shutdown()
}

// Player is the transport: it owns one open input and moves between
// Stopped, Playing, Paused and Finished. All methods are safe for concurrent
// use.
type Player struct {
	config Config
	clock  Clock

	mu      sync.Mutex
	state   State
	looping bool
	volume  float64

	name        string
	demuxer     *demux.Demuxer
	video       *decode.StreamDecoder
	audio       *decode.StreamDecoder
	videoFrames *queue.FrameQueue
	audioFrames *queue.FrameQueue

	workers workers

	// The playback position is base while not playing, and base plus the
	// clock time elapsed since anchor while playing.
	base   time.Duration
	anchor time.Duration

	// Sequence numbers of the frame last handed out and of the newest frame
	// taken from the queue. They differ after stepping back through history.
	current int64
	newest  int64
	history *history

	// End of the last audio frame handed out.
	audioTime time.Duration

	stats Stats
}

// NewPlayer returns a stopped player with nothing open. A nil clock means
// the wall clock.
func NewPlayer(config Config, clock Clock) *Player {
	Init()
	if clock == nil {
		clock = WallClock()
	}
	return &Player{
		config:  config,
		clock:   clock,
		looping: config.Loop,
		volume:  clampVolume(config.Volume),
		current: -1,
		newest:  -1,
		history: newHistory(config.StepHistory),
	}
}

// Open closes whatever was open and opens name. It is only allowed while
// Stopped or Finished. On failure the player is left with nothing open.
func (p *Player) Open(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Stopped && p.state != Finished {
		return errors.Wrapf(ErrInvalidState, "open while %v", p.state)
	}
	p.closeLocked()
	p.state = Stopped

	d, err := demux.Open(name)
	if err != nil {
		return err
	}
	d.SetQueueCapacity(p.config.PacketQueueCapacity)

	video, err := decode.OpenVideo(d)
	if err != nil && errors.Cause(err) != decode.ErrNoVideoStream {
		d.Close()
		return err
	}

	var audio *decode.StreamDecoder
	if !p.config.DisableAudio {
		audio, err = decode.OpenAudio(d)
		if err != nil && errors.Cause(err) != decode.ErrNoAudioStream {
			log.Warn("Playing %s without audio: %v", name, err)
		}
	}

	if video == nil && audio == nil {
		d.Close()
		return errors.Wrap(errNoStreams, name)
	}

	p.name = name
	p.demuxer = d
	p.video = video
	p.audio = audio
	if video != nil {
		p.videoFrames = queue.NewFrameQueue(p.config.VideoQueueCapacity)
	}
	if audio != nil {
		p.audioFrames = queue.NewFrameQueue(p.config.AudioQueueCapacity)
	}
	p.base = 0
	p.current, p.newest = -1, -1
	p.audioTime = 0
	p.state = Stopped
	p.stats = Stats{}

	log.Info("Opened %s (video: %v, audio: %v)", name, video != nil, audio != nil)
	return nil
}

// Play starts or resumes playback. From Finished it starts over.
func (p *Player) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.demuxer == nil {
		return ErrNotOpen
	}

	now := p.clock.Now()
	switch p.state {
	case Playing:
		return nil
	case Finished:
		p.workers.stop(p.joinTimeout())
		if err := p.seekPipeline(0); err != nil {
			return err
		}
		p.base = 0
	case Paused, Stopped:
		// Frames stepped back to came from history; the queue is ahead.
		if p.current >= 0 && p.current < p.newest {
			p.workers.stop(p.joinTimeout())
			if err := p.seekPipeline(p.base); err != nil {
				return err
			}
		}
	}

	p.anchor = now
	p.state = Playing
	p.startWorkers()
	log.Debug("Playing %s from %v", p.name, p.base)
	return nil
}

// Pause freezes the playback position. Decoding continues until the queues
// are full. Pausing in any other state than Playing does nothing.
func (p *Player) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Playing {
		return nil
	}
	p.base = p.positionLocked(p.clock.Now())
	p.state = Paused
	return nil
}

// Stop halts the pipeline and rewinds to the start.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.workers.stop(p.joinTimeout())
	p.state = Stopped
	if p.demuxer == nil {
		return nil
	}
	return p.rewindLocked(0)
}

// Seek moves the playback position to t. A playing player keeps playing, a
// paused one stays paused, a finished one becomes paused.
func (p *Player) Seek(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.demuxer == nil {
		return ErrNotOpen
	}
	if t < 0 {
		t = 0
	}

	p.workers.stop(p.joinTimeout())
	if err := p.seekPipeline(t); err != nil {
		return err
	}
	p.base = t
	p.anchor = p.clock.Now()

	switch p.state {
	case Finished:
		p.state = Paused
		p.startWorkers()
	case Playing, Paused:
		p.startWorkers()
	}
	log.Debug("Seeked %s to %v", p.name, t)
	return nil
}

// DueFrame is ConsumeDueFrame at the player clock's current time.
func (p *Player) DueFrame() *media.VideoFrame {
	return p.ConsumeDueFrame(p.clock.Now())
}

// ConsumeDueFrame returns the next video frame if it is due at clock time
// now, i.e. its time is no later than the playback position plus the
// configured tolerance. Otherwise it returns nil. The caller must Release
// the frame. Reaching the end of every stream finishes playback or, when
// looping, starts over.
func (p *Player) ConsumeDueFrame(now time.Duration) *media.VideoFrame {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Playing {
		return nil
	}
	elapsed := p.positionLocked(now)
	p.dropLateAudio(elapsed)

	var f media.Frame
	if p.videoFrames != nil {
		f = p.videoFrames.Front()
	}
	if f == nil {
		p.checkFinished(now, elapsed)
		return nil
	}
	if f.Time() > elapsed+time.Duration(p.config.Tolerance) {
		return nil
	}

	p.videoFrames.Pop()
	vf := f.(*media.VideoFrame)
	p.deliver(vf)
	return vf
}

// ConsumeAudioFrame returns the next decoded audio frame with the volume
// applied, or nil if none is ready. Audio is paced by whoever consumes it,
// normally an AudioPump.
func (p *Player) ConsumeAudioFrame() *media.AudioFrame {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != Playing || p.audioFrames == nil {
		return nil
	}
	f := p.audioFrames.Pop()
	if f == nil {
		return nil
	}
	af := f.(*media.AudioFrame)
	applyVolume(af, p.volume)
	p.audioTime = af.PTS + af.Duration()
	p.stats.AudioFrames++
	return af
}

// StepForward pauses playback and returns the frame after the current one,
// waiting for it to be decoded if necessary. It returns io.EOF at the end of
// the video.
func (p *Player) StepForward(ctx context.Context) (*media.VideoFrame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.prepareStep(); err != nil {
		return nil, err
	}

	if p.current < p.newest {
		if f := p.history.get(p.current + 1); f != nil {
			p.current = f.Seq
			p.base = f.PTS
			return f, nil
		}
		// History doesn't reach the queue. Reload from here.
		p.workers.stop(p.joinTimeout())
		if err := p.seekPipeline(p.base); err != nil {
			return nil, err
		}
		p.startWorkers()
	}
	return p.popStep(ctx)
}

// StepBackward pauses playback and returns the frame before the current one,
// from history if possible and by seeking otherwise. It returns io.EOF at the
// first frame.
func (p *Player) StepBackward(ctx context.Context) (*media.VideoFrame, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.prepareStep(); err != nil {
		return nil, err
	}
	if p.current <= 0 {
		return nil, io.EOF
	}

	target := p.current - 1
	if f := p.history.get(target); f != nil {
		p.current = target
		p.base = f.PTS
		return f, nil
	}

	p.workers.stop(p.joinTimeout())
	if err := p.seekPipeline(time.Duration(target) * p.video.FrameDuration()); err != nil {
		return nil, err
	}
	p.startWorkers()
	return p.popStep(ctx)
}

func (p *Player) prepareStep() error {
	if p.video == nil {
		return ErrNotOpen
	}
	switch p.state {
	case Playing:
		p.base = p.positionLocked(p.clock.Now())
	case Stopped:
		p.startWorkers()
	case Finished:
		return io.EOF
	}
	p.state = Paused
	return nil
}

func (p *Player) popStep(ctx context.Context) (*media.VideoFrame, error) {
	f, err := p.videoFrames.PopWait(ctx)
	if err != nil {
		return nil, err
	}
	vf := f.(*media.VideoFrame)
	p.deliver(vf)
	p.base = vf.PTS
	return vf, nil
}

// deliver records a frame taken from the queue on its way to the caller.
func (p *Player) deliver(f *media.VideoFrame) {
	p.history.add(f)
	p.current = f.Seq
	p.newest = f.Seq
	p.stats.VideoFrames++
}

// checkFinished handles the end of all streams.
func (p *Player) checkFinished(now, elapsed time.Duration) {
	if p.videoFrames != nil && !p.videoFrames.Exhausted() {
		return
	}
	if p.audioFrames != nil && !p.audioFrames.Exhausted() {
		return
	}

	p.workers.stop(p.joinTimeout())
	if p.looping {
		log.Debug("Looping %s", p.name)
		if err := p.seekPipeline(0); err != nil {
			log.Error("Restarting %s: %v", p.name, err)
			p.state = Finished
			p.base = elapsed
			return
		}
		p.base = 0
		p.anchor = now
		p.stats.Loops++
		p.startWorkers()
		return
	}

	log.Info("Finished %s at %v", p.name, elapsed)
	p.base = elapsed
	p.state = Finished
}

// dropLateAudio discards audio nobody consumed in time, so an idle audio
// stream can't stall the demuxer.
func (p *Player) dropLateAudio(elapsed time.Duration) {
	if p.audioFrames == nil {
		return
	}
	deadline := elapsed - time.Duration(p.config.AudioLateness)
	for {
		f := p.audioFrames.Front()
		if f == nil {
			return
		}
		af := f.(*media.AudioFrame)
		if af.PTS+af.Duration() >= deadline {
			return
		}
		p.audioFrames.Pop()
		af.Release()
		p.stats.LateAudioFrames++
	}
}

func (p *Player) startWorkers() {
	if p.workers.running() {
		return
	}
	fns := []workerFunc{p.demuxer.Run}
	if p.video != nil {
		fns = append(fns, func(ctx context.Context) error {
			return p.video.Run(ctx, p.videoFrames)
		})
	}
	if p.audio != nil {
		fns = append(fns, func(ctx context.Context) error {
			return p.audio.Run(ctx, p.audioFrames)
		})
	}
	p.workers.start(fns...)
}

// seekPipeline repositions the demuxer and empties everything downstream of
// it. The workers must be stopped.
func (p *Player) seekPipeline(t time.Duration) error {
	if err := p.demuxer.Seek(t); err != nil {
		return err
	}
	if p.video != nil {
		p.video.Reset(t)
		p.videoFrames.Flush()
	}
	if p.audio != nil {
		p.audio.Reset(t)
		p.audioFrames.Flush()
	}
	p.history.clear()
	p.current = -1
	p.newest = -1
	p.audioTime = t
	return nil
}

func (p *Player) rewindLocked(t time.Duration) error {
	p.base = t
	return p.seekPipeline(t)
}

func (p *Player) positionLocked(now time.Duration) time.Duration {
	if p.state == Playing {
		return p.base + now - p.anchor
	}
	return p.base
}

func (p *Player) joinTimeout() time.Duration {
	return time.Duration(p.config.JoinTimeout)
}

// Close stops playback and releases the input.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state = Stopped
	return p.closeLocked()
}

func (p *Player) closeLocked() error {
	p.workers.stop(p.joinTimeout())
	p.history.clear()
	p.current, p.newest = -1, -1

	if p.videoFrames != nil {
		p.videoFrames.Flush()
	}
	if p.audioFrames != nil {
		p.audioFrames.Flush()
	}
	if p.video != nil {
		p.video.Close()
	}
	if p.audio != nil {
		p.audio.Close()
	}

	var err error
	if p.demuxer != nil {
		err = p.demuxer.Close()
		log.Debug("Closed %s", p.name)
	}
	p.demuxer, p.video, p.audio = nil, nil, nil
	p.videoFrames, p.audioFrames = nil, nil
	p.name = ""
	return err
}

// Position returns the playback position at clock time now.
func (p *Player) Position(now time.Duration) time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked(now)
}

// AudioTime returns the end of the last audio frame handed out.
func (p *Player) AudioTime() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audioTime
}

// Now reads the player's clock.
func (p *Player) Now() time.Duration {
	return p.clock.Now()
}

func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Player) IsPlaying() bool  { return p.State() == Playing }
func (p *Player) IsPaused() bool   { return p.State() == Paused }
func (p *Player) IsStopped() bool  { return p.State() == Stopped }
func (p *Player) IsFinished() bool { return p.State() == Finished }

func (p *Player) SetLooping(loop bool) {
	p.mu.Lock()
	p.looping = loop
	p.mu.Unlock()
}

func (p *Player) IsLooping() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.looping
}

// SetVolume sets the audio gain, clamped to [0, 1].
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	p.volume = clampVolume(v)
	p.mu.Unlock()
}

func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

func (p *Player) HasVideo() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.video != nil
}

func (p *Player) HasAudio() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.audio != nil
}

// VideoSize returns the picture size of the open video stream.
func (p *Player) VideoSize() (width, height int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.video == nil {
		return 0, 0
	}
	return p.video.VideoSize()
}

// AudioFormat returns the sample rate and channel count of audio frames.
func (p *Player) AudioFormat() (rate, channels int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.audio == nil {
		return 0, 0
	}
	return p.audio.AudioFormat()
}

func clampVolume(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// applyVolume scales S16 samples in place.
func applyVolume(f *media.AudioFrame, volume float64) {
	if volume >= 1 {
		return
	}
	b := f.Bytes()
	for i := 0; i+1 < len(b); i += 2 {
		s := int16(binary.LittleEndian.Uint16(b[i:]))
		binary.LittleEndian.PutUint16(b[i:], uint16(int16(float64(s)*volume)))
	}
}
