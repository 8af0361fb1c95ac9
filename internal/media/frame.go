package media

import (
	"time"

	"github.com/nareix/joy4/av"
)

// Pixel layout handed to the renderer: interleaved 8-bit R, G, B.
const BytesPerPixel = 3

// VideoFrame is one decoded picture in packed RGB24 layout.
type VideoFrame struct {
	Width  int
	Height int

	// Presentation time relative to the start of the stream.
	PTS time.Duration

	// Frame number at the stream's nominal rate.
	Seq int64

	buf *SharedBuffer
}

// NewVideoFrame allocates a frame buffer from the default pool.
func NewVideoFrame(width, height int, pts time.Duration) *VideoFrame {
	return &VideoFrame{
		Width:  width,
		Height: height,
		PTS:    pts,
		buf:    DefaultPool.Get(width * height * BytesPerPixel),
	}
}

// Bytes returns the packed pixels, row after row without padding.
func (f *VideoFrame) Bytes() []byte { return f.buf.Bytes() }

// Len returns the size of the pixel buffer in bytes.
func (f *VideoFrame) Len() int { return len(f.buf.Bytes()) }

// Stride returns the number of bytes per row.
func (f *VideoFrame) Stride() int { return f.Width * BytesPerPixel }

func (f *VideoFrame) Time() time.Duration { return f.PTS }

// Seconds returns the presentation time in seconds.
func (f *VideoFrame) Seconds() float64 { return f.PTS.Seconds() }

func (f *VideoFrame) Hold()    { f.buf.Hold() }
func (f *VideoFrame) Release() { f.buf.Release() }

// AudioFrame is a span of decoded PCM. Samples are always interleaved signed
// 16-bit little endian.
type AudioFrame struct {
	Channels   int
	SampleRate int

	// Number of samples per channel.
	Samples int

	PTS time.Duration

	buf *SharedBuffer
}

// SampleFormat of every AudioFrame.
const SampleFormat = av.S16

// NewAudioFrame allocates a PCM buffer for the given number of samples per
// channel.
func NewAudioFrame(channels, sampleRate, samples int, pts time.Duration) *AudioFrame {
	return &AudioFrame{
		Channels:   channels,
		SampleRate: sampleRate,
		Samples:    samples,
		PTS:        pts,
		buf:        DefaultPool.Get(samples * channels * SampleFormat.BytesPerSample()),
	}
}

func (f *AudioFrame) Bytes() []byte { return f.buf.Bytes() }
func (f *AudioFrame) Len() int      { return len(f.buf.Bytes()) }

func (f *AudioFrame) Time() time.Duration { return f.PTS }

// Duration is the playing time of the frame.
func (f *AudioFrame) Duration() time.Duration {
	if f.SampleRate == 0 {
		return 0
	}
	return time.Duration(f.Samples) * time.Second / time.Duration(f.SampleRate)
}

func (f *AudioFrame) Hold()    { f.buf.Hold() }
func (f *AudioFrame) Release() { f.buf.Release() }
