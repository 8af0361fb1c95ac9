package demux

import (
	"encoding/binary"
	"image"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nareix/joy4/av"
	joycodec "github.com/nareix/joy4/codec"
	"github.com/pkg/errors"

	"github.com/lanikai/alohaplay/internal/codec"
	"github.com/lanikai/alohaplay/internal/media"
)

// TestSourceParams configures the synthetic "testsrc:" input: a raw YUV
// picture sequence with an optional G.711 tone. It is spelled as a comma
// separated key=value list, e.g.
//
//	testsrc:duration=10s,fps=30,gop=30,size=64x48,audio=pcmu
type TestSourceParams struct {
	Duration time.Duration
	FPS      int
	GOP      int
	Width    int
	Height   int

	// "pcmu", "pcma" or empty for no audio.
	Audio string

	// Which timestamps packets carry: "pts" (both), "dts" or "none".
	Timestamps string

	// Forward-only sources are repositioned by re-opening and scanning.
	Seekable bool
}

const (
	testAudioRate  = 8000
	testAudioChunk = 20 * time.Millisecond
	testToneHz     = 440

	// Samples per chunk at testAudioRate.
	testAudioSamples = 160
)

func DefaultTestSourceParams() TestSourceParams {
	return TestSourceParams{
		Duration:   10 * time.Second,
		FPS:        30,
		GOP:        30,
		Width:      64,
		Height:     48,
		Timestamps: "pts",
		Seekable:   true,
	}
}

// ParseTestSourceParams parses the part of a testsrc input name after the colon.
func ParseTestSourceParams(s string) (TestSourceParams, error) {
	p := DefaultTestSourceParams()
	for _, field := range strings.Split(s, ",") {
		if field == "" {
			continue
		}
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			return p, errors.Errorf("testsrc: malformed parameter %q", field)
		}
		key, value := kv[0], kv[1]

		var err error
		switch key {
		case "duration":
			p.Duration, err = time.ParseDuration(value)
		case "fps":
			p.FPS, err = strconv.Atoi(value)
		case "gop":
			p.GOP, err = strconv.Atoi(value)
		case "size":
			p.Width, p.Height, err = parseSize(value)
		case "audio":
			p.Audio = value
		case "timestamps":
			p.Timestamps = value
		case "seekable":
			p.Seekable, err = strconv.ParseBool(value)
		default:
			err = errors.New("unknown parameter")
		}
		if err != nil {
			return p, errors.Wrapf(err, "testsrc: %s", field)
		}
	}

	switch {
	case p.FPS <= 0:
		return p, errors.Errorf("testsrc: fps must be positive")
	case p.GOP <= 0:
		return p, errors.Errorf("testsrc: gop must be positive")
	case p.Width <= 0 || p.Height <= 0:
		return p, errors.Errorf("testsrc: invalid size %dx%d", p.Width, p.Height)
	case p.Duration < 0:
		return p, errors.Errorf("testsrc: negative duration")
	}
	switch p.Audio {
	case "", "none", "pcmu", "pcma":
	default:
		return p, errors.Errorf("testsrc: unsupported audio %q", p.Audio)
	}
	switch p.Timestamps {
	case "pts", "dts", "none":
	default:
		return p, errors.Errorf("testsrc: unknown timestamps %q", p.Timestamps)
	}
	return p, nil
}

func parseSize(s string) (w, h int, err error) {
	parts := strings.SplitN(s, "x", 2)
	if len(parts) != 2 {
		return 0, 0, errors.New("size must be WxH")
	}
	if w, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, err
	}
	if h, err = strconv.Atoi(parts[1]); err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

// Frames returns the number of pictures in the sequence.
func (p TestSourceParams) Frames() int {
	return int(p.Duration * time.Duration(p.FPS) / time.Second)
}

// FrameTime returns the presentation time of picture n.
func (p TestSourceParams) FrameTime(n int) time.Duration {
	return time.Duration(n) * time.Second / time.Duration(p.FPS)
}

func (p TestSourceParams) hasAudio() bool {
	return p.Audio == "pcmu" || p.Audio == "pcma"
}

type testSource struct {
	params  TestSourceParams
	streams []av.CodecData

	// Next picture and next audio chunk to emit.
	frame int
	chunk int

	picture *image.YCbCr
	closed  bool
}

func openTestSource(arg string) (Source, error) {
	params, err := ParseTestSourceParams(arg)
	if err != nil {
		return nil, err
	}
	return NewTestSource(params), nil
}

// NewTestSource returns a synthetic source. The result implements
// SeekableSource only if params.Seekable is set.
func NewTestSource(params TestSourceParams) Source {
	s := &testSource{
		params: params,
		streams: []av.CodecData{codec.RawVideoCodecData{
			PictureWidth:  params.Width,
			PictureHeight: params.Height,
			FrameRateNum:  params.FPS,
			FrameRateDen:  1,
		}},
		picture: image.NewYCbCr(image.Rect(0, 0, params.Width, params.Height), image.YCbCrSubsampleRatio420),
	}
	switch params.Audio {
	case "pcmu":
		s.streams = append(s.streams, joycodec.NewPCMMulawCodecData())
	case "pcma":
		s.streams = append(s.streams, joycodec.NewPCMAlawCodecData())
	}
	if params.Seekable {
		return &seekableTestSource{s}
	}
	return s
}

func (s *testSource) Streams() ([]av.CodecData, error) {
	return s.streams, nil
}

func (s *testSource) chunkTime(n int) time.Duration {
	return time.Duration(n) * testAudioChunk
}

// ReadPacket interleaves pictures and audio chunks in time order, pictures
// first on ties.
func (s *testSource) ReadPacket() (media.Packet, error) {
	if s.closed {
		return media.Packet{}, errClosed
	}
	p := s.params
	videoLeft := s.frame < p.Frames()
	audioLeft := p.hasAudio() && s.chunkTime(s.chunk) < p.Duration

	switch {
	case videoLeft && (!audioLeft || p.FrameTime(s.frame) <= s.chunkTime(s.chunk)):
		pkt := s.videoPacket(s.frame)
		s.frame++
		return pkt, nil
	case audioLeft:
		pkt := s.audioPacket(s.chunk)
		s.chunk++
		return pkt, nil
	default:
		return media.Packet{}, io.EOF
	}
}

func (s *testSource) stamp(pkt *media.Packet, t time.Duration) {
	switch s.params.Timestamps {
	case "pts":
		pkt.PTS, pkt.HasPTS = t, true
		pkt.DTS, pkt.HasDTS = t, true
	case "dts":
		pkt.DTS, pkt.HasDTS = t, true
	}
}

// Each picture is a diagonal luma ramp shifted by the picture number, so
// every picture differs from its neighbors.
func (s *testSource) videoPacket(n int) media.Packet {
	img := s.picture
	for y := 0; y < s.params.Height; y++ {
		row := img.Y[y*img.YStride:]
		for x := 0; x < s.params.Width; x++ {
			row[x] = byte(16 + (x+y+n)%220)
		}
	}
	for i := range img.Cb {
		img.Cb[i] = byte(128 + n%64)
		img.Cr[i] = byte(128 - n%64)
	}

	pkt := media.Packet{
		Idx:        0,
		Data:       codec.EncodeRawVideo(img),
		Duration:   s.params.FrameTime(n+1) - s.params.FrameTime(n),
		IsKeyFrame: n%s.params.GOP == 0,
	}
	s.stamp(&pkt, s.params.FrameTime(n))
	return pkt
}

func (s *testSource) audioPacket(n int) media.Packet {
	pcm := make([]byte, 2*testAudioSamples)
	for i := 0; i < testAudioSamples; i++ {
		t := float64(n*testAudioSamples+i) / testAudioRate
		v := int16(8000 * math.Sin(2*math.Pi*testToneHz*t))
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(v))
	}

	data := codec.PCMUEncoder{}.Encode(pcm)
	if s.params.Audio == "pcma" {
		data = codec.PCMAEncoder{}.Encode(pcm)
	}
	pkt := media.Packet{
		Idx:        1,
		Data:       data,
		Duration:   testAudioChunk,
		IsKeyFrame: true,
	}
	s.stamp(&pkt, s.chunkTime(n))
	return pkt
}

func (s *testSource) Close() error {
	s.closed = true
	return nil
}

type seekableTestSource struct {
	*testSource
}

// SeekToTime positions the video at the start of the GOP containing t, and
// the audio at the first chunk at or after that keyframe.
func (s *seekableTestSource) SeekToTime(t time.Duration) error {
	if s.closed {
		return errClosed
	}
	p := s.params
	n := int(t * time.Duration(p.FPS) / time.Second)
	if n < 0 {
		n = 0
	}
	if n > p.Frames() {
		n = p.Frames()
	}
	n -= n % p.GOP
	s.frame = n

	key := p.FrameTime(n)
	s.chunk = int((key + testAudioChunk - 1) / testAudioChunk)
	return nil
}
