package codec

import (
	"encoding/binary"
	"image"
	"testing"

	"github.com/nareix/joy4/av"
	joycodec "github.com/nareix/joy4/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/xerrors"

	"github.com/lanikai/alohaplay/internal/color"
)

type unknownVideo struct{}

func (unknownVideo) Type() av.CodecType { return av.MakeVideoCodecType(0x7a7a7a7a) }
func (unknownVideo) Width() int         { return 16 }
func (unknownVideo) Height() int        { return 16 }

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()
	assert.True(t, Initialized())
	assert.True(t, Supported(RawVideoCodecData{PictureWidth: 2, PictureHeight: 2}))
	assert.True(t, Supported(joycodec.NewPCMMulawCodecData()))
	assert.True(t, Supported(joycodec.NewPCMAlawCodecData()))
	assert.False(t, Supported(unknownVideo{}))
}

func TestShutdownClearsRegistry(t *testing.T) {
	Init()
	Shutdown()
	defer Init()

	assert.False(t, Initialized())
	_, err := NewVideoDecoder(RawVideoCodecData{PictureWidth: 2, PictureHeight: 2})
	assert.True(t, xerrors.Is(err, ErrNotInitialized))
}

func TestUnsupportedCodec(t *testing.T) {
	Init()
	_, err := NewVideoDecoder(unknownVideo{})
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, ErrUnsupported))

	// An audio codec can't be opened as video.
	_, err = NewVideoDecoder(joycodec.NewPCMMulawCodecData())
	assert.True(t, xerrors.Is(err, ErrUnsupported))
}

func TestRawVideoRoundTrip(t *testing.T) {
	Init()
	cd := RawVideoCodecData{PictureWidth: 6, PictureHeight: 4, FrameRateNum: 30, FrameRateDen: 1}
	dec, err := NewVideoDecoder(cd)
	require.NoError(t, err)
	defer dec.Close()

	img := image.NewYCbCr(image.Rect(0, 0, 6, 4), image.YCbCrSubsampleRatio420)
	color.FillYCbCr(img, 81, 90, 240)
	data := EncodeRawVideo(img)
	assert.Equal(t, cd.PictureSize(), len(data))

	pic, ok, err := dec.Decode(data)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, img.Rect, pic.Image.Rect)
	assert.Equal(t, img.Y, pic.Image.Y)
	assert.Equal(t, img.Cr, pic.Image.Cr)

	_, _, err = dec.Decode(data[:10])
	assert.True(t, xerrors.Is(err, errShortPacket))
}

func TestG711Decode(t *testing.T) {
	Init()

	dec, err := NewAudioDecoder(joycodec.NewPCMMulawCodecData())
	require.NoError(t, err)

	frame, ok, err := dec.Decode([]byte{0xff, 0x7f, 0x00, 0x80})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, av.S16, frame.SampleFormat)
	assert.Equal(t, 1, frame.ChannelLayout.Count())
	assert.Equal(t, 8000, frame.SampleRate)
	assert.Equal(t, 4, frame.SampleCount)

	samples := make([]int16, 4)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(frame.Data[0][2*i:]))
	}
	assert.Equal(t, []int16{0, 0, -32124, 32124}, samples)

	alaw, err := NewAudioDecoder(joycodec.NewPCMAlawCodecData())
	require.NoError(t, err)
	frame, ok, err = alaw.Decode([]byte{0xd5, 0x55})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int16(8), int16(binary.LittleEndian.Uint16(frame.Data[0])))
	assert.Equal(t, int16(-8), int16(binary.LittleEndian.Uint16(frame.Data[0][2:])))
}

func TestPCMUEncoderRoundTrip(t *testing.T) {
	for _, s := range []int16{0, 100, -100, 1000, -1000, 12000, -12000, 32767, -32768} {
		u := linearToUlaw(s)
		back := ulawToLinear(u)

		diff := int(back) - int(s)
		if diff < 0 {
			diff = -diff
		}
		// Quantization error grows with magnitude: at most half a step of
		// the sample's segment.
		limit := 4
		for m := int(s); m > 64 || m < -64; m /= 2 {
			limit *= 2
		}
		assert.True(t, diff <= limit, "sample %d decoded as %d", s, back)
	}

	pcm := make([]byte, 4)
	binary.LittleEndian.PutUint16(pcm, uint16(int16(1000)))
	out := PCMUEncoder{}.Encode(pcm)
	assert.Len(t, out, 2)
	assert.Equal(t, byte(0xff), out[1])
}
