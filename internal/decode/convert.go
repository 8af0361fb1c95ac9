package decode

import (
	"encoding/binary"
	"math"

	"github.com/nareix/joy4/av"
)

// toS16 writes frame as interleaved signed 16-bit little endian samples into
// dst, which must hold SampleCount * channels * 2 bytes.
func toS16(dst []byte, frame av.AudioFrame) error {
	channels := frame.ChannelLayout.Count()
	bps := frame.SampleFormat.BytesPerSample()
	if channels == 0 || bps == 0 {
		return errSampleFormat
	}

	planar := frame.SampleFormat.IsPlanar()
	if planar && len(frame.Data) < channels || len(frame.Data) < 1 {
		return errSampleFormat
	}

	for i := 0; i < frame.SampleCount; i++ {
		for ch := 0; ch < channels; ch++ {
			var src []byte
			if planar {
				src = frame.Data[ch][i*bps:]
			} else {
				src = frame.Data[0][(i*channels+ch)*bps:]
			}
			s, err := sampleS16(frame.SampleFormat, src)
			if err != nil {
				return err
			}
			binary.LittleEndian.PutUint16(dst[2*(i*channels+ch):], uint16(s))
		}
	}
	return nil
}

func sampleS16(format av.SampleFormat, b []byte) (int16, error) {
	switch format {
	case av.U8, av.U8P:
		return int16(int(b[0])-128) << 8, nil
	case av.S16, av.S16P:
		return int16(binary.LittleEndian.Uint16(b)), nil
	case av.S32, av.S32P:
		return int16(int32(binary.LittleEndian.Uint32(b)) >> 16), nil
	case av.FLT, av.FLTP:
		return floatS16(float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))), nil
	case av.DBL, av.DBLP:
		return floatS16(math.Float64frombits(binary.LittleEndian.Uint64(b))), nil
	}
	return 0, errSampleFormat
}

func floatS16(v float64) int16 {
	switch {
	case v >= 1:
		return math.MaxInt16
	case v <= -1:
		return math.MinInt16
	}
	return int16(v * math.MaxInt16)
}
