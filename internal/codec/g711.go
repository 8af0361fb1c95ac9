//////////////////////////////////////////////////////////////////////////////
//
// PCM μ-law and A-law (ITU-T G.711) audio codecs. Samples are expanded to
// 16-bit signed linear PCM through lookup tables built at startup.
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package codec

import (
	"encoding/binary"

	"github.com/nareix/joy4/av"
)

var (
	pcmuDecoderTable [256]int16
	pcmaDecoderTable [256]int16
)

func init() {
	for i := range pcmuDecoderTable {
		pcmuDecoderTable[i] = ulawToLinear(byte(i))
		pcmaDecoderTable[i] = alawToLinear(byte(i))
	}
}

func ulawToLinear(u byte) int16 {
	u = ^u
	t := (int16(u&0x0f) << 3) + 0x84
	t <<= (u & 0x70) >> 4
	if u&0x80 != 0 {
		return 0x84 - t
	}
	return t - 0x84
}

func alawToLinear(a byte) int16 {
	a ^= 0x55
	t := int16(a&0x0f) << 4
	switch seg := (a & 0x70) >> 4; seg {
	case 0:
		t += 8
	case 1:
		t += 0x108
	default:
		t += 0x108
		t <<= seg - 1
	}
	if a&0x80 != 0 {
		return t
	}
	return -t
}

// g711Decoder implements AudioDecoder for PCM μ-law and A-law. Each 8-bit
// sample becomes one 16-bit signed sample, so the output is twice the length
// of the input.
type g711Decoder struct {
	table  *[256]int16
	rate   int
	layout av.ChannelLayout
}

func newG711Decoder(cd av.AudioCodecData) (AudioDecoder, error) {
	d := &g711Decoder{
		table:  &pcmuDecoderTable,
		rate:   cd.SampleRate(),
		layout: cd.ChannelLayout(),
	}
	if cd.Type() == av.PCM_ALAW {
		d.table = &pcmaDecoderTable
	}
	if d.rate == 0 {
		d.rate = 8000
	}
	if d.layout.Count() == 0 {
		d.layout = av.CH_MONO
	}
	return d, nil
}

func (d *g711Decoder) Decode(data []byte) (av.AudioFrame, bool, error) {
	channels := d.layout.Count()
	samples := len(data) / channels
	if samples == 0 {
		return av.AudioFrame{}, false, nil
	}

	buffer := make([]byte, 2*samples*channels)
	for i, sample := range data[:samples*channels] {
		binary.LittleEndian.PutUint16(buffer[2*i:], uint16(d.table[sample]))
	}
	return av.AudioFrame{
		SampleFormat:  av.S16,
		ChannelLayout: d.layout,
		SampleCount:   samples,
		SampleRate:    d.rate,
		Data:          [][]byte{buffer},
	}, true, nil
}

func (d *g711Decoder) Flush() error { return nil }
func (d *g711Decoder) Close() error { return nil }

// PCMUEncoder compresses 16-bit linear PCM to μ-law.
type PCMUEncoder struct{}

// Encode plain audio buffer b into μ-law. Audio samples in b are expected in
// 16-bit little endian format, normalized to use the entire 16-bit range.
func (e PCMUEncoder) Encode(b []byte) []byte {
	buffer := make([]byte, len(b)>>1)
	for i := 0; i+1 < len(b); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(b[i:]))
		buffer[i>>1] = linearToUlaw(sample)
	}
	return buffer
}

const (
	ulawBias = 0x84
	ulawClip = 32635
)

func linearToUlaw(sample int16) byte {
	s := int(sample)
	sign := 0
	if s < 0 {
		sign = 0x80
		s = -s
	}
	if s > ulawClip {
		s = ulawClip
	}
	s += ulawBias

	exponent := 7
	for mask := 0x4000; s&mask == 0 && exponent > 0; mask >>= 1 {
		exponent--
	}
	mantissa := (s >> uint(exponent+3)) & 0x0f
	return ^byte(sign | exponent<<4 | mantissa)
}

// PCMAEncoder compresses 16-bit linear PCM to A-law.
type PCMAEncoder struct{}

func (e PCMAEncoder) Encode(b []byte) []byte {
	buffer := make([]byte, len(b)>>1)
	for i := 0; i+1 < len(b); i += 2 {
		sample := int16(binary.LittleEndian.Uint16(b[i:]))
		buffer[i>>1] = linearToAlaw(sample)
	}
	return buffer
}

// Upper bound of each A-law segment, in 13-bit magnitude.
var alawSegmentEnd = [8]int{0x1f, 0x3f, 0x7f, 0xff, 0x1ff, 0x3ff, 0x7ff, 0xfff}

func linearToAlaw(sample int16) byte {
	s := int(sample) >> 3
	mask := 0xd5
	if s < 0 {
		mask = 0x55
		s = -s - 1
	}

	seg := 0
	for seg < len(alawSegmentEnd) && s > alawSegmentEnd[seg] {
		seg++
	}
	if seg >= len(alawSegmentEnd) {
		return byte(0x7f ^ mask)
	}

	aval := seg << 4
	if seg < 2 {
		aval |= (s >> 1) & 0x0f
	} else {
		aval |= (s >> uint(seg)) & 0x0f
	}
	return byte(aval ^ mask)
}
