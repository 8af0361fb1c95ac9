package demux

import (
	"bytes"
	"io/ioutil"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func annexB(nalus ...[]byte) []byte {
	var buf bytes.Buffer
	for i, n := range nalus {
		if i%2 == 0 {
			buf.Write([]byte{0, 0, 0, 1})
		} else {
			buf.Write([]byte{0, 0, 1})
		}
		buf.Write(n)
	}
	return buf.Bytes()
}

func TestSplitNALU(t *testing.T) {
	data := annexB(
		[]byte{0x67, 0xaa},
		[]byte{0x68, 0xbb},
		[]byte{0x65, 0x88, 0xcc, 0xdd},
	)
	scanner := newNALUScanner(bytes.NewReader(data))

	var got [][]byte
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			got = append(got, append([]byte(nil), scanner.Bytes()...))
		}
	}
	require.NoError(t, scanner.Err())
	assert.Equal(t, [][]byte{
		{0x67, 0xaa},
		{0x68, 0xbb},
		{0x65, 0x88, 0xcc, 0xdd},
	}, got)
}

func TestAnnexBAccessUnits(t *testing.T) {
	data := annexB(
		[]byte{0x09, 0xf0},       // delimiter
		[]byte{0x06, 0x05, 0x01}, // SEI
		[]byte{0x65, 0x88, 0x01}, // IDR slice, first in picture
		[]byte{0x65, 0x20, 0x02}, // IDR slice, continues picture
		[]byte{0x41, 0x9a, 0x03}, // non-IDR slice, next picture
		[]byte{0x41, 0x9a, 0x04},
	)
	s := &annexBSource{
		in:      ioutil.NopCloser(bytes.NewReader(data)),
		scanner: newNALUScanner(bytes.NewReader(data)),
	}

	pkt, err := s.ReadPacket()
	require.NoError(t, err)
	assert.True(t, pkt.IsKeyFrame)
	assert.False(t, pkt.HasPTS)
	assert.Equal(t, time.Duration(0), pkt.DTS)
	// SEI and both IDR slices, each with a 4-byte length; no delimiter.
	assert.Equal(t, []byte{
		0, 0, 0, 3, 0x06, 0x05, 0x01,
		0, 0, 0, 3, 0x65, 0x88, 0x01,
		0, 0, 0, 3, 0x65, 0x20, 0x02,
	}, pkt.Data)

	pkt, err = s.ReadPacket()
	require.NoError(t, err)
	assert.False(t, pkt.IsKeyFrame)
	assert.Equal(t, annexBFrameDuration, pkt.DTS)
	assert.Equal(t, []byte{0, 0, 0, 3, 0x41, 0x9a, 0x03}, pkt.Data)

	pkt, err = s.ReadPacket()
	require.NoError(t, err)
	assert.Equal(t, 2*annexBFrameDuration, pkt.DTS)

	_, err = s.ReadPacket()
	assert.Error(t, err)
}
