package demux

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/codec/h264parser"
	"github.com/pkg/errors"

	"github.com/lanikai/alohaplay/internal/media"
)

// Raw H.264 elementary stream with NALUs separated by Annex B start codes.
// The stream carries no timestamps, so packets are stamped at a fixed rate.

const (
	naluBufferInitialSize = 16 * 1024
	naluBufferMaximumSize = 1024 * 1024

	annexBFrameDuration = time.Second / 25
)

// NAL unit types.
const (
	naluSlice     = 1
	naluIDR       = 5
	naluSEI       = 6
	naluSPS       = 7
	naluPPS       = 8
	naluDelimiter = 9
)

type nalu []byte

func (n nalu) Type() byte {
	return n[0] & 0x1f
}

func (n nalu) isVCL() bool {
	t := n.Type()
	return t == naluSlice || t == naluIDR
}

// firstSlice reports whether a slice NALU starts a new picture, i.e. its
// first_mb_in_slice is zero. That Exp-Golomb value is the single bit '1'.
func (n nalu) firstSlice() bool {
	return len(n) > 1 && n[1]&0x80 != 0
}

type annexBSource struct {
	in      io.ReadCloser
	scanner *bufio.Scanner
	codec   h264parser.CodecData

	// NALU read ahead of the access unit being assembled.
	next  nalu
	count int
}

func openAnnexB(filename string) (Source, error) {
	log.Info("Opening file %s", filename)
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	src, err := newAnnexBSource(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return src, nil
}

func newAnnexBSource(in io.ReadCloser) (*annexBSource, error) {
	s := &annexBSource{in: in, scanner: newNALUScanner(in)}

	// Codec parameters come from the first SPS and PPS. Anything before
	// them can't be decoded and is skipped.
	var sps, pps []byte
	for sps == nil || pps == nil {
		n, err := s.readNALU()
		if err != nil {
			return nil, errors.Wrap(err, "looking for SPS/PPS")
		}
		switch n.Type() {
		case naluSPS:
			sps = n
		case naluPPS:
			pps = n
		}
	}
	codec, err := h264parser.NewCodecDataFromSPSAndPPS(sps, pps)
	if err != nil {
		return nil, err
	}
	s.codec = codec
	return s, nil
}

func newNALUScanner(in io.Reader) *bufio.Scanner {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, naluBufferInitialSize), naluBufferMaximumSize)
	scanner.Split(splitNALU)
	return scanner
}

func (s *annexBSource) readNALU() (nalu, error) {
	for s.scanner.Scan() {
		b := s.scanner.Bytes()
		if len(b) == 0 {
			continue
		}
		// The scanner reuses its buffer.
		n := make(nalu, len(b))
		copy(n, b)
		return n, nil
	}
	if err := s.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *annexBSource) Streams() ([]av.CodecData, error) {
	return []av.CodecData{s.codec}, nil
}

// ReadPacket assembles the next access unit and converts it to the length
// prefixed form decoders expect. Parameter sets and delimiters are dropped;
// the codec data already carries them.
func (s *annexBSource) ReadPacket() (media.Packet, error) {
	var au []nalu
	havePicture := false
	for {
		n := s.next
		s.next = nil
		if n == nil {
			var err error
			n, err = s.readNALU()
			if err == io.EOF && havePicture {
				break
			}
			if err != nil {
				return media.Packet{}, err
			}
		}
		if n.isVCL() {
			if havePicture && n.firstSlice() {
				s.next = n
				break
			}
			havePicture = true
		} else if havePicture && n.Type() != naluSEI {
			// A parameter set or delimiter after a picture begins the
			// next access unit.
			s.next = n
			break
		}
		au = append(au, n)
	}

	pkt := media.Packet{
		DTS:      time.Duration(s.count) * annexBFrameDuration,
		HasDTS:   true,
		Duration: annexBFrameDuration,
	}
	pkt.Data, pkt.IsKeyFrame = packAVCC(au)
	s.count++
	return pkt, nil
}

func (s *annexBSource) Close() error {
	return s.in.Close()
}

// packAVCC writes picture NALUs with 4-byte big endian length prefixes.
func packAVCC(au []nalu) (data []byte, key bool) {
	var buf bytes.Buffer
	var size [4]byte
	for _, n := range au {
		switch n.Type() {
		case naluSPS, naluPPS, naluDelimiter:
			continue
		case naluIDR:
			key = true
		}
		binary.BigEndian.PutUint32(size[:], uint32(len(n)))
		buf.Write(size[:])
		buf.Write(n)
	}
	return buf.Bytes(), key
}

var h264StartCode = []byte{0, 0, 1}

// Splits NAL units on H.264 Annex B start codes.
func splitNALU(data []byte, atEOF bool) (advance int, token []byte, err error) {
	i := bytes.Index(data, h264StartCode)

	switch i {
	case -1:
		if atEOF && len(data) > 0 {
			// Final NALU runs to the end of the input.
			return len(data), data, nil
		}
		// No start code found. Wait for more data.
		advance = 0
	case 0:
		// 3-byte start code (0x000001) found at data[0]. Skip these 3 bytes.
		advance = 3
	case 1:
		if data[0] != 0x00 {
			advance = i + 3
			token = data[0:i]
			break
		}
		// 4-byte start code (0x00000001) found at data[0]. Skip these 4 bytes.
		advance = 4
	default:
		// Next start code found at index i.
		advance = i + 3
		if data[i-1] == 0x00 {
			// 4-byte start code
			token = data[0 : i-1]
		} else {
			// 3-byte start code
			token = data[0:i]
		}
	}
	return
}
