package media

import "time"

// Packet is one compressed data unit of an elementary stream. Packets are
// treated as immutable once queued.
type Packet struct {
	// Index of the stream within the container.
	Idx int

	Data []byte

	// Decode and presentation timestamps. Either may be unknown.
	DTS    time.Duration
	HasDTS bool
	PTS    time.Duration
	HasPTS bool

	Duration   time.Duration
	IsKeyFrame bool

	flush bool
}

// FlushMarker is queued in place of a packet to tell the decoder to discard
// everything it has accumulated, e.g. after a seek.
var FlushMarker = Packet{Idx: -1, flush: true}

// IsFlush reports whether p is the FlushMarker.
func (p Packet) IsFlush() bool {
	return p.flush
}

// Clone returns a copy of p that owns its payload, so the demuxer can reuse
// its read buffer.
func (p Packet) Clone() Packet {
	if p.Data != nil {
		data := make([]byte, len(p.Data))
		copy(data, p.Data)
		p.Data = data
	}
	return p
}
