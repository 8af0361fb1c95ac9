package demux

import (
	"io"
	"sync"
	"time"

	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/format"

	"github.com/lanikai/alohaplay/internal/media"
)

// A Source is an opened container, read strictly forward.
type Source interface {
	// Streams describes every elementary stream in the container, indexed
	// by Packet.Idx.
	Streams() ([]av.CodecData, error)

	ReadPacket() (media.Packet, error)

	Close() error
}

// A SeekableSource can reposition itself so that the next packet read for
// each stream is the keyframe at or before t.
type SeekableSource interface {
	Source
	SeekToTime(t time.Duration) error
}

var initOnce sync.Once

// Init registers the joy4 container formats used for URL inputs. Open calls
// it as needed; calling it again is a no-op.
func Init() {
	initOnce.Do(format.RegisterAll)
}

// avSource adapts a joy4 demuxer.
type avSource struct {
	demuxer av.Demuxer
	closer  io.Closer
	streams []av.CodecData
}

func newAVSource(demuxer av.Demuxer, closer io.Closer) (*avSource, error) {
	streams, err := demuxer.Streams()
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	return &avSource{demuxer: demuxer, closer: closer, streams: streams}, nil
}

func (s *avSource) Streams() ([]av.CodecData, error) {
	return s.streams, nil
}

func (s *avSource) ReadPacket() (media.Packet, error) {
	pkt, err := s.demuxer.ReadPacket()
	if err != nil {
		return media.Packet{}, err
	}
	return convertPacket(pkt, s.streams), nil
}

func (s *avSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// convertPacket translates a joy4 packet. joy4 timestamps are decode times,
// with the composition offset giving the presentation time.
func convertPacket(pkt av.Packet, streams []av.CodecData) media.Packet {
	p := media.Packet{
		Idx:        int(pkt.Idx),
		Data:       pkt.Data,
		DTS:        pkt.Time,
		HasDTS:     true,
		PTS:        pkt.Time + pkt.CompositionTime,
		HasPTS:     true,
		IsKeyFrame: pkt.IsKeyFrame,
	}
	if p.Idx >= 0 && p.Idx < len(streams) {
		if acd, ok := streams[p.Idx].(av.AudioCodecData); ok {
			// Every audio packet is a random access point.
			p.IsKeyFrame = true
			if d, err := acd.PacketDuration(pkt.Data); err == nil {
				p.Duration = d
			}
		}
	}
	return p
}

// mp4Source adds native seeking.
type mp4Source struct {
	*avSource
	seeker interface {
		SeekToTime(time.Duration) error
	}
}

func (s *mp4Source) SeekToTime(t time.Duration) error {
	return s.seeker.SeekToTime(t)
}
