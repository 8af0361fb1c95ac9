// Package media defines the packet and frame types that flow through the
// playback pipeline, from demuxing through decoding to the renderer.
package media

import "time"

// Kind is the media type of an elementary stream.
type Kind int

const (
	Video Kind = iota
	Audio
)

func (k Kind) String() string {
	switch k {
	case Video:
		return "video"
	case Audio:
		return "audio"
	default:
		return "unknown"
	}
}

// Frame is a decoded, presentation-ready unit. Frames are reference counted:
// whoever holds a frame calls Release exactly once when done with it.
type Frame interface {
	// Time is the presentation time relative to the start of the stream.
	Time() time.Duration

	Hold()
	Release()
}
