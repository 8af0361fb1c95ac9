// Package codec adapts compressed elementary streams to decoded pictures and
// PCM. Decoders are looked up by joy4 codec type in a process-wide registry,
// which Init fills with the built-in codecs.
package codec

import (
	"image"
	"time"

	"github.com/nareix/joy4/av"

	"github.com/lanikai/alohaplay/internal/logging"
)

var log = logging.DefaultLogger.WithTag("codec")

// Picture is one decoded video picture.
type Picture struct {
	// Image is only valid until the next call into the decoder that
	// produced it.
	Image *image.YCbCr

	// Presentation time reported by the codec, if any.
	PTS    time.Duration
	HasPTS bool

	// Number of extra field periods the picture should be displayed for.
	Repeat int
}

// VideoDecoder turns packets of one video stream into pictures. It is not safe
// for concurrent use.
type VideoDecoder interface {
	// Decode consumes one packet. ok is false if the packet did not complete
	// a picture.
	Decode(data []byte) (pic Picture, ok bool, err error)

	// Flush discards buffered state, e.g. reference pictures, after a seek.
	Flush() error

	Close() error
}

// AudioDecoder turns packets of one audio stream into PCM in whatever sample
// format the codec produces natively.
type AudioDecoder interface {
	Decode(data []byte) (frame av.AudioFrame, ok bool, err error)
	Flush() error
	Close() error
}

// FrameRater is implemented by codec data that knows its nominal frame rate.
type FrameRater interface {
	FrameRate() (num, den int)
}
