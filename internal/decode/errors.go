package decode

import "github.com/pkg/errors"

var (
	ErrNoVideoStream = errors.New("no decodable video stream")
	ErrNoAudioStream = errors.New("no decodable audio stream")

	errSampleFormat = errors.New("unsupported sample format")
)
