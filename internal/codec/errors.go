package codec

import "golang.org/x/xerrors"

var (
	// ErrUnsupported is returned when no decoder is registered for a codec.
	ErrUnsupported = xerrors.New("codec not supported")

	// ErrNotInitialized is returned when decoders are requested before Init.
	ErrNotInitialized = xerrors.New("codec registry not initialized")

	errShortPacket = xerrors.New("packet too short")
)
