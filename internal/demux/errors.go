package demux

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	errNoStreams     = errors.New("no streams found")
	errNotRegistered = errors.New("format not registered")
	errBadIndex      = errors.New("stream index out of range")
	errClosed        = errors.New("demuxer closed")
)

// Error reports a failure to open or reposition an input.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("demux: %s %s: %v", e.Op, e.Path, e.Err)
}

// Cause returns the underlying error, for errors.Cause.
func (e *Error) Cause() error { return e.Err }

// Unwrap returns the underlying error, for xerrors.Is and xerrors.As.
func (e *Error) Unwrap() error { return e.Err }
