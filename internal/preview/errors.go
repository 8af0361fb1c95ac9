package preview

import "github.com/pkg/errors"

var (
	errNotFound   = errors.New("subscriber not found")
	errClosed     = errors.New("broadcaster closed")
	errBadCommand = errors.New("unknown command")
)
