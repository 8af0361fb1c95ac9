package alohaplay

import (
	"time"
)

// Clock supplies the time playback is measured against. Only differences
// between readings matter.
type Clock interface {
	Now() time.Duration
}

type wallClock struct {
	origin time.Time
}

// WallClock returns a monotonic clock that reads zero when created.
func WallClock() Clock {
	return &wallClock{origin: time.Now()}
}

func (c *wallClock) Now() time.Duration {
	return time.Since(c.origin)
}
