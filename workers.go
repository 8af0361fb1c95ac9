package alohaplay

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// A workerFunc is a long-running pipeline stage, e.g. the demux loop. It
// should return promptly once ctx is done.
type workerFunc func(ctx context.Context) error

// workers runs the pipeline goroutines of a playback session. At most one
// set runs at any time; start panics if the previous set was not stopped.
type workers struct {
	cancel context.CancelFunc

	// Closed when every goroutine has returned.
	terminated chan struct{}
}

func (w *workers) running() bool {
	return w.terminated != nil
}

func (w *workers) start(fns ...workerFunc) {
	if w.running() {
		panic("workers: already running")
	}

	ctx, cancel := context.WithCancel(context.Background())
	g, ctx := errgroup.WithContext(ctx)
	for _, fn := range fns {
		fn := fn
		g.Go(func() error {
			return fn(ctx)
		})
	}

	w.cancel = cancel
	w.terminated = make(chan struct{})
	go func(terminated chan struct{}) {
		if err := g.Wait(); err != nil && err != context.Canceled {
			log.Error("Pipeline worker failed: %v", err)
		}
		close(terminated)
	}(w.terminated)
}

// stop cancels the workers and waits for them to exit. A worker that
// ignores cancellation is a bug; after timeout stop panics.
func (w *workers) stop(timeout time.Duration) {
	if !w.running() {
		return
	}
	w.cancel()

	select {
	case <-w.terminated:
	case <-time.After(timeout):
		log.Panicf("Pipeline workers did not exit within %v", timeout)
	}
	w.cancel = nil
	w.terminated = nil
}
