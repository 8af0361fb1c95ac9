package alohaplay

import (
	"github.com/golang/groupcache/lru"

	"github.com/lanikai/alohaplay/internal/media"
)

// history remembers recently delivered video frames by sequence number, so
// stepping backwards doesn't have to seek and decode again. It holds its own
// reference to each frame.
type history struct {
	cache *lru.Cache
}

func newHistory(size int) *history {
	h := &history{}
	if size > 0 {
		h.cache = lru.New(size)
		h.cache.OnEvicted = func(_ lru.Key, value interface{}) {
			value.(*media.VideoFrame).Release()
		}
	}
	return h
}

func (h *history) add(f *media.VideoFrame) {
	if h.cache == nil {
		return
	}
	if _, ok := h.cache.Get(f.Seq); ok {
		return
	}
	f.Hold()
	h.cache.Add(f.Seq, f)
}

// get returns the frame with sequence number seq, held for the caller.
func (h *history) get(seq int64) *media.VideoFrame {
	if h.cache == nil {
		return nil
	}
	v, ok := h.cache.Get(seq)
	if !ok {
		return nil
	}
	f := v.(*media.VideoFrame)
	f.Hold()
	return f
}

func (h *history) len() int {
	if h.cache == nil {
		return 0
	}
	return h.cache.Len()
}

func (h *history) clear() {
	if h.cache == nil {
		return
	}
	for h.cache.Len() > 0 {
		h.cache.RemoveOldest()
	}
}
