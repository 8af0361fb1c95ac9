package alohaplay

import (
	"github.com/lanikai/alohaplay/internal/decode"
)

// Stats is a snapshot of playback counters since the input was opened.
type Stats struct {
	State    State
	Position Duration

	// Frames handed out.
	VideoFrames int64
	AudioFrames int64

	// Audio frames discarded because nobody consumed them in time.
	LateAudioFrames int64

	// Times playback wrapped around to the start.
	Loops int64

	// Frames decoded and waiting.
	QueuedVideoFrames int
	QueuedAudioFrames int

	// Delivered frames kept for stepping backwards.
	HistoryFrames int

	Video decode.Stats
	Audio decode.Stats
}

func (p *Player) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	s.State = p.state
	s.Position = Duration(p.positionLocked(p.clock.Now()))
	s.HistoryFrames = p.history.len()
	if p.video != nil {
		s.Video = p.video.Stats()
		s.QueuedVideoFrames = p.videoFrames.Count()
	}
	if p.audio != nil {
		s.Audio = p.audio.Stats()
		s.QueuedAudioFrames = p.audioFrames.Count()
	}
	return s
}
