package alohaplay

import (
	"context"
	"time"

	"github.com/lanikai/alohaplay/internal/media"
)

// AudioPump feeds a player's audio to a sink, keeping Config.AudioBuffers
// frames written ahead of the playback position.
type AudioPump struct {
	player *Player
	sink   media.AudioSink

	// How often to top up the sink.
	interval time.Duration

	rate, channels int
	frameDuration  time.Duration
}

func NewAudioPump(p *Player, sink media.AudioSink) *AudioPump {
	return &AudioPump{
		player:   p,
		sink:     sink,
		interval: 10 * time.Millisecond,
	}
}

// Run pumps until ctx is done or the sink fails.
func (a *AudioPump) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if err := a.fill(); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// fill writes frames until enough are in flight or none is ready.
func (a *AudioPump) fill() error {
	buffers := time.Duration(a.player.config.AudioBuffers)
	for {
		position := a.player.Position(a.player.Now())
		if a.frameDuration > 0 && a.player.AudioTime() >= position+buffers*a.frameDuration {
			return nil
		}

		f := a.player.ConsumeAudioFrame()
		if f == nil {
			return nil
		}
		err := a.write(f)
		f.Release()
		if err != nil {
			return err
		}
	}
}

func (a *AudioPump) write(f *media.AudioFrame) error {
	if f.SampleRate != a.rate || f.Channels != a.channels {
		if err := a.sink.Configure(f.SampleRate, f.Channels, media.SampleFormat); err != nil {
			return err
		}
		a.rate, a.channels = f.SampleRate, f.Channels
		log.Debug("Audio sink configured for %d Hz, %d channels", a.rate, a.channels)
	}
	a.frameDuration = f.Duration()
	_, err := a.sink.Write(f.Bytes())
	return err
}
