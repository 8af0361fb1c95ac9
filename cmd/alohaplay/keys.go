package main

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/lanikai/alohaplay"
)

const (
	seekStep   = 5 * time.Second
	volumeStep = 0.1
	stepWait   = 5 * time.Second
)

type key int

const (
	keyNone key = iota
	keyLeft
	keyRight
)

// readKeys controls p from the terminal until ctx is done or q is pressed.
// The terminal must be in the mode set by openTerminal, where reads time out.
func readKeys(ctx context.Context, quit func(), in *os.File, p *alohaplay.Player, r *renderer) error {
	buf := make([]byte, 16)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := in.Read(buf)
		if err == io.EOF || n == 0 {
			continue
		}
		if err != nil {
			return err
		}

		for i := 0; i < n; i++ {
			c := buf[i]
			k := keyNone
			// Arrow keys arrive as ESC [ C and ESC [ D.
			if c == 0x1b && i+2 < n && buf[i+1] == '[' {
				switch buf[i+2] {
				case 'C':
					k = keyRight
				case 'D':
					k = keyLeft
				}
				i += 2
			}
			if c == 'q' {
				quit()
				return nil
			}
			handleKey(ctx, p, r, c, k)
		}
	}
}

func handleKey(ctx context.Context, p *alohaplay.Player, r *renderer, c byte, k key) {
	var err error
	switch {
	case k == keyRight:
		err = p.Seek(p.Position(p.Now()) + seekStep)
	case k == keyLeft:
		t := p.Position(p.Now()) - seekStep
		if t < 0 {
			t = 0
		}
		err = p.Seek(t)
	case c == ' ':
		if p.IsPlaying() {
			err = p.Pause()
		} else {
			err = p.Play()
		}
	case c == '.' || c == ',':
		err = step(ctx, p, r, c == ',')
	case c == 'l':
		p.SetLooping(!p.IsLooping())
		log.Info("Looping %v", p.IsLooping())
	case c == '+' || c == '=':
		p.SetVolume(p.Volume() + volumeStep)
		log.Info("Volume %.1f", p.Volume())
	case c == '-':
		p.SetVolume(p.Volume() - volumeStep)
		log.Info("Volume %.1f", p.Volume())
	case c == 's':
		err = p.Stop()
	case c == 'p':
		err = p.Play()
	default:
		return
	}
	if err != nil {
		log.Warn("%v", err)
		return
	}
	log.Info("%v at %v", p.State(), p.Position(p.Now()))
}

func step(ctx context.Context, p *alohaplay.Player, r *renderer, backward bool) error {
	ctx, cancel := context.WithTimeout(ctx, stepWait)
	defer cancel()

	next := p.StepForward
	if backward {
		next = p.StepBackward
	}
	f, err := next(ctx)
	if err != nil {
		return err
	}
	defer f.Release()
	return r.render(f)
}
