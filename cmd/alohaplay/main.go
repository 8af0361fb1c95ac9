package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/lanikai/alohaplay"
	"github.com/lanikai/alohaplay/internal/logging"
	"github.com/lanikai/alohaplay/internal/media"
	"github.com/lanikai/alohaplay/internal/preview"
)

var log = logging.DefaultLogger.WithTag("alohaplay")

func main() {
	flag.Parse()

	if flagHelp {
		help()
		os.Exit(0)
	}
	if flagVersion {
		version()
		os.Exit(0)
	}
	if flag.NArg() != 1 {
		help()
		os.Exit(2)
	}

	if err := run(flag.Arg(0)); err != nil {
		fmt.Fprintln(os.Stderr, "alohaplay:", err)
		os.Exit(1)
	}
}

// loadConfig reads --config, if any, and lets explicit flags override it.
func loadConfig() (alohaplay.Config, error) {
	config := alohaplay.DefaultConfig()
	if flagConfig != "" {
		var err error
		if config, err = alohaplay.LoadConfig(flagConfig); err != nil {
			return config, err
		}
	}

	changed := flag.CommandLine.Changed
	if changed("loop") {
		config.Loop = flagLoop
	}
	if changed("volume") {
		config.Volume = flagVolume
	}
	if changed("tolerance") {
		config.Tolerance = alohaplay.Duration(flagTolerance)
	}
	if changed("no-audio") {
		config.DisableAudio = flagNoAudio
	}
	return config, nil
}

func run(name string) error {
	if err := logging.ApplyDirectives(flagLogLevel); err != nil {
		return err
	}
	if flagLogFile != "" {
		closer := logging.DefaultLogger.SetRotatingFile(flagLogFile, 10, 3, 28)
		defer closer.Close()
	}
	if flagFPS <= 0 {
		return fmt.Errorf("invalid render rate %v", flagFPS)
	}

	config, err := loadConfig()
	if err != nil {
		return err
	}

	p := alohaplay.NewPlayer(config, nil)
	defer p.Close()
	if err := p.Open(name); err != nil {
		return err
	}
	if w, h := p.VideoSize(); p.HasVideo() {
		log.Info("Opened %s: %dx%d video", name, w, h)
	}
	if rate, channels := p.AudioFormat(); p.HasAudio() {
		log.Info("Opened %s: %d Hz, %d channel audio", name, rate, channels)
	}
	if flagSeek > 0 {
		if err := p.Seek(flagSeek); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
			log.Info("Interrupted")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sig)
	}()

	g, ctx := errgroup.WithContext(ctx)
	r := &renderer{dir: flagFramesOut}

	if flagAudioOut != "" && p.HasAudio() {
		sink, err := openAudioSink(flagAudioOut)
		if err != nil {
			return err
		}
		defer sink.Close()
		pump := alohaplay.NewAudioPump(p, sink)
		g.Go(func() error {
			return ignoreCanceled(pump.Run(ctx))
		})
	}

	if flagPreview != "" {
		r.preview = preview.NewServer(p, flagMaxViewers)
		g.Go(func() error {
			return r.preview.ListenAndServe(flagPreview)
		})
		g.Go(func() error {
			<-ctx.Done()
			return r.preview.Close()
		})
	}

	if restore, err := openTerminal(int(os.Stdin.Fd())); err == nil {
		defer restore()
		g.Go(func() error {
			return readKeys(ctx, cancel, os.Stdin, p, r)
		})
	} else {
		log.Debug("No keyboard control: %v", err)
	}

	if err := p.Play(); err != nil {
		return err
	}

	g.Go(func() error {
		defer cancel()
		return renderLoop(ctx, p, r)
	})

	err = g.Wait()
	st := p.Stats()
	log.Info("Played %d video and %d audio frames (%d late audio, %d loops)",
		st.VideoFrames, st.AudioFrames, st.LateAudioFrames, st.Loops)
	return err
}

// renderLoop presents due frames at --fps until playback finishes. With a
// preview server running it keeps going, since viewers may restart playback.
func renderLoop(ctx context.Context, p *alohaplay.Player, r *renderer) error {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / flagFPS))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		if f := p.DueFrame(); f != nil {
			err := r.render(f)
			f.Release()
			if err != nil {
				return err
			}
		}
		if p.IsFinished() && r.preview == nil {
			log.Info("Finished at %v", p.Position(p.Now()))
			return nil
		}
	}
}

// renderer sends presented frames to the enabled outputs.
type renderer struct {
	mu      sync.Mutex
	dir     string
	preview *preview.Server
}

func (r *renderer) render(f *media.VideoFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log.Trace(2, "Frame %d at %v", f.Seq, f.PTS)
	if r.preview != nil {
		if err := r.preview.Publish(f); err != nil {
			log.Warn("Preview: %v", err)
		}
	}
	if r.dir != "" {
		return writePNG(r.dir, f)
	}
	return nil
}

// openAudioSink opens "alsa:DEVICE" or else a raw PCM file.
func openAudioSink(name string) (media.AudioSink, error) {
	if strings.HasPrefix(name, "alsa:") {
		return media.NewALSAAudioSink(strings.TrimPrefix(name, "alsa:"))
	}
	return media.NewFileSink(name)
}

func ignoreCanceled(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}
