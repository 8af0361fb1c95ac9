package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	flag "github.com/spf13/pflag"
)

// Populated via -ldflags="-X main.GitRevisionId=...".
var GitRevisionId string

var (
	flagFPS        float64
	flagLoop       bool
	flagVolume     float64
	flagSeek       time.Duration
	flagTolerance  time.Duration
	flagNoAudio    bool
	flagAudioOut   string
	flagPreview    string
	flagMaxViewers int
	flagConfig     string
	flagLogFile    string
	flagLogLevel   string
	flagFramesOut  string
	flagHelp       bool
	flagVersion    bool
)

func init() {
	flag.Float64VarP(&flagFPS, "fps", "r", 60, "Render rate, in frames per second")
	flag.BoolVarP(&flagLoop, "loop", "l", false, "Start over at the end")
	flag.Float64VarP(&flagVolume, "volume", "", 1, "Audio volume, 0 to 1")
	flag.DurationVarP(&flagSeek, "seek", "s", 0, "Start position")
	flag.DurationVarP(&flagTolerance, "tolerance", "", 0, "Present frames this early")
	flag.BoolVarP(&flagNoAudio, "no-audio", "", false, "Ignore audio streams")
	flag.StringVarP(&flagAudioOut, "audio-out", "a", "", "Write raw PCM to file")
	flag.StringVarP(&flagPreview, "preview", "p", "", "Serve preview on address")
	flag.IntVarP(&flagMaxViewers, "max-viewers", "", 4, "Preview connection limit")
	flag.StringVarP(&flagConfig, "config", "c", "", "Configuration file")
	flag.StringVarP(&flagLogFile, "log-file", "", "", "Log to rotating file")
	flag.StringVarP(&flagLogLevel, "log-level", "", "", "Log level directives")
	flag.StringVarP(&flagFramesOut, "frames-out", "o", "", "Write rendered frames as PNG")

	flag.BoolVarP(&flagHelp, "help", "h", false, "Print usage information and exit")
	flag.BoolVarP(&flagVersion, "version", "v", false, "Print version information and exit")
}

const helpString = `Play video and audio files on connected devices

Usage: alohaplay [OPTION]... FILE

FILE is a path (.mp4, .mov, .ts, .flv, .h264), a URL (rtmp://, rtsp://,
http://), or a tagged input such as "testsrc:duration=10s,fps=30,audio=pcmu".

Playback:
  -r, --fps=NUM          Render rate, in frames per second (default: 60)
  -l, --loop             Start over at the end
      --volume=NUM       Audio volume between 0 and 1 (default: 1)
  -s, --seek=DURATION    Start position, e.g. 1m30s
      --tolerance=DURATION
                         Present frames up to this much early (default: 0)
      --no-audio         Ignore audio streams

Output:
  -a, --audio-out=FILE   Write raw S16LE audio to FILE ("-" for stdout), or
                         play it on an ALSA device with "alsa:default"
  -o, --frames-out=DIR   Write each rendered frame to DIR as PNG
  -p, --preview=ADDR     Serve a browser preview on ADDR, e.g. :8000
      --max-viewers=NUM  Preview connection limit (default: 4)

Miscellaneous:
  -c, --config=FILE      Read settings from a JSON or YAML file
      --log-file=FILE    Log to FILE, rotated at 10 MiB
      --log-level=LIST   Log levels, e.g. "info,demux=debug"
  -h, --help             Prints this help message and exits
  -v, --version          Prints version information and exits

Keys (when run on a terminal):
  space                  Play or pause
  left, right            Seek 5 seconds back or forward
  , .                    Step one frame back or forward
  l                      Toggle looping
  + -                    Volume up or down
  s                      Stop
  q                      Quit

Please report bugs to: aloha@lanikailabs.com`

// Glyphs for the help banner, six rows each.
var bannerGlyphs = map[rune][6]string{
	'a': {"       ", "  __ _ ", " / _` |", "| (_| |", " \\__,_|", "       "},
	'l': {" _ ", "| |", "| |", "| |", "|_|", "   "},
	'o': {"       ", "  ___  ", " / _ \\ ", "| (_) |", " \\___/ ", "       "},
	'h': {" _     ", "| |__  ", "| '_ \\ ", "| | | |", "|_| |_|", "       "},
	'p': {"       ", " _ __  ", "| '_ \\ ", "| |_) |", "| .__/ ", "|_|    "},
	'y': {"       ", " _   _ ", "| | | |", "| |_| |", " \\__, |", " |___/ "},
}

// Help information is printed and program exits
func help() {
	palette := []*color.Color{
		color.New(color.FgRed),
		color.New(color.FgYellow),
		color.New(color.FgCyan),
	}

	word := "alohaplay"
	for row := 0; row < 6; row++ {
		for i, r := range word {
			palette[i%len(palette)].Print(bannerGlyphs[r][row])
		}
		fmt.Println()
	}

	fmt.Println(helpString)
}

// version displays information and exits successfully (GNU convention)
func version() {
	fmt.Println("alohaplay", GitRevisionId)
	fmt.Println("Copyright 2019 Lanikai Labs LLC. All rights reserved.")
}
