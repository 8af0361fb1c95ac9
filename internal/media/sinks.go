//////////////////////////////////////////////////////////////////////////////
//
// Audio sink interface and a file-backed implementation
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package media

import (
	"io"
	"os"

	"github.com/nareix/joy4/av"
	"github.com/pkg/errors"
)

// AudioSink is the interface for audio outputs (e.g. a sound card). The player
// never talks to hardware itself; it hands PCM buffers to a sink.
type AudioSink interface {
	io.WriteCloser

	// Configure audio sink sample rate, number of channels, and sample format
	Configure(rate int, channels int, format av.SampleFormat) error
}

// FileSink writes raw PCM to a file, useful for testing or writing audio to a
// pipe.
type FileSink struct {
	file *os.File

	rate     int
	channels int
}

// NewFileSink creates (or truncates) the named file. The name "-" writes to
// standard output.
func NewFileSink(filename string) (*FileSink, error) {
	if filename == "-" {
		return &FileSink{file: os.Stdout}, nil
	}
	f, err := os.Create(filename)
	if err != nil {
		return nil, errors.Wrap(err, "audio sink")
	}
	return &FileSink{file: f}, nil
}

// Close file sink
func (s *FileSink) Close() error {
	if s.file == os.Stdout {
		return nil
	}
	return s.file.Close()
}

// Configure file sink. Only the sample format is checked; the file carries no
// header, so rate and channel count are merely recorded.
func (s *FileSink) Configure(rate, channels int, format av.SampleFormat) error {
	if format != SampleFormat {
		return errors.Errorf("audio sink: unsupported sample format %v", format)
	}
	s.rate = rate
	s.channels = channels
	return nil
}

// Write buffer to file
func (s *FileSink) Write(p []byte) (int, error) {
	return s.file.Write(p)
}
