//////////////////////////////////////////////////////////////////////////////
//
// Stub ALSA sink for builds without libasound.
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

// +build !linux !alsa

package media

import (
	"github.com/nareix/joy4/av"
)

type ALSAAudioSink struct {
}

func NewALSAAudioSink(devname string) (*ALSAAudioSink, error) {
	return nil, errNotSupported
}

func (as *ALSAAudioSink) Close() error {
	return errNotSupported
}

func (as *ALSAAudioSink) Configure(rate, channels int, format av.SampleFormat) error {
	return errNotSupported
}

func (as *ALSAAudioSink) Write(p []byte) (int, error) {
	return 0, errNotSupported
}
