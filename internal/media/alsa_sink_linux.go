//////////////////////////////////////////////////////////////////////////////
//
// ALSAAudioSink: Advanced Linux Sound Architecture (ALSA) playback sink.
// Requires libasound; build with the "alsa" tag.
//
// Copyright 2019 Lanikai Labs. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

// +build linux,alsa

package media

// #cgo pkg-config: alsa
// #include <stdlib.h>
// #include <alsa/asoundlib.h>
import "C"
import (
	"unsafe"

	"github.com/nareix/joy4/av"
	"github.com/pkg/errors"
)

// ALSAAudioSink writes audio to an ALSA soundcard for playback
type ALSAAudioSink struct {
	handle    *C.struct__snd_pcm
	framesize int
}

func alsaError(code C.int) error {
	return errors.New(C.GoString(C.snd_strerror(code)))
}

// NewALSAAudioSink opens the named playback device, e.g. "default".
func NewALSAAudioSink(devname string) (*ALSAAudioSink, error) {
	as := &ALSAAudioSink{}

	name := C.CString(devname)
	err := C.snd_pcm_open(&as.handle, name, C.SND_PCM_STREAM_PLAYBACK, 0)
	C.free(unsafe.Pointer(name))
	if err < 0 {
		return nil, errors.Wrapf(alsaError(err), "alsa %s", devname)
	}

	return as, nil
}

// Close drops unplayed samples and closes the device.
func (as *ALSAAudioSink) Close() error {
	if err := C.snd_pcm_drop(as.handle); err < 0 {
		return alsaError(err)
	}
	if err := C.snd_pcm_close(as.handle); err < 0 {
		return alsaError(err)
	}
	return nil
}

// Configure ALSA playback device
func (as *ALSAAudioSink) Configure(rate, channels int, format av.SampleFormat) error {
	var pcmFormat C.snd_pcm_format_t
	switch format {
	case av.U8:
		pcmFormat = C.SND_PCM_FORMAT_U8
	case av.S16:
		pcmFormat = C.SND_PCM_FORMAT_S16_LE
	case av.S32:
		pcmFormat = C.SND_PCM_FORMAT_S32_LE
	default:
		return errors.Wrapf(errNotSupported, "alsa sample format %v", format)
	}

	var hwparams *C.struct__snd_pcm_hw_params
	if err := C.snd_pcm_hw_params_malloc(&hwparams); err < 0 {
		return alsaError(err)
	}
	defer C.snd_pcm_hw_params_free(hwparams)

	if err := C.snd_pcm_hw_params_any(as.handle, hwparams); err < 0 {
		return alsaError(err)
	}
	if err := C.snd_pcm_hw_params_set_access(as.handle, hwparams, C.SND_PCM_ACCESS_RW_INTERLEAVED); err < 0 {
		return alsaError(err)
	}
	if err := C.snd_pcm_hw_params_set_format(as.handle, hwparams, pcmFormat); err < 0 {
		return alsaError(err)
	}
	if err := C.snd_pcm_hw_params_set_channels(as.handle, hwparams, C.uint(channels)); err < 0 {
		return alsaError(err)
	}
	if err := C.snd_pcm_hw_params_set_rate(as.handle, hwparams, C.uint(rate), 0); err < 0 {
		return alsaError(err)
	}
	if err := C.snd_pcm_hw_params(as.handle, hwparams); err < 0 {
		return alsaError(err)
	}
	if err := C.snd_pcm_prepare(as.handle); err < 0 {
		return alsaError(err)
	}

	as.framesize = format.BytesPerSample() * channels
	return nil
}

// Write blocks until the device has accepted p. Underruns are recovered
// from by dropping the buffer.
func (as *ALSAAudioSink) Write(p []byte) (int, error) {
	if as.framesize == 0 {
		return 0, errors.New("alsa sink not configured")
	}
	numframes := len(p) / as.framesize
	buf := C.CBytes(p)
	n := C.snd_pcm_writei(as.handle, buf, C.snd_pcm_uframes_t(numframes))
	C.free(buf)
	if n < 0 {
		if err := C.snd_pcm_recover(as.handle, C.int(n), 0); err < 0 {
			return 0, alsaError(err)
		}
		return 0, nil
	}

	return int(n) * as.framesize, nil
}
