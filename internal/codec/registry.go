package codec

import (
	"sync"
	"sync/atomic"

	"github.com/nareix/joy4/av"
	"golang.org/x/xerrors"
)

// A VideoFactory opens a decoder for a video stream.
type VideoFactory func(cd av.VideoCodecData) (VideoDecoder, error)

// An AudioFactory opens a decoder for an audio stream.
type AudioFactory func(cd av.AudioCodecData) (AudioDecoder, error)

var registryMu sync.RWMutex

var (
	videoCodecs = map[av.CodecType]VideoFactory{}
	audioCodecs = map[av.CodecType]AudioFactory{}

	// Hooks run by Init after the built-in codecs are registered, e.g. to
	// register decoders from optional build configurations.
	initHooks []func()

	initialized int32
)

// RegisterVideo makes a video decoder available for codec type typ,
// replacing any previous registration.
func RegisterVideo(typ av.CodecType, f VideoFactory) {
	registryMu.Lock()
	videoCodecs[typ] = f
	registryMu.Unlock()
}

// RegisterAudio makes an audio decoder available for codec type typ.
func RegisterAudio(typ av.CodecType, f AudioFactory) {
	registryMu.Lock()
	audioCodecs[typ] = f
	registryMu.Unlock()
}

// Init registers the built-in codecs. It is idempotent and safe to call from
// several goroutines; only the first call has any effect until Shutdown.
func Init() {
	if !atomic.CompareAndSwapInt32(&initialized, 0, 1) {
		return
	}
	RegisterVideo(RawVideo, newRawVideoDecoder)
	RegisterAudio(av.PCM_MULAW, newG711Decoder)
	RegisterAudio(av.PCM_ALAW, newG711Decoder)
	for _, hook := range initHooks {
		hook()
	}

	registryMu.RLock()
	log.Debug("Registered %d video and %d audio codecs", len(videoCodecs), len(audioCodecs))
	registryMu.RUnlock()
}

// Shutdown clears the registry. Decoders already opened keep working.
func Shutdown() {
	if !atomic.CompareAndSwapInt32(&initialized, 1, 0) {
		return
	}
	registryMu.Lock()
	videoCodecs = map[av.CodecType]VideoFactory{}
	audioCodecs = map[av.CodecType]AudioFactory{}
	registryMu.Unlock()
}

// Initialized reports whether Init has run since the last Shutdown.
func Initialized() bool {
	return atomic.LoadInt32(&initialized) == 1
}

// Supported reports whether a decoder is registered for cd.
func Supported(cd av.CodecData) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()

	typ := cd.Type()
	if typ.IsVideo() {
		_, ok := videoCodecs[typ]
		return ok
	}
	_, ok := audioCodecs[typ]
	return ok
}

// NewVideoDecoder opens a decoder for a video stream.
func NewVideoDecoder(cd av.CodecData) (VideoDecoder, error) {
	if !Initialized() {
		return nil, ErrNotInitialized
	}
	vcd, ok := cd.(av.VideoCodecData)
	if !ok {
		return nil, xerrors.Errorf("%v is not a video codec: %w", cd.Type(), ErrUnsupported)
	}

	registryMu.RLock()
	f, ok := videoCodecs[cd.Type()]
	registryMu.RUnlock()
	if !ok {
		return nil, xerrors.Errorf("no video decoder for %v: %w", cd.Type(), ErrUnsupported)
	}

	dec, err := f(vcd)
	if err != nil {
		return nil, xerrors.Errorf("opening %v decoder: %w", cd.Type(), err)
	}
	return dec, nil
}

// NewAudioDecoder opens a decoder for an audio stream.
func NewAudioDecoder(cd av.CodecData) (AudioDecoder, error) {
	if !Initialized() {
		return nil, ErrNotInitialized
	}
	acd, ok := cd.(av.AudioCodecData)
	if !ok {
		return nil, xerrors.Errorf("%v is not an audio codec: %w", cd.Type(), ErrUnsupported)
	}

	registryMu.RLock()
	f, ok := audioCodecs[cd.Type()]
	registryMu.RUnlock()
	if !ok {
		return nil, xerrors.Errorf("no audio decoder for %v: %w", cd.Type(), ErrUnsupported)
	}

	dec, err := f(acd)
	if err != nil {
		return nil, xerrors.Errorf("opening %v decoder: %w", cd.Type(), err)
	}
	return dec, nil
}
