// +build ffmpeg

package codec

import (
	"github.com/nareix/joy4/av"
	"github.com/nareix/joy4/cgo/ffmpeg"
)

// With the ffmpeg build tag, H.264 and AAC streams are decoded by libavcodec.

func init() {
	initHooks = append(initHooks, func() {
		ffmpeg.SetLogLevel(ffmpeg.QUIET)
		RegisterVideo(av.H264, newFFmpegVideoDecoder)
		RegisterAudio(av.AAC, newFFmpegAudioDecoder)
	})
}

type ffmpegVideoDecoder struct {
	cd    av.VideoCodecData
	dec   *ffmpeg.VideoDecoder
	frame *ffmpeg.VideoFrame
}

func newFFmpegVideoDecoder(cd av.VideoCodecData) (VideoDecoder, error) {
	dec, err := ffmpeg.NewVideoDecoder(cd)
	if err != nil {
		return nil, err
	}
	return &ffmpegVideoDecoder{cd: cd, dec: dec}, nil
}

func (d *ffmpegVideoDecoder) free() {
	if d.frame != nil {
		d.frame.Free()
		d.frame = nil
	}
}

func (d *ffmpegVideoDecoder) Decode(data []byte) (Picture, bool, error) {
	d.free()
	frame, err := d.dec.Decode(data)
	if err != nil {
		return Picture{}, false, err
	}
	if frame == nil {
		return Picture{}, false, nil
	}
	d.frame = frame
	// joy4 does not carry timestamps through the codec. The caller matches
	// reordered pictures to packet timestamps.
	return Picture{Image: &frame.Image}, true, nil
}

// Flush reopens the codec context, which drops all reference pictures.
func (d *ffmpegVideoDecoder) Flush() error {
	d.free()
	dec, err := ffmpeg.NewVideoDecoder(d.cd)
	if err != nil {
		return err
	}
	d.dec = dec
	return nil
}

func (d *ffmpegVideoDecoder) Close() error {
	d.free()
	d.dec = nil
	return nil
}

type ffmpegAudioDecoder struct {
	cd  av.AudioCodecData
	dec *ffmpeg.AudioDecoder
}

func newFFmpegAudioDecoder(cd av.AudioCodecData) (AudioDecoder, error) {
	dec, err := ffmpeg.NewAudioDecoder(cd)
	if err != nil {
		return nil, err
	}
	return &ffmpegAudioDecoder{cd: cd, dec: dec}, nil
}

func (d *ffmpegAudioDecoder) Decode(data []byte) (av.AudioFrame, bool, error) {
	ok, frame, err := d.dec.Decode(data)
	return frame, ok, err
}

func (d *ffmpegAudioDecoder) Flush() error {
	dec, err := ffmpeg.NewAudioDecoder(d.cd)
	if err != nil {
		return err
	}
	d.dec.Close()
	d.dec = dec
	return nil
}

func (d *ffmpegAudioDecoder) Close() error {
	d.dec.Close()
	return nil
}
