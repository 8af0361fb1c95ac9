package codec

import (
	"image"

	"github.com/nareix/joy4/av"
	"golang.org/x/xerrors"
)

// RawVideo is uncompressed planar YUV 4:2:0: each packet carries the Y plane
// followed by the Cb and Cr planes, with no row padding.
var RawVideo = av.MakeVideoCodecType(0x59555620) // "YUV "

// RawVideoCodecData describes a raw YUV 4:2:0 stream.
type RawVideoCodecData struct {
	PictureWidth  int
	PictureHeight int

	// Nominal frame rate as a fraction. Zero means unknown.
	FrameRateNum int
	FrameRateDen int
}

func (cd RawVideoCodecData) Type() av.CodecType { return RawVideo }
func (cd RawVideoCodecData) Width() int         { return cd.PictureWidth }
func (cd RawVideoCodecData) Height() int        { return cd.PictureHeight }

func (cd RawVideoCodecData) FrameRate() (num, den int) {
	return cd.FrameRateNum, cd.FrameRateDen
}

// PictureSize returns the size in bytes of one picture.
func (cd RawVideoCodecData) PictureSize() int {
	cw, ch := chromaSize(cd.PictureWidth, cd.PictureHeight)
	return cd.PictureWidth*cd.PictureHeight + 2*cw*ch
}

func chromaSize(w, h int) (int, int) {
	return (w + 1) / 2, (h + 1) / 2
}

type rawVideoDecoder struct {
	width, height int
	img           image.YCbCr
}

func newRawVideoDecoder(cd av.VideoCodecData) (VideoDecoder, error) {
	if cd.Width() <= 0 || cd.Height() <= 0 {
		return nil, xerrors.Errorf("invalid picture size %dx%d", cd.Width(), cd.Height())
	}
	return &rawVideoDecoder{width: cd.Width(), height: cd.Height()}, nil
}

// Decode wraps the packet's planes without copying them.
func (d *rawVideoDecoder) Decode(data []byte) (Picture, bool, error) {
	w, h := d.width, d.height
	cw, ch := chromaSize(w, h)
	ySize, cSize := w*h, cw*ch
	if len(data) < ySize+2*cSize {
		return Picture{}, false, xerrors.Errorf("raw picture of %d bytes, want %d: %w", len(data), ySize+2*cSize, errShortPacket)
	}

	d.img = image.YCbCr{
		Y:              data[:ySize],
		Cb:             data[ySize : ySize+cSize],
		Cr:             data[ySize+cSize : ySize+2*cSize],
		YStride:        w,
		CStride:        cw,
		SubsampleRatio: image.YCbCrSubsampleRatio420,
		Rect:           image.Rect(0, 0, w, h),
	}
	return Picture{Image: &d.img}, true, nil
}

func (d *rawVideoDecoder) Flush() error { return nil }
func (d *rawVideoDecoder) Close() error { return nil }

// EncodeRawVideo serializes img into a raw video packet. img must use 4:2:0
// subsampling.
func EncodeRawVideo(img *image.YCbCr) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	cw, ch := chromaSize(w, h)
	out := make([]byte, 0, w*h+2*cw*ch)
	for y := 0; y < h; y++ {
		out = append(out, img.Y[y*img.YStride:y*img.YStride+w]...)
	}
	for y := 0; y < ch; y++ {
		out = append(out, img.Cb[y*img.CStride:y*img.CStride+cw]...)
	}
	for y := 0; y < ch; y++ {
		out = append(out, img.Cr[y*img.CStride:y*img.CStride+cw]...)
	}
	return out
}
