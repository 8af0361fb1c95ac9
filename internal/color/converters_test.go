package color

import (
	"image"
	stdcolor "image/color"
	"testing"
)

func TestYCbCrToRGB24(t *testing.T) {
	r := image.Rect(0, 0, 64, 48)
	src := image.NewYCbCr(r, image.YCbCrSubsampleRatio420)

	// Write some sample data
	for i := range src.Y {
		src.Y[i] = byte(i)
	}
	for i := range src.Cb {
		src.Cb[i] = byte(3 * i)
		src.Cr[i] = byte(255 - i)
	}

	dst := make([]byte, RGB24Size(r))
	YCbCrToRGB24(dst, src)

	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			c := src.YCbCrAt(x, y)
			er, eg, eb := stdcolor.YCbCrToRGB(c.Y, c.Cb, c.Cr)
			i := 3 * (r.Dx()*y + x)
			if dst[i] != er || dst[i+1] != eg || dst[i+2] != eb {
				t.Fatalf("pixel (%d,%d): got %v, want %v", x, y, dst[i:i+3], []byte{er, eg, eb})
			}
		}
	}
}

func TestRGB24ToRGBA(t *testing.T) {
	src := []byte{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}
	img := RGB24ToRGBA(src, 2, 2)

	want := stdcolor.RGBA{10, 11, 12, 255}
	if got := img.RGBAAt(1, 1); got != want {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := img.RGBAAt(0, 0); got != (stdcolor.RGBA{1, 2, 3, 255}) {
		t.Fatalf("got %v", got)
	}
}

func TestFillYCbCr(t *testing.T) {
	img := image.NewYCbCr(image.Rect(0, 0, 4, 4), image.YCbCrSubsampleRatio420)
	FillYCbCr(img, 235, 128, 128)

	dst := make([]byte, RGB24Size(img.Rect))
	YCbCrToRGB24(dst, img)
	for i, b := range dst {
		if b != 235 {
			t.Fatalf("byte %d: got %d", i, b)
		}
	}
}

func BenchmarkYCbCrToRGB24At720P(b *testing.B) {
	r := image.Rect(0, 0, 1280, 720)
	src := image.NewYCbCr(r, image.YCbCrSubsampleRatio420)
	dst := make([]byte, RGB24Size(r))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		YCbCrToRGB24(dst, src)
	}
}
