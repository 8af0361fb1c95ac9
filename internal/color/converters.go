// Copyright 2019 Lanikai Labs. All rights reserved.

// Package color converts decoded pictures into the packed RGB24 layout the
// renderer uploads.
package color

import (
	"image"
)

// RGB24Size returns the number of bytes needed to hold r as packed RGB24.
func RGB24Size(r image.Rectangle) int {
	return 3 * r.Dx() * r.Dy()
}

// YCbCrToRGB24 converts src (any chroma subsampling) into dst, which must
// hold at least RGB24Size(src.Rect) bytes. Rows are written without padding.
// The conversion is full-range BT.601 as used by JPEG and image/color.
func YCbCrToRGB24(dst []byte, src *image.YCbCr) {
	r := src.Rect
	if len(dst) < RGB24Size(r) {
		panic("color: RGB24 destination too small")
	}

	i := 0
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			yi := src.YOffset(x, y)
			ci := src.COffset(x, y)
			dst[i], dst[i+1], dst[i+2] = ycbcrToRGB(src.Y[yi], src.Cb[ci], src.Cr[ci])
			i += 3
		}
	}
}

// Fixed point arithmetic from image/color, inlined for the per-pixel loop.
func ycbcrToRGB(y, cb, cr uint8) (uint8, uint8, uint8) {
	yy1 := int32(y) * 0x10101
	cb1 := int32(cb) - 128
	cr1 := int32(cr) - 128

	r := yy1 + 91881*cr1
	if uint32(r)&0xff000000 == 0 {
		r >>= 16
	} else {
		r = ^(r >> 31)
	}

	g := yy1 - 22554*cb1 - 46802*cr1
	if uint32(g)&0xff000000 == 0 {
		g >>= 16
	} else {
		g = ^(g >> 31)
	}

	b := yy1 + 116130*cb1
	if uint32(b)&0xff000000 == 0 {
		b >>= 16
	} else {
		b = ^(b >> 31)
	}

	return uint8(r), uint8(g), uint8(b)
}

// RGB24ToRGBA expands packed RGB24 pixels into an opaque RGBA image of the
// given size, for encoders that only take image.Image.
func RGB24ToRGBA(src []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := src[3*width*y : 3*width*(y+1)]
		out := img.Pix[img.Stride*y:]
		for x := 0; x < width; x++ {
			out[4*x] = row[3*x]
			out[4*x+1] = row[3*x+1]
			out[4*x+2] = row[3*x+2]
			out[4*x+3] = 0xff
		}
	}
	return img
}

// FillYCbCr paints every pixel of img with one color.
func FillYCbCr(img *image.YCbCr, y, cb, cr uint8) {
	for i := range img.Y {
		img.Y[i] = y
	}
	for i := range img.Cb {
		img.Cb[i] = cb
		img.Cr[i] = cr
	}
}
