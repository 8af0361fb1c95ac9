package main

import (
	"image/png"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanikai/alohaplay/internal/media"
)

func TestWritePNG(t *testing.T) {
	dir, err := ioutil.TempDir("", "alohaplay")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	f := media.NewVideoFrame(6, 4, 0)
	defer f.Release()
	f.Seq = 42
	pix := f.Bytes()
	pix[0], pix[1], pix[2] = 255, 128, 0

	require.NoError(t, writePNG(dir, f))

	file, err := os.Open(filepath.Join(dir, "frame-000042.png"))
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)

	assert.Equal(t, 6, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
	r, g, b, a := img.At(0, 0).RGBA()
	assert.Equal(t, []uint32{255, 128, 0, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
}

func TestWritePNGMissingDir(t *testing.T) {
	f := media.NewVideoFrame(2, 2, 0)
	defer f.Release()
	assert.Error(t, writePNG("/no/such/dir", f))
}
