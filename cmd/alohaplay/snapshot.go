package main

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/lanikai/alohaplay/internal/color"
	"github.com/lanikai/alohaplay/internal/media"
)

// writePNG saves f in dir, named by frame number. Stepping back over a frame
// overwrites its earlier snapshot.
func writePNG(dir string, f *media.VideoFrame) error {
	name := filepath.Join(dir, fmt.Sprintf("frame-%06d.png", f.Seq))
	file, err := os.Create(name)
	if err != nil {
		return errors.Wrap(err, "frames-out")
	}

	img := color.RGB24ToRGBA(f.Bytes(), f.Width, f.Height)
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return errors.Wrapf(err, "encoding %s", name)
	}
	return file.Close()
}
