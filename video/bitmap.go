// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package video

import (
	"image"
	"image/color"
	"io"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
)

// Image converts the first w*h pixels of px to an opaque RGBA image.
//
func Image(px []uint32, w, h int) (*image.RGBA, error) {
	if w <= 0 || h <= 0 || len(px) < w*h {
		return nil, errors.Errorf("%d pixels do not make a %dx%d image", len(px), w, h)
	}
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := px[y*w+x]
			img.SetRGBA(x, y, color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xFF})
		}
	}
	return img, nil
}

// WriteBitmap writes the first w*h pixels of px to wr as an uncompressed 24
// bits bitmap. Rows are stored bottom-up, with a positive height in the
// header, as written by x/image/bmp. Decoders render the same image as a
// top-down file would.
//
func WriteBitmap(wr io.Writer, px []uint32, w, h int) error {
	img, err := Image(px, w, h)
	if err != nil {
		return err
	}
	return errors.WithStack(bmp.Encode(wr, img))
}

// SaveBitmap writes the first w*h pixels of px to the bitmap file name.
//
func SaveBitmap(name string, px []uint32, w, h int) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if e := f.Close(); err == nil {
			err = errors.WithStack(e)
		}
	}()
	return WriteBitmap(f, px, w, h)
}
