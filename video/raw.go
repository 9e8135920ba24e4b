// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package video

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
)

// Raw rasters are sequences of 32 bits little endian words, one per pixel,
// encoded as 0x00RRGGBB.

// ReadRaw reads a raw raster from r.
//
func ReadRaw(r io.Reader) ([]uint32, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if len(b)%4 != 0 {
		return nil, errors.Errorf("raw raster: size %d is not a multiple of 4", len(b))
	}
	px := make([]uint32, len(b)/4)
	for i := range px {
		px[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return px, nil
}

// WriteRaw writes px to w as a raw raster.
//
func WriteRaw(w io.Writer, px []uint32) error {
	bw := bufio.NewWriter(w)
	var buf [4]byte
	for _, v := range px {
		binary.LittleEndian.PutUint32(buf[:], v)
		if _, err := bw.Write(buf[:]); err != nil {
			return errors.WithStack(err)
		}
	}
	return errors.WithStack(bw.Flush())
}

// LoadRaw reads the raw raster file name.
//
func LoadRaw(name string) ([]uint32, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	defer f.Close()
	px, err := ReadRaw(f)
	return px, errors.Wrap(err, name)
}

// SaveRaw writes px to the raw raster file name.
//
func SaveRaw(name string, px []uint32) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if e := f.Close(); err == nil {
			err = errors.WithStack(e)
		}
	}()
	return WriteRaw(f, px)
}

// Describe writes a short description of the raster px to w: its size in
// words and frames of width pixels per line, and the value and coordinates
// of the pixels at the given indices.
//
func Describe(w io.Writer, px []uint32, width int, idx ...int) error {
	if width <= 0 {
		return errors.Errorf("invalid width %d", width)
	}
	if _, err := fmt.Fprintf(w, "%d words, %d lines of %d pixels\n", len(px), len(px)/width, width); err != nil {
		return errors.WithStack(err)
	}
	for _, i := range idx {
		if i < 0 || i >= len(px) {
			if _, err := fmt.Fprintf(w, "pixel %d: out of range\n", i); err != nil {
				return errors.WithStack(err)
			}
			continue
		}
		v := px[i]
		if _, err := fmt.Fprintf(w, "pixel %d (%d,%d): 0x%08x r=%d g=%d b=%d\n", i, i%width, i/width, v, v>>16&0xFF, v>>8&0xFF, v&0xFF); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
