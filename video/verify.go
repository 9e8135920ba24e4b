// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package video

import (
	"fmt"
	"strings"

	hw "github.com/db47h/hwverify"
)

// A Mismatch is a pixel differing from the reference.
//
type Mismatch struct {
	Index    int
	Expected uint32
	Actual   uint32
}

func (m Mismatch) String() string {
	return fmt.Sprintf("pixel %d: expected %06x, got %06x", m.Index, m.Expected, m.Actual)
}

// Result is the result of the comparison of a frame with a reference.
//
type Result struct {
	Frame         int
	Matched       bool
	MismatchCount int
	First         []Mismatch // first mismatches, in pixel order
}

// Err returns a content mismatch failure describing r, or nil if the frame
// matched.
//
func (r *Result) Err() error {
	if r.Matched {
		return nil
	}
	var b strings.Builder
	for i, m := range r.First {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(m.String())
	}
	op := fmt.Sprintf("frame %d", r.Frame)
	if len(r.First) == 0 {
		return hw.Mismatchf(op, 0, r.MismatchCount, "mismatching pixels")
	}
	return hw.Mismatchf(op, 0, r.MismatchCount, "mismatching pixels: %s", b.String())
}

// Segment splits stream into frames of size pixels. Incomplete trailing
// pixels are dropped.
//
func Segment(stream []uint32, size int) [][]uint32 {
	if size <= 0 {
		return nil
	}
	n := len(stream) / size
	frames := make([][]uint32, n)
	for i := range frames {
		frames[i] = stream[i*size : (i+1)*size : (i+1)*size]
	}
	return frames
}

// Compare compares frame with ref, pixel i of frame being compared with
// pixel (i + offset) mod len(ref) of ref. Bits above bit 23 are ignored. At
// most maxShown mismatches are recorded in the result.
//
func Compare(frame, ref []uint32, offset, maxShown int) Result {
	r := Result{}
	if len(ref) == 0 {
		r.MismatchCount = len(frame)
		r.Matched = len(frame) == 0
		return r
	}
	offset %= len(ref)
	if offset < 0 {
		offset += len(ref)
	}
	j := offset
	for i, v := range frame {
		exp, act := ref[j]&PixelMask, v&PixelMask
		if exp != act {
			r.MismatchCount++
			if len(r.First) < maxShown {
				r.First = append(r.First, Mismatch{i, exp, act})
			}
		}
		if j++; j == len(ref) {
			j = 0
		}
	}
	r.Matched = r.MismatchCount == 0
	return r
}

// Verify segments stream into frames of size pixels and compares each of
// them with ref at the given offset.
//
func Verify(stream, ref []uint32, size, offset, maxShown int) []Result {
	frames := Segment(stream, size)
	res := make([]Result, len(frames))
	for i, f := range frames {
		res[i] = Compare(f, ref, offset, maxShown)
		res[i].Frame = i
	}
	return res
}

// FindOffset returns the smallest offset at which frame matches ref.
//
func FindOffset(frame, ref []uint32) (int, bool) {
	if len(frame) == 0 || len(ref) == 0 {
		return 0, len(frame) == 0
	}
	first := frame[0] & PixelMask
outer:
	for off := range ref {
		if ref[off]&PixelMask != first {
			continue
		}
		j := off
		for _, v := range frame {
			if ref[j]&PixelMask != v&PixelMask {
				continue outer
			}
			if j++; j == len(ref) {
				j = 0
			}
		}
		return off, true
	}
	return 0, false
}
