// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dma

import (
	hw "github.com/db47h/hwverify"
)

// StreamPorts is the downstream FIFO write interface of the DMA.
//
type StreamPorts struct {
	WrEn   *hw.Signal `hw:"in,fifo_wr_en"`
	WrData *hw.Signal `hw:"in,fifo_wr_data,32"`
}

// Stream checks the words written by the DMA to its downstream FIFO.
//
type Stream struct {
	p      *StreamPorts
	clk    *hw.Clock
	want   func(i int) uint32
	budget int
	count  int
}

// NewStream returns a stream checker expecting want(i) as the i-th written
// word. Each word must be written within budget edges of the previous one.
//
func NewStream(p *StreamPorts, clk *hw.Clock, want func(i int) uint32, budget int) *Stream {
	return &Stream{p: p, clk: clk, want: want, budget: budget}
}

// Count returns the number of words checked so far.
//
func (s *Stream) Count() int { return s.count }

// Check checks the next n words.
//
func (s *Stream) Check(t *hw.Task, n int) error {
	for end := s.count + n; s.count < end; s.count++ {
		for idle := 0; ; idle++ {
			if idle >= s.budget {
				return hw.Timeoutf("stream", uint64(s.budget), uint64(s.count), "no FIFO write for %d edges", idle)
			}
			t.Edge(s.clk)
			if s.p.WrEn.High() {
				break
			}
		}
		got, exp := uint32(s.p.WrData.Value()), s.want(s.count)
		if got != exp {
			return hw.Mismatchf("stream", exp, got, "word %d", s.count)
		}
	}
	return nil
}
