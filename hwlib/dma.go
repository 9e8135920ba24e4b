// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	hw "github.com/db47h/hwverify"
	"github.com/pkg/errors"
)

// DMAConfig configures a DMAMaster.
//
type DMAConfig struct {
	// Words per frame.
	FrameWords int
	// Burst length in words.
	Burst int
	// No burst is issued while fifo_used >= HaltLevel.
	HaltLevel uint64
}

// DefaultDMAConfig returns the configuration of a DMA streaming 960x540
// frames into a 512 words FIFO.
//
func DefaultDMAConfig() DMAConfig {
	return DMAConfig{FrameWords: 960 * 540, Burst: 64, HaltLevel: 400}
}

type dmaPorts struct {
	Start         *hw.Signal `hw:"in"`
	ContEn        *hw.Signal `hw:"in,cont_en"`
	VsyncEdge     *hw.Signal `hw:"in,vsync_edge"`
	FramePtr      *hw.Signal `hw:"in,frame_ptr,32"`
	Busy          *hw.Signal `hw:"out"`
	FifoUsed      *hw.Signal `hw:"in,fifo_used,9"`
	FifoClr       *hw.Signal `hw:"out,fifo_clr"`
	FifoWrEn      *hw.Signal `hw:"out,fifo_wr_en"`
	FifoWrData    *hw.Signal `hw:"out,fifo_wr_data,32"`
	Read          *hw.Signal `hw:"out"`
	Address       *hw.Signal `hw:"out,address,32"`
	BurstCount    *hw.Signal `hw:"out,burstcount,16"`
	WaitRequest   *hw.Signal `hw:"in,waitrequest"`
	ReadData      *hw.Signal `hw:"in,readdata,32"`
	ReadDataValid *hw.Signal `hw:"in,readdatavalid"`
}

// DMAMaster is a frame streaming bus master model. It reads FrameWords words
// from frame_ptr in bursts, with at most one outstanding burst, and writes
// them to a downstream FIFO.
//
// A start pulse starts a transfer while idle. In continuous mode (cont_en),
// a rising edge of vsync_edge flushes the FIFO and restarts the transfer,
// discarding any in-flight data.
//
//	Inputs: start, cont_en, vsync_edge, frame_ptr[32], fifo_used[9],
//	        waitrequest, readdata[32], readdatavalid
//	Outputs: busy, fifo_clr, fifo_wr_en, fifo_wr_data[32],
//	         read, address[32], burstcount[16]
//
type DMAMaster struct {
	p   dmaPorts
	cfg DMAConfig

	busy        bool
	pending     bool // read asserted, not yet accepted
	burst       int
	addr        uint64
	toRequest   int
	outstanding int
	discard     int
	received    int
	prevVs      bool
	frames      int
}

// NewDMAMaster mounts a new DMA master model in s.
//
func NewDMAMaster(s *hw.Sim, clk *hw.Clock, cfg DMAConfig, conns string) (*DMAMaster, error) {
	if cfg.FrameWords <= 0 || cfg.Burst <= 0 || cfg.Burst > 0xFFFF {
		return nil, errors.Errorf("dma master: invalid frame size %d or burst %d", cfg.FrameWords, cfg.Burst)
	}
	d := &DMAMaster{cfg: cfg}
	if _, err := hw.Bind(s, &d.p, conns); err != nil {
		return nil, errors.Wrap(err, "dma master")
	}
	d.p.Address.Set(0)
	d.p.BurstCount.Set(0)
	d.drive(false, 0, false)
	s.OnEdge(clk, d.edge)
	return d, nil
}

// Received returns the number of words written to the FIFO for the current
// frame.
//
func (d *DMAMaster) Received() int { return d.received }

// Frames returns the number of completed frames.
//
func (d *DMAMaster) Frames() int { return d.frames }

func (d *DMAMaster) begin() {
	d.busy = true
	d.addr = d.p.FramePtr.Value()
	d.toRequest = d.cfg.FrameWords
	d.received = 0
}

func (d *DMAMaster) edge() {
	p := &d.p
	if d.pending && !p.WaitRequest.High() {
		d.pending = false
		d.outstanding += d.burst
	}

	wrEn, data := false, uint64(0)
	if p.ReadDataValid.High() && d.outstanding > 0 {
		d.outstanding--
		if d.discard > 0 {
			d.discard--
		} else if d.busy {
			wrEn, data = true, p.ReadData.Value()
			d.received++
		}
	}

	vs := p.VsyncEdge.High()
	rising := vs && !d.prevVs
	d.prevVs = vs
	clr := false
	switch {
	case rising && p.ContEn.High():
		clr, wrEn = true, false
		d.pending = false
		d.discard = d.outstanding
		d.begin()
	case p.Start.High() && !d.busy:
		d.begin()
	}

	if d.busy && !d.pending && d.outstanding == 0 && d.toRequest > 0 && p.FifoUsed.Value() < d.cfg.HaltLevel {
		n := d.cfg.Burst
		if n > d.toRequest {
			n = d.toRequest
		}
		p.Address.Set(d.addr)
		p.BurstCount.Set(uint64(n))
		d.pending, d.burst = true, n
		d.addr += uint64(n) * 4
		d.toRequest -= n
	}

	if d.busy && d.toRequest == 0 && d.outstanding == 0 && !d.pending {
		d.busy = false
		d.frames++
	}
	d.drive(wrEn, data, clr)
}

func (d *DMAMaster) drive(wrEn bool, data uint64, clr bool) {
	p := &d.p
	p.Busy.SetBool(d.busy)
	p.Read.SetBool(d.pending)
	p.FifoWrEn.SetBool(wrEn)
	p.FifoWrData.Set(data)
	p.FifoClr.SetBool(clr)
}
