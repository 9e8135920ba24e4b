// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	hw "github.com/db47h/hwverify"
	"github.com/pkg/errors"
)

type csrPorts struct {
	Address   *hw.Signal `hw:"in,csr_address,3"`
	Write     *hw.Signal `hw:"in,csr_write"`
	WriteData *hw.Signal `hw:"in,csr_writedata,32"`
	Read      *hw.Signal `hw:"in,csr_read"`
	ReadData  *hw.Signal `hw:"out,csr_readdata,32"`
	Start     *hw.Signal `hw:"out"`
	ContEn    *hw.Signal `hw:"out,cont_en"`
	FramePtr  *hw.Signal `hw:"out,frame_ptr,32"`
	Busy      *hw.Signal `hw:"in"`
}

// CSRBlock is the control register block of the display pipeline.
//
// Register 1 is the control register: bit 1 enables continuous mode, writing
// bit 2 pulses start for one cycle. Reading it returns busy in bit 31.
// Register 6 holds the frame pointer. Other registers are plain storage.
// Read data is registered.
//
//	Inputs: csr_address[3], csr_write, csr_writedata[32], csr_read, busy
//	Outputs: csr_readdata[32], start, cont_en, frame_ptr[32]
//
type CSRBlock struct {
	p    csrPorts
	regs [8]uint32
}

// NewCSRBlock mounts a new register block in s.
//
func NewCSRBlock(s *hw.Sim, clk *hw.Clock, conns string) (*CSRBlock, error) {
	c := new(CSRBlock)
	if _, err := hw.Bind(s, &c.p, conns); err != nil {
		return nil, errors.Wrap(err, "csr")
	}
	c.p.ReadData.Set(0)
	c.p.Start.Set(0)
	c.p.ContEn.Set(0)
	c.p.FramePtr.Set(0)
	s.OnEdge(clk, c.edge)
	return c, nil
}

// Reg returns the value of register n.
//
func (c *CSRBlock) Reg(n int) uint32 { return c.regs[n&7] }

func (c *CSRBlock) edge() {
	p := &c.p
	start := false
	n := p.Address.Value()
	if p.Write.High() {
		v := uint32(p.WriteData.Value())
		if n == 1 && v&4 != 0 {
			start = true
			v &^= 4
		}
		c.regs[n] = v
	}
	if p.Read.High() {
		v := c.regs[n]
		if n == 1 && p.Busy.High() {
			v |= 1 << 31
		}
		p.ReadData.Set(uint64(v))
	}
	p.Start.SetBool(start)
	p.ContEn.SetBool(c.regs[1]&2 != 0)
	p.FramePtr.Set(uint64(c.regs[6]))
}

// PipelineConfig configures a Pipeline.
//
type PipelineConfig struct {
	Timing Timing
	DMA    DMAConfig
	FIFO   FIFOConfig
}

// DefaultPipelineConfig returns the configuration of a pipeline streaming
// frames with timing tm.
//
func DefaultPipelineConfig(tm Timing) PipelineConfig {
	dma := DefaultDMAConfig()
	dma.FrameWords = tm.HActive * tm.VActive
	return PipelineConfig{Timing: tm, DMA: dma, FIFO: DefaultFIFOConfig()}
}

// Pipeline is a memory to display streaming pipeline: a DMA master on the
// system clock feeds a dual-clock FIFO read by a sync generator on the pixel
// clock.
//
// The pipeline exposes the bus master signals read, address, burstcount,
// waitrequest, readdata and readdatavalid, the register interface signals
// csr_*, and the display signals de, hs, vs and d. The FIFO write side
// occupancy is exposed as fifo_used.
//
type Pipeline struct {
	CSR  *CSRBlock
	DMA  *DMAMaster
	FIFO *DCFIFO
	Sync *SyncGen
}

// NewPipeline mounts a new pipeline in s.
//
func NewPipeline(s *hw.Sim, sysClk, pixClk *hw.Clock, cfg PipelineConfig) (*Pipeline, error) {
	var (
		p   Pipeline
		err error
	)
	if p.CSR, err = NewCSRBlock(s, sysClk, ""); err != nil {
		return nil, err
	}
	if p.DMA, err = NewDMAMaster(s, sysClk, cfg.DMA, ""); err != nil {
		return nil, err
	}
	p.FIFO, err = NewDCFIFO(s, sysClk, pixClk, cfg.FIFO,
		"aclr=fifo_clr, wrreq=fifo_wr_en, data=fifo_wr_data, usedw=fifo_used, wrfull=fifo_full, rdreq=px_rdreq, q=px_q, rdempty=px_empty")
	if err != nil {
		return nil, err
	}
	if p.Sync, err = NewSyncGen(s, pixClk, cfg.Timing, "rdreq=px_rdreq, q=px_q"); err != nil {
		return nil, err
	}
	return &p, nil
}

// FastForward moves the sync generator to the fast-forward target of its
// timing.
//
func (p *Pipeline) FastForward() {
	p.Sync.Seek(p.Sync.tm.SeekPoint())
}
