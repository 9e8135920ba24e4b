// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package dma

import (
	hw "github.com/db47h/hwverify"
)

// Register map of the pipeline control block.
//
const (
	RegMode     = 0
	RegCtrl     = 1
	RegFramePtr = 6
)

// RegMode values.
//
const (
	ModeDMA = 8 // stream frames from memory
)

// RegCtrl bits.
//
const (
	CtrlGamma      = 1 << 0
	CtrlContinuous = 1 << 1
	CtrlStart      = 1 << 2 // self-clearing
	StatusBusy     = 1 << 31
)

// CSRBus is a register slave interface, from the point of view of the
// master.
//
type CSRBus struct {
	Address   *hw.Signal `hw:"out,csr_address,3"`
	Write     *hw.Signal `hw:"out,csr_write"`
	WriteData *hw.Signal `hw:"out,csr_writedata,32"`
	Read      *hw.Signal `hw:"out,csr_read"`
	ReadData  *hw.Signal `hw:"in,csr_readdata,32"`
}

// CSR drives register reads and writes.
//
type CSR struct {
	b   *CSRBus
	clk *hw.Clock
}

// NewCSR returns a new register driver for b, clocked by clk.
//
func NewCSR(b *CSRBus, clk *hw.Clock) *CSR {
	return &CSR{b: b, clk: clk}
}

// Idle deasserts the read and write strobes.
//
func (c *CSR) Idle() {
	c.b.Address.Set(0)
	c.b.Write.Set(0)
	c.b.WriteData.Set(0)
	c.b.Read.Set(0)
}

// WriteReg writes v to register reg. The write strobe is asserted for one
// edge.
//
func (c *CSR) WriteReg(t *hw.Task, reg int, v uint32) {
	c.b.Address.Set(uint64(reg))
	c.b.WriteData.Set(uint64(v))
	c.b.Write.Set(1)
	t.Edge(c.clk)
	c.b.Write.Set(0)
}

// ReadReg reads register reg. Read data is valid one edge after the edge
// sampling the read strobe.
//
func (c *CSR) ReadReg(t *hw.Task, reg int) (uint32, error) {
	c.b.Address.Set(uint64(reg))
	c.b.Read.Set(1)
	t.Edge(c.clk)
	c.b.Read.Set(0)
	t.Edge(c.clk)
	v, err := c.b.ReadData.Uint()
	if err != nil {
		return 0, hw.Protocolf("csr read", "defined data", "x", "register %d: %v", reg, err)
	}
	return uint32(v), nil
}

// AwaitBusy polls the control register until the busy status bit equals
// busy, for at most attempts register reads.
//
func (c *CSR) AwaitBusy(t *hw.Task, busy bool, attempts int) error {
	for i := 0; i < attempts; i++ {
		v, err := c.ReadReg(t, RegCtrl)
		if err != nil {
			return err
		}
		if (v&StatusBusy != 0) == busy {
			return nil
		}
	}
	return hw.Timeoutf("csr busy poll", uint64(attempts), uint64(attempts), "busy status never became %v", busy)
}
