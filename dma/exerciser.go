// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package dma drives a DMA bus master through its control interface and
// checks that it honors downstream backpressure.
//
// The DMA state machine is observed, not implemented:
//
//	Idle -> Busy    on a start pulse, or on a frame sync edge in continuous mode
//	Busy -> Idle    on frame completion
//	Busy -> Busy    on a frame sync edge in continuous mode (restart)
//
package dma

import (
	hw "github.com/db47h/hwverify"
	"github.com/pkg/errors"
)

// Control are the DMA control ports as seen by the exerciser.
//
// Read is the bus read strobe issued by the DMA and WaitRequest the bus
// stall. The exerciser only samples them: every edge where read is asserted
// and not stalled is an accepted read request.
//
type Control struct {
	Start       *hw.Signal `hw:"out"`
	ContEn      *hw.Signal `hw:"out,cont_en"`
	VsyncEdge   *hw.Signal `hw:"out,vsync_edge"`
	Busy        *hw.Signal `hw:"in"`
	FifoUsed    *hw.Signal `hw:"out,fifo_used,9"`
	Read        *hw.Signal `hw:"in"`
	WaitRequest *hw.Signal `hw:"in,waitrequest"`
}

// Config configures an Exerciser.
//
type Config struct {
	// Edges after the start pulse within which busy must rise.
	StartBudget int
	// Downstream occupancy driven to apply backpressure.
	Threshold uint64
	// Edges given to the DMA to complete in-flight requests once
	// backpressure is applied.
	Settle int
	// Observation window, in edges.
	Window int
	// Edges during which busy must stay asserted after start.
	BusyHold int
	// Edges to wait for the end of a transfer.
	IdleBudget int
}

// DefaultConfig returns the default exerciser configuration for a 512 words
// downstream FIFO.
//
func DefaultConfig() Config {
	return Config{
		StartBudget: 1,
		Threshold:   450,
		Settle:      200,
		Window:      200,
		BusyHold:    100,
		IdleBudget:  1000000,
	}
}

// Validate checks the configuration.
//
func (c *Config) Validate() error {
	if c.StartBudget <= 0 || c.Window <= 0 || c.IdleBudget <= 0 {
		return errors.New("dma: start, window and idle budgets must be positive")
	}
	if c.Settle < 0 || c.BusyHold < 0 {
		return errors.New("dma: negative settle or busy hold")
	}
	if c.Threshold == 0 {
		return errors.New("dma: zero backpressure threshold")
	}
	return nil
}

// Exerciser drives a DMA master through its control ports.
//
type Exerciser struct {
	c   *Control
	clk *hw.Clock
	cfg Config

	reads int // read requests accepted so far
}

// New returns a new Exerciser for the DMA behind c.
//
func New(c *Control, clk *hw.Clock, cfg Config) (*Exerciser, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if c.FifoUsed.Max() < cfg.Threshold {
		return nil, errors.Errorf("dma: threshold %d does not fit in %s", cfg.Threshold, c.FifoUsed.Name())
	}
	return &Exerciser{c: c, clk: clk, cfg: cfg}, nil
}

// Idle drives all control outputs low.
//
func (e *Exerciser) Idle() {
	e.c.Start.Set(0)
	e.c.ContEn.Set(0)
	e.c.VsyncEdge.Set(0)
	e.c.FifoUsed.Set(0)
}

// Reads returns the number of accepted read requests observed by the
// exerciser.
//
func (e *Exerciser) Reads() int { return e.reads }

// edge waits for the next edge and counts accepted read requests. A strobe
// held high counts once per edge.
//
func (e *Exerciser) edge(t *hw.Task) {
	t.Edge(e.clk)
	if e.c.Read.High() && !e.c.WaitRequest.High() {
		e.reads++
	}
}

// pulse asserts sig for exactly one edge.
//
func (e *Exerciser) pulse(t *hw.Task, sig *hw.Signal) {
	sig.Set(1)
	e.edge(t)
	sig.Set(0)
}

func (e *Exerciser) awaitBusy(t *hw.Task, op string) error {
	for i := 0; i < e.cfg.StartBudget; i++ {
		e.edge(t)
		if e.c.Busy.High() {
			return nil
		}
	}
	return hw.Timeoutf(op, uint64(e.cfg.StartBudget), uint64(e.reads), "busy not asserted")
}

// Start pulses start for one edge and checks that busy rises within the
// start budget.
//
func (e *Exerciser) Start(t *hw.Task) error {
	e.pulse(t, e.c.Start)
	return e.awaitBusy(t, "start")
}

// CheckBusyHeld checks that busy stays asserted for BusyHold edges.
//
func (e *Exerciser) CheckBusyHeld(t *hw.Task) error {
	for i := 0; i < e.cfg.BusyHold; i++ {
		if !e.c.Busy.High() {
			return hw.Protocolf("busy held", 1, e.c.Busy.Value(), "busy dropped %d edges into the transfer", i)
		}
		e.edge(t)
	}
	return nil
}

// observe counts accepted read requests over n edges.
//
func (e *Exerciser) observe(t *hw.Task, n int) int {
	start := e.reads
	for i := 0; i < n; i++ {
		e.edge(t)
	}
	return e.reads - start
}

// CheckBackpressure drives the downstream occupancy to Threshold and checks
// that no read request is issued during the observation window, once
// in-flight requests had Settle edges to complete. It then releases the
// occupancy and checks that reads resume within the next window.
//
func (e *Exerciser) CheckBackpressure(t *hw.Task) error {
	e.c.FifoUsed.Set(e.cfg.Threshold)
	e.observe(t, e.cfg.Settle)
	if n := e.observe(t, e.cfg.Window); n != 0 {
		e.c.FifoUsed.Set(0)
		return hw.Protocolf("backpressure", 0, n, "read requests issued with downstream occupancy at %d", e.cfg.Threshold)
	}
	e.c.FifoUsed.Set(0)
	if n := e.observe(t, e.cfg.Window); n == 0 {
		return hw.Protocolf("backpressure release", ">0", 0, "no read request within %d edges of release", e.cfg.Window)
	}
	return nil
}

// CheckContinuous enables continuous mode, pulses the frame sync edge and
// checks that busy rises without a start pulse. Busy must be low before the
// sync edge.
//
func (e *Exerciser) CheckContinuous(t *hw.Task) error {
	e.c.ContEn.Set(1)
	e.edge(t)
	if e.c.Busy.High() {
		return hw.Protocolf("continuous", 0, 1, "busy asserted before the frame sync edge")
	}
	e.pulse(t, e.c.VsyncEdge)
	return e.awaitBusy(t, "continuous")
}

// AwaitIdle waits for the end of the current transfer.
//
func (e *Exerciser) AwaitIdle(t *hw.Task) error {
	for i := 0; i < e.cfg.IdleBudget; i++ {
		if !e.c.Busy.High() && !e.c.Busy.IsX() {
			return nil
		}
		e.edge(t)
	}
	return hw.Timeoutf("idle", uint64(e.cfg.IdleBudget), uint64(e.reads), "transfer not complete")
}
