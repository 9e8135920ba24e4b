// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package fifo exercises a first-in first-out buffer whose write and read
// sides run on independent clocks, and checks its cross-domain flag and
// occupancy invariants.
//
package fifo

import (
	hw "github.com/db47h/hwverify"
	"github.com/pkg/errors"
)

// Ports are the FIFO ports driven and sampled by the validator.
//
// WrReq, Data, WrFull and UsedW belong to the write clock domain. RdReq, Q
// and RdEmpty belong to the read clock domain.
//
type Ports struct {
	WrReq   *hw.Signal `hw:"out,wrreq"`
	Data    *hw.Signal `hw:"out,data,32"`
	WrFull  *hw.Signal `hw:"in,wrfull"`
	UsedW   *hw.Signal `hw:"in,usedw,9"`
	RdReq   *hw.Signal `hw:"out,rdreq"`
	Q       *hw.Signal `hw:"in,q,32"`
	RdEmpty *hw.Signal `hw:"in,rdempty"`
}

// Config configures a Validator.
//
type Config struct {
	// Depth is the FIFO capacity in words.
	Depth int
	// ReadLatency is the number of read clock edges to wait after the edge
	// sampling a read request before the output data register is valid.
	ReadLatency int
	// PropagationBudget is the number of read clock edges within which the
	// empty flag must clear after a write.
	PropagationBudget int
	// DrainBudget is the number of read clock edges, counted from the edge
	// sampling the final read request, within which the empty flag must be
	// asserted again.
	DrainBudget int
	// SpinBudget bounds the number of edges spent waiting on full or empty
	// flags before a write or read gives up with a timeout.
	SpinBudget int
}

// DefaultConfig returns the default configuration for a 512 words FIFO with
// a registered read port.
//
func DefaultConfig() Config {
	return Config{
		Depth:             512,
		ReadLatency:       1,
		PropagationBudget: 5,
		DrainBudget:       1,
		SpinBudget:        10000,
	}
}

// Validate checks the configuration.
//
func (c *Config) Validate() error {
	switch {
	case c.Depth <= 0:
		return errors.Errorf("fifo: invalid depth %d", c.Depth)
	case c.ReadLatency < 0:
		return errors.Errorf("fifo: invalid read latency %d", c.ReadLatency)
	case c.PropagationBudget <= 0 || c.SpinBudget <= 0:
		return errors.New("fifo: budgets must be positive")
	case c.DrainBudget < c.ReadLatency:
		return errors.Errorf("fifo: drain budget %d shorter than read latency %d", c.DrainBudget, c.ReadLatency)
	}
	return nil
}

// Validator drives a dual-clock FIFO and asserts its invariants.
//
type Validator struct {
	p      *Ports
	wclk   *hw.Clock
	rclk   *hw.Clock
	cfg    Config
	reqRd  uint64 // read clock edge that sampled the last read request
	writes int
	reads  int
}

// New returns a new Validator for the FIFO behind p.
//
func New(p *Ports, wclk, rclk *hw.Clock, cfg Config) (*Validator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Validator{p: p, wclk: wclk, rclk: rclk, cfg: cfg}, nil
}

// Idle deasserts the write and read requests.
//
func (v *Validator) Idle() {
	v.p.WrReq.Set(0)
	v.p.RdReq.Set(0)
	v.p.Data.Set(0)
}

// Writes returns the number of words written so far.
//
func (v *Validator) Writes() int { return v.writes }

// Reads returns the number of words read so far.
//
func (v *Validator) Reads() int { return v.reads }

// Write writes data into the FIFO. It waits on write clock edges while the
// full flag is asserted, then asserts a write request for exactly one edge.
//
func (v *Validator) Write(t *hw.Task, data uint32) error {
	if err := v.spin(t, v.wclk, v.p.WrFull, "write"); err != nil {
		return err
	}
	v.Push(t, data)
	return nil
}

// Push asserts a write request for exactly one write clock edge, regardless
// of the full flag.
//
func (v *Validator) Push(t *hw.Task, data uint32) {
	v.p.WrReq.Set(1)
	v.p.Data.Set(uint64(data))
	t.Edge(v.wclk)
	v.p.WrReq.Set(0)
	v.writes++
}

// Read reads one word from the FIFO. It waits on read clock edges while the
// empty flag is asserted, asserts a read request for one edge, then waits
// ReadLatency more edges for the output data register.
//
func (v *Validator) Read(t *hw.Task) (uint32, error) {
	if err := v.spin(t, v.rclk, v.p.RdEmpty, "read"); err != nil {
		return 0, err
	}
	v.p.RdReq.Set(1)
	t.Edge(v.rclk)
	v.p.RdReq.Set(0)
	v.reqRd = v.rclk.Edges()
	t.Edges(v.rclk, v.cfg.ReadLatency)
	q, err := v.p.Q.Uint()
	if err != nil {
		return 0, hw.Protocolf("read", "defined data", "x", "%v after %d read latency edges", err, v.cfg.ReadLatency)
	}
	v.reads++
	return uint32(q), nil
}

func (v *Validator) spin(t *hw.Task, clk *hw.Clock, flag *hw.Signal, op string) error {
	for i := 0; flag.High() || flag.IsX(); i++ {
		if i >= v.cfg.SpinBudget {
			return hw.Timeoutf(op, uint64(v.cfg.SpinBudget), uint64(v.writes+v.reads),
				"%s still asserted after %d %s edges", flag.Name(), i, clk.Name())
		}
		t.Edge(clk)
	}
	return nil
}

// awaitFlag waits until flag equals want, counting edges of clk from the
// edge numbered since. It fails with a protocol violation if the flag is
// still wrong once budget edges have elapsed.
//
func awaitFlag(t *hw.Task, clk *hw.Clock, flag *hw.Signal, want bool, since uint64, budget int, op string) (int, error) {
	for {
		n := int(clk.Edges() - since)
		if flag.High() == want && !flag.IsX() {
			return n, nil
		}
		if n >= budget {
			return n, hw.Protocolf(op, b2i(want), flagState(flag), "%s wrong %d %s edges after the transfer (budget %d)", flag.Name(), n, clk.Name(), budget)
		}
		t.Edge(clk)
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func flagState(s *hw.Signal) interface{} {
	if s.IsX() {
		return "x"
	}
	return s.Value()
}

// CheckInitial asserts that the FIFO is empty and not full.
//
func (v *Validator) CheckInitial() error {
	if !v.p.RdEmpty.High() {
		return hw.Protocolf("initial flags", 1, flagState(v.p.RdEmpty), "rdempty must be asserted before the first write")
	}
	if v.p.WrFull.High() || v.p.WrFull.IsX() {
		return hw.Protocolf("initial flags", 0, flagState(v.p.WrFull), "wrfull must be deasserted before the first write")
	}
	return nil
}

// CheckPropagation writes a single word and checks that the empty flag clears
// within the propagation budget. It returns the number of read clock edges
// observed before the flag cleared.
//
func (v *Validator) CheckPropagation(t *hw.Task, data uint32) (int, error) {
	if err := v.Write(t, data); err != nil {
		return 0, err
	}
	return awaitFlag(t, v.rclk, v.p.RdEmpty, false, v.rclk.Edges(), v.cfg.PropagationBudget, "empty propagation")
}

// CheckDrain reads len(expected) words, checks their order and value, then
// checks that the empty flag is asserted again within the drain budget of the
// final read.
//
func (v *Validator) CheckDrain(t *hw.Task, expected []uint32) error {
	for i, e := range expected {
		q, err := v.Read(t)
		if err != nil {
			return errors.Wrapf(err, "word %d", i)
		}
		if q != e {
			return hw.Protocolf("drain", e, q, "word %d out of order or corrupted", i)
		}
	}
	_, err := awaitFlag(t, v.rclk, v.p.RdEmpty, true, v.reqRd, v.cfg.DrainBudget, "empty after drain")
	return err
}

// Saturated returns the value of a saturating counter of the given bit width
// at or beyond capacity: 2^width - 1.
//
func Saturated(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<width - 1
}

// CheckSaturation fills the FIFO to capacity, writing the last word only
// once the previous writes have settled, plus extra words beyond capacity.
// It then checks that the full flag is asserted and that the occupancy counter
// is clamped to its maximum representable value 2^W-1. When the counter is
// wide enough to hold the FIFO depth, the expected value is the depth
// instead. Both agree for the default 512 words FIFO with a 9 bits counter.
//
func (v *Validator) CheckSaturation(t *hw.Task, extra int) error {
	for i := 0; i < v.cfg.Depth-1; i++ {
		v.Push(t, uint32(i))
	}
	t.Edge(v.wclk)
	v.Push(t, 0xFF)
	for i := 0; i < extra; i++ {
		v.Push(t, 0xEE)
	}
	t.Edge(v.wclk)
	if !v.p.WrFull.High() {
		return hw.Protocolf("saturation", 1, flagState(v.p.WrFull), "wrfull must be asserted at capacity")
	}
	exp := uint64(v.cfg.Depth)
	if max := Saturated(v.p.UsedW.Width()); exp > max {
		exp = max
	}
	used, err := v.p.UsedW.Uint()
	if err != nil {
		return hw.Protocolf("saturation", exp, "x", "%v", err)
	}
	if used != exp {
		return hw.Protocolf("saturation", exp, used, "%s must clamp at min(depth, 2^%d-1)", v.p.UsedW.Name(), v.p.UsedW.Width())
	}
	return nil
}

// Watch starts a task recording whether the full flag is ever asserted. The
// returned function reports the write clock edge of the first observation,
// or 0 if full was never observed.
//
func (v *Validator) Watch(s *hw.Sim) func() uint64 {
	var seen uint64
	s.Go("fifo full watch", func(t *hw.Task) error {
		for {
			t.Edge(v.wclk)
			if seen == 0 && v.p.WrFull.High() {
				seen = v.wclk.Edges()
			}
		}
	})
	return func() uint64 { return seen }
}

// RunBasic writes the values 0..n-1 then reads them back. It checks that empty
// is asserted before the first write and after the last read, that the values
// come out in order and that full is never asserted.
//
func (v *Validator) RunBasic(t *hw.Task, n int) error {
	full := v.Watch(t.Sim())
	t.Edge(v.rclk)
	if err := v.CheckInitial(); err != nil {
		return err
	}
	exp := make([]uint32, n)
	for i := range exp {
		exp[i] = uint32(i)
		if err := v.Write(t, exp[i]); err != nil {
			return err
		}
	}
	if err := v.CheckDrain(t, exp); err != nil {
		return err
	}
	if e := full(); e != 0 {
		return hw.Protocolf("basic", 0, 1, "wrfull asserted at write clock edge %d", e)
	}
	return nil
}
