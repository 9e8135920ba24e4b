// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	hw "github.com/db47h/hwverify"
	"github.com/pkg/errors"
)

// FIFOConfig configures a DCFIFO.
//
type FIFOConfig struct {
	Depth int
	// Number of flip-flop stages of the pointer synchronizers.
	SyncStages int
	// Wrap makes usedw wrap around instead of saturating. Models a
	// defective device.
	Wrap bool
}

// DefaultFIFOConfig returns the configuration of a 512 words FIFO with two
// stage synchronizers.
//
func DefaultFIFOConfig() FIFOConfig {
	return FIFOConfig{Depth: 512, SyncStages: 2}
}

type fifoPorts struct {
	Aclr    *hw.Signal `hw:"in"`
	WrReq   *hw.Signal `hw:"in,wrreq"`
	Data    *hw.Signal `hw:"in,data,32"`
	WrFull  *hw.Signal `hw:"out,wrfull"`
	UsedW   *hw.Signal `hw:"out,usedw,9"`
	RdReq   *hw.Signal `hw:"in,rdreq"`
	Q       *hw.Signal `hw:"out,q,32"`
	RdEmpty *hw.Signal `hw:"out,rdempty"`
}

// DCFIFO is a dual-clock FIFO model with a registered read port.
//
// Write and read pointers cross clock domains through SyncStages flip-flops.
// wrfull and usedw are computed in the write clock domain, rdempty in the
// read clock domain. usedw saturates at its maximum value.
//
//	Inputs: aclr, wrreq, data[32], rdreq
//	Outputs: wrfull, usedw[9], q[32], rdempty
//
type DCFIFO struct {
	p   fifoPorts
	cfg FIFOConfig

	mem        []uint32
	wptr, rptr uint64
	wsync      []uint64 // write pointer as seen by the read domain
	rsync      []uint64 // read pointer as seen by the write domain
}

// NewDCFIFO mounts a new dual-clock FIFO model in s.
//
func NewDCFIFO(s *hw.Sim, wclk, rclk *hw.Clock, cfg FIFOConfig, conns string) (*DCFIFO, error) {
	if cfg.Depth <= 0 || cfg.SyncStages <= 0 {
		return nil, errors.Errorf("dcfifo: invalid depth %d or sync stages %d", cfg.Depth, cfg.SyncStages)
	}
	f := &DCFIFO{
		cfg:   cfg,
		mem:   make([]uint32, cfg.Depth),
		wsync: make([]uint64, cfg.SyncStages),
		rsync: make([]uint64, cfg.SyncStages),
	}
	if _, err := hw.Bind(s, &f.p, conns); err != nil {
		return nil, errors.Wrap(err, "dcfifo")
	}
	f.p.WrFull.Set(0)
	f.p.UsedW.Set(0)
	f.p.Q.Set(0)
	f.p.RdEmpty.Set(1)
	s.OnEdge(wclk, f.write)
	s.OnEdge(rclk, f.read)
	return f, nil
}

// Level returns the actual number of words stored.
//
func (f *DCFIFO) Level() int { return int(f.wptr - f.rptr) }

// Clear empties the FIFO.
//
func (f *DCFIFO) Clear() {
	f.wptr, f.rptr = 0, 0
	for i := range f.wsync {
		f.wsync[i], f.rsync[i] = 0, 0
	}
}

func shift(sync []uint64, v uint64) uint64 {
	copy(sync[1:], sync[:len(sync)-1])
	sync[0] = v
	return sync[len(sync)-1]
}

func (f *DCFIFO) write() {
	if f.p.Aclr.High() {
		f.Clear()
	}
	rp := f.rsync[len(f.rsync)-1]
	if f.p.WrReq.High() && int(f.wptr-rp) < f.cfg.Depth {
		f.mem[f.wptr%uint64(f.cfg.Depth)] = uint32(f.p.Data.Value())
		f.wptr++
	}
	rp = shift(f.rsync, f.rptr)
	used := f.wptr - rp
	f.p.WrFull.SetBool(int(used) >= f.cfg.Depth)
	if !f.cfg.Wrap && used > f.p.UsedW.Max() {
		used = f.p.UsedW.Max()
	}
	f.p.UsedW.Set(used)
}

func (f *DCFIFO) read() {
	if f.p.Aclr.High() {
		f.Clear()
	}
	wp := f.wsync[len(f.wsync)-1]
	if f.p.RdReq.High() && f.rptr != wp {
		f.p.Q.Set(uint64(f.mem[f.rptr%uint64(f.cfg.Depth)]))
		f.rptr++
	}
	wp = shift(f.wsync, f.wptr)
	f.p.RdEmpty.SetBool(f.rptr == wp)
}
