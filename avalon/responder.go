// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package avalon implements a bus responder model answering burst read
// transactions issued by a device under test.
//
package avalon

import (
	"math/rand"

	hw "github.com/db47h/hwverify"
	"github.com/db47h/hwverify/memory"
	"github.com/pkg/errors"
)

// Bus is the read side of a memory mapped bus, as seen by the responder.
//
type Bus struct {
	Read          *hw.Signal `hw:"in"`
	Address       *hw.Signal `hw:"in,address,32"`
	BurstCount    *hw.Signal `hw:"in,burstcount,16"`
	WaitRequest   *hw.Signal `hw:"out,waitrequest"`
	ReadData      *hw.Signal `hw:"out,readdata,32"`
	ReadDataValid *hw.Signal `hw:"out,readdatavalid"`
}

// A Request is a burst read request. It is immutable once enqueued.
//
type Request struct {
	Address     uint32
	BurstLength uint32
}

// Config configures a Responder.
//
type Config struct {
	// Inclusive range of access latency in clock edges.
	MinLatency int
	MaxLatency int
	// Seed of the latency random source.
	Seed int64
	// Number of consecutive cycles with an undefined address or burst count
	// while read is asserted before the sampler gives up with a timeout.
	// 0 means no limit.
	IndeterminateBudget int
}

// DefaultConfig returns the default responder configuration.
//
func DefaultConfig() Config {
	return Config{
		MinLatency:          5,
		MaxLatency:          20,
		Seed:                1,
		IndeterminateBudget: 1000,
	}
}

// Validate checks the configuration.
//
func (c *Config) Validate() error {
	if c.MinLatency < 0 || c.MaxLatency < c.MinLatency {
		return errors.Errorf("avalon: invalid latency range [%d, %d]", c.MinLatency, c.MaxLatency)
	}
	if c.IndeterminateBudget < 0 {
		return errors.Errorf("avalon: negative indeterminate budget %d", c.IndeterminateBudget)
	}
	return nil
}

// A Responder answers read requests with randomized latency and burst
// sequenced data. It runs as two tasks sharing a request queue: a sampler
// reacting on every clock edge and a driver servicing one request at a time,
// in order.
//
// The responder only drives its own outputs (waitrequest, readdata,
// readdatavalid) and never writes to its backing store.
//
type Responder struct {
	bus *Bus
	clk *hw.Clock
	mem *memory.Image
	cfg Config
	rnd *rand.Rand
	q   *hw.Queue[Request]

	stall    bool
	accepted []Request
	served   int
	skipped  int
	beats    int
}

// NewResponder returns a new responder for bus, clocked by clk and backed by
// mem. mem is frozen.
//
func NewResponder(bus *Bus, clk *hw.Clock, mem *memory.Image, cfg Config) (*Responder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if bus.Read == nil || bus.ReadDataValid == nil {
		return nil, errors.New("avalon: unbound bus")
	}
	mem.Freeze()
	return &Responder{
		bus: bus,
		clk: clk,
		mem: mem,
		cfg: cfg,
		rnd: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Start drives the responder outputs to their idle state and starts the
// sampler and driver tasks.
//
func (r *Responder) Start(s *hw.Sim) {
	r.q = hw.NewQueue[Request](s)
	r.bus.WaitRequest.SetBool(r.stall)
	r.bus.ReadDataValid.Set(0)
	r.bus.ReadData.Set(0)
	s.Go("avalon sampler", r.sample)
	s.Go("avalon driver", r.drive)
}

// Stall asserts or releases waitrequest. Requests are not accepted while
// waitrequest is asserted.
//
func (r *Responder) Stall(stall bool) {
	r.stall = stall
	r.bus.WaitRequest.SetBool(stall)
}

// Accepted returns the requests accepted so far, in order.
//
func (r *Responder) Accepted() []Request { return r.accepted }

// Served returns the number of completed requests.
//
func (r *Responder) Served() int { return r.served }

// Skipped returns the number of sampling cycles skipped because of
// undefined address or burst count.
//
func (r *Responder) Skipped() int { return r.skipped }

// Beats returns the number of data words driven so far.
//
func (r *Responder) Beats() int { return r.beats }

// Pending returns the number of queued requests not yet picked up by the
// driver.
//
func (r *Responder) Pending() int { return r.q.Len() }

func (r *Responder) sample(t *hw.Task) error {
	s := t.Sim()
	indeterminate := 0
	for {
		t.Edge(r.clk)
		// an undefined strobe counts as deasserted.
		if !r.bus.Read.High() || r.bus.WaitRequest.High() {
			indeterminate = 0
			continue
		}
		addr, err := r.bus.Address.Uint()
		if err == nil {
			var burst uint64
			burst, err = r.bus.BurstCount.Uint()
			if err == nil {
				indeterminate = 0
				req := Request{Address: uint32(addr), BurstLength: uint32(burst)}
				r.accepted = append(r.accepted, req)
				r.q.Put(req)
				continue
			}
		}
		r.skipped++
		indeterminate++
		s.Logf("warning: avalon: read asserted with %v, skipping cycle", err)
		if b := r.cfg.IndeterminateBudget; b > 0 && indeterminate >= b {
			return hw.Timeoutf("avalon sampler", uint64(b), uint64(len(r.accepted)),
				"address or burst count undefined for %d consecutive cycles", indeterminate)
		}
	}
}

func (r *Responder) latency() int {
	return r.cfg.MinLatency + r.rnd.Intn(r.cfg.MaxLatency-r.cfg.MinLatency+1)
}

func (r *Responder) drive(t *hw.Task) error {
	b := r.bus
	for {
		req := r.q.Get(t)
		for i, n := 0, r.latency(); i < n; i++ {
			t.Edge(r.clk)
			b.ReadDataValid.Set(0)
		}
		for i := uint32(0); i < req.BurstLength; i++ {
			t.Edge(r.clk)
			b.ReadDataValid.Set(1)
			b.ReadData.Set(uint64(r.mem.Lookup(req.Address + i*memory.WordSize)))
			r.beats++
		}
		t.Edge(r.clk)
		b.ReadDataValid.Set(0)
		r.served++
	}
}
