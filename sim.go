// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwverify

import (
	"fmt"
	"io"
	"log"
	"sort"

	"github.com/pkg/errors"
)

// A Clock is an independent, free-running clock domain. Only rising edges are
// scheduled.
//
type Clock struct {
	sim    *Sim
	name   string
	period uint64
	next   uint64
	edges  uint64

	devs    []func()
	waiting []*Task
}

// Name returns the clock name.
//
func (c *Clock) Name() string { return c.name }

// Period returns the clock period in ps.
//
func (c *Clock) Period() uint64 { return c.period }

// Edges returns the number of rising edges elapsed so far.
//
func (c *Clock) Edges() uint64 { return c.edges }

// Sim is a cooperative, edge driven scheduler for verification tasks.
//
// A Sim is not safe for concurrent use. Tasks never run in parallel: at any
// given time either the scheduler or exactly one task is running.
//
type Sim struct {
	// Limit is an optional budget in ps of simulated time. Once exceeded,
	// Run fails with a timeout.
	Limit uint64

	now    uint64
	clocks []*Clock
	sigs   map[string]*Signal
	drv    map[*Signal]string
	dirty  []*Signal

	ready []*Task
	tasks []*Task
	yield chan struct{}
	done  chan struct{}
	err   error

	log *log.Logger
}

// New returns a new Sim with no clocks and no signals.
//
// Callers must make sure to call Dispose() once the Sim is no longer needed
// in order to release task goroutines.
//
func New() *Sim {
	return &Sim{
		sigs:  make(map[string]*Signal),
		drv:   make(map[*Signal]string),
		yield: make(chan struct{}),
		done:  make(chan struct{}),
		log:   log.New(io.Discard, "", 0),
	}
}

// SetLogger sets the logger used for warnings and progress messages.
//
func (s *Sim) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	s.log = l
}

// Logf logs a message prefixed with the current simulation time.
//
func (s *Sim) Logf(format string, args ...interface{}) {
	s.log.Printf("[%12d ps] %s", s.now, fmt.Sprintf(format, args...))
}

// Now returns the current simulation time in ps.
//
func (s *Sim) Now() uint64 { return s.now }

// Clock creates a new clock domain with the given period. The first rising
// edge happens at time phase. Times are in ps.
//
func (s *Sim) Clock(name string, period, phase uint64) *Clock {
	if period == 0 {
		panic("clock " + name + ": zero period")
	}
	c := &Clock{sim: s, name: name, period: period, next: phase}
	s.clocks = append(s.clocks, c)
	return c
}

// OnEdge registers a device update function called on every rising edge of
// clk, before any task waiting on that edge is resumed. Update functions
// observe committed signal values and their writes are committed together
// with the writes of tasks.
//
func (s *Sim) OnEdge(clk *Clock, fn func()) {
	clk.devs = append(clk.devs, fn)
}

// Signal returns the signal with the given name. If no such signal exists, a
// new one is allocated in an undefined state.
//
func (s *Sim) Signal(name string, width uint) *Signal {
	if sig, ok := s.sigs[name]; ok {
		if sig.width != width {
			panic(errors.Errorf("signal %s: width %d, requested %d", name, sig.width, width))
		}
		return sig
	}
	sig := newSignal(s, name, width)
	s.sigs[name] = sig
	return sig
}

// Pin returns the signal with the given name.
// This function panics if the signal does not exist.
//
func (s *Sim) Pin(name string) *Signal {
	sig, ok := s.sigs[name]
	if !ok {
		panic("signal " + name + " does not exist")
	}
	return sig
}

// Signals returns the names of all allocated signals in lexical order.
//
func (s *Sim) Signals() []string {
	names := make([]string, 0, len(s.sigs))
	for n := range s.sigs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Go starts a new task. The task starts running once the current task
// suspends, or at the next call to Run.
//
func (s *Sim) Go(name string, fn func(t *Task) error) *Task {
	t := &Task{sim: s, name: name, resume: make(chan struct{})}
	s.tasks = append(s.tasks, t)
	s.ready = append(s.ready, t)
	go t.run(fn)
	return t
}

// Run runs the simulation until the task fn returns. It returns the error
// returned by fn or the first error returned by any other task, wrapped with
// the name of the task.
//
func (s *Sim) Run(name string, fn func(t *Task) error) error {
	main := s.Go(name, fn)
	s.drain()
	for !main.finished && s.err == nil {
		if err := s.advance(); err != nil {
			s.err = err
		}
	}
	return s.err
}

// advance runs the simulation to the next clock edge.
//
func (s *Sim) advance() error {
	if len(s.clocks) == 0 {
		return errors.New("deadlock: no clock to advance and main task suspended")
	}
	next := s.clocks[0].next
	for _, c := range s.clocks[1:] {
		if c.next < next {
			next = c.next
		}
	}
	if s.Limit > 0 && next > s.Limit {
		return Timeoutf("sim", s.Limit, s.now, "simulation time budget of %d ps exceeded", s.Limit)
	}
	s.now = next
	for _, c := range s.clocks {
		if c.next != next {
			continue
		}
		c.edges++
		c.next += c.period
		for _, fn := range c.devs {
			fn()
		}
		s.ready = append(s.ready, c.waiting...)
		c.waiting = c.waiting[:0]
		s.drain()
		if s.err != nil {
			return s.err
		}
	}
	return nil
}

// drain resumes ready tasks until none is left, then commits pending signal
// values.
//
func (s *Sim) drain() {
	for len(s.ready) > 0 && s.err == nil {
		t := s.ready[0]
		s.ready = s.ready[1:]
		s.resume(t)
	}
	for _, sig := range s.dirty {
		sig.commit()
	}
	s.dirty = s.dirty[:0]
}

func (s *Sim) resume(t *Task) {
	t.resume <- struct{}{}
	<-s.yield
	if t.finished && t.err != nil && s.err == nil {
		s.err = errors.Wrap(t.err, t.name)
	}
}

// Dispose releases all resources allocated for the simulation and stops
// suspended task goroutines.
//
func (s *Sim) Dispose() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}
