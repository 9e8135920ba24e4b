// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwverify

import (
	"runtime"

	"github.com/pkg/errors"
)

// A Task is a cooperative activity scheduled by a Sim. A task runs until it
// suspends in Edge, Edges or Queue.Get.
//
type Task struct {
	sim    *Sim
	name   string
	resume chan struct{}

	finished bool
	killed   bool
	err      error
}

// Name returns the task name.
//
func (t *Task) Name() string { return t.name }

// Sim returns the simulation running t.
//
func (t *Task) Sim() *Sim { return t.sim }

// Done returns true once the task function has returned.
//
func (t *Task) Done() bool { return t.finished }

// Err returns the error returned by the task function.
//
func (t *Task) Err() error { return t.err }

func (t *Task) run(fn func(t *Task) error) {
	defer func() {
		if t.killed {
			return
		}
		if r := recover(); r != nil {
			if err, ok := r.(error); ok {
				t.err = errors.Wrap(err, "panic")
			} else {
				t.err = errors.Errorf("panic: %v", r)
			}
		}
		t.finished = true
		t.sim.yield <- struct{}{}
	}()
	t.park()
	t.err = fn(t)
}

// park blocks until the scheduler resumes t or the simulation is disposed.
//
func (t *Task) park() {
	select {
	case <-t.resume:
	case <-t.sim.done:
		t.killed = true
		runtime.Goexit()
	}
}

func (t *Task) suspend() {
	t.sim.yield <- struct{}{}
	t.park()
}

// Edge suspends t until the next rising edge of clk.
//
func (t *Task) Edge(clk *Clock) {
	clk.waiting = append(clk.waiting, t)
	t.suspend()
}

// Edges suspends t for n rising edges of clk.
//
func (t *Task) Edges(clk *Clock, n int) {
	for i := 0; i < n; i++ {
		t.Edge(clk)
	}
}

// Queue is an unbounded FIFO whose Get method suspends the calling task until
// an item is available. Items are delivered in the order they were Put.
//
type Queue[T any] struct {
	sim     *Sim
	items   []T
	waiting []*Task
}

// NewQueue returns a new empty queue scheduled by s.
//
func NewQueue[T any](s *Sim) *Queue[T] {
	return &Queue[T]{sim: s}
}

// Len returns the number of queued items.
//
func (q *Queue[T]) Len() int { return len(q.items) }

// Put appends v to the queue and wakes up the first waiting task, if any.
// It never blocks.
//
func (q *Queue[T]) Put(v T) {
	q.items = append(q.items, v)
	if len(q.waiting) > 0 {
		w := q.waiting[0]
		q.waiting = q.waiting[1:]
		q.sim.ready = append(q.sim.ready, w)
	}
}

// Get removes and returns the first item of the queue, suspending t until
// one is available.
//
func (q *Queue[T]) Get(t *Task) T {
	for len(q.items) == 0 {
		q.waiting = append(q.waiting, t)
		t.suspend()
	}
	v := q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return v
}
