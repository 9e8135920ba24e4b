// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwtest provides utility functions for testing verification
// components against device models.
//
package hwtest

import (
	"log"
	"strings"
	"testing"

	hw "github.com/db47h/hwverify"
	"github.com/pkg/errors"
)

type tWriter struct {
	t testing.TB
}

func (w tWriter) Write(p []byte) (int, error) {
	w.t.Helper()
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}

// Logger returns a logger writing to t.Log.
//
func Logger(t testing.TB) *log.Logger {
	return log.New(tWriter{t}, "", 0)
}

// NewSim returns a new simulation logging to t. The simulation is disposed
// when the test completes.
//
func NewSim(t testing.TB) *hw.Sim {
	s := hw.New()
	s.SetLogger(Logger(t))
	t.Cleanup(s.Dispose)
	return s
}

// Trace logs the stack trace of err, if any.
//
func Trace(t testing.TB, err error) {
	t.Helper()
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}
	for e := err; e != nil; {
		if st, ok := e.(stackTracer); ok {
			for _, f := range st.StackTrace() {
				t.Logf("%+v ", f)
			}
			return
		}
		c, ok := e.(interface{ Cause() error })
		if !ok {
			return
		}
		e = c.Cause()
	}
}

// Run runs fn as the main task of s and fails the test on error.
//
func Run(t testing.TB, s *hw.Sim, fn func(t *hw.Task) error) {
	t.Helper()
	if err := s.Run(t.Name(), fn); err != nil {
		Trace(t, err)
		t.Fatal(err)
	}
}

// ExpectFailure fails the test unless err is a failure of the given kind.
//
func ExpectFailure(t testing.TB, err error, kind hw.Kind) *hw.Failure {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got no error", kind)
	}
	f, ok := hw.AsFailure(err)
	if !ok {
		t.Fatalf("expected %s, got %v", kind, err)
	}
	if f.Kind != kind {
		t.Fatalf("expected %s, got %s: %v", kind, f.Kind, err)
	}
	return f
}

// Capture is a passive monitor recording the value of a data signal on every
// edge where a qualifier signal is high.
//
type Capture struct {
	Values []uint64
	Pulses int
}

// Monitor starts a task recording data into the returned Capture on every
// edge of clk where valid is high.
//
func Monitor(s *hw.Sim, clk *hw.Clock, valid, data *hw.Signal) *Capture {
	c := new(Capture)
	s.Go("monitor "+valid.Name(), func(t *hw.Task) error {
		for {
			t.Edge(clk)
			if valid.High() {
				c.Pulses++
				if data != nil {
					c.Values = append(c.Values, data.Value())
				}
			}
		}
	})
	return c
}

// Await suspends t until cond returns true, checking once per edge of clk for
// at most budget edges. It returns a timeout failure otherwise.
//
func Await(t *hw.Task, clk *hw.Clock, budget int, cond func() bool) error {
	for i := 0; i < budget; i++ {
		if cond() {
			return nil
		}
		t.Edge(clk)
	}
	if cond() {
		return nil
	}
	return hw.Timeoutf("await", uint64(budget), uint64(budget), "condition not met on %s", clk.Name())
}
