// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwverify

import (
	"fmt"
	"io"
	"time"
)

// Entry is the outcome of a single check.
//
type Entry struct {
	Check string
	Err   error
}

// A Report collects the outcome of the checks of a bench run and computes the
// final pass/fail verdict.
//
type Report struct {
	Name    string
	Entries []Entry
	Elapsed time.Duration
}

// Record records the outcome of a check. A nil err means the check passed.
//
func (r *Report) Record(check string, err error) {
	r.Entries = append(r.Entries, Entry{check, err})
}

// Passed returns true if every recorded check passed.
//
func (r *Report) Passed() bool {
	for _, e := range r.Entries {
		if e.Err != nil {
			return false
		}
	}
	return true
}

// Failures returns the failed entries.
//
func (r *Report) Failures() []Entry {
	var out []Entry
	for _, e := range r.Entries {
		if e.Err != nil {
			out = append(out, e)
		}
	}
	return out
}

// WriteTo writes a human readable rendering of the report to w.
//
func (r *Report) WriteTo(w io.Writer) (int64, error) {
	cw := &countWriter{w: w}
	verdict := "PASS"
	if !r.Passed() {
		verdict = "FAIL"
	}
	fmt.Fprintf(cw, "== %s: %s (%d checks, %v)\n", r.Name, verdict, len(r.Entries), r.Elapsed)
	for _, e := range r.Entries {
		if e.Err == nil {
			fmt.Fprintf(cw, "  [PASS] %s\n", e.Check)
			continue
		}
		kind := "error"
		if f, ok := AsFailure(e.Err); ok {
			kind = f.Kind.String()
		}
		fmt.Fprintf(cw, "  [FAIL] %s: %s: %v\n", e.Check, kind, e.Err)
	}
	return cw.n, cw.err
}

type countWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
