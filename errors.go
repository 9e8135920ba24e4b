// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwverify

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Kind identifies the class of a verification failure.
//
type Kind int

// Failure kinds.
//
const (
	// Protocol means that an observed signal contradicts a required
	// invariant. Fatal.
	Protocol Kind = iota + 1
	// Timeout means that a bounded wait exceeded its budget. Fatal.
	Timeout
	// Mismatch means that captured data differs from the reference.
	Mismatch
)

func (k Kind) String() string {
	switch k {
	case Protocol:
		return "protocol violation"
	case Timeout:
		return "timeout"
	case Mismatch:
		return "content mismatch"
	}
	return "unknown failure"
}

// A Failure is a structured verification failure.
//
type Failure struct {
	Kind Kind
	Op   string // operation or check that failed
	Msg  string

	// Expected and Observed are set for protocol violations and mismatches.
	Expected interface{}
	Observed interface{}

	// Budget and Progress are set for timeouts: the exhausted budget and the
	// progress counter reached when it ran out.
	Budget   uint64
	Progress uint64
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Op)
	b.WriteString(": ")
	b.WriteString(f.Kind.String())
	if f.Msg != "" {
		b.WriteString(": ")
		b.WriteString(f.Msg)
	}
	switch f.Kind {
	case Timeout:
		fmt.Fprintf(&b, " (budget %d, progress %d)", f.Budget, f.Progress)
	default:
		if f.Expected != nil || f.Observed != nil {
			fmt.Fprintf(&b, " (expected %v, observed %v)", f.Expected, f.Observed)
		}
	}
	return b.String()
}

// Protocolf returns a protocol violation failure.
//
func Protocolf(op string, expected, observed interface{}, format string, args ...interface{}) error {
	return errors.WithStack(&Failure{
		Kind:     Protocol,
		Op:       op,
		Msg:      fmt.Sprintf(format, args...),
		Expected: expected,
		Observed: observed,
	})
}

// Timeoutf returns a timeout failure.
//
func Timeoutf(op string, budget, progress uint64, format string, args ...interface{}) error {
	return errors.WithStack(&Failure{
		Kind:     Timeout,
		Op:       op,
		Msg:      fmt.Sprintf(format, args...),
		Budget:   budget,
		Progress: progress,
	})
}

// Mismatchf returns a content mismatch failure.
//
func Mismatchf(op string, expected, observed interface{}, format string, args ...interface{}) error {
	return errors.WithStack(&Failure{
		Kind:     Mismatch,
		Op:       op,
		Msg:      fmt.Sprintf(format, args...),
		Expected: expected,
		Observed: observed,
	})
}

// AsFailure returns the *Failure at the root of err's cause chain, if any.
//
func AsFailure(err error) (*Failure, bool) {
	if err == nil {
		return nil, false
	}
	f, ok := errors.Cause(err).(*Failure)
	return f, ok
}

func isKind(err error, k Kind) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == k
}

// IsProtocol returns true if err is caused by a protocol violation.
//
func IsProtocol(err error) bool { return isKind(err, Protocol) }

// IsTimeout returns true if err is caused by a timeout.
//
func IsTimeout(err error) bool { return isKind(err, Timeout) }

// IsMismatch returns true if err is caused by a content mismatch.
//
func IsMismatch(err error) bool { return isKind(err, Mismatch) }
