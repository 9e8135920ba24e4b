// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwverify

import (
	"strconv"

	"github.com/pkg/errors"
)

// ErrUndefined is returned by Signal.Uint when a signal is in an undefined
// electrical state.
//
var ErrUndefined = errors.New("undefined signal value")

// A Signal is a named read/write handle on a device port.
//
// Reads return the value committed at the last edge. Writes are pending
// until the current edge has been fully processed.
//
type Signal struct {
	sim   *Sim
	name  string
	width uint
	mask  uint64

	cur, nxt   uint64
	curX, nxtX bool
	dirty      bool
}

func newSignal(s *Sim, name string, width uint) *Signal {
	if width == 0 || width > 64 {
		panic("signal " + name + ": invalid width " + strconv.Itoa(int(width)))
	}
	mask := ^uint64(0)
	if width < 64 {
		mask = 1<<width - 1
	}
	return &Signal{
		sim:   s,
		name:  name,
		width: width,
		mask:  mask,
		curX:  true,
		nxtX:  true,
	}
}

// Name returns the signal name.
//
func (s *Signal) Name() string { return s.name }

// Width returns the signal width in bits.
//
func (s *Signal) Width() uint { return s.width }

// Max returns the largest value representable by the signal.
//
func (s *Signal) Max() uint64 { return s.mask }

// IsX returns true if the signal is in an undefined state.
//
func (s *Signal) IsX() bool { return s.curX }

// Uint returns the committed value of the signal. It returns an error
// wrapping ErrUndefined if the signal is undefined.
//
func (s *Signal) Uint() (uint64, error) {
	if s.curX {
		return 0, errors.Wrap(ErrUndefined, s.name)
	}
	return s.cur, nil
}

// Value returns the committed value of the signal. Undefined reads as 0.
//
func (s *Signal) Value() uint64 {
	if s.curX {
		return 0
	}
	return s.cur
}

// High returns true if the signal is defined and non-zero.
//
func (s *Signal) High() bool {
	return !s.curX && s.cur != 0
}

// Set drives v on the signal. v is truncated to the signal width.
//
func (s *Signal) Set(v uint64) {
	s.nxt = v & s.mask
	s.nxtX = false
	s.touch()
}

// SetBool drives 1 or 0 on the signal.
//
func (s *Signal) SetBool(b bool) {
	if b {
		s.Set(1)
	} else {
		s.Set(0)
	}
}

// SetX drives an undefined value on the signal.
//
func (s *Signal) SetX() {
	s.nxt = 0
	s.nxtX = true
	s.touch()
}

func (s *Signal) touch() {
	if !s.dirty {
		s.dirty = true
		s.sim.dirty = append(s.sim.dirty, s)
	}
}

func (s *Signal) commit() {
	s.cur, s.curX = s.nxt, s.nxtX
	s.dirty = false
}

// String implements fmt.Stringer.
//
func (s *Signal) String() string {
	if s.curX {
		return s.name + "=x"
	}
	return s.name + "=0x" + strconv.FormatUint(s.cur, 16)
}
