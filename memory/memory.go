// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package memory provides the sparse backing store answered by bus
// responder models.
//
package memory

import (
	"sort"

	"github.com/pkg/errors"
)

// Poison is returned for every address that was never populated. Reading it
// back on a data bus means that the device under test issued an unintended
// read.
//
const Poison uint32 = 0x0BADF00D

// WordSize is the size in bytes of a data word.
//
const WordSize = 4

// An Image is a sparse mapping from byte address to a 32 bits data word.
//
// An Image is populated before a run, then frozen. It is read-only while a
// simulation is running.
//
type Image struct {
	words  map[uint32]uint32
	frozen bool
}

// New returns a new empty Image.
//
func New() *Image {
	return &Image{words: make(map[uint32]uint32)}
}

// Set sets the word at byte address addr.
// This function panics if m is frozen.
//
func (m *Image) Set(addr, v uint32) {
	if m.frozen {
		panic("memory: Set on frozen image")
	}
	m.words[addr] = v
}

// Lookup returns the word at byte address addr or Poison if addr was never
// populated. It never fails.
//
func (m *Image) Lookup(addr uint32) uint32 {
	if v, ok := m.words[addr]; ok {
		return v
	}
	return Poison
}

// Has returns true if addr has been populated.
//
func (m *Image) Has(addr uint32) bool {
	_, ok := m.words[addr]
	return ok
}

// Len returns the number of populated words.
//
func (m *Image) Len() int { return len(m.words) }

// Freeze makes m read-only.
//
func (m *Image) Freeze() { m.frozen = true }

// Frozen returns true if m is read-only.
//
func (m *Image) Frozen() bool { return m.frozen }

// Fill populates count consecutive words starting at byte address base with
// the values returned by f for the word indices 0..count-1.
//
func (m *Image) Fill(base uint32, count int, f func(i int) uint32) {
	for i := 0; i < count; i++ {
		m.Set(base+uint32(i)*WordSize, f(i))
	}
}

// LoadWords stores words at consecutive word addresses starting at base.
//
func (m *Image) LoadWords(base uint32, words []uint32) error {
	if base%WordSize != 0 {
		return errors.Errorf("memory: unaligned base address 0x%08x", base)
	}
	if uint64(base)+uint64(len(words))*WordSize > 1<<32 {
		return errors.Errorf("memory: %d words at 0x%08x overflow the address space", len(words), base)
	}
	m.Fill(base, len(words), func(i int) uint32 { return words[i] })
	return nil
}

// Addresses returns the populated addresses in ascending order.
//
func (m *Image) Addresses() []uint32 {
	out := make([]uint32, 0, len(m.words))
	for a := range m.words {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// WordIndex is a Fill pattern where each word holds its index, i.e.
// mem[addr] = addr/4 for a zero base.
//
func WordIndex(i int) uint32 { return uint32(i) }

// PixelIndex is a Fill pattern where each word holds its index truncated to
// 24 bits (0x00RRGGBB).
//
func PixelIndex(i int) uint32 { return uint32(i) & 0x00FFFFFF }
