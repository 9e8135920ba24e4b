// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package video captures display frames from a sampled pixel stream and
// verifies them against a reference raster.
//
package video

import (
	"bufio"
	"encoding/binary"
	"io"
	"log"
	"os"

	hw "github.com/db47h/hwverify"
	"github.com/pkg/errors"
)

// PixelMask masks the significant bits of a pixel word.
//
const PixelMask = 0xFFFFFF

// Display are the display output ports sampled during capture. Used is the
// occupancy of the buffer feeding the display, only sampled while priming.
//
type Display struct {
	DE   *hw.Signal `hw:"in,de"`
	VS   *hw.Signal `hw:"in,vs"`
	D    *hw.Signal `hw:"in,d,32"`
	Used *hw.Signal `hw:"in,usedw,9"`
}

// A Sample is a captured pixel.
//
type Sample struct {
	Value uint32 // 24 bits color
	Frame int
	Pixel int
}

// Config configures a Capture.
//
type Config struct {
	Width, Height int
	// Number of full frames to capture.
	Frames int
	// Priming completes once the buffer occupancy exceeds PrimeLevel. It
	// must do so within PrimeBudget edges. A zero PrimeBudget disables
	// priming.
	PrimeLevel  uint64
	PrimeBudget int
	// Edges budget for synchronization and capture.
	CycleBudget uint64
	// Log progress every Heartbeat edges. 0 disables progress logging.
	Heartbeat uint64
	// Pixels of each frame in [DebugFrom, DebugTo) are logged to DebugPath
	// along with the buffer occupancy.
	DebugFrom, DebugTo int
	DebugPath          string
	// Captured words are dumped to DumpPath, in raw format.
	DumpPath string
	// FastForward, if set, is called after priming in order to move the
	// timing counters of the device under test right before a frame
	// boundary. Test only.
	FastForward func()
}

// DefaultConfig returns the configuration for capturing 3 frames of a
// 960x540 display.
//
func DefaultConfig() Config {
	return Config{
		Width:       960,
		Height:      540,
		Frames:      3,
		PrimeLevel:  32,
		PrimeBudget: 1000,
		CycleBudget: 5000000,
		Heartbeat:   500000,
		DebugFrom:   950,
		DebugTo:     970,
	}
}

// Validate checks the configuration.
//
func (c *Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 || c.Frames <= 0 {
		return errors.Errorf("video: invalid capture size %dx%d, %d frames", c.Width, c.Height, c.Frames)
	}
	if c.CycleBudget == 0 {
		return errors.New("video: zero cycle budget")
	}
	if c.PrimeBudget < 0 || c.DebugTo < c.DebugFrom {
		return errors.New("video: invalid prime budget or debug window")
	}
	return nil
}

// FrameSize returns the number of pixels in a frame.
//
func (c *Config) FrameSize() int { return c.Width * c.Height }

// Capture reconstructs frames from the pixel stream of a display interface.
//
type Capture struct {
	d   *Display
	clk *hw.Clock
	cfg Config

	pixels []uint32
	cycles uint64
}

// NewCapture returns a new Capture sampling d on every edge of the pixel
// clock clk.
//
func NewCapture(d *Display, clk *hw.Clock, cfg Config) (*Capture, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Capture{d: d, clk: clk, cfg: cfg}, nil
}

// Pixels returns the captured pixel words.
//
func (c *Capture) Pixels() []uint32 { return c.pixels }

// Cycles returns the number of edges spent in synchronization and capture.
//
func (c *Capture) Cycles() uint64 { return c.cycles }

// Samples returns the captured pixels with their frame and pixel indices.
//
func (c *Capture) Samples() []Sample {
	n := c.cfg.FrameSize()
	s := make([]Sample, len(c.pixels))
	for i, v := range c.pixels {
		s[i] = Sample{Value: v & PixelMask, Frame: i / n, Pixel: i % n}
	}
	return s
}

// Frames returns the complete captured frames.
//
func (c *Capture) Frames() [][]uint32 { return Segment(c.pixels, c.cfg.FrameSize()) }

// Run runs the prime, synchronization and capture phases. Output files are
// closed on return.
//
func (c *Capture) Run(t *hw.Task) (err error) {
	// flush and close f, keeping the first error.
	done := func(f *os.File, w *bufio.Writer) {
		if e := w.Flush(); err == nil {
			err = errors.WithStack(e)
		}
		if e := f.Close(); err == nil {
			err = errors.WithStack(e)
		}
	}
	var dump *bufio.Writer
	if c.cfg.DumpPath != "" {
		f, e := os.Create(c.cfg.DumpPath)
		if e != nil {
			return errors.WithStack(e)
		}
		dump = bufio.NewWriter(f)
		defer done(f, dump)
	}
	var dbg *log.Logger
	if c.cfg.DebugPath != "" && c.cfg.DebugTo > c.cfg.DebugFrom {
		f, e := os.Create(c.cfg.DebugPath)
		if e != nil {
			return errors.WithStack(e)
		}
		w := bufio.NewWriter(f)
		defer done(f, w)
		dbg = log.New(w, "", 0)
	}

	if err = c.Prime(t); err != nil {
		return err
	}
	if c.cfg.FastForward != nil {
		t.Sim().Logf("capture: fast-forward to frame boundary")
		c.cfg.FastForward()
	}
	if err = c.Sync(t); err != nil {
		return err
	}
	var w io.Writer
	if dump != nil {
		w = dump
	}
	return c.Record(t, w, dbg)
}

// Prime waits until the buffer occupancy exceeds the low-water mark.
//
func (c *Capture) Prime(t *hw.Task) error {
	if c.cfg.PrimeBudget == 0 {
		return nil
	}
	for i := 0; ; i++ {
		if c.d.Used.Value() > c.cfg.PrimeLevel {
			t.Sim().Logf("capture: primed after %d edges, used=%d", i, c.d.Used.Value())
			return nil
		}
		if i >= c.cfg.PrimeBudget {
			return hw.Timeoutf("prime", uint64(c.cfg.PrimeBudget), c.d.Used.Value(), "buffer occupancy never exceeded %d", c.cfg.PrimeLevel)
		}
		t.Edge(c.clk)
	}
}

func (c *Capture) edge(t *hw.Task, op string) error {
	if c.cycles >= c.cfg.CycleBudget {
		return hw.Timeoutf(op, c.cfg.CycleBudget, uint64(len(c.pixels)), "%d of %d frames captured", len(c.pixels)/c.cfg.FrameSize(), c.cfg.Frames)
	}
	t.Edge(c.clk)
	c.cycles++
	if hb := c.cfg.Heartbeat; hb > 0 && c.cycles%hb == 0 {
		t.Sim().Logf("capture: %d cycles, %d pixels", c.cycles, len(c.pixels))
	}
	return nil
}

// Sync waits for a complete vertical sync pulse. vs is active low.
//
func (c *Capture) Sync(t *hw.Task) error {
	asserted := false
	for {
		if err := c.edge(t, "vsync"); err != nil {
			return err
		}
		if c.d.VS.IsX() {
			continue
		}
		if !c.d.VS.High() {
			asserted = true
		} else if asserted {
			t.Sim().Logf("capture: frame start")
			return nil
		}
	}
}

// Record appends the pixel word to the capture on every edge where de is
// asserted, until the configured number of frames is captured. Captured words
// are written to dump if not nil.
//
func (c *Capture) Record(t *hw.Task, dump io.Writer, dbg *log.Logger) error {
	size := c.cfg.FrameSize()
	total := size * c.cfg.Frames
	var buf [4]byte
	for len(c.pixels) < total {
		if err := c.edge(t, "capture"); err != nil {
			return err
		}
		if !c.d.DE.High() {
			continue
		}
		v := uint32(c.d.D.Value())
		if i := len(c.pixels) % size; dbg != nil && i >= c.cfg.DebugFrom && i < c.cfg.DebugTo {
			dbg.Printf("frame %d pixel %d: %06x used=%d", len(c.pixels)/size, i, v&PixelMask, c.d.Used.Value())
		}
		c.pixels = append(c.pixels, v)
		if dump != nil {
			binary.LittleEndian.PutUint32(buf[:], v)
			if _, err := dump.Write(buf[:]); err != nil {
				return errors.Wrap(err, "capture dump")
			}
		}
		if len(c.pixels)%size == 0 {
			t.Sim().Logf("capture: frame %d complete", len(c.pixels)/size-1)
		}
	}
	return nil
}
