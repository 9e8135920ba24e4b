package dma_test

import (
	"testing"

	hw "github.com/db47h/hwverify"
	"github.com/db47h/hwverify/avalon"
	"github.com/db47h/hwverify/dma"
	"github.com/db47h/hwverify/hwlib"
	"github.com/db47h/hwverify/hwtest"
	"github.com/db47h/hwverify/memory"
)

type bench struct {
	s   *hw.Sim
	clk *hw.Clock
	dma *hwlib.DMAMaster
	e   *dma.Exerciser
	st  *dma.Stream
	mem *memory.Image
}

func newBench(t *testing.T, dcfg hwlib.DMAConfig, want func(i int) uint32) *bench {
	t.Helper()
	s := hwtest.NewSim(t)
	b := &bench{s: s, clk: s.Clock("clk", 20000, 0)}
	var err error
	if b.dma, err = hwlib.NewDMAMaster(s, b.clk, dcfg, ""); err != nil {
		t.Fatal(err)
	}
	var bus avalon.Bus
	hw.MustBind(s, &bus, "")
	b.mem = memory.New()
	b.mem.Fill(0, dcfg.FrameWords, memory.PixelIndex)
	r, err := avalon.NewResponder(&bus, b.clk, b.mem, avalon.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	r.Start(s)

	var c dma.Control
	hw.MustBind(s, &c, "")
	if b.e, err = dma.New(&c, b.clk, dma.DefaultConfig()); err != nil {
		t.Fatal(err)
	}
	b.e.Idle()

	var sp dma.StreamPorts
	hw.MustBind(s, &sp, "")
	if want == nil {
		want = func(i int) uint32 { return b.mem.Lookup(uint32(i%dcfg.FrameWords) * memory.WordSize) }
	}
	b.st = dma.NewStream(&sp, b.clk, want, 10000)
	return b
}

func dmaConfig(words int) hwlib.DMAConfig {
	cfg := hwlib.DefaultDMAConfig()
	cfg.FrameWords = words
	return cfg
}

func TestExerciser(t *testing.T) {
	const words = 1024
	b := newBench(t, dmaConfig(words), nil)
	b.s.Go("stream", func(t *hw.Task) error { return b.st.Check(t, 2*words) })
	hwtest.Run(t, b.s, func(t *hw.Task) error {
		e := b.e
		for _, f := range []func(*hw.Task) error{
			e.Start,
			e.CheckBusyHeld,
			e.CheckBackpressure,
			e.AwaitIdle,
			e.CheckContinuous,
			e.AwaitIdle,
		} {
			if err := f(t); err != nil {
				return err
			}
		}
		t.Edge(b.clk)
		return nil
	})
	if n := b.st.Count(); n != 2*words {
		t.Fatalf("expected %d words streamed, got %d", 2*words, n)
	}
	if n := b.dma.Frames(); n != 2 {
		t.Fatalf("expected 2 frames, got %d", n)
	}
	if b.e.Reads() < words/64 {
		t.Fatalf("expected at least %d read requests, got %d", words/64, b.e.Reads())
	}
}

func TestExerciser_failures(t *testing.T) {
	td := []struct {
		name string
		cfg  hwlib.DMAConfig
		kind hw.Kind
		op   string
		run  func(b *bench, t *hw.Task) error
	}{
		{"ignores_backpressure", func() hwlib.DMAConfig { c := dmaConfig(8192); c.HaltLevel = 500; return c }(), hw.Protocol, "backpressure",
			func(b *bench, t *hw.Task) error {
				if err := b.e.Start(t); err != nil {
					return err
				}
				return b.e.CheckBackpressure(t)
			}},
		{"short_transfer", dmaConfig(64), hw.Protocol, "busy held",
			func(b *bench, t *hw.Task) error {
				if err := b.e.Start(t); err != nil {
					return err
				}
				return b.e.CheckBusyHeld(t)
			}},
		{"busy_before_sync", dmaConfig(1024), hw.Protocol, "continuous",
			func(b *bench, t *hw.Task) error {
				if err := b.e.Start(t); err != nil {
					return err
				}
				return b.e.CheckContinuous(t)
			}},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			b := newBench(t, d.cfg, nil)
			err := b.s.Run(t.Name(), func(t *hw.Task) error { return d.run(b, t) })
			f := hwtest.ExpectFailure(t, err, d.kind)
			if f.Op != d.op {
				t.Fatalf("expected %s failure, got %v", d.op, err)
			}
		})
	}
}

// readHog asserts busy and read on every edge once started, regardless of
// the downstream occupancy.
//
type readHog struct {
	Start      *hw.Signal `hw:"in"`
	Busy       *hw.Signal `hw:"out"`
	Read       *hw.Signal `hw:"out"`
	Address    *hw.Signal `hw:"out,address,32"`
	BurstCount *hw.Signal `hw:"out,burstcount,16"`

	started bool
}

func (h *readHog) edge() {
	if h.Start.High() {
		h.started = true
	}
	h.Busy.SetBool(h.started)
	h.Read.SetBool(h.started)
	h.Address.Set(0)
	h.BurstCount.Set(1)
}

func TestExerciser_readHeld(t *testing.T) {
	s := hwtest.NewSim(t)
	clk := s.Clock("clk", 20000, 0)
	var h readHog
	hw.MustBind(s, &h, "")
	s.OnEdge(clk, h.edge)

	var bus avalon.Bus
	hw.MustBind(s, &bus, "")
	r, err := avalon.NewResponder(&bus, clk, memory.New(), avalon.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	r.Start(s)

	var c dma.Control
	hw.MustBind(s, &c, "")
	cfg := dma.DefaultConfig()
	e, err := dma.New(&c, clk, cfg)
	if err != nil {
		t.Fatal(err)
	}
	e.Idle()

	err = s.Run(t.Name(), func(t *hw.Task) error {
		if err := e.Start(t); err != nil {
			return err
		}
		return e.CheckBackpressure(t)
	})
	f := hwtest.ExpectFailure(t, err, hw.Protocol)
	if f.Op != "backpressure" {
		t.Fatalf("expected backpressure failure, got %v", err)
	}
	if f.Observed != cfg.Window {
		t.Fatalf("expected %d read requests in the window, got %v", cfg.Window, f.Observed)
	}
}

func TestExerciser_startTimeout(t *testing.T) {
	s := hwtest.NewSim(t)
	clk := s.Clock("clk", 20000, 0)
	var c dma.Control
	hw.MustBind(s, &c, "")
	e, err := dma.New(&c, clk, dma.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	e.Idle()
	err = s.Run(t.Name(), e.Start)
	f := hwtest.ExpectFailure(t, err, hw.Timeout)
	if f.Op != "start" || f.Budget != 1 {
		t.Fatalf("unexpected failure %v", err)
	}
}

func TestStream_mismatch(t *testing.T) {
	b := newBench(t, dmaConfig(256), func(i int) uint32 {
		if i == 5 {
			return 0xDEAD
		}
		return uint32(i)
	})
	b.s.Go("stream", func(t *hw.Task) error { return b.st.Check(t, 256) })
	err := b.s.Run(t.Name(), func(t *hw.Task) error {
		if err := b.e.Start(t); err != nil {
			return err
		}
		return b.e.AwaitIdle(t)
	})
	f := hwtest.ExpectFailure(t, err, hw.Mismatch)
	if f.Expected != uint32(0xDEAD) || f.Observed != uint32(5) {
		t.Fatalf("unexpected failure %v", err)
	}
	if b.st.Count() != 5 {
		t.Fatalf("expected failure on word 5, got %d", b.st.Count())
	}
}

func TestConfig_Validate(t *testing.T) {
	td := []struct {
		name string
		mod  func(c *dma.Config)
		ok   bool
	}{
		{"default", func(c *dma.Config) {}, true},
		{"window", func(c *dma.Config) { c.Window = 0 }, false},
		{"settle", func(c *dma.Config) { c.Settle = -1 }, false},
		{"threshold", func(c *dma.Config) { c.Threshold = 0 }, false},
	}
	for _, d := range td {
		c := dma.DefaultConfig()
		d.mod(&c)
		if err := c.Validate(); (err == nil) != d.ok {
			t.Errorf("%s: unexpected result %v", d.name, err)
		}
	}
}
