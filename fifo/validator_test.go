package fifo_test

import (
	"testing"

	hw "github.com/db47h/hwverify"
	"github.com/db47h/hwverify/fifo"
	"github.com/db47h/hwverify/hwlib"
	"github.com/db47h/hwverify/hwtest"
)

func newBench(t *testing.T, fcfg hwlib.FIFOConfig, vcfg fifo.Config) (*hw.Sim, *fifo.Validator) {
	t.Helper()
	s := hwtest.NewSim(t)
	wclk := s.Clock("wrclk", 20000, 0)
	rclk := s.Clock("rdclk", 13333, 5000)
	if _, err := hwlib.NewDCFIFO(s, wclk, rclk, fcfg, ""); err != nil {
		t.Fatal(err)
	}
	var p fifo.Ports
	if _, err := hw.Bind(s, &p, ""); err != nil {
		t.Fatal(err)
	}
	v, err := fifo.New(&p, wclk, rclk, vcfg)
	if err != nil {
		t.Fatal(err)
	}
	v.Idle()
	return s, v
}

func TestValidator_basic(t *testing.T) {
	s, v := newBench(t, hwlib.DefaultFIFOConfig(), fifo.DefaultConfig())
	hwtest.Run(t, s, func(t *hw.Task) error {
		return v.RunBasic(t, 10)
	})
	if v.Writes() != 10 || v.Reads() != 10 {
		t.Fatalf("expected 10 writes and 10 reads, got %d and %d", v.Writes(), v.Reads())
	}
}

func TestValidator_propagation(t *testing.T) {
	s, v := newBench(t, hwlib.DefaultFIFOConfig(), fifo.DefaultConfig())
	var n int
	hwtest.Run(t, s, func(t *hw.Task) (err error) {
		if n, err = v.CheckPropagation(t, 0x42); err != nil {
			return err
		}
		return v.CheckDrain(t, []uint32{0x42})
	})
	if n == 0 || n > 5 {
		t.Fatalf("empty flag cleared after %d read edges", n)
	}
}

func TestValidator_slowSync(t *testing.T) {
	fcfg := hwlib.DefaultFIFOConfig()
	fcfg.SyncStages = 8
	s, v := newBench(t, fcfg, fifo.DefaultConfig())
	err := s.Run(t.Name(), func(t *hw.Task) error {
		_, err := v.CheckPropagation(t, 1)
		return err
	})
	f := hwtest.ExpectFailure(t, err, hw.Protocol)
	if f.Expected != 0 || f.Observed != uint64(1) {
		t.Fatalf("expected rdempty 0, observed 1, got %v", err)
	}
}

func TestValidator_saturation(t *testing.T) {
	td := []struct {
		name string
		wrap bool
	}{
		{"saturating", false},
		{"wrapping", true},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			fcfg := hwlib.DefaultFIFOConfig()
			fcfg.Wrap = d.wrap
			s, v := newBench(t, fcfg, fifo.DefaultConfig())
			err := s.Run(t.Name(), func(t *hw.Task) error {
				return v.CheckSaturation(t, 3)
			})
			if !d.wrap {
				if err != nil {
					hwtest.Trace(t, err)
					t.Fatal(err)
				}
				return
			}
			f := hwtest.ExpectFailure(t, err, hw.Protocol)
			if f.Expected != uint64(511) || f.Observed != uint64(0) {
				t.Fatalf("expected usedw 511, observed 0, got %v", err)
			}
		})
	}
}

func TestValidator_writeTimeout(t *testing.T) {
	fcfg := hwlib.DefaultFIFOConfig()
	fcfg.Depth = 4
	vcfg := fifo.DefaultConfig()
	vcfg.Depth = 4
	vcfg.SpinBudget = 10
	s, v := newBench(t, fcfg, vcfg)
	err := s.Run(t.Name(), func(t *hw.Task) error {
		if err := v.CheckSaturation(t, 0); err != nil {
			return err
		}
		return v.Write(t, 0)
	})
	f := hwtest.ExpectFailure(t, err, hw.Timeout)
	if f.Budget != 10 || f.Progress != 4 {
		t.Fatalf("unexpected budget or progress: %v", err)
	}
}

func TestValidator_readLatency(t *testing.T) {
	vcfg := fifo.DefaultConfig()
	vcfg.ReadLatency = 0
	s, v := newBench(t, hwlib.DefaultFIFOConfig(), vcfg)
	err := s.Run(t.Name(), func(t *hw.Task) error {
		for _, d := range []uint32{1, 2} {
			if err := v.Write(t, d); err != nil {
				return err
			}
		}
		return v.CheckDrain(t, []uint32{1, 2})
	})
	f := hwtest.ExpectFailure(t, err, hw.Protocol)
	if f.Expected != uint32(1) || f.Observed != uint32(0) {
		t.Fatalf("expected stale q, got %v", err)
	}
}

func TestValidator_initialFlags(t *testing.T) {
	s := hwtest.NewSim(t)
	clk := s.Clock("clk", 10000, 0)
	var p fifo.Ports
	hw.MustBind(s, &p, "")
	v, err := fifo.New(&p, clk, clk, fifo.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	err = s.Run(t.Name(), func(t *hw.Task) error {
		t.Edge(clk)
		return v.CheckInitial()
	})
	f := hwtest.ExpectFailure(t, err, hw.Protocol)
	if f.Observed != "x" {
		t.Fatalf("expected undefined rdempty, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	td := []struct {
		name string
		mod  func(c *fifo.Config)
		ok   bool
	}{
		{"default", func(c *fifo.Config) {}, true},
		{"depth", func(c *fifo.Config) { c.Depth = 0 }, false},
		{"latency", func(c *fifo.Config) { c.ReadLatency = -1 }, false},
		{"propagation", func(c *fifo.Config) { c.PropagationBudget = 0 }, false},
		{"drain", func(c *fifo.Config) { c.ReadLatency = 2 }, false},
		{"two_edges", func(c *fifo.Config) { c.ReadLatency, c.DrainBudget = 2, 2 }, true},
	}
	for _, d := range td {
		c := fifo.DefaultConfig()
		d.mod(&c)
		if err := c.Validate(); (err == nil) != d.ok {
			t.Errorf("%s: unexpected result %v", d.name, err)
		}
	}
}

func TestSaturated(t *testing.T) {
	for _, d := range []struct {
		w   uint
		exp uint64
	}{{1, 1}, {9, 511}, {10, 1023}, {64, ^uint64(0)}} {
		if got := fifo.Saturated(d.w); got != d.exp {
			t.Errorf("Saturated(%d) = %d, expected %d", d.w, got, d.exp)
		}
	}
}
