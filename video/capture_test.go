package video_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	hw "github.com/db47h/hwverify"
	"github.com/db47h/hwverify/hwtest"
	"github.com/db47h/hwverify/video"
	"github.com/go-test/deep"
)

const (
	testW = 8
	testH = 4
)

type screen struct {
	DE   *hw.Signal `hw:"out,de"`
	VS   *hw.Signal `hw:"out,vs"`
	D    *hw.Signal `hw:"out,d,32"`
	Used *hw.Signal `hw:"out,usedw,9"`
}

// display starts a task displaying ref in a loop. Pixels are padded with
// garbage in the upper 8 bits. If vsync is false, vs is never asserted.
// corrupt, if not nil, is applied to pixel values before display.
//
func display(s *hw.Sim, clk *hw.Clock, ref []uint32, vsync bool, corrupt func(frame, i int, v uint32) uint32) {
	var sc screen
	hw.MustBind(s, &sc, "")
	sc.DE.Set(0)
	sc.VS.Set(1)
	sc.D.Set(0)
	sc.Used.Set(0)
	s.Go("screen", func(t *hw.Task) error {
		t.Edges(clk, 5)
		sc.Used.Set(64)
		for f := 0; ; f++ {
			sc.VS.SetBool(!vsync)
			t.Edges(clk, 2)
			sc.VS.Set(1)
			t.Edges(clk, 2)
			for y := 0; y < testH; y++ {
				for x := 0; x < testW; x++ {
					i := y*testW + x
					v := ref[i]
					if corrupt != nil {
						v = corrupt(f, i, v)
					}
					sc.DE.Set(1)
					sc.D.Set(uint64(v) | 0xAB000000)
					t.Edge(clk)
				}
				sc.DE.Set(0)
				sc.D.Set(0)
				t.Edges(clk, 3)
			}
		}
	})
}

func newCapture(t *testing.T, cfg video.Config) (*hw.Sim, *hw.Clock, *video.Capture) {
	t.Helper()
	s := hwtest.NewSim(t)
	clk := s.Clock("pixclk", 40000, 0)
	var d video.Display
	hw.MustBind(s, &d, "")
	c, err := video.NewCapture(&d, clk, cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s, clk, c
}

func testConfig() video.Config {
	cfg := video.DefaultConfig()
	cfg.Width, cfg.Height = testW, testH
	cfg.PrimeBudget = 100
	cfg.CycleBudget = 10000
	cfg.Heartbeat = 100
	cfg.DebugFrom, cfg.DebugTo = 2, 4
	return cfg
}

func TestCapture_roundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.DumpPath = filepath.Join(dir, "capture.raw")
	cfg.DebugPath = filepath.Join(dir, "debug.log")
	ff := 0
	cfg.FastForward = func() { ff++ }
	s, clk, c := newCapture(t, cfg)
	ref := seq(testW * testH)
	display(s, clk, ref, true, nil)
	hwtest.Run(t, s, c.Run)

	if ff != 1 {
		t.Fatalf("fast-forward hook called %d times", ff)
	}
	px := c.Pixels()
	if len(px) != 3*testW*testH {
		t.Fatalf("expected 3 frames, got %d pixels", len(px))
	}
	for _, r := range video.Verify(px, ref, testW*testH, 0, 5) {
		if err := r.Err(); err != nil {
			t.Error(err)
		}
	}
	smp := c.Samples()
	if diff := deep.Equal(smp[testW*testH+1], video.Sample{Value: 1, Frame: 1, Pixel: 1}); diff != nil {
		t.Error(diff)
	}

	dump, err := video.LoadRaw(cfg.DumpPath)
	if err != nil {
		t.Fatal(err)
	}
	if diff := deep.Equal(dump, px); diff != nil {
		t.Fatal(diff)
	}
	dbg, err := os.ReadFile(cfg.DebugPath)
	if err != nil {
		t.Fatal(err)
	}
	if n := bytes.Count(dbg, []byte("\n")); n != 6 {
		t.Fatalf("expected 6 debug lines, got %d:\n%s", n, dbg)
	}
}

func TestCapture_createError(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	cfg.DumpPath = filepath.Join(dir, "capture.raw")
	cfg.DebugPath = filepath.Join(dir, "missing", "debug.log")
	s, clk, c := newCapture(t, cfg)
	display(s, clk, seq(testW*testH), true, nil)
	err := s.Run(t.Name(), c.Run)
	if err == nil {
		t.Fatal("expected an error creating the debug log")
	}
	if _, ok := hw.AsFailure(err); ok {
		t.Fatalf("expected a setup error, got %v", err)
	}
	if c.Cycles() != 0 {
		t.Fatalf("capture ran for %d cycles", c.Cycles())
	}
	if _, err := os.Stat(cfg.DumpPath); err != nil {
		t.Fatal(err)
	}
}

func TestCapture_mismatch(t *testing.T) {
	cfg := testConfig()
	s, clk, c := newCapture(t, cfg)
	ref := seq(testW * testH)
	display(s, clk, ref, true, func(f, i int, v uint32) uint32 {
		if f == 1 && i == 10 {
			return 0x654321
		}
		return v
	})
	hwtest.Run(t, s, c.Run)
	res := video.Verify(c.Pixels(), ref, testW*testH, 0, 5)
	if len(res) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(res))
	}
	if !res[0].Matched || !res[2].Matched {
		t.Fatalf("frames 0 and 2 should match: %+v", res)
	}
	if diff := deep.Equal(res[1].First, []video.Mismatch{{10, 10, 0x654321}}); diff != nil {
		t.Fatal(diff)
	}
	if !hw.IsMismatch(res[1].Err()) {
		t.Fatalf("expected a content mismatch, got %v", res[1].Err())
	}
}

func TestCapture_timeouts(t *testing.T) {
	td := []struct {
		name   string
		vsync  bool
		used   bool
		budget uint64
		op     string
	}{
		{"prime", true, false, 10000, "prime"},
		{"vsync", false, true, 500, "vsync"},
		{"capture", true, true, 100, "capture"},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			cfg := testConfig()
			cfg.CycleBudget = d.budget
			if !d.used {
				cfg.PrimeLevel = 100
			}
			s, clk, c := newCapture(t, cfg)
			display(s, clk, seq(testW*testH), d.vsync, nil)
			err := s.Run(t.Name(), c.Run)
			f := hwtest.ExpectFailure(t, err, hw.Timeout)
			if f.Op != d.op {
				t.Fatalf("expected %s timeout, got %v", d.op, err)
			}
			if d.op == "capture" && (f.Progress == 0 || f.Progress >= 3*testW*testH) {
				t.Fatalf("unexpected progress: %v", err)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	td := []struct {
		name string
		mod  func(c *video.Config)
		ok   bool
	}{
		{"default", func(c *video.Config) {}, true},
		{"frames", func(c *video.Config) { c.Frames = 0 }, false},
		{"size", func(c *video.Config) { c.Width = 0 }, false},
		{"cycles", func(c *video.Config) { c.CycleBudget = 0 }, false},
		{"debug", func(c *video.Config) { c.DebugFrom, c.DebugTo = 10, 5 }, false},
		{"no_prime", func(c *video.Config) { c.PrimeBudget = 0 }, true},
	}
	for _, d := range td {
		c := video.DefaultConfig()
		d.mod(&c)
		if err := c.Validate(); (err == nil) != d.ok {
			t.Errorf("%s: unexpected result %v", d.name, err)
		}
	}
}
