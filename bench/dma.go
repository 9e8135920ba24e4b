// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package bench

import (
	"time"

	hw "github.com/db47h/hwverify"
	"github.com/db47h/hwverify/avalon"
	"github.com/db47h/hwverify/dma"
	"github.com/db47h/hwverify/hwlib"
	"github.com/db47h/hwverify/memory"
)

const dmaFrameWords = 4096

// DMA runs the DMA flow-control bench: start, busy hold, backpressure,
// completion and continuous mode restart, while checking the streamed data.
//
func DMA(cfg Config) (*hw.Report, error) {
	r := &hw.Report{Name: "dma"}
	defer elapsed(r, time.Now())

	s := newSim(&cfg, r.Name)
	defer s.Dispose()
	clk := s.Clock("clk_50", 20000, 0)
	dcfg := hwlib.DefaultDMAConfig()
	dcfg.FrameWords = dmaFrameWords
	if _, err := hwlib.NewDMAMaster(s, clk, dcfg, ""); err != nil {
		return r, err
	}

	mem := memory.New()
	mem.Fill(0, dmaFrameWords, memory.WordIndex)
	var bus avalon.Bus
	if _, err := hw.Bind(s, &bus, ""); err != nil {
		return r, err
	}
	acfg := avalon.DefaultConfig()
	acfg.Seed = cfg.Seed
	rsp, err := avalon.NewResponder(&bus, clk, mem, acfg)
	if err != nil {
		return r, err
	}
	rsp.Start(s)

	var c dma.Control
	if _, err = hw.Bind(s, &c, ""); err != nil {
		return r, err
	}
	e, err := dma.New(&c, clk, dma.DefaultConfig())
	if err != nil {
		return r, err
	}
	e.Idle()

	var sp dma.StreamPorts
	if _, err = hw.Bind(s, &sp, ""); err != nil {
		return r, err
	}
	st := dma.NewStream(&sp, clk, func(i int) uint32 {
		return mem.Lookup(uint32(i%dmaFrameWords) * memory.WordSize)
	}, 10000)
	s.Go("stream", func(t *hw.Task) error { return st.Check(t, 2*dmaFrameWords) })

	err = s.Run(r.Name, func(t *hw.Task) error {
		for _, ck := range []struct {
			name string
			fn   func(*hw.Task) error
		}{
			{"start", e.Start},
			{"busy held", e.CheckBusyHeld},
			{"backpressure", e.CheckBackpressure},
			{"completion", e.AwaitIdle},
			{"continuous restart", e.CheckContinuous},
			{"completion after restart", e.AwaitIdle},
		} {
			if !record(r, ck.name, ck.fn(t)) {
				return nil
			}
		}
		t.Edge(clk)
		if n := st.Count(); n != 2*dmaFrameWords {
			r.Record("stream", hw.Protocolf("stream", 2*dmaFrameWords, n, "words written to the FIFO"))
		} else {
			r.Record("stream", nil)
		}
		s.Logf("dma: %d requests served, %d read pulses observed", rsp.Served(), e.Reads())
		return nil
	})
	if err != nil {
		r.Record("simulation", err)
	}
	return r, nil
}
