// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package bench

import (
	"fmt"
	"path/filepath"
	"time"

	hw "github.com/db47h/hwverify"
	"github.com/db47h/hwverify/avalon"
	"github.com/db47h/hwverify/dma"
	"github.com/db47h/hwverify/hwlib"
	"github.com/db47h/hwverify/memory"
	"github.com/db47h/hwverify/video"
	"github.com/pkg/errors"
)

// Timing returns the display timing used for w x h frames. 960x540 yields
// hwlib.QHD.
//
func Timing(w, h int) hwlib.Timing {
	tm := hwlib.QHD
	tm.HActive, tm.VActive = w, h
	return tm
}

func loadRaster(name string, size int) ([]uint32, error) {
	if name == "" {
		px := make([]uint32, size)
		for i := range px {
			px[i] = memory.PixelIndex(i)
		}
		return px, nil
	}
	px, err := video.LoadRaw(name)
	if err != nil {
		return nil, err
	}
	if len(px) < size {
		return nil, errors.Errorf("%s: %d pixels, need %d", name, len(px), size)
	}
	return px[:size], nil
}

// Video runs the integration bench: the pipeline is configured through its
// registers, streams a memory image to the display, and the captured frames
// are compared with the reference.
//
func Video(cfg Config) (*hw.Report, error) {
	r := &hw.Report{Name: "video"}
	defer elapsed(r, time.Now())

	size := cfg.Width * cfg.Height
	img, err := loadRaster(cfg.Ref, size)
	if err != nil {
		return r, err
	}
	ref := img
	if cfg.Expect != "" {
		if ref, err = loadRaster(cfg.Expect, size); err != nil {
			return r, err
		}
	}

	s := newSim(&cfg, r.Name)
	defer s.Dispose()
	sys := s.Clock("clk_50", 20000, 0)
	pix := s.Clock("pixclk", 40000, 7000)
	pl, err := hwlib.NewPipeline(s, sys, pix, hwlib.DefaultPipelineConfig(Timing(cfg.Width, cfg.Height)))
	if err != nil {
		return r, err
	}

	mem := memory.New()
	if err = mem.LoadWords(0, img); err != nil {
		return r, err
	}
	var bus avalon.Bus
	if _, err = hw.Bind(s, &bus, ""); err != nil {
		return r, err
	}
	rsp, err := avalon.NewResponder(&bus, sys, mem, avalon.Config{
		MinLatency:          2,
		MaxLatency:          10,
		Seed:                cfg.Seed,
		IndeterminateBudget: 1000,
	})
	if err != nil {
		return r, err
	}
	rsp.Start(s)

	var cb dma.CSRBus
	if _, err = hw.Bind(s, &cb, ""); err != nil {
		return r, err
	}
	csr := dma.NewCSR(&cb, sys)
	csr.Idle()

	var d video.Display
	if _, err = hw.Bind(s, &d, "usedw=fifo_used"); err != nil {
		return r, err
	}
	vcfg := video.DefaultConfig()
	vcfg.Width, vcfg.Height, vcfg.Frames = cfg.Width, cfg.Height, cfg.Frames
	vcfg.Heartbeat = cfg.Heartbeat
	vcfg.FastForward = pl.FastForward
	if cfg.Out != "" {
		vcfg.DumpPath = filepath.Join(cfg.Out, "capture.raw")
		vcfg.DebugPath = filepath.Join(cfg.Out, "debug.log")
	}
	cp, err := video.NewCapture(&d, pix, vcfg)
	if err != nil {
		return r, err
	}

	err = s.Run(r.Name, func(t *hw.Task) error {
		csr.WriteReg(t, dma.RegMode, dma.ModeDMA)
		csr.WriteReg(t, dma.RegFramePtr, 0)
		csr.WriteReg(t, dma.RegCtrl, dma.CtrlContinuous|dma.CtrlStart)
		if !record(r, "dma start", csr.AwaitBusy(t, true, 20)) {
			return nil
		}
		record(r, "capture", cp.Run(t))
		return nil
	})
	if err != nil {
		r.Record("simulation", err)
	}

	frames := cp.Frames()
	if len(frames) < cfg.Frames {
		return r, nil
	}
	for _, res := range video.Verify(cp.Pixels(), ref, size, 0, 5) {
		r.Record(fmt.Sprintf("frame %d", res.Frame), res.Err())
		if !res.Matched {
			if off, ok := video.FindOffset(frames[res.Frame], ref); ok {
				s.Logf("video: frame %d matches the reference at offset %d", res.Frame, off)
			}
		}
	}
	if cfg.Out != "" {
		for i, f := range frames {
			if err = video.SaveBitmap(filepath.Join(cfg.Out, fmt.Sprintf("frame%d.bmp", i)), f, cfg.Width, cfg.Height); err != nil {
				return r, err
			}
		}
	}
	return r, nil
}
