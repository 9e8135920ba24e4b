// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package bench assembles device models and verification components into end
// to end benches. Each bench runs in its own simulation and reports its
// checks in a hwverify.Report.
//
package bench

import (
	"context"
	"log"
	"strings"
	"time"

	hw "github.com/db47h/hwverify"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Config is the configuration shared by all benches.
//
type Config struct {
	// Seed of the bus responder latency.
	Seed int64
	// Video frame size and number of frames to capture.
	Width, Height, Frames int
	// Ref is the raw raster loaded in memory for the video bench. If empty, a
	// pattern where each pixel holds its index is used.
	Ref string
	// Expect is the raw raster the captured frames are compared with. It
	// defaults to the memory image.
	Expect string
	// Out is the directory where capture artifacts are written. No artifact
	// is written if empty.
	Out string
	// Video capture progress is logged every Heartbeat pixel clock cycles.
	Heartbeat uint64
	// Logger receives simulation logs. Nil discards them.
	Logger *log.Logger
}

// DefaultConfig returns the default bench configuration.
//
func DefaultConfig() Config {
	return Config{
		Seed:      1,
		Width:     960,
		Height:    540,
		Frames:    3,
		Heartbeat: 500000,
	}
}

// A Bench is a named end to end bench.
//
type Bench struct {
	Name string
	Run  func(cfg Config) (*hw.Report, error)
}

// All returns all available benches.
//
func All() []Bench {
	return []Bench{
		{"fifo", FIFO},
		{"dma", DMA},
		{"video", Video},
	}
}

// Select returns the benches listed in names, a comma separated list of bench
// names or "all".
//
func Select(names string) ([]Bench, error) {
	all := All()
	if names == "all" || names == "" {
		return all, nil
	}
	var out []Bench
outer:
	for _, n := range strings.Split(names, ",") {
		n = strings.TrimSpace(n)
		for _, b := range all {
			if b.Name == n {
				out = append(out, b)
				continue outer
			}
		}
		return nil, errors.Errorf("unknown bench %q", n)
	}
	return out, nil
}

// RunAll runs benches concurrently, at most parallel at a time, or without
// limit if parallel <= 0. Reports are returned in the order of benches. The
// returned error is the first setup error of any bench; verification
// failures are only recorded in reports.
//
func RunAll(ctx context.Context, benches []Bench, cfg Config, parallel int) ([]*hw.Report, error) {
	reports := make([]*hw.Report, len(benches))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, b := range benches {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := b.Run(cfg)
			reports[i] = r
			return errors.Wrap(err, b.Name)
		})
	}
	return reports, g.Wait()
}

func newSim(cfg *Config, name string) *hw.Sim {
	s := hw.New()
	if cfg.Logger != nil {
		s.SetLogger(log.New(cfg.Logger.Writer(), name+": ", cfg.Logger.Flags()))
	}
	return s
}

// record records the outcome of a check and returns true if it passed.
//
func record(r *hw.Report, check string, err error) bool {
	r.Record(check, err)
	return err == nil
}

func elapsed(r *hw.Report, start time.Time) {
	r.Elapsed = time.Since(start)
}
