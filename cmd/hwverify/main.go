// Command hwverify runs the verification benches of the display pipeline
// models and prints their reports.
//
// The exit status is 0 if all checks passed, 1 if any check failed and 2 on
// setup errors.
//
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/db47h/hwverify/bench"
	"golang.org/x/term"
)

func main() {
	cfg := bench.DefaultConfig()
	var (
		names    = flag.String("bench", "all", "comma separated list of benches to run (fifo, dma, video) or all")
		verbose  = flag.Bool("v", false, "log simulation messages to stderr")
		parallel = flag.Int("parallel", 0, "maximum number of benches running concurrently, 0 for no limit")
	)
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "bus responder latency `seed`")
	flag.IntVar(&cfg.Width, "width", cfg.Width, "video frame width")
	flag.IntVar(&cfg.Height, "height", cfg.Height, "video frame height")
	flag.IntVar(&cfg.Frames, "frames", cfg.Frames, "number of video frames to capture")
	flag.StringVar(&cfg.Ref, "ref", "", "raw raster `file` loaded in memory by the video bench")
	flag.StringVar(&cfg.Expect, "expect", "", "raw raster `file` captured frames are compared with (defaults to -ref)")
	flag.StringVar(&cfg.Out, "out", "", "`directory` where capture artifacts are written")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("hwverify: ")

	if *verbose {
		cfg.Logger = log.New(os.Stderr, "", log.Ltime)
	}
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		cfg.Heartbeat = 0
	}
	benches, err := bench.Select(*names)
	if err != nil {
		log.Print(err)
		os.Exit(2)
	}
	if cfg.Out != "" {
		if err = os.MkdirAll(cfg.Out, 0755); err != nil {
			log.Print(err)
			os.Exit(2)
		}
	}

	// an interrupt only prevents benches not yet started from running.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	reports, err := bench.RunAll(ctx, benches, cfg, *parallel)

	status := 0
	for _, r := range reports {
		if r == nil {
			continue
		}
		if _, werr := r.WriteTo(os.Stdout); werr != nil {
			log.Print(werr)
		}
		if !r.Passed() {
			status = 1
		}
	}
	if err != nil {
		log.Printf("%+v", err)
		status = 2
	}
	stop()
	os.Exit(status)
}
