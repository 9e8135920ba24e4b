// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package bench

import (
	"time"

	hw "github.com/db47h/hwverify"
	"github.com/db47h/hwverify/fifo"
	"github.com/db47h/hwverify/hwlib"
)

// FIFO runs the dual-clock FIFO bench: initial flags, ordered transfer of
// 0..9, empty flag propagation and saturation.
//
func FIFO(cfg Config) (*hw.Report, error) {
	r := &hw.Report{Name: "fifo"}
	defer elapsed(r, time.Now())

	s := newSim(&cfg, r.Name)
	defer s.Dispose()
	wclk := s.Clock("wrclk", 20000, 0)
	rclk := s.Clock("rdclk", 13333, 3000)
	if _, err := hwlib.NewDCFIFO(s, wclk, rclk, hwlib.DefaultFIFOConfig(), ""); err != nil {
		return r, err
	}
	var p fifo.Ports
	if _, err := hw.Bind(s, &p, ""); err != nil {
		return r, err
	}
	v, err := fifo.New(&p, wclk, rclk, fifo.DefaultConfig())
	if err != nil {
		return r, err
	}
	v.Idle()

	err = s.Run(r.Name, func(t *hw.Task) error {
		t.Edge(rclk)
		if !record(r, "initial flags", v.CheckInitial()) ||
			!record(r, "ordered 0..9", v.RunBasic(t, 10)) {
			return nil
		}
		n, err := v.CheckPropagation(t, 0xC0FFEE)
		if err == nil {
			s.Logf("fifo: empty cleared after %d read edges", n)
			err = v.CheckDrain(t, []uint32{0xC0FFEE})
		}
		if !record(r, "flag propagation", err) {
			return nil
		}
		record(r, "saturation", v.CheckSaturation(t, 1))
		return nil
	})
	if err != nil {
		r.Record("simulation", err)
	}
	return r, nil
}
