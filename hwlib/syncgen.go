// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	hw "github.com/db47h/hwverify"
	"github.com/pkg/errors"
)

// Timing describes display timings, in pixels and lines.
//
type Timing struct {
	HActive, HFront, HSync, HBack int
	VActive, VFront, VSync, VBack int
}

// QHD is the 960x540 timing.
//
var QHD = Timing{
	HActive: 960, HFront: 40, HSync: 44, HBack: 76,
	VActive: 540, VFront: 3, VSync: 5, VBack: 15,
}

// HTotal returns the number of pixels per line, including blanking.
//
func (t Timing) HTotal() int { return t.HActive + t.HFront + t.HSync + t.HBack }

// VTotal returns the number of lines per frame, including blanking.
//
func (t Timing) VTotal() int { return t.VActive + t.VFront + t.VSync + t.VBack }

// FrameCycles returns the number of pixel clock cycles per frame.
//
func (t Timing) FrameCycles() int { return t.HTotal() * t.VTotal() }

// Validate checks that all timing values are positive.
//
func (t Timing) Validate() error {
	for _, v := range []int{t.HActive, t.HFront, t.HSync, t.HBack, t.VActive, t.VFront, t.VSync, t.VBack} {
		if v <= 0 {
			return errors.Errorf("invalid timing %+v", t)
		}
	}
	return nil
}

// SeekPoint returns the position a few pixels before the first vertical sync
// line. It is the fast-forward target used to skip to a frame boundary.
//
func (t Timing) SeekPoint() (h, v int) {
	return t.HTotal() - 10, t.VActive + t.VFront - 1
}

type syncPorts struct {
	RdReq     *hw.Signal `hw:"out,rdreq"`
	Q         *hw.Signal `hw:"in,q,32"`
	DE        *hw.Signal `hw:"out,de"`
	HS        *hw.Signal `hw:"out,hs"`
	VS        *hw.Signal `hw:"out,vs"`
	D         *hw.Signal `hw:"out,d,32"`
	VsyncEdge *hw.Signal `hw:"out,vsync_edge"`
}

// SyncGen is a display sync generator pulling pixels from a FIFO with a
// registered read port. rdreq is issued two cycles ahead of the pixel it
// fetches.
//
// hs and vs are active low. vsync_edge pulses for one cycle at the start of
// the first vertical sync line. Only the low 24 bits of q are output on d.
//
// The generator starts at the beginning of the vertical front porch.
//
//	Inputs: q[32]
//	Outputs: rdreq, de, hs, vs, d[32], vsync_edge
//
type SyncGen struct {
	p    syncPorts
	tm   Timing
	h, v int
}

// NewSyncGen mounts a new sync generator in s.
//
func NewSyncGen(s *hw.Sim, clk *hw.Clock, tm Timing, conns string) (*SyncGen, error) {
	if err := tm.Validate(); err != nil {
		return nil, errors.Wrap(err, "syncgen")
	}
	g := &SyncGen{tm: tm, v: tm.VActive}
	if _, err := hw.Bind(s, &g.p, conns); err != nil {
		return nil, errors.Wrap(err, "syncgen")
	}
	g.p.RdReq.Set(0)
	g.p.DE.Set(0)
	g.p.HS.Set(1)
	g.p.VS.Set(1)
	g.p.D.Set(0)
	g.p.VsyncEdge.Set(0)
	s.OnEdge(clk, g.edge)
	return g, nil
}

// Position returns the position of the next output pixel.
//
func (g *SyncGen) Position() (h, v int) { return g.h, g.v }

// Seek moves the timing counters to position (h, v). This is a test only
// shortcut. Both the current and target positions must be in the blanking
// interval, or pixels will be lost.
//
func (g *SyncGen) Seek(h, v int) {
	g.h, g.v = h%g.tm.HTotal(), v%g.tm.VTotal()
}

func (g *SyncGen) active(h, v int) bool {
	return h < g.tm.HActive && v < g.tm.VActive
}

func (g *SyncGen) advance(h, v, n int) (int, int) {
	h += n
	for h >= g.tm.HTotal() {
		h -= g.tm.HTotal()
		v++
		if v >= g.tm.VTotal() {
			v = 0
		}
	}
	return h, v
}

func (g *SyncGen) edge() {
	p, tm := &g.p, &g.tm
	de := g.active(g.h, g.v)
	p.DE.SetBool(de)
	if de {
		p.D.Set(p.Q.Value() & 0xFFFFFF)
	} else {
		p.D.Set(0)
	}
	hs := g.h >= tm.HActive+tm.HFront && g.h < tm.HActive+tm.HFront+tm.HSync
	vs := g.v >= tm.VActive+tm.VFront && g.v < tm.VActive+tm.VFront+tm.VSync
	p.HS.SetBool(!hs)
	p.VS.SetBool(!vs)
	p.VsyncEdge.SetBool(g.h == 0 && g.v == tm.VActive+tm.VFront)
	p.RdReq.SetBool(g.active(g.advance(g.h, g.v, 2)))
	g.h, g.v = g.advance(g.h, g.v, 1)
}
