package hwverify_test

import (
	"fmt"

	hw "github.com/db47h/hwverify"
)

// mux4 is a registered 4 bits multiplexer.
//
type mux4 struct {
	A   *hw.Signal `hw:"in,a,4"`
	B   *hw.Signal `hw:"in,b,4"`
	Sel *hw.Signal `hw:"in"`
	Out *hw.Signal `hw:"out,out,4"`
}

func (m *mux4) update() {
	if m.Sel.High() {
		m.Out.Set(m.B.Value())
	} else {
		m.Out.Set(m.A.Value())
	}
}

type muxBench struct {
	A   *hw.Signal `hw:"out,mux_a,4"`
	B   *hw.Signal `hw:"out,mux_b,4"`
	Sel *hw.Signal `hw:"out,sel"`
	Out *hw.Signal `hw:"in,mux_out,4"`
}

// This example shows how to write a clocked device, bind it to signals and
// drive it from a task.
//
func ExampleBind() {
	s := hw.New()
	defer s.Dispose()
	clk := s.Clock("clk", 10000, 0)

	var m mux4
	hw.MustBind(s, &m, "a=mux_a, b=mux_b, out=mux_out")
	s.OnEdge(clk, m.update)

	var tb muxBench
	ports, err := hw.Bind(s, &tb, "")
	if err != nil {
		panic(err)
	}
	for _, p := range ports {
		fmt.Printf("%s -> %s/%d out=%v\n", p.Field, p.Signal, p.Width, p.Out)
	}

	err = s.Run("main", func(t *hw.Task) error {
		fmt.Println(tb.Out)
		tb.A.Set(1)
		tb.B.Set(0x1f)
		tb.Sel.Set(0)
		t.Edges(clk, 2)
		fmt.Println(tb.Out)
		tb.Sel.Set(1)
		t.Edges(clk, 2)
		fmt.Println(tb.Out)
		return nil
	})
	if err != nil {
		panic(err)
	}

	// Output:
	// A -> mux_a/4 out=true
	// B -> mux_b/4 out=true
	// Sel -> sel/1 out=true
	// Out -> mux_out/4 out=false
	// mux_out=x
	// mux_out=0x1
	// mux_out=0xf
}

// This example shows how tasks exchange data through a Queue.
//
func ExampleQueue() {
	s := hw.New()
	defer s.Dispose()
	clk := s.Clock("clk", 10000, 5000)
	q := hw.NewQueue[uint64](s)

	s.Go("producer", func(t *hw.Task) error {
		for i := uint64(1); i <= 3; i++ {
			t.Edges(clk, 2)
			q.Put(i * 10)
		}
		return nil
	})
	err := s.Run("consumer", func(t *hw.Task) error {
		for i := 0; i < 3; i++ {
			v := q.Get(t)
			fmt.Printf("%d at %d ps\n", v, t.Sim().Now())
		}
		return nil
	})
	if err != nil {
		panic(err)
	}

	// Output:
	// 10 at 15000 ps
	// 20 at 35000 ps
	// 30 at 55000 ps
}
