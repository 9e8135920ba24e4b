package hwverify_test

import (
	"testing"

	hw "github.com/db47h/hwverify"
	"github.com/db47h/hwverify/hwtest"
)

type testPorts struct {
	Read    *hw.Signal `hw:"in"`
	Address *hw.Signal `hw:"in,address,32"`
	Valid   *hw.Signal `hw:"out,readdatavalid"`
	ignored *hw.Signal
}

type otherDriver struct {
	Valid *hw.Signal `hw:"out,valid"`
}

type twoDrivers struct {
	A *hw.Signal `hw:"out"`
	B *hw.Signal `hw:"out"`
}

type badTag struct {
	Read *hw.Signal `hw:"inout"`
}

type badType struct {
	Read bool `hw:"in"`
}

func TestBind(t *testing.T) {
	s := hwtest.NewSim(t)
	var p testPorts
	ports, err := hw.Bind(s, &p, "read=m_read")
	if err != nil {
		t.Fatal(err)
	}
	if p.Read != s.Pin("m_read") || p.Address != s.Pin("address") || p.Valid != s.Pin("readdatavalid") {
		t.Fatal("ports not bound to the expected signals")
	}
	if p.ignored != nil {
		t.Fatal("untagged field was bound")
	}
	if len(ports) != 3 || ports[1].Width != 32 || !ports[2].Out || ports[0].Signal != "m_read" {
		t.Fatalf("bad port list %+v", ports)
	}

	data := []struct {
		name  string
		v     interface{}
		conns string
		err   string
	}{
		{"driven_twice", &otherDriver{}, "valid=readdatavalid", "otherDriver.Valid: signal readdatavalid already driven by testPorts.Valid"},
		{"same_binder", &twoDrivers{}, "a=strobe, b=strobe", "twoDrivers.B: signal strobe already driven by twoDrivers.A"},
		{"width", &testPorts{}, "address=m_read, readdatavalid=v2", "testPorts.Address: signal m_read is 1 bits wide, port is 32 bits"},
		{"unknown_port", &testPorts{}, "typo=x", "invalid port name typo for testPorts"},
		{"bad_conns", &testPorts{}, "read=", `testPorts: in "read=" at pos 6: expected signal name, got end of input`},
		{"bad_tag", &badTag{}, "", `unsupported tag "inout" for field "Read" in "badTag"`},
		{"bad_type", &badType{}, "", `unsupported type "bool" for field "Read" in "badType"`},
		{"not_a_pointer", testPorts{}, "", "Bind: unsupported type hwverify_test.testPorts"},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			_, err := hw.Bind(s, d.v, d.conns)
			if err == nil || err.Error() != d.err {
				t.Errorf("Got error %q, expected %q", err, d.err)
			}
		})
	}
	for _, n := range s.Signals() {
		if n == "strobe" {
			t.Fatal("signal allocated by a failed Bind")
		}
	}
}
