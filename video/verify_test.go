package video_test

import (
	"testing"

	hw "github.com/db47h/hwverify"
	"github.com/db47h/hwverify/video"
	"github.com/go-test/deep"
)

func seq(n int) []uint32 {
	s := make([]uint32, n)
	for i := range s {
		s[i] = uint32(i)
	}
	return s
}

func rotate(s []uint32, n int) []uint32 {
	return append(append([]uint32(nil), s[n:]...), s[:n]...)
}

func TestCompare(t *testing.T) {
	ref := seq(10)
	padded := make([]uint32, len(ref))
	for i, v := range ref {
		padded[i] = v | 0xFF000000
	}
	td := []struct {
		name   string
		frame  []uint32
		offset int
		count  int
		first  []video.Mismatch
	}{
		{"identity", ref, 0, 0, nil},
		{"padding", padded, 0, 0, nil},
		{"rotated", rotate(ref, 3), 3, 0, nil},
		{"negative", rotate(ref, 3), -7, 0, nil},
		{"wrong_offset", rotate(ref, 3), 0, 10, []video.Mismatch{{0, 0, 3}, {1, 1, 4}, {2, 2, 5}}},
		{"one_pixel", append(seq(9), 0x123456), 0, 1, []video.Mismatch{{9, 9, 0x123456}}},
	}
	for _, d := range td {
		r := video.Compare(d.frame, ref, d.offset, 3)
		if r.Matched != (d.count == 0) || r.MismatchCount != d.count {
			t.Errorf("%s: expected %d mismatches, got %d (matched=%v)", d.name, d.count, r.MismatchCount, r.Matched)
		}
		if diff := deep.Equal(r.First, d.first); diff != nil {
			t.Errorf("%s: %v", d.name, diff)
		}
	}
}

func TestVerify_repeated(t *testing.T) {
	ref := seq(12)
	var stream []uint32
	for i := 0; i < 3; i++ {
		stream = append(stream, ref...)
	}
	stream = append(stream, 0, 1) // incomplete
	res := video.Verify(stream, ref, len(ref), 0, 5)
	if len(res) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(res))
	}
	for i, r := range res {
		if !r.Matched || r.MismatchCount != 0 || r.Frame != i || r.Err() != nil {
			t.Errorf("frame %d: %+v", i, r)
		}
	}
}

func TestResult_Err(t *testing.T) {
	ref := seq(8)
	frame := seq(8)
	frame[2], frame[5] = 0xAA, 0xBB
	r := video.Compare(frame, ref, 0, 5)
	r.Frame = 1
	err := r.Err()
	if !hw.IsMismatch(err) {
		t.Fatalf("expected a content mismatch, got %v", err)
	}
	exp := "frame 1: content mismatch: mismatching pixels: pixel 2: expected 000002, got 0000aa; pixel 5: expected 000005, got 0000bb (expected 0, observed 2)"
	if err.Error() != exp {
		t.Fatalf("expected %q, got %q", exp, err.Error())
	}
}

func TestSegment(t *testing.T) {
	s := seq(25)
	fs := video.Segment(s, 10)
	if diff := deep.Equal(fs, [][]uint32{s[:10], s[10:20]}); diff != nil {
		t.Fatal(diff)
	}
	if fs := video.Segment(s, 0); fs != nil {
		t.Fatalf("expected no frame, got %v", fs)
	}
}

func TestFindOffset(t *testing.T) {
	ref := seq(100)
	td := []struct {
		name  string
		frame []uint32
		off   int
		ok    bool
	}{
		{"aligned", ref[:40], 0, true},
		{"mid_raster", ref[37:77], 37, true},
		{"wrapped", rotate(ref, 90)[:30], 90, true},
		{"absent", []uint32{5, 7}, 0, false},
		{"empty", nil, 0, true},
	}
	for _, d := range td {
		off, ok := video.FindOffset(d.frame, ref)
		if off != d.off || ok != d.ok {
			t.Errorf("%s: expected (%d, %v), got (%d, %v)", d.name, d.off, d.ok, off, ok)
		}
	}
}
