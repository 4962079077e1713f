package span

import "testing"

// TestPackUnpack_RoundTrip verifies Unpack(Pack(s)) == s across the
// supported offset range, including the extremes.
func TestPackUnpack_RoundTrip(t *testing.T) {
	cases := []Span{
		{0, 0},
		{0, 1},
		{1, 1},
		{0, MaxOffset},
		{MaxOffset, MaxOffset},
		{12345, 678901},
		{MaxOffset - 1, MaxOffset},
	}
	for _, c := range cases {
		got := Unpack(Pack(c))
		if got != c {
			t.Errorf("round trip %v: got %v", c, got)
		}
	}
}

func TestPack_UpperBitsZero(t *testing.T) {
	p := Pack(Span{MaxOffset, MaxOffset})
	if uint64(p)>>48 != 0 {
		t.Errorf("packed span uses more than 48 bits: %#x", uint64(p))
	}
}

func TestMerge(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Span
		want    Span
	}{
		{"disjoint", Span{0, 5}, Span{10, 20}, Span{0, 20}},
		{"nested", Span{0, 30}, Span{5, 10}, Span{0, 30}},
		{"adjacent", Span{3, 7}, Span{7, 9}, Span{3, 9}},
		{"same", Span{4, 4}, Span{4, 4}, Span{4, 4}},
		{"reversed args", Span{10, 20}, Span{0, 5}, Span{0, 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Merge(tt.a, tt.b); got != tt.want {
				t.Errorf("Merge(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestLess_Ordering(t *testing.T) {
	if !(Span{1, 5}).Less(Span{2, 3}) {
		t.Error("expected start to dominate ordering")
	}
	if !(Span{1, 3}).Less(Span{1, 5}) {
		t.Error("expected end to break ties")
	}
	if (Span{1, 5}).Less(Span{1, 5}) {
		t.Error("Less must be irreflexive")
	}
}

func TestText_Bounds(t *testing.T) {
	src := []byte("hello")
	if got := string((Span{1, 4}).Text(src)); got != "ell" {
		t.Errorf("Text = %q", got)
	}
	if (Span{3, 10}).Text(src) != nil {
		t.Error("out-of-range span should return nil")
	}
	if (Span{0, 0}).Text(src) == nil {
		t.Error("empty span at 0 should return empty slice, not nil")
	}
}

func TestContains(t *testing.T) {
	s := Span{2, 5}
	for _, off := range []uint32{2, 3, 4} {
		if !s.Contains(off) {
			t.Errorf("expected %v to contain %d", s, off)
		}
	}
	for _, off := range []uint32{0, 1, 5, 6} {
		if s.Contains(off) {
			t.Errorf("expected %v not to contain %d", s, off)
		}
	}
}
