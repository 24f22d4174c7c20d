package dedupe

import "testing"

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "", 0},
		{"abc", "abc", 1},
		{"abcd", "bcde", 0.75}, // 2*3/8
		{"the hobbit", "the hobbit", 1},
	}
	for _, tt := range tests {
		got := Ratio(tt.a, tt.b)
		if got != tt.want {
			t.Errorf("Ratio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRatioSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"the hobbit", "the hobbit illustrated"},
		{"dune", "dune messiah"},
		{"foundation", "foundations"},
		{"a", "b"},
	}
	for _, p := range pairs {
		ab, ba := Ratio(p[0], p[1]), Ratio(p[1], p[0])
		if ab != ba {
			t.Errorf("Ratio(%q,%q)=%v but reversed=%v", p[0], p[1], ab, ba)
		}
	}
}

func TestRatioBounds(t *testing.T) {
	pairs := [][2]string{
		{"the name of the wind", "the wise mans fear"},
		{"x", "yyyyyyyy"},
		{"same", "same"},
	}
	for _, p := range pairs {
		r := Ratio(p[0], p[1])
		if r < 0 || r > 1 {
			t.Errorf("Ratio(%q,%q) = %v out of [0,1]", p[0], p[1], r)
		}
	}
}

func TestRatioNearMatch(t *testing.T) {
	// A trailing edition marker should still clear the default threshold.
	r := Ratio("the fellowship of the ring", "the fellowship of the ring 2")
	if r < DefaultThreshold {
		t.Errorf("near-identical titles scored %v, below threshold %v", r, DefaultThreshold)
	}
	// Unrelated titles should not.
	r = Ratio("the hobbit", "war and peace")
	if r >= DefaultThreshold {
		t.Errorf("unrelated titles scored %v, above threshold", r)
	}
}
