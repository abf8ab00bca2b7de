package main

import (
	"math"
	"testing"
)

func TestValueToPixelRoundTrip(t *testing.T) {
	// Y axis: pixelMin is the bottom of the plot.
	bottom, top := float32(400), float32(50)
	for _, v := range []float64{10, 55.5, 90} {
		px := valueToPixel(v, 10, 90, bottom, top)
		got := pixelToValue(px, bottom, top, 10, 90)
		if math.Abs(got-v) > 1e-3 {
			t.Errorf("round trip of %v via pixel %v returned %v", v, px, got)
		}
	}
	if px := valueToPixel(10, 10, 90, bottom, top); px != bottom {
		t.Errorf("domain min should land on the bottom pixel, got %v", px)
	}
	if px := valueToPixel(90, 10, 90, bottom, top); px != top {
		t.Errorf("domain max should land on the top pixel, got %v", px)
	}
}

func TestValueToPixelZeroSpan(t *testing.T) {
	if px := valueToPixel(5, 5, 5, 100, 0); px != 100 {
		t.Errorf("zero-span domain should map to pixelMin, got %v", px)
	}
	if v := pixelToValue(50, 100, 100, 5, 9); v != 5 {
		t.Errorf("zero-span pixel range should map to domainMin, got %v", v)
	}
}

func TestPadRange(t *testing.T) {
	lo, hi := padRange(10, 90)
	if lo != 2 || hi != 98 {
		t.Errorf("expected [2, 98], got [%v, %v]", lo, hi)
	}
	// Degenerate range pads by 5% of the magnitude.
	lo, hi = padRange(100, 100)
	if lo != 95 || hi != 105 {
		t.Errorf("expected [95, 105] around flat value, got [%v, %v]", lo, hi)
	}
	// All-zero data still gets a non-empty range.
	lo, hi = padRange(0, 0)
	if lo >= hi {
		t.Errorf("flat zero range must still widen, got [%v, %v]", lo, hi)
	}
	// Reversed input normalizes.
	lo, hi = padRange(90, 10)
	if lo != 2 || hi != 98 {
		t.Errorf("reversed bounds should normalize to [2, 98], got [%v, %v]", lo, hi)
	}
}

func TestXTickStep(t *testing.T) {
	// With 500 points in a plot fitting 5 labels the stride must cover
	// everything: step >= ceil(500/5).
	step := xTickStep(500, 500, 100)
	if step < 100 {
		t.Errorf("expected step >= 100, got %d", step)
	}
	if got := xTickStep(20, 1000, 80); got != 2 {
		t.Errorf("expected step 2 for 20 points over 12 label slots, got %d", got)
	}
	if got := xTickStep(5, 1000, 80); got != 1 {
		t.Errorf("sparse windows label every point, got step %d", got)
	}
	if got := xTickStep(0, 1000, 80); got != 1 {
		t.Errorf("empty window should fall back to step 1, got %d", got)
	}
}

func TestShortLabel(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"2024-03-15", "03-15"},
		{"2024/03/15", "03-15"},
		{"2024-03-15 10:30:00", "03-15"},
		{"Revenue", "Revenue"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := shortLabel(tc.in); got != tc.want {
			t.Errorf("shortLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSlotCenter(t *testing.T) {
	if got := slotCenter(0, 100, 50); got != 125 {
		t.Errorf("first slot center should be 125, got %v", got)
	}
	if got := slotCenter(3, 0, 10); got != 35 {
		t.Errorf("fourth slot center should be 35, got %v", got)
	}
}
