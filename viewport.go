package main

import "math"

// Viewport is the visible sub-range [Offset, Offset+Count) of an ordered
// series. Offset stays fractional during interaction and is rounded at
// draw time; Count is always a whole number of axis positions.
type Viewport struct {
	Offset float64
	Count  int
}

// minVisiblePoints bounds zooming in; a window of a single point has no
// pannable extent and degenerate statistics.
const minVisiblePoints = 2

// zoomFactor shrinks the window per wheel notch when zooming in; zooming
// out applies the reciprocal.
const zoomFactor = 0.9

// Clamp restores the viewport invariants over a series of length n:
// 1 <= Count <= n and 0 <= round(Offset) <= n-Count.
func (v *Viewport) Clamp(n int) {
	if n < 1 {
		v.Offset = 0
		v.Count = 1
		return
	}
	if v.Count < 1 {
		v.Count = 1
	}
	if v.Count > n {
		v.Count = n
	}
	if maxOffset := float64(n - v.Count); v.Offset > maxOffset {
		v.Offset = maxOffset
	}
	if v.Offset < 0 {
		v.Offset = 0
	}
}

// Pan shifts the window by a pointer drag. startOffset is the offset
// captured at drag start, deltaPx the horizontal pointer travel since
// then, and plotWidthPx the plot width; dragging right moves the window
// toward earlier data.
func (v *Viewport) Pan(startOffset float64, deltaPx, plotWidthPx float32, n int) {
	if plotWidthPx <= 0 || v.Count < 1 {
		return
	}
	v.Offset = startOffset - float64(deltaPx)*float64(v.Count)/float64(plotWidthPx)
	v.Clamp(n)
}

// Zoom resizes the window while keeping the data index at pointer
// fraction rel (0 at the left plot edge, 1 at the right) visually
// stationary.
func (v *Viewport) Zoom(rel float64, zoomIn bool, n int) {
	if n < 1 {
		return
	}
	if rel < 0 {
		rel = 0
	}
	if rel > 1 {
		rel = 1
	}
	factor := zoomFactor
	if !zoomIn {
		factor = 1 / zoomFactor
	}
	anchor := v.Offset + rel*float64(v.Count)
	newCount := int(math.Round(float64(v.Count) * factor))
	if zoomIn && newCount >= v.Count {
		newCount = v.Count - 1
	}
	if !zoomIn && newCount <= v.Count {
		newCount = v.Count + 1
	}
	if newCount < minVisiblePoints {
		newCount = minVisiblePoints
	}
	if newCount > n {
		newCount = n
	}
	v.Count = newCount
	v.Offset = anchor - rel*float64(newCount)
	v.Clamp(n)
}

// RangePreset names a fixed trailing window of trading days.
type RangePreset string

const (
	Preset1M  RangePreset = "1mo"
	Preset3M  RangePreset = "3mo"
	Preset6M  RangePreset = "6mo"
	Preset1Y  RangePreset = "1yr"
	PresetAll RangePreset = "all"
)

var presetCounts = map[RangePreset]int{
	Preset1M: 21,
	Preset3M: 63,
	Preset6M: 126,
	Preset1Y: 252,
}

// ApplyPreset resets the window to the most recent points named by the
// preset.
func (v *Viewport) ApplyPreset(p RangePreset, n int) {
	count, ok := presetCounts[p]
	if !ok || count > n {
		count = n
	}
	v.Count = count
	v.Offset = float64(n - count)
	v.Clamp(n)
}

// Slice returns the integer bounds [lo,hi) of the visible window over a
// series of length n.
func (v Viewport) Slice(n int) (lo, hi int) {
	vp := v
	vp.Clamp(n)
	lo = int(math.Round(vp.Offset))
	if lo < 0 {
		lo = 0
	}
	hi = lo + vp.Count
	if hi > n {
		hi = n
		lo = hi - vp.Count
		if lo < 0 {
			lo = 0
		}
	}
	return lo, hi
}
