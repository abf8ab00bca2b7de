package main

import (
	"math"
	"time"

	"golang.org/x/exp/constraints"
)

func ceil[T constraints.Integer | constraints.Float](a T) T {
	return T(math.Ceil(float64(a)))
}

func floor[T constraints.Integer | constraints.Float](a T) T {
	return T(math.Floor(float64(a)))
}

// valueToPixel maps value linearly from [domainMin,domainMax] onto
// [pixelMin,pixelMax]. Callers invert the Y axis by passing the bottom
// pixel as pixelMin.
func valueToPixel(value, domainMin, domainMax float64, pixelMin, pixelMax float32) float32 {
	span := domainMax - domainMin
	if span == 0 {
		return pixelMin
	}
	frac := (value - domainMin) / span
	return pixelMin + float32(frac)*(pixelMax-pixelMin)
}

// pixelToValue is the inverse of valueToPixel.
func pixelToValue(px, pixelMin, pixelMax float32, domainMin, domainMax float64) float64 {
	span := pixelMax - pixelMin
	if span == 0 {
		return domainMin
	}
	frac := float64((px - pixelMin) / span)
	return domainMin + frac*(domainMax-domainMin)
}

// slotCenter returns the horizontal center of the i-th of count equal
// slots starting at left.
func slotCenter(i int, left, slotWidth float32) float32 {
	return left + float32(i)*slotWidth + slotWidth/2
}

// rangePadFraction is applied above and below the tightest value range of
// the visible window, so the scale is recomputed from the window on every
// frame rather than once from the whole series.
const rangePadFraction = 0.1

// padRange widens [lo,hi] by the standard fraction. A degenerate range is
// padded symmetrically instead of dividing by zero later.
func padRange(lo, hi float64) (float64, float64) {
	if lo > hi {
		lo, hi = hi, lo
	}
	if lo == hi {
		eps := math.Abs(lo) * 0.05
		if eps == 0 {
			eps = 1
		}
		return lo - eps, hi + eps
	}
	pad := (hi - lo) * rangePadFraction
	return lo - pad, hi + pad
}

// xTickStep picks the label stride for a visible window of count points in
// a plot of plotWidthPx, keeping at least minSpacingPx between labels. One
// label per point becomes illegible quickly when zoomed out; the stride
// grows instead.
func xTickStep(count, plotWidthPx, minSpacingPx int) int {
	if count < 1 {
		return 1
	}
	if minSpacingPx < 1 {
		minSpacingPx = 1
	}
	maxTicks := plotWidthPx / minSpacingPx
	if maxTicks < 1 {
		maxTicks = 1
	}
	step := (count + maxTicks - 1) / maxTicks
	if step < 1 {
		step = 1
	}
	return step
}

var dateLayouts = []string{
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

// shortLabel shortens date-like axis labels to month-day. Labels that do
// not parse as dates pass through unchanged.
func shortLabel(label string) string {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, label); err == nil {
			return t.Format("01-02")
		}
	}
	return label
}
