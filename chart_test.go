package main

import (
	"testing"

	"github.com/finboard/finboard/backend"
)

func TestVisibleExtentStacked(t *testing.T) {
	// Positive and negative values stack independently per position.
	in := backend.ChartInput{
		Labels:  []string{"a", "b"},
		Stacked: true,
		Datasets: []backend.Dataset{
			{Label: "x", Data: []float64{3, -2}},
			{Label: "y", Data: []float64{5, 1}},
		},
	}
	minV, maxV := visibleExtent(in, 0, 2, false)
	if maxV != 8 {
		t.Errorf("stacked max should be the positive sum 8, got %v", maxV)
	}
	if minV != -2 {
		t.Errorf("stacked min should be the negative sum -2, got %v", minV)
	}
}

func TestVisibleExtentGrouped(t *testing.T) {
	in := backend.ChartInput{
		Labels: []string{"a", "b", "c"},
		Datasets: []backend.Dataset{
			{Label: "x", Data: []float64{3, -2, 7}},
			{Label: "y", Data: []float64{5, 1, -4}},
		},
	}
	minV, maxV := visibleExtent(in, 0, 3, false)
	if minV != -4 || maxV != 7 {
		t.Errorf("grouped extent should be [-4, 7], got [%v, %v]", minV, maxV)
	}
	// Only the window counts.
	minV, maxV = visibleExtent(in, 0, 2, false)
	if minV != -2 || maxV != 5 {
		t.Errorf("windowed extent should be [-2, 5], got [%v, %v]", minV, maxV)
	}
}

func TestVisibleExtentBarsIncludeZero(t *testing.T) {
	in := backend.ChartInput{
		Labels: []string{"a", "b"},
		Datasets: []backend.Dataset{
			{Label: "x", Data: []float64{40, 60}},
		},
	}
	minV, _ := visibleExtent(in, 0, 2, true)
	if minV != 0 {
		t.Errorf("bar scale must include zero, got min %v", minV)
	}
	// Lines keep the tight range.
	minV, _ = visibleExtent(in, 0, 2, false)
	if minV != 40 {
		t.Errorf("line scale should stay tight at 40, got %v", minV)
	}
}

func TestVisibleExtentEmpty(t *testing.T) {
	minV, maxV := visibleExtent(backend.ChartInput{}, 0, 0, true)
	if minV != 0 || maxV != 0 {
		t.Errorf("empty input should report a zero extent, got [%v, %v]", minV, maxV)
	}
}

func TestHoveredBar(t *testing.T) {
	// Slot width 100, two grouped datasets: group occupies the middle
	// 80px, each sub-bar 40px.
	slot, ds := hoveredBar(30, 100, 2, true)
	if slot != 0 || ds != 0 {
		t.Errorf("x=30 should hit slot 0 dataset 0, got %d/%d", slot, ds)
	}
	slot, ds = hoveredBar(70, 100, 2, true)
	if slot != 0 || ds != 1 {
		t.Errorf("x=70 should hit slot 0 dataset 1, got %d/%d", slot, ds)
	}
	slot, ds = hoveredBar(250, 100, 2, true)
	if slot != 2 || ds != 1 {
		t.Errorf("x=250 should hit slot 2 dataset 1, got %d/%d", slot, ds)
	}
	// Stacked bars ignore the dataset dimension.
	slot, ds = hoveredBar(250, 100, 3, false)
	if slot != 2 || ds != 0 {
		t.Errorf("stacked hover should report dataset 0, got %d/%d", slot, ds)
	}
	// Degenerate geometry must not divide by zero.
	if slot, ds = hoveredBar(10, 0, 2, true); slot != 0 || ds != 0 {
		t.Errorf("zero slot width should report 0/0, got %d/%d", slot, ds)
	}
}

func TestSetInputPreservesWindow(t *testing.T) {
	labels := make([]string, 300)
	data := make([]float64, 300)
	in := backend.ChartInput{Labels: labels, Datasets: []backend.Dataset{{Data: data}}}

	var c Chart
	c.SetInput(in)
	if c.vp.Count != presetCounts[Preset3M] {
		t.Errorf("first load should apply the 3mo preset, got count %d", c.vp.Count)
	}

	c.vp.Offset = 40
	c.SetInput(in)
	if c.vp.Offset != 40 {
		t.Errorf("same-length update should not move the window, got offset %v", c.vp.Offset)
	}

	c.SetInput(backend.ChartInput{Labels: labels[:100], Datasets: []backend.Dataset{{Data: data[:100]}}})
	if lo, hi := c.Window(); hi != 100 || hi-lo != presetCounts[Preset3M] {
		t.Errorf("length change should reset to the trailing preset window, got [%d,%d)", lo, hi)
	}
}

func TestSetInputEmptyIdempotent(t *testing.T) {
	var c Chart
	// Rendering state over empty data must be well-defined repeatedly.
	for i := 0; i < 3; i++ {
		c.SetInput(backend.ChartInput{})
		if lo, hi := c.Window(); lo != 0 || hi != 0 {
			t.Errorf("empty input window should clamp to [0,0), got [%d,%d)", lo, hi)
		}
		if minV, maxV := visibleExtent(c.Input(), 0, 0, true); minV != 0 || maxV != 0 {
			t.Errorf("empty extent changed across calls: [%v,%v]", minV, maxV)
		}
	}
}
