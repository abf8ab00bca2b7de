package main

import (
	"image"
	"testing"

	"github.com/finboard/finboard/backend"
)

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b backend.GridPlacement
		want bool
	}{
		{
			"identical",
			backend.GridPlacement{Col: 1, Row: 1, ColSpan: 4, RowSpan: 2},
			backend.GridPlacement{Col: 1, Row: 1, ColSpan: 4, RowSpan: 2},
			true,
		},
		{
			"side by side",
			backend.GridPlacement{Col: 1, Row: 1, ColSpan: 4, RowSpan: 2},
			backend.GridPlacement{Col: 5, Row: 1, ColSpan: 4, RowSpan: 2},
			false,
		},
		{
			"stacked touching",
			backend.GridPlacement{Col: 1, Row: 1, ColSpan: 4, RowSpan: 2},
			backend.GridPlacement{Col: 1, Row: 3, ColSpan: 4, RowSpan: 2},
			false,
		},
		{
			"corner overlap",
			backend.GridPlacement{Col: 1, Row: 1, ColSpan: 4, RowSpan: 2},
			backend.GridPlacement{Col: 4, Row: 2, ColSpan: 4, RowSpan: 2},
			true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := overlaps(tc.a, tc.b); got != tc.want {
				t.Errorf("overlaps(%+v, %+v) = %v, want %v", tc.a, tc.b, got, tc.want)
			}
			if got := overlaps(tc.b, tc.a); got != tc.want {
				t.Errorf("overlaps must be symmetric for %s", tc.name)
			}
		})
	}
}

func TestResolveCollisionsMovesDroppedCard(t *testing.T) {
	a := &GridItem{ID: "a", Placement: backend.GridPlacement{Col: 1, Row: 1, ColSpan: 2, RowSpan: 2}}
	b := &GridItem{ID: "b", Placement: backend.GridPlacement{Col: 1, Row: 1, ColSpan: 2, RowSpan: 2}}
	items := []*GridItem{a, b}

	// b was just dropped onto a's cell; b slides below, a stays put.
	resolveCollisions(items, b)
	if a.Placement.Row != 1 || a.Placement.Col != 1 {
		t.Errorf("resting card must not move, got %+v", a.Placement)
	}
	if b.Placement.Row != 3 {
		t.Errorf("dropped card should be pushed to row 3, got row %d", b.Placement.Row)
	}
}

func TestResolveCollisionsDescendsPastStack(t *testing.T) {
	top := &GridItem{ID: "top", Placement: backend.GridPlacement{Col: 1, Row: 1, ColSpan: 12, RowSpan: 2}}
	mid := &GridItem{ID: "mid", Placement: backend.GridPlacement{Col: 1, Row: 3, ColSpan: 12, RowSpan: 2}}
	moved := &GridItem{ID: "m", Placement: backend.GridPlacement{Col: 1, Row: 1, ColSpan: 12, RowSpan: 2}}
	items := []*GridItem{top, mid, moved}

	// Dropped onto a full-width stack, the card keeps descending until
	// it clears both resting cards.
	resolveCollisions(items, moved)
	if moved.Placement.Row != 5 {
		t.Errorf("moved card should settle at row 5, got %d", moved.Placement.Row)
	}
	if top.Placement.Row != 1 || mid.Placement.Row != 3 {
		t.Errorf("resting cards must not move, got top %d mid %d", top.Placement.Row, mid.Placement.Row)
	}
}

func TestResolveCollisionsLeavesDisjoint(t *testing.T) {
	a := &GridItem{ID: "a", Placement: backend.GridPlacement{Col: 1, Row: 1, ColSpan: 4, RowSpan: 2}}
	b := &GridItem{ID: "b", Placement: backend.GridPlacement{Col: 7, Row: 1, ColSpan: 4, RowSpan: 2}}
	resolveCollisions([]*GridItem{a, b}, a)
	if a.Placement.Row != 1 || a.Placement.Col != 1 {
		t.Errorf("moved card with no collisions should stay, got %+v", a.Placement)
	}
	if b.Placement.Row != 1 || b.Placement.Col != 7 {
		t.Errorf("disjoint card should not move, got %+v", b.Placement)
	}
}

func TestCellAt(t *testing.T) {
	// canvas 1200px, 10px gaps: column unit (1200-110)/12 ≈ 90.8px.
	canvas, gap, rowHeight := 1200, 10, 90
	col, row := cellAt(image.Pt(0, 0), canvas, gap, rowHeight)
	if col != 1 || row != 1 {
		t.Errorf("origin should map to cell 1,1, got %d,%d", col, row)
	}
	col, _ = cellAt(image.Pt(105, 0), canvas, gap, rowHeight)
	if col != 2 {
		t.Errorf("x=105 should map to column 2, got %d", col)
	}
	// Clamped at both edges.
	col, row = cellAt(image.Pt(-50, -50), canvas, gap, rowHeight)
	if col != 1 || row != 1 {
		t.Errorf("negative positions clamp to 1,1, got %d,%d", col, row)
	}
	col, _ = cellAt(image.Pt(5000, 0), canvas, gap, rowHeight)
	if col != gridCols {
		t.Errorf("far-right positions clamp to column %d, got %d", gridCols, col)
	}
	_, row = cellAt(image.Pt(0, 250), canvas, gap, rowHeight)
	if row != 3 {
		t.Errorf("y=250 should map to row 3, got %d", row)
	}
	// Row 1 spans y [0,90) with the gap at [90,100); the lower half of
	// the gap belongs to row 2.
	_, row = cellAt(image.Pt(0, 96), canvas, gap, rowHeight)
	if row != 2 {
		t.Errorf("y=96 sits in the lower gap half and should map to row 2, got %d", row)
	}
}

func TestPlacementFromLegacy(t *testing.T) {
	cases := []struct {
		ratio       float64
		height      float64
		wantColSpan int
		wantRowSpan int
	}{
		{0.5, 270, 6, 3},
		{0.25, 90, 3, 2}, // row span clamps up to the minimum
		{1.0, 450, 12, 5},
		{0.05, 180, minColSpan, 2}, // tiny ratios clamp to the minimum span
		{2.0, 180, 12, 2},          // oversized ratios clamp to the full width
	}
	for _, tc := range cases {
		p := placementFromLegacy(tc.ratio, tc.height, 90)
		if p.ColSpan != tc.wantColSpan || p.RowSpan != tc.wantRowSpan {
			t.Errorf("legacy %v/%v: got %d x %d, want %d x %d",
				tc.ratio, tc.height, p.ColSpan, p.RowSpan, tc.wantColSpan, tc.wantRowSpan)
		}
	}
}

func TestGridRows(t *testing.T) {
	g := Grid{Items: []*GridItem{
		{Placement: backend.GridPlacement{Col: 1, Row: 1, ColSpan: 6, RowSpan: 2}},
		{Placement: backend.GridPlacement{Col: 7, Row: 3, ColSpan: 6, RowSpan: 4}},
	}}
	if got := g.Rows(); got != 6 {
		t.Errorf("bottom row should be 6, got %d", got)
	}
	if got := (&Grid{}).Rows(); got != 0 {
		t.Errorf("empty grid has no rows, got %d", got)
	}
}
