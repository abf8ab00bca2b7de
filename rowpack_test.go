package main

import (
	"testing"

	"github.com/finboard/finboard/backend"
)

func TestPackRows(t *testing.T) {
	cases := []struct {
		name   string
		ratios []float64
		want   [][]int
	}{
		{"single full row", []float64{0.5, 0.3, 0.2}, [][]int{{0, 1, 2}}},
		{"wraps past the looseness", []float64{0.5, 0.5, 0.5}, [][]int{{0, 1}, {2}}},
		{"thirds plus a sliver fit loosely", []float64{0.33, 0.33, 0.33, 0.1}, [][]int{{0, 1, 2, 3}}},
		{"full-width cards each own a row", []float64{1, 1}, [][]int{{0}, {1}}},
		{"zero ratio treated as full width", []float64{0, 0.5}, [][]int{{0}, {1}}},
		{"empty", nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := packRows(tc.ratios)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d rows %v, want %d rows %v", len(got), got, len(tc.want), tc.want)
			}
			for i := range got {
				if len(got[i]) != len(tc.want[i]) {
					t.Fatalf("row %d: got %v, want %v", i, got[i], tc.want[i])
				}
				for j := range got[i] {
					if got[i][j] != tc.want[i][j] {
						t.Errorf("row %d: got %v, want %v", i, got[i], tc.want[i])
					}
				}
			}
		})
	}
}

func TestApportionSumsExactly(t *testing.T) {
	cases := []struct {
		rowWidth int
		weights  []float64
	}{
		{101, []float64{0.5, 0.3, 0.2}},
		{100, []float64{1, 1, 1}},
		{7, []float64{0.6, 0.4}},
		{997, []float64{0.33, 0.33, 0.34}},
		{10, []float64{0, 0, 0}},
	}
	for _, tc := range cases {
		parts := apportion(tc.rowWidth, tc.weights)
		sum := 0
		for _, p := range parts {
			sum += p
		}
		if sum != tc.rowWidth {
			t.Errorf("weights %v over %d: parts %v sum to %d", tc.weights, tc.rowWidth, parts, sum)
		}
	}
}

func TestApportionNearProportional(t *testing.T) {
	parts := apportion(101, []float64{0.5, 0.3, 0.2})
	// Every part is its exact share rounded down or up by at most one.
	exact := []float64{50.5, 30.3, 20.2}
	for i, p := range parts {
		lo := int(exact[i])
		if p != lo && p != lo+1 {
			t.Errorf("part %d = %d, want %d or %d", i, p, lo, lo+1)
		}
	}
}

func TestApportionEmpty(t *testing.T) {
	if parts := apportion(100, nil); parts != nil {
		t.Errorf("no weights should produce no parts, got %v", parts)
	}
}

func TestMigratePlacementsKeepsStored(t *testing.T) {
	components := []backend.Component{
		{ID: "a", WidthRatio: 0.5, Height: 180, OrderIndex: 0},
		{ID: "b", WidthRatio: 0.5, Height: 180, OrderIndex: 1},
	}
	stored := map[string]backend.GridPlacement{
		"a": {Col: 7, Row: 2, ColSpan: 6, RowSpan: 3},
	}
	out := migratePlacements(components, stored, 90)
	if out["a"] != stored["a"] {
		t.Errorf("stored placement must survive migration, got %+v", out["a"])
	}
	pb := out["b"]
	// b packs alone onto its row, so it takes the row's full width.
	if pb.ColSpan != 12 || pb.RowSpan != 2 {
		t.Errorf("lone migrated card should fill a 12x2 cell, got %+v", pb)
	}
	if pb.Row < 5 {
		t.Errorf("migrated card must land below the stored layout, got row %d", pb.Row)
	}
}

func TestMigratePlacementsRowSpansFillGrid(t *testing.T) {
	components := []backend.Component{
		{ID: "a", WidthRatio: 0.5, Height: 180, OrderIndex: 0},
		{ID: "b", WidthRatio: 0.3, Height: 180, OrderIndex: 1},
		{ID: "c", WidthRatio: 0.2, Height: 180, OrderIndex: 2},
	}
	out := migratePlacements(components, nil, 90)
	a, b, c := out["a"], out["b"], out["c"]
	if a.Row != 1 || b.Row != 1 || c.Row != 1 {
		t.Fatalf("all three cards should share row 1, got %d/%d/%d", a.Row, b.Row, c.Row)
	}
	if sum := a.ColSpan + b.ColSpan + c.ColSpan; sum != gridCols {
		t.Errorf("row spans should sum to %d, got %d (%d+%d+%d)",
			gridCols, sum, a.ColSpan, b.ColSpan, c.ColSpan)
	}
	// Largest-remainder apportionment of 12 across 0.5/0.3/0.2.
	if a.ColSpan != 6 || b.ColSpan != 4 || c.ColSpan != 2 {
		t.Errorf("spans should follow the ratios, got %d/%d/%d", a.ColSpan, b.ColSpan, c.ColSpan)
	}
	if a.Col != 1 || b.Col != 7 || c.Col != 11 {
		t.Errorf("cards should sit side by side, got cols %d/%d/%d", a.Col, b.Col, c.Col)
	}
}

func TestMigratePlacementsPacksByOrder(t *testing.T) {
	components := []backend.Component{
		{ID: "second", WidthRatio: 0.5, Height: 180, OrderIndex: 1},
		{ID: "first", WidthRatio: 0.5, Height: 180, OrderIndex: 0},
		{ID: "third", WidthRatio: 1, Height: 180, OrderIndex: 2},
	}
	out := migratePlacements(components, nil, 90)
	first, second, third := out["first"], out["second"], out["third"]
	if first.Row != 1 || second.Row != 1 {
		t.Errorf("half-width cards should share row 1, got %d and %d", first.Row, second.Row)
	}
	if first.Col != 1 || second.Col != 7 {
		t.Errorf("order index decides the packing order, got cols %d and %d", first.Col, second.Col)
	}
	if third.Row != 3 || third.Col != 1 || third.ColSpan != 12 {
		t.Errorf("full-width card should own row 3, got %+v", third)
	}
}
