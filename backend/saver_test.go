package backend

import "testing"

func testUpdates() []LayoutUpdate {
	return []LayoutUpdate{
		{ComponentID: "a", Col: 1, Row: 1, ColSpan: 6, RowSpan: 2, WidthRatio: 0.5},
		{ComponentID: "b", Col: 7, Row: 1, ColSpan: 6, RowSpan: 2, WidthRatio: 0.5},
	}
}

func TestLayoutSignatureStable(t *testing.T) {
	a := LayoutSignature(testUpdates())
	b := LayoutSignature(testUpdates())
	if a == "" {
		t.Fatal("signature should not be empty")
	}
	if a != b {
		t.Errorf("identical snapshots must share a signature: %s vs %s", a, b)
	}
}

func TestLayoutSignatureOrderIndependent(t *testing.T) {
	updates := testUpdates()
	forward := LayoutSignature(updates)
	reversed := LayoutSignature([]LayoutUpdate{updates[1], updates[0]})
	if forward != reversed {
		t.Errorf("component order must not change the signature: %s vs %s", forward, reversed)
	}
}

func TestLayoutSignatureDetectsChange(t *testing.T) {
	base := LayoutSignature(testUpdates())
	moved := testUpdates()
	moved[1].Row = 3
	if LayoutSignature(moved) == base {
		t.Error("a geometry change must produce a new signature")
	}
}

func TestLayoutSignatureDoesNotMutateInput(t *testing.T) {
	updates := []LayoutUpdate{
		{ComponentID: "z"},
		{ComponentID: "a"},
	}
	LayoutSignature(updates)
	if updates[0].ComponentID != "z" || updates[1].ComponentID != "a" {
		t.Errorf("signature computation reordered the caller's slice: %+v", updates)
	}
}
