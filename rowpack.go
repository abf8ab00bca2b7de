package main

import (
	"math"
	"sort"

	"github.com/finboard/finboard/backend"
)

// rowLooseness lets a row accept one more card past a full width of
// 1.0 before wrapping, so ratios like 0.33+0.33+0.33+0.1 still pack
// onto one row.
const rowLooseness = 0.25

// packRows groups components into rows by accumulating width ratios.
// Components are taken in order; a row closes when adding the next
// ratio would push the total past 1+rowLooseness.
func packRows(ratios []float64) [][]int {
	var rows [][]int
	var row []int
	total := 0.0
	for i, r := range ratios {
		if r <= 0 {
			r = 1
		}
		if len(row) > 0 && total+r > 1+rowLooseness {
			rows = append(rows, row)
			row = nil
			total = 0
		}
		row = append(row, i)
		total += r
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

// apportion splits rowWidth pixels across weights so the parts sum to
// exactly rowWidth. Each part gets the floor of its proportional share;
// leftover pixels go to the largest fractional remainders first.
func apportion(rowWidth int, weights []float64) []int {
	n := len(weights)
	if n == 0 {
		return nil
	}
	sum := 0.0
	for _, w := range weights {
		if w > 0 {
			sum += w
		}
	}
	parts := make([]int, n)
	if sum == 0 {
		// Degenerate weights share equally.
		for i := range parts {
			parts[i] = rowWidth / n
		}
		for i := 0; i < rowWidth%n; i++ {
			parts[i]++
		}
		return parts
	}
	type frac struct {
		idx int
		rem float64
	}
	rems := make([]frac, n)
	used := 0
	for i, w := range weights {
		if w < 0 {
			w = 0
		}
		exact := float64(rowWidth) * w / sum
		parts[i] = int(math.Floor(exact))
		used += parts[i]
		rems[i] = frac{idx: i, rem: exact - math.Floor(exact)}
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].rem > rems[b].rem })
	for i := 0; i < rowWidth-used; i++ {
		parts[rems[i%n].idx]++
	}
	return parts
}

// migratePlacements builds a grid layout for components that only carry
// legacy width-ratio geometry. Components already present in the stored
// layout keep their cells; the rest are packed row by row in order
// index, appended below the last occupied row.
func migratePlacements(components []backend.Component, stored map[string]backend.GridPlacement, rowHeightPx float64) map[string]backend.GridPlacement {
	out := make(map[string]backend.GridPlacement, len(components))
	nextRow := 1
	var missing []backend.Component
	for _, c := range components {
		if p, ok := stored[c.ID]; ok && p.ColSpan > 0 && p.RowSpan > 0 {
			out[c.ID] = p
			if bottom := p.Row + p.RowSpan; bottom > nextRow {
				nextRow = bottom
			}
		} else {
			missing = append(missing, c)
		}
	}
	sort.SliceStable(missing, func(i, j int) bool { return missing[i].OrderIndex < missing[j].OrderIndex })

	ratios := make([]float64, len(missing))
	for i, c := range missing {
		ratios[i] = c.WidthRatio
	}
	for _, row := range packRows(ratios) {
		spans := rowSpans(row, ratios)
		col := 1
		rowSpanMax := minRowSpan
		for i, idx := range row {
			c := missing[idx]
			p := placementFromLegacy(c.WidthRatio, float64(c.Height), rowHeightPx)
			p.ColSpan = spans[i]
			p.Col = col
			p.Row = nextRow
			out[c.ID] = p
			col += p.ColSpan
			if p.RowSpan > rowSpanMax {
				rowSpanMax = p.RowSpan
			}
		}
		nextRow += rowSpanMax
	}
	return out
}

// rowSpans apportions the grid's columns across one packed row so the
// spans sum to exactly gridCols, then makes sure every card keeps at
// least one column by taking columns from the widest card.
func rowSpans(row []int, ratios []float64) []int {
	weights := make([]float64, len(row))
	for i, idx := range row {
		w := ratios[idx]
		if w <= 0 {
			w = 1
		}
		weights[i] = w
	}
	spans := apportion(gridCols, weights)
	for i := range spans {
		for spans[i] < 1 {
			widest := 0
			for j := range spans {
				if spans[j] > spans[widest] {
					widest = j
				}
			}
			if spans[widest] <= 1 {
				spans[i] = 1
				break
			}
			spans[widest]--
			spans[i]++
		}
	}
	return spans
}
