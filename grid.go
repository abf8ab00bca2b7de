package main

import (
	"image"
	"math"

	"gioui.org/gesture"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"gioui.org/x/component"

	"github.com/finboard/finboard/backend"
)

const (
	gridCols      = 12
	gridRowHeight = unit.Dp(90)
	gridGap       = unit.Dp(10)
	minColSpan    = 2
	minRowSpan    = 2
)

// GridItem is one placed card on the canvas. Col and Row are 1-based;
// the occupied columns are the closed interval [Col, Col+ColSpan-1].
type GridItem struct {
	ID        string
	Component backend.Component
	Placement backend.GridPlacement
	// Subtitle is drawn after the name in the card header; candlestick
	// cards mirror their windowed stats here.
	Subtitle string

	Minimized bool
	Editing   bool
	NameField component.TextField

	drag    gesture.Drag
	resize  gesture.Drag
	minBtn  widget.Clickable
	editBtn widget.Clickable
}

type dragKind int

const (
	dragNone dragKind = iota
	dragMove
	dragResize
)

// Grid lays cards out on a 12-column canvas with drag-to-move and
// drag-to-resize. During a gesture the moving card follows the pointer
// freely and a ghost outline shows the snapped target cell; the layout
// itself only changes on release, when the dropped card is pushed down
// past anything it overlaps.
type Grid struct {
	Items []*GridItem

	// OnItemsChange fires after a completed move or resize altered any
	// placement. The slice is the live layout, not a copy.
	OnItemsChange func(items []*GridItem)
	// OnRename fires when a card's title edit is committed with a
	// different name.
	OnRename func(it *GridItem, name string)

	active     *GridItem
	activeKind dragKind
	pointerPos image.Point
	pressPos   image.Point
	startPlace backend.GridPlacement
	startSize  image.Point
	ghost      backend.GridPlacement
	ghostValid bool
}

// placementFromLegacy infers a grid cell span from the persisted pixel
// geometry of pre-grid dashboards. Width ratio maps onto columns and
// pixel height onto rows, both clamped to usable spans.
func placementFromLegacy(widthRatio float64, heightPx float64, rowHeightPx float64) backend.GridPlacement {
	colSpan := int(math.Round(widthRatio * gridCols))
	rowSpan := minRowSpan
	if rowHeightPx > 0 {
		rowSpan = int(math.Round(heightPx / rowHeightPx))
	}
	return backend.GridPlacement{
		Col:     1,
		Row:     1,
		ColSpan: clampSpan(colSpan, minColSpan, gridCols),
		RowSpan: clampSpan(rowSpan, minRowSpan, 1<<20),
	}
}

func clampSpan(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// overlaps reports whether two placements intersect. Spans are closed
// intervals, so cards that merely touch edges do not overlap.
func overlaps(a, b backend.GridPlacement) bool {
	if a.Col+a.ColSpan-1 < b.Col || b.Col+b.ColSpan-1 < a.Col {
		return false
	}
	if a.Row+a.RowSpan-1 < b.Row || b.Row+b.RowSpan-1 < a.Row {
		return false
	}
	return true
}

// gravityMaxPasses bounds the push-down loop so a degenerate layout
// cannot hang the frame; any overlap still left is accepted.
const gravityMaxPasses = 1000

// resolveCollisions restores the no-overlap invariant by pushing the
// just-moved card downward past whatever it landed on. The other cards
// never shift, so dropping onto occupied cells has one predictable
// outcome: the dropped card slides to the first free row below.
func resolveCollisions(items []*GridItem, moved *GridItem) {
	for pass := 0; pass < gravityMaxPasses; pass++ {
		bumped := false
		for _, it := range items {
			if it == moved {
				continue
			}
			if overlaps(moved.Placement, it.Placement) {
				moved.Placement.Row = it.Placement.Row + it.Placement.RowSpan
				bumped = true
			}
		}
		if !bumped {
			return
		}
	}
}

// colUnit returns the width of one column in pixels for the given
// canvas width.
func colUnit(canvasWidth, gap int) float32 {
	return (float32(canvasWidth) - float32(gap)*(gridCols-1)) / gridCols
}

// cellAt maps a canvas-relative pointer position to a 1-based column
// and row. Half the gap on either side of a cell counts toward it, on
// both axes.
func cellAt(pos image.Point, canvasWidth, gap, rowHeight int) (col, row int) {
	cw := colUnit(canvasWidth, gap)
	col = int(math.Floor(float64(float32(pos.X)+float32(gap)/2)/float64(cw+float32(gap)))) + 1
	row = (pos.Y+gap/2)/(rowHeight+gap) + 1
	if col < 1 {
		col = 1
	}
	if col > gridCols {
		col = gridCols
	}
	if row < 1 {
		row = 1
	}
	return col, row
}

// itemRect converts a placement to canvas-relative pixels.
func itemRect(p backend.GridPlacement, canvasWidth, gap, rowHeight int) image.Rectangle {
	cw := colUnit(canvasWidth, gap)
	x0 := float32(p.Col-1) * (cw + float32(gap))
	w := float32(p.ColSpan)*cw + float32(p.ColSpan-1)*float32(gap)
	y0 := (p.Row - 1) * (rowHeight + gap)
	h := p.RowSpan*rowHeight + (p.RowSpan-1)*gap
	return image.Rect(int(x0), y0, int(x0+w), y0+h)
}

// Rows reports the bottom-most occupied row, for sizing the canvas.
func (g *Grid) Rows() int {
	rows := 0
	for _, it := range g.Items {
		if bottom := it.Placement.Row + it.Placement.RowSpan - 1; bottom > rows {
			rows = bottom
		}
	}
	return rows
}

func (g *Grid) Update(gtx C, canvasWidth int) (changed bool) {
	gap := gtx.Dp(gridGap)
	rowHeight := gtx.Dp(gridRowHeight)
	for _, it := range g.Items {
		if it.minBtn.Clicked(gtx) {
			it.Minimized = !it.Minimized
			// Cached plot geometry is stale until the next frame.
			op.InvalidateOp{}.Add(gtx.Ops)
		}
		if it.editBtn.Clicked(gtx) {
			if it.Editing {
				it.Editing = false
				if name := it.NameField.Text(); name != "" && name != it.Component.Name {
					it.Component.Name = name
					if g.OnRename != nil {
						g.OnRename(it, name)
					}
				}
			} else {
				it.Editing = true
				it.NameField.SetText(it.Component.Name)
			}
		}
		var (
			movePos  image.Point
			haveMove bool
		)
		for {
			ev, ok := it.drag.Update(gtx.Metric, gtx.Source, gesture.Both)
			if !ok {
				break
			}
			switch ev.Kind {
			case pointer.Press:
				g.begin(it, dragMove, ev.Position.Round(), canvasWidth, gap, rowHeight)
			case pointer.Drag:
				movePos = ev.Position.Round()
				haveMove = true
			case pointer.Release, pointer.Cancel:
				if haveMove {
					g.advanceMove(movePos, canvasWidth, gap, rowHeight)
					haveMove = false
				}
				if g.commit() {
					changed = true
				}
			}
		}
		if haveMove {
			g.advanceMove(movePos, canvasWidth, gap, rowHeight)
		}
		for {
			ev, ok := it.resize.Update(gtx.Metric, gtx.Source, gesture.Both)
			if !ok {
				break
			}
			switch ev.Kind {
			case pointer.Press:
				g.begin(it, dragResize, ev.Position.Round(), canvasWidth, gap, rowHeight)
			case pointer.Drag:
				g.trackResize(ev.Position.Round(), canvasWidth, gap, rowHeight)
			case pointer.Release, pointer.Cancel:
				if g.commit() {
					changed = true
				}
			}
		}
	}
	return changed
}

func (g *Grid) begin(it *GridItem, kind dragKind, pos image.Point, canvasWidth, gap, rowHeight int) {
	g.active = it
	g.activeKind = kind
	g.pressPos = pos
	g.pointerPos = pos
	g.startPlace = it.Placement
	r := itemRect(it.Placement, canvasWidth, gap, rowHeight)
	g.startSize = r.Size()
	g.ghost = it.Placement
	g.ghostValid = true
}

// advanceMove folds a drag position into the running pointer drift and
// recomputes the snapped ghost cell. Drag positions are card-relative
// and the card itself follows the pointer, so each event reports only
// the movement since the card was last drawn; the drift accumulates.
func (g *Grid) advanceMove(pos image.Point, canvasWidth, gap, rowHeight int) {
	if g.active == nil || g.activeKind != dragMove {
		return
	}
	g.pointerPos = g.pointerPos.Add(pos.Sub(g.pressPos))
	startRect := itemRect(g.startPlace, canvasWidth, gap, rowHeight)
	origin := startRect.Min.Add(g.pointerPos.Sub(g.pressPos))
	col, row := cellAt(origin, canvasWidth, gap, rowHeight)
	if col+g.startPlace.ColSpan-1 > gridCols {
		col = gridCols - g.startPlace.ColSpan + 1
	}
	g.ghost = g.startPlace
	g.ghost.Col = col
	g.ghost.Row = row
}

// trackResize recomputes the ghost spans from the pointer. The resized
// card stays at its committed place during the gesture, so positions are
// usable as-is; the live layout is untouched until commit.
func (g *Grid) trackResize(pos image.Point, canvasWidth, gap, rowHeight int) {
	if g.active == nil || g.activeKind != dragResize {
		return
	}
	cw := colUnit(canvasWidth, gap)
	dx := pos.X - g.pressPos.X
	dy := pos.Y - g.pressPos.Y
	w := float32(g.startSize.X + dx)
	h := g.startSize.Y + dy
	colSpan := int(math.Round(float64((w + float32(gap)) / (cw + float32(gap)))))
	rowSpan := int(math.Round(float64(h+gap) / float64(rowHeight+gap)))
	g.ghost = g.startPlace
	g.ghost.ColSpan = clampSpan(colSpan, minColSpan, gridCols-g.startPlace.Col+1)
	g.ghost.RowSpan = clampSpan(rowSpan, minRowSpan, 1<<20)
}

// commit applies the ghost placement and resolves collisions. Reports
// whether anything moved.
func (g *Grid) commit() bool {
	it := g.active
	g.active = nil
	g.ghostValid = false
	if it == nil || g.ghost == it.Placement {
		return false
	}
	before := snapshot(g.Items)
	it.Placement = g.ghost
	resolveCollisions(g.Items, it)
	after := snapshot(g.Items)
	changed := false
	for id, p := range after {
		if before[id] != p {
			changed = true
			break
		}
	}
	if changed && g.OnItemsChange != nil {
		g.OnItemsChange(g.Items)
	}
	return changed
}

func snapshot(items []*GridItem) map[string]backend.GridPlacement {
	m := make(map[string]backend.GridPlacement, len(items))
	for _, it := range items {
		m[it.ID] = it.Placement
	}
	return m
}

// Layout draws the canvas. body renders the interior of one card below
// its header.
func (g *Grid) Layout(gtx C, th *material.Theme, body func(gtx C, it *GridItem) D) D {
	gap := gtx.Dp(gridGap)
	rowHeight := gtx.Dp(gridRowHeight)
	canvasWidth := gtx.Constraints.Max.X

	g.Update(gtx, canvasWidth)

	rows := g.Rows()
	height := rows*rowHeight + (rows-1)*gap
	if height < 0 {
		height = 0
	}

	for _, it := range g.Items {
		r := itemRect(it.Placement, canvasWidth, gap, rowHeight)
		if g.active == it && g.activeKind == dragMove {
			// The dragged card follows the pointer unsnapped.
			r = image.Rectangle{Min: r.Min.Add(g.pointerPos.Sub(g.pressPos)), Max: r.Max.Add(g.pointerPos.Sub(g.pressPos))}
		}
		if it.Minimized {
			r.Max.Y = r.Min.Y + g.headerHeight(gtx, th)
		}
		g.layoutCard(gtx, th, it, r, body)
	}

	if g.ghostValid && g.active != nil {
		r := itemRect(g.ghost, canvasWidth, gap, rowHeight)
		g.drawGhost(gtx, r)
	}
	return D{Size: image.Pt(canvasWidth, height)}
}

func (g *Grid) headerHeight(gtx C, th *material.Theme) int {
	origConstraints := gtx.Constraints
	gtx.Constraints.Min = image.Point{}
	dims, _ := rec(gtx, material.Body1(th, "M").Layout)
	gtx.Constraints = origConstraints
	return dims.Size.Y + 2*gtx.Dp(6)
}

func (g *Grid) layoutCard(gtx C, th *material.Theme, it *GridItem, r image.Rectangle, body func(gtx C, it *GridItem) D) {
	offset := op.Offset(r.Min).Push(gtx.Ops)
	defer offset.Pop()
	size := r.Size()

	bg := clip.UniformRRect(image.Rectangle{Max: size}, gtx.Dp(4))
	paint.FillShape(gtx.Ops, cardBg, bg.Op(gtx.Ops))

	headerH := g.headerHeight(gtx, th)

	// Header is the move handle; the control buttons sit on top of it and
	// win the pointer hit test.
	header := clip.Rect(image.Rect(0, 0, size.X, headerH)).Push(gtx.Ops)
	it.drag.Add(gtx.Ops)
	pointer.CursorGrab.Add(gtx.Ops)
	header.Pop()

	hgtx := gtx
	hgtx.Constraints = layoutExact(image.Pt(size.X, headerH))
	layout.Flex{Alignment: layout.Middle}.Layout(hgtx,
		layout.Flexed(1, func(gtx C) D {
			return layout.Inset{Left: 8, Right: 4}.Layout(gtx, func(gtx C) D {
				if it.Editing {
					return it.NameField.Layout(gtx, th, "Name")
				}
				title := material.Body1(th, it.Component.Name)
				title.MaxLines = 1
				return title.Layout(gtx)
			})
		}),
		layout.Rigid(func(gtx C) D {
			if it.Subtitle == "" {
				return D{}
			}
			sub := material.Body2(th, it.Subtitle)
			sub.Color = axisColor
			sub.MaxLines = 1
			return layout.Inset{Right: 4}.Layout(gtx, sub.Layout)
		}),
		layout.Rigid(func(gtx C) D {
			label := "Edit"
			if it.Editing {
				label = "Done"
			}
			return headerButton(th, &it.editBtn, label).Layout(gtx)
		}),
		layout.Rigid(func(gtx C) D {
			label := "Min"
			if it.Minimized {
				label = "Max"
			}
			return headerButton(th, &it.minBtn, label).Layout(gtx)
		}),
	)

	if !it.Minimized {
		bodyArea := clip.Rect(image.Rect(0, headerH, size.X, size.Y)).Push(gtx.Ops)
		bOff := op.Offset(image.Pt(0, headerH)).Push(gtx.Ops)
		bgtx := gtx
		bgtx.Constraints = layoutExact(image.Pt(size.X, size.Y-headerH))
		body(bgtx, it)
		bOff.Pop()
		bodyArea.Pop()

		// Bottom-right resize handle.
		hs := gtx.Dp(14)
		handle := clip.Rect(image.Rect(size.X-hs, size.Y-hs, size.X, size.Y)).Push(gtx.Ops)
		it.resize.Add(gtx.Ops)
		pointer.CursorSouthEastResize.Add(gtx.Ops)
		handle.Pop()
		fillRect(gtx.Ops, image.Rect(size.X-hs/2, size.Y-gtx.Dp(2), size.X-gtx.Dp(2), size.Y), gridColor)
		fillRect(gtx.Ops, image.Rect(size.X-gtx.Dp(2), size.Y-hs/2, size.X, size.Y-gtx.Dp(2)), gridColor)
	}
}

func (g *Grid) drawGhost(gtx C, r image.Rectangle) {
	one := gtx.Dp(2)
	fillRect(gtx.Ops, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+one), ghostColor)
	fillRect(gtx.Ops, image.Rect(r.Min.X, r.Max.Y-one, r.Max.X, r.Max.Y), ghostColor)
	fillRect(gtx.Ops, image.Rect(r.Min.X, r.Min.Y, r.Min.X+one, r.Max.Y), ghostColor)
	fillRect(gtx.Ops, image.Rect(r.Max.X-one, r.Min.Y, r.Max.X, r.Max.Y), ghostColor)
	fillRect(gtx.Ops, r.Inset(one), withAlpha(ghostColor, 30))
}

func layoutExact(size image.Point) layout.Constraints {
	return layout.Constraints{Min: size, Max: size}
}

func headerButton(th *material.Theme, btn *widget.Clickable, label string) material.ButtonStyle {
	b := material.Button(th, btn, label)
	b.Inset = layout.UniformInset(4)
	b.TextSize = th.TextSize * 0.75
	return b
}
