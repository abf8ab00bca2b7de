package main

import (
	"image"
	"image/color"
	"strconv"

	"gioui.org/f32"
	"gioui.org/gesture"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/finboard/finboard/backend"
)

type ChartKind uint8

const (
	KindLine ChartKind = iota
	KindBar
)

const (
	yGridDivisions  = 5
	minXTickSpacing = unit.Dp(80)
	barGroupFill    = 0.8
)

// Chart draws a windowed bar or line chart directly into the frame's ops.
// It owns its viewport and pointer state; the input data is immutable and
// may be swapped wholesale between frames.
type Chart struct {
	Kind ChartKind

	input backend.ChartInput
	vp    Viewport

	zoom gesture.Scroll

	// hover/drag state
	pos         f32.Point
	isHovered   bool
	dragging    bool
	dragStartX  float32
	dragOffset0 float64

	// plotWidth is the plot width of the previous frame, needed to turn
	// pointer travel into index travel inside the event loop.
	plotWidth int
}

func rec(gtx C, w layout.Widget) (D, op.CallOp) {
	macro := op.Record(gtx.Ops)
	dims := w(gtx)
	call := macro.Stop()
	return dims, call
}

// SetInput replaces the chart data. The window resets to the most recent
// defaultVisible points only when the axis length changes, so streaming
// updates do not fight the user's pan position.
func (c *Chart) SetInput(in backend.ChartInput) {
	resized := len(in.Labels) != len(c.input.Labels)
	c.input = in
	if resized {
		c.vp.ApplyPreset(Preset3M, len(in.Labels))
	} else {
		c.vp.Clamp(len(in.Labels))
	}
}

func (c *Chart) ApplyPreset(p RangePreset) {
	c.vp.ApplyPreset(p, len(c.input.Labels))
}

// Input exposes the current data for export.
func (c *Chart) Input() backend.ChartInput { return c.input }

// Window is the visible index range [lo, hi).
func (c *Chart) Window() (lo, hi int) { return c.vp.Slice(len(c.input.Labels)) }

// Update consumes pointer input. Panning and the crosshair update from
// the same drag event so they can never disagree within a frame.
func (c *Chart) Update(gtx C) {
	n := len(c.input.Labels)
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target: c,
			Kinds:  pointer.Enter | pointer.Leave | pointer.Move | pointer.Press | pointer.Drag | pointer.Release,
		})
		if !ok {
			break
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch pe.Kind {
		case pointer.Enter:
			c.isHovered = true
			c.pos = pe.Position
		case pointer.Leave, pointer.Cancel:
			c.isHovered = false
			c.dragging = false
		case pointer.Press:
			c.dragging = true
			c.dragStartX = pe.Position.X
			c.dragOffset0 = c.vp.Offset
			c.pos = pe.Position
		case pointer.Drag:
			c.pos = pe.Position
			if c.dragging && c.plotWidth > 0 {
				c.vp.Pan(c.dragOffset0, pe.Position.X-c.dragStartX, float32(c.plotWidth), n)
			}
		case pointer.Release:
			c.dragging = false
		case pointer.Move:
			c.pos = pe.Position
		}
	}
	if dist := c.zoom.Update(gtx.Metric, gtx.Source, gtx.Now, gesture.Vertical, image.Rect(0, -1e6, 0, 1e6)); dist != 0 && n > 0 && c.plotWidth > 0 {
		rel := float64(c.pos.X) / float64(c.plotWidth)
		c.vp.Zoom(rel, dist < 0, n)
	}
}

// visibleExtent computes the Y bounds of the window [lo,hi). Stacked mode
// sums positive and negative values independently per x position so bars
// stacked on both sides of zero scale correctly; grouped/line mode takes
// the plain min/max. Bar charts always include the zero baseline.
func visibleExtent(in backend.ChartInput, lo, hi int, isBar bool) (minV, maxV float64) {
	first := true
	consider := func(v float64) {
		if first {
			minV, maxV = v, v
			first = false
			return
		}
		minV = min(minV, v)
		maxV = max(maxV, v)
	}
	if in.Stacked {
		for i := lo; i < hi; i++ {
			var posSum, negSum float64
			for _, ds := range in.Datasets {
				if i >= len(ds.Data) {
					continue
				}
				if v := ds.Data[i]; v >= 0 {
					posSum += v
				} else {
					negSum += v
				}
			}
			consider(posSum)
			consider(negSum)
		}
	} else {
		for _, ds := range in.Datasets {
			for i := lo; i < hi && i < len(ds.Data); i++ {
				consider(ds.Data[i])
			}
		}
	}
	if first {
		return 0, 0
	}
	if isBar {
		minV = min(minV, 0)
		maxV = max(maxV, 0)
	}
	return minV, maxV
}

// hoveredBar maps a plot-relative pointer X to the visible slot and, for
// grouped bars, the dataset under the pointer inferred from the offset
// within the group.
func hoveredBar(x, slotWidth float32, datasetCount int, grouped bool) (slot, dataset int) {
	if slotWidth <= 0 {
		return 0, 0
	}
	slot = int(x / slotWidth)
	if !grouped || datasetCount < 1 {
		return slot, 0
	}
	within := x - float32(slot)*slotWidth
	groupLeft := slotWidth * (1 - barGroupFill) / 2
	sub := (slotWidth * barGroupFill) / float32(datasetCount)
	dataset = int((within - groupLeft) / sub)
	if dataset < 0 {
		dataset = 0
	}
	if dataset >= datasetCount {
		dataset = datasetCount - 1
	}
	return slot, dataset
}

func (c *Chart) Layout(gtx C, th *material.Theme) D {
	c.Update(gtx)
	size := gtx.Constraints.Max
	n := len(c.input.Labels)

	// Reserve space for axis labels before computing the plot rect.
	origConstraints := gtx.Constraints
	gtx.Constraints.Min = image.Point{}
	sample := material.Body2(th, "00000.00")
	sampleDims, _ := rec(gtx, sample.Layout)
	gtx.Constraints = origConstraints
	axisW := sampleDims.Size.X + gtx.Dp(4)
	axisH := sampleDims.Size.Y + gtx.Dp(4)

	plot := image.Rect(0, 0, size.X-axisW, size.Y-axisH)
	if plot.Dx() <= 0 || plot.Dy() <= 0 {
		return D{Size: size}
	}
	c.plotWidth = plot.Dx()

	// Input region covers the plot only; axis margins do not pan.
	area := clip.Rect(plot).Push(gtx.Ops)
	event.Op(gtx.Ops, c)
	c.zoom.Add(gtx.Ops)
	area.Pop()

	drawAxesFrame(gtx, plot)
	if n == 0 || len(c.input.Datasets) == 0 {
		c.drawPlaceholder(gtx, th, plot)
		return D{Size: size}
	}

	lo, hi := c.vp.Slice(n)
	minV, maxV := visibleExtent(c.input, lo, hi, c.Kind == KindBar)
	yMin, yMax := padRange(minV, maxV)
	top := float32(plot.Min.Y)
	bottom := float32(plot.Max.Y)

	c.drawYGrid(gtx, th, plot, yMin, yMax)
	c.drawXTicks(gtx, th, plot, lo, hi)

	slotWidth := float32(plot.Dx()) / float32(hi-lo)
	switch c.Kind {
	case KindBar:
		c.drawBars(gtx, plot, lo, hi, yMin, yMax, slotWidth)
	default:
		c.drawLines(gtx, plot, lo, hi, yMin, yMax, slotWidth)
	}

	if c.isHovered && c.pos.X >= float32(plot.Min.X) && c.pos.X < float32(plot.Max.X) &&
		c.pos.Y >= top && c.pos.Y < bottom {
		c.drawCrosshair(gtx, th, plot, lo, hi, yMin, yMax, slotWidth)
	}
	return D{Size: size}
}

func drawAxesFrame(gtx C, plot image.Rectangle) {
	one := gtx.Dp(1)
	fillRect(gtx.Ops, image.Rect(plot.Min.X, plot.Max.Y, plot.Max.X, plot.Max.Y+one), axisColor)
	fillRect(gtx.Ops, image.Rect(plot.Max.X, plot.Min.Y, plot.Max.X+one, plot.Max.Y), axisColor)
}

func (c *Chart) drawPlaceholder(gtx C, th *material.Theme, plot image.Rectangle) {
	l := material.Body1(th, "No data")
	l.Color = withAlpha(th.Fg, 120)
	origConstraints := gtx.Constraints
	gtx.Constraints.Min = image.Point{}
	dims, call := rec(gtx, l.Layout)
	gtx.Constraints = origConstraints
	offset := op.Offset(image.Point{
		X: plot.Min.X + (plot.Dx()-dims.Size.X)/2,
		Y: plot.Min.Y + (plot.Dy()-dims.Size.Y)/2,
	}).Push(gtx.Ops)
	call.Add(gtx.Ops)
	offset.Pop()
}

func (c *Chart) drawYGrid(gtx C, th *material.Theme, plot image.Rectangle, yMin, yMax float64) {
	one := gtx.Dp(1)
	origConstraints := gtx.Constraints
	gtx.Constraints.Min = image.Point{}
	defer func() { gtx.Constraints = origConstraints }()
	for i := 0; i <= yGridDivisions; i++ {
		frac := float64(i) / yGridDivisions
		v := yMin + frac*(yMax-yMin)
		y := int(valueToPixel(v, yMin, yMax, float32(plot.Max.Y), float32(plot.Min.Y)))
		fillRect(gtx.Ops, image.Rect(plot.Min.X, y, plot.Max.X, y+one), gridColor)
		l := material.Body2(th, strconv.FormatFloat(v, 'f', 2, 64))
		dims, call := rec(gtx, l.Layout)
		offset := op.Offset(image.Point{X: plot.Max.X + gtx.Dp(4), Y: y - dims.Size.Y/2}).Push(gtx.Ops)
		call.Add(gtx.Ops)
		offset.Pop()
	}
}

func (c *Chart) drawXTicks(gtx C, th *material.Theme, plot image.Rectangle, lo, hi int) {
	count := hi - lo
	step := xTickStep(count, plot.Dx(), gtx.Dp(minXTickSpacing))
	slotWidth := float32(plot.Dx()) / float32(count)
	one := gtx.Dp(1)
	origConstraints := gtx.Constraints
	gtx.Constraints.Min = image.Point{}
	defer func() { gtx.Constraints = origConstraints }()
	for i := 0; i < count; i += step {
		x := int(slotCenter(i, float32(plot.Min.X), slotWidth))
		fillRect(gtx.Ops, image.Rect(x, plot.Min.Y, x+one, plot.Max.Y), gridColor)
		l := material.Body2(th, shortLabel(c.input.Labels[lo+i]))
		l.MaxLines = 1
		dims, call := rec(gtx, l.Layout)
		offset := op.Offset(image.Point{X: x - dims.Size.X/2, Y: plot.Max.Y + gtx.Dp(2)}).Push(gtx.Ops)
		call.Add(gtx.Ops)
		offset.Pop()
	}
}

func (c *Chart) drawBars(gtx C, plot image.Rectangle, lo, hi int, yMin, yMax float64, slotWidth float32) {
	bottom := float32(plot.Max.Y)
	top := float32(plot.Min.Y)
	zeroY := valueToPixel(0, yMin, yMax, bottom, top)
	groupWidth := slotWidth * barGroupFill
	groupPad := (slotWidth - groupWidth) / 2
	for i := lo; i < hi; i++ {
		slotLeft := float32(plot.Min.X) + float32(i-lo)*slotWidth
		if c.input.Stacked {
			var posBase, negBase float64
			for d, ds := range c.input.Datasets {
				if i >= len(ds.Data) {
					continue
				}
				v := ds.Data[i]
				var from, to float64
				if v >= 0 {
					from, to = posBase, posBase+v
					posBase += v
				} else {
					from, to = negBase+v, negBase
					negBase += v
				}
				y0 := valueToPixel(to, yMin, yMax, bottom, top)
				y1 := valueToPixel(from, yMin, yMax, bottom, top)
				fillRect(gtx.Ops, image.Rect(
					int(slotLeft+groupPad), int(y0),
					int(slotLeft+groupPad+groupWidth), int(y1),
				), datasetColor(d, ds.Color))
			}
		} else {
			sub := groupWidth / float32(len(c.input.Datasets))
			for d, ds := range c.input.Datasets {
				if i >= len(ds.Data) {
					continue
				}
				v := ds.Data[i]
				yV := valueToPixel(v, yMin, yMax, bottom, top)
				y0, y1 := yV, zeroY
				if v < 0 {
					y0, y1 = zeroY, yV
				}
				x0 := slotLeft + groupPad + float32(d)*sub
				fillRect(gtx.Ops, image.Rect(
					int(x0), int(y0),
					int(x0+sub), int(y1),
				), datasetColor(d, ds.Color))
			}
		}
	}
}

func (c *Chart) drawLines(gtx C, plot image.Rectangle, lo, hi int, yMin, yMax float64, slotWidth float32) {
	bottom := float32(plot.Max.Y)
	top := float32(plot.Min.Y)
	width := float32(gtx.Dp(2))
	// Stacked lines plot cumulative sums, with positive and negative
	// values accumulated independently.
	var posStack, negStack []float64
	if c.input.Stacked {
		posStack = make([]float64, hi-lo)
		negStack = make([]float64, hi-lo)
	}
	for d, ds := range c.input.Datasets {
		var p clip.Path
		p.Begin(gtx.Ops)
		started := false
		for i := lo; i < hi && i < len(ds.Data); i++ {
			v := ds.Data[i]
			if c.input.Stacked {
				if v >= 0 {
					posStack[i-lo] += v
					v = posStack[i-lo]
				} else {
					negStack[i-lo] += v
					v = negStack[i-lo]
				}
			}
			pt := f32.Pt(
				slotCenter(i-lo, float32(plot.Min.X), slotWidth),
				valueToPixel(v, yMin, yMax, bottom, top),
			)
			if !started {
				p.MoveTo(pt)
				started = true
			} else {
				p.LineTo(pt)
			}
		}
		if started {
			paint.FillShape(gtx.Ops, datasetColor(d, ds.Color), clip.Stroke{
				Path:  p.End(),
				Width: width,
			}.Op())
		}
	}
}

func (c *Chart) drawCrosshair(gtx C, th *material.Theme, plot image.Rectangle, lo, hi int, yMin, yMax float64, slotWidth float32) {
	count := hi - lo
	slot, dataset := hoveredBar(c.pos.X-float32(plot.Min.X), slotWidth, len(c.input.Datasets), !c.input.Stacked)
	if slot >= count {
		slot = count - 1
	}
	if slot < 0 {
		slot = 0
	}
	snapX := int(slotCenter(slot, float32(plot.Min.X), slotWidth))
	one := gtx.Dp(1)

	dashedVLine(gtx, snapX, plot.Min.Y, plot.Max.Y, one)
	dashedHLine(gtx, int(c.pos.Y), plot.Min.X, plot.Max.X, one)

	// Hovered bar highlight.
	if c.Kind == KindBar {
		groupWidth := slotWidth * barGroupFill
		groupPad := (slotWidth - groupWidth) / 2
		slotLeft := float32(plot.Min.X) + float32(slot)*slotWidth
		x0, x1 := slotLeft+groupPad, slotLeft+groupPad+groupWidth
		if !c.input.Stacked && len(c.input.Datasets) > 0 {
			sub := groupWidth / float32(len(c.input.Datasets))
			x0 = slotLeft + groupPad + float32(dataset)*sub
			x1 = x0 + sub
		}
		fillRect(gtx.Ops, image.Rect(int(x0), plot.Min.Y, int(x1), plot.Max.Y), color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 40})
	}

	// Right-side value readout at the pointer height.
	value := pixelToValue(c.pos.Y, float32(plot.Max.Y), float32(plot.Min.Y), yMin, yMax)
	c.drawReadout(gtx, th, strconv.FormatFloat(value, 'f', 2, 64), image.Point{
		X: plot.Max.X + gtx.Dp(2),
		Y: int(c.pos.Y),
	}, true)

	// Bottom label box at the snapped index.
	c.drawReadout(gtx, th, shortLabel(c.input.Labels[lo+slot]), image.Point{
		X: snapX,
		Y: plot.Max.Y + gtx.Dp(2),
	}, false)
}

// drawReadout paints a small filled box with text. vertical centers the
// box on pos.Y (Y-axis readout); otherwise it centers on pos.X (X-axis
// label box).
func (c *Chart) drawReadout(gtx C, th *material.Theme, value string, pos image.Point, vertical bool) {
	l := material.Body2(th, value)
	l.Color = th.ContrastFg
	l.MaxLines = 1
	origConstraints := gtx.Constraints
	gtx.Constraints.Min = image.Point{}
	dims, call := rec(gtx, l.Layout)
	gtx.Constraints = origConstraints
	pad := gtx.Dp(2)
	if vertical {
		pos.Y -= dims.Size.Y / 2
	} else {
		pos.X -= dims.Size.X/2 + pad
	}
	box := image.Rectangle{Min: pos, Max: pos.Add(dims.Size).Add(image.Pt(2*pad, 0))}
	fillRect(gtx.Ops, box, th.ContrastBg)
	offset := op.Offset(pos.Add(image.Pt(pad, 0))).Push(gtx.Ops)
	call.Add(gtx.Ops)
	offset.Pop()
}

const (
	dashOn  = 4
	dashOff = 4
)

func dashedVLine(gtx C, x, y0, y1, width int) {
	step := gtx.Dp(dashOn + dashOff)
	on := gtx.Dp(dashOn)
	for y := y0; y < y1; y += step {
		end := y + on
		if end > y1 {
			end = y1
		}
		fillRect(gtx.Ops, image.Rect(x, y, x+width, end), crossColor)
	}
}

func dashedHLine(gtx C, y, x0, x1, width int) {
	step := gtx.Dp(dashOn + dashOff)
	on := gtx.Dp(dashOn)
	for x := x0; x < x1; x += step {
		end := x + on
		if end > x1 {
			end = x1
		}
		fillRect(gtx.Ops, image.Rect(x, y, end, y+width), crossColor)
	}
}

func fillRect(ops *op.Ops, r image.Rectangle, c color.NRGBA) {
	if r.Empty() {
		return
	}
	paint.FillShape(ops, c, clip.Rect(r).Op())
}

