package main

import (
	"image"
	"strconv"

	"gioui.org/f32"
	"gioui.org/gesture"
	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"github.com/finboard/finboard/backend"
)

// HeaderStats are derived from the visible window, not the whole series:
// the header reads "change over the selected period", so panning or
// zooming changes the numbers.
type HeaderStats struct {
	Current   float64
	ChangeAbs float64
	ChangePct float64
}

const (
	volumeBandHeight = unit.Dp(64)
	candleBodyFill   = 0.7
)

// Candlestick draws an OHLC price panel with a volume band beneath it.
// It shares the chart pan/zoom interaction model but owns its own draw
// routine and header statistics.
type Candlestick struct {
	Symbol      string
	CompanyName string

	// OnStatsChange is invoked only when the visible-window statistics
	// actually change value; parents rely on that to avoid redundant
	// re-renders.
	OnStatsChange func(HeaderStats)

	candles []backend.Candle
	vp      Viewport

	zoom gesture.Scroll

	pos         f32.Point
	isHovered   bool
	dragging    bool
	dragStartX  float32
	dragOffset0 float64
	plotWidth   int

	lastStats  HeaderStats
	statsValid bool
}

// SetCandles replaces the series. A length change resets the window to
// the most recent preset span.
func (c *Candlestick) SetCandles(candles []backend.Candle) {
	resized := len(candles) != len(c.candles)
	c.candles = candles
	if resized {
		c.vp.ApplyPreset(Preset3M, len(candles))
	} else {
		c.vp.Clamp(len(candles))
	}
}

func (c *Candlestick) ApplyPreset(p RangePreset) {
	c.vp.ApplyPreset(p, len(c.candles))
}

// Candles exposes the current series for export.
func (c *Candlestick) Candles() []backend.Candle { return c.candles }

// Window is the visible index range [lo, hi).
func (c *Candlestick) Window() (lo, hi int) { return c.vp.Slice(len(c.candles)) }

// windowStats derives header statistics from the visible window [lo,hi).
// A single-candle window reports zero change rather than dividing by the
// first close.
func windowStats(candles []backend.Candle, lo, hi int) HeaderStats {
	if lo >= hi || hi > len(candles) {
		return HeaderStats{}
	}
	first := candles[lo].Close
	last := candles[hi-1].Close
	stats := HeaderStats{Current: last, ChangeAbs: last - first}
	if first != 0 {
		stats.ChangePct = stats.ChangeAbs / first * 100
	}
	return stats
}

func priceExtent(candles []backend.Candle, lo, hi int) (minV, maxV float64) {
	first := true
	for i := lo; i < hi && i < len(candles); i++ {
		if first {
			minV, maxV = candles[i].Low, candles[i].High
			first = false
			continue
		}
		minV = min(minV, candles[i].Low)
		maxV = max(maxV, candles[i].High)
	}
	return minV, maxV
}

func volumeMax(candles []backend.Candle, lo, hi int) float64 {
	var maxV float64
	for i := lo; i < hi && i < len(candles); i++ {
		maxV = max(maxV, candles[i].Volume)
	}
	return maxV
}

func (c *Candlestick) Update(gtx C) {
	n := len(c.candles)
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

func (c *Candlestick) Layout(gtx C, th *material.Theme) D {
	c.Update(gtx)
	size := gtx.Constraints.Max
	n := len(c.candles)

	origConstraints := gtx.Constraints
	gtx.Constraints.Min = image.Point{}
	sample := material.Body2(th, "00000.00")
	sampleDims, _ := rec(gtx, sample.Layout)
	gtx.Constraints = origConstraints
	axisW := sampleDims.Size.X + gtx.Dp(4)
	axisH := sampleDims.Size.Y + gtx.Dp(4)
	headerH := sampleDims.Size.Y + gtx.Dp(6)

	lo, hi := c.vp.Slice(n)
	stats := windowStats(c.candles, lo, hi)
	if c.OnStatsChange != nil && (!c.statsValid || stats != c.lastStats) {
		c.lastStats = stats
		c.statsValid = true
		c.OnStatsChange(stats)
	}
	c.drawHeader(gtx, th, stats, n > 0)

	volH := gtx.Dp(volumeBandHeight)
	if maxVol := (size.Y - headerH - axisH) / 3; volH > maxVol {
		volH = maxVol
	}
	price := image.Rect(0, headerH, size.X-axisW, size.Y-axisH-volH)
	volume := image.Rect(0, price.Max.Y, size.X-axisW, size.Y-axisH)
	if price.Dx() <= 0 || price.Dy() <= 0 {
		return D{Size: size}
	}
	c.plotWidth = price.Dx()

	area := clip.Rect(image.Rect(price.Min.X, price.Min.Y, price.Max.X, volume.Max.Y)).Push(gtx.Ops)
	event.Op(gtx.Ops, c)
	c.zoom.Add(gtx.Ops)
	area.Pop()

	drawAxesFrame(gtx, image.Rect(price.Min.X, price.Min.Y, price.Max.X, volume.Max.Y))
	if n == 0 {
		ch := Chart{}
		ch.drawPlaceholder(gtx, th, price)
		return D{Size: size}
	}

	minP, maxP := priceExtent(c.candles, lo, hi)
	yMin, yMax := padRange(minP, maxP)
	maxVol := volumeMax(c.candles, lo, hi)

	c.drawPriceGrid(gtx, th, price, yMin, yMax)
	c.drawXTicks(gtx, th, price, volume, lo, hi)
	c.drawCandles(gtx, price, volume, lo, hi, yMin, yMax, maxVol)

	if c.isHovered && c.pos.X >= float32(price.Min.X) && c.pos.X < float32(price.Max.X) &&
		c.pos.Y >= float32(price.Min.Y) && c.pos.Y < float32(volume.Max.Y) {
		c.drawCrosshair(gtx, th, price, volume, lo, hi, yMin, yMax)
	}
	return D{Size: size}
}

func (c *Candlestick) drawHeader(gtx C, th *material.Theme, stats HeaderStats, haveData bool) {
	title := c.Symbol
	if c.CompanyName != "" {
		title += " · " + c.CompanyName
	}
	origConstraints := gtx.Constraints
	gtx.Constraints.Min = image.Point{}
	defer func() { gtx.Constraints = origConstraints }()

	l := material.Body1(th, title)
	l.MaxLines = 1
	dims, call := rec(gtx, l.Layout)
	offset := op.Offset(image.Pt(gtx.Dp(2), 0)).Push(gtx.Ops)
	call.Add(gtx.Ops)
	offset.Pop()
	if !haveData {
		return
	}
	price := material.Body1(th, strconv.FormatFloat(stats.Current, 'f', 2, 64)+"  "+formatChange(stats.ChangeAbs, stats.ChangePct))
	price.MaxLines = 1
	if stats.ChangeAbs >= 0 {
		price.Color = upColor
	} else {
		price.Color = downColor
	}
	_, priceCall := rec(gtx, price.Layout)
	offset = op.Offset(image.Pt(gtx.Dp(2)+dims.Size.X+gtx.Dp(12), 0)).Push(gtx.Ops)
	priceCall.Add(gtx.Ops)
	offset.Pop()
}

func (c *Candlestick) drawPriceGrid(gtx C, th *material.Theme, price image.Rectangle, yMin, yMax float64) {
	one := gtx.Dp(1)
	origConstraints := gtx.Constraints
	gtx.Constraints.Min = image.Point{}
	defer func() { gtx.Constraints = origConstraints }()
	for i := 0; i <= yGridDivisions; i++ {
		frac := float64(i) / yGridDivisions
		v := yMin + frac*(yMax-yMin)
		y := int(valueToPixel(v, yMin, yMax, float32(price.Max.Y), float32(price.Min.Y)))
		fillRect(gtx.Ops, image.Rect(price.Min.X, y, price.Max.X, y+one), gridColor)
		l := material.Body2(th, strconv.FormatFloat(v, 'f', 2, 64))
		dims, call := rec(gtx, l.Layout)
		offset := op.Offset(image.Pt(price.Max.X+gtx.Dp(4), y-dims.Size.Y/2)).Push(gtx.Ops)
		call.Add(gtx.Ops)
		offset.Pop()
	}
}

func (c *Candlestick) drawXTicks(gtx C, th *material.Theme, price, volume image.Rectangle, lo, hi int) {
	count := hi - lo
	step := xTickStep(count, price.Dx(), gtx.Dp(minXTickSpacing))
	slotWidth := float32(price.Dx()) / float32(count)
	one := gtx.Dp(1)
	origConstraints := gtx.Constraints
	gtx.Constraints.Min = image.Point{}
	defer func() { gtx.Constraints = origConstraints }()
	for i := 0; i < count; i += step {
		x := int(slotCenter(i, float32(price.Min.X), slotWidth))
		fillRect(gtx.Ops, image.Rect(x, price.Min.Y, x+one, volume.Max.Y), gridColor)
		l := material.Body2(th, shortLabel(c.candles[lo+i].Date))
		l.MaxLines = 1
		dims, call := rec(gtx, l.Layout)
		offset := op.Offset(image.Pt(x-dims.Size.X/2, volume.Max.Y+gtx.Dp(2))).Push(gtx.Ops)
		call.Add(gtx.Ops)
		offset.Pop()
	}
}

func (c *Candlestick) drawCandles(gtx C, price, volume image.Rectangle, lo, hi int, yMin, yMax, maxVol float64) {
	bottom := float32(price.Max.Y)
	top := float32(price.Min.Y)
	slotWidth := float32(price.Dx()) / float32(hi-lo)
	bodyWidth := slotWidth * candleBodyFill
	wick := float32(gtx.Dp(1))
	for i := lo; i < hi; i++ {
		candle := c.candles[i]
		// Green only when the close is strictly above the open.
		col := downColor
		if candle.Close > candle.Open {
			col = upColor
		}
		center := slotCenter(i-lo, float32(price.Min.X), slotWidth)

		yHigh := valueToPixel(candle.High, yMin, yMax, bottom, top)
		yLow := valueToPixel(candle.Low, yMin, yMax, bottom, top)
		fillRect(gtx.Ops, image.Rect(
			int(center-wick/2), int(yHigh),
			int(center+wick/2), int(yLow),
		), col)

		yOpen := valueToPixel(candle.Open, yMin, yMax, bottom, top)
		yClose := valueToPixel(candle.Close, yMin, yMax, bottom, top)
		y0, y1 := yClose, yOpen
		if y0 > y1 {
			y0, y1 = y1, y0
		}
		if int(y1)-int(y0) < gtx.Dp(1) {
			// Doji bodies still get a visible sliver.
			y1 = y0 + float32(gtx.Dp(1))
		}
		fillRect(gtx.Ops, image.Rect(
			int(center-bodyWidth/2), int(y0),
			int(center+bodyWidth/2), int(y1),
		), col)

		if maxVol > 0 {
			vh := float32(candle.Volume/maxVol) * float32(volume.Dy())
			fillRect(gtx.Ops, image.Rect(
				int(center-bodyWidth/2), volume.Max.Y-int(vh),
				int(center+bodyWidth/2), volume.Max.Y,
			), withAlpha(col, 150))
		}
	}
}

func (c *Candlestick) drawCrosshair(gtx C, th *material.Theme, price, volume image.Rectangle, lo, hi int, yMin, yMax float64) {
	count := hi - lo
	slotWidth := float32(price.Dx()) / float32(count)
	slot, _ := hoveredBar(c.pos.X-float32(price.Min.X), slotWidth, 1, false)
	if slot >= count {
		slot = count - 1
	}
	if slot < 0 {
		slot = 0
	}
	snapX := int(slotCenter(slot, float32(price.Min.X), slotWidth))
	one := gtx.Dp(1)
	dashedVLine(gtx, snapX, price.Min.Y, volume.Max.Y, one)
	if c.pos.Y < float32(price.Max.Y) {
		dashedHLine(gtx, int(c.pos.Y), price.Min.X, price.Max.X, one)
		value := pixelToValue(c.pos.Y, float32(price.Max.Y), float32(price.Min.Y), yMin, yMax)
		ch := Chart{}
		ch.drawReadout(gtx, th, strconv.FormatFloat(value, 'f', 2, 64), image.Point{
			X: price.Max.X + gtx.Dp(2),
			Y: int(c.pos.Y),
		}, true)
	}
	ch := Chart{}
	ch.drawReadout(gtx, th, c.candles[lo+slot].Date, image.Point{
		X: snapX,
		Y: volume.Max.Y + gtx.Dp(2),
	}, false)
}

func formatChange(abs, pct float64) string {
	sign := "+"
	if abs < 0 {
		sign = ""
	}
	return sign + strconv.FormatFloat(abs, 'f', 2, 64) + " (" + sign + strconv.FormatFloat(pct, 'f', 2, 64) + "%)"
}
