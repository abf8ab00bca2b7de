package main

import (
	"image/color"
	"strconv"
	"strings"
)

// Default series palette, used when a dataset carries no explicit color.
var seriesColors = []color.NRGBA{
	{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff}, //#1f77b4
	{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff}, //#ff7f0e
	{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff}, //#2ca02c
	{R: 0xd6, G: 0x27, B: 0x28, A: 0xff}, //#d62728
	{R: 0x94, G: 0x67, B: 0xbd, A: 0xff}, //#9467bd
	{R: 0x8c, G: 0x56, B: 0x4b, A: 0xff}, //#8c564b
	{R: 0xe3, G: 0x77, B: 0xc2, A: 0xff}, //#e377c2
	{R: 0x7f, G: 0x7f, B: 0x7f, A: 0xff}, //#7f7f7f
	{R: 0xbc, G: 0xbd, B: 0x22, A: 0xff}, //#bcbd22
	{R: 0x17, G: 0xbe, B: 0xcf, A: 0xff}, //#17becf
}

var (
	upColor    = color.NRGBA{R: 0x26, G: 0xa6, B: 0x9a, A: 0xff} //#26a69a
	downColor  = color.NRGBA{R: 0xef, G: 0x53, B: 0x50, A: 0xff} //#ef5350
	gridColor  = color.NRGBA{A: 40}
	axisColor  = color.NRGBA{A: 120}
	crossColor = color.NRGBA{A: 150}
	cardBg     = color.NRGBA{R: 0xfa, G: 0xfa, B: 0xfa, A: 0xff}
	ghostColor = color.NRGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xc0}
)

// datasetColor resolves the color for dataset i, preferring its own hex
// color over the palette.
func datasetColor(i int, hex string) color.NRGBA {
	if c, ok := parseHexColor(hex); ok {
		return c
	}
	return seriesColors[i%len(seriesColors)]
}

func parseHexColor(s string) (color.NRGBA, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return color.NRGBA{}, false
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.NRGBA{}, false
	}
	return color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xff,
	}, true
}

func withAlpha(c color.NRGBA, a uint8) color.NRGBA {
	c.A = a
	return c
}
