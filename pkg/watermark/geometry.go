package watermark

import (
	"image"
	"math"
	"strings"
)

// Anchor is one of the nine named grid positions.
type Anchor string

const (
	TopLeft      Anchor = "top-left"
	TopCenter    Anchor = "top-center"
	TopRight     Anchor = "top-right"
	MiddleLeft   Anchor = "middle-left"
	Center       Anchor = "center"
	MiddleRight  Anchor = "middle-right"
	BottomLeft   Anchor = "bottom-left"
	BottomCenter Anchor = "bottom-center"
	BottomRight  Anchor = "bottom-right"
)

// Anchors lists the grid positions row by row.
var Anchors = []Anchor{
	TopLeft, TopCenter, TopRight,
	MiddleLeft, Center, MiddleRight,
	BottomLeft, BottomCenter, BottomRight,
}

// ParseAnchor matches s case-insensitively against the nine anchor names.
func ParseAnchor(s string) (Anchor, error) {
	name := Anchor(strings.ToLower(strings.TrimSpace(s)))
	for _, a := range Anchors {
		if a == name {
			return a, nil
		}
	}
	return "", invalidf("unknown anchor %q", s)
}

// Placement is either a symbolic anchor or a normalized center coordinate.
type Placement struct {
	Anchor Anchor
	X, Y   float64
}

// AnchorPlacement places the watermark at a grid position.
func AnchorPlacement(a Anchor) Placement {
	return Placement{Anchor: a}
}

// NormalizedPlacement centers the watermark at (x, y) in canvas fractions.
func NormalizedPlacement(x, y float64) Placement {
	return Placement{X: x, Y: y}
}

// Resolve returns the top-left pixel at which a wmW×wmH watermark is drawn on
// a canvasW×canvasH canvas. Coordinates are never negative; a watermark
// running past the right or bottom edge is left to be clipped.
func Resolve(canvasW, canvasH, wmW, wmH int, p Placement, margin int) image.Point {
	var x, y int
	if p.Anchor == "" {
		x = round(clampUnit(p.X)*float64(canvasW) - float64(wmW)/2)
		y = round(clampUnit(p.Y)*float64(canvasH) - float64(wmH)/2)
	} else {
		x, y = anchorPoint(canvasW, canvasH, wmW, wmH, p.Anchor, margin)
	}
	return image.Pt(max(x, 0), max(y, 0))
}

func anchorPoint(cw, ch, ww, wh int, a Anchor, m int) (int, int) {
	near := m
	midX := centered(cw, ww)
	midY := centered(ch, wh)
	farX := cw - ww - m
	farY := ch - wh - m

	switch a {
	case TopLeft:
		return near, near
	case TopCenter:
		return midX, near
	case TopRight:
		return farX, near
	case MiddleLeft:
		return near, midY
	case MiddleRight:
		return farX, midY
	case BottomLeft:
		return near, farY
	case BottomCenter:
		return midX, farY
	case BottomRight:
		return farX, farY
	default:
		return midX, midY
	}
}

// centered uses the same arithmetic as a normalized 0.5 coordinate so that
// the center anchor and (0.5, 0.5) agree exactly.
func centered(canvas, wm int) int {
	return round(0.5*float64(canvas) - float64(wm)/2)
}

func round(v float64) int {
	return int(math.Round(v))
}
