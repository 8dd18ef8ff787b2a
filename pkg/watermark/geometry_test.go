package watermark

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveCenterMatchesNormalizedHalf(t *testing.T) {
	sizes := []struct{ cw, ch, ww, wh int }{
		{800, 600, 120, 40},
		{801, 601, 121, 41},
		{640, 480, 639, 479},
		{100, 100, 1, 1},
		{333, 777, 50, 25},
	}
	for _, sz := range sizes {
		anchored := Resolve(sz.cw, sz.ch, sz.ww, sz.wh, AnchorPlacement(Center), 10)
		normalized := Resolve(sz.cw, sz.ch, sz.ww, sz.wh, NormalizedPlacement(0.5, 0.5), 10)
		assert.Equal(t, normalized, anchored, "%+v", sz)
	}
}

func TestResolveAnchors(t *testing.T) {
	const cw, ch, ww, wh, m = 800, 600, 100, 50, 10

	tests := []struct {
		anchor Anchor
		want   image.Point
	}{
		{TopLeft, image.Pt(10, 10)},
		{TopCenter, image.Pt(350, 10)},
		{TopRight, image.Pt(690, 10)},
		{MiddleLeft, image.Pt(10, 275)},
		{Center, image.Pt(350, 275)},
		{MiddleRight, image.Pt(690, 275)},
		{BottomLeft, image.Pt(10, 540)},
		{BottomCenter, image.Pt(350, 540)},
		{BottomRight, image.Pt(690, 540)},
	}
	for _, tt := range tests {
		t.Run(string(tt.anchor), func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(cw, ch, ww, wh, AnchorPlacement(tt.anchor), m))
		})
	}
}

func TestResolveNeverNegative(t *testing.T) {
	for _, a := range Anchors {
		p := Resolve(50, 40, 200, 100, AnchorPlacement(a), 10)
		assert.GreaterOrEqual(t, p.X, 0, a)
		assert.GreaterOrEqual(t, p.Y, 0, a)
	}
	p := Resolve(50, 40, 200, 100, NormalizedPlacement(0, 0), 0)
	assert.Equal(t, image.Pt(0, 0), p)
}

func TestResolveClampsNormalizedPosition(t *testing.T) {
	assert.Equal(t,
		Resolve(800, 600, 100, 50, NormalizedPlacement(1, 1), 0),
		Resolve(800, 600, 100, 50, NormalizedPlacement(7.5, 3), 0))
	assert.Equal(t,
		Resolve(800, 600, 100, 50, NormalizedPlacement(0, 0), 0),
		Resolve(800, 600, 100, 50, NormalizedPlacement(-2, -0.1), 0))

	// x = 1*800 - 50 = 750, y = 1*600 - 25 = 575
	assert.Equal(t, image.Pt(750, 575), Resolve(800, 600, 100, 50, NormalizedPlacement(1, 1), 0))
}

func TestParseAnchor(t *testing.T) {
	a, err := ParseAnchor("  Bottom-Right ")
	require.NoError(t, err)
	assert.Equal(t, BottomRight, a)

	_, err = ParseAnchor("somewhere")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestSettingsPlacement(t *testing.T) {
	s := DefaultSettings()
	s.Position = [2]float64{0.25, 0.75}
	assert.Equal(t, NormalizedPlacement(0.25, 0.75), s.Placement())

	s.Anchor = "TOP-LEFT"
	assert.Equal(t, AnchorPlacement(TopLeft), s.Placement())
}

func TestCanonicalRotation(t *testing.T) {
	assert.Equal(t, 0.0, CanonicalRotation(0))
	assert.Equal(t, 0.0, CanonicalRotation(360))
	assert.Equal(t, 0.0, CanonicalRotation(-720))
	assert.Equal(t, 0.0, CanonicalRotation(359.995))
	assert.InDelta(t, 45.0, CanonicalRotation(405), 1e-9)
	assert.InDelta(t, 270.0, CanonicalRotation(-90), 1e-9)
}
