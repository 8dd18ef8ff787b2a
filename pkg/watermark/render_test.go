package watermark

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// textSettings uses the embedded font so results do not depend on the host.
func textSettings(text string) Settings {
	s := DefaultSettings()
	s.Text = text
	s.FontFamily = ""
	s.Opacity = 1
	return s
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	return imaging.New(w, h, c)
}

func TestTextRenderPadding(t *testing.T) {
	r := NewTextRenderer(nil, nil)

	plain, err := r.Render(textSettings("TEST"), 800)
	require.NoError(t, err)
	b, ok := OpaqueBounds(plain)
	require.True(t, ok)
	assert.GreaterOrEqual(t, b.Min.X, 5)
	assert.GreaterOrEqual(t, b.Min.Y, 5)
	assert.LessOrEqual(t, b.Max.X, plain.Bounds().Dx()-5)
	assert.LessOrEqual(t, b.Max.Y, plain.Bounds().Dy()-5)

	s := textSettings("TEST")
	s.Outline = true
	s.OutlineWidth = 3
	outlined, err := r.Render(s, 800)
	require.NoError(t, err)
	// pad grows by 2*width on every side
	assert.Equal(t, plain.Bounds().Dx()+12, outlined.Bounds().Dx())
	assert.Equal(t, plain.Bounds().Dy()+12, outlined.Bounds().Dy())
}

func TestTextRenderMultilineIsTaller(t *testing.T) {
	r := NewTextRenderer(nil, nil)
	one, err := r.Render(textSettings("TEST"), 800)
	require.NoError(t, err)
	two, err := r.Render(textSettings("TEST\nTEST"), 800)
	require.NoError(t, err)
	assert.Greater(t, two.Bounds().Dy(), one.Bounds().Dy())
}

func TestTextRenderDeterministic(t *testing.T) {
	r := NewTextRenderer(nil, nil)
	s := textSettings("Déjà vu")
	s.Shadow = true
	s.Outline = true
	s.Rotation = 30

	a, err := r.Render(s, 800)
	require.NoError(t, err)
	b, err := r.Render(s, 800)
	require.NoError(t, err)
	assert.Equal(t, a.Bounds(), b.Bounds())
	assert.Equal(t, a.Pix, b.Pix)
}

func TestTextRenderFullTurnIsNoRotation(t *testing.T) {
	r := NewTextRenderer(nil, nil)
	s := textSettings("TEST")

	s.Rotation = 0
	zero, err := r.Render(s, 800)
	require.NoError(t, err)
	s.Rotation = 360
	full, err := r.Render(s, 800)
	require.NoError(t, err)
	s.Rotation = -720
	twice, err := r.Render(s, 800)
	require.NoError(t, err)

	assert.Equal(t, zero.Pix, full.Pix)
	assert.Equal(t, zero.Pix, twice.Pix)
}

func TestTextRenderRightAngleSwapsSize(t *testing.T) {
	r := NewTextRenderer(nil, nil)
	s := textSettings("TEST")
	flat, err := r.Render(s, 800)
	require.NoError(t, err)

	s.Rotation = 90
	turned, err := r.Render(s, 800)
	require.NoError(t, err)
	assert.Equal(t, flat.Bounds().Dx(), turned.Bounds().Dy())
	assert.Equal(t, flat.Bounds().Dy(), turned.Bounds().Dx())
}

func maxAlpha(img *image.NRGBA) uint8 {
	var m uint8
	for i := 3; i < len(img.Pix); i += 4 {
		m = max(m, img.Pix[i])
	}
	return m
}

func TestTextRenderOverlapsKeepOpacity(t *testing.T) {
	r := NewTextRenderer(nil, nil)
	s := textSettings("TEST")
	s.Opacity = 0.5
	limit := alpha8(s.Opacity)

	plain, err := r.Render(s, 800)
	require.NoError(t, err)
	assert.Equal(t, limit, maxAlpha(plain))

	s.Outline = true
	s.OutlineWidth = 2
	outlined, err := r.Render(s, 800)
	require.NoError(t, err)
	assert.Equal(t, limit, maxAlpha(outlined))

	s.Outline = false
	s.Shadow = true
	shadowed, err := r.Render(s, 800)
	require.NoError(t, err)
	assert.Equal(t, limit, maxAlpha(shadowed))

	s.Outline = true
	both, err := r.Render(s, 800)
	require.NoError(t, err)
	assert.LessOrEqual(t, maxAlpha(both), limit)
}

func TestFontSize(t *testing.T) {
	s := DefaultSettings()
	s.FontSize = 48
	assert.Equal(t, 48.0, fontSize(s, 4000))

	s.ReferenceWidth = 1000
	assert.Equal(t, 24.0, fontSize(s, 500))
	assert.Equal(t, float64(minFontSize), fontSize(s, 10))
}

func TestCompositeOpacityZeroLeavesBase(t *testing.T) {
	s := textSettings("TEST")
	s.Opacity = 0
	base := solid(200, 100, color.NRGBA{R: 30, G: 60, B: 90, A: 255})

	out, err := NewRenderer(nil, nil).Apply(base, s)
	require.NoError(t, err)
	assert.Equal(t, base.Pix, out.Pix)
}

func TestCompositeOpacityOneUsesExactColor(t *testing.T) {
	s := textSettings("TEST")
	s.Color = RGB{255, 0, 0}
	s.Anchor = TopLeft
	s.Margin = 0

	layer, err := NewTextRenderer(nil, nil).Render(s, 400)
	require.NoError(t, err)
	base := solid(400, 200, color.NRGBA{A: 255})
	out := Composite(base, layer, image.Point{})

	checked := 0
	lb := layer.Bounds()
	for y := lb.Min.Y; y < lb.Max.Y; y++ {
		for x := lb.Min.X; x < lb.Max.X; x++ {
			if layer.NRGBAAt(x, y).A != 255 {
				continue
			}
			assert.Equal(t, color.NRGBA{R: 255, A: 255}, out.NRGBAAt(x, y))
			checked++
		}
	}
	assert.Positive(t, checked)
}

func TestCompositeDoesNotModifyBaseAndClips(t *testing.T) {
	base := solid(50, 50, color.NRGBA{R: 10, G: 10, B: 10, A: 255})
	before := append([]uint8(nil), base.Pix...)
	layer := solid(40, 40, color.NRGBA{R: 200, A: 255})

	out := Composite(base, layer, image.Pt(30, 30))
	assert.Equal(t, before, base.Pix)
	assert.Equal(t, image.Rect(0, 0, 50, 50), out.Bounds())
	assert.Equal(t, color.NRGBA{R: 200, A: 255}, out.NRGBAAt(49, 49))
	assert.Equal(t, color.NRGBA{R: 10, G: 10, B: 10, A: 255}, out.NRGBAAt(29, 29))
}

func TestApplyBottomRight(t *testing.T) {
	s := textSettings("TEST")
	s.Anchor = BottomRight
	s.Margin = 10
	base := image.NewNRGBA(image.Rect(0, 0, 800, 600))

	r := NewRenderer(nil, nil)
	layer, err := r.Render(s, 800, 600)
	require.NoError(t, err)
	at := Resolve(800, 600, layer.Bounds().Dx(), layer.Bounds().Dy(), s.Placement(), s.Margin)
	assert.Equal(t, image.Pt(790, 590), at.Add(layer.Bounds().Size()))

	out, err := r.Apply(base, s)
	require.NoError(t, err)
	b, ok := OpaqueBounds(out)
	require.True(t, ok)
	assert.InDelta(t, 790, b.Max.X, 20)
	assert.InDelta(t, 590, b.Max.Y, 20)
	assert.LessOrEqual(t, b.Max.X, 790)
	assert.LessOrEqual(t, b.Max.Y, 590)
}

func TestRendererUnknownMode(t *testing.T) {
	s := DefaultSettings()
	s.Mode = "hologram"
	_, err := NewRenderer(nil, nil).Render(s, 100, 100)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func writeMark(t *testing.T, w, h int, c color.NRGBA) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mark.png")
	require.NoError(t, imaging.Save(solid(w, h, c), path))
	return path
}

func TestImageRenderRelativeScale(t *testing.T) {
	s := DefaultSettings()
	s.Mode = ModeImage
	s.ImagePath = writeMark(t, 40, 20, color.NRGBA{G: 255, A: 255})
	s.ImageScale = 0.25
	s.Opacity = 1

	mark, err := NewImageRenderer(nil).Render(s, 800)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), mark.Bounds())
}

func TestImageRenderFixedScaleAndFade(t *testing.T) {
	s := DefaultSettings()
	s.Mode = ModeImage
	s.ImagePath = writeMark(t, 40, 20, color.NRGBA{B: 255, A: 200})
	s.UseRelativeScale = false
	s.ImageScaleFixed = [2]int{40, 20}
	s.Opacity = 0.5

	mark, err := NewImageRenderer(nil).Render(s, 800)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 20), mark.Bounds())
	assert.Equal(t, uint8(100), mark.NRGBAAt(10, 10).A)
	assert.Equal(t, uint8(255), mark.NRGBAAt(10, 10).B)
}

func TestImageRenderDoesNotFadeCachedSource(t *testing.T) {
	r := NewImageRenderer(nil)
	s := DefaultSettings()
	s.Mode = ModeImage
	s.ImagePath = writeMark(t, 40, 20, color.NRGBA{B: 255, A: 200})
	s.UseRelativeScale = false
	s.ImageScaleFixed = [2]int{40, 20}
	s.Opacity = 0.5

	for i := 0; i < 3; i++ {
		mark, err := r.Render(s, 800)
		require.NoError(t, err)
		assert.Equal(t, uint8(100), mark.NRGBAAt(0, 0).A)
	}
}

func TestImagePrepareMissingFile(t *testing.T) {
	s := DefaultSettings()
	s.Mode = ModeImage
	s.ImagePath = filepath.Join(t.TempDir(), "missing.png")

	err := NewRenderer(nil, nil).Prepare(s)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestWatermarkSizeNeverZero(t *testing.T) {
	s := DefaultSettings()
	s.ImageScale = 0.0001
	w, h := watermarkSize(s, 100, 400, 10)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)

	s.UseRelativeScale = false
	s.ImageScaleFixed = [2]int{0, -3}
	w, h = watermarkSize(s, 100, 400, 10)
	assert.Equal(t, 1, w)
	assert.Equal(t, 1, h)
}
