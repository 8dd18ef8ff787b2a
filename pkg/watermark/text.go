package watermark

import (
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

const minFontSize = 8

// TextRenderer rasterizes text watermarks onto transparent layers.
type TextRenderer struct {
	fonts  *FontResolver
	logger *zap.Logger
}

// NewTextRenderer creates a text renderer. A nil fonts uses a resolver over
// DefaultFontDirs.
func NewTextRenderer(fonts *FontResolver, logger *zap.Logger) *TextRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if fonts == nil {
		fonts = NewFontResolver(nil, logger)
	}
	return &TextRenderer{fonts: fonts, logger: logger}
}

// Render draws s.Text with its shadow and outline onto a layer sized to the
// text's bounding box plus padding, then applies s.Rotation. canvasW is the
// width of the target image and only matters when s.ReferenceWidth is set.
func (r *TextRenderer) Render(s Settings, canvasW int) (*image.NRGBA, error) {
	face, scalable := r.fonts.Face(s, fontSize(s, canvasW))
	defer face.Close()
	if !scalable {
		r.logger.Debug("rendering with bitmap font", zap.Int("requested_size", s.FontSize))
	}

	outlineW := 0
	if s.Outline {
		outlineW = max(s.OutlineWidth, 0)
	}
	pad := outlineW*2 + 10

	lines := strings.Split(s.Text, "\n")
	lineH := face.Metrics().Height
	box, ok := textBounds(face, lines, lineH)
	if !ok {
		r.logger.Debug("watermark text has no visible glyphs", zap.String("text", s.Text))
		return rotate(image.NewNRGBA(image.Rect(0, 0, 2*pad, 2*pad)), s.Rotation), nil
	}

	minX, minY := box.Min.X.Floor(), box.Min.Y.Floor()
	textW := box.Max.X.Ceil() - minX
	textH := box.Max.Y.Ceil() - minY
	layer := image.NewNRGBA(image.Rect(0, 0, textW+2*pad, textH+2*pad))

	x, y := pad-minX, pad-minY

	// passes are drawn opaque; the finished layer carries the opacity
	if s.Shadow {
		drawLines(layer, face, lines, lineH, x+s.ShadowOffset[0], y+s.ShadowOffset[1], s.ShadowColor.NRGBA(1))
	}
	if outlineW > 0 {
		oc := s.OutlineColor.NRGBA(1)
		for ox := -outlineW; ox <= outlineW; ox++ {
			for oy := -outlineW; oy <= outlineW; oy++ {
				if ox == 0 && oy == 0 {
					continue
				}
				drawLines(layer, face, lines, lineH, x+ox, y+oy, oc)
			}
		}
	}
	drawLines(layer, face, lines, lineH, x, y, s.Color.NRGBA(1))
	fade(layer, s.ClampedOpacity())

	return rotate(layer, s.Rotation), nil
}

func fontSize(s Settings, canvasW int) float64 {
	size := float64(s.FontSize)
	if s.ReferenceWidth > 0 && canvasW > 0 {
		size = size * float64(canvasW) / float64(s.ReferenceWidth)
	}
	return math.Max(size, minFontSize)
}

// textBounds returns the union of the lines' glyph bounds relative to the
// first line's baseline origin.
func textBounds(face font.Face, lines []string, lineH fixed.Int26_6) (fixed.Rectangle26_6, bool) {
	var box fixed.Rectangle26_6
	found := false
	for i, ln := range lines {
		b, _ := font.BoundString(face, ln)
		if b.Empty() {
			continue
		}
		off := lineH * fixed.Int26_6(i)
		b.Min.Y += off
		b.Max.Y += off
		if !found {
			box, found = b, true
			continue
		}
		box = box.Union(b)
	}
	return box, found
}

func drawLines(dst *image.NRGBA, face font.Face, lines []string, lineH fixed.Int26_6, x, y int, col color.NRGBA) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: face,
	}
	for i, ln := range lines {
		d.Dot = fixed.Point26_6{
			X: fixed.I(x),
			Y: fixed.I(y) + lineH*fixed.Int26_6(i),
		}
		d.DrawString(ln)
	}
}

// rotate turns img clockwise by deg about its center, growing the canvas so
// nothing is clipped. The new area is transparent.
func rotate(img *image.NRGBA, deg float64) *image.NRGBA {
	a := CanonicalRotation(deg)
	if a == 0 {
		return img
	}
	return imaging.Rotate(img, -a, color.Transparent)
}
