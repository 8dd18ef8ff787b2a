package watermark

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// Composite returns a copy of base with layer drawn over it, layer's top-left
// corner at at. base is not modified. Parts of layer outside base are clipped.
func Composite(base image.Image, layer image.Image, at image.Point) *image.NRGBA {
	out := imaging.Clone(base)
	lb := layer.Bounds()
	r := image.Rectangle{Min: at, Max: at.Add(lb.Size())}
	draw.Draw(out, r, layer, lb.Min, draw.Over)
	return out
}

// LayerRenderer produces the watermark layer for a target canvas.
type LayerRenderer interface {
	Render(s Settings, canvasW, canvasH int) (*image.NRGBA, error)
}

// Renderer dispatches to the text or image renderer by Settings.Mode.
type Renderer struct {
	text   *TextRenderer
	image  *ImageRenderer
	logger *zap.Logger
}

var _ LayerRenderer = (*Renderer)(nil)

// NewRenderer wires both renderers over a shared font resolver.
func NewRenderer(fonts *FontResolver, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Renderer{
		text:   NewTextRenderer(fonts, logger),
		image:  NewImageRenderer(logger),
		logger: logger,
	}
}

// Prepare does the per-batch work that should fail once rather than per file.
func (r *Renderer) Prepare(s Settings) error {
	if s.Mode == ModeImage {
		return r.image.Prepare(s)
	}
	return nil
}

// Render renders the watermark layer for a canvasW×canvasH target.
func (r *Renderer) Render(s Settings, canvasW, canvasH int) (*image.NRGBA, error) {
	switch s.Mode {
	case ModeText:
		return r.text.Render(s, canvasW)
	case ModeImage:
		return r.image.Render(s, canvasW)
	default:
		return nil, invalidf("unknown watermark mode %q", s.Mode)
	}
}

// Apply renders the watermark for base, resolves its placement and returns
// the composited image.
func (r *Renderer) Apply(base image.Image, s Settings) (*image.NRGBA, error) {
	b := base.Bounds()
	layer, err := r.Render(s, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	at := Resolve(b.Dx(), b.Dy(), layer.Bounds().Dx(), layer.Bounds().Dy(), s.Placement(), s.Margin)
	r.logger.Debug("watermark placed",
		zap.Int("x", at.X),
		zap.Int("y", at.Y),
		zap.Int("layer_w", layer.Bounds().Dx()),
		zap.Int("layer_h", layer.Bounds().Dy()))
	return Composite(base, layer, at), nil
}
