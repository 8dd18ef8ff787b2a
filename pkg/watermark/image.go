package watermark

import (
	"image"
	"math"
	"sync"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// ImageRenderer scales, fades and rotates an image watermark. Decoded
// watermark images are cached by path for the lifetime of the renderer.
type ImageRenderer struct {
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]*image.NRGBA
}

// NewImageRenderer creates an image watermark renderer.
func NewImageRenderer(logger *zap.Logger) *ImageRenderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageRenderer{logger: logger, cache: make(map[string]*image.NRGBA)}
}

// Prepare loads the watermark image so an unreadable file can be rejected
// before any source is processed.
func (r *ImageRenderer) Prepare(s Settings) error {
	if _, err := r.load(s.ImagePath); err != nil {
		return invalidf("watermark image %q: %v", s.ImagePath, err)
	}
	return nil
}

// Render returns the watermark image sized for a canvasW-wide target.
func (r *ImageRenderer) Render(s Settings, canvasW int) (*image.NRGBA, error) {
	src, err := r.load(s.ImagePath)
	if err != nil {
		return nil, NewError(KindRender, s.ImagePath, err)
	}

	w, h := watermarkSize(s, canvasW, src.Bounds().Dx(), src.Bounds().Dy())
	mark := imaging.Resize(src, w, h, imaging.Lanczos)
	mark = fade(mark, s.ClampedOpacity())
	return rotate(mark, s.Rotation), nil
}

func watermarkSize(s Settings, canvasW, srcW, srcH int) (int, int) {
	if !s.UseRelativeScale {
		return max(s.ImageScaleFixed[0], 1), max(s.ImageScaleFixed[1], 1)
	}
	w := max(int(float64(canvasW)*s.ImageScale), 1)
	h := max(int(float64(srcH)*float64(w)/float64(max(srcW, 1))), 1)
	return w, h
}

func (r *ImageRenderer) load(path string) (*image.NRGBA, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if img, ok := r.cache[path]; ok {
		return img, nil
	}
	img, err := imaging.Open(path)
	if err != nil {
		return nil, err
	}
	nrgba := imaging.Clone(img)
	r.cache[path] = nrgba
	r.logger.Debug("watermark image loaded",
		zap.String("path", path),
		zap.Int("width", nrgba.Bounds().Dx()),
		zap.Int("height", nrgba.Bounds().Dy()))
	return nrgba, nil
}

// fade multiplies every alpha value by opacity, keeping relative transparency.
// img is modified in place and returned.
func fade(img *image.NRGBA, opacity float64) *image.NRGBA {
	if opacity >= 1 {
		return img
	}
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = uint8(math.Round(float64(img.Pix[i]) * opacity))
	}
	return img
}
