// Package export resizes composited images and writes them under the
// configured naming rule without ever replacing an existing file.
package export

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"photomark/pkg/watermark"
)

// maxDisambiguator bounds the _1, _2, ... search for a free output name.
const maxDisambiguator = 10000

// Exporter writes composited images to an output directory.
type Exporter struct {
	logger *zap.Logger
}

// New creates an Exporter.
func New(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{logger: logger}
}

// Export resizes img per s, derives the output name from sourcePath and
// writes it into outDir. It returns the path written.
func (e *Exporter) Export(img image.Image, sourcePath, outDir string, s watermark.Settings) (string, error) {
	if err := Guard(sourcePath, outDir, s); err != nil {
		return "", err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", watermark.NewError(watermark.KindEncode, outDir, err)
	}

	out := Resize(img, s.ResizeMode, s.ResizeValue)

	f, path, err := reserve(outDir, OutputName(sourcePath, s))
	if err != nil {
		return "", watermark.NewError(watermark.KindEncode, outDir, err)
	}
	if err := encode(f, out, s); err != nil {
		f.Close()
		os.Remove(path)
		return "", watermark.NewError(watermark.KindEncode, path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", watermark.NewError(watermark.KindEncode, path, err)
	}

	e.logger.Debug("exported",
		zap.String("source", sourcePath),
		zap.String("output", path),
		zap.Int("width", out.Bounds().Dx()),
		zap.Int("height", out.Bounds().Dy()))
	return path, nil
}

// Resize scales img according to mode. The aspect ratio is kept for width and
// height modes; every dimension is rounded and at least one pixel.
func Resize(img image.Image, mode watermark.ResizeMode, value int) image.Image {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if value <= 0 || w == 0 || h == 0 {
		return img
	}

	var tw, th int
	switch mode {
	case watermark.ResizeByWidth:
		tw = value
		th = scaled(h, float64(value)/float64(w))
	case watermark.ResizeByHeight:
		th = value
		tw = scaled(w, float64(value)/float64(h))
	case watermark.ResizeByPct:
		ratio := float64(value) / 100
		tw, th = scaled(w, ratio), scaled(h, ratio)
	default:
		return img
	}
	if tw == w && th == h {
		return img
	}
	return imaging.Resize(img, tw, th, imaging.Lanczos)
}

func scaled(n int, ratio float64) int {
	v := int(float64(n)*ratio + 0.5)
	return max(v, 1)
}

// OutputName returns the file name (without directory) for sourcePath.
func OutputName(sourcePath string, s watermark.Settings) string {
	base := filepath.Base(sourcePath)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	switch s.FilenameRule {
	case watermark.FilenamePrefix:
		name = s.FilenameAffix + name
	case watermark.FilenameSuffix:
		name = name + s.FilenameAffix
	}
	return name + s.Extension()
}

// reserve atomically creates the first free name among name, name_1, name_2…
// in dir. Exclusive creation makes the choice safe across concurrent exports.
func reserve(dir, name string) (*os.File, string, error) {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for n := 0; n < maxDisambiguator; n++ {
		candidate := name
		if n > 0 {
			candidate = stem + "_" + strconv.Itoa(n) + ext
		}
		path := filepath.Join(dir, candidate)
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("no free file name for %s after %d attempts", name, maxDisambiguator)
}

func encode(w io.Writer, img image.Image, s watermark.Settings) error {
	if s.OutFormat == watermark.FormatJPEG {
		flat := flatten(img, s.JPEGBackground)
		return imaging.Encode(w, flat, imaging.JPEG, imaging.JPEGQuality(s.JPEGQuality))
	}
	return imaging.Encode(w, img, imaging.PNG, imaging.PNGCompressionLevel(png.DefaultCompression))
}

// flatten composites img over an opaque background, since JPEG has no alpha.
func flatten(img image.Image, bg watermark.RGB) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, image.NewUniform(bg.NRGBA(1)), image.Point{}, draw.Src)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Over)
	return rgba
}
