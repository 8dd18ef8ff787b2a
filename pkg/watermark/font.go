package watermark

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// DefaultFontDirs are searched when a font is requested by family name.
var DefaultFontDirs = []string{
	"/usr/share/fonts/truetype/msttcorefonts",
	"/usr/share/fonts/truetype/dejavu",
	"/usr/share/fonts/truetype",
	"/usr/share/fonts",
	"/Library/Fonts",
	"/System/Library/Fonts/Supplemental",
	`C:\Windows\Fonts`,
}

// FontResolver turns a font file or family name into a face, falling back to
// the embedded Go fonts. Parsed fonts are cached; faces are created per call
// because a font.Face is not safe for concurrent use.
type FontResolver struct {
	dirs   []string
	logger *zap.Logger

	mu    sync.Mutex
	cache map[string]*opentype.Font
}

// NewFontResolver creates a resolver searching dirs for family names.
// A nil dirs uses DefaultFontDirs.
func NewFontResolver(dirs []string, logger *zap.Logger) *FontResolver {
	if dirs == nil {
		dirs = DefaultFontDirs
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FontResolver{dirs: dirs, logger: logger, cache: make(map[string]*opentype.Font)}
}

// Face returns a face for s at size points. It never fails: every resolution
// error is logged and the next fallback is tried. The second result is false
// when only the bitmap font was available and size could not be honored.
func (r *FontResolver) Face(s Settings, size float64) (font.Face, bool) {
	if s.FontFile != "" {
		face, err := r.fileFace(s.FontFile, size)
		if err == nil {
			return face, true
		}
		r.logger.Warn("font file unusable, falling back",
			zap.Error(NewError(KindFontResolution, s.FontFile, err)))
	}
	if fam := strings.TrimSpace(s.FontFamily); fam != "" {
		if path := r.lookupFamily(fam); path != "" {
			face, err := r.fileFace(path, size)
			if err == nil {
				return face, true
			}
			r.logger.Warn("font family unusable, falling back",
				zap.String("family", fam),
				zap.Error(NewError(KindFontResolution, path, err)))
		} else {
			r.logger.Debug("font family not found, using embedded font", zap.String("family", fam))
		}
	}
	face, err := r.embeddedFace(s.Bold, s.Italic, size)
	if err == nil {
		return face, true
	}
	r.logger.Warn("embedded font unusable, using bitmap font; font size is not honored",
		zap.Error(NewError(KindFontResolution, "", err)))
	return basicfont.Face7x13, false
}

func (r *FontResolver) fileFace(path string, size float64) (font.Face, error) {
	fnt, err := r.parsed(path, func() ([]byte, error) { return os.ReadFile(path) })
	if err != nil {
		return nil, err
	}
	return newFace(fnt, size)
}

func (r *FontResolver) embeddedFace(bold, italic bool, size float64) (font.Face, error) {
	key, data := "go:regular", goregular.TTF
	switch {
	case bold && italic:
		key, data = "go:bolditalic", gobolditalic.TTF
	case bold:
		key, data = "go:bold", gobold.TTF
	case italic:
		key, data = "go:italic", goitalic.TTF
	}
	fnt, err := r.parsed(key, func() ([]byte, error) { return data, nil })
	if err != nil {
		return nil, err
	}
	return newFace(fnt, size)
}

func (r *FontResolver) parsed(key string, load func() ([]byte, error)) (*opentype.Font, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fnt, ok := r.cache[key]; ok {
		return fnt, nil
	}
	data, err := load()
	if err != nil {
		return nil, err
	}
	fnt, err := opentype.Parse(data)
	if err != nil {
		return nil, err
	}
	r.cache[key] = fnt
	return fnt, nil
}

func (r *FontResolver) lookupFamily(family string) string {
	if filepath.Ext(family) != "" {
		if _, err := os.Stat(family); err == nil {
			return family
		}
	}
	names := []string{family, strings.ToLower(family)}
	for _, dir := range r.dirs {
		for _, n := range names {
			for _, ext := range []string{".ttf", ".otf", ".TTF"} {
				p := filepath.Join(dir, n+ext)
				if _, err := os.Stat(p); err == nil {
					return p
				}
			}
		}
	}
	return ""
}

func newFace(fnt *opentype.Font, size float64) (font.Face, error) {
	if size <= 0 {
		return nil, errors.New("font size must be positive")
	}
	return opentype.NewFace(fnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}
