package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"photomark/internal/config"
	"photomark/pkg/template"
	"photomark/pkg/watermark"
)

type options struct {
	configPath     string
	outDir         string
	recursive      bool
	workers        int
	templateName   string
	settingsFile   string
	saveTemplate   string
	deleteTemplate string
	listTemplates  bool
	last           bool

	mode         string
	text         string
	fontFile     string
	fontFamily   string
	fontSize     int
	refWidth     int
	bold         bool
	italic       bool
	color        string
	opacity      float64
	shadow       bool
	shadowOffset []int
	shadowColor  string
	outline      bool
	outlineWidth int
	outlineColor string
	image        string
	imageScale   float64
	fixedSize    []int
	absolute     bool
	anchor       string
	pos          string
	margin       int
	rotation     float64
	format       string
	quality      int
	jpgBG        string
	resizeMode   string
	resizeValue  int
	nameRule     string
	affix        string
	allowSource  bool
}

func registerFlags(fs *flag.FlagSet) *options {
	o := &options{}
	fs.StringVarP(&o.configPath, "config", "c", "", "config file (yaml)")
	fs.StringVarP(&o.outDir, "out", "o", "", "output directory (required)")
	fs.BoolVarP(&o.recursive, "recursive", "r", false, "descend into subdirectories of input directories")
	fs.IntVarP(&o.workers, "workers", "w", 0, "parallel workers (default from config)")
	fs.StringVarP(&o.templateName, "template", "t", "", "start from a saved template")
	fs.StringVar(&o.settingsFile, "settings", "", "settings file (.json/.yaml) applied over the template")
	fs.StringVar(&o.saveTemplate, "save-template", "", "save the resolved settings under this name")
	fs.StringVar(&o.deleteTemplate, "delete-template", "", "delete a saved template and exit")
	fs.BoolVar(&o.listTemplates, "list-templates", false, "list saved templates and exit")
	fs.BoolVar(&o.last, "last", false, "start from the settings of the previous run")

	fs.StringVar(&o.mode, "mode", "text", "watermark mode: text or image")
	fs.StringVar(&o.text, "text", "", "watermark text, \\n separates lines")
	fs.StringVar(&o.fontFile, "font", "", "font path (.ttf/.otf)")
	fs.StringVar(&o.fontFamily, "font-family", "", "font family looked up in the font directories")
	fs.IntVar(&o.fontSize, "font-size", 48, "font size in points")
	fs.IntVar(&o.refWidth, "reference-width", 0, "scale font size by image width / this value (0 disables)")
	fs.BoolVar(&o.bold, "bold", false, "bold text")
	fs.BoolVar(&o.italic, "italic", false, "italic text")
	fs.StringVar(&o.color, "color", "255,255,255", "text color r,g,b or #rrggbb")
	fs.Float64Var(&o.opacity, "opacity", 0.5, "opacity 0..1")
	fs.BoolVar(&o.shadow, "shadow", false, "draw a drop shadow")
	fs.IntSliceVar(&o.shadowOffset, "shadow-offset", []int{2, 2}, "shadow offset dx,dy")
	fs.StringVar(&o.shadowColor, "shadow-color", "0,0,0", "shadow color r,g,b")
	fs.BoolVar(&o.outline, "outline", false, "draw an outline")
	fs.IntVar(&o.outlineWidth, "outline-width", 2, "outline width in pixels")
	fs.StringVar(&o.outlineColor, "outline-color", "0,0,0", "outline color r,g,b")
	fs.StringVar(&o.image, "image", "", "watermark image path (image mode)")
	fs.Float64Var(&o.imageScale, "scale", 0.25, "watermark width relative to image width")
	fs.IntSliceVar(&o.fixedSize, "fixed-size", []int{100, 100}, "fixed watermark size w,h (with --absolute)")
	fs.BoolVar(&o.absolute, "absolute", false, "use --fixed-size instead of --scale")
	fs.StringVarP(&o.anchor, "anchor", "a", "", "anchor: "+anchorList())
	fs.StringVar(&o.pos, "pos", "0.5,0.5", "normalized center position x,y")
	fs.IntVar(&o.margin, "margin", watermark.DefaultMargin, "anchor margin in pixels")
	fs.Float64Var(&o.rotation, "rotation", 0, "clockwise rotation in degrees")
	fs.StringVarP(&o.format, "format", "f", "PNG", "output format: PNG or JPEG")
	fs.IntVarP(&o.quality, "quality", "q", 90, "jpeg quality 1..100")
	fs.StringVar(&o.jpgBG, "jpg-bg", "255,255,255", "jpeg background RGB, e.g. 255,255,255")
	fs.StringVar(&o.resizeMode, "resize", "original", "resize: original, width, height or percent")
	fs.IntVar(&o.resizeValue, "resize-value", 100, "target width, height or percentage")
	fs.StringVar(&o.nameRule, "name-rule", "keep", "output name rule: keep, prefix or suffix")
	fs.StringVar(&o.affix, "affix", "wm_", "prefix or suffix for the output name")
	fs.BoolVar(&o.allowSource, "allow-source-dir", false, "allow writing into a source image directory")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: watermark [flags] -o OUTDIR FILE|DIR...\n")
		fs.PrintDefaults()
	}
	return o
}

// resolveSettings layers defaults, the previous run's settings (with --last),
// the named template, the settings file and explicitly passed flags, in that
// order.
func resolveSettings(ctx context.Context, fs *flag.FlagSet, o *options, cfg *config.Config, store template.Store) (watermark.Settings, error) {
	s := watermark.DefaultSettings()
	s.Margin = cfg.Margin

	var err error
	if o.last && cfg.LastSettings != "" {
		if s, err = template.ReadFileIfExists(cfg.LastSettings, s); err != nil {
			return s, err
		}
	}
	if o.templateName != "" {
		if s, err = store.LoadOnto(ctx, o.templateName, s); err != nil {
			return s, err
		}
	}
	if o.settingsFile != "" {
		if s, err = template.ReadFile(o.settingsFile, s); err != nil {
			return s, err
		}
	}
	if err := applyFlags(fs, o, &s); err != nil {
		return s, err
	}
	return s, nil
}

// saveLast records s for a later --last run. Failures are logged.
func saveLast(cfg *config.Config, s watermark.Settings, logger *zap.Logger) {
	if cfg.LastSettings == "" {
		return
	}
	if err := template.WriteFile(cfg.LastSettings, s); err != nil {
		logger.Warn("save last settings", zap.String("path", cfg.LastSettings), zap.Error(err))
	}
}

func applyFlags(fs *flag.FlagSet, o *options, s *watermark.Settings) error {
	var err error
	set := func(name string, fn func() error) {
		if err != nil || !fs.Changed(name) {
			return
		}
		if e := fn(); e != nil {
			err = fmt.Errorf("--%s: %w", name, e)
		}
	}

	set("mode", func() error { s.Mode = watermark.Mode(strings.ToLower(o.mode)); return nil })
	set("text", func() error { s.Text = strings.ReplaceAll(o.text, `\n`, "\n"); return nil })
	set("font", func() error { s.FontFile = o.fontFile; return nil })
	set("font-family", func() error { s.FontFamily = o.fontFamily; return nil })
	set("font-size", func() error { s.FontSize = o.fontSize; return nil })
	set("reference-width", func() error { s.ReferenceWidth = o.refWidth; return nil })
	set("bold", func() error { s.Bold = o.bold; return nil })
	set("italic", func() error { s.Italic = o.italic; return nil })
	set("color", func() (e error) { s.Color, e = watermark.ParseColor(o.color); return })
	set("opacity", func() error { s.Opacity = o.opacity; return nil })
	set("shadow", func() error { s.Shadow = o.shadow; return nil })
	set("shadow-offset", func() (e error) { s.ShadowOffset, e = pairInt(o.shadowOffset); return })
	set("shadow-color", func() (e error) { s.ShadowColor, e = watermark.ParseColor(o.shadowColor); return })
	set("outline", func() error { s.Outline = o.outline; return nil })
	set("outline-width", func() error { s.OutlineWidth = o.outlineWidth; return nil })
	set("outline-color", func() (e error) { s.OutlineColor, e = watermark.ParseColor(o.outlineColor); return })
	set("image", func() error { s.ImagePath = o.image; return nil })
	set("scale", func() error { s.ImageScale = o.imageScale; return nil })
	set("fixed-size", func() (e error) { s.ImageScaleFixed, e = pairInt(o.fixedSize); return })
	set("absolute", func() error { s.UseRelativeScale = !o.absolute; return nil })
	set("anchor", func() (e error) {
		if o.anchor == "" {
			s.Anchor = ""
			return nil
		}
		s.Anchor, e = watermark.ParseAnchor(o.anchor)
		return
	})
	set("pos", func() error {
		pos, err := parsePos(o.pos)
		if err != nil {
			return err
		}
		s.Position = pos
		// an explicit position overrides an anchor from the template
		if !fs.Changed("anchor") {
			s.Anchor = ""
		}
		return nil
	})
	set("margin", func() error { s.Margin = o.margin; return nil })
	set("rotation", func() error { s.Rotation = o.rotation; return nil })
	set("format", func() (e error) { s.OutFormat, e = parseFormat(o.format); return })
	set("quality", func() error { s.JPEGQuality = o.quality; return nil })
	set("jpg-bg", func() (e error) { s.JPEGBackground, e = watermark.ParseColor(o.jpgBG); return })
	set("resize", func() error { s.ResizeMode = watermark.ResizeMode(strings.ToLower(o.resizeMode)); return nil })
	set("resize-value", func() error { s.ResizeValue = o.resizeValue; return nil })
	set("name-rule", func() error { s.FilenameRule = watermark.FilenameRule(strings.ToLower(o.nameRule)); return nil })
	set("affix", func() error { s.FilenameAffix = o.affix; return nil })
	set("allow-source-dir", func() error { s.AllowExportToSource = o.allowSource; return nil })
	return err
}

func pairInt(v []int) ([2]int, error) {
	if len(v) != 2 {
		return [2]int{}, errors.New("expected two comma separated integers")
	}
	return [2]int{v[0], v[1]}, nil
}

func parsePos(raw string) ([2]float64, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return [2]float64{}, errors.New("expected format x,y")
	}
	var p [2]float64
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return [2]float64{}, fmt.Errorf("invalid coordinate: %q", part)
		}
		p[i] = v
	}
	return p, nil
}

func parseFormat(raw string) (watermark.Format, error) {
	switch strings.ToUpper(raw) {
	case "PNG":
		return watermark.FormatPNG, nil
	case "JPEG", "JPG":
		return watermark.FormatJPEG, nil
	}
	return "", fmt.Errorf("unsupported format %q", raw)
}

func anchorList() string {
	names := make([]string, len(watermark.Anchors))
	for i, a := range watermark.Anchors {
		names[i] = string(a)
	}
	return strings.Join(names, "|")
}
