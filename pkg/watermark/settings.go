package watermark

import (
	"image/color"
	"math"
)

// Mode selects the watermark variant.
type Mode string

const (
	ModeText  Mode = "text"
	ModeImage Mode = "image"
)

// Format is the output encoding.
type Format string

const (
	FormatPNG  Format = "PNG"
	FormatJPEG Format = "JPEG"
)

// ResizeMode controls how the composited image is scaled on export.
type ResizeMode string

const (
	ResizeOriginal ResizeMode = "original"
	ResizeByWidth  ResizeMode = "width"
	ResizeByHeight ResizeMode = "height"
	ResizeByPct    ResizeMode = "percent"
)

// FilenameRule controls how output names derive from source names.
type FilenameRule string

const (
	FilenameKeep   FilenameRule = "keep"
	FilenamePrefix FilenameRule = "prefix"
	FilenameSuffix FilenameRule = "suffix"
)

// DefaultMargin is the fixed pixel distance between an anchored watermark
// and the canvas edge.
const DefaultMargin = 10

// RGB is a color serialized as [r, g, b].
type RGB [3]int

// NRGBA returns the color with the given 0..1 opacity as its alpha.
func (c RGB) NRGBA(opacity float64) color.NRGBA {
	return color.NRGBA{
		R: uint8(clampInt(c[0], 0, 255)),
		G: uint8(clampInt(c[1], 0, 255)),
		B: uint8(clampInt(c[2], 0, 255)),
		A: alpha8(opacity),
	}
}

// Settings is the flat, serializable watermark and export configuration.
// Render and export calls take it by value and never modify it.
type Settings struct {
	Mode Mode `json:"mode" yaml:"mode" validate:"oneof=text image"`

	Text           string `json:"text" yaml:"text"`
	FontFile       string `json:"font_file,omitempty" yaml:"font_file,omitempty"`
	FontFamily     string `json:"font_family" yaml:"font_family"`
	FontSize       int    `json:"font_size" yaml:"font_size" validate:"gt=0"`
	ReferenceWidth int    `json:"reference_width,omitempty" yaml:"reference_width,omitempty" validate:"gte=0"`
	Bold           bool   `json:"bold" yaml:"bold"`
	Italic         bool   `json:"italic" yaml:"italic"`
	Color          RGB    `json:"color" yaml:"color" validate:"dive,min=0,max=255"`

	Opacity float64 `json:"opacity" yaml:"opacity"`

	Shadow       bool   `json:"shadow" yaml:"shadow"`
	ShadowOffset [2]int `json:"shadow_offset" yaml:"shadow_offset"`
	ShadowColor  RGB    `json:"shadow_color" yaml:"shadow_color" validate:"dive,min=0,max=255"`

	Outline      bool `json:"outline" yaml:"outline"`
	OutlineWidth int  `json:"outline_width" yaml:"outline_width" validate:"gte=0"`
	OutlineColor RGB  `json:"outline_color" yaml:"outline_color" validate:"dive,min=0,max=255"`

	ImagePath        string  `json:"image_path,omitempty" yaml:"image_path,omitempty"`
	ImageScale       float64 `json:"image_scale" yaml:"image_scale" validate:"gte=0"`
	ImageScaleFixed  [2]int  `json:"image_scale_fixed" yaml:"image_scale_fixed" validate:"dive,gt=0"`
	UseRelativeScale bool    `json:"use_relative_scale" yaml:"use_relative_scale"`

	Anchor   Anchor     `json:"anchor,omitempty" yaml:"anchor,omitempty"`
	Position [2]float64 `json:"position" yaml:"position"`
	Margin   int        `json:"margin" yaml:"margin" validate:"gte=0"`
	Rotation float64    `json:"rotation" yaml:"rotation"`

	OutFormat           Format       `json:"out_format" yaml:"out_format" validate:"oneof=PNG JPEG"`
	JPEGQuality         int          `json:"jpeg_quality" yaml:"jpeg_quality" validate:"min=1,max=100"`
	JPEGBackground      RGB          `json:"jpeg_background" yaml:"jpeg_background" validate:"dive,min=0,max=255"`
	ResizeMode          ResizeMode   `json:"resize_mode" yaml:"resize_mode" validate:"oneof=original width height percent"`
	ResizeValue         int          `json:"resize_value" yaml:"resize_value" validate:"gt=0"`
	FilenameRule        FilenameRule `json:"filename_rule" yaml:"filename_rule" validate:"oneof=keep prefix suffix"`
	FilenameAffix       string       `json:"filename_affix" yaml:"filename_affix"`
	AllowExportToSource bool         `json:"allow_export_to_source" yaml:"allow_export_to_source"`
}

// DefaultSettings returns the settings a fresh session starts from.
func DefaultSettings() Settings {
	return Settings{
		Mode:             ModeText,
		Text:             "Watermark",
		FontFamily:       "Arial",
		FontSize:         48,
		Color:            RGB{255, 255, 255},
		Opacity:          0.5,
		ShadowOffset:     [2]int{2, 2},
		ShadowColor:      RGB{0, 0, 0},
		OutlineWidth:     2,
		OutlineColor:     RGB{0, 0, 0},
		ImageScale:       0.25,
		ImageScaleFixed:  [2]int{100, 100},
		UseRelativeScale: true,
		Position:         [2]float64{0.5, 0.5},
		Margin:           DefaultMargin,
		OutFormat:        FormatPNG,
		JPEGQuality:      90,
		JPEGBackground:   RGB{255, 255, 255},
		ResizeMode:       ResizeOriginal,
		ResizeValue:      100,
		FilenameRule:     FilenameKeep,
		FilenameAffix:    "wm_",
	}
}

// ClampedOpacity returns Opacity limited to [0,1]. NaN counts as 0.
func (s Settings) ClampedOpacity() float64 {
	return clampUnit(s.Opacity)
}

// Placement returns the anchor if a valid one is set, otherwise the
// normalized position.
func (s Settings) Placement() Placement {
	if s.Anchor != "" {
		if a, err := ParseAnchor(string(s.Anchor)); err == nil {
			return AnchorPlacement(a)
		}
	}
	return NormalizedPlacement(s.Position[0], s.Position[1])
}

// Extension returns the file extension implied by OutFormat.
func (s Settings) Extension() string {
	if s.OutFormat == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

// CanonicalRotation reduces degrees to [0,360) so that θ and θ+360 are equal.
func CanonicalRotation(deg float64) float64 {
	if math.IsNaN(deg) || math.IsInf(deg, 0) {
		return 0
	}
	a := math.Mod(deg, 360)
	if a < 0 {
		a += 360
	}
	// values within the tolerance of a full turn count as no rotation
	if a < rotationTolerance || 360-a < rotationTolerance {
		return 0
	}
	return a
}

const rotationTolerance = 0.01

func alpha8(opacity float64) uint8 {
	return uint8(math.Round(255 * clampUnit(opacity)))
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
