package watermark

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"strings"
)

// ParseColor accepts "r,g,b", "#rgb" or "#rrggbb".
func ParseColor(s string) (RGB, error) {
	str := strings.TrimSpace(s)
	if str == "" {
		return RGB{}, errors.New("color must not be empty")
	}
	if strings.Contains(str, ",") {
		return parseTriplet(str)
	}

	str = strings.TrimPrefix(str, "#")
	switch len(str) {
	case 3:
		str = fmt.Sprintf("%c%c%c%c%c%c", str[0], str[0], str[1], str[1], str[2], str[2])
	case 6:
	default:
		return RGB{}, fmt.Errorf("invalid color format: %q", s)
	}
	var c RGB
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseUint(str[2*i:2*i+2], 16, 8)
		if err != nil {
			return RGB{}, fmt.Errorf("invalid color format: %q", s)
		}
		c[i] = int(v)
	}
	return c, nil
}

func parseTriplet(raw string) (RGB, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return RGB{}, errors.New("expected format r,g,b")
	}
	var c RGB
	for i := 0; i < 3; i++ {
		p := strings.TrimSpace(parts[i])
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 || v > 255 {
			return RGB{}, fmt.Errorf("invalid channel: %q", p)
		}
		c[i] = v
	}
	return c, nil
}

// OpaqueBounds returns the smallest rectangle holding every pixel with a
// non-zero alpha. ok is false for a fully transparent image.
func OpaqueBounds(img *image.NRGBA) (r image.Rectangle, ok bool) {
	b := img.Bounds()
	minX, minY := b.Max.X, b.Max.Y
	maxX, maxY := b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A == 0 {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
			ok = true
		}
	}
	if !ok {
		return image.Rectangle{}, false
	}
	return image.Rect(minX, minY, maxX+1, maxY+1), true
}
