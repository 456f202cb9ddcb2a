package favicon

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// ParseColor accepts a color name ("navy"), a hex string ("#fff",
// "#ffcc00", "#ffcc0080"), a gray level (0-255) or a 3/4 element channel
// array, in the shapes a TOML decoder produces.
func ParseColor(v any) (color.NRGBA, error) {
	switch c := v.(type) {
	case string:
		return parseColorString(c)
	case int64:
		g, err := channel(c)
		if err != nil {
			return color.NRGBA{}, err
		}
		return color.NRGBA{R: g, G: g, B: g, A: 0xff}, nil
	case []any:
		return parseColorTuple(c)
	}
	return color.NRGBA{}, fmt.Errorf("unsupported color value %v", v)
}

func parseColorString(s string) (color.NRGBA, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(s, "#") {
		named, ok := colornames.Map[s]
		if !ok {
			return color.NRGBA{}, fmt.Errorf("unknown color name %q", s)
		}
		return color.NRGBA{R: named.R, G: named.G, B: named.B, A: named.A}, nil
	}

	var rgb, alpha string
	switch len(s) {
	case 4, 7:
		rgb = s
	case 5:
		rgb, alpha = s[:4], strings.Repeat(s[4:], 2)
	case 9:
		rgb, alpha = s[:7], s[7:]
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}

	parsed, err := colorful.Hex(rgb)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	r, g, b := parsed.RGB255()

	a := uint64(0xff)
	if alpha != "" {
		if a, err = strconv.ParseUint(alpha, 16, 8); err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
		}
	}
	return color.NRGBA{R: r, G: g, B: b, A: uint8(a)}, nil
}

func parseColorTuple(values []any) (color.NRGBA, error) {
	if len(values) != 3 && len(values) != 4 {
		return color.NRGBA{}, fmt.Errorf("color tuple needs 3 or 4 channels, got %d", len(values))
	}

	ch := [4]uint8{0, 0, 0, 0xff}
	for i, v := range values {
		n, ok := v.(int64)
		if !ok {
			return color.NRGBA{}, fmt.Errorf("color channel %d is not an integer", i)
		}
		c, err := channel(n)
		if err != nil {
			return color.NRGBA{}, err
		}
		ch[i] = c
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: ch[3]}, nil
}

func channel(n int64) (uint8, error) {
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("color channel %d out of range 0-255", n)
	}
	return uint8(n), nil
}
