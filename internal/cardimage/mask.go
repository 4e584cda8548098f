package cardimage

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

const DefaultMaskTolerance = 15

// ParseHexColor accepts #RRGGBB, RRGGBB and the #RGB shorthand.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
}

// GenerateMask marks every pixel whose nearest target color lies within
// tolerancePercent of 255 (Euclidean RGB distance, inclusive) as opaque black
// and leaves the rest fully transparent. No targets means no mask.
func GenerateMask(src image.Image, targets []color.NRGBA, tolerancePercent float64) *image.NRGBA {
	if src == nil || len(targets) == 0 {
		return nil
	}

	pixels := imaging.Clone(src)
	threshold := tolerancePercent / 100 * 255
	mask := image.NewNRGBA(pixels.Bounds())

	for i := 0; i+3 < len(pixels.Pix); i += 4 {
		r := float64(pixels.Pix[i])
		g := float64(pixels.Pix[i+1])
		b := float64(pixels.Pix[i+2])

		nearest := math.MaxFloat64
		for _, t := range targets {
			dr, dg, db := r-float64(t.R), g-float64(t.G), b-float64(t.B)
			if d := math.Sqrt(dr*dr + dg*dg + db*db); d < nearest {
				nearest = d
			}
		}
		if nearest <= threshold {
			mask.Pix[i+3] = 255
		}
	}
	return mask
}

// GenerateMaskDataURL builds a PNG mask from an encoded raster. It returns ""
// when there are no usable colors or the source cannot be decoded.
func GenerateMaskDataURL(src string, hexColors []string, tolerancePercent float64) string {
	targets := make([]color.NRGBA, 0, len(hexColors))
	for _, h := range hexColors {
		if c, err := ParseHexColor(h); err == nil {
			targets = append(targets, c)
		}
	}
	if len(targets) == 0 {
		return ""
	}

	img, err := DecodeDataURL(src)
	if err != nil {
		return ""
	}
	out, err := EncodePNGDataURL(GenerateMask(img, targets, tolerancePercent))
	if err != nil {
		return ""
	}
	return out
}
