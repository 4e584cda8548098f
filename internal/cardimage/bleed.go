package cardimage

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// Print geometry at 300 DPI: a 63mm x 88mm card.
const (
	DPI        = 300
	BaseWidth  = 750
	BaseHeight = 1050
	mmPerInch  = 25.4

	// MaxOutputPixels bounds every raster Synthesize allocates.
	MaxOutputPixels = 16 << 20
)

// Params controls bleed synthesis. A positive BleedMM extends the card
// outward, a negative one crops excess bleed away.
type Params struct {
	TrimMM   float64 `json:"trimMm"`
	BleedMM  float64 `json:"bleedMm"`
	HasBleed bool    `json:"hasBleed"`
}

func MMToPx(mm float64) int {
	return int(math.Floor(mm * DPI / mmPerInch))
}

// Synthesize maps src onto the fixed print raster. It returns nil when src
// is nil or when the bleed geometry would exceed MaxOutputPixels.
func Synthesize(src image.Image, p Params) *image.NRGBA {
	if src == nil {
		return nil
	}
	if !p.HasBleed || p.BleedMM == 0 {
		return resample(src, BaseWidth, BaseHeight)
	}
	if !withinBudget(p.BleedMM) {
		return nil
	}
	if p.BleedMM < 0 {
		return cropBleed(src, -MMToPx(p.BleedMM))
	}
	return extendBleed(src, MMToPx(p.TrimMM), MMToPx(p.BleedMM))
}

// withinBudget reports whether a margin of bleedMM on every side keeps the
// working raster under MaxOutputPixels. NaN and infinities fail.
func withinBudget(bleedMM float64) bool {
	margin := math.Ceil(math.Abs(bleedMM) * DPI / mmPerInch)
	w, h := BaseWidth+2*margin, BaseHeight+2*margin
	return w*h <= MaxOutputPixels
}

// SynthesizeDataURL runs Synthesize over an encoded raster and returns a PNG
// data URL, or "" when the source cannot be decoded.
func SynthesizeDataURL(src string, p Params) string {
	img, err := DecodeDataURL(src)
	if err != nil {
		return ""
	}
	card := Synthesize(img, p)
	if card == nil {
		return ""
	}
	out, err := EncodePNGDataURL(card)
	if err != nil {
		return ""
	}
	return out
}

// BlankCard is the substitute raster for a missing or undecodable image.
func BlankCard() *image.NRGBA {
	return imaging.New(BaseWidth, BaseHeight, color.White)
}

func resample(src image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(src, width, height, imaging.CatmullRom)
}

func cropBleed(src image.Image, cropPx int) *image.NRGBA {
	if cropPx <= 0 {
		return resample(src, BaseWidth, BaseHeight)
	}
	enlarged := resample(src, BaseWidth+2*cropPx, BaseHeight+2*cropPx)
	return imaging.Crop(enlarged, image.Rect(cropPx, cropPx, cropPx+BaseWidth, cropPx+BaseHeight))
}

func extendBleed(src image.Image, trimPx, bleedPx int) *image.NRGBA {
	card := resample(src, BaseWidth, BaseHeight)
	if bleedPx <= 0 {
		return card
	}
	trimPx = clampTrim(trimPx)

	width, height := BaseWidth+2*bleedPx, BaseHeight+2*bleedPx
	canvas := imaging.Paste(imaging.New(width, height, color.Transparent), card, image.Pt(bleedPx, bleedPx))
	cardRect := image.Rect(bleedPx, bleedPx, bleedPx+BaseWidth, bleedPx+BaseHeight)

	// corners
	depth := bleedPx + trimPx
	right, bottom := BaseWidth-trimPx-1, BaseHeight-trimPx-1
	fillMargin(canvas, image.Rect(0, 0, depth, depth), cardRect, card.NRGBAAt(trimPx, trimPx))
	fillMargin(canvas, image.Rect(width-depth, 0, width, depth), cardRect, card.NRGBAAt(right, trimPx))
	fillMargin(canvas, image.Rect(0, height-depth, depth, height), cardRect, card.NRGBAAt(trimPx, bottom))
	fillMargin(canvas, image.Rect(width-depth, height-depth, width, height), cardRect, card.NRGBAAt(right, bottom))

	// edges: the outermost card row/column between the trim offsets, stretched outward
	stretch := func(dr, sr image.Rectangle) {
		if dr.Empty() || sr.Empty() {
			return
		}
		draw.NearestNeighbor.Scale(canvas, dr, card, sr, draw.Src, nil)
	}
	stretch(
		image.Rect(bleedPx+trimPx, 0, bleedPx+BaseWidth-trimPx, bleedPx),
		image.Rect(trimPx, 0, BaseWidth-trimPx, 1),
	)
	stretch(
		image.Rect(bleedPx+trimPx, bleedPx+BaseHeight, bleedPx+BaseWidth-trimPx, height),
		image.Rect(trimPx, BaseHeight-1, BaseWidth-trimPx, BaseHeight),
	)
	stretch(
		image.Rect(0, bleedPx+trimPx, bleedPx, bleedPx+BaseHeight-trimPx),
		image.Rect(0, trimPx, 1, BaseHeight-trimPx),
	)
	stretch(
		image.Rect(bleedPx+BaseWidth, bleedPx+trimPx, width, bleedPx+BaseHeight-trimPx),
		image.Rect(BaseWidth-1, trimPx, BaseWidth, BaseHeight-trimPx),
	)

	return canvas
}

// fillMargin paints the part of square that lies outside the card area.
func fillMargin(canvas *image.NRGBA, square, cardRect image.Rectangle, c color.NRGBA) {
	square = square.Intersect(canvas.Bounds())
	for y := square.Min.Y; y < square.Max.Y; y++ {
		for x := square.Min.X; x < square.Max.X; x++ {
			if image.Pt(x, y).In(cardRect) {
				continue
			}
			canvas.SetNRGBA(x, y, c)
		}
	}
}

func clampTrim(trimPx int) int {
	if trimPx < 0 {
		return 0
	}
	if limit := BaseWidth/2 - 1; trimPx > limit {
		return limit
	}
	return trimPx
}
