package deck

import (
	"strings"

	"cardprint-backend/internal/cardimage"
)

type Finish string

const (
	FinishStandard      Finish = "standard"
	FinishRainbow       Finish = "rainbow"
	FinishGloss         Finish = "gloss"
	FinishSilver        Finish = "silver"
	FinishSilverRainbow Finish = "silver-rainbow"
	FinishSilverGloss   Finish = "silver-gloss"
)

var finishes = map[Finish]bool{
	FinishStandard:      true,
	FinishRainbow:       true,
	FinishGloss:         true,
	FinishSilver:        true,
	FinishSilverRainbow: true,
	FinishSilverGloss:   true,
}

func (f Finish) Valid() bool {
	return finishes[f]
}

// HasSilver reports whether the finish carries a spot silver layer and
// therefore may have a mask.
func (f Finish) HasSilver() bool {
	return strings.Contains(string(f), "silver")
}

func (f Finish) IsStandard() bool {
	return f == "" || f == FinishStandard
}

// Default editing parameters for newly added cards.
const (
	DefaultTrimMM      = 2.5
	DefaultBleedMM     = 1.9
	DefaultBackTrimMM  = 2.5
	DefaultBackBleedMM = 1.75
	defaultQuantity    = 1
)

// Card is one design unit. Raster fields hold data URLs or http(s) URLs;
// an empty string means no image.
type Card struct {
	ID               string   `json:"id"`
	OriginalFront    string   `json:"originalFront,omitempty"`
	Front            string   `json:"front,omitempty"`
	OriginalBack     string   `json:"originalBack,omitempty"`
	Back             string   `json:"back,omitempty"`
	TrimMM           float64  `json:"trimMm"`
	BleedMM          float64  `json:"bleedMm"`
	HasBleed         bool     `json:"hasBleed"`
	Finish           Finish   `json:"finish"`
	Quantity         int      `json:"quantity"`
	PrintsURI        string   `json:"printsUri,omitempty"`
	SilverMask       string   `json:"silverMask,omitempty"`
	MaskingColors    []string `json:"maskingColors,omitempty"`
	MaskingTolerance int      `json:"maskingTolerance,omitempty"`
	FrontURL         string   `json:"frontUrl,omitempty"`
	BackURL          string   `json:"backUrl,omitempty"`
}

func (c Card) Params() cardimage.Params {
	return cardimage.Params{TrimMM: c.TrimMM, BleedMM: c.BleedMM, HasBleed: c.HasBleed}
}

// FrontImage is the processed front, falling back to the original upload.
func (c Card) FrontImage() string {
	if c.Front != "" {
		return c.Front
	}
	return c.OriginalFront
}

func (c Card) clone() Card {
	if c.MaskingColors != nil {
		c.MaskingColors = append([]string(nil), c.MaskingColors...)
	}
	return c
}

// GlobalBack is the shared back applied to any card without its own.
type GlobalBack struct {
	Original  string  `json:"original,omitempty"`
	Processed string  `json:"processed,omitempty"`
	TrimMM    float64 `json:"trimMm"`
	BleedMM   float64 `json:"bleedMm"`
	HasBleed  bool    `json:"hasBleed"`
}

func DefaultGlobalBack() GlobalBack {
	return GlobalBack{TrimMM: DefaultBackTrimMM, BleedMM: DefaultBackBleedMM}
}

func (g GlobalBack) Params() cardimage.Params {
	return cardimage.Params{TrimMM: g.TrimMM, BleedMM: g.BleedMM, HasBleed: g.HasBleed}
}

func (g GlobalBack) Image() string {
	if g.Processed != "" {
		return g.Processed
	}
	return g.Original
}

// BackFor resolves the back raster of c: its own back, its original back,
// then the global back.
func BackFor(c Card, g GlobalBack) string {
	switch {
	case c.Back != "":
		return c.Back
	case c.OriginalBack != "":
		return c.OriginalBack
	default:
		return g.Image()
	}
}
