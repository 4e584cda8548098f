package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/urfave/cli/v2"

	"cardprint-backend/internal/cardimage"
	"cardprint-backend/internal/deck"
)

func bleedCommand() *cli.Command {
	return &cli.Command{
		Name:  "bleed",
		Usage: "resample an image to the print canvas and add or crop bleed",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true, Usage: "source image"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "destination PNG"},
			&cli.Float64Flag{Name: "trim", Value: deck.DefaultTrimMM, Usage: "trim in mm"},
			&cli.Float64Flag{Name: "bleed", Value: deck.DefaultBleedMM, Usage: "bleed in mm"},
			&cli.BoolFlag{Name: "has-bleed", Usage: "source already carries bleed and is cropped instead"},
		},
		Action: func(c *cli.Context) error {
			src, err := readImageDataURL(c.String("in"))
			if err != nil {
				return err
			}
			out := cardimage.SynthesizeDataURL(src, cardimage.Params{
				TrimMM:   c.Float64("trim"),
				BleedMM:  c.Float64("bleed"),
				HasBleed: c.Bool("has-bleed"),
			})
			return writeDataURL(c.String("out"), out)
		},
	}
}

func maskCommand() *cli.Command {
	return &cli.Command{
		Name:  "mask",
		Usage: "generate a spot-finish mask from colors",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "in", Aliases: []string{"i"}, Required: true, Usage: "source image"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Required: true, Usage: "destination PNG"},
			&cli.StringSliceFlag{Name: "color", Aliases: []string{"c"}, Required: true, Usage: "hex color to mark, repeatable"},
			&cli.Float64Flag{Name: "tolerance", Value: cardimage.DefaultMaskTolerance, Usage: "color tolerance in percent"},
		},
		Action: func(c *cli.Context) error {
			src, err := readImageDataURL(c.String("in"))
			if err != nil {
				return err
			}
			out := cardimage.GenerateMaskDataURL(src, c.StringSlice("color"), c.Float64("tolerance"))
			return writeDataURL(c.String("out"), out)
		},
	}
}

func readImageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	return cardimage.EncodeDataURL(http.DetectContentType(data), data), nil
}

func writeDataURL(path, dataURL string) error {
	if dataURL == "" {
		return fmt.Errorf("image could not be processed")
	}
	_, data, err := cardimage.ParseDataURL(dataURL)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
