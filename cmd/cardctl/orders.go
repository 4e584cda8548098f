package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"cardprint-backend/internal/catalog"
	"cardprint-backend/internal/deck"
	"cardprint-backend/internal/export"
	"cardprint-backend/internal/importer"
	"cardprint-backend/internal/logger"
	"cardprint-backend/internal/models"
	"cardprint-backend/internal/orchestrator"
	"cardprint-backend/internal/services"
)

func quoteCommand() *cli.Command {
	return &cli.Command{
		Name:  "quote",
		Usage: "price a deck for a destination country",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "deck", Aliases: []string{"d"}, Required: true, Usage: "deck JSON file"},
			&cli.StringFlag{Name: "country", Value: "US", Usage: "ISO country code"},
		},
		Action: func(c *cli.Context) error {
			df, err := readDeckFile(c.String("deck"))
			if err != nil {
				return err
			}
			d, err := df.load()
			if err != nil {
				return err
			}
			country := deck.NormalizeCountry(c.String("country"))
			if !deck.IsAllowedCountry(country) {
				return fmt.Errorf("shipping not available to %s", country)
			}
			return writeJSON(c.App.Writer, d.Quote(country))
		},
	}
}

func importCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "build a deck from a decklist or a print-order XML file",
		Subcommands: []*cli.Command{
			{
				Name:  "decklist",
				Usage: "resolve decklist lines against the card catalog",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "decklist text file"},
					&cli.StringFlag{Name: "catalog", Value: "https://api.scryfall.com/", EnvVars: []string{"CATALOG_API_BASE_URL"}, Usage: "catalog API base URL"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "deck JSON output, stdout when empty"},
				},
				Action: func(c *cli.Context) error {
					text, err := os.ReadFile(c.String("file"))
					if err != nil {
						return fmt.Errorf("failed to read decklist: %w", err)
					}
					res, err := importer.ImportDecklist(c.Context, catalog.NewClient(c.String("catalog")), string(text))
					if err != nil {
						return err
					}
					for _, f := range res.Failed {
						fmt.Fprintf(c.App.ErrWriter, "not found: %s\n", f.Line)
					}

					d := deck.New()
					for _, card := range res.Cards {
						if _, err := d.AddCard(card); err != nil {
							return err
						}
					}
					return writeDeck(c.String("out"), d)
				},
			},
			{
				Name:  "xml",
				Usage: "read a print-order XML file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "order XML file"},
					&cli.StringFlag{Name: "onto", Usage: "existing deck to receive the file's backs by slot"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "deck JSON output, stdout when empty"},
				},
				Action: func(c *cli.Context) error {
					f, err := os.Open(c.String("file"))
					if err != nil {
						return err
					}
					defer f.Close()

					order, err := importer.ParseOrderXML(f)
					if err != nil {
						return err
					}

					if path := c.String("onto"); path != "" {
						df, err := readDeckFile(path)
						if err != nil {
							return err
						}
						d, err := df.load()
						if err != nil {
							return err
						}
						changed, err := importer.ApplyBacks(d, order.BackSlots)
						if err != nil {
							return err
						}
						fmt.Fprintf(c.App.ErrWriter, "applied %d backs\n", changed)
						return writeDeck(c.String("out"), d)
					}

					d := deck.New()
					for _, card := range order.Cards {
						if _, err := d.AddCard(card); err != nil {
							return err
						}
					}
					if order.Cardback != "" {
						g := deck.DefaultGlobalBack()
						g.Original = order.Cardback
						d.SetGlobalBack(g)
					}
					return writeDeck(c.String("out"), d)
				},
			},
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write the fronts, backs or masks of a deck as a zip of PNGs",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "deck", Aliases: []string{"d"}, Required: true, Usage: "deck JSON file"},
			&cli.StringFlag{Name: "side", Value: string(export.SideFronts), Usage: "fronts, backs or masks"},
			&cli.StringFlag{Name: "dir", Value: ".", Usage: "output directory"},
		},
		Action: func(c *cli.Context) error {
			side, err := export.ParseSide(c.String("side"))
			if err != nil {
				return err
			}
			df, err := readDeckFile(c.String("deck"))
			if err != nil {
				return err
			}
			d, err := df.load()
			if err != nil {
				return err
			}

			path := strings.TrimSuffix(c.String("dir"), "/") + "/" + export.FileName(side)
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()

			n, err := export.WriteZip(c.Context, f, side, d.Cards(), d.GlobalBack(), export.NewHTTPFetcher())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.ErrWriter, "wrote %d images to %s\n", n, path)
			return nil
		},
	}
}

func submitCommand() *cli.Command {
	return &cli.Command{
		Name:  "submit",
		Usage: "upload a deck and open a checkout session",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "deck", Aliases: []string{"d"}, Required: true, Usage: "deck JSON file"},
			&cli.StringFlag{Name: "address", Aliases: []string{"a"}, Required: true, Usage: "shipping address JSON file"},
			&cli.StringFlag{Name: "api", Value: "http://localhost:8080", EnvVars: []string{"CARDPRINT_API_URL"}, Usage: "backend base URL"},
			&cli.StringFlag{Name: "origin", Value: "http://localhost:3000", EnvVars: []string{"PUBLIC_ORIGIN"}, Usage: "storefront origin for redirect URLs"},
			&cli.StringFlag{Name: "receipt", Usage: "write the created order to this JSON file"},
			&cli.IntFlag{Name: "compress-concurrency", Value: 3},
			&cli.IntFlag{Name: "upload-concurrency", Value: 4},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Minute},
		},
		Action: func(c *cli.Context) error {
			log := logger.New(c.String("log-level"), "development")

			df, err := readDeckFile(c.String("deck"))
			if err != nil {
				return err
			}
			d, err := df.load()
			if err != nil {
				return err
			}

			var address models.ShippingAddress
			if err := readJSONFile(c.String("address"), &address); err != nil {
				return err
			}
			if _, err := services.ValidateShippingAddress(&address); err != nil {
				return err
			}

			cfg := orchestrator.DefaultConfig()
			cfg.CompressConcurrency = c.Int("compress-concurrency")
			cfg.UploadConcurrency = c.Int("upload-concurrency")

			client := orchestrator.NewAPIClient(c.String("api"), c.String("origin"))
			opts := []orchestrator.Option{
				orchestrator.WithLogger(log),
				orchestrator.WithObserver(func(p orchestrator.Progress) {
					fmt.Fprintf(c.App.ErrWriter, "[%s] %s\n", p.State, p.Text)
				}),
			}
			if path := c.String("receipt"); path != "" {
				opts = append(opts, orchestrator.WithRecorder(receiptWriter{path: path}))
			}

			ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
			defer cancel()

			res, err := orchestrator.New(client, client, cfg, opts...).Run(ctx, orchestrator.Submission{
				Cards:      d.Cards(),
				GlobalBack: d.GlobalBack(),
				Address:    address,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, res.URL)
			return nil
		},
	}
}

// receiptWriter records created checkouts on disk.
type receiptWriter struct {
	path string
}

func (r receiptWriter) RecordOrder(_ context.Context, res *orchestrator.Result) error {
	f, err := os.Create(r.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return writeJSON(f, res)
}

func writeDeck(path string, d *deck.Deck) error {
	w, err := output(path)
	if err != nil {
		return err
	}
	defer w.Close()
	return writeJSON(w, deckFileFrom(d))
}
