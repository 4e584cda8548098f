package main

import (
	"os"

	"github.com/urfave/cli/v2"

	"cardprint-backend/internal/logger"
)

func main() {
	app := &cli.App{
		Name:  "cardctl",
		Usage: "prepare, price and submit trading card print orders",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Commands: []*cli.Command{
			bleedCommand(),
			maskCommand(),
			quoteCommand(),
			importCommand(),
			exportCommand(),
			submitCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log := logger.New("info", "development")
		log.Fatal().Err(err).Msg("cardctl failed")
	}
}
