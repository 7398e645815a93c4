package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/vidx/internal/shared"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

func main() {
	logger := shared.NewLogger(nil)
	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "vidx",
		Usage:    "Video sharing client: sign in, browse, upload",
		Version:  version,
		Flags:    globalFlags(),
		Before:   runner.Before,
		After:    runner.After,
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		if !errors.Is(err, errReported) {
			logger.Errorf("application error: %v", err)
		}
		os.Exit(1)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file (default: $VIDX_CONFIG or ~/.vidx/config.toml)",
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Override api.base_url",
			Sources: cli.EnvVars("VIDX_BASE_URL"),
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Enable debug logging",
		},
	}
}
