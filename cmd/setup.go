package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/vidx/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file when missing and initializes the database.
//
// A --base-url given on the command line is written into the config.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = shared.ConfigPath("")
	}

	if _, err := os.Stat(path); err != nil {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		r.writePlain("✓ Created config %s\n", path)
	} else {
		r.writePlain("Config %s already exists\n", path)
	}

	if cmd.IsSet("base-url") {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return err
		}
		config.API.BaseURL = cmd.String("base-url")
		if err := shared.SaveConfig(path, config); err != nil {
			return err
		}
		r.config.API.BaseURL = config.API.BaseURL
		r.writePlain("✓ Backend set to %s\n", config.API.BaseURL)
	}

	r.logger.Info("initializing database", "path", r.config.Store.Path)
	if err := r.connect(ctx); err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", r.config.Store.Path)
	return r.writePlain("✓ Database ready at %s\n", r.config.Store.Path)
}
