package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file if it is missing, then opens the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = cmd.String("config")
	}

	config := r.config
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return fmt.Errorf("failed to create config file: %w", err)
		}
		if config, err = shared.LoadConfig(configPath); err != nil {
			return err
		}
		if err := config.ApplyEnv(".env"); err != nil {
			r.logger.Warn("failed to apply environment", "error", err)
		}
		r.writePlain("✓ Created %s\n", configPath)
	}

	r.logger.Info("initializing database", "path", config.Database.Path)
	db, err := shared.OpenDatabase(ctx, config.Database)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}
	defer db.Close()

	r.writePlain("✓ Database ready at %s\n", config.Database.Path)
	if config.Credentials.Spotify.Token() == nil {
		r.writePlainln("Next steps:")
		r.writePlain("1. Fill in credentials in %s (or .env)\n", configPath)
		r.writePlain("2. Run 'moodmix auth' to connect your Spotify account\n")
	}
	return nil
}
