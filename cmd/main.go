package main

import (
	"context"
	"errors"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/repositories"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

const tuiLogFile = "./tmp/moodmix-tui.log"

func main() {
	runner := NewRunner(RunnerOpts{})

	app := &cli.Command{
		Name:    "moodmix",
		Usage:   "Turn a mood into a Spotify playlist",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("MOODMIX_CONFIG"),
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			opts, err := buildRunnerOpts(ctx, cmd.String("config"), cmd.Args().First() == "tui")
			if err != nil {
				return ctx, err
			}
			runner.configure(opts)
			return ctx, nil
		},
		After: func(ctx context.Context, cmd *cli.Command) error {
			return runner.Close()
		},
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		runner.logger.Fatalf("application error: %v", err)
	}
}

// loadConfig reads path, falling back to defaults when it does not exist, then applies .env and the environment.
func loadConfig(path string) (*shared.Config, error) {
	config, err := shared.LoadConfig(path)
	switch {
	case errors.Is(err, shared.ErrMissingConfig):
		config = shared.DefaultConfig()
	case err != nil:
		return nil, err
	}

	if err := config.ApplyEnv(".env"); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func newLogger(config *shared.Config, forceFile bool) (*log.Logger, error) {
	path := config.Log.File
	if forceFile && path == "" {
		path = tuiLogFile
	}

	logger := shared.NewLogger(nil)
	if path != "" {
		var err error
		if logger, err = shared.NewFileLogger(path); err != nil {
			return nil, err
		}
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))
	return logger, nil
}

// buildRunnerOpts wires the services described by the config file.
//
// Missing credentials leave the matching service nil; commands that need it report what to configure.
func buildRunnerOpts(ctx context.Context, configPath string, tui bool) (RunnerOpts, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return RunnerOpts{}, err
	}

	logger, err := newLogger(config, tui)
	if err != nil {
		return RunnerOpts{}, err
	}

	opts := RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
		Store:      repositories.NewStore(config.Database, logger),
	}

	spotifyService, err := services.NewSpotifyService(config.Credentials.Spotify,
		services.WithSearchRate(config.Spotify.SearchRate),
		services.WithSpotifyLogger(logger),
	)
	if err != nil {
		logger.Debug("spotify disabled", "error", err)
	} else {
		if tok := config.Credentials.Spotify.Token(); tok != nil {
			if err := spotifyService.Authenticate(ctx, tok); err != nil {
				logger.Warn("saved spotify session rejected", "error", err)
			}
		}
		opts.Spotify = spotifyService
		opts.Player = services.NewSpotifyPlayer(spotifyService)
	}

	if generator, err := services.NewOpenAIGenerator(config.Credentials.OpenAI, config.Generator.SongCount, logger); err != nil {
		logger.Debug("generator disabled", "error", err)
	} else {
		opts.Generator = generator
	}

	return opts, nil
}
