// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func idFlag(usage string) cli.Flag {
	return &cli.StringFlag{Name: "id", Usage: usage}
}

func countFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "count",
		Aliases: []string{"n"},
		Usage:   "Number of songs to ask for (default: generator.song_count)",
	}
}

func formatFlag(value string) cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: text, markdown, csv, json, yaml",
		Value:   value,
	}
}

func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing, initialize the database and run migrations",
		Action: r.Setup,
	}
}

func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Connect your Spotify account (OAuth2 in the browser)",
		Action: r.Auth,
	}
}

func createCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "create",
		Aliases:   []string{"new"},
		Usage:     "Generate a playlist from a mood prompt and save it to Spotify",
		ArgsUsage: "<prompt>",
		Flags:     []cli.Flag{countFlag()},
		Action:    r.Create,
	}
}

func regenerateCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "regenerate",
		Aliases:   []string{"regen"},
		Usage:     "Replace the tracks of a playlist with a new generation",
		ArgsUsage: "<prompt>",
		Flags:     []cli.Flag{idFlag("Playlist to regenerate (default: selected)"), countFlag()},
		Action:    r.Regenerate,
	}
}

func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sync",
		Usage:  "Push a stored playlist to Spotify again",
		Flags:  []cli.Flag{idFlag("Playlist to sync (default: selected)")},
		Action: r.Sync,
	}
}

func deleteCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "delete",
		Aliases: []string{"rm"},
		Usage:   "Delete a stored playlist (the Spotify copy is kept)",
		Flags:   []cli.Flag{idFlag("Playlist to delete (default: selected)")},
		Action:  r.Delete,
	}
}

func listCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List generated playlists, newest first",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
		},
		Action: r.List,
	}
}

func showCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "show",
		Usage: "Print a playlist",
		Flags: []cli.Flag{
			idFlag("Playlist to show (default: selected)"),
			formatFlag("text"),
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Write to a file instead of stdout"},
			&cli.BoolFlag{Name: "cover", Usage: "Download album artwork next to Markdown output"},
		},
		Action: r.Show,
	}
}

func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export stored playlists to a directory with a manifest",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "id", Usage: "Playlists to export (default: all)"},
			formatFlag("json"),
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Usage: "Output directory (default: moodmix_export_{epoch})"},
			&cli.IntFlag{Name: "workers", Usage: "Concurrent workers", Value: 4},
			&cli.BoolFlag{Name: "cover", Usage: "Download album artwork for Markdown exports"},
		},
		Action: r.Export,
	}
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Play a track of a playlist on your active Spotify device",
		Flags: []cli.Flag{
			idFlag("Playlist to play (default: selected)"),
			&cli.IntFlag{Name: "track", Aliases: []string{"t"}, Usage: "Track number", Value: 1},
		},
		Action: r.Play,
	}
}

func pauseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "pause",
		Usage:  "Pause playback",
		Action: r.Pause,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Browse, generate and play playlists interactively",
		Action: r.TUI,
	}
}
