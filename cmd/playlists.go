package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/tasks"
	"github.com/urfave/cli/v3"
)

// operation is one pipeline call, replayable after re-authorization.
type operation func(progress chan<- tasks.ProgressUpdate) tasks.Result

// runOperation prints progress while op runs. An AuthRequired result triggers one login and one replay.
func (r *Runner) runOperation(ctx context.Context, op operation) tasks.Result {
	res := r.withProgress(op)
	if res.Status != tasks.AuthRequired {
		return res
	}

	r.writePlain("⚠ Not connected to Spotify. Starting authorization...\n")
	if err := r.login(ctx); err != nil {
		return tasks.Result{Status: tasks.AuthRequired, Err: err}
	}
	return r.withProgress(op)
}

func (r *Runner) withProgress(op operation) tasks.Result {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progress {
			switch update.Phase {
			case tasks.Generate:
				r.writePlain("✨ %s\n", update.Message)
			case tasks.Resolve:
				r.writePlain("   %s\n", update.Message)
			case tasks.Store:
				r.writePlain("💾 %s\n", update.Message)
			case tasks.Mirror:
				r.writePlain("🎧 %s\n", update.Message)
			}
		}
	}()

	res := op(progress)
	close(progress)
	<-done
	return res
}

// report prints the outcome of a pipeline result and maps it to the command's error.
func (r *Runner) report(ctx context.Context, res tasks.Result) error {
	if r.library != nil {
		r.library.Apply(ctx, res)
	}
	r.persistSession()

	switch res.Status {
	case tasks.Success:
		r.writePlainHeader("✓ " + res.Playlist.Name)
		r.printSummary(res)
		return nil
	case tasks.PartialRemoteFailure:
		r.writePlainHeader("⚠ " + res.Playlist.Name + " (saved locally)")
		r.printSummary(res)
		r.writePlain("\nSpotify update failed: %v\n", res.Err)
		r.writePlain("Run 'moodmix sync --id %s' to retry.\n", res.Playlist.ID)
		return fmt.Errorf("%s: %w", res.Status, res.Err)
	case tasks.NoSelection:
		return fmt.Errorf("%w: no playlist selected, pass --id", shared.ErrMissingArgument)
	default:
		if res.Err == nil {
			return fmt.Errorf("%s", res.Status)
		}
		return fmt.Errorf("%s: %w", res.Status, res.Err)
	}
}

func (r *Runner) printSummary(res tasks.Result) {
	p := res.Playlist
	r.writePlain("ID: %s\n", p.ID)
	r.writePlain("Tracks: %d/%d found\n", len(p.Tracks), len(p.GeneratedCandidates))
	if p.Mirrored() {
		r.writePlain("Spotify: %s\n", *p.RemoteURI)
	}
	if len(res.Unresolved) > 0 {
		r.writePlain("\nNot found on Spotify:\n")
		for _, c := range res.Unresolved {
			r.writePlain("  - %s\n", c)
		}
	}
}

func promptArg(cmd *cli.Command) (string, error) {
	prompt := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if prompt == "" {
		return "", fmt.Errorf("%w: prompt", shared.ErrMissingArgument)
	}
	return prompt, nil
}

// Create generates a new playlist from the prompt given as arguments.
func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	prompt, err := promptArg(cmd)
	if err != nil {
		return err
	}
	pipeline, err := r.pipeline(cmd.Int("count"))
	if err != nil {
		return err
	}
	if _, err := r.requireLibrary(ctx); err != nil {
		return err
	}

	r.logger.Info("creating playlist", "prompt", prompt)
	res := r.runOperation(ctx, func(progress chan<- tasks.ProgressUpdate) tasks.Result {
		return pipeline.Create(ctx, prompt, progress)
	})
	return r.report(ctx, res)
}

// target returns the playlist named by --id, or the selected one.
func (r *Runner) target(ctx context.Context, cmd *cli.Command) (*models.Playlist, error) {
	lib, err := r.requireLibrary(ctx)
	if err != nil {
		return nil, err
	}
	if id := cmd.String("id"); id != "" {
		p, err := lib.Find(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", err, id)
		}
		return p, nil
	}
	return lib.Selected(), nil
}

// Regenerate replaces the tracks of a stored playlist with a new generation.
func (r *Runner) Regenerate(ctx context.Context, cmd *cli.Command) error {
	prompt, err := promptArg(cmd)
	if err != nil {
		return err
	}
	pipeline, err := r.pipeline(cmd.Int("count"))
	if err != nil {
		return err
	}
	playlist, err := r.target(ctx, cmd)
	if err != nil {
		return err
	}

	res := r.runOperation(ctx, func(progress chan<- tasks.ProgressUpdate) tasks.Result {
		return pipeline.Regenerate(ctx, playlist, prompt, progress)
	})
	return r.report(ctx, res)
}

// Sync pushes a stored playlist to Spotify again.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	if r.store == nil {
		return fmt.Errorf("%w: playlist store not initialized", shared.ErrServiceUnavailable)
	}
	playlist, err := r.target(ctx, cmd)
	if err != nil {
		return err
	}

	pipeline := tasks.NewPipeline(nil, r.spotify, r.store, tasks.WithPipelineLogger(r.logger))
	res := r.runOperation(ctx, func(progress chan<- tasks.ProgressUpdate) tasks.Result {
		return pipeline.Sync(ctx, playlist, progress)
	})
	return r.report(ctx, res)
}

// Delete removes a stored playlist. The Spotify copy, if any, is left alone.
func (r *Runner) Delete(ctx context.Context, cmd *cli.Command) error {
	playlist, err := r.target(ctx, cmd)
	if err != nil {
		return err
	}
	if playlist == nil {
		return fmt.Errorf("%w: no playlists stored", shared.ErrPlaylistNotFound)
	}
	if err := r.library.Remove(ctx, playlist.ID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", playlist.ID, err)
	}

	r.writePlain("✓ Deleted %s (%s)\n", playlist.Name, playlist.ID)
	if sel := r.library.Selected(); sel != nil {
		r.writePlain("Selected: %s (%s)\n", sel.Name, sel.ID)
	}
	return nil
}

type listEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Tracks    int    `json:"tracks"`
	RemoteURI string `json:"remote_uri,omitempty"`
	Selected  bool   `json:"selected"`
	CreatedAt string `json:"created_at"`
}

// List prints stored playlists, newest first.
func (r *Runner) List(ctx context.Context, cmd *cli.Command) error {
	lib, err := r.requireLibrary(ctx)
	if err != nil {
		return err
	}

	playlists := lib.Playlists()
	selectedID := ""
	if sel := lib.Selected(); sel != nil {
		selectedID = sel.ID
	}

	entries := make([]listEntry, 0, len(playlists))
	for _, p := range playlists {
		e := listEntry{
			ID:        p.ID,
			Name:      p.Name,
			Tracks:    len(p.Tracks),
			Selected:  p.ID == selectedID,
			CreatedAt: p.CreatedAt.Local().Format("2006-01-02 15:04"),
		}
		if p.Mirrored() {
			e.RemoteURI = *p.RemoteURI
		}
		entries = append(entries, e)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	if len(entries) == 0 {
		return r.writePlain("No playlists yet. Try: moodmix create \"rainy sunday jazz\"\n")
	}
	for _, e := range entries {
		marker := " "
		if e.Selected {
			marker = "*"
		}
		synced := ""
		if e.RemoteURI == "" {
			synced = " (local only)"
		}
		r.writePlain("%s %s  %-40s %3d tracks  %s%s\n", marker, e.ID, e.Name, e.Tracks, e.CreatedAt, synced)
	}
	return nil
}

// Show renders one playlist with the formatter, to stdout or --output.
func (r *Runner) Show(ctx context.Context, cmd *cli.Command) error {
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	playlist, err := r.target(ctx, cmd)
	if err != nil {
		return err
	}
	if playlist == nil {
		return fmt.Errorf("%w: no playlists stored", shared.ErrPlaylistNotFound)
	}

	if out := cmd.String("output"); out != "" {
		files, err := formatter.WriteFile(playlist, f, out, r.httpClient, cmd.Bool("cover"))
		if err != nil {
			return err
		}
		for _, file := range files {
			r.writePlain("✓ Wrote %s\n", file)
		}
		return nil
	}
	return formatter.Render(r.output, playlist, f)
}

// Export writes every stored playlist (or those named by --id) to a directory.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	f, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	lib, err := r.requireLibrary(ctx)
	if err != nil {
		return err
	}

	playlists := lib.Playlists()
	if ids := cmd.StringSlice("id"); len(ids) > 0 {
		playlists = playlists[:0]
		for _, id := range ids {
			p, err := lib.Find(id)
			if err != nil {
				return fmt.Errorf("%w: %s", err, id)
			}
			playlists = append(playlists, *p)
		}
	}

	progress := make(chan tasks.ProgressUpdate, len(playlists))
	manifest, err := tasks.BulkExport(ctx, progress, playlists, tasks.BulkExportOpts{
		Format:     f,
		OutputDir:  cmd.String("dir"),
		NumWorkers: cmd.Int("workers"),
		Covers:     cmd.Bool("cover"),
		Client:     r.httpClient,
	})
	close(progress)
	for update := range progress {
		r.writePlain("%s\n", update.Message)
	}
	if manifest == nil {
		return err
	}

	r.writePlainHeader("Export Complete")
	r.writePlain("Directory: %s\n", manifest.Directory)
	r.writePlain("Exported: %d, failed: %d\n", manifest.Succeeded, manifest.Failed)
	if err != nil {
		return err
	}
	if manifest.Failed > 0 {
		return errors.New("some playlists failed to export, see " + tasks.ManifestName)
	}
	return nil
}
