package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
)

// Play starts track --track (1-based) of a stored playlist on the active device.
//
// Mirrored playlists play in their remote context so playback continues through the playlist.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	if r.player == nil {
		return fmt.Errorf("%w: player not initialized", shared.ErrServiceUnavailable)
	}
	playlist, err := r.target(ctx, cmd)
	if err != nil {
		return err
	}
	if playlist == nil {
		return fmt.Errorf("%w: no playlists stored", shared.ErrPlaylistNotFound)
	}

	n := cmd.Int("track")
	if n < 1 || n > len(playlist.Tracks) {
		return fmt.Errorf("%w: track %d (playlist has %d)", shared.ErrInvalidArgument, n, len(playlist.Tracks))
	}
	track := playlist.Tracks[n-1]

	device, err := r.player.Connect(ctx)
	if err != nil {
		return err
	}
	defer r.player.Disconnect()
	r.logger.Debug("playback device", "id", device)

	contextURI := ""
	if playlist.Mirrored() {
		contextURI = *playlist.RemoteURI
	}
	if err := r.player.Play(ctx, track.URI, contextURI); err != nil {
		return err
	}
	defer r.persistSession()
	return r.writePlain("▶ %s - %s\n", track.ArtistNames(), track.Name)
}

// Pause pauses playback on the active device.
func (r *Runner) Pause(ctx context.Context, cmd *cli.Command) error {
	if r.player == nil {
		return fmt.Errorf("%w: player not initialized", shared.ErrServiceUnavailable)
	}
	if _, err := r.player.Connect(ctx); err != nil {
		return err
	}
	defer r.player.Disconnect()

	if err := r.player.Pause(ctx); err != nil {
		return err
	}
	return r.writePlain("⏸ Paused\n")
}
