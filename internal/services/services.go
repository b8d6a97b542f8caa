package services

import (
	"context"

	"github.com/desertthunder/moodmix/internal/models"
)

// DefaultSongCount is the number of candidates requested when the caller does not ask for a specific count.
const DefaultSongCount = 20

// Generator proposes playlist candidates for a free-text prompt.
type Generator interface {
	// GenerateCandidates returns a playlist name and ordered candidates.
	//
	// Any response that does not satisfy the structured contract fails with [shared.ErrGenerationFailed].
	GenerateCandidates(ctx context.Context, prompt string, count int) (*models.Suggestion, error)
}

// Catalog resolves candidates against the music catalog.
type Catalog interface {
	// ResolveTrack returns the best match for candidate, or (nil, nil) when the catalog has none.
	ResolveTrack(ctx context.Context, candidate models.Candidate) (*models.Track, error)
}

// RemotePlaylist identifies a playlist on the remote service.
type RemotePlaylist struct {
	ID  string
	URI string
}

// Mirror writes playlists to the user's account on the remote service.
type Mirror interface {
	// CreatePlaylist creates a private playlist owned by the session's account.
	CreatePlaylist(ctx context.Context, name, description string) (*RemotePlaylist, error)

	// AddTracks appends tracks in order and returns the new snapshot id.
	AddTracks(ctx context.Context, remoteID string, trackURIs []string) (string, error)

	// ReplaceTracks replaces the full track list and returns the new snapshot id.
	ReplaceTracks(ctx context.Context, remoteID string, trackURIs []string) (string, error)
}

// Session reports whether a usable credential for the remote service is loaded.
type Session interface {
	Authenticated() bool
}

// RemoteService is everything the pipeline needs from the remote music service.
type RemoteService interface {
	Session
	Catalog
	Mirror
}

// ReadyEvent is delivered once per [Player] connection.
type ReadyEvent struct {
	DeviceID string
	Err      error
}

// Player controls playback on one of the user's devices.
type Player interface {
	// Connect selects a playback device and returns its id.
	Connect(ctx context.Context) (string, error)

	// Ready delivers exactly one event for the current connection, then closes.
	Ready() <-chan ReadyEvent

	// Play starts trackURI, inside contextURI when it is not empty.
	Play(ctx context.Context, trackURI, contextURI string) error

	// Toggle pauses trackURI if it is playing, resumes it if it is paused, and plays it otherwise.
	Toggle(ctx context.Context, trackURI, contextURI string) error

	Pause(ctx context.Context) error

	// Disconnect releases the device. The Ready channel is closed if it was not already.
	Disconnect()
}
