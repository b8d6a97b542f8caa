// package tasks implements the playlist pipeline: generate, resolve, dedupe, store, mirror.
//
// Operations emit progress updates via channels for non-blocking status reporting to CLI/UI layers.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
)

// Status is the outcome of a pipeline operation.
type Status int

const (
	Success Status = iota
	AuthRequired
	GenerationFailure
	PartialRemoteFailure
	Failure
	NoSelection
)

func (s Status) String() string {
	switch s {
	case Success:
		return "success"
	case AuthRequired:
		return "auth_required"
	case GenerationFailure:
		return "generation_failure"
	case PartialRemoteFailure:
		return "partial_remote_failure"
	case Failure:
		return "failure"
	case NoSelection:
		return "no_selection"
	default:
		return ""
	}
}

// Result is applied by the caller as a single update.
//
// Playlist is set for Success and PartialRemoteFailure; for PartialRemoteFailure it is the local-only (or
// locally updated) playlist and Err holds the remote cause.
type Result struct {
	Status   Status
	Playlist *models.Playlist
	Err      error

	// Unresolved lists candidates that produced no track.
	Unresolved []models.Candidate
}

// OK reports whether the playlist was generated and stored.
func (r Result) OK() bool {
	return r.Status == Success || r.Status == PartialRemoteFailure
}

// PlaylistStore is the persistence the pipeline writes through.
type PlaylistStore interface {
	Upsert(ctx context.Context, p *models.Playlist) (string, error)
	Get(ctx context.Context, id string) (*models.Playlist, error)
}

const maxIDAttempts = 5

// Pipeline turns prompts into stored, mirrored playlists.
type Pipeline struct {
	generator   services.Generator
	remote      services.RemoteService
	store       PlaylistStore
	count       int
	concurrency int
	now         func() time.Time
	newID       func() string
	logger      *log.Logger
}

// PipelineOption configures a [Pipeline].
type PipelineOption func(*Pipeline)

// WithSongCount sets the number of candidates requested per generation. Zero defers to the generator's default.
func WithSongCount(n int) PipelineOption {
	return func(p *Pipeline) { p.count = n }
}

// WithConcurrency bounds in-flight catalog searches.
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) { p.concurrency = n }
}

func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) { p.now = now }
}

func WithIDGenerator(newID func() string) PipelineOption {
	return func(p *Pipeline) { p.newID = newID }
}

func WithPipelineLogger(l *log.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = shared.WithLogger(l, "component", "pipeline") }
}

// NewPipeline creates a pipeline over the given collaborators.
func NewPipeline(generator services.Generator, remote services.RemoteService, store PlaylistStore, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		generator:   generator,
		remote:      remote,
		store:       store,
		concurrency: DefaultConcurrency,
		now:         time.Now,
		newID:       shared.ShortID,
		logger:      shared.WithLogger(shared.NewLogger(nil), "component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Create generates a new playlist from prompt, stores it and mirrors it remotely.
//
// Without an authenticated session nothing is attempted and the result is AuthRequired; callers re-authenticate
// and replay the same prompt.
func (p *Pipeline) Create(ctx context.Context, prompt string, progress chan<- ProgressUpdate) Result {
	if !p.remote.Authenticated() {
		return Result{Status: AuthRequired, Err: shared.ErrNotAuthenticated}
	}

	gen, res := p.build(ctx, prompt, progress)
	if res != nil {
		return *res
	}

	id, err := p.freshID(ctx)
	if err != nil {
		return Result{Status: Failure, Err: err}
	}

	now := p.now().UTC()
	pl := &models.Playlist{
		ID:                  id,
		Name:                gen.suggestion.Name,
		Description:         prompt,
		Tracks:              gen.tracks,
		GeneratedCandidates: gen.suggestion.Candidates,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	res = p.commit(ctx, pl, progress)
	res.Unresolved = gen.dropped
	return *res
}

// freshID draws ids until one is not already stored.
//
// Any lookup error accepts the id. Not-found means it is free, and a broken store fails later at upsert.
func (p *Pipeline) freshID(ctx context.Context) (string, error) {
	for range maxIDAttempts {
		id := p.newID()
		_, err := p.store.Get(ctx, id)
		if err != nil {
			return id, nil
		}
		p.logger.Warn("playlist id already taken", "id", id)
	}
	return "", fmt.Errorf("%w: no free playlist id after %d attempts", shared.ErrInvalidInput, maxIDAttempts)
}

// Regenerate replaces the tracks of an existing playlist with a fresh generation for prompt.
//
// Identity, creation time and remote ids are kept. A mirrored playlist has its remote tracks replaced; an
// unmirrored one is created remotely. A nil playlist is a no-op.
func (p *Pipeline) Regenerate(ctx context.Context, playlist *models.Playlist, prompt string, progress chan<- ProgressUpdate) Result {
	if playlist == nil {
		return Result{Status: NoSelection}
	}
	if !p.remote.Authenticated() {
		return Result{Status: AuthRequired, Err: shared.ErrNotAuthenticated}
	}

	gen, res := p.build(ctx, prompt, progress)
	if res != nil {
		return *res
	}

	updated := playlist.Clone()
	updated.Name = gen.suggestion.Name
	updated.Description = prompt
	updated.Tracks = gen.tracks
	updated.GeneratedCandidates = gen.suggestion.Candidates
	updated.UpdatedAt = p.after(playlist.UpdatedAt)

	res = p.commit(ctx, updated, progress)
	res.Unresolved = gen.dropped
	return *res
}

// Sync mirrors a stored playlist as-is. It is the manual retry for local-only playlists.
func (p *Pipeline) Sync(ctx context.Context, playlist *models.Playlist, progress chan<- ProgressUpdate) Result {
	if playlist == nil {
		return Result{Status: NoSelection}
	}
	if !p.remote.Authenticated() {
		return Result{Status: AuthRequired, Err: shared.ErrNotAuthenticated}
	}

	pl := playlist.Clone()
	pl.UpdatedAt = p.after(playlist.UpdatedAt)

	if err := p.mirror(ctx, pl, progress); err != nil {
		return Result{Status: PartialRemoteFailure, Playlist: playlist.Clone(), Err: err}
	}
	if err := p.save(ctx, pl, progress); err != nil {
		return Result{Status: Failure, Playlist: pl, Err: err}
	}
	return Result{Status: Success, Playlist: pl}
}

type generation struct {
	suggestion *models.Suggestion
	tracks     []models.Track
	dropped    []models.Candidate
}

// build runs generate, resolve and dedupe. A non-nil Result means the operation ended early.
func (p *Pipeline) build(ctx context.Context, prompt string, progress chan<- ProgressUpdate) (*generation, *Result) {
	count := p.count
	if count <= 0 {
		count = services.DefaultSongCount
	}
	sendProgress(progress, generatingUpdate(count))

	suggestion, err := p.generator.GenerateCandidates(ctx, prompt, p.count)
	if err != nil {
		status := GenerationFailure
		if errors.Is(err, shared.ErrInvalidInput) {
			status = Failure
		}
		return nil, &Result{Status: status, Err: err}
	}
	sendProgress(progress, generatedUpdate(suggestion))

	resolved, dropped := resolveAll(ctx, p.remote, suggestion.Candidates, p.concurrency, p.logger, progress)
	if err := ctx.Err(); err != nil {
		return nil, &Result{Status: Failure, Err: err}
	}

	tracks, err := Dedupe(resolved)
	if err != nil {
		return nil, &Result{Status: Failure, Err: err}
	}

	p.logger.Info("resolved candidates",
		"candidates", len(suggestion.Candidates),
		"tracks", len(tracks),
		"unresolved", len(dropped),
		"duplicates", len(resolved)-len(tracks),
	)

	return &generation{suggestion: suggestion, tracks: tracks, dropped: dropped}, nil
}

// commit stores pl, mirrors it and stores it again with the remote ids.
func (p *Pipeline) commit(ctx context.Context, pl *models.Playlist, progress chan<- ProgressUpdate) *Result {
	if err := p.save(ctx, pl, progress); err != nil {
		return &Result{Status: Failure, Err: err}
	}

	local := pl.Clone()
	if err := p.mirror(ctx, pl, progress); err != nil {
		p.logger.Warn("remote mirror failed", "id", pl.ID, "error", err)
		return &Result{Status: PartialRemoteFailure, Playlist: local, Err: err}
	}

	if err := p.save(ctx, pl, progress); err != nil {
		return &Result{Status: Failure, Playlist: pl, Err: err}
	}

	return &Result{Status: Success, Playlist: pl}
}

// save upserts pl. An unavailable store is logged and tolerated.
func (p *Pipeline) save(ctx context.Context, pl *models.Playlist, progress chan<- ProgressUpdate) error {
	if _, err := p.store.Upsert(ctx, pl); err != nil {
		if errors.Is(err, shared.ErrStoreUnavailable) {
			p.logger.Warn("continuing without history", "error", err)
			return nil
		}
		return fmt.Errorf("failed to store playlist %s: %w", pl.ID, err)
	}
	sendProgress(progress, storedUpdate(pl))
	return nil
}

// mirror replaces the remote tracks of a mirrored playlist, or creates and fills a new remote playlist.
//
// pl gains remote ids only when every remote call succeeded.
func (p *Pipeline) mirror(ctx context.Context, pl *models.Playlist, progress chan<- ProgressUpdate) error {
	sendProgress(progress, mirroringUpdate(pl))
	uris := pl.TrackURIs()

	if pl.Mirrored() {
		if _, err := p.remote.ReplaceTracks(ctx, *pl.RemoteID, uris); err != nil {
			return err
		}
		sendProgress(progress, mirroredUpdate(pl))
		return nil
	}

	remote, err := p.remote.CreatePlaylist(ctx, pl.Name, pl.Description)
	if err != nil {
		return err
	}
	if len(uris) > 0 {
		if _, err := p.remote.AddTracks(ctx, remote.ID, uris); err != nil {
			return err
		}
	}

	pl.SetRemote(remote.ID, remote.URI)
	sendProgress(progress, mirroredUpdate(pl))
	return nil
}

// after returns the current time, nudged past prev so updatedAt strictly increases.
func (p *Pipeline) after(prev time.Time) time.Time {
	now := p.now().UTC()
	if !now.After(prev) {
		now = prev.Add(time.Millisecond).UTC()
	}
	return now
}
