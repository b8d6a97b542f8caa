package tasks

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// LibraryStore is the persistence a [Library] reads from.
type LibraryStore interface {
	GetAll(ctx context.Context) ([]models.Playlist, error)
	SelectedID(ctx context.Context) (string, error)
	SetSelectedID(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// Library is the in-memory view of stored playlists and the current selection.
//
// It loads from the store once; later loads are no-ops until [Library.Reset]. Playlists are kept newest first.
type Library struct {
	store  LibraryStore
	logger *log.Logger

	mu        sync.RWMutex
	loaded    bool
	playlists []models.Playlist
	selected  string
}

func NewLibrary(store LibraryStore, logger *log.Logger) *Library {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Library{store: store, logger: shared.WithLogger(logger, "component", "library")}
}

// Load reads every playlist and restores the saved selection.
//
// An unavailable store leaves the library empty and is not an error.
func (l *Library) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loaded {
		return nil
	}

	playlists, err := l.store.GetAll(ctx)
	switch {
	case errors.Is(err, shared.ErrStoreUnavailable):
		l.logger.Warn("no playlist history", "error", err)
		playlists = nil
	case err != nil:
		return err
	}

	selected, err := l.store.SelectedID(ctx)
	if err != nil && !errors.Is(err, shared.ErrStoreUnavailable) {
		l.logger.Warn("failed to read saved selection", "error", err)
	}

	models.SortByCreatedDesc(playlists)
	l.playlists = playlists
	l.selected = selected
	l.loaded = true
	l.reconcileLocked(ctx)
	return nil
}

// Reset forgets loaded state so the next [Library.Load] reads the store again.
func (l *Library) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loaded = false
	l.playlists = nil
}

func (l *Library) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Playlists returns a copy of the playlists, newest first.
func (l *Library) Playlists() []models.Playlist {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Playlist(nil), l.playlists...)
}

// Selected returns the selected playlist, or nil when the library is empty.
func (l *Library) Selected() *models.Playlist {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexLocked(l.selected); i >= 0 {
		return l.playlists[i].Clone()
	}
	return nil
}

// Find returns the playlist with id.
func (l *Library) Find(id string) (*models.Playlist, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := l.indexLocked(id); i >= 0 {
		return l.playlists[i].Clone(), nil
	}
	return nil, shared.ErrPlaylistNotFound
}

// Select makes id the current selection and persists it.
func (l *Library) Select(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.indexLocked(id) < 0 {
		return shared.ErrPlaylistNotFound
	}
	l.selected = id
	l.persistLocked(ctx)
	return nil
}

// Apply folds a pipeline result into the library as one update.
//
// A result carrying a playlist inserts or replaces it and selects it. Other results leave the library unchanged.
func (l *Library) Apply(ctx context.Context, res Result) {
	if res.Playlist == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	pl := *res.Playlist.Clone()
	if i := l.indexLocked(pl.ID); i >= 0 {
		l.playlists[i] = pl
	} else {
		l.playlists = append(l.playlists, pl)
	}
	models.SortByCreatedDesc(l.playlists)

	l.selected = pl.ID
	l.persistLocked(ctx)
}

// Remove deletes id from the library and the store.
//
// The playlist leaves memory first and is put back if the store refuses the delete. An unavailable
// store is not an error. Removing the selection moves it to the newest remaining playlist.
func (l *Library) Remove(ctx context.Context, id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	i := l.indexLocked(id)
	if i < 0 {
		return shared.ErrPlaylistNotFound
	}
	removed := l.playlists[i]
	l.playlists = append(l.playlists[:i:i], l.playlists[i+1:]...)

	err := l.store.Delete(ctx, id)
	switch {
	case errors.Is(err, shared.ErrStoreUnavailable):
		l.logger.Warn("playlist removed from this session only", "id", id, "error", err)
	case err != nil:
		l.playlists = append(l.playlists[:i:i], append([]models.Playlist{removed}, l.playlists[i:]...)...)
		return err
	}

	if l.selected == id {
		l.selected = ""
		if len(l.playlists) > 0 {
			l.selected = l.playlists[0].ID
		}
		l.persistLocked(ctx)
	}
	l.logger.Info("playlist removed", "id", id)
	return nil
}

// reconcileLocked keeps the selection if it still exists and otherwise selects the newest playlist.
func (l *Library) reconcileLocked(ctx context.Context) {
	if len(l.playlists) == 0 || l.indexLocked(l.selected) >= 0 {
		return
	}
	l.selected = l.playlists[0].ID
	l.persistLocked(ctx)
}

func (l *Library) persistLocked(ctx context.Context) {
	if err := l.store.SetSelectedID(ctx, l.selected); err != nil && !errors.Is(err, shared.ErrStoreUnavailable) {
		l.logger.Warn("failed to save selection", "id", l.selected, "error", err)
	}
}

func (l *Library) indexLocked(id string) int {
	if id == "" {
		return -1
	}
	for i := range l.playlists {
		if l.playlists[i].ID == id {
			return i
		}
	}
	return -1
}
