package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// Opener opens a migrated database handle.
type Opener func(ctx context.Context) (*sql.DB, error)

// Store is the process-wide playlist store.
//
// The database is opened lazily on first use. If opening fails the failure is remembered and every
// later call returns [shared.ErrStoreUnavailable] without retrying, so callers can degrade to "no history".
type Store struct {
	open   Opener
	logger *log.Logger

	once      sync.Once
	db        *sql.DB
	playlists *PlaylistRepository
	settings  *SettingsRepository
	initErr   error
}

// NewStore returns a Store backed by the SQLite database described by cfg.
func NewStore(cfg shared.DatabaseConfig, logger *log.Logger) *Store {
	return NewStoreWithOpener(func(ctx context.Context) (*sql.DB, error) {
		return shared.OpenDatabase(ctx, cfg)
	}, logger)
}

// NewStoreWithOpener returns a Store that initializes through open.
func NewStoreWithOpener(open Opener, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Store{open: open, logger: shared.WithLogger(logger, "component", "store")}
}

func (s *Store) init(ctx context.Context) error {
	s.once.Do(func() {
		db, err := s.open(ctx)
		if err != nil {
			s.initErr = err
			s.logger.Warn("playlist store unavailable", "error", err)
			return
		}
		s.db = db
		s.playlists = NewPlaylistRepository(db)
		s.settings = NewSettingsRepository(db)
	})

	if s.initErr != nil {
		return fmt.Errorf("%w: %v", shared.ErrStoreUnavailable, s.initErr)
	}
	return nil
}

// Upsert inserts or fully replaces a playlist and returns its id.
func (s *Store) Upsert(ctx context.Context, p *models.Playlist) (string, error) {
	if err := s.init(ctx); err != nil {
		return "", err
	}
	return s.playlists.Upsert(ctx, p)
}

// Get returns the playlist with id or an error matching [shared.ErrPlaylistNotFound].
func (s *Store) Get(ctx context.Context, id string) (*models.Playlist, error) {
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s.playlists.Get(ctx, id)
}

// GetAll returns every stored playlist in unspecified order.
func (s *Store) GetAll(ctx context.Context) ([]models.Playlist, error) {
	if err := s.init(ctx); err != nil {
		return nil, err
	}
	return s.playlists.GetAll(ctx)
}

// Delete removes a playlist by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	return s.playlists.Delete(ctx, id)
}

// SelectedID returns the persisted selection, or "" when none was saved.
func (s *Store) SelectedID(ctx context.Context) (string, error) {
	if err := s.init(ctx); err != nil {
		return "", err
	}
	return s.settings.Get(ctx, SelectedPlaylistKey)
}

// SetSelectedID persists the selected playlist id.
func (s *Store) SetSelectedID(ctx context.Context, id string) error {
	if err := s.init(ctx); err != nil {
		return err
	}
	return s.settings.Set(ctx, SelectedPlaylistKey, id)
}

// Close releases the database handle if one was opened.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
