package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

const playlistColumns = `id, remote_id, remote_uri, name, description, tracks, generated_candidates, created_at, updated_at`

// PlaylistRepository persists [models.Playlist] records keyed by their local id.
//
// Tracks and candidates are stored as JSON columns; the record is always written whole.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

// Upsert inserts the playlist or fully overwrites the record with the same id, returning the id.
func (r *PlaylistRepository) Upsert(ctx context.Context, p *models.Playlist) (string, error) {
	if p == nil {
		return "", fmt.Errorf("%w: nil playlist", shared.ErrInvalidInput)
	}
	if err := p.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	tracks, err := encodeJSON(p.Tracks)
	if err != nil {
		return "", fmt.Errorf("failed to encode tracks: %w", err)
	}
	candidates, err := encodeJSON(p.GeneratedCandidates)
	if err != nil {
		return "", fmt.Errorf("failed to encode candidates: %w", err)
	}

	query := `
		INSERT INTO playlists (` + playlistColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			remote_id = excluded.remote_id,
			remote_uri = excluded.remote_uri,
			name = excluded.name,
			description = excluded.description,
			tracks = excluded.tracks,
			generated_candidates = excluded.generated_candidates,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		nullable(p.RemoteID),
		nullable(p.RemoteURI),
		p.Name,
		p.Description,
		tracks,
		candidates,
		formatTime(p.CreatedAt),
		formatTime(p.UpdatedAt),
	)
	if err != nil {
		return "", fmt.Errorf("failed to upsert playlist: %w", err)
	}

	return p.ID, nil
}

// Get retrieves a playlist by id. Timestamps come back in UTC and empty track or candidate lists as nil.
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	query := `SELECT ` + playlistColumns + ` FROM playlists WHERE id = ?`

	p, err := scanPlaylist(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return p, err
}

// GetAll retrieves every stored playlist. Order is unspecified; callers sort.
func (r *PlaylistRepository) GetAll(ctx context.Context) ([]models.Playlist, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+playlistColumns+` FROM playlists`)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}
	defer rows.Close()

	playlists := []models.Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			return nil, err
		}
		playlists = append(playlists, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return playlists, nil
}

// Delete removes a playlist by id.
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}

	return nil
}

// scanPlaylist scans a single row into a [models.Playlist]. [sql.ErrNoRows] is returned unwrapped.
func scanPlaylist(row scanner) (*models.Playlist, error) {
	var (
		p          models.Playlist
		remoteID   sql.NullString
		remoteURI  sql.NullString
		tracks     string
		candidates string
		createdAt  string
		updatedAt  string
	)

	err := row.Scan(&p.ID, &remoteID, &remoteURI, &p.Name, &p.Description, &tracks, &candidates, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan playlist: %w", err)
	}

	if remoteID.Valid && remoteURI.Valid {
		p.SetRemote(remoteID.String, remoteURI.String)
	}

	if p.Tracks, err = decodeJSON[models.Track](tracks); err != nil {
		return nil, fmt.Errorf("playlist %s: failed to decode tracks: %w", p.ID, err)
	}
	if p.GeneratedCandidates, err = decodeJSON[models.Candidate](candidates); err != nil {
		return nil, fmt.Errorf("playlist %s: failed to decode candidates: %w", p.ID, err)
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("playlist %s: %w", p.ID, err)
	}
	if p.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("playlist %s: %w", p.ID, err)
	}

	return &p, nil
}

func nullable(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
