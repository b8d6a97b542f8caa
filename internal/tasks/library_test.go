package tasks

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	tu "github.com/desertthunder/moodmix/internal/testing"
)

func playlistAt(id string, created time.Time) models.Playlist {
	return models.Playlist{ID: id, Name: id, CreatedAt: created, UpdatedAt: created}
}

func libraryIDs(l *Library) []string {
	var ids []string
	for _, p := range l.Playlists() {
		ids = append(ids, p.ID)
	}
	return ids
}

type countingStore struct {
	*tu.MockStore
	loads int
}

func (c *countingStore) GetAll(ctx context.Context) ([]models.Playlist, error) {
	c.loads++
	return c.MockStore.GetAll(ctx)
}

func TestLibrary(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	old := playlistAt("old", t0)
	mid := playlistAt("mid", t0.Add(time.Hour))
	newest := playlistAt("new", t0.Add(2*time.Hour))

	t.Run("Load sorts newest first and selects newest", func(t *testing.T) {
		lib := NewLibrary(tu.NewMockStore(old, newest, mid), logger)
		if err := lib.Load(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if got := libraryIDs(lib); !equalStrings(got, []string{"new", "mid", "old"}) {
			t.Errorf("expected newest first, got %v", got)
		}
		if sel := lib.Selected(); sel == nil || sel.ID != "new" {
			t.Errorf("expected newest selected, got %+v", sel)
		}
	})

	t.Run("Load keeps an existing selection", func(t *testing.T) {
		store := tu.NewMockStore(old, newest, mid)
		store.Selected = "mid"
		lib := NewLibrary(store, logger)
		_ = lib.Load(ctx)

		if sel := lib.Selected(); sel == nil || sel.ID != "mid" {
			t.Errorf("expected mid selected, got %+v", sel)
		}
	})

	t.Run("Load replaces a stale selection", func(t *testing.T) {
		store := tu.NewMockStore(old, mid)
		store.Selected = "deleted"
		lib := NewLibrary(store, logger)
		_ = lib.Load(ctx)

		if sel := lib.Selected(); sel == nil || sel.ID != "mid" {
			t.Errorf("expected mid selected, got %+v", sel)
		}
		if store.Selected != "mid" {
			t.Errorf("selection should be persisted, got %q", store.Selected)
		}
	})

	t.Run("Load runs once until Reset", func(t *testing.T) {
		store := &countingStore{MockStore: tu.NewMockStore(old)}
		lib := NewLibrary(store, logger)

		_ = lib.Load(ctx)
		_ = lib.Load(ctx)
		if store.loads != 1 {
			t.Errorf("expected one load, got %d", store.loads)
		}

		lib.Reset()
		if lib.Loaded() {
			t.Error("expected Reset to clear loaded state")
		}
		_ = lib.Load(ctx)
		if store.loads != 2 {
			t.Errorf("expected reload after Reset, got %d", store.loads)
		}
	})

	t.Run("unavailable store yields empty library", func(t *testing.T) {
		store := tu.NewMockStore(old)
		store.Unavailable = true
		lib := NewLibrary(store, logger)

		if err := lib.Load(ctx); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(lib.Playlists()) != 0 || lib.Selected() != nil {
			t.Error("expected empty library")
		}
		if !lib.Loaded() {
			t.Error("an unavailable store still counts as loaded")
		}
	})

	t.Run("Apply inserts and selects", func(t *testing.T) {
		store := tu.NewMockStore(old, mid)
		lib := NewLibrary(store, logger)
		_ = lib.Load(ctx)

		created := newest
		lib.Apply(ctx, Result{Status: Success, Playlist: &created})

		if got := libraryIDs(lib); !equalStrings(got, []string{"new", "mid", "old"}) {
			t.Errorf("unexpected order %v", got)
		}
		if lib.Selected().ID != "new" || store.Selected != "new" {
			t.Errorf("expected new selected and persisted, got %s/%s", lib.Selected().ID, store.Selected)
		}
	})

	t.Run("Apply replaces in place", func(t *testing.T) {
		lib := NewLibrary(tu.NewMockStore(old, mid), logger)
		_ = lib.Load(ctx)

		updated := old
		updated.Name = "regenerated"
		updated.UpdatedAt = t0.Add(5 * time.Hour)
		lib.Apply(ctx, Result{Status: PartialRemoteFailure, Playlist: &updated})

		if got := libraryIDs(lib); !equalStrings(got, []string{"mid", "old"}) {
			t.Errorf("regeneration must not reorder by createdAt, got %v", got)
		}
		if sel := lib.Selected(); sel.ID != "old" || sel.Name != "regenerated" {
			t.Errorf("expected regenerated playlist selected, got %+v", sel)
		}
	})

	t.Run("Apply ignores results without playlist", func(t *testing.T) {
		lib := NewLibrary(tu.NewMockStore(old), logger)
		_ = lib.Load(ctx)

		lib.Apply(ctx, Result{Status: GenerationFailure, Err: shared.ErrGenerationFailed})
		if len(lib.Playlists()) != 1 || lib.Selected().ID != "old" {
			t.Error("failed results must not change the library")
		}
	})

	t.Run("Select and Find", func(t *testing.T) {
		store := tu.NewMockStore(old, mid)
		lib := NewLibrary(store, logger)
		_ = lib.Load(ctx)

		if err := lib.Select(ctx, "old"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if lib.Selected().ID != "old" || store.Selected != "old" {
			t.Error("expected old selected and persisted")
		}
		if err := lib.Select(ctx, "missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if _, err := lib.Find("missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
		if p, err := lib.Find("mid"); err != nil || p.ID != "mid" {
			t.Errorf("expected mid, got %v %v", p, err)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		tests := []struct {
			name       string
			remove     string
			selected   string
			deleteErr  error
			wantErr    error
			wantIDs    []string
			wantSel    string
			wantStored int
		}{
			{name: "unselected playlist", remove: "old", selected: "new", wantIDs: []string{"new", "mid"}, wantSel: "new", wantStored: 2},
			{name: "selected moves to newest", remove: "mid", selected: "mid", wantIDs: []string{"new", "old"}, wantSel: "new", wantStored: 2},
			{name: "selected newest moves to next", remove: "new", selected: "new", wantIDs: []string{"mid", "old"}, wantSel: "mid", wantStored: 2},
			{name: "unknown id", remove: "nope", selected: "new", wantErr: shared.ErrPlaylistNotFound, wantIDs: []string{"new", "mid", "old"}, wantSel: "new", wantStored: 3},
			{name: "store failure restores position", remove: "mid", selected: "mid", deleteErr: errors.New("disk full"), wantIDs: []string{"new", "mid", "old"}, wantSel: "mid", wantStored: 3},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := tu.NewMockStore(old, mid, newest)
				store.Selected = tt.selected
				lib := NewLibrary(store, logger)
				_ = lib.Load(ctx)
				store.DeleteErr = tt.deleteErr

				err := lib.Remove(ctx, tt.remove)
				switch {
				case tt.deleteErr != nil:
					if !errors.Is(err, tt.deleteErr) {
						t.Errorf("expected store error, got %v", err)
					}
				case tt.wantErr != nil:
					if !errors.Is(err, tt.wantErr) {
						t.Errorf("expected %v, got %v", tt.wantErr, err)
					}
				case err != nil:
					t.Fatalf("unexpected error: %v", err)
				}

				if got := libraryIDs(lib); !equalStrings(got, tt.wantIDs) {
					t.Errorf("expected %v, got %v", tt.wantIDs, got)
				}
				if sel := lib.Selected(); sel == nil || sel.ID != tt.wantSel {
					t.Errorf("expected %s selected, got %+v", tt.wantSel, sel)
				}
				if store.Selected != tt.wantSel {
					t.Errorf("expected persisted selection %s, got %s", tt.wantSel, store.Selected)
				}
				if len(store.Records) != tt.wantStored {
					t.Errorf("expected %d stored, got %d", tt.wantStored, len(store.Records))
				}
			})
		}

		t.Run("last playlist clears selection", func(t *testing.T) {
			store := tu.NewMockStore(old)
			lib := NewLibrary(store, logger)
			_ = lib.Load(ctx)

			if err := lib.Remove(ctx, "old"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if lib.Selected() != nil || len(lib.Playlists()) != 0 {
				t.Error("expected empty library")
			}
			if store.Selected != "" {
				t.Errorf("expected cleared selection, got %q", store.Selected)
			}
		})

		t.Run("unavailable store removes for the session", func(t *testing.T) {
			store := tu.NewMockStore(old, mid)
			lib := NewLibrary(store, logger)
			_ = lib.Load(ctx)
			store.Unavailable = true

			if err := lib.Remove(ctx, "old"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := libraryIDs(lib); !equalStrings(got, []string{"mid"}) {
				t.Errorf("expected [mid], got %v", got)
			}
		})
	})

	t.Run("returned playlists are copies", func(t *testing.T) {
		pl := playlistAt("p", t0)
		pl.Tracks = []models.Track{track("a")}
		lib := NewLibrary(tu.NewMockStore(pl), logger)
		_ = lib.Load(ctx)

		sel := lib.Selected()
		sel.Tracks[0].ID = "mutated"
		if lib.Selected().Tracks[0].ID != "a" {
			t.Error("library state leaked through Selected")
		}
	})
}
