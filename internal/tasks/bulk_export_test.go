package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	th "github.com/desertthunder/moodmix/internal/testing"
)

func exportFixture(cover string) []models.Playlist {
	first := playlistAt("p1", t0)
	first.Tracks = []models.Track{track("a"), track("b")}
	first.Tracks[0].Album.Images = []models.Image{{URL: cover}}

	second := playlistAt("p2", t0.Add(time.Hour))
	second.Tracks = []models.Track{track("c")}

	third := playlistAt("p3", t0.Add(2*time.Hour))
	return []models.Playlist{first, second, third}
}

func TestBulkExport(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		f     formatter.Format
		files map[string][]string
	}{
		{
			name:  "json",
			f:     formatter.JSON,
			files: map[string][]string{"p1": {"p1.json"}, "p2": {"p2.json"}, "p3": {"p3.json"}},
		},
		{
			name:  "csv",
			f:     formatter.CSV,
			files: map[string][]string{"p1": {"p1.csv"}, "p2": {"p2.csv"}, "p3": {"p3.csv"}},
		},
		{
			name:  "text",
			f:     formatter.Text,
			files: map[string][]string{"p1": {"p1.txt"}, "p2": {"p2.txt"}, "p3": {"p3.txt"}},
		},
		{
			name: "markdown",
			f:    formatter.Markdown,
			files: map[string][]string{
				"p1": {filepath.Join("p1", "README.md")},
				"p2": {filepath.Join("p2", "README.md")},
				"p3": {filepath.Join("p3", "README.md")},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			progress := make(chan ProgressUpdate, 10)

			m, err := BulkExport(ctx, progress, exportFixture(""), BulkExportOpts{Format: tt.f, OutputDir: dir, NumWorkers: 2})
			if err != nil {
				t.Fatalf("BulkExport() error = %v", err)
			}
			if m.Succeeded != 3 || m.Failed != 0 {
				t.Errorf("expected 3/0, got %d/%d", m.Succeeded, m.Failed)
			}

			for i, entry := range m.Playlists {
				if want := []string{"p1", "p2", "p3"}[i]; entry.ID != want {
					t.Errorf("manifest order: entry %d is %s, want %s", i, entry.ID, want)
				}
				for j, rel := range tt.files[entry.ID] {
					want := filepath.Join(dir, rel)
					if entry.Files[j] != want {
						t.Errorf("%s: file %q, want %q", entry.ID, entry.Files[j], want)
					}
					th.AssertFileExists(t, want)
				}
			}

			th.AssertFileExists(t, filepath.Join(dir, ManifestName))
			var decoded formatter.Manifest
			if err := json.Unmarshal([]byte(th.MustReadFile(t, filepath.Join(dir, ManifestName))), &decoded); err != nil {
				t.Fatalf("invalid manifest: %v", err)
			}
			if decoded.Format != tt.f || decoded.Succeeded != 3 {
				t.Errorf("unexpected manifest %+v", decoded)
			}

			close(progress)
			var updates []ProgressUpdate
			for u := range progress {
				updates = append(updates, u)
			}
			if len(updates) != 3 || updates[2].Phase != Export || updates[2].Step != 3 {
				t.Errorf("unexpected progress %+v", updates)
			}
		})
	}

	t.Run("markdown covers are downloaded", func(t *testing.T) {
		var hits atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			w.Write([]byte("jpeg"))
		}))
		defer srv.Close()

		dir := t.TempDir()
		m, err := BulkExport(ctx, nil, exportFixture(srv.URL+"/cover"), BulkExportOpts{
			Format:    formatter.Markdown,
			OutputDir: dir,
			Covers:    true,
			Client:    srv.Client(),
			RateLimit: 100,
		})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if hits.Load() != 1 {
			t.Errorf("expected one cover download, got %d", hits.Load())
		}
		if len(m.Playlists[0].Files) != 2 {
			t.Errorf("expected cover and README for p1, got %v", m.Playlists[0].Files)
		}
		th.AssertFileExists(t, filepath.Join(dir, "p1", "cover.jpg"))
	})

	t.Run("partial failure", func(t *testing.T) {
		dir := t.TempDir()
		// A directory where p2.json should go makes that write fail.
		if err := os.Mkdir(filepath.Join(dir, "p2.json"), 0o755); err != nil {
			t.Fatal(err)
		}

		m, err := BulkExport(ctx, nil, exportFixture(""), BulkExportOpts{Format: formatter.JSON, OutputDir: dir})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if m.Succeeded != 2 || m.Failed != 1 {
			t.Errorf("expected 2/1, got %d/%d", m.Succeeded, m.Failed)
		}
		if m.Playlists[1].ID != "p2" || m.Playlists[1].Error == "" {
			t.Errorf("expected p2 failure recorded, got %+v", m.Playlists[1])
		}
	})

	t.Run("no playlists", func(t *testing.T) {
		_, err := BulkExport(ctx, nil, nil, BulkExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		dir := t.TempDir()
		m, err := BulkExport(cancelled, nil, exportFixture(""), BulkExportOpts{Format: formatter.JSON, OutputDir: dir})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if m == nil || m.Succeeded+m.Failed != 3 {
			t.Fatalf("expected every playlist accounted for, got %+v", m)
		}
		for _, entry := range m.Playlists {
			if entry.ID == "" {
				t.Errorf("manifest has an empty entry: %+v", m.Playlists)
			}
		}
		th.AssertFileExists(t, filepath.Join(dir, ManifestName))
	})
}
