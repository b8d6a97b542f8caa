package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"golang.org/x/time/rate"
)

const ManifestName = "export_manifest.json"

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Output format for every playlist
	OutputDir  string           // Base output directory (default: moodmix_export_{epoch})
	NumWorkers int              // Concurrent workers (default: 4, max: 10)
	RateLimit  float64          // Cover downloads per second (default: 5)
	Covers     bool             // Download album artwork next to Markdown exports
	Client     *http.Client     // Client for cover downloads
}

type exportJob struct {
	index    int
	playlist *models.Playlist
}

type exportResult struct {
	index int
	entry formatter.ManifestEntry
}

// BulkExport writes every playlist to opts.OutputDir with a small worker pool and records the outcome
// of each in a manifest. A failed playlist does not stop the others.
func BulkExport(
	ctx context.Context,
	progress chan<- ProgressUpdate,
	playlists []models.Playlist,
	opts BulkExportOpts,
) (*formatter.Manifest, error) {
	if len(playlists) == 0 {
		return nil, fmt.Errorf("%w: no playlists to export", shared.ErrMissingArgument)
	}
	if opts.Format == "" {
		opts.Format = formatter.JSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("moodmix_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	opts.NumWorkers = min(opts.NumWorkers, 10)
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan exportJob, len(playlists))
	results := make(chan exportResult, len(playlists))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, limiter, jobs, results, opts)
	}

	for i := range playlists {
		jobs <- exportJob{index: i, playlist: &playlists[i]}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	manifest := &formatter.Manifest{
		ExportedAt: time.Now().UTC(),
		Format:     opts.Format,
		Directory:  opts.OutputDir,
		Playlists:  make([]formatter.ManifestEntry, len(playlists)),
	}

	completed := 0
	for res := range results {
		completed++
		manifest.Playlists[res.index] = res.entry
		if res.entry.Error != "" {
			manifest.Failed++
		} else {
			manifest.Succeeded++
		}
		sendProgress(progress, exportedUpdate(completed, len(playlists), res.entry))
	}

	// Workers stop early on cancellation; whatever they skipped is a failure.
	for i, entry := range manifest.Playlists {
		if entry.ID == "" {
			manifest.Playlists[i] = formatter.ManifestEntry{
				ID:    playlists[i].ID,
				Name:  playlists[i].Name,
				Error: "export cancelled",
			}
			manifest.Failed++
		}
	}

	path := filepath.Join(opts.OutputDir, ManifestName)
	if err := formatter.WriteManifest(manifest, path); err != nil {
		return manifest, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	return manifest, ctx.Err()
}

func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan exportJob,
	results chan<- exportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}
		results <- exportResult{index: job.index, entry: exportOne(ctx, limiter, job.playlist, opts)}
	}
}

func exportOne(ctx context.Context, limiter *rate.Limiter, p *models.Playlist, opts BulkExportOpts) formatter.ManifestEntry {
	entry := formatter.ManifestEntry{ID: p.ID, Name: p.Name}

	covers := opts.Covers && opts.Format == formatter.Markdown && p.Cover() != ""
	if covers {
		if err := limiter.Wait(ctx); err != nil {
			entry.Error = err.Error()
			return entry
		}
	}

	path := filepath.Join(opts.OutputDir, p.ID+opts.Format.Extension())
	files, err := formatter.WriteFile(p, opts.Format, path, opts.Client, covers)
	if err != nil {
		entry.Error = err.Error()
		return entry
	}
	entry.Files = files
	return entry
}
