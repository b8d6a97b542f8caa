package tasks

import (
	"context"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/services"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds in-flight catalog searches when none is configured.
const DefaultConcurrency = 8

// resolveAll resolves every candidate concurrently.
//
// Results are placed by candidate index so the returned tracks follow candidate order. A failed or empty lookup
// drops that candidate only; siblings keep running. The second return value lists the dropped candidates.
func resolveAll(
	ctx context.Context,
	catalog services.Catalog,
	candidates []models.Candidate,
	concurrency int,
	logger *log.Logger,
	progress chan<- ProgressUpdate,
) ([]models.Track, []models.Candidate) {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	slots := make([]*models.Track, len(candidates))
	total := len(candidates)
	var done atomic.Int32

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, c := range candidates {
		g.Go(func() error {
			track, err := catalog.ResolveTrack(ctx, c)
			step := int(done.Add(1))
			if err != nil {
				logger.Warn("failed to resolve candidate", "candidate", c.String(), "error", err)
				sendProgress(progress, resolvedUpdate(step, total, c, nil))
				return nil
			}
			if track == nil {
				logger.Debug("no catalog match", "candidate", c.String())
			}
			slots[i] = track
			sendProgress(progress, resolvedUpdate(step, total, c, track))
			return nil
		})
	}
	_ = g.Wait()

	tracks := make([]models.Track, 0, len(candidates))
	var dropped []models.Candidate
	for i, t := range slots {
		if t == nil {
			dropped = append(dropped, candidates[i])
			continue
		}
		tracks = append(tracks, *t)
	}
	return tracks, dropped
}
