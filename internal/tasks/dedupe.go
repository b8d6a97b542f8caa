package tasks

import (
	"fmt"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
)

// Dedupe drops repeated catalog ids, keeping the first occurrence and the original order.
//
// A track without an id is rejected with [shared.ErrInvalidTrack].
func Dedupe(tracks []models.Track) ([]models.Track, error) {
	seen := make(map[string]struct{}, len(tracks))
	unique := make([]models.Track, 0, len(tracks))

	for i, t := range tracks {
		if t.ID == "" {
			return nil, fmt.Errorf("%w: track %d (%s) has no catalog id", shared.ErrInvalidTrack, i, t.Name)
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		unique = append(unique, t)
	}

	return unique, nil
}
