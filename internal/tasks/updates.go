package tasks

import (
	"fmt"

	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/models"
)

// ProgressUpdate represents a progress event during a pipeline operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Generate Phase = iota
	Resolve
	Store
	Mirror
	Export
)

func (p Phase) String() string {
	switch p {
	case Generate:
		return "generate"
	case Resolve:
		return "resolve"
	case Store:
		return "store"
	case Mirror:
		return "mirror"
	case Export:
		return "export"
	default:
		return ""
	}
}

// sendProgress sends an update without blocking. A nil or full channel drops it.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func generatingUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Generate,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Asking for %d songs...", count),
	}
}

func generatedUpdate(s *models.Suggestion) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Generate,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Suggested %q with %d songs", s.Name, len(s.Candidates)),
		Data:    s,
	}
}

func resolvedUpdate(step, total int, c models.Candidate, t *models.Track) ProgressUpdate {
	if t == nil {
		return ProgressUpdate{
			Phase:   Resolve,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s", step, total, c),
		}
	}
	return ProgressUpdate{
		Phase:   Resolve,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, c),
		Data:    t,
	}
}

func storedUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Store,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saved %s (%d tracks)", pl.Name, len(pl.Tracks)),
		Data:    pl,
	}
}

func mirroringUpdate(pl *models.Playlist) ProgressUpdate {
	verb := "Creating"
	if pl.Mirrored() {
		verb = "Updating"
	}
	return ProgressUpdate{
		Phase:   Mirror,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("%s playlist on Spotify...", verb),
	}
}

func mirroredUpdate(pl *models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Mirror,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist mirrored: %s (ID: %s)", pl.Name, *pl.RemoteID),
		Data:    pl,
	}
}

func exportedUpdate(step, total int, entry formatter.ManifestEntry) ProgressUpdate {
	if entry.Error != "" {
		return ProgressUpdate{
			Phase:   Export,
			Step:    step,
			Total:   total,
			Message: fmt.Sprintf("[%d/%d] ✗ %s: %s", step, total, entry.Name, entry.Error),
		}
	}
	return ProgressUpdate{
		Phase:   Export,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, entry.Name, len(entry.Files)),
		Data:    entry,
	}
}
