package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/moodmix/internal/formatter"
	"github.com/desertthunder/moodmix/internal/models"
)

var (
	_ list.Item = playlistItem{}
	_ list.Item = trackItem{}
)

// playlistItem wraps [models.Playlist] to implement [list.Item].
type playlistItem struct {
	playlist models.Playlist
	selected bool
}

func (i playlistItem) FilterValue() string { return i.playlist.Name }
func (i playlistItem) Title() string {
	if i.selected {
		return "● " + i.playlist.Name
	}
	return i.playlist.Name
}
func (i playlistItem) Description() string {
	desc := fmt.Sprintf("%d tracks • %s", len(i.playlist.Tracks), i.playlist.CreatedAt.Local().Format("Jan 2 15:04"))
	if !i.playlist.Mirrored() {
		desc += " • local only"
	}
	if i.playlist.Description != "" {
		desc = fmt.Sprintf("%s • %q", desc, i.playlist.Description)
	}
	return desc
}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track models.Track
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	desc := i.track.ArtistNames()
	if i.track.Album.Name != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.track.Album.Name)
	}
	return fmt.Sprintf("%s • %s", desc, formatter.FormatDuration(i.track.Duration()))
}

func playlistItems(playlists []models.Playlist, selectedID string) []list.Item {
	items := make([]list.Item, len(playlists))
	for i, p := range playlists {
		items[i] = playlistItem{playlist: p, selected: p.ID == selectedID}
	}
	return items
}

func trackItems(p *models.Playlist) []list.Item {
	items := make([]list.Item, len(p.Tracks))
	for i, t := range p.Tracks {
		items[i] = trackItem{track: t}
	}
	return items
}
