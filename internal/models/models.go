// package models defines the data model for generated playlists
package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Model defines the base interface for persistent records.
type Model interface {
	Key() string     // Key returns the unique identifier used by the store
	Validate() error // Validate checks if the model's data is valid and returns an error if not
}

// Image is album artwork at one resolution.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

// Album is the album a [Track] belongs to.
type Album struct {
	ID          string  `json:"id"`
	Type        string  `json:"type"`
	Name        string  `json:"name"`
	ReleaseDate string  `json:"release_date"`
	Images      []Image `json:"images"`
	ExternalURL string  `json:"external_url"`
}

// Cover returns the URL of the first album image or "".
func (a Album) Cover() string {
	if len(a.Images) == 0 {
		return ""
	}
	return a.Images[0].URL
}

// Artist is a credited performer of a [Track].
type Artist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	ExternalURL string `json:"external_url"`
}

// Track is a catalog entry resolved from a [Candidate].
type Track struct {
	ID          string   `json:"id"`
	URI         string   `json:"uri"`
	Name        string   `json:"name"`
	DurationMS  int      `json:"duration_ms"`
	ExternalURL string   `json:"external_url"`
	Album       Album    `json:"album"`
	Artists     []Artist `json:"artists"`
}

// ArtistNames joins the names of all credited artists.
func (t Track) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// Duration returns the track length as a [time.Duration].
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// Candidate is one (artist, title) pair proposed by the generator, before catalog resolution.
//
// The JSON names are the generator's wire contract.
type Candidate struct {
	Artist string `json:"trackAuthor"`
	Title  string `json:"trackName"`
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s - %s", c.Artist, c.Title)
}

// Suggestion is the generator output: a playlist name and its ordered candidates.
type Suggestion struct {
	Name       string      `json:"playlistName"`
	Candidates []Candidate `json:"tracks"`
}

// Validate enforces the generator contract: a non-blank name and at least one complete candidate.
func (s *Suggestion) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("missing playlistName")
	}
	if len(s.Candidates) == 0 {
		return fmt.Errorf("no tracks")
	}
	for i, c := range s.Candidates {
		if strings.TrimSpace(c.Artist) == "" || strings.TrimSpace(c.Title) == "" {
			return fmt.Errorf("track %d is missing trackAuthor or trackName", i)
		}
	}
	return nil
}

// Playlist is a generated playlist and its optional remote mirror.
//
// RemoteID and RemoteURI are both nil until the first successful remote create.
type Playlist struct {
	ID                  string      `json:"id"`
	RemoteID            *string     `json:"remote_id"`
	RemoteURI           *string     `json:"remote_uri"`
	Name                string      `json:"name"`
	Description         string      `json:"description"`
	Tracks              []Track     `json:"tracks"`
	GeneratedCandidates []Candidate `json:"generated_candidates"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

func (p *Playlist) Key() string { return p.ID }

// Validate checks the invariants a stored playlist must hold.
func (p *Playlist) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("playlist id is required")
	}
	if (p.RemoteID == nil) != (p.RemoteURI == nil) {
		return fmt.Errorf("playlist %s: remote id and uri must be set together", p.ID)
	}
	seen := make(map[string]struct{}, len(p.Tracks))
	for _, t := range p.Tracks {
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("playlist %s: duplicate track %s", p.ID, t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	return nil
}

// Mirrored reports whether the playlist has a remote copy.
func (p *Playlist) Mirrored() bool {
	return p.RemoteID != nil
}

// SetRemote records the identifiers of the remote copy.
func (p *Playlist) SetRemote(id, uri string) {
	p.RemoteID = &id
	p.RemoteURI = &uri
}

// TrackURIs returns the catalog URIs of the tracks in order.
func (p *Playlist) TrackURIs() []string {
	uris := make([]string, 0, len(p.Tracks))
	for _, t := range p.Tracks {
		uris = append(uris, t.URI)
	}
	return uris
}

// Cover returns the artwork of the first track that has any, or "".
func (p *Playlist) Cover() string {
	for _, t := range p.Tracks {
		if c := t.Album.Cover(); c != "" {
			return c
		}
	}
	return ""
}

// Clone returns a copy that shares no slices or pointers with p.
func (p *Playlist) Clone() *Playlist {
	c := *p
	c.Tracks = append([]Track(nil), p.Tracks...)
	c.GeneratedCandidates = append([]Candidate(nil), p.GeneratedCandidates...)
	if p.RemoteID != nil {
		c.SetRemote(*p.RemoteID, *p.RemoteURI)
	}
	return &c
}

// SortByCreatedDesc orders playlists newest first. Ties keep id order for stable output.
func SortByCreatedDesc(playlists []Playlist) {
	sort.SliceStable(playlists, func(i, j int) bool {
		if playlists[i].CreatedAt.Equal(playlists[j].CreatedAt) {
			return playlists[i].ID < playlists[j].ID
		}
		return playlists[i].CreatedAt.After(playlists[j].CreatedAt)
	})
}
