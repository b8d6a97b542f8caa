// package formatter renders stored playlists as text, Markdown, CSV, JSON or YAML
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding accepted by [Render].
type Format string

const (
	Text     Format = "text"
	Markdown Format = "markdown"
	CSV      Format = "csv"
	JSON     Format = "json"
	YAML     Format = "yaml"
)

// ParseFormat maps a user supplied name to a [Format]. "" and "txt" are text, "md" is markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "markdown", "md":
		return Markdown, nil
	case "csv":
		return CSV, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Extension is the file suffix used when writing f to disk.
func (f Format) Extension() string {
	switch f {
	case Markdown:
		return ".md"
	case CSV:
		return ".csv"
	case JSON:
		return ".json"
	case YAML:
		return ".yaml"
	default:
		return ".txt"
	}
}

// Render encodes p in format f and writes it to w.
func Render(w io.Writer, p *models.Playlist, f Format) error {
	var (
		data []byte
		err  error
	)
	switch f {
	case Markdown:
		data, err = ExportToMarkdown(p, p.Cover())
	case CSV:
		data, err = ExportToCSV(p)
	case JSON:
		data, err = ExportToJSON(p)
	case YAML:
		data, err = ExportToYAML(p)
	default:
		data, err = ExportToText(p)
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s output: %w", f, err)
	}
	return nil
}

// FormatDuration renders d as m:ss.
func FormatDuration(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// ExportToCSV writes one row per track: Position, ID, Name, Artists, Album, Duration, URI
func ExportToCSV(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Name", "Artists", "Album", "Duration", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, t := range p.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			t.ID,
			t.Name,
			t.ArtistNames(),
			t.Album.Name,
			FormatDuration(t.Duration()),
			t.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown renders a playlist page. coverRef, when set, is linked as the cover image.
func ExportToMarkdown(p *models.Playlist, coverRef string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", p.Name)
	if coverRef != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", coverRef)
	}
	if p.Description != "" {
		fmt.Fprintf(&buf, "> %s\n\n", p.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(p.Tracks))
	fmt.Fprintf(&buf, "**Created**: %s\n", p.CreatedAt.Format(time.DateTime))
	if p.Mirrored() {
		fmt.Fprintf(&buf, "**Spotify**: %s\n", *p.RemoteURI)
	} else {
		buf.WriteString("**Spotify**: not synced\n")
	}

	buf.WriteString("\n## Tracks\n\n")
	for i, t := range p.Tracks {
		name := t.Name
		if t.ExternalURL != "" {
			name = fmt.Sprintf("[%s](%s)", t.Name, t.ExternalURL)
		}
		album := ""
		if t.Album.Name != "" {
			album = fmt.Sprintf(" (%s)", t.Album.Name)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s]\n", i+1, t.ArtistNames(), name, album, FormatDuration(t.Duration()))
	}

	if n := len(p.GeneratedCandidates) - len(p.Tracks); n > 0 {
		fmt.Fprintf(&buf, "\n_%d suggested tracks could not be found in the catalog._\n", n)
	}
	return buf.Bytes(), nil
}

// ExportToText renders a plain listing.
func ExportToText(p *models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&buf, "Prompt: %s\n", p.Description)
	}
	if p.Mirrored() {
		fmt.Fprintf(&buf, "Spotify: %s\n", *p.RemoteURI)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(p.Tracks))

	for i, t := range p.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, t.ArtistNames(), t.Name)
	}
	return buf.Bytes(), nil
}

// ExportToJSON encodes the full playlist record, indented.
func ExportToJSON(p *models.Playlist) ([]byte, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal playlist: %w", err)
	}
	return append(data, '\n'), nil
}

type yamlPlaylist struct {
	Name    string      `yaml:"name"`
	Prompt  string      `yaml:"prompt,omitempty"`
	Spotify string      `yaml:"spotify,omitempty"`
	Created time.Time   `yaml:"created"`
	Updated time.Time   `yaml:"updated"`
	Tracks  []yamlTrack `yaml:"tracks"`
}

type yamlTrack struct {
	Artist   string `yaml:"artist"`
	Title    string `yaml:"title"`
	Album    string `yaml:"album,omitempty"`
	Duration string `yaml:"duration"`
	URI      string `yaml:"uri"`
}

// ExportToYAML writes a hand-editable summary of p. Unlike JSON it omits generator candidates and ids.
func ExportToYAML(p *models.Playlist) ([]byte, error) {
	doc := yamlPlaylist{
		Name:    p.Name,
		Prompt:  p.Description,
		Created: p.CreatedAt.UTC(),
		Updated: p.UpdatedAt.UTC(),
		Tracks:  make([]yamlTrack, 0, len(p.Tracks)),
	}
	if p.Mirrored() {
		doc.Spotify = *p.RemoteURI
	}
	for _, t := range p.Tracks {
		doc.Tracks = append(doc.Tracks, yamlTrack{
			Artist:   t.ArtistNames(),
			Title:    t.Name,
			Album:    t.Album.Name,
			Duration: FormatDuration(t.Duration()),
			URI:      t.URI,
		})
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("failed to marshal playlist: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to marshal playlist: %w", err)
	}
	return buf.Bytes(), nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty image URL", shared.ErrMissingArgument)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// WriteFile renders p in format f to path and returns the files written.
//
// Markdown gets its own directory ({path}/README.md) so the cover can sit next to it when
// withCover is set and the first track has artwork. A failed cover download is not fatal.
func WriteFile(p *models.Playlist, f Format, path string, client *http.Client, withCover bool) ([]string, error) {
	if path == "" {
		path = p.ID + f.Extension()
	}

	if f != Markdown {
		var buf bytes.Buffer
		if err := Render(&buf, p, f); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		return []string{path}, nil
	}

	dir := strings.TrimSuffix(path, Markdown.Extension())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var files []string
	cover := p.Cover()
	if withCover && cover != "" {
		if data, err := DownloadImage(client, cover); err == nil {
			coverPath := filepath.Join(dir, "cover.jpg")
			if err := os.WriteFile(coverPath, data, 0o644); err == nil {
				files = append(files, coverPath)
				cover = "cover.jpg"
			}
		}
	}

	data, err := ExportToMarkdown(p, cover)
	if err != nil {
		return nil, err
	}
	readme := filepath.Join(dir, "README.md")
	if err := os.WriteFile(readme, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return append(files, readme), nil
}

// ManifestEntry records the outcome of exporting one playlist.
type ManifestEntry struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Files []string `json:"files,omitempty"`
	Error string   `json:"error,omitempty"`
}

// Manifest summarizes a bulk export.
type Manifest struct {
	ExportedAt time.Time       `json:"exported_at"`
	Format     Format          `json:"format"`
	Directory  string          `json:"directory"`
	Succeeded  int             `json:"succeeded"`
	Failed     int             `json:"failed"`
	Playlists  []ManifestEntry `json:"playlists"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m *Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
