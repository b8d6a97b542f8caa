package formatter

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	th "github.com/desertthunder/moodmix/internal/testing"
	"gopkg.in/yaml.v3"
)

func samplePlaylist(cover string) *models.Playlist {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := &models.Playlist{
		ID:          "a1b2",
		Name:        "Disco Revival",
		Description: "80s disco night",
		CreatedAt:   created,
		UpdatedAt:   created,
		Tracks: []models.Track{
			{
				ID:          "v1",
				URI:         "spotify:track:v1",
				Name:        "Vogue",
				DurationMS:  316000,
				ExternalURL: "https://open.spotify.com/track/v1",
				Album:       models.Album{Name: "I'm Breathless", Images: []models.Image{{URL: cover}}},
				Artists:     []models.Artist{{Name: "Madonna"}},
			},
			{
				ID:         "w1",
				URI:        "spotify:track:w1",
				Name:       "Le Freak",
				DurationMS: 65000,
				Album:      models.Album{Name: "C'est Chic"},
				Artists:    []models.Artist{{Name: "Chic"}, {Name: "Nile Rodgers"}},
			},
		},
		GeneratedCandidates: []models.Candidate{
			{Artist: "Madonna", Title: "Vogue"},
			{Artist: "Chic", Title: "Le Freak"},
			{Artist: "Nobody", Title: "Unknown"},
		},
	}
	return p
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "", want: Text},
		{in: "txt", want: Text},
		{in: "Markdown", want: Markdown},
		{in: "md", want: Markdown},
		{in: " csv ", want: CSV},
		{in: "json", want: JSON},
		{in: "yml", want: YAML},
		{in: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidArgument) {
					t.Errorf("expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0:00"},
		{65 * time.Second, "1:05"},
		{316 * time.Second, "5:16"},
		{59500 * time.Millisecond, "1:00"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestExporters(t *testing.T) {
	p := samplePlaylist("https://i.scdn.co/cover")

	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(p)
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if lines[0] != "Position,ID,Name,Artists,Album,Duration,URI" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if lines[1] != "1,v1,Vogue,Madonna,I'm Breathless,5:16,spotify:track:v1" {
			t.Errorf("unexpected first row %q", lines[1])
		}
		if !strings.Contains(lines[2], `"Chic, Nile Rodgers"`) {
			t.Errorf("multiple artists should be quoted, got %q", lines[2])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("with cover image", func(t *testing.T) {
			data, _ := ExportToMarkdown(p, "cover.jpg")
			out := string(data)

			for _, want := range []string{
				"# Disco Revival",
				"![Cover](cover.jpg)",
				"> 80s disco night",
				"**Tracks**: 2",
				"**Spotify**: not synced",
				"1. Madonna - [Vogue](https://open.spotify.com/track/v1) (I'm Breathless) [5:16]",
				"2. Chic, Nile Rodgers - Le Freak (C'est Chic) [1:05]",
				"_1 suggested tracks could not be found in the catalog._",
			} {
				if !strings.Contains(out, want) {
					t.Errorf("markdown missing %q:\n%s", want, out)
				}
			}
		})

		t.Run("without cover image", func(t *testing.T) {
			mirrored := p.Clone()
			mirrored.SetRemote("p123", "spotify:playlist:p123")
			mirrored.GeneratedCandidates = mirrored.GeneratedCandidates[:2]

			data, _ := ExportToMarkdown(mirrored, "")
			out := string(data)
			if strings.Contains(out, "![Cover]") {
				t.Error("unexpected cover reference")
			}
			if !strings.Contains(out, "**Spotify**: spotify:playlist:p123") {
				t.Error("expected remote uri")
			}
			if strings.Contains(out, "could not be found") {
				t.Error("unexpected unresolved note")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, _ := ExportToText(p)
		want := "Playlist: Disco Revival\nPrompt: 80s disco night\nTracks: 2\n\n" +
			"1. Madonna - Vogue\n2. Chic, Nile Rodgers - Le Freak\n"
		if string(data) != want {
			t.Errorf("unexpected text output:\n%s", data)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(p)
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded models.Playlist
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if decoded.ID != p.ID || len(decoded.Tracks) != 2 || len(decoded.GeneratedCandidates) != 3 {
			t.Errorf("decoded playlist lost data: %+v", decoded)
		}
		if !strings.Contains(string(data), `"remote_id": null`) {
			t.Error("expected explicit null remote id")
		}
	})

	t.Run("ExportToYAML", func(t *testing.T) {
		mirrored := p.Clone()
		mirrored.SetRemote("r1", "spotify:playlist:r1")

		data, err := ExportToYAML(mirrored)
		if err != nil {
			t.Fatalf("ExportToYAML failed: %v", err)
		}

		var decoded yamlPlaylist
		if err := yaml.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("output is not valid YAML: %v", err)
		}
		if decoded.Name != "Disco Revival" || decoded.Spotify != "spotify:playlist:r1" {
			t.Errorf("unexpected header: %+v", decoded)
		}
		if len(decoded.Tracks) != 2 || decoded.Tracks[1].Artist != "Chic, Nile Rodgers" || decoded.Tracks[0].Duration != "5:16" {
			t.Errorf("unexpected tracks: %+v", decoded.Tracks)
		}
		if strings.Contains(string(data), "Unknown") {
			t.Error("generator candidates should not be exported")
		}
	})
}

func TestRender(t *testing.T) {
	p := samplePlaylist("")

	t.Run("dispatches by format", func(t *testing.T) {
		for _, f := range []Format{Text, Markdown, CSV, JSON, YAML} {
			var buf bytes.Buffer
			if err := Render(&buf, p, f); err != nil {
				t.Fatalf("Render(%s) failed: %v", f, err)
			}
			if buf.Len() == 0 {
				t.Errorf("Render(%s) wrote nothing", f)
			}
		}
	})

	t.Run("write error", func(t *testing.T) {
		if err := Render(&th.FWriter{}, p, Text); err == nil {
			t.Error("expected write error")
		}
	})

	t.Run("limited writer", func(t *testing.T) {
		var buf bytes.Buffer
		lw := th.NewLimitedWriter(0, 0, &buf)
		if err := Render(&lw, p, CSV); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestDownloadImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("jpegdata"))
	}))
	defer srv.Close()

	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(nil, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("OK", func(t *testing.T) {
		data, err := DownloadImage(srv.Client(), srv.URL+"/cover")
		if err != nil || string(data) != "jpegdata" {
			t.Errorf("unexpected result %q, %v", data, err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := DownloadImage(srv.Client(), srv.URL+"/missing"); err == nil {
			t.Error("expected error for 404")
		}
	})
}

func TestWriteFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("jpegdata"))
	}))
	defer srv.Close()

	t.Run("csv to custom path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "out.csv")
		files, err := WriteFile(samplePlaylist(""), CSV, path, nil, false)
		if err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if len(files) != 1 || files[0] != path {
			t.Errorf("unexpected files %v", files)
		}
		if !strings.HasPrefix(th.MustReadFile(t, path), "Position,ID") {
			t.Error("expected CSV content")
		}
	})

	t.Run("default path uses playlist id", func(t *testing.T) {
		dir := t.TempDir()
		wd, _ := os.Getwd()
		if err := os.Chdir(dir); err != nil {
			t.Fatal(err)
		}
		defer os.Chdir(wd)

		files, err := WriteFile(samplePlaylist(""), JSON, "", nil, false)
		if err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if files[0] != "a1b2.json" {
			t.Errorf("unexpected default path %q", files[0])
		}
		th.AssertFileExists(t, filepath.Join(dir, "a1b2.json"))
	})

	t.Run("markdown with cover", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "a1b2.md")
		files, err := WriteFile(samplePlaylist(srv.URL+"/cover"), Markdown, base, srv.Client(), true)
		if err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}

		dir := strings.TrimSuffix(base, ".md")
		if len(files) != 2 {
			t.Fatalf("expected cover and README, got %v", files)
		}
		th.AssertFileExists(t, filepath.Join(dir, "cover.jpg"))
		if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "README.md")), "![Cover](cover.jpg)") {
			t.Error("README should link the local cover")
		}
	})

	t.Run("markdown without cover download", func(t *testing.T) {
		base := filepath.Join(t.TempDir(), "a1b2")
		files, err := WriteFile(samplePlaylist(srv.URL+"/cover"), Markdown, base, nil, false)
		if err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if len(files) != 1 {
			t.Errorf("expected only README, got %v", files)
		}
		if !strings.Contains(th.MustReadFile(t, files[0]), "![Cover]("+srv.URL+"/cover)") {
			t.Error("README should link the remote cover")
		}
	})

	t.Run("unwritable path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "out.txt")
		if _, err := WriteFile(samplePlaylist(""), Text, path, nil, false); err == nil {
			t.Error("expected error")
		}
	})
}

func TestWriteManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	m := &Manifest{
		Format:    CSV,
		Directory: "out",
		Succeeded: 1,
		Failed:    1,
		Playlists: []ManifestEntry{
			{ID: "a", Name: "A", Files: []string{"out/a.csv"}},
			{ID: "b", Name: "B", Error: "boom"},
		},
	}
	if err := WriteManifest(m, path); err != nil {
		t.Fatalf("WriteManifest failed: %v", err)
	}

	var decoded Manifest
	if err := json.Unmarshal([]byte(th.MustReadFile(t, path)), &decoded); err != nil {
		t.Fatalf("invalid manifest: %v", err)
	}
	if decoded.Succeeded != 1 || decoded.Failed != 1 || decoded.Playlists[1].Error != "boom" {
		t.Errorf("unexpected manifest %+v", decoded)
	}
}
