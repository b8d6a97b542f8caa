package services

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/desertthunder/moodmix/internal/shared"
)

func TestSpotifyPlayer(t *testing.T) {
	ctx := context.Background()

	t.Run("Connect", func(t *testing.T) {
		t.Run("prefers active device", func(t *testing.T) {
			f := newFakeSpotify(t)
			f.devices = `{"devices":[
				{"id":"dev-1","is_active":false,"name":"Laptop"},
				{"id":"dev-2","is_active":true,"name":"Phone"}]}`
			p := NewSpotifyPlayer(newAuthedService(t, f))

			id, err := p.Connect(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != "dev-2" {
				t.Errorf("expected active device dev-2, got %s", id)
			}
		})

		t.Run("falls back to first usable device", func(t *testing.T) {
			f := newFakeSpotify(t)
			f.devices = `{"devices":[
				{"id":"dev-r","is_active":false,"is_restricted":true},
				{"id":"dev-1","is_active":false}]}`
			p := NewSpotifyPlayer(newAuthedService(t, f))

			if id, _ := p.Connect(ctx); id != "dev-1" {
				t.Errorf("expected dev-1, got %s", id)
			}
		})

		t.Run("ready fires exactly once", func(t *testing.T) {
			f := newFakeSpotify(t)
			p := NewSpotifyPlayer(newAuthedService(t, f))

			if p.Ready() != nil {
				t.Error("ready channel should be nil before connect")
			}

			if _, err := p.Connect(ctx); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			ready := p.Ready()
			ev, ok := <-ready
			if !ok || ev.Err != nil || ev.DeviceID != "dev-1" {
				t.Errorf("unexpected ready event %+v (open=%v)", ev, ok)
			}
			if _, ok := <-ready; ok {
				t.Error("ready channel should be closed after the single event")
			}
		})

		t.Run("no devices", func(t *testing.T) {
			f := newFakeSpotify(t)
			f.devices = `{"devices":[]}`
			p := NewSpotifyPlayer(newAuthedService(t, f))

			_, err := p.Connect(ctx)
			if !errors.Is(err, shared.ErrNoDevice) {
				t.Fatalf("expected ErrNoDevice, got %v", err)
			}

			ev := <-p.Ready()
			if !errors.Is(ev.Err, shared.ErrNoDevice) {
				t.Errorf("ready event should carry the error, got %+v", ev)
			}
		})

		t.Run("unauthenticated", func(t *testing.T) {
			s, _ := NewSpotifyService(testCredentials())
			p := NewSpotifyPlayer(s)

			if _, err := p.Connect(ctx); !errors.Is(err, shared.ErrNotAuthenticated) {
				t.Errorf("expected ErrNotAuthenticated, got %v", err)
			}
		})
	})

	t.Run("Play", func(t *testing.T) {
		t.Run("requires connection", func(t *testing.T) {
			f := newFakeSpotify(t)
			p := NewSpotifyPlayer(newAuthedService(t, f))

			if err := p.Play(ctx, "spotify:track:t1", ""); !errors.Is(err, shared.ErrNoDevice) {
				t.Errorf("expected ErrNoDevice, got %v", err)
			}
		})

		t.Run("single track", func(t *testing.T) {
			f := newFakeSpotify(t)
			p := NewSpotifyPlayer(newAuthedService(t, f))
			_, _ = p.Connect(ctx)

			if err := p.Play(ctx, "spotify:track:t1", ""); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			body := f.body("PUT /me/player/play", 0)
			if !strings.Contains(body, `"uris":["spotify:track:t1"]`) || strings.Contains(body, "context_uri") {
				t.Errorf("unexpected play body %s", body)
			}
			if q := f.body("PUT /me/player/play?", 0); q != "device_id=dev-1" {
				t.Errorf("expected device_id query, got %q", q)
			}
		})

		t.Run("inside playlist context", func(t *testing.T) {
			f := newFakeSpotify(t)
			p := NewSpotifyPlayer(newAuthedService(t, f))
			_, _ = p.Connect(ctx)

			if err := p.Play(ctx, "spotify:track:t2", "spotify:playlist:pl1"); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			body := f.body("PUT /me/player/play", 0)
			if !strings.Contains(body, `"context_uri":"spotify:playlist:pl1"`) || !strings.Contains(body, `"offset":{"uri":"spotify:track:t2"}`) {
				t.Errorf("unexpected play body %s", body)
			}
		})

		t.Run("empty uri", func(t *testing.T) {
			f := newFakeSpotify(t)
			p := NewSpotifyPlayer(newAuthedService(t, f))
			if err := p.Play(ctx, "", ""); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("remote failure", func(t *testing.T) {
			f := newFakeSpotify(t)
			f.fail("PUT /me/player/play", http.StatusForbidden)
			p := NewSpotifyPlayer(newAuthedService(t, f))
			_, _ = p.Connect(ctx)

			if err := p.Play(ctx, "spotify:track:t1", ""); shared.RemoteStatus(err) != http.StatusForbidden {
				t.Errorf("expected RemoteAPIError 403, got %v", err)
			}
		})
	})

	t.Run("Toggle", func(t *testing.T) {
		tests := []struct {
			name      string
			state     string
			wantPlay  int
			wantPause int
			wantBody  string
		}{
			{
				name:      "playing same track pauses",
				state:     `{"is_playing":true,"item":{"id":"t1","uri":"spotify:track:t1"}}`,
				wantPause: 1,
			},
			{
				name:     "paused same track resumes",
				state:    `{"is_playing":false,"item":{"id":"t1","uri":"spotify:track:t1"}}`,
				wantPlay: 1,
				wantBody: "{}",
			},
			{
				name:     "different track plays it",
				state:    `{"is_playing":true,"item":{"id":"t9","uri":"spotify:track:t9"}}`,
				wantPlay: 1,
				wantBody: `"uris":["spotify:track:t1"]`,
			},
			{
				name:     "nothing playing plays it",
				state:    `{}`,
				wantPlay: 1,
				wantBody: `"uris":["spotify:track:t1"]`,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				f := newFakeSpotify(t)
				f.state = tt.state
				p := NewSpotifyPlayer(newAuthedService(t, f))
				_, _ = p.Connect(ctx)

				if err := p.Toggle(ctx, "spotify:track:t1", ""); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if n := f.count("PUT /me/player/play"); n != tt.wantPlay {
					t.Errorf("expected %d play calls, got %d", tt.wantPlay, n)
				}
				if n := f.count("PUT /me/player/pause"); n != tt.wantPause {
					t.Errorf("expected %d pause calls, got %d", tt.wantPause, n)
				}
				if tt.wantBody != "" && !strings.Contains(f.body("PUT /me/player/play", 0), tt.wantBody) {
					t.Errorf("expected play body to contain %s, got %s", tt.wantBody, f.body("PUT /me/player/play", 0))
				}
			})
		}
	})

	t.Run("Pause without device uses active device", func(t *testing.T) {
		f := newFakeSpotify(t)
		p := NewSpotifyPlayer(newAuthedService(t, f))

		if err := p.Pause(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if q := f.body("PUT /me/player/pause?", 0); q != "" {
			t.Errorf("expected no device_id, got %q", q)
		}
	})

	t.Run("Disconnect", func(t *testing.T) {
		f := newFakeSpotify(t)
		p := NewSpotifyPlayer(newAuthedService(t, f))
		_, _ = p.Connect(ctx)

		p.Disconnect()
		p.Disconnect()

		if err := p.Play(ctx, "spotify:track:t1", ""); !errors.Is(err, shared.ErrNoDevice) {
			t.Errorf("expected ErrNoDevice after disconnect, got %v", err)
		}
		if _, ok := <-p.Ready(); ok {
			t.Error("expected ready channel to be closed")
		}
	})

	t.Run("Disconnect drops the undelivered ready event", func(t *testing.T) {
		f := newFakeSpotify(t)
		p := NewSpotifyPlayer(newAuthedService(t, f))
		if _, err := p.Connect(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		p.Disconnect()
		if ev, ok := <-p.Ready(); ok {
			t.Errorf("expected no event after disconnect, got %+v", ev)
		}

		if _, err := p.Connect(ctx); err != nil {
			t.Fatalf("unexpected error on reconnect: %v", err)
		}
		if ev, ok := <-p.Ready(); !ok || ev.DeviceID != "dev-1" {
			t.Errorf("expected a fresh ready event, got %+v (open=%v)", ev, ok)
		}
	})

	t.Run("logs under its own component", func(t *testing.T) {
		var buf bytes.Buffer
		f := newFakeSpotify(t)
		p := NewSpotifyPlayer(newAuthedService(t, f, WithSpotifyLogger(shared.NewLogger(&buf))))
		if _, err := p.Connect(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "component=player") {
			t.Errorf("expected player component, got %q", out)
		}
		if strings.Contains(out, "component=spotify") {
			t.Errorf("player log lines should not carry the service component, got %q", out)
		}
	})
}
