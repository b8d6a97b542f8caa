package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// SpotifyPlayer implements [Player] through the Web API's Connect endpoints.
type SpotifyPlayer struct {
	service *SpotifyService
	logger  *log.Logger

	mu       sync.Mutex
	deviceID string
	ready    chan ReadyEvent
	closed   bool
}

// NewSpotifyPlayer creates a player that shares the session of service.
func NewSpotifyPlayer(service *SpotifyService) *SpotifyPlayer {
	return &SpotifyPlayer{
		service: service,
		logger:  shared.WithLogger(service.base, "component", "player"),
	}
}

// Connect picks the active device, or the first available one, and publishes the ready event.
//
// Reconnecting replaces the previous connection's channel.
func (p *SpotifyPlayer) Connect(ctx context.Context) (string, error) {
	p.mu.Lock()
	p.closeReadyLocked()
	ready := make(chan ReadyEvent, 1)
	p.ready, p.closed, p.deviceID = ready, false, ""
	p.mu.Unlock()

	deviceID, err := p.pickDevice(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready != ready || p.closed {
		return deviceID, err
	}
	p.deviceID = deviceID
	ready <- ReadyEvent{DeviceID: deviceID, Err: err}
	p.closeReadyLocked()

	if err != nil {
		p.logger.Warn("no playback device", "err", err)
		return "", err
	}
	p.logger.Info("player ready", "device", deviceID)
	return deviceID, nil
}

func (p *SpotifyPlayer) pickDevice(ctx context.Context) (string, error) {
	client, err := p.service.api()
	if err != nil {
		return "", err
	}

	devices, err := client.PlayerDevices(ctx)
	if err != nil {
		return "", translateSpotifyError(err)
	}

	var fallback string
	for _, d := range devices {
		if d.ID == "" || d.Restricted {
			continue
		}
		if d.Active {
			return string(d.ID), nil
		}
		if fallback == "" {
			fallback = string(d.ID)
		}
	}

	if fallback == "" {
		return "", shared.ErrNoDevice
	}
	return fallback, nil
}

// Ready returns the current connection's event channel. Before Connect it is nil.
func (p *SpotifyPlayer) Ready() <-chan ReadyEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

func (p *SpotifyPlayer) device() (*spotify.ID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.deviceID == "" {
		return nil, shared.ErrNoDevice
	}
	id := spotify.ID(p.deviceID)
	return &id, nil
}

// Play starts trackURI. With a contextURI the track is played as an offset inside that playlist.
func (p *SpotifyPlayer) Play(ctx context.Context, trackURI, contextURI string) error {
	if trackURI == "" {
		return fmt.Errorf("%w: empty track uri", shared.ErrInvalidInput)
	}

	client, err := p.service.api()
	if err != nil {
		return err
	}
	deviceID, err := p.device()
	if err != nil {
		return err
	}

	opts := &spotify.PlayOptions{DeviceID: deviceID}
	if contextURI != "" {
		playbackContext := spotify.URI(contextURI)
		opts.PlaybackContext = &playbackContext
		opts.PlaybackOffset = &spotify.PlaybackOffset{URI: spotify.URI(trackURI)}
	} else {
		opts.URIs = []spotify.URI{spotify.URI(trackURI)}
	}

	if err := client.PlayOpt(ctx, opts); err != nil {
		return translateSpotifyError(err)
	}
	return nil
}

// Toggle pauses or resumes trackURI when it is the current item, otherwise it plays it.
func (p *SpotifyPlayer) Toggle(ctx context.Context, trackURI, contextURI string) error {
	client, err := p.service.api()
	if err != nil {
		return err
	}
	deviceID, err := p.device()
	if err != nil {
		return err
	}

	state, err := client.PlayerState(ctx)
	if err != nil {
		return translateSpotifyError(err)
	}

	if state.Item == nil || string(state.Item.URI) != trackURI {
		return p.Play(ctx, trackURI, contextURI)
	}

	if state.Playing {
		err = client.PauseOpt(ctx, &spotify.PlayOptions{DeviceID: deviceID})
	} else {
		err = client.PlayOpt(ctx, &spotify.PlayOptions{DeviceID: deviceID})
	}
	return translateSpotifyError(err)
}

func (p *SpotifyPlayer) Pause(ctx context.Context) error {
	client, err := p.service.api()
	if err != nil {
		return err
	}

	opts := &spotify.PlayOptions{}
	if deviceID, err := p.device(); err == nil {
		opts.DeviceID = deviceID
	}

	return translateSpotifyError(client.PauseOpt(ctx, opts))
}

// Disconnect forgets the device and closes the ready channel.
//
// An undelivered ready event is dropped: after Disconnect, Ready yields a closed channel with nothing buffered.
func (p *SpotifyPlayer) Disconnect() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deviceID = ""
	p.closeReadyLocked()
	if p.ready != nil {
		drained := make(chan ReadyEvent)
		close(drained)
		p.ready = drained
	}
}

func (p *SpotifyPlayer) closeReadyLocked() {
	if p.ready != nil && !p.closed {
		close(p.ready)
		p.closed = true
	}
}
