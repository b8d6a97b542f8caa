// Spotify Web API implementation of [Session], [Catalog] and [Mirror]
//
// Requests go through [spotify.Client]; the OAuth2 transport underneath refreshes the access token.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// maxTracksPerRequest is the Web API limit for playlist item writes.
const maxTracksPerRequest = 100

// SpotifyScopes are requested during authorization: playlist management plus playback control.
var SpotifyScopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
}

// SpotifyService implements [RemoteService] against the Spotify Web API.
type SpotifyService struct {
	config     *oauth2.Config
	apiBaseURL string
	limiter    *rate.Limiter
	base       *log.Logger // unlabelled, for components sharing the session
	logger     *log.Logger

	mu        sync.RWMutex
	client    *spotify.Client
	tokens    oauth2.TokenSource
	accountID string
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithAPIBaseURL points the service at a different Web API root (tests, proxies).
func WithAPIBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		s.apiBaseURL = u
	}
}

// WithSearchRate paces catalog searches to rps requests per second. Zero disables pacing.
func WithSearchRate(rps float64) SpotifyOption {
	return func(s *SpotifyService) {
		if rps <= 0 {
			s.limiter = nil
			return
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

func WithSpotifyLogger(l *log.Logger) SpotifyOption {
	return func(s *SpotifyService) {
		s.base = l
		s.logger = shared.WithLogger(l, "component", "spotify")
	}
}

// NewSpotifyService creates a Spotify service from the spotify credentials section.
//
// The service is unauthenticated until [SpotifyService.Authenticate] is called. A saved account id is reused.
func NewSpotifyService(cfg shared.SpotifyConfig, opts ...SpotifyOption) (*SpotifyService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := cfg.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  redirectURI,
			Scopes:       SpotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  spotifyauth.AuthURL,
				TokenURL: spotifyauth.TokenURL,
			},
		},
		accountID: cfg.AccountID,
		base:      shared.NewLogger(nil),
	}
	s.logger = shared.WithLogger(s.base, "component", "spotify")

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Authenticator returns a [spotifyauth.Authenticator] for the authorization-code flow with the same client settings.
func (s *SpotifyService) Authenticator() *spotifyauth.Authenticator {
	return spotifyauth.New(
		spotifyauth.WithClientID(s.config.ClientID),
		spotifyauth.WithClientSecret(s.config.ClientSecret),
		spotifyauth.WithRedirectURL(s.config.RedirectURL),
		spotifyauth.WithScopes(s.config.Scopes...),
	)
}

// Authenticate installs tok as the session credential. Expired tokens are refreshed on first use.
func (s *SpotifyService) Authenticate(ctx context.Context, tok *oauth2.Token) error {
	if tok == nil || (tok.AccessToken == "" && tok.RefreshToken == "") {
		return fmt.Errorf("%w: empty token", shared.ErrNotAuthenticated)
	}

	ts := oauth2.ReuseTokenSource(tok, s.config.TokenSource(context.WithoutCancel(ctx), tok))
	httpClient := oauth2.NewClient(context.WithoutCancel(ctx), ts)

	opts := []spotify.ClientOption{}
	if s.apiBaseURL != "" {
		opts = append(opts, spotify.WithBaseURL(s.apiBaseURL))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = ts
	s.client = spotify.New(httpClient, opts...)
	return nil
}

// Authenticated reports whether a session credential is installed.
func (s *SpotifyService) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil
}

// Logout drops the session credential.
func (s *SpotifyService) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.client = nil
	s.tokens = nil
}

// Token returns the current, possibly refreshed, session token.
func (s *SpotifyService) Token() (*oauth2.Token, error) {
	s.mu.RLock()
	ts := s.tokens
	s.mu.RUnlock()

	if ts == nil {
		return nil, shared.ErrNotAuthenticated
	}
	tok, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	return tok, nil
}

func (s *SpotifyService) api() (*spotify.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.client, nil
}

// AccountID returns the id of the authenticated account, looking it up once if it was not configured.
func (s *SpotifyService) AccountID(ctx context.Context) (string, error) {
	s.mu.RLock()
	id := s.accountID
	s.mu.RUnlock()
	if id != "" {
		return id, nil
	}

	client, err := s.api()
	if err != nil {
		return "", err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return "", translateSpotifyError(err)
	}

	s.mu.Lock()
	s.accountID = user.ID
	s.mu.Unlock()
	return user.ID, nil
}

// ResolveTrack searches for "<artist> <title>" and returns the first track, or (nil, nil) without a match.
func (s *SpotifyService) ResolveTrack(ctx context.Context, candidate models.Candidate) (*models.Track, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	query := shared.SearchQuery(candidate.Artist, candidate.Title)
	result, err := client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, translateSpotifyError(err)
	}

	if result.Tracks == nil || len(result.Tracks.Tracks) == 0 {
		return nil, nil
	}

	track := toTrack(result.Tracks.Tracks[0])
	return &track, nil
}

// CreatePlaylist creates a private playlist on the session's account.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string) (*RemotePlaylist, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}

	accountID, err := s.AccountID(ctx)
	if err != nil {
		return nil, err
	}

	pl, err := client.CreatePlaylistForUser(ctx, accountID, name, description, false, false)
	if err != nil {
		return nil, translateSpotifyError(err)
	}

	s.logger.Info("created remote playlist", "id", pl.ID, "name", name)
	return &RemotePlaylist{ID: string(pl.ID), URI: string(pl.URI)}, nil
}

// AddTracks appends tracks to a remote playlist, in batches of the API limit.
func (s *SpotifyService) AddTracks(ctx context.Context, remoteID string, trackURIs []string) (string, error) {
	client, err := s.api()
	if err != nil {
		return "", err
	}

	var snapshot string
	for _, batch := range batches(trackURIs, maxTracksPerRequest) {
		ids := make([]spotify.ID, 0, len(batch))
		for _, uri := range batch {
			ids = append(ids, trackIDFromURI(uri))
		}

		snapshot, err = client.AddTracksToPlaylist(ctx, spotify.ID(remoteID), ids...)
		if err != nil {
			return "", translateSpotifyError(err)
		}
	}
	return snapshot, nil
}

// ReplaceTracks overwrites the remote playlist's items with trackURIs.
//
// The first batch replaces; any remainder is appended.
func (s *SpotifyService) ReplaceTracks(ctx context.Context, remoteID string, trackURIs []string) (string, error) {
	client, err := s.api()
	if err != nil {
		return "", err
	}

	head := trackURIs
	if len(head) > maxTracksPerRequest {
		head = head[:maxTracksPerRequest]
	}

	items := make([]spotify.URI, 0, len(head))
	for _, uri := range head {
		items = append(items, spotify.URI(uri))
	}

	snapshot, err := client.ReplacePlaylistItems(ctx, spotify.ID(remoteID), items...)
	if err != nil {
		return "", translateSpotifyError(err)
	}

	if rest := trackURIs[len(head):]; len(rest) > 0 {
		return s.AddTracks(ctx, remoteID, rest)
	}
	return snapshot, nil
}

// toTrack maps a catalog search result to [models.Track].
func toTrack(ft spotify.FullTrack) models.Track {
	images := make([]models.Image, 0, len(ft.Album.Images))
	for _, img := range ft.Album.Images {
		images = append(images, models.Image{URL: img.URL, Width: int(img.Width), Height: int(img.Height)})
	}

	artists := make([]models.Artist, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		artists = append(artists, models.Artist{
			ID:          string(a.ID),
			Name:        a.Name,
			ExternalURL: a.ExternalURLs["spotify"],
		})
	}

	return models.Track{
		ID:          string(ft.ID),
		URI:         string(ft.URI),
		Name:        ft.Name,
		DurationMS:  int(ft.Duration),
		ExternalURL: ft.ExternalURLs["spotify"],
		Album: models.Album{
			ID:          string(ft.Album.ID),
			Type:        ft.Album.AlbumType,
			Name:        ft.Album.Name,
			ReleaseDate: ft.Album.ReleaseDate,
			Images:      images,
			ExternalURL: ft.Album.ExternalURLs["spotify"],
		},
		Artists: artists,
	}
}

// trackIDFromURI extracts the id from "spotify:track:<id>". Bare ids pass through.
func trackIDFromURI(uri string) spotify.ID {
	if i := strings.LastIndex(uri, ":"); i >= 0 {
		return spotify.ID(uri[i+1:])
	}
	return spotify.ID(uri)
}

func batches[T any](items []T, size int) [][]T {
	var out [][]T
	for len(items) > size {
		out = append(out, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		out = append(out, items)
	}
	return out
}

// translateSpotifyError maps client errors onto [shared.ErrNotAuthenticated] and [shared.RemoteAPIError].
func translateSpotifyError(err error) error {
	if err == nil {
		return nil
	}

	status, message := 0, ""
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		status, message = apiErr.Status, apiErr.Message
	}

	var retrieveErr *oauth2.RetrieveError
	switch {
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, message)
	case status != 0:
		return &shared.RemoteAPIError{Status: status, Message: message}
	case errors.As(err, &retrieveErr):
		return fmt.Errorf("%w: token refresh failed: %v", shared.ErrNotAuthenticated, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return fmt.Errorf("%w: %v", shared.ErrRemoteAPI, err)
	}
}
