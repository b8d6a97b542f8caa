// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
)

// MockGenerator is a test double for [services.Generator]
type MockGenerator struct {
	mu         sync.Mutex
	Suggestion *models.Suggestion
	Err        error
	Prompts    []string
	Counts     []int
}

func (m *MockGenerator) GenerateCandidates(ctx context.Context, prompt string, count int) (*models.Suggestion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	m.Counts = append(m.Counts, count)
	if m.Err != nil {
		return nil, m.Err
	}
	s := *m.Suggestion
	s.Candidates = append([]models.Candidate(nil), m.Suggestion.Candidates...)
	return &s, nil
}

func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

// MockRemote is a test double for [services.RemoteService].
//
// Catalog maps "<artist>|<title>" to a track; SearchErrs maps the same key to a lookup failure.
type MockRemote struct {
	mu sync.Mutex

	LoggedIn   bool
	Catalog    map[string]models.Track
	SearchErrs map[string]error
	CreateErr  error
	AddErr     error
	ReplaceErr error

	Searches []models.Candidate
	Created  []string
	Added    map[string][]string
	Replaced map[string][]string
	nextID   int
}

// NewMockRemote returns an authenticated remote with the given catalog.
func NewMockRemote(catalog map[string]models.Track) *MockRemote {
	return &MockRemote{
		LoggedIn:   true,
		Catalog:    catalog,
		SearchErrs: map[string]error{},
		Added:      map[string][]string{},
		Replaced:   map[string][]string{},
	}
}

func CatalogKey(c models.Candidate) string { return c.Artist + "|" + c.Title }

func (m *MockRemote) Authenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.LoggedIn
}

func (m *MockRemote) ResolveTrack(ctx context.Context, c models.Candidate) (*models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Searches = append(m.Searches, c)
	if err, ok := m.SearchErrs[CatalogKey(c)]; ok {
		return nil, err
	}
	t, ok := m.Catalog[CatalogKey(c)]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *MockRemote) CreatePlaylist(ctx context.Context, name, description string) (*services.RemotePlaylist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.nextID++
	id := fmt.Sprintf("remote-%d", m.nextID)
	m.Created = append(m.Created, name)
	return &services.RemotePlaylist{ID: id, URI: "spotify:playlist:" + id}, nil
}

func (m *MockRemote) AddTracks(ctx context.Context, remoteID string, uris []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddErr != nil {
		return "", m.AddErr
	}
	m.Added[remoteID] = append(m.Added[remoteID], uris...)
	return "snap-add", nil
}

func (m *MockRemote) ReplaceTracks(ctx context.Context, remoteID string, uris []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReplaceErr != nil {
		return "", m.ReplaceErr
	}
	m.Replaced[remoteID] = append([]string(nil), uris...)
	return "snap-replace", nil
}

func (m *MockRemote) SearchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Searches)
}

// MockStore is an in-memory playlist store. Unavailable makes every call fail with [shared.ErrStoreUnavailable].
type MockStore struct {
	mu          sync.Mutex
	Unavailable bool
	UpsertErr   error
	DeleteErr   error
	Records     map[string]models.Playlist
	Upserts     int
	Selected    string
}

func NewMockStore(playlists ...models.Playlist) *MockStore {
	s := &MockStore{Records: map[string]models.Playlist{}}
	for _, p := range playlists {
		s.Records[p.ID] = *p.Clone()
	}
	return s
}

func (s *MockStore) Upsert(ctx context.Context, p *models.Playlist) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return "", shared.ErrStoreUnavailable
	}
	if s.UpsertErr != nil {
		return "", s.UpsertErr
	}
	if err := p.Validate(); err != nil {
		return "", errors.Join(shared.ErrInvalidInput, err)
	}
	s.Upserts++
	s.Records[p.ID] = *p.Clone()
	return p.ID, nil
}

func (s *MockStore) Get(ctx context.Context, id string) (*models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return nil, shared.ErrStoreUnavailable
	}
	p, ok := s.Records[id]
	if !ok {
		return nil, shared.ErrPlaylistNotFound
	}
	return p.Clone(), nil
}

func (s *MockStore) GetAll(ctx context.Context) ([]models.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return nil, shared.ErrStoreUnavailable
	}
	out := make([]models.Playlist, 0, len(s.Records))
	for _, p := range s.Records {
		out = append(out, *p.Clone())
	}
	return out, nil
}

func (s *MockStore) SelectedID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return "", shared.ErrStoreUnavailable
	}
	return s.Selected, nil
}

func (s *MockStore) SetSelectedID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return shared.ErrStoreUnavailable
	}
	s.Selected = id
	return nil
}

func (s *MockStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Unavailable {
		return shared.ErrStoreUnavailable
	}
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	if _, ok := s.Records[id]; !ok {
		return shared.ErrPlaylistNotFound
	}
	delete(s.Records, id)
	return nil
}

// Record returns the stored copy of id.
func (s *MockStore) Record(id string) (models.Playlist, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Records[id]
	return p, ok
}

// MockPlayer is a test double for [services.Player]
type MockPlayer struct {
	DeviceID   string
	ConnectErr error
	PlayErr    error

	Played  []string
	Toggled []string
	Paused  int
	ready   chan services.ReadyEvent
}

func (m *MockPlayer) Connect(ctx context.Context) (string, error) {
	m.ready = make(chan services.ReadyEvent, 1)
	m.ready <- services.ReadyEvent{DeviceID: m.DeviceID, Err: m.ConnectErr}
	close(m.ready)
	return m.DeviceID, m.ConnectErr
}

func (m *MockPlayer) Ready() <-chan services.ReadyEvent { return m.ready }

func (m *MockPlayer) Play(ctx context.Context, trackURI, contextURI string) error {
	m.Played = append(m.Played, trackURI+"@"+contextURI)
	return m.PlayErr
}

func (m *MockPlayer) Toggle(ctx context.Context, trackURI, contextURI string) error {
	m.Toggled = append(m.Toggled, trackURI+"@"+contextURI)
	return m.PlayErr
}

func (m *MockPlayer) Pause(ctx context.Context) error {
	m.Paused++
	return m.PlayErr
}

func (m *MockPlayer) Disconnect() {}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
