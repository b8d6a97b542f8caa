package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/models"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistListView ViewState = iota
	TrackListView
	PromptView
	ProgressView
)

type promptMode int

const (
	createMode promptMode = iota
	regenerateMode
)

// maxProgressLines is how many progress messages the progress view keeps.
const maxProgressLines = 8

// DefaultSuggestions are offered in the prompt and on the empty library screen.
var DefaultSuggestions = []string{
	"90s pop",
	"going to the beach vibe",
	"rainy sunday morning jazz",
	"late night coding, no vocals",
	"road trip singalongs",
	"80s disco night",
}

// Deps are the collaborators the TUI drives.
type Deps struct {
	Library  *tasks.Library
	Pipeline *tasks.Pipeline
	Player   services.Player             // optional
	Login    func(context.Context) error // optional; runs when an operation needs authorization
	Logger   *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	library  *tasks.Library
	pipeline *tasks.Pipeline
	player   services.Player
	login    func(context.Context) error
	logger   *log.Logger

	view       ViewState
	returnView ViewState
	width      int
	height     int

	playlistList list.Model
	trackList    list.Model
	current      *models.Playlist

	input      textinput.Model
	mode       promptMode
	target     *models.Playlist
	suggestion int

	spinner      spinner.Model
	progressChan chan tasks.ProgressUpdate
	doneChan     chan tasks.Result
	progressLog  []string

	deviceID  string
	status    string
	statusErr bool
	loadErr   error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}

	playlists := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	playlists.Title = "Your Mixes"
	playlists.SetShowHelp(false)

	tracks := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	tracks.SetShowHelp(false)

	input := textinput.New()
	input.Placeholder = DefaultSuggestions[0]
	input.CharLimit = 200
	input.Width = 50

	return &Model{
		ctx:          ctx,
		library:      deps.Library,
		pipeline:     deps.Pipeline,
		player:       deps.Player,
		login:        deps.Login,
		logger:       shared.WithLogger(deps.Logger, "component", "tui"),
		view:         PlaylistListView,
		playlistList: playlists,
		trackList:    tracks,
		input:        input,
		spinner:      spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init loads the library and connects the player.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadLibrary(), m.connectPlayer())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetSize(msg.Width-4, msg.Height-6)
		m.trackList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case spinner.TickMsg:
		if m.view != ProgressView {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) && msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		switch m.view {
		case PlaylistListView:
			return m.handlePlaylistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		case PromptView:
			return m.handlePromptKeys(msg)
		}
		return m, nil
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLibraryLoaded:
		if err, _ := msg.data.(error); err != nil {
			m.loadErr = err
			m.logger.Error("failed to load library", "error", err)
		}
		m.refreshPlaylists()
		return m, nil

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		m.progressLog = append(m.progressLog, update.Message)
		if len(m.progressLog) > maxProgressLines {
			m.progressLog = m.progressLog[len(m.progressLog)-maxProgressLines:]
		}
		return m, m.waitForProgress()

	case MsgOperationDone:
		return m.finishOperation(msg.data.(tasks.Result))

	case MsgPlayerReady:
		ev := msg.data.(services.ReadyEvent)
		if ev.Err != nil {
			m.logger.Warn("playback unavailable", "error", ev.Err)
			return m, nil
		}
		m.deviceID = ev.DeviceID
		return m, nil

	case MsgPlaybackDone:
		data := msg.data.(struct {
			label string
			err   error
		})
		if data.err != nil {
			m.setStatus(fmt.Sprintf("Playback failed: %v", data.err), true)
		} else {
			m.setStatus(data.label, false)
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handlePlaylistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.playlistList.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.enter):
		if p := m.highlighted(); p != nil {
			m.openPlaylist(p)
		}
		return m, nil
	case key.Matches(msg, m.keys.create):
		return m, m.openPrompt(createMode, nil)
	case key.Matches(msg, m.keys.regenerate):
		if p := m.highlighted(); p != nil {
			return m, m.openPrompt(regenerateMode, p)
		}
		return m, nil
	case key.Matches(msg, m.keys.sync):
		if p := m.highlighted(); p != nil {
			return m, m.startSync(p)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if p := m.highlighted(); p != nil {
			m.removePlaylist(p)
		}
		return m, nil
	}
	return m.updateLists(msg)
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.trackList.FilterState() == list.Filtering {
		return m.updateLists(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.back):
		m.view = PlaylistListView
		return m, nil
	case key.Matches(msg, m.keys.play), key.Matches(msg, m.keys.enter):
		if item, ok := m.trackList.SelectedItem().(trackItem); ok {
			return m, m.togglePlayback(item.track)
		}
		return m, nil
	case key.Matches(msg, m.keys.regenerate):
		return m, m.openPrompt(regenerateMode, m.current)
	case key.Matches(msg, m.keys.sync):
		return m, m.startSync(m.current)
	case key.Matches(msg, m.keys.remove):
		if m.removePlaylist(m.current) {
			m.view = PlaylistListView
		}
		return m, nil
	}
	return m.updateLists(msg)
}

func (m *Model) handlePromptKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.input.Blur()
		m.view = m.returnView
		return m, nil
	case key.Matches(msg, m.keys.suggest):
		m.input.SetValue(DefaultSuggestions[m.suggestion%len(DefaultSuggestions)])
		m.input.CursorEnd()
		m.suggestion++
		return m, nil
	case key.Matches(msg, m.keys.enter):
		prompt := strings.TrimSpace(m.input.Value())
		if prompt == "" {
			return m, nil
		}
		m.input.Blur()
		return m, m.startGeneration(prompt)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case PlaylistListView:
		m.playlistList, cmd = m.playlistList.Update(msg)
	case TrackListView:
		m.trackList, cmd = m.trackList.Update(msg)
	}
	return m, cmd
}

// highlighted returns the playlist under the cursor in the playlist list.
func (m *Model) highlighted() *models.Playlist {
	if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
		p := item.playlist
		return &p
	}
	return nil
}

func (m *Model) openPlaylist(p *models.Playlist) {
	if err := m.library.Select(m.ctx, p.ID); err != nil {
		m.logger.Warn("failed to select playlist", "id", p.ID, "error", err)
	}
	m.current = p.Clone()
	m.trackList.Title = p.Name
	m.trackList.SetItems(trackItems(m.current))
	m.trackList.ResetSelected()
	m.view = TrackListView
	m.refreshPlaylists()
}

func (m *Model) openPrompt(mode promptMode, target *models.Playlist) tea.Cmd {
	if m.pipeline == nil {
		m.setStatus("Generation is not configured: set an OpenAI API key", true)
		return nil
	}
	m.mode = mode
	m.target = target
	m.returnView = m.view
	m.input.Reset()
	if mode == regenerateMode && target != nil {
		m.input.SetValue(target.Description)
		m.input.CursorEnd()
	}
	m.view = PromptView
	return m.input.Focus()
}

// removePlaylist deletes p from the library and reports whether it is gone.
func (m *Model) removePlaylist(p *models.Playlist) bool {
	if err := m.library.Remove(m.ctx, p.ID); err != nil {
		m.logger.Error("failed to delete playlist", "id", p.ID, "error", err)
		m.setStatus(fmt.Sprintf("Delete failed: %v", err), true)
		return false
	}
	m.refreshPlaylists()
	m.setStatus("Deleted "+p.Name, false)
	return true
}

// refreshPlaylists rebuilds the playlist list from the library and moves the cursor to the selection.
func (m *Model) refreshPlaylists() {
	playlists := m.library.Playlists()
	selectedID := ""
	if sel := m.library.Selected(); sel != nil {
		selectedID = sel.ID
	}
	m.playlistList.SetItems(playlistItems(playlists, selectedID))
	for i, p := range playlists {
		if p.ID == selectedID {
			m.playlistList.Select(i)
			break
		}
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m *Model) quit() tea.Cmd {
	if m.player != nil {
		m.player.Disconnect()
	}
	return tea.Quit
}

func (m *Model) loadLibrary() tea.Cmd {
	return func() tea.Msg {
		return libraryLoadedMsg(m.library.Load(m.ctx))
	}
}

func (m *Model) connectPlayer() tea.Cmd {
	if m.player == nil {
		return nil
	}
	player, ctx := m.player, m.ctx
	return func() tea.Msg {
		if _, err := player.Connect(ctx); err != nil {
			return playerReadyMsg(services.ReadyEvent{Err: err})
		}
		ev, ok := <-player.Ready()
		if !ok {
			return playerReadyMsg(services.ReadyEvent{Err: shared.ErrNoDevice})
		}
		return playerReadyMsg(ev)
	}
}

func (m *Model) togglePlayback(t models.Track) tea.Cmd {
	if m.player == nil || m.deviceID == "" {
		m.setStatus("No playback device. Open Spotify on a device and restart.", true)
		return nil
	}
	contextURI := ""
	if m.current != nil && m.current.Mirrored() {
		contextURI = *m.current.RemoteURI
	}
	player, ctx := m.player, m.ctx
	label := fmt.Sprintf("▶ %s - %s", t.ArtistNames(), t.Name)
	return func() tea.Msg {
		return playbackDoneMsg(label, player.Toggle(ctx, t.URI, contextURI))
	}
}

type operation func(progress chan<- tasks.ProgressUpdate) tasks.Result

func (m *Model) startGeneration(prompt string) tea.Cmd {
	pipeline, ctx := m.pipeline, m.ctx
	if m.mode == regenerateMode {
		target := m.target
		return m.startOperation(func(progress chan<- tasks.ProgressUpdate) tasks.Result {
			return pipeline.Regenerate(ctx, target, prompt, progress)
		})
	}
	return m.startOperation(func(progress chan<- tasks.ProgressUpdate) tasks.Result {
		return pipeline.Create(ctx, prompt, progress)
	})
}

func (m *Model) startSync(p *models.Playlist) tea.Cmd {
	if m.pipeline == nil || p == nil {
		return nil
	}
	pipeline, ctx := m.pipeline, m.ctx
	m.returnView = m.view
	return m.startOperation(func(progress chan<- tasks.ProgressUpdate) tasks.Result {
		return pipeline.Sync(ctx, p, progress)
	})
}

// startOperation runs op in the background and streams its progress into the model.
// An AuthRequired result runs Login once and replays op.
func (m *Model) startOperation(op operation) tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 64)
	done := make(chan tasks.Result, 1)
	m.progressChan, m.doneChan = progress, done
	m.progressLog = nil
	m.status = ""
	m.view = ProgressView

	login, ctx := m.login, m.ctx
	go func() {
		res := op(progress)
		if res.Status == tasks.AuthRequired && login != nil {
			if err := login(ctx); err != nil {
				res.Err = err
			} else {
				res = op(progress)
			}
		}
		done <- res
		close(progress)
	}()

	return tea.Batch(m.spinner.Tick, m.waitForProgress())
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return operationDoneMsg(<-done)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) finishOperation(res tasks.Result) (tea.Model, tea.Cmd) {
	m.progressChan, m.doneChan = nil, nil
	m.library.Apply(m.ctx, res)
	m.refreshPlaylists()

	switch res.Status {
	case tasks.Success:
		m.setStatus(fmt.Sprintf("✓ %s: %d tracks on Spotify", res.Playlist.Name, len(res.Playlist.Tracks)), false)
	case tasks.PartialRemoteFailure:
		m.setStatus(fmt.Sprintf("⚠ Saved locally, Spotify failed: %v (press s to retry)", res.Err), true)
	case tasks.AuthRequired:
		m.setStatus("Not connected to Spotify. Run 'moodmix auth'.", true)
	default:
		m.setStatus(fmt.Sprintf("✗ %s: %v", res.Status, res.Err), true)
	}

	if res.Playlist != nil {
		m.openPlaylist(res.Playlist)
		return m, nil
	}
	m.view = m.returnView
	if m.view == PromptView || m.view == ProgressView {
		m.view = PlaylistListView
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case PlaylistListView:
		body = m.renderPlaylistList()
	case TrackListView:
		body = m.renderTrackList()
	case PromptView:
		body = m.renderPrompt()
	case ProgressView:
		body = m.renderProgress()
	}
	return body + "\n" + m.renderStatus()
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	if m.statusErr {
		return styles.err.Render(m.status)
	}
	return styles.ok.Render(m.status)
}

func (m *Model) renderPlaylistList() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.create, m.keys.regenerate, m.keys.sync, m.keys.quit})

	if len(m.playlistList.Items()) == 0 {
		var b strings.Builder
		b.WriteString(styles.title.Render("No mixes yet"))
		b.WriteString("\n")
		if m.loadErr != nil {
			b.WriteString(styles.err.Render(fmt.Sprintf("Could not read history: %v", m.loadErr)) + "\n\n")
		}
		b.WriteString("Press n and describe a mood. Some ideas:\n\n")
		for _, s := range DefaultSuggestions {
			b.WriteString(styles.help.Render("  • "+s) + "\n")
		}
		return fmt.Sprintf("%s\n%s", b.String(), helpView)
	}
	return fmt.Sprintf("%s\n\n%s", m.playlistList.View(), helpView)
}

func (m *Model) renderTrackList() string {
	helpKeys := []key.Binding{m.keys.play, m.keys.regenerate, m.keys.sync, m.keys.back, m.keys.quit}
	header := ""
	if m.current != nil && !m.current.Mirrored() {
		header = styles.warn.Render("Not on Spotify yet, press s to sync") + "\n"
	}
	return fmt.Sprintf("%s%s\n\n%s", header, m.trackList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderPrompt() string {
	title := "What's the mood?"
	if m.mode == regenerateMode && m.target != nil {
		title = fmt.Sprintf("Regenerate '%s'", m.target.Name)
	}
	helpKeys := []key.Binding{
		key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "generate")),
		m.keys.suggest,
		m.keys.back,
	}
	return fmt.Sprintf("%s\n%s\n\n%s",
		styles.title.Render(title),
		styles.prompt.Render(m.input.View()),
		m.help.ShortHelpView(helpKeys),
	)
}

func (m *Model) renderProgress() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(m.spinner.View() + " Mixing..."))
	b.WriteString("\n")
	for _, line := range m.progressLog {
		b.WriteString(line + "\n")
	}
	return b.String()
}
