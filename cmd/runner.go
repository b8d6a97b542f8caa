package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/desertthunder/moodmix/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Store is the local persistence the commands read and write.
type Store interface {
	tasks.PlaylistStore
	tasks.LibraryStore
	Close() error
}

// Spotify is the remote session the commands drive.
type Spotify interface {
	services.RemoteService
	Authenticate(ctx context.Context, tok *oauth2.Token) error
	AccountID(ctx context.Context) (string, error)
	Token() (*oauth2.Token, error)
}

// AuthorizeFunc runs an interactive authorization and returns the granted token.
type AuthorizeFunc func(ctx context.Context) (*oauth2.Token, error)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	store      Store
	spotify    Spotify
	generator  services.Generator
	player     services.Player
	library    *tasks.Library
	authorize  AuthorizeFunc
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Store      Store
	Spotify    Spotify
	Generator  services.Generator
	Player     services.Player
	Authorize  AuthorizeFunc
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	r := &Runner{}
	r.configure(opts)
	return r
}

// configure replaces every dependency. main calls it once flags are parsed.
func (r *Runner) configure(opts RunnerOpts) {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	*r = Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      opts.Store,
		spotify:    opts.Spotify,
		generator:  opts.Generator,
		player:     opts.Player,
		authorize:  opts.Authorize,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	if r.store != nil {
		r.library = tasks.NewLibrary(r.store, r.logger)
	}
	if r.authorize == nil {
		r.authorize = r.browserAuthorize
	}
}

// Close releases the store.
func (r *Runner) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, createCommand, regenerateCommand, syncCommand,
		deleteCommand, listCommand, showCommand, exportCommand, playCommand, pauseCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}
	return commands
}

// pipeline builds a Pipeline for one command. count <= 0 uses the configured song count.
func (r *Runner) pipeline(count int) (*tasks.Pipeline, error) {
	if r.generator == nil {
		return nil, fmt.Errorf("%w: set credentials.openai.api_key or %s", shared.ErrMissingCredentials, shared.EnvOpenAIKey)
	}
	if err := r.requireSpotify(); err != nil {
		return nil, err
	}
	if r.store == nil {
		return nil, fmt.Errorf("%w: playlist store not initialized", shared.ErrServiceUnavailable)
	}
	if count <= 0 {
		count = r.config.Generator.SongCount
	}
	return tasks.NewPipeline(r.generator, r.spotify, r.store,
		tasks.WithSongCount(count),
		tasks.WithConcurrency(r.config.Pipeline.Concurrency),
		tasks.WithPipelineLogger(r.logger),
	), nil
}

func (r *Runner) requireSpotify() error {
	if r.spotify == nil {
		return fmt.Errorf("%w: set credentials.spotify.client_id and client_secret", shared.ErrMissingCredentials)
	}
	return nil
}

func (r *Runner) requireLibrary(ctx context.Context) (*tasks.Library, error) {
	if r.library == nil {
		return nil, fmt.Errorf("%w: playlist store not initialized", shared.ErrServiceUnavailable)
	}
	if err := r.library.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load playlists: %w", err)
	}
	return r.library, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	if _, err := fmt.Fprintf(r.output, format, args...); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	return r.writePlain("\n"+format+"\n", args...)
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
