package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/moodmix/internal/server"
	"github.com/desertthunder/moodmix/internal/shared"
	"github.com/urfave/cli/v3"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// Auth runs the Spotify authorization flow and saves the session to the config file.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	if err := r.login(ctx); err != nil {
		return err
	}
	r.writePlain("\nYou can now use: moodmix create \"a mood\"\n")
	return nil
}

// login authorizes, installs the token on the session and persists token and account id.
func (r *Runner) login(ctx context.Context) error {
	token, err := r.authorize(ctx)
	if err != nil {
		return err
	}

	if err := r.spotify.Authenticate(ctx, token); err != nil {
		return fmt.Errorf("failed to authenticate with new tokens: %w", err)
	}

	spotifyConf := &r.config.Credentials.Spotify
	if err := spotifyConf.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if id, err := r.spotify.AccountID(ctx); err != nil {
		r.logger.Warn("could not look up spotify account", "error", err)
	} else {
		spotifyConf.AccountID = id
	}

	r.writePlainln("✓ Authorization successful")
	if r.configPath == "" {
		return nil
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.writePlain("✓ Tokens saved to %s\n", r.configPath)
	return nil
}

// persistSession writes back a token the oauth2 transport refreshed during the command.
func (r *Runner) persistSession() {
	if r.spotify == nil || r.configPath == "" {
		return
	}
	tok, err := r.spotify.Token()
	if err != nil || tok.AccessToken == r.config.Credentials.Spotify.AccessToken {
		return
	}
	if err := r.config.Credentials.Spotify.Update(tok); err != nil {
		return
	}
	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		r.logger.Warn("failed to save refreshed token", "error", err)
	}
}

type authenticatorProvider interface {
	Authenticator() *spotifyauth.Authenticator
}

// browserAuthorize starts the local callback server, opens the authorization page and waits for the redirect.
func (r *Runner) browserAuthorize(ctx context.Context) (*oauth2.Token, error) {
	provider, ok := r.spotify.(authenticatorProvider)
	if !ok {
		return nil, fmt.Errorf("%w: spotify session does not support authorization", shared.ErrServiceUnavailable)
	}
	auth := provider.Authenticator()

	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	cs := &server.CallbackServer{
		Addr:    r.config.Server.Addr(),
		Handler: server.NewOAuthHandler(auth, state),
		Logger:  r.logger,
	}
	if err := cs.Start(); err != nil {
		return nil, err
	}

	authURL := auth.AuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}
	r.writePlain("→ Waiting for authorization (%v timeout)...\n", server.DefaultCallbackTimeout)

	token, err := cs.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("authorization failed: %w", err)
	}
	return token, nil
}
