package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodmix/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
//
// Logs go to the file logger main installs for this command. Plain output is discarded while the
// program owns the terminal, so a login triggered from inside the UI stays silent.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	pipeline, err := r.pipeline(0)
	if err != nil {
		return err
	}

	stdout := r.output
	r.output = io.Discard
	defer func() { r.output = stdout }()

	model := ui.NewModel(ctx, ui.Deps{
		Library:  r.library,
		Pipeline: pipeline,
		Player:   r.player,
		Login: func(ctx context.Context) error {
			if err := r.login(ctx); err != nil {
				return err
			}
			r.persistSession()
			return nil
		},
		Logger: r.logger,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	r.persistSession()
	return nil
}
