package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up         key.Binding
	down       key.Binding
	enter      key.Binding
	back       key.Binding
	create     key.Binding
	regenerate key.Binding
	sync       key.Binding
	remove     key.Binding
	play       key.Binding
	suggest    key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		back:       key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		create:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		regenerate: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "regenerate")),
		sync:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sync")),
		remove:     key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete")),
		play:       key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "play/pause")),
		suggest:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "suggestion")),
		quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.create, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.create, k.regenerate, k.sync, k.play},
		{k.remove, k.suggest, k.quit},
	}
}
