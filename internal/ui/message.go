package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodmix/internal/services"
	"github.com/desertthunder/moodmix/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLibraryLoaded MsgKind = iota
	MsgProgressUpdate
	MsgOperationDone
	MsgPlayerReady
	MsgPlaybackDone
)

// libraryLoadedMsg is the constructor for [MsgLibraryLoaded]
func libraryLoadedMsg(err error) Msg {
	return Msg{kind: MsgLibraryLoaded, data: err}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// operationDoneMsg is the constructor for [MsgOperationDone]
func operationDoneMsg(res tasks.Result) Msg {
	return Msg{kind: MsgOperationDone, data: res}
}

// playerReadyMsg is the constructor for [MsgPlayerReady]
func playerReadyMsg(ev services.ReadyEvent) Msg {
	return Msg{kind: MsgPlayerReady, data: ev}
}

// playbackDoneMsg is the constructor for [MsgPlaybackDone]
func playbackDoneMsg(label string, err error) Msg {
	return Msg{
		kind: MsgPlaybackDone,
		data: struct {
			label string
			err   error
		}{label, err},
	}
}
