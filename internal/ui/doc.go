// Package ui implements the interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has four views:
//  1. [PlaylistListView] : browse the local history, newest first, with the selection marked
//  2. [TrackListView] : the tracks of one playlist; p toggles playback on the active device
//  3. [PromptView] : a mood prompt for create (n) or regenerate (g); tab cycles [DefaultSuggestions]
//  4. [ProgressView] : pipeline progress while an operation runs
//
// Operations run on a goroutine and report through a [tasks.ProgressUpdate] channel. The final
// [tasks.Result] is applied to the [tasks.Library] on the update loop, so the library is only
// mutated from one goroutine.
package ui
