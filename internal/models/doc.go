// Package models defines the domain entities shared by the generation pipeline, the local store and the presentation layer.
//
//   - [Candidate] : an (artist, title) pair proposed by the generator
//   - [Suggestion] : the generator output, a playlist name plus ordered candidates
//   - [Track] : a catalog entry with [Album] and [Artist] metadata, identified by catalog id
//   - [Playlist] : a stored playlist with its tracks, the raw candidates it came from and its optional remote mirror
//
// A [Playlist] never contains two tracks with the same catalog id, and its remote id and remote URI are
// either both nil or both set. [Playlist.Validate] checks both before anything is written to the store.
package models
