// Package tasks turns a mood prompt into a stored, optionally mirrored playlist and keeps the
// in-memory library the CLI and TUI browse.
//
// # Pipeline
//
// [Pipeline.Create] runs four phases:
//
//  1. Generate : ask the [services.Generator] for a name and ordered (artist, title) candidates
//  2. Resolve : look every candidate up in the catalog concurrently; misses and lookup errors drop
//     only that candidate, and the result keeps candidate order
//  3. Store : [Dedupe] by catalog id and save the playlist locally before anything remote happens
//  4. Mirror : create the remote playlist and add the tracks, then save again with the remote ids
//
// [Pipeline.Regenerate] reuses the local id and, when present, the remote playlist, replacing its
// contents. [Pipeline.Sync] re-runs only the mirror phase.
//
// Every operation returns a [Result]. A remote failure after the local save is
// [PartialRemoteFailure]: the playlist is kept and can be synced later.
//
// # Progress Reporting
//
// Operations take an optional send-only channel of [ProgressUpdate]. Sends never block; a full or
// nil channel drops the update.
//
// # Library
//
// [Library] caches the stored playlists newest first along with the persisted selection, and
// applies pipeline results to itself. [BulkExport] writes a set of playlists to disk through the
// formatter package.
package tasks
