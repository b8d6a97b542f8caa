// Package repositories implements SQLite persistence for generated playlists.
//
// [PlaylistRepository] is a keyed record store: [PlaylistRepository.Upsert] inserts a playlist or overwrites
// the whole record with the same id (last writer wins), and tracks and candidates are kept as JSON columns
// so a record always round-trips as one unit. Timestamps are stored as fixed-width UTC text.
//
// [SettingsRepository] keeps small client values such as the selected playlist id.
//
// [Store] wraps both behind lazy initialization. The first call opens and migrates the database; if that
// fails the store stays unavailable for the rest of the process and reports [shared.ErrStoreUnavailable]
// instead of panicking.
package repositories
