// Package services defines the external collaborators of the playlist pipeline and their implementations.
//
// # Interfaces
//
// The pipeline depends only on narrow interfaces:
//   - [Generator] proposes a playlist name and ordered candidates for a prompt
//   - [Catalog] resolves one candidate to a catalog [models.Track]
//   - [Mirror] creates and fills playlists on the user's account
//   - [Session] reports whether a usable credential is loaded
//   - [Player] controls playback on a device
//
// # OpenAI
//
// [OpenAIGenerator] issues a single chat completion with a strict JSON schema response format generated from
// [models.Suggestion]. The response is validated against the same schema; any violation is
// [shared.ErrGenerationFailed].
//
// # Spotify
//
// [SpotifyService] implements [Catalog], [Mirror] and [Session] on top of [spotify.Client]. The HTTP client is
// built from an [oauth2.TokenSource], so expired access tokens are refreshed transparently. The refreshed token
// is available from [SpotifyService.Token] for persisting.
//
// [SpotifyPlayer] shares the service's session and drives the Connect playback endpoints.
//
// # Errors
//
//   - [shared.ErrNotAuthenticated] : no session, a 401 response, or a failed token refresh
//   - [*shared.RemoteAPIError] : any other non-success status; matches [shared.ErrRemoteAPI]
//   - [shared.ErrNoDevice] : no playback device is available
package services
