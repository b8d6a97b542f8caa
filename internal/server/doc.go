// Package server runs the local HTTP endpoint that completes the Spotify authorization-code flow.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support. [BasicRouter] wraps
// [http.ServeMux]; [Middleware] is applied in reverse order (last added wraps first). [Logging]
// and [Recover] are the two middlewares in use.
//
// # OAuth Callback
//
// [OAuthHandler] validates the state parameter, hands the request to a [TokenExchanger] and
// publishes exactly one [OAuthResult]. Later callbacks are rejected.
//
// [CallbackServer] binds the configured address, serves the handler and shuts itself down once
// the result arrives or the wait times out.
package server
