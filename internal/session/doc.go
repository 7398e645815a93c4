// Package session owns the signed-in identity of the vidx client.
//
// [Manager] is the single authority for the current user and bearer token. Every lifecycle operation
// (login, register, logout, token refresh, profile fetch and update) goes through it, mirrors its state
// into a [models.CredentialStore], and reports the outcome as a [Result] instead of an error.
//
// # States
//
//	Anonymous ──Login──▶ Authenticating ──success──▶ Authenticated
//	    ▲                      │                          │
//	    └──────failure─────────┘                          │
//	    └───────────────Logout / Teardown─────────────────┘
//
// Refresh, FetchCurrentUser and UpdateUser keep an authenticated session authenticated whether they succeed or fail.
//
// # Credential injection
//
// The manager implements [oauth2.TokenSource]. The HTTP client asks it for the token on every request, so the
// Authorization header always matches the in-memory session and there is no header to keep in sync.
//
// # Concurrency
//
// The mutex guards state and store writes only; it is never held across a network call. Operations may overlap
// and the last write wins, except that nothing is written back into a session that was torn down while the call
// was in flight. [Manager.Busy] reports whether any operation is running and is advisory only.
// Concurrent refreshes share one network call.
//
// # Expiry
//
// [ExpiryHook] is registered as the client's unauthorized handler. The first 401 for the current token tears
// the session down, announces "session expired" and sends the user to the login surface; later 401s for the
// same token are absorbed.
package session
