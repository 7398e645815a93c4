// Package services implements the HTTP client for the video backend and the stateless API wrappers built on it.
//
// # Client
//
// [Client] is the single shared client. It is configured with a base URL, a timeout and default headers, and on every request it:
//   - waits on the optional rate limiter
//   - asks its [oauth2.TokenSource] for the current credential and sets "Authorization: Bearer <token>" when one exists
//   - tags the request with an X-Request-ID
//   - decodes the JSON [Envelope] the backend wraps every payload in
//
// The token source is the session manager, so the credential header is computed per request and never cached on the client.
//
// # Error Handling
//
// All failures are classified once by [Classify] into an [APIError] with a [Kind]:
//   - [KindValidation] : the backend answered success=false
//   - [KindTransport] : network failure, timeout, or a non-2xx status other than 401
//   - [KindUnauthorized] : 401, the credential is invalid or expired
//
// The client raises one [Notifier] message per failure. Validation rejections on requests marked Silent are not announced.
// A 401 is additionally handed to the [UnauthorizedHandler]; when the handler reports that it dealt with the failure
// the generic notification is skipped.
//
// # API Wrappers
//
//   - [AccountAPI] : login, register, logout, token refresh, current user, profile update
//   - [UserAPI] : user lookup and listing
//   - [VideoAPI] : uploads, listings, search, likes, danmu
package services
