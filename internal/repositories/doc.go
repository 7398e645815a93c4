// Package repositories implements SQLite persistence for the vidx client.
//
// Key Implementations:
//   - [CredentialRepository] : Durable key/value store for the session's user and token entries
//   - [UploadRepository] : History of publish jobs with status tracking
//
// Failures are reported as [StoreError] values that name the operation and key, and unwrap to [shared.ErrStore] plus the driver error.
package repositories
