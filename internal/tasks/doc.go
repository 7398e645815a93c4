// Package tasks runs multi-step operations against the video backend with real-time progress reporting.
//
// # Publishing
//
// [Publisher.Publish] performs the three-step publish flow:
//
//  1. Upload the video file (multipart) and receive its stored URL
//  2. Upload the optional cover image and receive its URL
//  3. Save the metadata (title, description, category, URLs) as a new video
//
// Each publish is recorded locally through an optional [UploadRecorder] (repositories.UploadRepository)
// so `vidx video uploads` can show history and failures.
//
// [Publisher.PublishAll] publishes several jobs in order, paced by a rate limiter so large batches do not flood the backend.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
