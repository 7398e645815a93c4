package tasks

import (
	"fmt"
	"path/filepath"

	"github.com/desertthunder/vidx/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	UploadVideo Phase = iota
	UploadCover
	SaveVideo
	Published
	Failed
	Batch
)

func (p Phase) String() string {
	switch p {
	case UploadVideo:
		return "upload_video"
	case UploadCover:
		return "upload_cover"
	case SaveVideo:
		return "save_video"
	case Published:
		return "published"
	case Failed:
		return "failed"
	case Batch:
		return "batch"
	default:
		return ""
	}
}

func uploadVideoUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadVideo,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Uploading video %s...", filepath.Base(path)),
	}
}

func uploadCoverUpdate(step, total int, path string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   UploadCover,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Uploading cover %s...", filepath.Base(path)),
	}
}

func saveVideoUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SaveVideo,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Saving %q...", title),
	}
}

func publishedUpdate(step, total int, title string, video *models.Video) ProgressUpdate {
	msg := fmt.Sprintf("✓ Published %q", title)
	if video != nil && video.ID > 0 {
		msg = fmt.Sprintf("✓ Published %q (ID: %d)", title, video.ID)
	}
	return ProgressUpdate{
		Phase:   Published,
		Step:    step,
		Total:   total,
		Message: msg,
		Data:    video,
	}
}

func failedUpdate(title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Failed,
		Message: fmt.Sprintf("✗ %s: %v", title, err),
		Data:    err,
	}
}

func batchUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Batch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, title),
	}
}
