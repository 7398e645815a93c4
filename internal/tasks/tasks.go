// package tasks implements multi-step publish operations against the video backend.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
	"golang.org/x/time/rate"
)

// VideoUploader is the subset of services.VideoAPI the publisher needs.
type VideoUploader interface {
	UploadVideo(ctx context.Context, name string, r io.Reader) (string, error)
	UploadCover(ctx context.Context, name string, r io.Reader) (string, error)
	SaveVideo(ctx context.Context, draft models.VideoDraft) (*models.Video, error)
}

// UploadRecorder persists publish history. Recording errors never fail a publish.
type UploadRecorder interface {
	Create(ctx context.Context, upload *models.Upload) error
	UpdateStatus(ctx context.Context, id string, status models.UploadStatus, videoID int64, message string) error
}

// Authenticator reports whether a session is signed in.
type Authenticator interface {
	IsAuthenticated() bool
}

// PublishJob describes one video to publish.
type PublishJob struct {
	Title       string
	Description string
	Category    string
	VideoPath   string
	CoverPath   string // optional
}

// Validate checks the job before any file is read.
func (j PublishJob) Validate() error {
	if strings.TrimSpace(j.Title) == "" {
		return fmt.Errorf("%w: title", shared.ErrMissingArgument)
	}
	if j.VideoPath == "" {
		return fmt.Errorf("%w: video file", shared.ErrMissingArgument)
	}
	return nil
}

// PublishResult contains the outcome of one publish.
type PublishResult struct {
	Job      PublishJob
	Upload   *models.Upload // local record, nil without a recorder
	VideoURL string
	CoverURL string
	Video    *models.Video // saved video, may be nil if the backend returns no body
	Error    error
}

// BatchOpts configures [Publisher.PublishAll].
type BatchOpts struct {
	RateLimit   float64 // publishes per second (default: 0.5)
	StopOnError bool
}

// Publisher uploads videos and saves their metadata.
type Publisher struct {
	videos   VideoUploader
	uploads  UploadRecorder
	session  Authenticator
	logger   *log.Logger
	openFile func(name string) (io.ReadCloser, error)
}

// NewPublisher creates a new [Publisher]. uploads and session may be nil.
func NewPublisher(videos VideoUploader, uploads UploadRecorder, session Authenticator) *Publisher {
	return &Publisher{
		videos:   videos,
		uploads:  uploads,
		session:  session,
		logger:   shared.WithLogger(shared.NewLogger(nil), "component", "publisher"),
		openFile: func(name string) (io.ReadCloser, error) { return os.Open(name) },
	}
}

// SetLogger replaces the logger used for upload history failures.
func (p *Publisher) SetLogger(logger *log.Logger) {
	p.logger = shared.WithLogger(logger, "component", "publisher")
}

// sendProgress sends a progress update through the channel without blocking.
func (p *Publisher) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Publish uploads the job's files and saves the video.
func (p *Publisher) Publish(ctx context.Context, job PublishJob, progress chan<- ProgressUpdate) (*PublishResult, error) {
	if p.videos == nil {
		return nil, fmt.Errorf("%w: video API not initialized", shared.ErrServiceUnavailable)
	}
	if p.session != nil && !p.session.IsAuthenticated() {
		return nil, shared.ErrNotAuthenticated
	}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	result := &PublishResult{Job: job}
	total := 2
	if job.CoverPath != "" {
		total = 3
	}

	result.Upload = p.record(ctx, job)

	p.sendProgress(progress, uploadVideoUpdate(1, total, job.VideoPath))
	videoURL, err := p.uploadFile(ctx, job.VideoPath, p.videos.UploadVideo)
	if err != nil {
		return p.fail(ctx, result, progress, fmt.Errorf("failed to upload video: %w", err))
	}
	result.VideoURL = videoURL

	if job.CoverPath != "" {
		p.sendProgress(progress, uploadCoverUpdate(2, total, job.CoverPath))
		coverURL, err := p.uploadFile(ctx, job.CoverPath, p.videos.UploadCover)
		if err != nil {
			return p.fail(ctx, result, progress, fmt.Errorf("failed to upload cover: %w", err))
		}
		result.CoverURL = coverURL
	}

	p.sendProgress(progress, saveVideoUpdate(total, total, job.Title))
	video, err := p.videos.SaveVideo(ctx, models.VideoDraft{
		Title:       job.Title,
		Description: job.Description,
		Category:    job.Category,
		VideoURL:    result.VideoURL,
		CoverURL:    result.CoverURL,
	})
	if err != nil {
		return p.fail(ctx, result, progress, fmt.Errorf("failed to save video: %w", err))
	}
	result.Video = video

	var videoID int64
	if video != nil {
		videoID = video.ID
	}
	p.setStatus(ctx, result.Upload, models.UploadCompleted, videoID, "")
	p.sendProgress(progress, publishedUpdate(total, total, job.Title, video))
	return result, nil
}

// PublishAll publishes jobs in order, waiting on a rate limiter between them.
//
// Failed jobs are reported in their result and the batch continues unless opts.StopOnError is set.
func (p *Publisher) PublishAll(ctx context.Context, jobs []PublishJob, opts BatchOpts, progress chan<- ProgressUpdate) ([]PublishResult, error) {
	if opts.RateLimit <= 0 {
		opts.RateLimit = 0.5
	}
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	results := make([]PublishResult, 0, len(jobs))
	var errs []error
	for i, job := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			return results, fmt.Errorf("batch interrupted after %d of %d: %w", i, len(jobs), err)
		}

		p.sendProgress(progress, batchUpdate(i+1, len(jobs), job.Title))
		res, err := p.Publish(ctx, job, progress)
		if err != nil {
			if res == nil {
				res = &PublishResult{Job: job}
			}
			res.Error = err
			errs = append(errs, fmt.Errorf("%s: %w", job.Title, err))
		}
		results = append(results, *res)

		if err != nil && (opts.StopOnError || errors.Is(err, shared.ErrNotAuthenticated)) {
			break
		}
	}
	return results, errors.Join(errs...)
}

func (p *Publisher) uploadFile(ctx context.Context, path string, upload func(context.Context, string, io.Reader) (string, error)) (string, error) {
	f, err := p.openFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return upload(ctx, filepath.Base(path), f)
}

func (p *Publisher) fail(ctx context.Context, result *PublishResult, progress chan<- ProgressUpdate, err error) (*PublishResult, error) {
	result.Error = err
	p.setStatus(ctx, result.Upload, models.UploadFailed, 0, err.Error())
	p.sendProgress(progress, failedUpdate(result.Job.Title, err))
	return result, err
}

func (p *Publisher) record(ctx context.Context, job PublishJob) *models.Upload {
	if p.uploads == nil {
		return nil
	}
	upload := models.NewUpload(job.Title, job.VideoPath)
	upload.Status = models.UploadRunning
	if err := p.uploads.Create(ctx, upload); err != nil {
		p.logger.Warn("failed to record upload", "title", job.Title, "error", err)
		return nil
	}
	return upload
}

func (p *Publisher) setStatus(ctx context.Context, upload *models.Upload, status models.UploadStatus, videoID int64, message string) {
	if p.uploads == nil || upload == nil {
		return
	}
	if err := p.uploads.UpdateStatus(context.WithoutCancel(ctx), upload.ID, status, videoID, message); err != nil {
		p.logger.Warn("failed to update upload status", "id", upload.ID, "status", status, "error", err)
		return
	}
	upload.Status = status
	if videoID > 0 {
		upload.VideoID = videoID
	}
	upload.Error = message
}
