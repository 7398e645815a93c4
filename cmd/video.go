package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/vidx/internal/formatter"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
	"github.com/desertthunder/vidx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// idArg parses a positive numeric argument.
func idArg(cmd *cli.Command, name string) (int64, error) {
	raw := strings.TrimSpace(cmd.StringArg(name))
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive number, got %q", shared.ErrInvalidArgument, name, raw)
	}
	return id, nil
}

type pageFetcher func(ctx context.Context, page, size int) (*models.Page[models.Video], error)

// listVideos fetches one page and renders it in the --format requested.
func (r *Runner) listVideos(ctx context.Context, cmd *cli.Command, title string, fetch pageFetcher) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	page, err := fetch(ctx, cmd.Int("page"), cmd.Int("size"))
	if err != nil {
		return r.check(err)
	}
	return formatter.WriteVideos(r.output, format, title, page)
}

// VideoList lists the signed-in user's videos.
func (r *Runner) VideoList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireLogin(); err != nil {
		return err
	}
	return r.listVideos(ctx, cmd, "My Videos", r.videos.MyVideos)
}

// VideoLatest lists the newest videos.
func (r *Runner) VideoLatest(ctx context.Context, cmd *cli.Command) error {
	return r.listVideos(ctx, cmd, "Latest Videos", r.videos.Latest)
}

// VideoPopular lists the most viewed videos.
func (r *Runner) VideoPopular(ctx context.Context, cmd *cli.Command) error {
	return r.listVideos(ctx, cmd, "Popular Videos", r.videos.Popular)
}

// VideoCategory lists videos in a category.
func (r *Runner) VideoCategory(ctx context.Context, cmd *cli.Command) error {
	name := strings.TrimSpace(cmd.StringArg("name"))
	if name == "" {
		return fmt.Errorf("%w: category name", shared.ErrMissingArgument)
	}
	return r.listVideos(ctx, cmd, "Category: "+name, func(ctx context.Context, page, size int) (*models.Page[models.Video], error) {
		return r.videos.ByCategory(ctx, name, page, size)
	})
}

// VideoSearch searches videos by keyword.
func (r *Runner) VideoSearch(ctx context.Context, cmd *cli.Command) error {
	keyword := strings.TrimSpace(cmd.StringArg("keyword"))
	if keyword == "" {
		return fmt.Errorf("%w: search keyword", shared.ErrMissingArgument)
	}
	return r.listVideos(ctx, cmd, fmt.Sprintf("Search: %q", keyword), func(ctx context.Context, page, size int) (*models.Page[models.Video], error) {
		return r.videos.Search(ctx, keyword, page, size)
	})
}

// VideoShow prints one video's details.
func (r *Runner) VideoShow(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}

	video, err := r.videos.GetVideo(ctx, id)
	if err != nil {
		return r.check(err)
	}

	if cmd.Bool("count-view") {
		if err := r.videos.IncrementViews(ctx, id); err != nil {
			r.logger.Warn("failed to record view", "id", id, "error", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(video, true)
	}
	return r.writeBytes(formatter.VideoDetail(video))
}

// VideoOpen opens the video's page in the browser. It needs no session.
func (r *Runner) VideoOpen(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/video/%d", strings.TrimRight(r.config.API.WebURL, "/"), id)
	r.logger.Debug("opening browser", "url", url)
	if err := r.openURL(url); err != nil {
		return fmt.Errorf("failed to open browser: %w", err)
	}
	return r.writePlain("Opened %s\n", url)
}

// VideoLike likes a video.
func (r *Runner) VideoLike(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.requireLogin(); err != nil {
		return err
	}
	if err := r.videos.LikeVideo(ctx, id); err != nil {
		return r.check(err)
	}
	return r.writePlain("✓ Liked video %d\n", id)
}

// VideoDelete deletes one of the user's videos.
func (r *Runner) VideoDelete(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.requireLogin(); err != nil {
		return err
	}
	if err := r.videos.DeleteVideo(ctx, id); err != nil {
		return r.check(err)
	}
	return r.writePlain("✓ Deleted video %d\n", id)
}

// VideoUpload publishes a local file, printing progress as it goes.
func (r *Runner) VideoUpload(ctx context.Context, cmd *cli.Command) error {
	file := strings.TrimSpace(cmd.StringArg("file"))
	if file == "" {
		return fmt.Errorf("%w: video file", shared.ErrMissingArgument)
	}
	if err := r.requireLogin(); err != nil {
		return err
	}

	job := tasks.PublishJob{
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		Category:    cmd.String("category"),
		VideoPath:   file,
		CoverPath:   cmd.String("cover"),
	}

	progress := make(chan tasks.ProgressUpdate, 10)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if update.Phase == tasks.Failed {
				continue
			}
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.publisher.Publish(ctx, job, progress)
	close(progress)
	wg.Wait()

	if err != nil {
		return r.check(err)
	}
	if result.Video != nil && result.Video.ID > 0 {
		return r.writePlain("Video ID: %d\n", result.Video.ID)
	}
	return nil
}

// VideoUploads lists local publish history.
func (r *Runner) VideoUploads(ctx context.Context, cmd *cli.Command) error {
	uploads, err := r.uploads.List(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}
	return r.writeBytes(formatter.UploadsToText(uploads))
}

// DanmuSend posts a timed comment.
func (r *Runner) DanmuSend(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}
	content := strings.TrimSpace(cmd.StringArg("content"))
	if content == "" {
		return fmt.Errorf("%w: danmu content", shared.ErrMissingArgument)
	}
	if err := r.requireLogin(); err != nil {
		return err
	}

	danmu := models.Danmu{VideoID: id, Content: content, Time: cmd.Float("time"), Color: cmd.String("color")}
	if err := r.videos.SendDanmu(ctx, danmu); err != nil {
		return r.check(err)
	}
	return r.writePlain("✓ Sent at %s\n", formatter.Timestamp(danmu.Time))
}

// DanmuList prints a video's timed comments.
func (r *Runner) DanmuList(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}

	danmu, err := r.videos.GetDanmu(ctx, id)
	if err != nil {
		return r.check(err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(danmu, true)
	}
	return r.writeBytes(formatter.DanmuToText(danmu))
}
