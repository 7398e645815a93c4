package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
)

// Default pagination for listings.
const (
	DefaultPage     = 1
	DefaultPageSize = 8
)

// VideoAPI wraps the video endpoints. It holds no state of its own.
type VideoAPI struct {
	client *Client
}

// NewVideoAPI creates a [VideoAPI] on client.
func NewVideoAPI(client *Client) *VideoAPI {
	return &VideoAPI{client: client}
}

// UploadVideo uploads a video file and returns the URL the backend stored it under.
func (a *VideoAPI) UploadVideo(ctx context.Context, name string, r io.Reader) (string, error) {
	return a.upload(ctx, "/api/user/video/upload", name, r)
}

// UploadCover uploads a cover image and returns its URL.
func (a *VideoAPI) UploadCover(ctx context.Context, name string, r io.Reader) (string, error) {
	return a.upload(ctx, "/api/user/video/cover", name, r)
}

func (a *VideoAPI) upload(ctx context.Context, path, name string, r io.Reader) (string, error) {
	env, err := a.client.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   path,
		File:   &File{Field: "file", Name: name, Reader: r},
	})
	if err != nil {
		return "", err
	}
	return uploadedURL(env)
}

// SaveVideo stores metadata for previously uploaded files. The returned video may be nil if the backend sends no body.
func (a *VideoAPI) SaveVideo(ctx context.Context, draft models.VideoDraft) (*models.Video, error) {
	if err := draft.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	env, err := a.client.Do(ctx, Request{Method: http.MethodPost, Path: "/api/user/video/save", Body: draft})
	if err != nil {
		return nil, err
	}

	var video *models.Video
	if err := env.Decode(&video); err != nil {
		return nil, err
	}
	return video, nil
}

// MyVideos lists the signed-in user's videos.
func (a *VideoAPI) MyVideos(ctx context.Context, page, size int) (*models.Page[models.Video], error) {
	return a.list(ctx, "/api/user/video/list", nil, page, size)
}

// DeleteVideo removes one of the signed-in user's videos.
func (a *VideoAPI) DeleteVideo(ctx context.Context, id int64) error {
	_, err := a.client.Do(ctx, Request{Method: http.MethodDelete, Path: fmt.Sprintf("/api/user/video/%d", id)})
	return err
}

// GetVideo fetches a video's details.
func (a *VideoAPI) GetVideo(ctx context.Context, id int64) (*models.Video, error) {
	env, err := a.client.Do(ctx, Request{Method: http.MethodGet, Path: fmt.Sprintf("/api/video/%d", id)})
	if err != nil {
		return nil, err
	}

	var video *models.Video
	if err := env.Decode(&video); err != nil {
		return nil, err
	}
	if video == nil {
		return nil, fmt.Errorf("%w: %d", shared.ErrVideoNotFound, id)
	}
	return video, nil
}

// IncrementViews records a view. Failures are not announced.
func (a *VideoAPI) IncrementViews(ctx context.Context, id int64) error {
	_, err := a.client.Do(ctx, Request{Method: http.MethodPost, Path: fmt.Sprintf("/api/video/%d/view", id), Silent: true})
	return err
}

// LikeVideo likes a video.
func (a *VideoAPI) LikeVideo(ctx context.Context, id int64) error {
	_, err := a.client.Do(ctx, Request{Method: http.MethodPost, Path: fmt.Sprintf("/api/video/%d/like", id)})
	return err
}

// ByCategory lists videos in category.
func (a *VideoAPI) ByCategory(ctx context.Context, category string, page, size int) (*models.Page[models.Video], error) {
	return a.list(ctx, "/api/video/category", url.Values{"category": {category}}, page, size)
}

// Latest lists the newest videos.
func (a *VideoAPI) Latest(ctx context.Context, page, size int) (*models.Page[models.Video], error) {
	return a.list(ctx, "/api/video/latest", nil, page, size)
}

// Popular lists the most viewed videos.
func (a *VideoAPI) Popular(ctx context.Context, page, size int) (*models.Page[models.Video], error) {
	return a.list(ctx, "/api/video/popular", nil, page, size)
}

// Search lists videos matching keyword.
func (a *VideoAPI) Search(ctx context.Context, keyword string, page, size int) (*models.Page[models.Video], error) {
	return a.list(ctx, "/api/video/search", url.Values{"keyword": {keyword}}, page, size)
}

// SendDanmu posts an overlay comment.
func (a *VideoAPI) SendDanmu(ctx context.Context, d models.Danmu) error {
	_, err := a.client.Do(ctx, Request{Method: http.MethodPost, Path: "/api/video/saveDanmu", Body: d})
	return err
}

// GetDanmu lists the overlay comments of a video.
func (a *VideoAPI) GetDanmu(ctx context.Context, videoID int64) ([]models.Danmu, error) {
	env, err := a.client.Do(ctx, Request{Method: http.MethodGet, Path: fmt.Sprintf("/api/video/getDanmu/%d", videoID)})
	if err != nil {
		return nil, err
	}

	var danmu []models.Danmu
	if err := env.Decode(&danmu); err != nil {
		return nil, err
	}
	return danmu, nil
}

func (a *VideoAPI) list(ctx context.Context, path string, query url.Values, page, size int) (*models.Page[models.Video], error) {
	if page <= 0 {
		page = DefaultPage
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if query == nil {
		query = url.Values{}
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))

	env, err := a.client.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
	if err != nil {
		return nil, err
	}
	return decodePage(env, page, size)
}

// decodePage accepts either a page object or a bare array in the data field.
func decodePage(env *Envelope, page, size int) (*models.Page[models.Video], error) {
	result := &models.Page[models.Video]{Page: page, Size: size}

	data := bytes.TrimSpace(env.Data)
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &result.Records); err != nil {
			return nil, fmt.Errorf("failed to decode video list: %w", err)
		}
		result.Total = int64(len(result.Records))
		return result, nil
	}

	if err := env.Decode(result); err != nil {
		return nil, err
	}
	if result.Page == 0 {
		result.Page = page
	}
	if result.Size == 0 {
		result.Size = size
	}
	return result, nil
}

// uploadedURL reads the stored URL from a data field holding either a string or {"url": "..."}.
func uploadedURL(env *Envelope) (string, error) {
	var s string
	if err := json.Unmarshal(env.Data, &s); err == nil && s != "" {
		return s, nil
	}

	var obj struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(env.Data, &obj); err == nil && obj.URL != "" {
		return obj.URL, nil
	}
	return "", fmt.Errorf("%w: upload response has no url", shared.ErrAPIRequest)
}
