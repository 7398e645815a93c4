package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
)

// UploadRepository persists [models.Upload] records.
type UploadRepository struct {
	db *sql.DB
}

// NewUploadRepository creates a new [UploadRepository] with the given database connection
func NewUploadRepository(db *sql.DB) *UploadRepository {
	return &UploadRepository{db: db}
}

// Create inserts a new upload with a generated ID
func (r *UploadRepository) Create(ctx context.Context, upload *models.Upload) error {
	if upload.ID == "" {
		upload.ID = shared.GenerateID()
	}

	if err := upload.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	query := `
		INSERT INTO uploads (id, title, file_path, video_id, status, error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		upload.ID, upload.Title, upload.FilePath, nullableID(upload.VideoID),
		string(upload.Status), upload.Error, upload.CreatedAt, upload.UpdatedAt,
	)
	if err != nil {
		return storeErr("create upload", upload.ID, err)
	}
	return nil
}

// Get retrieves an upload by ID
func (r *UploadRepository) Get(ctx context.Context, id string) (*models.Upload, error) {
	query := `
		SELECT id, title, file_path, video_id, status, error, created_at, updated_at
		FROM uploads WHERE id = ?
	`
	upload, err := scanUpload(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storeErr("get upload", id, fmt.Errorf("upload not found"))
	}
	if err != nil {
		return nil, storeErr("get upload", id, err)
	}
	return upload, nil
}

// UpdateStatus records a status change, the backend video id (when known) and an error message.
func (r *UploadRepository) UpdateStatus(ctx context.Context, id string, status models.UploadStatus, videoID int64, message string) error {
	query := `
		UPDATE uploads
		SET status = ?, video_id = COALESCE(?, video_id), error = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query, string(status), nullableID(videoID), message, time.Now(), id)
	if err != nil {
		return storeErr("update upload", id, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return storeErr("update upload", id, err)
	}
	if rows == 0 {
		return storeErr("update upload", id, fmt.Errorf("upload not found"))
	}
	return nil
}

// List returns the most recent uploads first, at most limit rows (all when limit <= 0).
func (r *UploadRepository) List(ctx context.Context, limit int) ([]*models.Upload, error) {
	query := `
		SELECT id, title, file_path, video_id, status, error, created_at, updated_at
		FROM uploads ORDER BY created_at DESC, id
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("list uploads", "", err)
	}
	defer rows.Close()

	var uploads []*models.Upload
	for rows.Next() {
		upload, err := scanUpload(rows)
		if err != nil {
			return nil, storeErr("list uploads", "", err)
		}
		uploads = append(uploads, upload)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list uploads", "", err)
	}
	return uploads, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUpload(s scanner) (*models.Upload, error) {
	var (
		upload  models.Upload
		videoID sql.NullInt64
		status  string
		message sql.NullString
	)

	err := s.Scan(&upload.ID, &upload.Title, &upload.FilePath, &videoID, &status, &message, &upload.CreatedAt, &upload.UpdatedAt)
	if err != nil {
		return nil, err
	}

	upload.VideoID = videoID.Int64
	upload.Status = models.UploadStatus(status)
	upload.Error = message.String
	return &upload, nil
}

func nullableID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}
