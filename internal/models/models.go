// package models defines the data model for the vidx client
package models

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Keys used in the [CredentialStore].
const (
	KeyUser  = "user"
	KeyToken = "token"
)

// CredentialStore is a durable key/value store that survives process restarts.
//
// There is no transaction across keys; callers decide the write order.
type CredentialStore interface {
	Get(ctx context.Context, key string) (string, bool, error) // Get returns the value for key and whether it exists
	Set(ctx context.Context, key, value string) error          // Set upserts the value for key
	Remove(ctx context.Context, key string) error              // Remove deletes key; removing a missing key is not an error
}

// Credentials is the login payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks that both fields are present.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" || c.Password == "" {
		return fmt.Errorf("username and password are required")
	}
	return nil
}

// Registration is the sign-up payload.
type Registration struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname,omitempty"`
	Email    string `json:"email,omitempty"`
}

// Validate checks the required fields.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" || r.Password == "" {
		return fmt.Errorf("username and password are required")
	}
	return nil
}

// User is the profile record returned by the backend.
//
// Fields the client does not know about are kept in Extra so persisting and reloading a profile is lossless.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Email     string `json:"email,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

type userFields User

var userKnownKeys = []string{"id", "username", "nickname", "avatarUrl", "email"}

// UnmarshalJSON decodes known fields and keeps the rest in Extra.
func (u *User) UnmarshalJSON(data []byte) error {
	var fields userFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for _, k := range userKnownKeys {
		delete(raw, k)
	}
	if len(raw) == 0 {
		raw = nil
	}

	*u = User(fields)
	u.Extra = raw
	return nil
}

// MarshalJSON encodes known fields plus Extra. Known fields win over Extra on key collisions.
func (u User) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(userFields(u))
	if err != nil {
		return nil, err
	}
	if len(u.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]json.RawMessage, len(u.Extra)+len(userKnownKeys))
	for k, v := range u.Extra {
		merged[k] = v
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// Clone returns a deep copy of u.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	if u.Extra != nil {
		c.Extra = make(map[string]json.RawMessage, len(u.Extra))
		for k, v := range u.Extra {
			c.Extra[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}

// Merge returns a copy of u with the non-nil fields of patch applied.
func (u *User) Merge(patch UserPatch) *User {
	c := u.Clone()
	if patch.Nickname != nil {
		c.Nickname = *patch.Nickname
	}
	if patch.AvatarURL != nil {
		c.AvatarURL = *patch.AvatarURL
	}
	if patch.Email != nil {
		c.Email = *patch.Email
	}
	return c
}

// UserPatch is a partial profile update. Nil fields are left unchanged.
type UserPatch struct {
	Nickname  *string `json:"nickname,omitempty"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
	Email     *string `json:"email,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Nickname == nil && p.AvatarURL == nil && p.Email == nil
}

// Video is a video as listed and shown by the backend.
type Video struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	CoverURL    string    `json:"coverUrl,omitempty"`
	Views       int64     `json:"views"`
	Likes       int64     `json:"likes"`
	UserID      int64     `json:"userId,omitempty"`
	Username    string    `json:"username,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitzero"`
}

// VideoDraft is the metadata saved after the video and cover files are uploaded.
type VideoDraft struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	VideoURL    string `json:"videoUrl"`
	CoverURL    string `json:"coverUrl,omitempty"`
}

// Validate checks the fields the backend requires.
func (d VideoDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if d.VideoURL == "" {
		return fmt.Errorf("video url is required")
	}
	return nil
}

// Danmu is a timed overlay comment.
type Danmu struct {
	ID      int64   `json:"id,omitempty"`
	VideoID int64   `json:"videoId"`
	Content string  `json:"content"`
	Time    float64 `json:"time"`
	Color   string  `json:"color,omitempty"`
}

// Page is one page of a paginated listing.
type Page[T any] struct {
	Records []T   `json:"records"`
	Total   int64 `json:"total"`
	Page    int   `json:"page"`
	Size    int   `json:"size"`
}

// UploadStatus is the lifecycle state of an [Upload].
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadRunning   UploadStatus = "running"
	UploadCompleted UploadStatus = "completed"
	UploadFailed    UploadStatus = "failed"
)

// Upload is the local record of a publish job.
type Upload struct {
	ID        string
	Title     string
	FilePath  string
	VideoID   int64
	Status    UploadStatus
	Error     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUpload creates a pending [Upload] with timestamps set.
func NewUpload(title, filePath string) *Upload {
	now := time.Now()
	return &Upload{
		Title:     title,
		FilePath:  filePath,
		Status:    UploadPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks if the upload's data is valid.
func (u *Upload) Validate() error {
	if u.FilePath == "" {
		return fmt.Errorf("file path is required")
	}
	switch u.Status {
	case UploadPending, UploadRunning, UploadCompleted, UploadFailed:
	default:
		return fmt.Errorf("invalid upload status: %q", u.Status)
	}
	return nil
}
