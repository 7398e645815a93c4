// package services defines the HTTP client and API wrappers for the video backend
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"

	"github.com/desertthunder/vidx/internal/models"
)

// Level is the severity of a user-facing notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier shows one-line messages to the user.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) { f(level, message) }

type discardNotifier struct{}

func (discardNotifier) Notify(Level, string) {}

// UnauthorizedHandler is invoked once for every request that fails with 401.
//
// token is the bearer credential the failing request carried, empty if it was sent unauthenticated.
// The handler reports whether it handled the failure, in which case the client does not raise its own notification.
type UnauthorizedHandler func(ctx context.Context, token string) bool

// Envelope is the business payload every backend response is wrapped in.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token,omitempty"`
	User    *models.User    `json:"user,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// UnmarshalJSON treats a body without a success field as successful.
func (e *Envelope) UnmarshalJSON(b []byte) error {
	var wire struct {
		Success *bool           `json:"success"`
		Message string          `json:"message"`
		Token   string          `json:"token"`
		User    *models.User    `json:"user"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}

	*e = Envelope{
		Success: wire.Success == nil || *wire.Success,
		Message: wire.Message,
		Token:   wire.Token,
		User:    wire.User,
		Data:    wire.Data,
	}
	return nil
}

// Decode unmarshals the data field into target. A missing or null data field leaves target untouched.
func (e *Envelope) Decode(target any) error {
	if len(e.Data) == 0 || bytes.Equal(e.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(e.Data, target); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// File is a multipart file part.
type File struct {
	Field  string
	Name   string
	Reader io.Reader
}

// Request describes a call to the backend.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any   // encoded as JSON when non-nil
	File   *File // sent as multipart/form-data when non-nil
	Silent bool  // suppress notifications for validation rejections
}
