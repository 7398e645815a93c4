package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/desertthunder/vidx/internal/shared"
)

// Kind classifies an [APIError].
type Kind int

const (
	KindValidation Kind = iota + 1
	KindTransport
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindTransport:
		return "transport"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "unknown"
	}
}

const fallbackMessage = "request failed"

// APIError is the single structured error returned by [Client].
type APIError struct {
	Kind    Kind
	Status  int    // HTTP status, 0 when no response was received
	Message string // human-readable, suitable for a notification
	Err     error

	// ServerMessage is the backend's own message, empty when the response carried none.
	ServerMessage string
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Kind, e.Status)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Kind)
}

func (e *APIError) Unwrap() error { return e.Err }

// Classify turns a transport error, a status code and a response body into an [*APIError].
//
// It returns nil for a 2xx response whose body is not a success=false envelope.
// The message comes from the body's "message" field when present, otherwise from the transport error, otherwise a generic fallback.
func Classify(status int, body []byte, err error) *APIError {
	server := messageFrom(body)
	if err != nil {
		cause := shared.ErrAPIRequest
		if isTimeout(err) {
			cause = shared.ErrTimeout
		}
		return &APIError{
			Kind:          KindTransport,
			Message:       firstMessage(server, err.Error()),
			Err:           fmt.Errorf("%w: %w", cause, err),
			ServerMessage: server,
		}
	}

	switch {
	case status == http.StatusUnauthorized:
		return &APIError{
			Kind:          KindUnauthorized,
			Status:        status,
			Message:       firstMessage(server, http.StatusText(status)),
			Err:           shared.ErrUnauthorized,
			ServerMessage: server,
		}
	case status >= 500:
		return &APIError{
			Kind:          KindTransport,
			Status:        status,
			Message:       firstMessage(server, http.StatusText(status)),
			Err:           fmt.Errorf("%w: status %d", shared.ErrServiceUnavailable, status),
			ServerMessage: server,
		}
	case status < 200 || status >= 300:
		return &APIError{
			Kind:          KindTransport,
			Status:        status,
			Message:       firstMessage(server, http.StatusText(status)),
			Err:           fmt.Errorf("%w: status %d", shared.ErrAPIRequest, status),
			ServerMessage: server,
		}
	}

	var env Envelope
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return &APIError{
			Kind:    KindTransport,
			Status:  status,
			Message: "invalid response from server",
			Err:     fmt.Errorf("%w: failed to decode response: %w", shared.ErrAPIRequest, err),
		}
	}
	if !env.Success {
		return &APIError{
			Kind:          KindValidation,
			Status:        status,
			Message:       firstMessage(env.Message),
			Err:           shared.ErrRejected,
			ServerMessage: strings.TrimSpace(env.Message),
		}
	}
	return nil
}

// IsUnauthorized reports whether err is a 401 [APIError].
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == KindUnauthorized
}

// MessageOf returns the user-facing message carried by err, or fallback.
func MessageOf(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

func messageFrom(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if len(body) == 0 || json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.TrimSpace(payload.Message)
}

func firstMessage(candidates ...string) string {
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return fallbackMessage
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
