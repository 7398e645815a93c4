package session

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vidx/internal/services"
	"github.com/desertthunder/vidx/internal/shared"
)

// ExpiryHook ends the session when the backend rejects its token.
type ExpiryHook struct {
	manager   *Manager
	notifier  services.Notifier
	navigator Navigator
	logger    *log.Logger
}

// NewExpiryHook creates an [ExpiryHook]. A nil notifier or navigator is ignored.
func NewExpiryHook(manager *Manager, notifier services.Notifier, navigator Navigator, logger *log.Logger) *ExpiryHook {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ExpiryHook{
		manager:   manager,
		notifier:  notifier,
		navigator: navigator,
		logger:    shared.WithLogger(logger, "component", "expiry"),
	}
}

// Register installs the hook as client's unauthorized handler.
func (h *ExpiryHook) Register(client *services.Client) {
	client.OnUnauthorized(h.HandleUnauthorized)
}

// HandleUnauthorized implements [services.UnauthorizedHandler].
//
// The first 401 for the session's token tears it down, notifies "session expired" and navigates to login.
// 401s for any other token (one already gone, or a candidate checked with [services.WithToken]) are absorbed
// without a notification; the caller reports those itself.
// Requests sent without a token are left to the client's own notification.
func (h *ExpiryHook) HandleUnauthorized(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}

	if !h.manager.Expire(ctx, token) {
		h.logger.Debug("ignoring 401 for a token that is not the live session token")
		return true
	}

	h.logger.Warn("session expired")
	if h.notifier != nil {
		h.notifier.Notify(services.LevelError, MsgSessionExpired)
	}
	if h.navigator != nil {
		h.navigator.ToLogin()
	}
	return true
}
