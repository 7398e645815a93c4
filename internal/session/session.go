package session

import (
	"context"
	"errors"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/services"
)

// State is the lifecycle state of a session.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Result is the outcome of a session operation.
type Result struct {
	Success bool
	Message string
	User    *models.User
}

// Snapshot is the observable session state passed to subscribers. It never includes the token.
type Snapshot struct {
	State       State
	User        *models.User
	DisplayName string
	Busy        bool
}

// Backend is the set of account endpoints the manager calls.
type Backend interface {
	Login(ctx context.Context, creds models.Credentials) (*services.Envelope, error)
	Register(ctx context.Context, reg models.Registration) (*services.Envelope, error)
	Logout(ctx context.Context) (*services.Envelope, error)
	RefreshToken(ctx context.Context) (*services.Envelope, error)
	CurrentUser(ctx context.Context) (*services.Envelope, error)
	UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*services.Envelope, error)
}

var _ Backend = (*services.AccountAPI)(nil)

// Navigator moves the user interface to the login surface.
type Navigator interface {
	ToLogin()
}

// User-facing result messages.
const (
	MsgLoggedIn        = "login successful"
	MsgLoginFailed     = "login failed"
	MsgLoginError      = "login failed, please try again later"
	MsgRegistered      = "registration successful, please log in"
	MsgRegisterFailed  = "registration failed"
	MsgRegisterError   = "registration failed, please try again later"
	MsgLoggedOut       = "logged out"
	MsgLogoutError     = "logout failed, please try again later"
	MsgNoToken         = "no valid token"
	MsgRefreshed       = "token refreshed"
	MsgRefreshFailed   = "token refresh failed"
	MsgRefreshError    = "token refresh failed, please try again later"
	MsgNotLoggedIn     = "not logged in"
	MsgFetchFailed     = "failed to fetch user info"
	MsgMissingUserID   = "not logged in or user ID missing"
	MsgNothingToUpdate = "nothing to update"
	MsgUpdated         = "profile updated"
	MsgUpdateFailed    = "failed to update user info"
	MsgSaveFailed      = "failed to save session"
	MsgSessionEnded    = "session ended while the request was in flight"
	MsgSessionExpired  = "session expired, please log in again"
)

// failure builds a failed [Result] from err, preferring the backend's own message.
//
// rejected is used when the backend answered success=false without a message, unavailable for every other failure.
func failure(err error, rejected, unavailable string) Result {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		if apiErr.ServerMessage != "" {
			return Result{Message: apiErr.ServerMessage}
		}
		if apiErr.Kind == services.KindValidation || apiErr.Kind == services.KindUnauthorized {
			return Result{Message: rejected}
		}
	}
	return Result{Message: unavailable}
}
