package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/vidx/internal/models"
)

// AccountAPI wraps the account and current-user endpoints the session manager depends on.
type AccountAPI struct {
	client *Client
}

// NewAccountAPI creates an [AccountAPI] on client.
func NewAccountAPI(client *Client) *AccountAPI {
	return &AccountAPI{client: client}
}

// Login exchanges credentials for a token and profile.
func (a *AccountAPI) Login(ctx context.Context, creds models.Credentials) (*Envelope, error) {
	return a.client.Do(ctx, Request{Method: http.MethodPost, Path: "/api/account/login", Body: creds})
}

// Register creates an account. It does not sign in.
func (a *AccountAPI) Register(ctx context.Context, reg models.Registration) (*Envelope, error) {
	return a.client.Do(ctx, Request{Method: http.MethodPost, Path: "/api/account/register", Body: reg})
}

// Logout signs the current token out on the server.
func (a *AccountAPI) Logout(ctx context.Context) (*Envelope, error) {
	return a.client.Do(ctx, Request{Method: http.MethodPost, Path: "/api/account/logout"})
}

// RefreshToken trades the current token for a new one.
func (a *AccountAPI) RefreshToken(ctx context.Context) (*Envelope, error) {
	return a.client.Do(ctx, Request{Method: http.MethodPost, Path: "/api/account/refresh-token", Silent: true})
}

// CurrentUser fetches the profile of the token's owner.
func (a *AccountAPI) CurrentUser(ctx context.Context) (*Envelope, error) {
	return a.client.Do(ctx, Request{Method: http.MethodGet, Path: "/api/user/current", Silent: true})
}

// UpdateUser applies patch to the profile with the given id.
func (a *AccountAPI) UpdateUser(ctx context.Context, id int64, patch models.UserPatch) (*Envelope, error) {
	return a.client.Do(ctx, Request{Method: http.MethodPut, Path: fmt.Sprintf("/api/user/%d", id), Body: patch})
}
