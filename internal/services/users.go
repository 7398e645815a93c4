package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/vidx/internal/models"
)

// UserAPI wraps the user lookup endpoints.
type UserAPI struct {
	client *Client
}

// NewUserAPI creates a [UserAPI] on client.
func NewUserAPI(client *Client) *UserAPI {
	return &UserAPI{client: client}
}

// GetUser fetches the public profile of a user.
func (a *UserAPI) GetUser(ctx context.Context, id int64) (*models.User, error) {
	env, err := a.client.Do(ctx, Request{Method: http.MethodGet, Path: fmt.Sprintf("/api/user/%d", id)})
	if err != nil {
		return nil, err
	}
	if env.User != nil {
		return env.User, nil
	}

	var user models.User
	if err := env.Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every user. The backend restricts this to administrators.
func (a *UserAPI) ListUsers(ctx context.Context) ([]models.User, error) {
	env, err := a.client.Do(ctx, Request{Method: http.MethodGet, Path: "/api/user/list"})
	if err != nil {
		return nil, err
	}

	var users []models.User
	if err := env.Decode(&users); err != nil {
		return nil, err
	}
	return users, nil
}
