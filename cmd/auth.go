package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/vidx/internal/formatter"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/session"
	"github.com/desertthunder/vidx/internal/shared"
	"github.com/urfave/cli/v3"
)

// credentials reads --username and --password, prompting for whichever is missing.
func (r *Runner) credentials(cmd *cli.Command) (string, string, error) {
	username, password := cmd.String("username"), cmd.String("password")

	var err error
	if username == "" {
		if username, err = r.prompt("Username"); err != nil {
			return "", "", err
		}
	}
	if password == "" {
		if password, err = r.prompt("Password"); err != nil {
			return "", "", err
		}
	}
	return strings.TrimSpace(username), password, nil
}

// AuthLogin logs in and persists the session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	username, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	r.logger.Info("logging in", "username", username)
	res := r.session.Login(ctx, models.Credentials{Username: username, Password: password})
	if err := r.result(res); err != nil {
		return err
	}
	return r.writePlain("✓ Logged in as %s\n", r.session.DisplayName())
}

// AuthRegister creates an account. The user still has to log in afterwards.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	username, password, err := r.credentials(cmd)
	if err != nil {
		return err
	}

	res := r.session.Register(ctx, models.Registration{
		Username: username,
		Password: password,
		Nickname: cmd.String("nickname"),
		Email:    cmd.String("email"),
	})
	if err := r.result(res); err != nil {
		return err
	}
	return r.writePlain("✓ %s\nRun 'vidx auth login -u %s' to sign in\n", res.Message, username)
}

// AuthLogout ends the session. Local state is cleared even when the backend call fails.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if r.session.AccessToken() == "" {
		return r.writePlain("Not logged in\n")
	}

	res := r.session.Logout(ctx)
	if !res.Success {
		r.logger.Warn("remote logout failed, local session cleared", "message", res.Message)
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthRefresh exchanges the token for a fresh one.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if window := cmd.Duration("if-expiring"); window > 0 {
		res, attempted := r.session.RefreshIfExpiring(ctx, window)
		if !attempted {
			return r.writePlain("Token is not due for refresh\n")
		}
		if err := r.result(res); err != nil {
			return err
		}
		return r.writePlain("✓ %s\n", res.Message)
	}

	res := r.session.RefreshToken(ctx)
	if err := r.result(res); err != nil {
		return err
	}
	return r.writePlain("✓ %s\n", res.Message)
}

type statusView struct {
	State     string       `json:"state"`
	User      *models.User `json:"user,omitempty"`
	Display   string       `json:"displayName,omitempty"`
	Avatar    string       `json:"avatarUrl,omitempty"`
	ExpiresAt *time.Time   `json:"expiresAt,omitempty"`
	Store     string       `json:"store"`
}

// AuthStatus prints the restored session without calling the backend.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	snap := r.session.Snapshot()
	view := statusView{
		State: snap.State.String(),
		User:  snap.User,
		Store: r.config.Store.Path,
	}
	if snap.State == session.Authenticated {
		view.Display = snap.DisplayName
		view.Avatar = r.session.AvatarURL()
	}
	if exp, ok := r.session.ExpiresAt(); ok {
		view.ExpiresAt = &exp
	}

	if cmd.Bool("json") {
		return r.writeJSON(view, true)
	}

	r.writePlainHeader("Session")
	r.writePlain("State:       %s\n", view.State)
	if view.Display != "" {
		r.writePlain("User:        %s\n", view.Display)
		r.writePlain("Avatar:      %s\n", view.Avatar)
	}
	if view.ExpiresAt != nil {
		remaining := time.Until(*view.ExpiresAt).Round(time.Second)
		if remaining > 0 {
			r.writePlain("Expires:     %s (in %s)\n", view.ExpiresAt.Local().Format(time.RFC3339), remaining)
		} else {
			r.writePlain("Expires:     %s (expired)\n", view.ExpiresAt.Local().Format(time.RFC3339))
		}
	}
	return r.writePlain("Store:       %s\n", view.Store)
}

// AuthWhoami fetches the current user from the backend and refreshes the stored profile.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireLogin(); err != nil {
		return err
	}

	res := r.session.FetchCurrentUser(ctx)
	if err := r.result(res); err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(res.User, true)
	}
	return r.writeBytes(formatter.UserSummary(res.User))
}

// AuthUpdate applies a profile patch.
func (r *Runner) AuthUpdate(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireLogin(); err != nil {
		return err
	}

	var patch models.UserPatch
	for flag, field := range map[string]**string{
		"nickname": &patch.Nickname,
		"avatar":   &patch.AvatarURL,
		"email":    &patch.Email,
	} {
		if cmd.IsSet(flag) {
			value := cmd.String(flag)
			*field = &value
		}
	}

	res := r.session.UpdateUser(ctx, patch)
	if err := r.result(res); err != nil {
		return err
	}
	r.writePlain("✓ %s\n", res.Message)
	return r.writeBytes(formatter.UserSummary(res.User))
}

// AuthImport adopts the bearer token from a "Copy as cURL" command.
func (r *Runner) AuthImport(ctx context.Context, cmd *cli.Command) error {
	curlCmd := cmd.String("curl")
	curlFile := cmd.String("curl-file")

	if curlCmd == "" && curlFile == "" {
		return fmt.Errorf("%w: either --curl or --curl-file must be provided", shared.ErrMissingArgument)
	}
	if curlCmd != "" && curlFile != "" {
		return fmt.Errorf("%w: cannot specify both --curl and --curl-file", shared.ErrInvalidArgument)
	}

	var (
		headers *shared.CurlHeaders
		err     error
	)
	if curlFile != "" {
		headers, err = shared.ParseCurlFile(curlFile)
	} else {
		headers, err = shared.ParseCurlCommand(curlCmd)
	}
	if err != nil {
		return fmt.Errorf("failed to parse cURL command: %w", err)
	}

	token, ok := headers.BearerToken()
	if !ok {
		return fmt.Errorf("%w: no Authorization: Bearer header in cURL command", shared.ErrNoToken)
	}

	r.logger.Info("adopting token from cURL command")
	res := r.session.AdoptToken(ctx, token)
	if err := r.result(res); err != nil {
		return err
	}
	return r.writePlain("✓ Logged in as %s\n", r.session.DisplayName())
}
