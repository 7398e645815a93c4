package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/vidx/internal/formatter"
	"github.com/urfave/cli/v3"
)

// UserShow prints a user's public profile.
func (r *Runner) UserShow(ctx context.Context, cmd *cli.Command) error {
	id, err := idArg(cmd, "id")
	if err != nil {
		return err
	}

	user, err := r.users.GetUser(ctx, id)
	if err != nil {
		return r.check(err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}
	return r.writeBytes(formatter.UserSummary(user))
}

// UserList prints every user. Non-admin sessions are rejected by the backend.
func (r *Runner) UserList(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireLogin(); err != nil {
		return err
	}

	users, err := r.users.ListUsers(ctx)
	if err != nil {
		return r.check(err)
	}
	if cmd.Bool("json") {
		return r.writeJSON(users, true)
	}

	r.writePlainHeader(fmt.Sprintf("Users (%d)", len(users)))
	for _, u := range users {
		name := u.Nickname
		if name == "" {
			name = u.Username
		}
		r.writePlain("%6d  %-20s %s\n", u.ID, u.Username, name)
	}
	return nil
}
