// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func formatFlags() []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{
			Name:  "page",
			Usage: "Page number",
			Value: 1,
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "Page size",
			Value: 8,
		},
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, markdown, csv, json",
			Value:   "text",
		},
	}
}

// setupCommand initializes configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the local database",
		Action: r.Setup,
	}
}

// authCommand handles session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage your session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Log in with username and password",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password (prompted when empty)", Sources: cli.EnvVars("VIDX_PASSWORD")},
				},
				Action: r.with(r.AuthLogin),
			},
			{
				Name:  "register",
				Usage: "Create an account (does not log in)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username"},
					&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password (prompted when empty)", Sources: cli.EnvVars("VIDX_PASSWORD")},
					&cli.StringFlag{Name: "nickname", Usage: "Display name"},
					&cli.StringFlag{Name: "email", Usage: "Email address"},
				},
				Action: r.with(r.AuthRegister),
			},
			{
				Name:   "logout",
				Usage:  "Log out and forget the stored session",
				Action: r.with(r.AuthLogout),
			},
			{
				Name:  "refresh",
				Usage: "Exchange the current token for a new one",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "if-expiring",
						Usage: "Only refresh when the token expires within this window",
					},
				},
				Action: r.with(r.AuthRefresh),
			},
			{
				Name:  "status",
				Usage: "Show the stored session",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.with(r.AuthStatus),
			},
			{
				Name:  "whoami",
				Usage: "Fetch the current user from the backend",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.with(r.AuthWhoami),
			},
			{
				Name:  "update",
				Usage: "Update your profile",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "nickname", Usage: "New display name"},
					&cli.StringFlag{Name: "avatar", Usage: "New avatar URL"},
					&cli.StringFlag{Name: "email", Usage: "New email address"},
				},
				Action: r.with(r.AuthUpdate),
			},
			{
				Name:  "import",
				Usage: "Adopt a bearer token from a browser request (Copy as cURL)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "curl", Usage: "cURL command from browser DevTools"},
					&cli.StringFlag{Name: "curl-file", Usage: "Path to .sh file containing cURL command"},
				},
				Action: r.with(r.AuthImport),
			},
		},
	}
}

// videoCommand handles video browsing and publishing
func videoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "video",
		Aliases: []string{"v"},
		Usage:   "Browse, publish and manage videos",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your videos",
				Flags:  formatFlags(),
				Action: r.with(r.VideoList),
			},
			{
				Name:   "latest",
				Usage:  "List the newest videos",
				Flags:  formatFlags(),
				Action: r.with(r.VideoLatest),
			},
			{
				Name:   "popular",
				Usage:  "List the most viewed videos",
				Flags:  formatFlags(),
				Action: r.with(r.VideoPopular),
			},
			{
				Name:      "category",
				Usage:     "List videos in a category",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags:     formatFlags(),
				Action:    r.with(r.VideoCategory),
			},
			{
				Name:      "search",
				Usage:     "Search videos by keyword",
				Arguments: []cli.Argument{&cli.StringArg{Name: "keyword"}},
				Flags:     formatFlags(),
				Action:    r.with(r.VideoSearch),
			},
			{
				Name:      "show",
				Usage:     "Show a video's details",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
					&cli.BoolFlag{Name: "count-view", Usage: "Record a view"},
				},
				Action: r.with(r.VideoShow),
			},
			{
				Name:      "open",
				Usage:     "Open a video in the browser",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.VideoOpen,
			},
			{
				Name:      "like",
				Usage:     "Like a video",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.with(r.VideoLike),
			},
			{
				Name:      "delete",
				Usage:     "Delete one of your videos",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.with(r.VideoDelete),
			},
			{
				Name:      "upload",
				Usage:     "Upload a video file and publish it",
				Arguments: []cli.Argument{&cli.StringArg{Name: "file"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Video title", Required: true},
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Video description"},
					&cli.StringFlag{Name: "category", Usage: "Video category"},
					&cli.StringFlag{Name: "cover", Usage: "Cover image file"},
				},
				Action: r.with(r.VideoUpload),
			},
			{
				Name:  "uploads",
				Usage: "Show local publish history",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Usage: "Maximum number of entries", Value: 20},
				},
				Action: r.with(r.VideoUploads),
			},
			{
				Name:  "danmu",
				Usage: "Timed comments",
				Commands: []*cli.Command{
					{
						Name:      "send",
						Usage:     "Send a danmu to a video",
						Arguments: []cli.Argument{&cli.StringArg{Name: "id"}, &cli.StringArg{Name: "content"}},
						Flags: []cli.Flag{
							&cli.FloatFlag{Name: "time", Usage: "Playback position in seconds"},
							&cli.StringFlag{Name: "color", Usage: "Text color", Value: "#FFFFFF"},
						},
						Action: r.with(r.DanmuSend),
					},
					{
						Name:      "list",
						Usage:     "List a video's danmu",
						Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
						Flags: []cli.Flag{
							&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
						},
						Action: r.with(r.DanmuList),
					},
				},
			},
		},
	}
}

// userCommand handles user lookups
func userCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Look up users",
		Commands: []*cli.Command{
			{
				Name:      "show",
				Usage:     "Show a user's profile",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.with(r.UserShow),
			},
			{
				Name:  "list",
				Usage: "List all users (admin)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
				},
				Action: r.with(r.UserList),
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive terminal UI",
		Action:  r.TUI,
	}
}
