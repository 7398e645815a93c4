package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vidx/internal/shared"
	"github.com/desertthunder/vidx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI.
//
// Notifications and expiry navigation are routed into the TUI, so the runner must not be connected yet.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	if r.config.Log.File == "" {
		logPath := filepath.Join(filepath.Dir(r.config.Store.Path), "vidx-tui.log")
		fileLogger, err := shared.NewFileLogger(logPath)
		if err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		shared.SetLogLevel(fileLogger, r.logger.GetLevel())
		r.SetLogger(fileLogger)
	}

	program := ui.NewProgram(r.logger)
	r.notify = program
	r.navigator = program

	if err := r.connect(ctx); err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Options{
		Session:       r.session,
		Videos:        r.videos,
		WebURL:        r.config.API.WebURL,
		RefreshWindow: r.config.Session.RefreshWindow.Duration,
		OpenURL:       r.openURL,
	})

	if err := program.Run(ctx, model); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
