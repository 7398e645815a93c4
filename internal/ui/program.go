package ui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/vidx/internal/services"
	"github.com/desertthunder/vidx/internal/session"
	"github.com/desertthunder/vidx/internal/shared"
)

var (
	_ services.Notifier = (*Program)(nil)
	_ session.Navigator = (*Program)(nil)
)

// Program delivers notifications and navigation requests from the session layer into a running TUI.
//
// Until a [tea.Program] is attached, notifications are written to the logger and navigation is dropped.
type Program struct {
	mu     sync.RWMutex
	send   func(tea.Msg)
	logger *log.Logger
}

// NewProgram creates a detached [Program].
func NewProgram(logger *log.Logger) *Program {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Program{logger: logger}
}

// Attach routes subsequent messages to p.
func (p *Program) Attach(tp *tea.Program) {
	p.attach(tp.Send)
}

func (p *Program) attach(send func(tea.Msg)) {
	p.mu.Lock()
	p.send = send
	p.mu.Unlock()
}

// Detach stops routing messages to the TUI.
func (p *Program) Detach() {
	p.attach(nil)
}

func (p *Program) dispatch(msg tea.Msg) bool {
	p.mu.RLock()
	send := p.send
	p.mu.RUnlock()
	if send == nil {
		return false
	}
	send(msg)
	return true
}

// Notify shows message in the status line.
func (p *Program) Notify(level services.Level, message string) {
	if p.dispatch(notifyMsg(level, message)) {
		return
	}
	switch level {
	case services.LevelError:
		p.logger.Error(message)
	case services.LevelWarning:
		p.logger.Warn(message)
	default:
		p.logger.Info(message)
	}
}

// ToLogin switches the TUI to the login view.
func (p *Program) ToLogin() {
	p.dispatch(toLoginMsg())
}

// Watch forwards session changes to the TUI until the returned func is called.
//
// Subscribers must not block, so each change is delivered from its own goroutine. The model re-reads the snapshot,
// which makes delivery order irrelevant.
func (p *Program) Watch(s Session) (cancel func()) {
	return s.Subscribe(func(session.Snapshot) {
		go p.dispatch(sessionChangedMsg())
	})
}

// Run starts the TUI with m, attaching p for its lifetime.
func (p *Program) Run(ctx context.Context, m *Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	tp := tea.NewProgram(m, opts...)

	p.Attach(tp)
	defer p.Detach()

	stop := p.Watch(m.session)
	defer stop()

	_, err := tp.Run()
	return err
}
