package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/services"
	"github.com/desertthunder/vidx/internal/session"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgNotify MsgKind = iota
	MsgToLogin
	MsgSessionChanged
	MsgAuthDone
	MsgVideosFetched
	MsgRefreshTick
	MsgRefreshDone
	MsgOpened
)

type notification struct {
	level   services.Level
	message string
}

type authOutcome struct {
	action string // login, register, logout
	result session.Result
}

type videosOutcome struct {
	page *models.Page[models.Video]
	err  error
}

// notifyMsg is the constructor for [MsgNotify]
func notifyMsg(level services.Level, message string) Msg {
	return Msg{kind: MsgNotify, data: notification{level, message}}
}

// toLoginMsg is the constructor for [MsgToLogin]
func toLoginMsg() Msg {
	return Msg{kind: MsgToLogin}
}

// sessionChangedMsg is the constructor for [MsgSessionChanged]. The model reads the current snapshot itself.
func sessionChangedMsg() Msg {
	return Msg{kind: MsgSessionChanged}
}

// authDoneMsg is the constructor for [MsgAuthDone]
func authDoneMsg(action string, result session.Result) Msg {
	return Msg{kind: MsgAuthDone, data: authOutcome{action, result}}
}

// videosFetchedMsg is the constructor for [MsgVideosFetched]
func videosFetchedMsg(page *models.Page[models.Video], err error) Msg {
	return Msg{kind: MsgVideosFetched, data: videosOutcome{page, err}}
}

// refreshTickMsg is the constructor for [MsgRefreshTick]
func refreshTickMsg() Msg {
	return Msg{kind: MsgRefreshTick}
}

// refreshDoneMsg is the constructor for [MsgRefreshDone]. attempted is false when the token was not near expiry.
func refreshDoneMsg(result session.Result, attempted bool) Msg {
	return Msg{kind: MsgRefreshDone, data: struct {
		result    session.Result
		attempted bool
	}{result, attempted}}
}

// openedMsg is the constructor for [MsgOpened]
func openedMsg(err error) Msg {
	return Msg{kind: MsgOpened, data: err}
}
