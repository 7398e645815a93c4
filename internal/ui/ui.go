package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/services"
	"github.com/desertthunder/vidx/internal/session"
	"github.com/desertthunder/vidx/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	HomeView
)

// Defaults for [Options].
const (
	DefaultRefreshInterval = time.Minute
	DefaultRefreshWindow   = 5 * time.Minute
	homePageSize           = 20
)

// Session is the part of session.Manager the TUI drives.
type Session interface {
	Snapshot() session.Snapshot
	Login(ctx context.Context, creds models.Credentials) session.Result
	Register(ctx context.Context, reg models.Registration) session.Result
	Logout(ctx context.Context) session.Result
	RefreshIfExpiring(ctx context.Context, window time.Duration) (session.Result, bool)
	Subscribe(fn func(session.Snapshot)) (cancel func())
}

// VideoLister loads the home feed.
type VideoLister interface {
	Latest(ctx context.Context, page, size int) (*models.Page[models.Video], error)
}

var _ Session = (*session.Manager)(nil)

// Options configures a [Model].
type Options struct {
	Session         Session
	Videos          VideoLister
	WebURL          string // base URL for opening videos in the browser
	RefreshInterval time.Duration
	RefreshWindow   time.Duration
	OpenURL         func(string) error // defaults to shared.OpenBrowser
}

// form field indices
const (
	fieldUsername = iota
	fieldPassword
	fieldNickname
	fieldEmail
)

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	session  Session
	videos   VideoLister
	webURL   string
	openURL  func(string) error
	interval time.Duration
	window   time.Duration

	width  int
	height int

	registering bool
	inputs      []textinput.Model
	focus       int

	snapshot  session.Snapshot
	videoList list.Model
	loaded    bool
	status    notification
	spinner   spinner.Model
	help      help.Model
	keys      keyMap
}

// NewModel creates a new TUI model. The starting view follows the session's current state.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.RefreshWindow <= 0 {
		opts.RefreshWindow = DefaultRefreshWindow
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.info

	vl := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	vl.Title = "Latest Videos"
	vl.SetShowHelp(false)

	m := &Model{
		ctx:       ctx,
		session:   opts.Session,
		videos:    opts.Videos,
		webURL:    strings.TrimRight(opts.WebURL, "/"),
		openURL:   opts.OpenURL,
		interval:  opts.RefreshInterval,
		window:    opts.RefreshWindow,
		inputs:    newInputs(),
		videoList: vl,
		spinner:   sp,
		help:      help.New(),
		keys:      newKeyMap(),
	}

	m.snapshot = m.session.Snapshot()
	if m.snapshot.State == session.Authenticated {
		m.view = HomeView
	}
	return m
}

func newInputs() []textinput.Model {
	placeholders := []string{"username", "password", "nickname (optional)", "email (optional)"}
	inputs := make([]textinput.Model, len(placeholders))
	for i, p := range placeholders {
		ti := textinput.New()
		ti.Placeholder = p
		ti.Prompt = ""
		ti.CharLimit = 64
		inputs[i] = ti
	}
	inputs[fieldPassword].EchoMode = textinput.EchoPassword
	inputs[fieldPassword].EchoCharacter = '•'
	inputs[fieldUsername].Focus()
	return inputs
}

// View returns the active view.
func (m *Model) View() string {
	var body string
	switch m.view {
	case HomeView:
		body = m.renderHome()
	default:
		body = m.renderLogin()
	}
	return fmt.Sprintf("%s\n\n%s", body, m.renderStatus())
}

// Init starts the spinner and refresh ticker, and loads the feed if already signed in.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.scheduleRefresh(), textinput.Blink}
	if m.view == HomeView {
		cmds = append(cmds, m.fetchVideos())
	}
	return tea.Batch(cmds...)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.videoList.SetSize(max(msg.Width-4, 0), max(msg.Height-10, 0))
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.view == HomeView {
			return m.handleHomeKeys(msg)
		}
		return m.handleLoginKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateActive(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgNotify:
		m.status = msg.data.(notification)
		return m, nil

	case MsgToLogin:
		m.showLogin()
		return m, nil

	case MsgSessionChanged:
		return m, m.syncSession()

	case MsgAuthDone:
		out := msg.data.(authOutcome)
		level := services.LevelSuccess
		if !out.result.Success {
			level = services.LevelError
		}
		m.status = notification{level, out.result.Message}
		if out.action == "register" && out.result.Success {
			m.registering = false
			m.inputs[fieldPassword].SetValue("")
			m.focusField(fieldPassword)
		}
		return m, m.syncSession()

	case MsgVideosFetched:
		out := msg.data.(videosOutcome)
		if out.err != nil {
			// the client has already notified
			return m, nil
		}
		m.loaded = true
		var records []models.Video
		if out.page != nil {
			records = out.page.Records
		}
		return m, m.videoList.SetItems(videoItems(records))

	case MsgRefreshTick:
		return m, tea.Batch(m.refresh(), m.scheduleRefresh())

	case MsgRefreshDone:
		out := msg.data.(struct {
			result    session.Result
			attempted bool
		})
		if out.attempted && !out.result.Success && out.result.Message != "" {
			m.status = notification{services.LevelWarning, out.result.Message}
		}
		return m, m.syncSession()

	case MsgOpened:
		if err, ok := msg.data.(error); ok && err != nil {
			m.status = notification{services.LevelError, fmt.Sprintf("failed to open browser: %v", err)}
		}
		return m, nil
	}
	return m, nil
}

// syncSession re-reads the session and moves between views when the auth state flips.
func (m *Model) syncSession() tea.Cmd {
	m.snapshot = m.session.Snapshot()
	switch {
	case m.snapshot.State == session.Authenticated && m.view == LoginView:
		m.view = HomeView
		m.inputs[fieldPassword].SetValue("")
		return m.fetchVideos()
	case m.snapshot.State == session.Anonymous && m.view == HomeView:
		m.showLogin()
	}
	return nil
}

func (m *Model) showLogin() {
	m.view = LoginView
	m.loaded = false
	m.videoList.SetItems(nil)
	m.inputs[fieldPassword].SetValue("")
	if m.snapshot.User != nil && m.inputs[fieldUsername].Value() == "" {
		m.inputs[fieldUsername].SetValue(m.snapshot.User.Username)
	}
	m.snapshot = m.session.Snapshot()
	if m.inputs[fieldUsername].Value() == "" {
		m.focusField(fieldUsername)
	} else {
		m.focusField(fieldPassword)
	}
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.forceQ):
		return m, tea.Quit
	case key.Matches(msg, m.keys.register):
		m.registering = !m.registering
		if !m.registering && m.focus > fieldPassword {
			m.focusField(fieldPassword)
		}
		return m, nil
	case key.Matches(msg, m.keys.submit):
		if m.focus < m.fieldCount()-1 {
			m.focusField(m.focus + 1)
			return m, nil
		}
		return m, m.submit()
	case key.Matches(msg, m.keys.next):
		m.focusField((m.focus + 1) % m.fieldCount())
		return m, nil
	case key.Matches(msg, m.keys.prev):
		m.focusField((m.focus - 1 + m.fieldCount()) % m.fieldCount())
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) handleHomeKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.videoList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.videoList, cmd = m.videoList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.reload):
		return m, m.fetchVideos()
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	case key.Matches(msg, m.keys.open):
		if item, ok := m.videoList.SelectedItem().(videoItem); ok {
			return m, m.open(item.video.ID)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.videoList, cmd = m.videoList.Update(msg)
	return m, cmd
}

func (m *Model) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case HomeView:
		m.videoList, cmd = m.videoList.Update(msg)
	default:
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	}
	return m, cmd
}

func (m *Model) fieldCount() int {
	if m.registering {
		return len(m.inputs)
	}
	return fieldPassword + 1
}

func (m *Model) focusField(i int) {
	for j := range m.inputs {
		m.inputs[j].Blur()
	}
	m.focus = i
	m.inputs[i].Focus()
}

func (m *Model) value(i int) string {
	return strings.TrimSpace(m.inputs[i].Value())
}

func (m *Model) submit() tea.Cmd {
	if m.snapshot.Busy {
		return nil
	}

	username, password := m.value(fieldUsername), m.inputs[fieldPassword].Value()
	if m.registering {
		reg := models.Registration{
			Username: username,
			Password: password,
			Nickname: m.value(fieldNickname),
			Email:    m.value(fieldEmail),
		}
		return func() tea.Msg {
			return authDoneMsg("register", m.session.Register(m.ctx, reg))
		}
	}

	creds := models.Credentials{Username: username, Password: password}
	return func() tea.Msg {
		return authDoneMsg("login", m.session.Login(m.ctx, creds))
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		return authDoneMsg("logout", m.session.Logout(m.ctx))
	}
}

func (m *Model) fetchVideos() tea.Cmd {
	if m.videos == nil {
		return nil
	}
	return func() tea.Msg {
		page, err := m.videos.Latest(m.ctx, services.DefaultPage, homePageSize)
		return videosFetchedMsg(page, err)
	}
}

func (m *Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.interval, func(time.Time) tea.Msg { return refreshTickMsg() })
}

func (m *Model) refresh() tea.Cmd {
	if m.snapshot.State != session.Authenticated {
		return nil
	}
	return func() tea.Msg {
		res, attempted := m.session.RefreshIfExpiring(m.ctx, m.window)
		return refreshDoneMsg(res, attempted)
	}
}

func (m *Model) open(id int64) tea.Cmd {
	url := fmt.Sprintf("%s/video/%d", m.webURL, id)
	return func() tea.Msg {
		return openedMsg(m.openURL(url))
	}
}

func (m *Model) renderLogin() string {
	heading := "Log in to vidx"
	if m.registering {
		heading = "Create a vidx account"
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(heading))
	b.WriteString("\n")

	labels := []string{"Username", "Password", "Nickname", "Email"}
	for i := 0; i < m.fieldCount(); i++ {
		label := styles.label
		if i == m.focus {
			label = styles.focused
		}
		fmt.Fprintf(&b, "%s %s\n", label.Render(labels[i]), m.inputs[i].View())
	}

	if m.snapshot.Busy {
		fmt.Fprintf(&b, "\n%s working...\n", m.spinner.View())
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.loginHelp()))
	return b.String()
}

func (m *Model) renderHome() string {
	var b strings.Builder

	header := fmt.Sprintf("Signed in as %s", m.snapshot.DisplayName)
	if m.snapshot.User != nil && m.snapshot.User.Nickname != "" && m.snapshot.User.Nickname != m.snapshot.User.Username {
		header += styles.help.Render(fmt.Sprintf(" (@%s)", m.snapshot.User.Username))
	}
	b.WriteString(styles.title.Render(header))
	b.WriteString("\n")

	switch {
	case !m.loaded:
		fmt.Fprintf(&b, "%s loading videos...\n", m.spinner.View())
	case len(m.videoList.Items()) == 0:
		b.WriteString(styles.help.Render("No videos yet."))
		b.WriteString("\n")
	default:
		b.WriteString(m.videoList.View())
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.homeHelp()))
	return b.String()
}

func (m *Model) renderStatus() string {
	if m.status.message == "" {
		return ""
	}
	return styles.level(m.status.level).Render(m.status.message)
}
