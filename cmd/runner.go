package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/repositories"
	"github.com/desertthunder/vidx/internal/services"
	"github.com/desertthunder/vidx/internal/session"
	"github.com/desertthunder/vidx/internal/shared"
	"github.com/desertthunder/vidx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// errReported marks a failure the user has already been shown.
var errReported = errors.New("command failed")

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	errOutput  io.Writer
	input      *bufio.Reader
	openURL    func(string) error

	notifier  *consoleNotifier
	notify    services.Notifier // receives client and hook notifications
	navigator session.Navigator

	once      sync.Once
	db        *sql.DB
	store     models.CredentialStore
	uploads   *repositories.UploadRepository
	client    *services.Client
	account   *services.AccountAPI
	videos    *services.VideoAPI
	users     *services.UserAPI
	session   *session.Manager
	hook      *session.ExpiryHook
	publisher *tasks.Publisher
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	ErrOutput  io.Writer
	Input      io.Reader
	DB         *sql.DB // already migrated; opened from config when nil
	OpenURL    func(string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.ErrOutput == nil {
		opts.ErrOutput = os.Stderr
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		errOutput:  opts.ErrOutput,
		input:      bufio.NewReader(opts.Input),
		openURL:    opts.OpenURL,
		db:         opts.DB,
	}
	r.notifier = newConsoleNotifier(opts.ErrOutput)
	r.notify = r.notifier
	r.navigator = consoleNavigator{notifier: r.notifier}
	return r
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, videoCommand, userCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config (defaults when the file does not exist) and applies global flags.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = shared.ConfigPath(cmd.String("config"))

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	if baseURL := cmd.String("base-url"); baseURL != "" {
		r.config.API.BaseURL = baseURL
	}

	level := r.config.Log.Level
	if cmd.Bool("verbose") {
		level = "debug"
	}
	shared.SetLogLevel(r.logger, shared.ParseLevel(level))

	if r.config.Log.File != "" {
		fileLogger, err := shared.NewFileLogger(r.config.Log.File)
		if err != nil {
			return ctx, fmt.Errorf("failed to create file logger: %w", err)
		}
		shared.SetLogLevel(fileLogger, shared.ParseLevel(level))
		r.SetLogger(fileLogger)
	}
	return ctx, nil
}

// After releases the database.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SetLogger replaces the logger. Must be called before the first command connects.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// connect opens the credential store, builds the client and session, and restores any persisted session.
func (r *Runner) connect(ctx context.Context) error {
	var err error
	r.once.Do(func() { err = r.wire(ctx) })
	if err != nil {
		return err
	}
	if r.session == nil {
		return fmt.Errorf("%w: session not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

func (r *Runner) wire(ctx context.Context) error {
	if r.db == nil {
		db, err := shared.OpenStore(r.config.Store)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		r.db = db
	}
	r.store = repositories.NewCredentialRepository(r.db)
	r.uploads = repositories.NewUploadRepository(r.db)

	r.client = services.NewClient(services.ClientOptions{
		BaseURL:    r.config.API.BaseURL,
		Timeout:    r.config.API.Timeout.Duration,
		RateLimit:  r.config.API.RateLimit,
		UserAgent:  "vidx/" + version,
		HTTPClient: r.httpClient,
		Notifier:   r.notify,
		Logger:     r.logger,
	})
	r.account = services.NewAccountAPI(r.client)
	r.videos = services.NewVideoAPI(r.client)
	r.users = services.NewUserAPI(r.client)

	r.session = session.NewManager(session.Options{
		Store:         r.store,
		Backend:       r.account,
		Logger:        r.logger,
		DefaultAvatar: r.config.Session.DefaultAvatar,
	})
	r.client.SetTokenSource(r.session)

	r.hook = session.NewExpiryHook(r.session, r.notify, r.navigator, r.logger)
	r.hook.Register(r.client)

	r.publisher = tasks.NewPublisher(r.videos, r.uploads, r.session)
	r.publisher.SetLogger(r.logger)

	state := r.session.Restore(ctx)
	r.logger.Debug("session restored", "state", state)
	return nil
}

// with wraps a command action so it runs with a connected runner.
func (r *Runner) with(action cli.ActionFunc) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		if err := r.connect(ctx); err != nil {
			return err
		}
		return action(ctx, cmd)
	}
}

// check converts API errors that were already surfaced by the notifier into [errReported].
func (r *Runner) check(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *services.APIError
	if errors.As(err, &apiErr) && r.notifier.shown(apiErr.Message) {
		return fmt.Errorf("%w: %w", errReported, err)
	}
	return err
}

// result shows a failed session result once and converts it into [errReported].
func (r *Runner) result(res session.Result) error {
	if res.Success {
		return nil
	}
	// an expiry notice already explains any failure that follows it
	if !r.notifier.shown(res.Message) && !r.notifier.shown(session.MsgSessionExpired) {
		r.notifier.Notify(services.LevelError, res.Message)
	}
	return fmt.Errorf("%w: %s", errReported, res.Message)
}

// requireLogin fails fast when no session is present.
func (r *Runner) requireLogin() error {
	if r.session.IsAuthenticated() {
		return nil
	}
	r.notifier.Notify(services.LevelWarning, "not logged in, run `vidx auth login` first")
	return fmt.Errorf("%w: %w", errReported, shared.ErrNotAuthenticated)
}

// prompt reads a line from input after writing label.
func (r *Runner) prompt(label string) (string, error) {
	r.writePlain("%s: ", label)
	line, err := r.input.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, strings.ToLower(label))
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(data []byte) error {
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFA500"))
)

// consoleNotifier prints notifications to stderr and remembers what it has shown.
type consoleNotifier struct {
	mu   sync.Mutex
	w    io.Writer
	seen map[string]bool
}

var _ services.Notifier = (*consoleNotifier)(nil)

func newConsoleNotifier(w io.Writer) *consoleNotifier {
	return &consoleNotifier{w: w, seen: map[string]bool{}}
}

func (n *consoleNotifier) Notify(level services.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.seen[message] = true

	switch level {
	case services.LevelError:
		fmt.Fprintln(n.w, errStyle.Render("✗ "+message))
	case services.LevelWarning:
		fmt.Fprintln(n.w, warnStyle.Render("! "+message))
	case services.LevelSuccess:
		fmt.Fprintln(n.w, okStyle.Render("✓ "+message))
	default:
		fmt.Fprintln(n.w, message)
	}
}

func (n *consoleNotifier) shown(message string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.seen[message]
}

// consoleNavigator has no login screen to show, so it tells the user how to get there.
type consoleNavigator struct {
	notifier *consoleNotifier
}

func (c consoleNavigator) ToLogin() {
	c.notifier.Notify(services.LevelInfo, "run `vidx auth login` to sign in again")
}
