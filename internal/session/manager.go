package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// DefaultAvatarURL is shown for users without an avatar.
const DefaultAvatarURL = "https://cube.elemecdn.com/3/7c/3ea6beec64369c2642b92c6726f1epng.png"

// Options configures a [Manager].
type Options struct {
	Store         models.CredentialStore
	Backend       Backend
	Logger        *log.Logger
	DefaultAvatar string
	Now           func() time.Time
}

// Manager is the authoritative session state and its lifecycle operations.
type Manager struct {
	store         models.CredentialStore
	backend       Backend
	logger        *log.Logger
	defaultAvatar string
	now           func() time.Time

	mu             sync.Mutex
	user           *models.User
	token          string
	authenticating int
	busy           int

	refresh singleflight.Group

	subMu  sync.Mutex
	subs   map[int]func(Snapshot)
	nextID int
}

var _ oauth2.TokenSource = (*Manager)(nil)

// NewManager creates an empty, anonymous [Manager]. Call [Manager.Restore] to load persisted state.
func NewManager(opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	avatar := opts.DefaultAvatar
	if avatar == "" {
		avatar = DefaultAvatarURL
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Manager{
		store:         opts.Store,
		backend:       opts.Backend,
		logger:        shared.WithLogger(logger, "component", "session"),
		defaultAvatar: avatar,
		now:           now,
		subs:          make(map[int]func(Snapshot)),
	}
}

// Restore loads the session from the store.
//
// Missing or unreadable entries leave the session anonymous. A user entry that cannot be decoded, or that exists
// without a token, is removed.
func (m *Manager) Restore(ctx context.Context) State {
	ctx = context.WithoutCancel(ctx)

	token, _, err := m.store.Get(ctx, models.KeyToken)
	if err != nil {
		m.logger.Warn("failed to read stored token", "error", err)
		token = ""
	}

	user, err := m.storedUser(ctx)
	if err != nil {
		m.logger.Warn("discarding stored user", "error", err)
		if err := m.store.Remove(ctx, models.KeyUser); err != nil {
			m.logger.Error("failed to remove stored user", "error", err)
		}
		user = nil
	}
	if user != nil && token == "" {
		m.logger.Warn("discarding stored user without token")
		if err := m.store.Remove(ctx, models.KeyUser); err != nil {
			m.logger.Error("failed to remove stored user", "error", err)
		}
		user = nil
	}

	m.mu.Lock()
	m.token, m.user = token, user
	m.mu.Unlock()

	state := m.State()
	m.logger.Info("session restored", "state", state)
	m.publish()
	return state
}

func (m *Manager) storedUser(ctx context.Context) (*models.User, error) {
	raw, ok, err := m.store.Get(ctx, models.KeyUser)
	if err != nil || !ok {
		return nil, err
	}

	var user *models.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCorruptEntry, err)
	}
	return user, nil
}

// State reports the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	switch {
	case m.user != nil && m.token != "":
		return Authenticated
	case m.authenticating > 0:
		return Authenticating
	default:
		return Anonymous
	}
}

// IsAuthenticated reports whether both a user and a token are present.
func (m *Manager) IsAuthenticated() bool {
	return m.State() == Authenticated
}

// User returns a copy of the current user, or nil.
func (m *Manager) User() *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.Clone()
}

// AccessToken returns the raw bearer token, empty when signed out.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// Token implements [oauth2.TokenSource] for the HTTP client. It fails with [shared.ErrNoToken] when signed out.
func (m *Manager) Token() (*oauth2.Token, error) {
	token := m.AccessToken()
	if token == "" {
		return nil, shared.ErrNoToken
	}

	t := &oauth2.Token{AccessToken: token, TokenType: "Bearer"}
	if exp, ok := tokenExpiry(token); ok {
		t.Expiry = exp
	}
	return t, nil
}

// DisplayName is the nickname, else the username, else "".
func (m *Manager) DisplayName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return displayName(m.user)
}

func displayName(u *models.User) string {
	switch {
	case u == nil:
		return ""
	case u.Nickname != "":
		return u.Nickname
	default:
		return u.Username
	}
}

// AvatarURL is the user's avatar or the default placeholder.
func (m *Manager) AvatarURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user != nil && m.user.AvatarURL != "" {
		return m.user.AvatarURL
	}
	return m.defaultAvatar
}

// Busy reports whether any operation is in flight.
func (m *Manager) Busy() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.busy > 0
}

// Snapshot returns the observable state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		State:       m.stateLocked(),
		User:        m.user.Clone(),
		DisplayName: displayName(m.user),
		Busy:        m.busy > 0,
	}
}

// Subscribe registers fn to receive a [Snapshot] after every state change. The returned func unsubscribes.
//
// fn runs on the goroutine that made the change and must not block.
func (m *Manager) Subscribe(fn func(Snapshot)) (cancel func()) {
	m.subMu.Lock()
	id := m.nextID
	m.nextID++
	m.subs[id] = fn
	m.subMu.Unlock()

	return func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
}

func (m *Manager) publish() {
	snap := m.Snapshot()

	m.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// begin marks an operation in flight and returns the func that ends it.
func (m *Manager) begin() func() {
	m.mu.Lock()
	m.busy++
	m.mu.Unlock()
	m.publish()

	return func() {
		m.mu.Lock()
		m.busy--
		m.mu.Unlock()
		m.publish()
	}
}

// Teardown clears the session from memory and the store without calling the backend.
//
// It reports whether there was a session to clear.
func (m *Manager) Teardown(ctx context.Context) bool {
	return m.expire(ctx, "")
}

// Expire tears the session down if it still holds token.
//
// It reports whether a session was cleared, so only the first of several failures for the same token acts.
func (m *Manager) Expire(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	return m.expire(ctx, token)
}

func (m *Manager) expire(ctx context.Context, token string) bool {
	m.mu.Lock()
	if token != "" && m.token != token {
		m.mu.Unlock()
		return false
	}
	had := m.token != "" || m.user != nil
	m.clearLocked(ctx)
	m.mu.Unlock()

	if had {
		m.logger.Info("session cleared")
		m.publish()
	}
	return had
}

// clearLocked resets memory and removes both store entries. Store failures are logged.
func (m *Manager) clearLocked(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	m.user, m.token = nil, ""

	for _, key := range []string{models.KeyToken, models.KeyUser} {
		if err := m.store.Remove(ctx, key); err != nil {
			m.logger.Error("failed to remove stored credential", "key", key, "error", err)
		}
	}
}

// saveUserLocked writes u to the store.
func (m *Manager) saveUserLocked(ctx context.Context, u *models.User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}
	return m.store.Set(context.WithoutCancel(ctx), models.KeyUser, string(data))
}

// ExpiresAt returns the expiry encoded in a JWT bearer token. ok is false for opaque tokens or when signed out.
func (m *Manager) ExpiresAt() (time.Time, bool) {
	return tokenExpiry(m.AccessToken())
}
