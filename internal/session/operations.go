package session

import (
	"context"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/services"
)

// Login exchanges credentials for a session.
//
// On success the token and user are persisted and installed. On any failure nothing is written.
func (m *Manager) Login(ctx context.Context, creds models.Credentials) Result {
	done := m.begin()
	defer done()

	if err := creds.Validate(); err != nil {
		return Result{Message: err.Error()}
	}

	m.mu.Lock()
	m.authenticating++
	m.mu.Unlock()
	m.publish()
	defer func() {
		m.mu.Lock()
		m.authenticating--
		m.mu.Unlock()
	}()

	env, err := m.backend.Login(ctx, creds)
	if err != nil {
		m.logger.Warn("login failed", "username", creds.Username, "error", err)
		return failure(err, MsgLoginFailed, MsgLoginError)
	}
	if env.Token == "" || env.User == nil {
		m.logger.Warn("login response missing token or user", "username", creds.Username)
		return Result{Message: MsgLoginFailed}
	}

	if err := m.install(ctx, env.Token, env.User); err != nil {
		m.logger.Error("failed to persist session", "error", err)
		return Result{Message: MsgSaveFailed}
	}

	m.logger.Info("logged in", "user_id", env.User.ID)
	return Result{Success: true, Message: MsgLoggedIn, User: env.User.Clone()}
}

// install persists token then user and swaps them into memory.
//
// If the user write fails the previous token entry is put back so the store never holds a mismatched pair.
func (m *Manager) install(ctx context.Context, token string, user *models.User) error {
	m.mu.Lock()
	defer func() {
		m.mu.Unlock()
		m.publish()
	}()

	storeCtx := context.WithoutCancel(ctx)
	if err := m.store.Set(storeCtx, models.KeyToken, token); err != nil {
		return err
	}
	if err := m.saveUserLocked(ctx, user); err != nil {
		m.restoreTokenLocked(storeCtx)
		return err
	}

	m.token, m.user = token, user.Clone()
	return nil
}

func (m *Manager) restoreTokenLocked(ctx context.Context) {
	var err error
	if m.token == "" {
		err = m.store.Remove(ctx, models.KeyToken)
	} else {
		err = m.store.Set(ctx, models.KeyToken, m.token)
	}
	if err != nil {
		m.logger.Error("failed to roll back stored token", "error", err)
	}
}

// Register creates an account. It never signs in.
func (m *Manager) Register(ctx context.Context, reg models.Registration) Result {
	done := m.begin()
	defer done()

	if err := reg.Validate(); err != nil {
		return Result{Message: err.Error()}
	}

	if _, err := m.backend.Register(ctx, reg); err != nil {
		m.logger.Warn("registration failed", "username", reg.Username, "error", err)
		return failure(err, MsgRegisterFailed, MsgRegisterError)
	}
	return Result{Success: true, Message: MsgRegistered}
}

// Logout signs out on the backend when a token is present, then always clears the local session.
//
// A failed remote sign-out is reported as a failed [Result] after the local state has been cleared.
func (m *Manager) Logout(ctx context.Context) Result {
	done := m.begin()
	defer done()
	defer m.Teardown(ctx)

	if m.AccessToken() == "" {
		return Result{Success: true, Message: MsgLoggedOut}
	}

	if _, err := m.backend.Logout(ctx); err != nil {
		m.logger.Warn("remote logout failed", "error", err)
		return failure(err, MsgLogoutError, MsgLogoutError)
	}
	return Result{Success: true, Message: MsgLoggedOut}
}

// RefreshToken replaces the token with a fresh one. The user is left untouched.
//
// Concurrent calls share a single request.
func (m *Manager) RefreshToken(ctx context.Context) Result {
	done := m.begin()
	defer done()

	if m.AccessToken() == "" {
		return Result{Message: MsgNoToken}
	}

	// the shared request outlives any single caller; a cancelled caller only stops waiting
	ch := m.refresh.DoChan("refresh", func() (any, error) {
		return m.refreshOnce(context.WithoutCancel(ctx)), nil
	})
	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		m.logger.Debug("refresh caller gave up waiting", "error", ctx.Err())
		return Result{Message: MsgRefreshError}
	}
}

func (m *Manager) refreshOnce(ctx context.Context) Result {
	sent := m.AccessToken()
	if sent == "" {
		return Result{Message: MsgNoToken}
	}

	env, err := m.backend.RefreshToken(ctx)
	if err != nil {
		m.logger.Warn("token refresh failed", "error", err)
		return failure(err, MsgRefreshFailed, MsgRefreshError)
	}
	if env.Token == "" {
		return Result{Message: MsgRefreshFailed}
	}

	m.mu.Lock()
	if m.token != sent {
		m.mu.Unlock()
		m.logger.Warn("session changed during refresh, discarding new token")
		return Result{Message: MsgSessionEnded}
	}
	if err := m.store.Set(context.WithoutCancel(ctx), models.KeyToken, env.Token); err != nil {
		m.mu.Unlock()
		m.logger.Error("failed to persist refreshed token", "error", err)
		return Result{Message: MsgSaveFailed}
	}
	m.token = env.Token
	m.mu.Unlock()

	m.publish()
	m.logger.Info("token refreshed")
	return Result{Success: true, Message: MsgRefreshed, User: m.User()}
}

// FetchCurrentUser replaces the user with the backend's current profile.
func (m *Manager) FetchCurrentUser(ctx context.Context) Result {
	done := m.begin()
	defer done()

	if m.AccessToken() == "" {
		return Result{Message: MsgNotLoggedIn}
	}

	user, err := m.currentUser(ctx)
	if err != nil {
		m.logger.Warn("fetch current user failed", "error", err)
		return failure(err, MsgFetchFailed, MsgFetchFailed)
	}

	return m.replaceUser(ctx, user, MsgFetchFailed, "")
}

func (m *Manager) currentUser(ctx context.Context) (*models.User, error) {
	env, err := m.backend.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if env.User != nil {
		return env.User, nil
	}

	var user *models.User
	if err := env.Decode(&user); err != nil {
		return nil, err
	}
	if user == nil {
		return nil, &services.APIError{Kind: services.KindValidation, Message: MsgFetchFailed}
	}
	return user, nil
}

// replaceUser persists user and installs it, unless the session ended meanwhile.
func (m *Manager) replaceUser(ctx context.Context, user *models.User, failMsg, okMsg string) Result {
	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return Result{Message: MsgSessionEnded}
	}
	if err := m.saveUserLocked(ctx, user); err != nil {
		m.mu.Unlock()
		m.logger.Error("failed to persist user", "error", err)
		return Result{Message: failMsg}
	}
	m.user = user.Clone()
	m.mu.Unlock()

	m.publish()
	return Result{Success: true, Message: okMsg, User: user.Clone()}
}

// UpdateUser sends patch for the current user and merges it into the local profile.
//
// Without a signed-in user that has an id it fails without calling the backend.
func (m *Manager) UpdateUser(ctx context.Context, patch models.UserPatch) Result {
	done := m.begin()
	defer done()

	current := m.User()
	if current == nil || current.ID == 0 {
		return Result{Message: MsgMissingUserID}
	}
	if patch.IsEmpty() {
		return Result{Message: MsgNothingToUpdate}
	}

	env, err := m.backend.UpdateUser(ctx, current.ID, patch)
	if err != nil {
		m.logger.Warn("update user failed", "user_id", current.ID, "error", err)
		return failure(err, MsgUpdateFailed, MsgUpdateFailed)
	}

	m.mu.Lock()
	latest := m.user
	m.mu.Unlock()
	if latest == nil || latest.ID != current.ID {
		return Result{Message: MsgSessionEnded}
	}

	updated := latest.Merge(patch)
	if env.User != nil && env.User.ID == current.ID {
		updated = env.User
	}
	return m.replaceUser(ctx, updated, MsgUpdateFailed, MsgUpdated)
}

// AdoptToken installs a token obtained outside the login flow and loads its profile.
//
// The candidate token is sent with the profile request only; the current session keeps serving every other
// request and is replaced once the profile arrives. On failure the current session is left as it was.
func (m *Manager) AdoptToken(ctx context.Context, token string) Result {
	done := m.begin()
	defer done()

	if token == "" {
		return Result{Message: MsgNoToken}
	}

	m.mu.Lock()
	m.authenticating++
	m.mu.Unlock()
	m.publish()
	defer func() {
		m.mu.Lock()
		m.authenticating--
		m.mu.Unlock()
		m.publish()
	}()

	user, err := m.currentUser(services.WithToken(ctx, token))
	if err != nil {
		m.logger.Warn("token import failed", "error", err)
		return failure(err, MsgLoginFailed, MsgLoginError)
	}

	if err := m.install(ctx, token, user); err != nil {
		m.logger.Error("failed to persist session", "error", err)
		return Result{Message: MsgSaveFailed}
	}

	m.logger.Info("token imported", "user_id", user.ID)
	return Result{Success: true, Message: MsgLoggedIn, User: user.Clone()}
}
