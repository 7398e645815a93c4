package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var annCreds = models.Credentials{Username: "ann", Password: "x"}

func TestLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("ann scenario", func(t *testing.T) {
		h := newHarness(t, nil)
		h.backend.handle("POST /api/account/login", func(w http.ResponseWriter, r *http.Request) {
			var creds models.Credentials
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
			assert.Equal(t, annCreds, creds)
			w.Write([]byte(annLogin))
		})

		res := h.manager.Login(ctx, annCreds)

		require.True(t, res.Success)
		assert.Equal(t, int64(7), res.User.ID)
		assert.True(t, h.manager.IsAuthenticated())
		assert.Equal(t, Authenticated, h.manager.State())
		assert.Equal(t, "ann", h.manager.DisplayName())
		assert.Equal(t, DefaultAvatarURL, h.manager.AvatarURL())
		assert.Equal(t, "t1", h.store.Snapshot()[models.KeyToken])
		assert.JSONEq(t, `{"id":7,"username":"ann"}`, h.store.Snapshot()[models.KeyUser])
		assert.Equal(t, "Bearer t1", h.ping(t))
	})

	t.Run("rejection never mutates state", func(t *testing.T) {
		tt := []struct {
			name    string
			handler http.HandlerFunc
			message string
		}{
			{"server message", reply(200, map[string]any{"success": false, "message": "wrong password"}), "wrong password"},
			{"no message", reply(200, map[string]any{"success": false}), MsgLoginFailed},
			{"server error", reply(500, map[string]any{}), MsgLoginError},
			{"server error with message", reply(500, map[string]any{"message": "db down"}), "db down"},
			{"network failure", dropConnection, MsgLoginError},
			{"success without token", reply(200, map[string]any{"success": true, "user": map[string]any{"id": 7}}), MsgLoginFailed},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				h := newHarness(t, nil)
				h.backend.handle("POST /api/account/login", tc.handler)

				res := h.manager.Login(ctx, annCreds)

				assert.False(t, res.Success)
				assert.Equal(t, tc.message, res.Message)
				assert.Nil(t, h.manager.User())
				assert.Empty(t, h.manager.AccessToken())
				assert.Empty(t, h.store.Snapshot())
				assert.Equal(t, Anonymous, h.manager.State())
				assert.False(t, h.manager.Busy())
			})
		}
	})

	t.Run("rejection is notified once", func(t *testing.T) {
		h := newHarness(t, nil)
		h.backend.handle("POST /api/account/login", reply(200, map[string]any{"success": false, "message": "wrong password"}))

		h.manager.Login(ctx, annCreds)
		assert.Len(t, h.notifier.Messages(), 1)
	})

	t.Run("invalid credentials make no request", func(t *testing.T) {
		h := newHarness(t, nil)

		res := h.manager.Login(ctx, models.Credentials{Username: "ann"})
		assert.False(t, res.Success)
		assert.Zero(t, h.backend.total())
	})

	t.Run("persistence failure rolls back", func(t *testing.T) {
		h := newHarness(t, nil)
		h.store.SetErr[models.KeyUser] = errors.New("disk full")
		h.backend.handle("POST /api/account/login", reply(200, json.RawMessage(annLogin)))

		res := h.manager.Login(ctx, annCreds)

		assert.False(t, res.Success)
		assert.Equal(t, MsgSaveFailed, res.Message)
		assert.Empty(t, h.store.Snapshot(), "token entry must be rolled back")
		assert.Empty(t, h.manager.AccessToken())
	})

	t.Run("busy and authenticating while in flight", func(t *testing.T) {
		h := newHarness(t, nil)
		arrived, release := make(chan struct{}), make(chan struct{})
		h.backend.handle("POST /api/account/login", func(w http.ResponseWriter, r *http.Request) {
			close(arrived)
			<-release
			w.Write([]byte(annLogin))
		})

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.manager.Login(ctx, annCreds)
		}()

		<-arrived
		assert.True(t, h.manager.Busy())
		assert.Equal(t, Authenticating, h.manager.State())
		close(release)
		wg.Wait()

		assert.False(t, h.manager.Busy())
		assert.Equal(t, Authenticated, h.manager.State())
	})
}

func TestLogout(t *testing.T) {
	ctx := context.Background()

	t.Run("clears everything", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		h.backend.handle("POST /api/account/logout", reply(200, map[string]any{"success": true}))

		res := h.manager.Logout(ctx)

		assert.True(t, res.Success)
		assert.Equal(t, 1, h.backend.count("POST /api/account/logout"))
		assert.Nil(t, h.manager.User())
		assert.Empty(t, h.manager.AccessToken())
		assert.Empty(t, h.store.Snapshot())
		assert.Empty(t, h.ping(t), "no Authorization header after logout")
	})

	t.Run("remote failure still clears local state", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		h.backend.handle("POST /api/account/logout", dropConnection)

		res := h.manager.Logout(ctx)

		assert.False(t, res.Success)
		assert.Equal(t, MsgLogoutError, res.Message)
		assert.Equal(t, Anonymous, h.manager.State())
		assert.Empty(t, h.store.Snapshot())
		assert.Empty(t, h.ping(t))
	})

	t.Run("without a token makes no request", func(t *testing.T) {
		h := newHarness(t, nil)

		res := h.manager.Logout(ctx)
		assert.True(t, res.Success)
		assert.Zero(t, h.backend.total())
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("does not log in", func(t *testing.T) {
		h := newHarness(t, nil)
		h.backend.handle("POST /api/account/register", reply(200, map[string]any{"success": true, "token": "ignored"}))

		res := h.manager.Register(ctx, models.Registration{Username: "ann", Password: "x"})

		assert.True(t, res.Success)
		assert.Equal(t, MsgRegistered, res.Message)
		assert.Equal(t, Anonymous, h.manager.State())
		assert.Empty(t, h.store.Snapshot())
	})

	t.Run("rejection", func(t *testing.T) {
		h := newHarness(t, nil)
		h.backend.handle("POST /api/account/register", reply(200, map[string]any{"success": false}))

		res := h.manager.Register(ctx, models.Registration{Username: "ann", Password: "x"})
		assert.False(t, res.Success)
		assert.Equal(t, MsgRegisterFailed, res.Message)
	})
}

func TestRefreshToken(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces token and leaves user untouched", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		userBefore := h.store.Snapshot()[models.KeyUser]
		memBefore, _ := json.Marshal(h.manager.User())
		h.backend.handle("POST /api/account/refresh-token", reply(200, map[string]any{"success": true, "token": "t2"}))

		res := h.manager.RefreshToken(ctx)

		require.True(t, res.Success)
		assert.Equal(t, "t2", h.manager.AccessToken())
		assert.Equal(t, "t2", h.store.Snapshot()[models.KeyToken])
		assert.Equal(t, userBefore, h.store.Snapshot()[models.KeyUser])
		memAfter, _ := json.Marshal(h.manager.User())
		assert.Equal(t, memBefore, memAfter)
		assert.Equal(t, "Bearer t2", h.ping(t))
	})

	t.Run("empty token makes no request", func(t *testing.T) {
		h := newHarness(t, nil)

		res := h.manager.RefreshToken(ctx)

		assert.Equal(t, Result{Message: "no valid token"}, res)
		assert.Zero(t, h.backend.total())
	})

	t.Run("failure leaves state unchanged and is silent", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		h.backend.handle("POST /api/account/refresh-token", reply(200, map[string]any{"success": false}))

		res := h.manager.RefreshToken(ctx)

		assert.False(t, res.Success)
		assert.Equal(t, MsgRefreshFailed, res.Message)
		assert.Equal(t, "t1", h.manager.AccessToken())
		assert.Equal(t, "t1", h.store.Snapshot()[models.KeyToken])
		assert.Empty(t, h.notifier.Messages())
	})

	t.Run("concurrent refreshes share one request", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		release := make(chan struct{})
		h.backend.handle("POST /api/account/refresh-token", func(w http.ResponseWriter, r *http.Request) {
			<-release
			w.Write([]byte(`{"success":true,"token":"t2"}`))
		})

		var wg sync.WaitGroup
		results := make([]Result, 5)
		for i := range results {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i] = h.manager.RefreshToken(ctx)
			}()
		}
		require.Eventually(t, func() bool { return h.backend.count("POST /api/account/refresh-token") == 1 }, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		close(release)
		wg.Wait()

		assert.Equal(t, 1, h.backend.count("POST /api/account/refresh-token"))
		for _, res := range results {
			assert.True(t, res.Success)
		}
	})

	t.Run("a cancelled caller does not fail the others", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		release := make(chan struct{})
		h.backend.handle("POST /api/account/refresh-token", func(w http.ResponseWriter, r *http.Request) {
			<-release
			w.Write([]byte(`{"success":true,"token":"t2"}`))
		})

		first, cancel := context.WithCancel(ctx)
		firstDone := make(chan Result, 1)
		go func() { firstDone <- h.manager.RefreshToken(first) }()
		require.Eventually(t, func() bool { return h.backend.count("POST /api/account/refresh-token") == 1 }, time.Second, 5*time.Millisecond)

		secondDone := make(chan Result, 1)
		go func() { secondDone <- h.manager.RefreshToken(ctx) }()
		time.Sleep(20 * time.Millisecond)

		cancel()
		assert.False(t, (<-firstDone).Success)

		close(release)
		second := <-secondDone
		assert.True(t, second.Success)
		assert.Equal(t, "t2", h.manager.AccessToken())
		assert.Equal(t, "t2", h.store.Snapshot()[models.KeyToken])
		assert.Equal(t, 1, h.backend.count("POST /api/account/refresh-token"))
		assert.Empty(t, h.notifier.Messages())
	})

	t.Run("token from a torn down session is discarded", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		h.backend.handle("POST /api/account/refresh-token", func(w http.ResponseWriter, r *http.Request) {
			h.manager.Teardown(context.Background())
			w.Write([]byte(`{"success":true,"token":"t2"}`))
		})

		res := h.manager.RefreshToken(ctx)

		assert.False(t, res.Success)
		assert.Equal(t, MsgSessionEnded, res.Message)
		assert.Empty(t, h.manager.AccessToken())
		assert.Empty(t, h.store.Snapshot())
	})
}

func TestFetchCurrentUser(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces user", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		h.backend.handle("GET /api/user/current", reply(200, map[string]any{
			"success": true,
			"user":    map[string]any{"id": 7, "username": "ann", "nickname": "Annie", "avatarUrl": "https://img/ann.png"},
		}))

		res := h.manager.FetchCurrentUser(ctx)

		require.True(t, res.Success)
		assert.Equal(t, "Annie", h.manager.DisplayName())
		assert.Equal(t, "https://img/ann.png", h.manager.AvatarURL())
		assert.Contains(t, h.store.Snapshot()[models.KeyUser], "Annie")
	})

	t.Run("failure keeps previous user", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		h.backend.handle("GET /api/user/current", reply(500, map[string]any{}))

		res := h.manager.FetchCurrentUser(ctx)

		assert.False(t, res.Success)
		assert.Equal(t, "ann", h.manager.User().Username)
	})

	t.Run("requires token", func(t *testing.T) {
		h := newHarness(t, nil)

		res := h.manager.FetchCurrentUser(ctx)
		assert.Equal(t, MsgNotLoggedIn, res.Message)
		assert.Zero(t, h.backend.total())
	})
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	nickname := "Annie"

	t.Run("without a session makes no request", func(t *testing.T) {
		h := newHarness(t, nil)

		res := h.manager.UpdateUser(ctx, models.UserPatch{Nickname: &nickname})

		assert.False(t, res.Success)
		assert.Equal(t, MsgMissingUserID, res.Message)
		assert.Zero(t, h.backend.total())
	})

	t.Run("merges patch", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		h.backend.handle("PUT /api/user/7", reply(200, map[string]any{"success": true}))

		res := h.manager.UpdateUser(ctx, models.UserPatch{Nickname: &nickname})

		require.True(t, res.Success)
		assert.Equal(t, "Annie", res.User.Nickname)
		assert.Equal(t, "ann", res.User.Username)
		assert.Equal(t, "Annie", h.manager.DisplayName())
		assert.Contains(t, h.store.Snapshot()[models.KeyUser], "Annie")
	})

	t.Run("failure keeps previous user", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		h.backend.handle("PUT /api/user/7", reply(200, map[string]any{"success": false, "message": "nickname taken"}))

		res := h.manager.UpdateUser(ctx, models.UserPatch{Nickname: &nickname})

		assert.Equal(t, Result{Message: "nickname taken"}, res)
		assert.Equal(t, "ann", h.manager.DisplayName())
	})

	t.Run("empty patch", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)

		res := h.manager.UpdateUser(ctx, models.UserPatch{})
		assert.Equal(t, MsgNothingToUpdate, res.Message)
		assert.Equal(t, 1, h.backend.total(), "only the login request")
	})
}

func TestRestore(t *testing.T) {
	ctx := context.Background()

	t.Run("valid entries", func(t *testing.T) {
		h := newHarness(t, map[string]string{
			models.KeyToken: "t1",
			models.KeyUser:  `{"id":7,"username":"ann","level":3}`,
		})

		assert.Equal(t, Authenticated, h.manager.State())
		assert.Equal(t, "ann", h.manager.DisplayName())
		assert.Equal(t, "Bearer t1", h.ping(t))
	})

	t.Run("malformed user is discarded", func(t *testing.T) {
		h := newHarness(t, map[string]string{
			models.KeyToken: "t1",
			models.KeyUser:  `{"id":7,"username":`,
		})

		assert.Nil(t, h.manager.User())
		assert.Equal(t, "t1", h.manager.AccessToken())
		_, ok := h.store.Snapshot()[models.KeyUser]
		assert.False(t, ok, "malformed entry must be removed")
		assert.Empty(t, h.notifier.Messages())
	})

	t.Run("user without token is discarded", func(t *testing.T) {
		h := newHarness(t, map[string]string{models.KeyUser: `{"id":7,"username":"ann"}`})

		assert.Equal(t, Anonymous, h.manager.State())
		assert.Empty(t, h.store.Snapshot())
	})

	t.Run("read errors are tolerated", func(t *testing.T) {
		h := newHarness(t, nil)
		h.store.GetErr[models.KeyToken] = errors.New("locked")

		assert.Equal(t, Anonymous, h.manager.Restore(ctx))
	})
}

func TestAdoptToken(t *testing.T) {
	ctx := context.Background()

	t.Run("installs token and profile", func(t *testing.T) {
		h := newHarness(t, nil)
		h.backend.handle("GET /api/user/current", func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "Bearer imported", r.Header.Get("Authorization"))
			w.Write([]byte(`{"success":true,"user":{"id":9,"username":"zed"}}`))
		})

		res := h.manager.AdoptToken(ctx, "imported")

		require.True(t, res.Success)
		assert.Equal(t, Authenticated, h.manager.State())
		assert.Equal(t, "imported", h.store.Snapshot()[models.KeyToken])
	})

	t.Run("failure restores previous session", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		h.backend.handle("GET /api/user/current", reply(500, map[string]any{}))

		res := h.manager.AdoptToken(ctx, "imported")

		assert.False(t, res.Success)
		assert.Equal(t, "t1", h.manager.AccessToken())
		assert.Equal(t, "ann", h.manager.DisplayName())
		assert.Equal(t, "t1", h.store.Snapshot()[models.KeyToken])
	})

	t.Run("rejected import with 401 keeps the previous session and store", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		before := h.store.Snapshot()
		h.backend.handle("GET /api/user/current", reply(http.StatusUnauthorized, map[string]any{"success": false}))

		res := h.manager.AdoptToken(ctx, "bogus")

		assert.False(t, res.Success)
		assert.Equal(t, MsgLoginFailed, res.Message)
		assert.Equal(t, Authenticated, h.manager.State())
		assert.Equal(t, "t1", h.manager.AccessToken())
		assert.Equal(t, before, h.store.Snapshot())
		assert.Zero(t, h.nav.Calls())
		assert.Empty(t, h.notifier.Messages())
	})

	t.Run("rejected import without a session stays anonymous", func(t *testing.T) {
		h := newHarness(t, nil)
		h.backend.handle("GET /api/user/current", reply(http.StatusUnauthorized, map[string]any{"message": "invalid token"}))

		res := h.manager.AdoptToken(ctx, "bogus")

		assert.Equal(t, "invalid token", res.Message)
		assert.Equal(t, Anonymous, h.manager.State())
		assert.Empty(t, h.store.Snapshot())
		assert.Zero(t, h.nav.Calls())
	})

	t.Run("other requests keep the live token while the import is in flight", func(t *testing.T) {
		h := newHarness(t, nil)
		h.loginAnn(t)
		arrived := make(chan struct{})
		release := make(chan struct{})
		h.backend.handle("GET /api/user/current", func(w http.ResponseWriter, r *http.Request) {
			close(arrived)
			<-release
			w.Write([]byte(`{"success":true,"user":{"id":9,"username":"zed"}}`))
		})

		done := make(chan Result, 1)
		go func() { done <- h.manager.AdoptToken(ctx, "imported") }()
		<-arrived

		assert.Equal(t, "Bearer t1", h.ping(t))
		assert.Equal(t, "ann", h.manager.DisplayName())

		close(release)
		res := <-done
		require.True(t, res.Success)
		assert.Equal(t, "imported", h.manager.AccessToken())
		assert.Equal(t, "Bearer imported", h.ping(t))
	})

	t.Run("empty token", func(t *testing.T) {
		h := newHarness(t, nil)
		assert.Equal(t, MsgNoToken, h.manager.AdoptToken(ctx, "").Message)
		assert.Zero(t, h.backend.total())
	})
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	signed := func(t *testing.T, exp time.Time) string {
		t.Helper()
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "exp": exp.Unix()}).SignedString([]byte("test-key"))
		require.NoError(t, err)
		return token
	}

	t.Run("ExpiresAt", func(t *testing.T) {
		h := newHarness(t, map[string]string{models.KeyToken: signed(t, now.Add(time.Hour))})

		exp, ok := h.manager.ExpiresAt()
		require.True(t, ok)
		assert.True(t, exp.Equal(now.Add(time.Hour)))

		tok, err := h.manager.Token()
		require.NoError(t, err)
		assert.True(t, tok.Expiry.Equal(now.Add(time.Hour)))
	})

	t.Run("opaque token has no expiry", func(t *testing.T) {
		h := newHarness(t, map[string]string{models.KeyToken: "opaque"})
		_, ok := h.manager.ExpiresAt()
		assert.False(t, ok)

		_, attempted := h.manager.RefreshIfExpiring(ctx, time.Hour)
		assert.False(t, attempted)
	})

	t.Run("RefreshIfExpiring", func(t *testing.T) {
		h := newHarness(t, map[string]string{
			models.KeyToken: signed(t, now.Add(2*time.Minute)),
			models.KeyUser:  `{"id":7,"username":"ann"}`,
		})
		h.manager.now = func() time.Time { return now }
		h.backend.handle("POST /api/account/refresh-token", reply(200, map[string]any{"success": true, "token": "fresh"}))

		_, attempted := h.manager.RefreshIfExpiring(ctx, time.Minute)
		assert.False(t, attempted, "outside the window")

		res, attempted := h.manager.RefreshIfExpiring(ctx, 5*time.Minute)
		assert.True(t, attempted)
		assert.True(t, res.Success)
		assert.Equal(t, "fresh", h.manager.AccessToken())
	})
}

func TestSubscribe(t *testing.T) {
	h := newHarness(t, nil)

	var (
		mu    sync.Mutex
		snaps []Snapshot
	)
	cancel := h.manager.Subscribe(func(s Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	h.loginAnn(t)
	cancel()
	h.manager.Teardown(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, snaps)
	last := snaps[len(snaps)-1]
	assert.Equal(t, Authenticated, last.State)
	assert.Equal(t, "ann", last.DisplayName)
	assert.False(t, last.Busy)

	var sawBusy bool
	for _, s := range snaps {
		sawBusy = sawBusy || s.Busy
	}
	assert.True(t, sawBusy)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "anonymous", Anonymous.String())
	assert.Equal(t, "authenticating", Authenticating.String())
	assert.Equal(t, "authenticated", Authenticated.String())
	assert.Equal(t, "unknown", State(9).String())
}

func TestTokenSource(t *testing.T) {
	h := newHarness(t, nil)

	_, err := h.manager.Token()
	assert.Error(t, err)

	h.loginAnn(t)
	tok, err := h.manager.Token()
	require.NoError(t, err)
	assert.Equal(t, "t1", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.Type())
	assert.True(t, tok.Expiry.IsZero())
}
