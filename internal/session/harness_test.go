package session

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/desertthunder/vidx/internal/services"
	"github.com/desertthunder/vidx/internal/shared"
	tu "github.com/desertthunder/vidx/internal/testing"
)

// fakeBackend routes "METHOD /path" to handlers and records what it saw.
type fakeBackend struct {
	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	calls    map[string]int
	auth     []string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	b.mu.Lock()
	b.calls[key]++
	b.auth = append(b.auth, r.Header.Get("Authorization"))
	h, ok := b.handlers[key]
	b.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h(w, r)
}

func (b *fakeBackend) handle(key string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[key] = h
}

func (b *fakeBackend) count(key string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

func (b *fakeBackend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, c := range b.calls {
		n += c
	}
	return n
}

func (b *fakeBackend) lastAuth() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.auth) == 0 {
		return ""
	}
	return b.auth[len(b.auth)-1]
}

// reply answers with v encoded as JSON.
func reply(status int, v any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
}

// dropConnection simulates a network failure.
func dropConnection(w http.ResponseWriter, r *http.Request) {
	conn, _, err := w.(http.Hijacker).Hijack()
	if err == nil {
		conn.Close()
	}
}

type harness struct {
	backend  *fakeBackend
	store    *tu.MemoryStore
	notifier *tu.RecordingNotifier
	nav      *tu.FakeNavigator
	client   *services.Client
	manager  *Manager
}

func newHarness(t *testing.T, entries map[string]string) *harness {
	t.Helper()

	backend := &fakeBackend{handlers: map[string]http.HandlerFunc{}, calls: map[string]int{}}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	logger := shared.NewLogger(io.Discard)
	h := &harness{
		backend:  backend,
		store:    tu.NewMemoryStore(entries),
		notifier: &tu.RecordingNotifier{},
		nav:      &tu.FakeNavigator{},
	}

	h.client = services.NewClient(services.ClientOptions{BaseURL: srv.URL, Notifier: h.notifier, Logger: logger})
	h.manager = NewManager(Options{Store: h.store, Backend: services.NewAccountAPI(h.client), Logger: logger})
	h.client.SetTokenSource(h.manager)
	NewExpiryHook(h.manager, h.notifier, h.nav, logger).Register(h.client)

	h.manager.Restore(context.Background())
	return h
}

// ping sends an arbitrary request through the client and returns the Authorization header it carried.
func (h *harness) ping(t *testing.T) string {
	t.Helper()
	h.backend.handle("GET /ping", reply(200, map[string]any{"success": true}))
	if _, err := h.client.Do(context.Background(), services.Request{Path: "/ping"}); err != nil {
		t.Fatalf("ping failed: %v", err)
	}
	return h.backend.lastAuth()
}

const annLogin = `{"success":true,"token":"t1","user":{"id":7,"username":"ann"}}`

func (h *harness) loginAnn(t *testing.T) {
	t.Helper()
	h.backend.handle("POST /api/account/login", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(annLogin))
	})
	if res := h.manager.Login(context.Background(), annCreds); !res.Success {
		t.Fatalf("login failed: %s", res.Message)
	}
}
