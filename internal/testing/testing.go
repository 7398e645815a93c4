// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/vidx/internal/models"
	"github.com/desertthunder/vidx/internal/services"
)

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
	calls    atomic.Int32
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	m.calls.Add(1)
	return m.response, m.err
}

// Calls reports how many requests reached the transport.
func (m *MockRoundTripper) Calls() int { return int(m.calls.Load()) }

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

// MemoryStore is an in-memory [models.CredentialStore] with failure injection.
type MemoryStore struct {
	mu      sync.Mutex
	data    map[string]string
	SetErr  map[string]error // returned by Set for the key
	GetErr  map[string]error // returned by Get for the key
	Removes []string
}

var _ models.CredentialStore = (*MemoryStore)(nil)

// NewMemoryStore creates a [MemoryStore] seeded with entries.
func NewMemoryStore(entries map[string]string) *MemoryStore {
	data := make(map[string]string, len(entries))
	for k, v := range entries {
		data[k] = v
	}
	return &MemoryStore{data: data, SetErr: map[string]error{}, GetErr: map[string]error{}}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.GetErr[key]; err != nil {
		return "", false, err
	}
	v, ok := s.data[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.SetErr[key]; err != nil {
		return err
	}
	s.data[key] = value
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Removes = append(s.Removes, key)
	delete(s.data, key)
	return nil
}

// Snapshot returns a copy of the stored entries.
func (s *MemoryStore) Snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out
}

// Notification is one message captured by [RecordingNotifier].
type Notification struct {
	Level   services.Level
	Message string
}

// RecordingNotifier captures notifications for assertions.
type RecordingNotifier struct {
	mu   sync.Mutex
	msgs []Notification
}

func (n *RecordingNotifier) Notify(level services.Level, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs = append(n.msgs, Notification{Level: level, Message: message})
}

// Messages returns the captured notifications in order.
func (n *RecordingNotifier) Messages() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notification(nil), n.msgs...)
}

// FakeNavigator counts navigations to the login surface.
type FakeNavigator struct {
	calls atomic.Int32
}

func (f *FakeNavigator) ToLogin() { f.calls.Add(1) }

// Calls reports how many times ToLogin was invoked.
func (f *FakeNavigator) Calls() int { return int(f.calls.Load()) }
