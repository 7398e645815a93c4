package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vidx/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	DefaultBaseURL  = "http://localhost:8080"
	DefaultTimeout  = 10 * time.Second
	RequestIDHeader = "X-Request-ID"
)

// ClientOptions configures a [Client]. Zero values fall back to defaults.
type ClientOptions struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64 // requests per second, 0 disables limiting
	UserAgent  string
	HTTPClient *http.Client // its Timeout is overwritten
	Tokens     oauth2.TokenSource
	Notifier   Notifier
	Logger     *log.Logger
}

// Client is the shared HTTP client for the video backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	headers    http.Header
	limiter    *rate.Limiter
	logger     *log.Logger

	mu             sync.RWMutex
	tokens         oauth2.TokenSource
	notifier       Notifier
	onUnauthorized UnauthorizedHandler
}

// NewClient creates a new [Client].
func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	httpClient := &http.Client{}
	if opts.HTTPClient != nil {
		copied := *opts.HTTPClient
		httpClient = &copied
	}
	httpClient.Timeout = timeout

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	notifier := opts.Notifier
	if notifier == nil {
		notifier = discardNotifier{}
	}

	headers := http.Header{}
	headers.Set("Accept", "application/json")
	if opts.UserAgent != "" {
		headers.Set("User-Agent", opts.UserAgent)
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		headers:    headers,
		limiter:    limiter,
		logger:     logger,
		tokens:     opts.Tokens,
		notifier:   notifier,
	}
}

// BaseURL returns the backend URL requests are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.httpClient.Timeout }

// SetTokenSource sets the credential source consulted on every request.
func (c *Client) SetTokenSource(ts oauth2.TokenSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens = ts
}

// SetNotifier replaces the notification channel. A nil notifier discards messages.
func (c *Client) SetNotifier(n Notifier) {
	if n == nil {
		n = discardNotifier{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier = n
}

// OnUnauthorized registers the handler invoked on 401 responses.
func (c *Client) OnUnauthorized(h UnauthorizedHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = h
}

type unauthorizedKey struct{}

// Do sends req and returns the decoded [Envelope].
//
// Failures are returned as [*APIError] after notification. A success=false envelope is returned alongside its error.
func (c *Client) Do(ctx context.Context, req Request) (*Envelope, error) {
	env, status, body, sentToken, err := c.send(ctx, req)
	if apiErr := Classify(status, body, err); apiErr != nil {
		c.fail(ctx, req, sentToken, apiErr)
		return env, apiErr
	}
	if env == nil {
		env = &Envelope{Success: true}
	}
	return env, nil
}

func (c *Client) send(ctx context.Context, req Request) (*Envelope, int, []byte, string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, 0, nil, "", fmt.Errorf("rate limiter: %w", err)
		}
	}

	httpReq, token, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, 0, nil, "", err
	}

	requestID := httpReq.Header.Get(RequestIDHeader)
	logger := c.logger.With("method", httpReq.Method, "path", req.Path, "request_id", requestID)
	start := time.Now()

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		logger.Debug("request failed", "error", err)
		return nil, 0, nil, token, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, nil, token, fmt.Errorf("failed to read response: %w", err)
	}
	logger.Debug("response", "status", resp.StatusCode, "elapsed", time.Since(start))

	var env *Envelope
	if len(body) > 0 && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		var decoded Envelope
		if json.Unmarshal(body, &decoded) == nil {
			env = &decoded
		}
	}
	return env, resp.StatusCode, body, token, nil
}

// newRequest builds the HTTP request and returns the bearer token it carries, if any.
func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, string, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	fullURL := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		fullURL += "?" + req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.File != nil:
		buf, ct, err := encodeMultipart(req.File)
		if err != nil {
			return nil, "", err
		}
		body, contentType = buf, ct
	case req.Body != nil:
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to encode request body: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	for k, v := range c.headers {
		httpReq.Header[k] = append([]string(nil), v...)
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set(RequestIDHeader, shared.GenerateID())

	if override, ok := ctx.Value(tokenKey{}).(string); ok {
		(&oauth2.Token{AccessToken: override, TokenType: "Bearer"}).SetAuthHeader(httpReq)
		return httpReq, override, nil
	}

	c.mu.RLock()
	tokens := c.tokens
	c.mu.RUnlock()
	var token string
	if tokens != nil {
		if tok, err := tokens.Token(); err == nil && tok != nil && tok.AccessToken != "" {
			tok.SetAuthHeader(httpReq)
			token = tok.AccessToken
		}
	}

	return httpReq, token, nil
}

type tokenKey struct{}

// WithToken returns a context whose requests carry token instead of the client's token source.
//
// An empty token is ignored.
func WithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenKey{}, token)
}

func encodeMultipart(f *File) (*bytes.Buffer, string, error) {
	field := f.Field
	if field == "" {
		field = "file"
	}

	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	part, err := w.CreateFormFile(field, f.Name)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f.Reader); err != nil {
		return nil, "", fmt.Errorf("failed to read upload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finish multipart body: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

// fail raises at most one notification for apiErr and routes 401s to the unauthorized handler.
func (c *Client) fail(ctx context.Context, req Request, sentToken string, apiErr *APIError) {
	c.mu.RLock()
	notifier, handler := c.notifier, c.onUnauthorized
	c.mu.RUnlock()

	c.logger.Warn("request failed", "path", req.Path, "kind", apiErr.Kind, "status", apiErr.Status, "message", apiErr.Message)

	switch apiErr.Kind {
	case KindUnauthorized:
		if handler != nil && ctx.Value(unauthorizedKey{}) == nil {
			if handler(context.WithValue(ctx, unauthorizedKey{}, true), sentToken) {
				return
			}
		}
	case KindValidation:
		if req.Silent {
			return
		}
	}
	notifier.Notify(LevelError, apiErr.Message)
}
