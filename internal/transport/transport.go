// Package transport is the HTTP client every backend call goes through. It
// attaches the session token, applies a per-call acceptable-status
// predicate and turns everything else into *Error values carrying the
// status and body the server sent.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds calls that do not set their own timeout.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a response body is buffered.
const maxBody = 10 << 20

// RequestIDHeader carries a per-call id the backend can log.
const RequestIDHeader = "X-Request-ID"

// StatusPredicate decides whether a status code counts as success.
type StatusPredicate func(status int) bool

// AcceptBelow400 treats [200,400) as success. Some deployments answer list
// reads with a redirect status that still carries the JSON body.
func AcceptBelow400(status int) bool { return status >= 200 && status < 400 }

// AcceptBelow500 treats [200,500) as success; callers inspect the status.
func AcceptBelow500(status int) bool { return status >= 200 && status < 500 }

// Accept2xx treats only [200,300) as success.
func Accept2xx(status int) bool { return status >= 200 && status < 300 }

// TokenSource supplies and revokes the bearer token.
type TokenSource interface {
	Token() string
	Clear() error
}

// Options tune a single call.
type Options struct {
	Params  url.Values
	Body    any
	Headers http.Header
	// Accept overrides the client's acceptable-status predicate.
	Accept StatusPredicate
	// Timeout overrides the client's default timeout.
	Timeout time.Duration
}

// Response is a successful reply.
type Response struct {
	Status int
	Header http.Header
	Data   []byte
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Data, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Text returns the body as a trimmed string.
func (r *Response) Text() string {
	return strings.TrimSpace(string(r.Data))
}

// Error is a failed call. Status is zero when no response arrived.
type Error struct {
	Method  string
	Path    string
	Status  int
	Data    []byte
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Redirect reports whether the failure is a 3xx response.
func (e *Error) Redirect() bool {
	return e.Status >= 300 && e.Status < 400
}

// Client talks to one backend.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenSource
	accept  StatusPredicate
	timeout time.Duration
	logger  *slog.Logger

	onUnauthenticated func()
	newRequestID      func() string
}

// Config configures a Client.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource
	Logger  *slog.Logger
	// HTTPClient is used as-is apart from redirect handling; nil means a
	// fresh client.
	HTTPClient *http.Client
	// OnUnauthenticated runs after a 401 cleared the session.
	OnUnauthenticated func()
}

// New validates cfg and builds a Client. Redirects are never followed so a
// 3xx body reaches the caller.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q: scheme or host missing", cfg.BaseURL)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hc := &http.Client{}
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		hc = &copied
	}
	hc.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	return &Client{
		baseURL:           base,
		http:              hc,
		tokens:            cfg.Tokens,
		accept:            AcceptBelow400,
		timeout:           timeout,
		logger:            logger,
		onUnauthenticated: cfg.OnUnauthenticated,
		newRequestID:      func() string { return uuid.NewString() },
	}, nil
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// OnUnauthenticated replaces the hook fired after a 401. Set it before the
// client is shared.
func (c *Client) OnUnauthenticated(fn func()) {
	c.onUnauthenticated = fn
}

// Get is shorthand for Do with GET.
func (c *Client) Get(ctx context.Context, path string, opts Options) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, opts)
}

// Post is shorthand for Do with POST.
func (c *Client) Post(ctx context.Context, path string, opts Options) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, opts)
}

// Put is shorthand for Do with PUT.
func (c *Client) Put(ctx context.Context, path string, opts Options) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, opts)
}

// Delete is shorthand for Do with DELETE.
func (c *Client) Delete(ctx context.Context, path string, opts Options) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, opts)
}

// Do performs one call. Responses rejected by the predicate come back as
// *Error with the status and body attached; a 401 while signed in
// additionally clears the session and fires the unauthenticated hook.
func (c *Client) Do(ctx context.Context, method, path string, opts Options) (*Response, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, opts)
	if err != nil {
		return nil, &Error{Method: method, Path: path, Message: err.Error(), Err: err}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug("http_request_failed", "method", method, "path", path, "error", err.Error())
		msg := "network error"
		if errors.Is(err, context.DeadlineExceeded) {
			msg = fmt.Sprintf("timeout of %s exceeded", timeout)
		}
		return nil, &Error{Method: method, Path: path, Message: msg, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &Error{Method: method, Path: path, Status: resp.StatusCode, Message: "read response body", Err: err}
	}

	c.logger.Debug("http_request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"request_id", req.Header.Get(RequestIDHeader),
	)

	accept := opts.Accept
	if accept == nil {
		accept = c.accept
	}
	if !accept(resp.StatusCode) {
		if resp.StatusCode == http.StatusUnauthorized {
			c.unauthenticated()
		}
		return nil, &Error{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode,
			Data:    data,
			Message: fmt.Sprintf("request failed with status code %d", resp.StatusCode),
		}
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Data: data}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, opts Options) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if len(opts.Params) > 0 {
		u.RawQuery = opts.Params.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		b, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, c.newRequestID())
	if c.tokens != nil {
		if tok := c.tokens.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	for k, vs := range opts.Headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// unauthenticated ends the session. The hook only fires when a token was
// held; an anonymous 401 (a rejected login) has no session to end.
func (c *Client) unauthenticated() {
	if c.tokens == nil || c.tokens.Token() == "" {
		return
	}
	if err := c.tokens.Clear(); err != nil {
		c.logger.Warn("session_clear_failed", "error", err.Error())
	}
	c.logger.Info("session_unauthenticated")
	if c.onUnauthenticated != nil {
		c.onUnauthenticated()
	}
}
