package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

const (
	// ExchangeTimeout bounds the code exchange.
	ExchangeTimeout = 10 * time.Second
	// GraceDelay is how long a failure stays on screen before returning
	// to the login view.
	GraceDelay = 3 * time.Second
)

// Route is a view the handler navigates to.
type Route string

const (
	RouteHome  Route = "/home"
	RouteLogin Route = "/login"
)

// Exchanger swaps an authorization code for a backend token.
type Exchanger interface {
	ExchangeOAuthCode(ctx context.Context, provider, code string) (*model.TokenResponse, error)
}

// TokenSink persists the token on success.
type TokenSink interface {
	Set(ctx context.Context, token string) error
}

// Callback is what the provider redirect delivered.
type Callback struct {
	Provider string
	Code     string
	State    string
	// Error is the provider's error parameter, e.g. access_denied.
	Error string
}

// ParseCallback reads a redirect URL of the form
// /auth/{provider}/callback?code=...&state=...
func ParseCallback(u *url.URL) Callback {
	cb := Callback{
		Code:  u.Query().Get("code"),
		State: u.Query().Get("state"),
		Error: u.Query().Get("error"),
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) >= 2 && parts[0] == "auth" {
		cb.Provider = parts[1]
	}
	return cb
}

// Outcome reports how a callback was handled.
type Outcome int

const (
	// Ignored means there was nothing to exchange.
	Ignored Outcome = iota
	// Duplicate means another invocation owns or already used the code.
	Duplicate
	// SignedIn means the token was stored.
	SignedIn
	// Failed means the user was shown an error and sent back to login.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Duplicate:
		return "duplicate"
	case SignedIn:
		return "signed_in"
	case Failed:
		return "failed"
	default:
		return "ignored"
	}
}

// Handler runs the callback flow.
type Handler struct {
	Guard     *Guard
	Exchanger Exchanger
	Tokens    TokenSink
	// Navigate replaces the current view; there is no way back into the
	// callback.
	Navigate func(Route)
	// Notify shows a message to the user.
	Notify func(msg string)
	Logger *slog.Logger

	Timeout time.Duration
	Grace   time.Duration
	// Sleep waits out the grace delay; tests replace it.
	Sleep func(ctx context.Context, d time.Duration)
}

// HandleCallback exchanges cb's code at most once and navigates according
// to the result. The guard is released on every exit path.
func (h *Handler) HandleCallback(ctx context.Context, cb Callback) Outcome {
	logger := h.logger()

	if cb.Error != "" {
		logger.Warn("oauth_provider_error", "provider", cb.Provider, "error", cb.Error)
		h.fail(ctx, "OAuth authentication failed.")
		return Failed
	}
	if cb.Code == "" {
		return Ignored
	}
	provider, err := ParseProvider(cb.Provider)
	if err != nil {
		logger.Warn("oauth_unknown_provider", "provider", cb.Provider)
		h.fail(ctx, err.Error())
		return Failed
	}

	release, ok := h.Guard.Acquire(cb.Code)
	if !ok {
		logger.Debug("oauth_exchange_skipped", "provider", provider)
		return Duplicate
	}
	defer release()

	tok, err := h.exchange(ctx, provider, cb.Code)
	if err != nil {
		release()
		kind := apperr.KindOf(err)
		if kind.External() {
			logger.Warn("oauth_exchange_failed", "provider", provider, "kind", kind.String(), "error", err.Error())
		} else {
			logger.Error("oauth_exchange_failed", "provider", provider, "error", err.Error())
		}
		h.fail(ctx, apperr.Message(err, "OAuth authentication failed."))
		return Failed
	}
	if tok == nil || strings.TrimSpace(tok.Token) == "" {
		release()
		logger.Warn("oauth_exchange_empty_token", "provider", provider)
		h.fail(ctx, "Authentication failed. No token received.")
		return Failed
	}

	if err := h.Tokens.Set(ctx, tok.Token); err != nil {
		release()
		logger.Error("oauth_token_persist_failed", "error", err.Error())
		h.fail(ctx, "Could not save your session.")
		return Failed
	}
	release()
	logger.Info("oauth_signed_in", "provider", provider)
	h.navigate(RouteHome)
	return SignedIn
}

// exchange calls the backend with a bounded timeout and turns a panic in
// the collaborator into an error so the guard is never left held.
func (h *Handler) exchange(ctx context.Context, provider Provider, code string) (tok *model.TokenResponse, err error) {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = ExchangeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			tok, err = nil, fmt.Errorf("oauth exchange panicked: %v", r)
		}
	}()
	tok, err = h.Exchanger.ExchangeOAuthCode(ctx, string(provider), code)
	if err != nil {
		return nil, apperr.Classify(err, "OAuth authentication failed.")
	}
	return tok, nil
}

func (h *Handler) fail(ctx context.Context, msg string) {
	if h.Notify != nil {
		h.Notify(msg)
	}
	grace := h.Grace
	if grace <= 0 {
		grace = GraceDelay
	}
	sleep := h.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	sleep(ctx, grace)
	h.navigate(RouteLogin)
}

func (h *Handler) navigate(r Route) {
	if h.Navigate != nil {
		h.Navigate(r)
	}
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
