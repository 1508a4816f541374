package oauth

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// Listener is a loopback HTTP server receiving the provider redirect for a
// terminal session. Browsers may request the callback more than once
// (reloads, prefetch); the handler's guard absorbs the repeats.
type Listener struct {
	handler *Handler
	state   string
	logger  *slog.Logger

	ln   net.Listener
	srv  *http.Server
	once sync.Once
	done chan Outcome
}

// Listen binds addr (e.g. "127.0.0.1:0") and serves the callback routes.
// Requests whose state does not match are rejected.
func Listen(addr string, h *Handler, state string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}

	l := &Listener{
		handler: h,
		state:   state,
		logger:  h.logger(),
		ln:      ln,
		done:    make(chan Outcome, 1),
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/auth/{provider}/callback", l.callback)

	l.srv = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := l.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.logger.Error("oauth_listener_stopped", "error", err.Error())
		}
	}()
	return l, nil
}

// RedirectBase is the origin to register as the provider redirect.
func (l *Listener) RedirectBase() string {
	return "http://" + l.ln.Addr().String()
}

// Wait blocks until a callback signed the user in or failed.
func (l *Listener) Wait(ctx context.Context) (Outcome, error) {
	select {
	case o := <-l.done:
		return o, nil
	case <-ctx.Done():
		return Ignored, ctx.Err()
	}
}

// Close shuts the server down.
func (l *Listener) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return l.srv.Shutdown(ctx)
}

func (l *Listener) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cb := Callback{
		Provider: chi.URLParam(r, "provider"),
		Code:     q.Get("code"),
		State:    q.Get("state"),
		Error:    q.Get("error"),
	}
	if l.state != "" && cb.State != l.state {
		l.logger.Warn("oauth_state_mismatch", "provider", cb.Provider)
		writePage(w, http.StatusBadRequest, "Sign-in request did not match. Start again from the terminal.")
		return
	}

	// A reload must not abort the exchange already under way.
	outcome := l.handler.HandleCallback(context.WithoutCancel(r.Context()), cb)
	switch outcome {
	case SignedIn:
		writePage(w, http.StatusOK, "Signed in. You can close this window.")
	case Duplicate:
		writePage(w, http.StatusAccepted, "Sign-in is already being processed.")
		return
	case Ignored:
		writePage(w, http.StatusBadRequest, "No authorization code received.")
		return
	default:
		writePage(w, http.StatusUnauthorized, "Sign-in failed. Return to the terminal.")
	}
	l.once.Do(func() { l.done <- outcome })
}

func writePage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<!doctype html><title>Eventora</title><p>%s</p>", html.EscapeString(msg))
}
