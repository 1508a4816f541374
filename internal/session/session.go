// Package session owns the authentication token shared by every view. One
// Session value is created at start-up and passed by reference to the
// transport and identity collaborators; login and logout are the only
// writers.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenKey is the key the token is persisted under.
const TokenKey = "eventora_token"

// ErrNoToken is returned by stores that hold no token.
var ErrNoToken = errors.New("no token stored")

// Store persists the token across process restarts.
type Store interface {
	Load(ctx context.Context, key string) (string, error)
	Save(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Claims is what the client can read from a token without verifying it.
type Claims struct {
	Subject   string
	Email     string
	Name      string
	ExpiresAt time.Time
}

// Session is the single, last-write-wins holder of the auth token.
type Session struct {
	mu        sync.RWMutex
	token     string
	store     Store
	logger    *slog.Logger
	listeners []func(signedIn bool)
}

// Open loads a previously persisted token from store.
func Open(ctx context.Context, store Store, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{store: store, logger: logger}
	if store == nil {
		return s, nil
	}

	tok, err := store.Load(ctx, TokenKey)
	if err != nil && !errors.Is(err, ErrNoToken) {
		return nil, fmt.Errorf("load token: %w", err)
	}
	s.token = tok
	return s, nil
}

// Token returns the current token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// SignedIn reports whether a token is held.
func (s *Session) SignedIn() bool {
	return s.Token() != ""
}

// Set stores a new token, replacing any previous one.
func (s *Session) Set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("empty token")
	}
	s.mu.Lock()
	s.token = token
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Save(ctx, TokenKey, token); err != nil {
			return fmt.Errorf("persist token: %w", err)
		}
	}
	s.logger.Info("session_signed_in")
	notify(listeners, true)
	return nil
}

// Clear drops the token in memory and in the store.
func (s *Session) Clear() error {
	s.mu.Lock()
	had := s.token != ""
	s.token = ""
	listeners := append([]func(bool){}, s.listeners...)
	s.mu.Unlock()

	if s.store != nil {
		if err := s.store.Delete(context.Background(), TokenKey); err != nil {
			return fmt.Errorf("delete token: %w", err)
		}
	}
	if had {
		s.logger.Info("session_signed_out")
		notify(listeners, false)
	}
	return nil
}

// OnChange registers fn to run after every sign-in or sign-out.
func (s *Session) OnChange(fn func(signedIn bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Claims decodes the token payload. The signature is not verified; the
// backend remains the authority, this only drives local display and expiry
// checks.
func (s *Session) Claims() (*Claims, error) {
	tok := s.Token()
	if tok == "" {
		return nil, ErrNoToken
	}
	return ParseClaims(tok)
}

// Expired reports whether the held token carries an expiry before now.
// Tokens that cannot be decoded are not considered expired.
func (s *Session) Expired(now time.Time) bool {
	c, err := s.Claims()
	if err != nil || c.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(c.ExpiresAt)
}

// ParseClaims reads the registered and profile claims of a JWT.
func ParseClaims(token string) (*Claims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	c := &Claims{}
	if sub, err := mc.GetSubject(); err == nil {
		c.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if v, ok := mc["email"].(string); ok {
		c.Email = v
	}
	if v, ok := mc["name"].(string); ok {
		c.Name = v
	}
	return c, nil
}

func notify(listeners []func(bool), signedIn bool) {
	for _, fn := range listeners {
		fn(signedIn)
	}
}
