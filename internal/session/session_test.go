package session

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "user-42",
		"email": "ada@example.com",
		"name":  "Ada",
		"exp":   exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

func TestSession_SetAndClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s, err := Open(ctx, store, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.SignedIn() {
		t.Fatalf("expected signed out on empty store")
	}

	var changes []bool
	s.OnChange(func(signedIn bool) { changes = append(changes, signedIn) })

	if err := s.Set(ctx, "tok-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "tok-2"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := s.Token(); got != "tok-2" {
		t.Fatalf("expected last write to win, got %q", got)
	}
	if v, _ := store.Load(ctx, TokenKey); v != "tok-2" {
		t.Fatalf("expected persisted tok-2, got %q", v)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	if s.SignedIn() {
		t.Fatalf("expected signed out after Clear")
	}
	if _, err := store.Load(ctx, TokenKey); err != ErrNoToken {
		t.Fatalf("expected ErrNoToken after Clear, got %v", err)
	}

	want := []bool{true, true, false}
	if len(changes) != len(want) {
		t.Fatalf("expected %d notifications, got %v", len(want), changes)
	}
	for i := range want {
		if changes[i] != want[i] {
			t.Fatalf("notification %d: expected %v, got %v", i, want[i], changes[i])
		}
	}
}

func TestSession_SetRejectsEmpty(t *testing.T) {
	s, _ := Open(context.Background(), nil, nil)
	if err := s.Set(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.db")

	store, err := OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	s, err := Open(ctx, store, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Set(ctx, "persisted"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	store, err = OpenSQLite(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()
	s, err = Open(ctx, store, nil)
	if err != nil {
		t.Fatalf("Open after reopen: %v", err)
	}
	if got := s.Token(); got != "persisted" {
		t.Fatalf("expected token to survive reopen, got %q", got)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := store.Load(ctx, TokenKey); err != ErrNoToken {
		t.Fatalf("expected ErrNoToken after logout, got %v", err)
	}
}

func TestSession_ClaimsAndExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Now()
	s, _ := Open(ctx, NewMemoryStore(), nil)

	if _, err := s.Claims(); err != ErrNoToken {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	if err := s.Set(ctx, signedToken(t, now.Add(time.Hour))); err != nil {
		t.Fatalf("Set: %v", err)
	}
	c, err := s.Claims()
	if err != nil {
		t.Fatalf("Claims: %v", err)
	}
	if c.Subject != "user-42" || c.Email != "ada@example.com" || c.Name != "Ada" {
		t.Fatalf("unexpected claims: %+v", c)
	}
	if s.Expired(now) {
		t.Fatalf("expected token valid for another hour")
	}
	if !s.Expired(now.Add(2 * time.Hour)) {
		t.Fatalf("expected token expired two hours later")
	}

	if err := s.Set(ctx, "opaque-token"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if s.Expired(now) {
		t.Fatalf("opaque tokens must not be treated as expired")
	}
}
