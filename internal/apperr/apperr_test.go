package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Shivanand-hulikatti/eventora/internal/transport"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
		msg  string
	}{
		{"network", &transport.Error{Message: "network error"}, TransientNetwork, "fallback"},
		{"unauthorized", &transport.Error{Status: 401, Data: []byte(`{"message":"token expired"}`)}, Auth, "token expired"},
		{"forbidden", &transport.Error{Status: 403}, Auth, "fallback"},
		{"not found", &transport.Error{Status: 404, Data: []byte(`"no such event"`)}, NotFound, "no such event"},
		{"bad request", &transport.Error{Status: 400, Data: []byte(`{"error":"title is required"}`)}, Validation, "title is required"},
		{"conflict", &transport.Error{Status: 409, Data: []byte("user already exists")}, ServerMessage, "user already exists"},
		{"html page", &transport.Error{Status: 502, Data: []byte("<html>bad gateway</html>")}, ServerMessage, "fallback"},
		{"deadline", fmt.Errorf("load: %w", context.DeadlineExceeded), TransientNetwork, "fallback"},
		{"plain", errors.New("boom"), Internal, "fallback"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.err, "fallback")
			if got.Kind != tc.kind {
				t.Errorf("kind = %s, want %s", got.Kind, tc.kind)
			}
			if got.Message != tc.msg {
				t.Errorf("message = %q, want %q", got.Message, tc.msg)
			}
		})
	}
}

func TestClassify_KeepsClassifiedError(t *testing.T) {
	orig := Validationf("price must be positive")
	wrapped := fmt.Errorf("create: %w", orig)
	if got := Classify(wrapped, "fallback"); got != orig {
		t.Fatalf("Classify rewrapped an already classified error: %v", got)
	}
	if Classify(nil, "fallback") != nil {
		t.Fatalf("Classify(nil) should be nil")
	}
}

func TestSentinels(t *testing.T) {
	err := fmt.Errorf("register: %w", Authf("sign in first"))
	if !errors.Is(err, ErrAuth) {
		t.Errorf("errors.Is(err, ErrAuth) = false")
	}
	if errors.Is(err, ErrNotFound) {
		t.Errorf("auth error matched ErrNotFound")
	}
	if KindOf(err) != Auth {
		t.Errorf("KindOf = %s", KindOf(err))
	}
	if KindOf(errors.New("x")) != Internal {
		t.Errorf("unclassified errors should be Internal")
	}
}

func TestMessage(t *testing.T) {
	if got := Message(nil, "fallback"); got != "" {
		t.Errorf("Message(nil) = %q", got)
	}
	if got := Message(errors.New("raw"), "fallback"); got != "fallback" {
		t.Errorf("unclassified = %q", got)
	}
	if got := Message(&Error{Kind: ServerMessage, Message: "  "}, "fallback"); got != "fallback" {
		t.Errorf("blank message = %q", got)
	}
	if got := Message(Validationf("bad %s", "date"), "fallback"); got != "bad date" {
		t.Errorf("validation = %q", got)
	}
}
