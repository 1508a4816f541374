// Package backendtest runs the development backend in-process for tests.
package backendtest

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/eventora/internal/backend/handler"
	"github.com/Shivanand-hulikatti/eventora/internal/backend/repository"
	"github.com/Shivanand-hulikatti/eventora/internal/backend/service"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

// Password is the password of every seeded user.
const Password = "secret-pass"

// Server is a running backend over a memory repository.
type Server struct {
	*httptest.Server
	Repo   *repository.Memory
	Events *service.EventService
	Auth   *service.AuthService
}

// Options tune the backend under test.
type Options struct {
	RedirectLists bool
	DevAuthorize  bool
}

// New starts a backend and closes it when the test ends.
func New(t testing.TB, opts Options) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewMemory()
	events := service.NewEventService(repo, logger)
	auth := service.NewAuthService(repo, []byte("test-secret"), logger)
	auth.Cost = bcrypt.MinCost

	h := handler.New(events, auth, handler.Options{
		RedirectLists: opts.RedirectLists,
		DevAuthorize:  opts.DevAuthorize,
		Logger:        logger,
	})
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return &Server{Server: srv, Repo: repo, Events: events, Auth: auth}
}

// User creates an account and returns it with a signed token.
func (s *Server) User(t testing.TB, email, name string) (*repository.User, string) {
	t.Helper()
	u, err := s.Auth.Signup(context.Background(), model.SignupRequest{DisplayName: name, Email: email, Password: Password})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	tok, err := s.Auth.Issue(u)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return u, tok
}

// Event creates an event owned by organizerID and moves it to status.
func (s *Server) Event(t testing.TB, organizerID, title string, status model.EventStatus, capacity *int) *model.Event {
	t.Helper()
	ctx := context.Background()
	e, err := s.Events.CreateEvent(ctx, organizerID, model.EventRequest{
		Title:           title,
		Category:        model.CategoryCommunity,
		City:            "Lyon",
		Country:         "France",
		StartDate:       model.Timestamp{Time: time.Date(2030, 5, 1, 18, 0, 0, 0, time.UTC)},
		EndDate:         model.Timestamp{Time: time.Date(2030, 5, 1, 21, 0, 0, 0, time.UTC)},
		MaxParticipants: capacity,
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	path := map[model.EventStatus][]model.EventStatus{
		model.EventDraft:     nil,
		model.EventScheduled: {model.EventScheduled},
		model.EventOngoing:   {model.EventScheduled, model.EventOngoing},
		model.EventCompleted: {model.EventScheduled, model.EventOngoing, model.EventCompleted},
		model.EventCancelled: {model.EventCancelled},
	}[status]
	for _, next := range path {
		if err := s.Events.Transition(ctx, e.ID, next); err != nil {
			t.Fatalf("transition %s: %v", next, err)
		}
	}
	got, err := s.Events.GetEvent(ctx, e.ID, "")
	if err != nil {
		t.Fatalf("get event: %v", err)
	}
	return got
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
