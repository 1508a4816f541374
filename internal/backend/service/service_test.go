package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Shivanand-hulikatti/eventora/internal/backend/repository"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func setup(t *testing.T) (*EventService, *AuthService, *repository.User) {
	t.Helper()
	repo := repository.NewMemory()
	auth := NewAuthService(repo, []byte("k"), quiet)
	auth.Cost = bcrypt.MinCost
	org, err := auth.Signup(context.Background(), model.SignupRequest{DisplayName: "Org", Email: "org@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	return NewEventService(repo, quiet), auth, org
}

func create(t *testing.T, svc *EventService, owner string, capacity *int) *model.Event {
	t.Helper()
	e, err := svc.CreateEvent(context.Background(), owner, model.EventRequest{
		Title:           "Meetup",
		Category:        model.CategoryMusic,
		MaxParticipants: capacity,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return e
}

func TestCreateEvent_Validation(t *testing.T) {
	svc, _, org := setup(t)
	zero := 0
	lat := 1.0
	cases := []model.EventRequest{
		{Title: " ", Category: model.CategoryMusic},
		{Title: "x", Category: "PARTY"},
		{Title: "x", Category: model.CategoryMusic, MaxParticipants: &zero},
		{Title: "x", Category: model.CategoryMusic, Latitude: &lat},
	}
	for i, req := range cases {
		_, err := svc.CreateEvent(context.Background(), org.ID, req)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("case %d: expected validation error, got %v", i, err)
		}
	}
}

func TestTransitions(t *testing.T) {
	svc, _, org := setup(t)
	ctx := context.Background()
	e := create(t, svc, org.ID, nil)

	if e.EventStatus != model.EventDraft {
		t.Fatalf("expected new events to be drafts, got %s", e.EventStatus)
	}
	if err := svc.Transition(ctx, e.ID, model.EventCompleted); err == nil {
		t.Fatalf("expected DRAFT -> COMPLETED to be refused")
	}
	for _, to := range []model.EventStatus{model.EventScheduled, model.EventOngoing, model.EventCompleted} {
		if err := svc.Transition(ctx, e.ID, to); err != nil {
			t.Fatalf("transition to %s: %v", to, err)
		}
	}
	var terr *TransitionError
	if err := svc.Transition(ctx, e.ID, model.EventCancelled); !errors.As(err, &terr) {
		t.Fatalf("expected completed events to be terminal, got %v", err)
	}
}

func TestScheduleRequiresOwner(t *testing.T) {
	svc, auth, org := setup(t)
	other, err := auth.Signup(context.Background(), model.SignupRequest{DisplayName: "Other", Email: "o@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	e := create(t, svc, org.ID, nil)
	if err := svc.Schedule(context.Background(), other.ID, e.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestRegister_OnceOnlyAndCapacity(t *testing.T) {
	svc, auth, org := setup(t)
	ctx := context.Background()
	one := 1
	e := create(t, svc, org.ID, &one)

	if err := svc.Register(ctx, org.ID, e.ID); !errors.Is(err, repository.ErrNotOpen) {
		t.Fatalf("expected draft events to refuse registration, got %v", err)
	}
	if err := svc.Schedule(ctx, org.ID, e.ID); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	a, _ := auth.Signup(ctx, model.SignupRequest{DisplayName: "A", Email: "a@example.com", Password: "password"})
	b, _ := auth.Signup(ctx, model.SignupRequest{DisplayName: "B", Email: "b@example.com", Password: "password"})

	if err := svc.Register(ctx, a.ID, e.ID); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.Register(ctx, b.ID, e.ID); !errors.Is(err, repository.ErrEventFull) {
		t.Fatalf("expected full, got %v", err)
	}
	if err := svc.Unregister(ctx, a.ID, e.ID); err != nil {
		t.Fatalf("unregister: %v", err)
	}
	if err := svc.Register(ctx, a.ID, e.ID); !errors.Is(err, repository.ErrRegistrationCancelled) {
		t.Fatalf("expected re-registration to be refused, got %v", err)
	}
	if err := svc.Register(ctx, b.ID, e.ID); err != nil {
		t.Fatalf("freed place should be bookable: %v", err)
	}

	got, err := svc.GetEvent(ctx, e.ID, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserRegistrationStatus != model.RegistrationCancelled || got.CurrentParticipants != 1 {
		t.Fatalf("unexpected view %+v", got)
	}
}

func TestRegister_ConcurrentBookingsNeverOverbook(t *testing.T) {
	svc, auth, org := setup(t)
	ctx := context.Background()
	capacity := 5
	e := create(t, svc, org.ID, &capacity)
	if err := svc.Schedule(ctx, org.ID, e.ID); err != nil {
		t.Fatalf("schedule: %v", err)
	}

	var users []*repository.User
	for i := 0; i < 20; i++ {
		u, err := auth.Signup(ctx, model.SignupRequest{DisplayName: "U", Email: string(rune('a'+i)) + "@example.com", Password: "password"})
		if err != nil {
			t.Fatalf("signup: %v", err)
		}
		users = append(users, u)
	}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, u := range users {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if svc.Register(ctx, id, e.ID) == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(u.ID)
	}
	wg.Wait()

	if ok != capacity {
		t.Fatalf("expected %d bookings, got %d", capacity, ok)
	}
	got, _ := svc.GetEvent(ctx, e.ID, "")
	if got.CurrentParticipants != capacity {
		t.Fatalf("expected counter %d, got %d", capacity, got.CurrentParticipants)
	}
}

func TestSearchAndOrganizerEvents(t *testing.T) {
	svc, _, org := setup(t)
	ctx := context.Background()
	for _, title := range []string{"Jazz night", "Rock fest", "Jazz brunch"} {
		e, err := svc.CreateEvent(ctx, org.ID, model.EventRequest{Title: title, Category: model.CategoryMusic})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if title != "Jazz brunch" {
			if err := svc.Schedule(ctx, org.ID, e.ID); err != nil {
				t.Fatalf("schedule: %v", err)
			}
		}
	}

	page, err := svc.Search(ctx, model.SearchParams{EventName: "jazz"}, "")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if page.TotalElements != 1 || page.Content[0].Title != "Jazz night" {
		t.Fatalf("drafts must stay private, got %+v", page)
	}

	mine, err := svc.OrganizerEvents(ctx, org.ID, model.SearchParams{EventName: "jazz", Size: 1})
	if err != nil {
		t.Fatalf("organizer events: %v", err)
	}
	if mine.TotalElements != 2 || len(mine.Content) != 1 || mine.TotalPages != 2 {
		t.Fatalf("unexpected page %+v", mine)
	}
}

func TestFilterNearby(t *testing.T) {
	svc, _, org := setup(t)
	ctx := context.Background()
	lyonLat, lyonLon := 45.764, 4.8357
	parisLat, parisLon := 48.8566, 2.3522
	for _, pos := range [][2]float64{{lyonLat, lyonLon}, {parisLat, parisLon}} {
		lat, lon := pos[0], pos[1]
		e, err := svc.CreateEvent(ctx, org.ID, model.EventRequest{Title: "x", Category: model.CategoryOther, Latitude: &lat, Longitude: &lon})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := svc.Schedule(ctx, org.ID, e.ID); err != nil {
			t.Fatalf("schedule: %v", err)
		}
	}
	got, err := svc.FilterEvents(ctx, model.EventFilter{}.Nearby(lyonLat+0.01, lyonLon, 5), "")
	if err != nil {
		t.Fatalf("filter: %v", err)
	}
	if len(got) != 1 || *got[0].Latitude != lyonLat {
		t.Fatalf("expected only the Lyon event, got %d", len(got))
	}
}

func TestAuth_LoginTokensAndCodes(t *testing.T) {
	_, auth, org := setup(t)
	ctx := context.Background()

	if _, err := auth.Login(ctx, model.Credentials{Email: "org@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	tok, err := auth.Login(ctx, model.Credentials{Email: "ORG@example.com", Password: "password"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	claims, err := auth.Verify(tok)
	if err != nil || claims.Subject != org.ID || claims.Name != "Org" {
		t.Fatalf("verify: %+v %v", claims, err)
	}

	auth.Now = func() time.Time { return time.Now().Add(48 * time.Hour) }
	if _, err := auth.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
	auth.Now = time.Now

	auth.GrantCode("github", "abc", OAuthIdentity{Email: "gh@example.com", DisplayName: "GH"})
	if _, err := auth.ExchangeCode(ctx, "github", "abc"); err != nil {
		t.Fatalf("exchange: %v", err)
	}
	if _, err := auth.ExchangeCode(ctx, "github", "abc"); !errors.Is(err, ErrInvalidCode) {
		t.Fatalf("expected a used code to be refused, got %v", err)
	}
}
