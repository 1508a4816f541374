package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/Shivanand-hulikatti/eventora/internal/transport"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// memFetcher serves canonical state from a map the test mutates.
type memFetcher struct {
	events map[string]model.Event
	err    error
	calls  int
}

func (f *memFetcher) GetByID(_ context.Context, id string) (*model.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	e, ok := f.events[id]
	if !ok {
		return nil, &transport.Error{Status: 404, Data: []byte(`{"message":"Event not found"}`)}
	}
	return &e, nil
}

func TestMutate_ReplacesSnapshotWithCanonicalState(t *testing.T) {
	f := &memFetcher{events: map[string]model.Event{
		"ev-1": {ID: "ev-1", Title: "Go Meetup", EventStatus: model.EventScheduled, UserRegistrationStatus: model.RegistrationNone},
	}}
	r := New(f, quiet)
	snap := NewSnapshot(&model.Event{ID: "ev-1", Title: "stale title", Tags: []string{"old"}, EventStatus: model.EventScheduled})

	res, err := r.Mutate(context.Background(), snap, "ev-1", Op{
		Name: "register",
		Run: func(context.Context) (string, error) {
			e := f.events["ev-1"]
			e.UserRegistrationStatus = model.RegistrationRegistered
			e.CurrentParticipants++
			f.events["ev-1"] = e
			return "", nil
		},
		Success: "Successfully registered for the event!",
		Failure: "Failed to register for the event.",
	})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if res.Message != "Successfully registered for the event!" {
		t.Fatalf("expected default success message, got %q", res.Message)
	}

	got := snap.Get()
	if got.UserRegistrationStatus != model.RegistrationRegistered || got.CurrentParticipants != 1 {
		t.Fatalf("expected canonical state, got %+v", got)
	}
	if got.Title != "Go Meetup" || got.Tags != nil {
		t.Fatalf("expected whole replacement without stale fields, got %+v", got)
	}
}

func TestMutate_FailureLeavesSnapshotUntouched(t *testing.T) {
	f := &memFetcher{events: map[string]model.Event{"ev-1": {ID: "ev-1"}}}
	r := New(f, quiet)
	before := &model.Event{ID: "ev-1", Title: "held", EventStatus: model.EventScheduled}
	snap := NewSnapshot(before)

	_, err := r.Mutate(context.Background(), snap, "ev-1", Op{
		Name: "register",
		Run: func(context.Context) (string, error) {
			return "", &transport.Error{Status: 409, Data: []byte(`"You are already registered"`)}
		},
		Failure: "Failed to register for the event.",
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := apperr.Message(err, ""); got != "You are already registered" {
		t.Fatalf("expected server message verbatim, got %q", got)
	}
	if !errors.Is(err, apperr.ErrServerMessage) {
		t.Fatalf("expected ServerMessage kind, got %v", err)
	}
	if f.calls != 0 {
		t.Fatalf("expected no refetch after a failed mutation, got %d", f.calls)
	}
	if !reflect.DeepEqual(snap.Get(), before) {
		t.Fatalf("snapshot changed after failure: %+v", snap.Get())
	}
}

func TestMutate_FallbackMessageWhenBodyUnusable(t *testing.T) {
	r := New(&memFetcher{}, quiet)
	_, err := r.Mutate(context.Background(), NewSnapshot(nil), "ev-1", Op{
		Run: func(context.Context) (string, error) {
			return "", &transport.Error{Status: 500, Data: []byte(`<html>oops</html>`)}
		},
		Failure: "Failed to cancel event.",
	})
	if got := apperr.Message(err, ""); got != "Failed to cancel event." {
		t.Fatalf("expected fallback, got %q", got)
	}
}

func TestMutate_RefetchFailureKeepsSnapshot(t *testing.T) {
	f := &memFetcher{err: &transport.Error{Message: "dial tcp: refused"}}
	r := New(f, quiet)
	before := &model.Event{ID: "ev-1", EventStatus: model.EventScheduled}
	snap := NewSnapshot(before)

	res, err := r.Mutate(context.Background(), snap, "ev-1", Op{
		Run: func(context.Context) (string, error) { return "Event cancelled", nil },
	})
	if res == nil || res.Message != "Event cancelled" {
		t.Fatalf("expected mutation result to be reported, got %+v", res)
	}
	if !errors.Is(err, apperr.ErrTransientNetwork) {
		t.Fatalf("expected transient network error, got %v", err)
	}
	if !reflect.DeepEqual(snap.Get(), before) {
		t.Fatalf("snapshot changed after failed refetch")
	}
}

func TestRefresh_IsIdempotent(t *testing.T) {
	capacity := 50
	f := &memFetcher{events: map[string]model.Event{
		"ev-1": {ID: "ev-1", Title: "Conf", MaxParticipants: &capacity, Tags: []string{"go"}},
	}}
	r := New(f, quiet)
	snap := NewSnapshot(nil)

	first, err := r.Refresh(context.Background(), snap, "ev-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	second, err := r.Refresh(context.Background(), snap, "ev-1")
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical snapshots, got %+v and %+v", first, second)
	}
	if !reflect.DeepEqual(snap.Get(), second) {
		t.Fatalf("snapshot does not hold the latest read")
	}
}

func TestRefresh_NotFound(t *testing.T) {
	r := New(&memFetcher{events: map[string]model.Event{}}, quiet)
	_, err := r.Refresh(context.Background(), NewSnapshot(nil), "missing")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestSnapshot_GetReturnsCopy(t *testing.T) {
	snap := NewSnapshot(&model.Event{ID: "ev-1", Tags: []string{"a"}})
	got := snap.Get()
	got.Tags[0] = "mutated"
	got.Title = "mutated"
	if again := snap.Get(); again.Tags[0] != "a" || again.Title != "" {
		t.Fatalf("snapshot mutated through a copy: %+v", again)
	}
}

func respond(status int, body string) Fetch {
	return func(context.Context) (*transport.Response, error) {
		return &transport.Response{Status: status, Data: []byte(body)}, nil
	}
}

func fail(err error) Fetch {
	return func(context.Context) (*transport.Response, error) { return nil, err }
}

func TestReadList_Shapes(t *testing.T) {
	cases := []struct {
		name  string
		fetch Fetch
		ids   []string
	}{
		{"array", respond(200, `[{"id":"a"},{"id":"b"}]`), []string{"a", "b"}},
		{"redirect accepted", respond(302, `[{"id":"a"}]`), []string{"a"}},
		{"events wrapper", respond(200, `{"events":[{"id":"c"}]}`), []string{"c"}},
		{"page wrapper", respond(200, `{"content":[{"id":"d"}],"totalElements":1}`), []string{"d"}},
		{"empty", respond(204, ``), []string{}},
		{"null array", respond(200, `null`), []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, err := ReadList(context.Background(), quiet, "Could not load events.", tc.fetch)
			if err != nil {
				t.Fatalf("ReadList: %v", err)
			}
			if events == nil {
				t.Fatalf("expected non-nil slice")
			}
			var ids []string
			for _, e := range events {
				ids = append(ids, e.ID)
			}
			if len(ids) != len(tc.ids) {
				t.Fatalf("expected %v, got %v", tc.ids, ids)
			}
			for i := range ids {
				if ids[i] != tc.ids[i] {
					t.Fatalf("expected %v, got %v", tc.ids, ids)
				}
			}
		})
	}
}

func TestReadList_NonListBodyIsServerMessage(t *testing.T) {
	cases := []struct {
		name  string
		fetch Fetch
		msg   string
	}{
		{"message object", respond(200, `{"message":"No events for this organizer yet"}`), "No events for this organizer yet"},
		{"status object", respond(200, `{"status":"ok"}`), "Could not load events."},
		{"plain text", respond(200, `service warming up`), "service warming up"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, err := ReadList(context.Background(), quiet, "Could not load events.", tc.fetch)
			if events == nil || len(events) != 0 {
				t.Fatalf("expected empty non-nil list, got %#v", events)
			}
			if apperr.KindOf(err) != apperr.ServerMessage {
				t.Fatalf("expected a server message error, got %v", err)
			}
			if got := apperr.Message(err, ""); got != tc.msg {
				t.Fatalf("expected message %q, got %q", tc.msg, got)
			}
		})
	}
}

func TestReadList_RecoversRedirectErrorWithArrayBody(t *testing.T) {
	err := &transport.Error{Method: "POST", Path: "/events", Status: 302, Data: []byte(`[{"id":"x"}]`)}
	events, gotErr := ReadList(context.Background(), quiet, "Could not load events.", fail(err))
	if gotErr != nil {
		t.Fatalf("expected recovery, got %v", gotErr)
	}
	if len(events) != 1 || events[0].ID != "x" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestReadList_UnrecoverableFallsBackToEmpty(t *testing.T) {
	cases := []struct {
		name string
		err  error
		msg  string
	}{
		{"redirect without body", &transport.Error{Status: 302}, "Could not load events."},
		{"redirect with object", &transport.Error{Status: 302, Data: []byte(`{"message":"moved"}`)}, "moved"},
		{"server message", &transport.Error{Status: 500, Data: []byte(`{"message":"database down"}`)}, "database down"},
		{"network", &transport.Error{Message: "connection refused"}, "Could not load events."},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			events, err := ReadList(context.Background(), quiet, "Could not load events.", fail(tc.err))
			if events == nil || len(events) != 0 {
				t.Fatalf("expected empty non-nil list, got %#v", events)
			}
			if got := apperr.Message(err, ""); got != tc.msg {
				t.Fatalf("expected message %q, got %q", tc.msg, got)
			}
		})
	}
}

func TestReadEvent(t *testing.T) {
	e, err := ReadEvent(context.Background(), quiet, "Could not load event.", respond(200, `{"id":"ev","eventStatus":"scheduled"}`))
	if err != nil {
		t.Fatalf("ReadEvent: %v", err)
	}
	if e.EventStatus != model.EventScheduled {
		t.Fatalf("expected normalised status, got %q", e.EventStatus)
	}

	e, err = ReadEvent(context.Background(), quiet, "x", fail(&transport.Error{Status: 302, Data: []byte(`{"id":"moved"}`)}))
	if err != nil || e.ID != "moved" {
		t.Fatalf("expected redirect recovery, got %+v %v", e, err)
	}

	if _, err := ReadEvent(context.Background(), quiet, "x", respond(200, ``)); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound for empty body, got %v", err)
	}
}
