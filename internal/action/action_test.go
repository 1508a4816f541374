package action

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

func blocked(label string) Descriptor { return Descriptor{Kind: Blocked, Label: label} }

func TestResolve_ParticipantTable(t *testing.T) {
	var (
		register = Descriptor{Kind: Register}
		cancel   = Descriptor{Kind: CancelRegistration}
	)

	want := map[model.EventStatus]map[model.RegistrationStatus]Descriptor{
		model.EventDraft: {
			model.RegistrationNone:       blocked("Draft"),
			model.RegistrationRegistered: cancel,
			model.RegistrationCancelled:  blocked(CancelledLabel),
		},
		model.EventScheduled: {
			model.RegistrationNone:       register,
			model.RegistrationRegistered: cancel,
			model.RegistrationCancelled:  blocked(CancelledLabel),
		},
		model.EventOngoing: {
			model.RegistrationNone:       blocked("Ongoing"),
			model.RegistrationRegistered: cancel,
			model.RegistrationCancelled:  blocked(CancelledLabel),
		},
		model.EventCompleted: {
			model.RegistrationNone:       blocked("Completed"),
			model.RegistrationRegistered: cancel,
			model.RegistrationCancelled:  blocked(CancelledLabel),
		},
		model.EventCancelled: {
			model.RegistrationNone:       blocked("Cancelled"),
			model.RegistrationRegistered: cancel,
			model.RegistrationCancelled:  blocked(CancelledLabel),
		},
	}

	for _, es := range model.EventStatuses {
		for _, rs := range model.RegistrationStatuses {
			got := Resolve(es, rs, false)
			if got != want[es][rs] {
				t.Errorf("Resolve(%s, %s): expected %v, got %v", es, rs, want[es][rs], got)
			}
		}
	}
}

func TestResolve_CancelledRegistrationIsTerminal(t *testing.T) {
	statuses := append([]model.EventStatus{"", "UPCOMING"}, model.EventStatuses...)
	for _, es := range statuses {
		got := Resolve(es, model.RegistrationCancelled, false)
		if got.Kind != Blocked || got.Label != CancelledLabel {
			t.Errorf("Resolve(%q, CANCELLED): expected disabled Cancelled indicator, got %v", es, got)
		}
		if got.Enabled() {
			t.Errorf("Resolve(%q, CANCELLED): must not be actionable", es)
		}
	}
}

func TestResolve_UnknownEventStatus(t *testing.T) {
	if got := Resolve("", model.RegistrationNone, false); got != blocked("Unavailable") {
		t.Fatalf("expected Unavailable for empty status, got %v", got)
	}
	if got := Resolve(model.ParseEventStatus("upcoming"), model.RegistrationNone, false); got != blocked("Upcoming") {
		t.Fatalf("expected Upcoming label, got %v", got)
	}
}

func TestResolve_OrganizerTable(t *testing.T) {
	cases := map[model.EventStatus]OrganizerActions{
		model.EventDraft:     {Schedule: true, Edit: true, CancelEvent: true},
		model.EventScheduled: {Schedule: false, Edit: false, CancelEvent: true},
		model.EventOngoing:   {Schedule: true, Edit: true, CancelEvent: true},
		model.EventCompleted: {Schedule: true, Edit: true, CancelEvent: true},
		model.EventCancelled: {Schedule: true, Edit: true, CancelEvent: false},
	}
	for _, es := range model.EventStatuses {
		for _, rs := range model.RegistrationStatuses {
			got := Resolve(es, rs, true)
			if got.Kind != OrganizerAction {
				t.Fatalf("Resolve(%s, %s, owner): expected organizerAction, got %v", es, rs, got)
			}
			if got.Organizer != cases[es] {
				t.Errorf("Resolve(%s, owner): expected %+v, got %+v", es, cases[es], got.Organizer)
			}
		}
	}
}

func TestForEvent_EmptyRegistrationMeansNone(t *testing.T) {
	e := &model.Event{EventStatus: model.EventScheduled}
	if got := ForEvent(e, false); got.Kind != Register {
		t.Fatalf("expected register, got %v", got)
	}
}

func TestScenarioB_CancelledEventStillCancellable(t *testing.T) {
	got := Resolve(model.EventCancelled, model.RegistrationRegistered, false)
	if got.Kind != CancelRegistration {
		t.Fatalf("expected cancelRegistration, got %v", got)
	}
	if !got.Destructive() {
		t.Fatalf("cancelling a registration must go through the gate")
	}
}

func TestGate_DeclineIssuesNoCall(t *testing.T) {
	calls := 0
	g := Gate{Confirmer: Always(false)}
	ran, err := g.Run(context.Background(), "Cancel?", func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if ran || calls != 0 {
		t.Fatalf("expected thunk not to run, ran=%v calls=%d", ran, calls)
	}
}

func TestGate_ConfirmRunsThunkAndReturnsItsError(t *testing.T) {
	boom := errors.New("boom")
	var gotPrompt string
	g := Gate{Confirmer: ConfirmFunc(func(_ context.Context, prompt string) (bool, error) {
		gotPrompt = prompt
		return true, nil
	})}
	ran, err := g.Run(context.Background(), "Cancel event?", func(context.Context) error { return boom })
	if !ran {
		t.Fatalf("expected thunk to run")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected thunk error, got %v", err)
	}
	if gotPrompt != "Cancel event?" {
		t.Fatalf("unexpected prompt %q", gotPrompt)
	}
}

func TestGate_ConfirmerErrorIssuesNoCall(t *testing.T) {
	g := Gate{Confirmer: ConfirmFunc(func(context.Context, string) (bool, error) {
		return false, errors.New("tty closed")
	})}
	ran, err := g.Run(context.Background(), "?", func(context.Context) error {
		t.Fatalf("thunk must not run")
		return nil
	})
	if ran || err == nil {
		t.Fatalf("expected confirmer error without running, ran=%v err=%v", ran, err)
	}
}

func TestPromptConfirmer(t *testing.T) {
	cases := map[string]bool{
		"y\n":     true,
		"YES\n":   true,
		"n\n":     false,
		"\n":      false,
		"":        false,
		"maybe\n": false,
	}
	for input, want := range cases {
		var out strings.Builder
		p := &PromptConfirmer{In: strings.NewReader(input), Out: &out}
		got, err := p.Confirm(context.Background(), "Proceed?")
		if err != nil {
			t.Fatalf("Confirm(%q): %v", input, err)
		}
		if got != want {
			t.Errorf("Confirm(%q): expected %v, got %v", input, want, got)
		}
		if !strings.Contains(out.String(), "Proceed? [y/N]") {
			t.Errorf("expected prompt to be written, got %q", out.String())
		}
	}
}

func TestBusy_RejectsReentry(t *testing.T) {
	var b Busy
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = b.Do(func() error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	if !b.Running() {
		t.Fatalf("expected Running while outstanding")
	}
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(release)
	wg.Wait()

	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("expected flag to clear, got %v", err)
	}
}
