package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Shivanand-hulikatti/eventora/internal/action"
	"github.com/Shivanand-hulikatti/eventora/internal/api"
	"github.com/Shivanand-hulikatti/eventora/internal/backend/backendtest"
	"github.com/Shivanand-hulikatti/eventora/internal/i18n"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/Shivanand-hulikatti/eventora/internal/search"
	"github.com/Shivanand-hulikatti/eventora/internal/session"
	"github.com/Shivanand-hulikatti/eventora/internal/transport"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type harness struct {
	srv    *backendtest.Server
	sess   *session.Session
	client *api.Client
	br     *bridge
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := backendtest.New(t, backendtest.Options{})
	sess, err := session.Open(context.Background(), session.NewMemoryStore(), quiet)
	if err != nil {
		t.Fatalf("open session: %v", err)
	}
	hc, err := transport.New(transport.Config{BaseURL: srv.URL, Tokens: sess, Logger: quiet})
	if err != nil {
		t.Fatalf("transport: %v", err)
	}
	return &harness{srv: srv, sess: sess, client: api.New(hc, sess, quiet), br: &bridge{}}
}

func (h *harness) login(t *testing.T, email string) {
	t.Helper()
	if err := h.client.Login(context.Background(), model.Credentials{Email: email, Password: backendtest.Password}); err != nil {
		t.Fatalf("login: %v", err)
	}
}

func (h *harness) model(confirmer action.Confirmer) appModel {
	return newAppModel(context.Background(), Deps{Client: h.client, Session: h.sess, Logger: quiet, Confirmer: confirmer}, h.br)
}

// collect runs cmd and flattens batches into the produced messages.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func update(t *testing.T, m appModel, msg tea.Msg) (appModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	am, ok := next.(appModel)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return am, cmd
}

// feed runs cmd and applies the data messages it produces. Spinner ticks
// are skipped so the loop ends.
func feed(t *testing.T, m appModel, cmd tea.Cmd) appModel {
	t.Helper()
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case listLoadedMsg, detailMsg, mutatedMsg:
			m, _ = update(t, m, msg)
		}
	}
	return m
}

func press(t *testing.T, m appModel, key string) (appModel, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	return update(t, m, msg)
}

// openEvent selects the listed event with id and opens its detail.
func openEvent(t *testing.T, m appModel, id string) appModel {
	t.Helper()
	for i := range m.events {
		if m.events[i].ID == id {
			m.cursor = i
			m, cmd := press(t, m, "enter")
			return feed(t, m, cmd)
		}
	}
	t.Fatalf("event %s not listed; have %d events", id, len(m.events))
	return m
}

func TestBackTarget(t *testing.T) {
	cases := []struct {
		from, view string
		want       screen
	}{
		{"organiser", "", screenOrganizer},
		{"organiser", "my", screenOrganizer},
		{"home", "my", screenMyEvents},
		{"home", "", screenHome},
		{"", "my", screenHome},
		{"elsewhere", "", screenHome},
	}
	for _, tc := range cases {
		if got := backTarget(Origin{From: tc.from, View: tc.view}); got != tc.want {
			t.Errorf("backTarget(from=%q, view=%q) = %v, want %v", tc.from, tc.view, got, tc.want)
		}
	}
	for _, s := range []screen{screenHome, screenMyEvents, screenOrganizer} {
		if got := backTarget(originOf(s)); got != s {
			t.Errorf("round trip of %v gave %v", s, got)
		}
	}
}

func TestInitialLoadHidesDrafts(t *testing.T) {
	h := newHarness(t)
	org, _ := h.srv.User(t, "org@example.com", "Org")
	h.srv.Event(t, org.ID, "Picnic", model.EventScheduled, nil)
	h.srv.Event(t, org.ID, "Secret", model.EventDraft, nil)

	m := h.model(action.Always(true))
	m = feed(t, m, m.loadList(screenHome))

	if m.loading {
		t.Fatalf("still loading after list arrived")
	}
	if len(m.events) != 1 || m.events[0].Title != "Picnic" {
		t.Fatalf("events = %+v, want only Picnic", m.events)
	}
	if m.search == nil {
		t.Fatalf("home list should start a search session")
	}
	if !strings.Contains(m.View(), "Picnic") {
		t.Errorf("view does not list Picnic:\n%s", m.View())
	}
}

func TestRegisterThenCancelThroughModal(t *testing.T) {
	h := newHarness(t)
	org, _ := h.srv.User(t, "org@example.com", "Org")
	h.srv.User(t, "ada@example.com", "Ada")
	e := h.srv.Event(t, org.ID, "Picnic", model.EventScheduled, backendtest.Ptr(10))
	h.login(t, "ada@example.com")

	m := h.model(nil)
	m = feed(t, m, m.loadList(screenHome))
	m = openEvent(t, m, e.ID)
	if m.screen != screenDetail || m.ownerView {
		t.Fatalf("screen = %v ownerView = %v, want participant detail", m.screen, m.ownerView)
	}
	if d := action.ForEvent(m.detail, false); d.Kind != action.Register {
		t.Fatalf("action = %v, want Register", d)
	}

	// Registering is not destructive and runs without a prompt.
	m, cmd := press(t, m, "a")
	if !m.acting {
		t.Fatalf("expected acting while the mutation runs")
	}
	m = feed(t, m, cmd)
	if m.acting || m.flashErr {
		t.Fatalf("acting = %v flash = %q (err %v)", m.acting, m.flash, m.flashErr)
	}
	if m.detail.UserRegistrationStatus != model.RegistrationRegistered || m.detail.CurrentParticipants != 1 {
		t.Fatalf("after register: %s with %d participants", m.detail.UserRegistrationStatus, m.detail.CurrentParticipants)
	}

	// Cancelling asks through the modal.
	asks := make(chan tea.Msg, 8)
	h.br.set(func(msg tea.Msg) { asks <- msg })
	m, cmd = press(t, m, "a")
	done := make(chan []tea.Msg, 1)
	go func() { done <- collect(cmd) }()

	var ask confirmAskMsg
	for ask.reply == nil {
		select {
		case msg := <-asks:
			if a, ok := msg.(confirmAskMsg); ok {
				ask = a
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("no confirm prompt")
		}
	}
	m, _ = update(t, m, ask)
	if !strings.Contains(m.View(), "Picnic") {
		t.Errorf("modal should name the event:\n%s", m.View())
	}
	m, _ = press(t, m, "y")
	if m.confirm != nil {
		t.Fatalf("modal still open after answering")
	}

	var msgs []tea.Msg
	select {
	case msgs = <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("mutation did not finish")
	}
	for _, msg := range msgs {
		if mm, ok := msg.(mutatedMsg); ok {
			m, _ = update(t, m, mm)
		}
	}
	if m.detail.UserRegistrationStatus != model.RegistrationCancelled {
		t.Fatalf("after cancel: %s", m.detail.UserRegistrationStatus)
	}
	if d := action.ForEvent(m.detail, false); d.Kind != action.Blocked || d.Label != action.CancelledLabel {
		t.Fatalf("action after cancel = %v", d)
	}

	// A cancelled registration is final and refused without a call.
	m, cmd = press(t, m, "a")
	if cmd != nil {
		t.Fatalf("expected no command for a blocked action")
	}
	if m.flash != api.MsgRegisterOnce {
		t.Fatalf("flash = %q", m.flash)
	}
}

func TestDeclinedCancelLeavesRegistration(t *testing.T) {
	h := newHarness(t)
	org, _ := h.srv.User(t, "org@example.com", "Org")
	h.srv.User(t, "ada@example.com", "Ada")
	e := h.srv.Event(t, org.ID, "Picnic", model.EventScheduled, nil)
	h.login(t, "ada@example.com")
	if _, err := h.client.Register(context.Background(), e.ID); err != nil {
		t.Fatalf("register: %v", err)
	}

	m := h.model(action.Always(false))
	m = feed(t, m, m.loadList(screenHome))
	m = openEvent(t, m, e.ID)
	m, cmd := press(t, m, "a")
	m = feed(t, m, cmd)

	if m.flash != m.cat.S(i18n.Cancelled) {
		t.Fatalf("flash = %q, want the cancelled notice", m.flash)
	}
	got, err := h.client.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.UserRegistrationStatus != model.RegistrationRegistered {
		t.Fatalf("declining changed the registration to %s", got.UserRegistrationStatus)
	}
}

func TestRegisterSignedOutShowsSignIn(t *testing.T) {
	h := newHarness(t)
	org, _ := h.srv.User(t, "org@example.com", "Org")
	e := h.srv.Event(t, org.ID, "Picnic", model.EventScheduled, nil)

	m := h.model(action.Always(true))
	m = feed(t, m, m.loadList(screenHome))
	m = openEvent(t, m, e.ID)
	m, cmd := press(t, m, "a")
	m = feed(t, m, cmd)

	if !m.flashErr || !strings.Contains(m.flash, api.MsgSignInToRegister) {
		t.Fatalf("flash = %q (err %v)", m.flash, m.flashErr)
	}
	if !strings.Contains(m.flash, "eventora login") {
		t.Errorf("flash should point at login: %q", m.flash)
	}
}

func TestOrganizerDetailBacksToDashboard(t *testing.T) {
	h := newHarness(t)
	org, _ := h.srv.User(t, "org@example.com", "Org")
	e := h.srv.Event(t, org.ID, "Draft night", model.EventDraft, nil)
	h.login(t, "org@example.com")

	m := h.model(action.Always(true))
	m, cmd := press(t, m, "o")
	m = feed(t, m, cmd)
	if m.screen != screenOrganizer {
		t.Fatalf("screen = %v", m.screen)
	}
	m = openEvent(t, m, e.ID)
	if !m.ownerView || m.origin.From != "organiser" {
		t.Fatalf("ownerView = %v origin = %+v", m.ownerView, m.origin)
	}

	m, cmd = press(t, m, "s")
	m = feed(t, m, cmd)
	if m.detail.EventStatus != model.EventScheduled {
		t.Fatalf("after schedule: %s (flash %q)", m.detail.EventStatus, m.flash)
	}
	// A scheduled event cannot be scheduled twice.
	if _, cmd = press(t, m, "s"); cmd != nil {
		t.Fatalf("schedule offered on a scheduled event")
	}

	m, cmd = press(t, m, "esc")
	if m.screen != screenOrganizer {
		t.Fatalf("back went to %v, want organizer", m.screen)
	}
	m = feed(t, m, cmd)
	if len(m.events) != 1 || m.events[0].EventStatus != model.EventScheduled {
		t.Fatalf("dashboard after back = %+v", m.events)
	}
}

func TestUnauthorizedReturnsToHome(t *testing.T) {
	h := newHarness(t)
	if err := h.sess.Set(context.Background(), "not-a-token"); err != nil {
		t.Fatalf("set token: %v", err)
	}
	sent := make(chan tea.Msg, 8)
	h.br.set(func(msg tea.Msg) { sent <- msg })

	m := h.model(action.Always(true))
	if !m.signedIn {
		t.Fatalf("model should start signed in")
	}
	m, cmd := press(t, m, "m")
	m = feed(t, m, cmd)
	if m.screen != screenMyEvents || !m.flashErr {
		t.Fatalf("screen = %v flash = %q, want the my events failure", m.screen, m.flash)
	}

	var signedOut *sessionMsg
	for signedOut == nil {
		select {
		case msg := <-sent:
			if sm, ok := msg.(sessionMsg); ok {
				signedOut = &sm
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("the 401 did not report a sign-out")
		}
	}
	if signedOut.signedIn {
		t.Fatalf("session change reported signed in")
	}

	m, cmd = update(t, m, *signedOut)
	if m.screen != screenHome || m.signedIn {
		t.Fatalf("screen = %v signedIn = %v, want signed-out home", m.screen, m.signedIn)
	}
	if !strings.Contains(m.flash, "eventora login") {
		t.Errorf("flash should point at login: %q", m.flash)
	}
	m = feed(t, m, cmd)
	if m.screen != screenHome || m.loading {
		t.Fatalf("home did not reload: screen = %v loading = %v", m.screen, m.loading)
	}
	if h.sess.SignedIn() {
		t.Fatalf("the 401 should have cleared the stored token")
	}
}

func TestStaleSearchResultsIgnored(t *testing.T) {
	h := newHarness(t)
	org, _ := h.srv.User(t, "org@example.com", "Org")
	h.srv.Event(t, org.ID, "Picnic", model.EventScheduled, nil)

	m := h.model(action.Always(true))
	m = feed(t, m, m.loadList(screenHome))
	current := m.search

	found := []model.Event{{ID: "x", Title: "Found", EventStatus: model.EventScheduled}}
	m, _ = update(t, m, searchMsg{src: current, state: search.State{Events: found}})
	if len(m.events) != 1 || m.events[0].Title != "Found" {
		t.Fatalf("current session result not applied: %+v", m.events)
	}

	m, _ = update(t, m, searchMsg{src: &search.Session{}, state: search.State{}})
	if len(m.events) != 1 {
		t.Fatalf("result from another session was applied")
	}

	m, _ = press(t, m, "m")
	if m.search != nil {
		t.Fatalf("my events has no search session")
	}
	m, _ = update(t, m, searchMsg{src: current, state: search.State{Events: found}})
	if len(m.events) != 0 {
		t.Fatalf("closed session result applied: %+v", m.events)
	}
}

func TestParseQuery(t *testing.T) {
	if q := parseQuery("  jazz "); q.EventName != "jazz" || q.OrganizerName != "" {
		t.Errorf("parseQuery(jazz) = %+v", q)
	}
	if q := parseQuery("@Ada"); q.OrganizerName != "Ada" || q.EventName != "" {
		t.Errorf("parseQuery(@Ada) = %+v", q)
	}
}

func TestRenderMarkdown(t *testing.T) {
	if got := RenderMarkdown("   ", 80); got != "" {
		t.Errorf("blank description rendered as %q", got)
	}
	if got := RenderMarkdown("# Agenda\n\nBring **snacks**.", 60); !strings.Contains(got, "snacks") {
		t.Errorf("rendered markdown lost its text: %q", got)
	}
}
