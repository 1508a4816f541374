// Package search turns a stream of query edits into a bounded-rate series
// of backend searches. Only the most recently issued search may update the
// displayed list, and a failed search silently restores the list held
// before searching began.
package search

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

// Window is the input quiescence required before a search is dispatched.
const Window = 500 * time.Millisecond

// Query holds the independent search fields.
type Query struct {
	EventName     string
	OrganizerName string
}

// Normalize trims every field.
func (q Query) Normalize() Query {
	return Query{
		EventName:     strings.TrimSpace(q.EventName),
		OrganizerName: strings.TrimSpace(q.OrganizerName),
	}
}

// Blank reports whether every field is empty after trimming.
func (q Query) Blank() bool {
	n := q.Normalize()
	return n.EventName == "" && n.OrganizerName == ""
}

// Searcher issues one backend search.
type Searcher func(ctx context.Context, q Query) ([]model.Event, error)

// State is what a view renders.
type State struct {
	Query     Query
	Events    []model.Event
	Searching bool
}

// timer is the subset of *time.Timer the session needs.
type timer interface {
	Stop() bool
	Reset(d time.Duration) bool
}

// Session is the ephemeral search state of one view. It lives until Close.
type Session struct {
	search  Searcher
	logger  *slog.Logger
	timeout time.Duration

	mu       sync.Mutex
	query    Query
	baseline []model.Event
	events   []model.Event
	timer    timer
	issued   uint64 // sequence of the last dispatched search
	inFlight uint64 // sequence currently marked as searching, 0 when idle
	closed   bool
	onChange func(State)

	afterFunc func(d time.Duration, f func()) timer
}

// Options configure a Session.
type Options struct {
	Logger *slog.Logger
	// Timeout bounds each search; zero leaves it to the transport.
	Timeout time.Duration
	// OnChange is called, outside the session lock, after every state
	// change.
	OnChange func(State)
}

// NewSession starts a session over baseline, the full unfiltered list.
func NewSession(search Searcher, baseline []model.Event, opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		search:   search,
		logger:   logger,
		timeout:  opts.Timeout,
		baseline: copyEvents(baseline),
		events:   copyEvents(baseline),
		onChange: opts.OnChange,
		afterFunc: func(d time.Duration, f func()) timer {
			return time.AfterFunc(d, f)
		},
	}
}

// SetBaseline replaces the list restored by blank or failed searches. When
// no search is active the displayed list follows it.
func (s *Session) SetBaseline(events []model.Event) {
	s.mu.Lock()
	s.baseline = copyEvents(events)
	if s.query.Blank() && s.inFlight == 0 {
		s.events = copyEvents(events)
	}
	st := s.stateLocked()
	s.mu.Unlock()
	s.notify(st)
}

// Input records an edit. The search fires once no further edit arrives for
// Window, using the latest text.
func (s *Session) Input(q Query) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.query = q
	if s.timer == nil {
		s.timer = s.afterFunc(Window, s.onTimer)
		return
	}
	s.timer.Stop()
	s.timer.Reset(Window)
}

func (s *Session) onTimer() {
	s.mu.Lock()
	q := s.query
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	s.dispatch(context.Background(), q)
}

// Run dispatches q immediately, bypassing the debounce window. Ordering
// still holds: a result is applied only if no later search was issued.
func (s *Session) Run(ctx context.Context, q Query) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.query = q
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.dispatch(ctx, q)
}

func (s *Session) dispatch(ctx context.Context, q Query) {
	q = q.Normalize()

	s.mu.Lock()
	s.issued++
	seq := s.issued
	if q.Blank() {
		// No server call: show the list held before searching began.
		s.inFlight = 0
		s.events = copyEvents(s.baseline)
		st := s.stateLocked()
		s.mu.Unlock()
		s.notify(st)
		return
	}
	s.inFlight = seq
	st := s.stateLocked()
	s.mu.Unlock()
	s.notify(st)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	events, err := s.search(ctx, q)

	s.mu.Lock()
	if s.closed || seq != s.issued {
		s.mu.Unlock()
		s.logger.Debug("search_result_superseded", "seq", seq)
		return
	}
	s.inFlight = 0
	if err != nil {
		// Search is best-effort; browsing must keep working.
		s.logger.Debug("search_failed_fallback", "seq", seq, "error", err.Error())
		s.events = copyEvents(s.baseline)
	} else {
		s.events = copyEvents(events)
	}
	st = s.stateLocked()
	s.mu.Unlock()
	s.notify(st)
}

// State returns the current view state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Events returns the displayed list.
func (s *Session) Events() []model.Event {
	return s.State().Events
}

// Searching reports whether the latest search is outstanding.
func (s *Session) Searching() bool {
	return s.State().Searching
}

// Close stops the pending timer; results arriving later are dropped.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
}

func (s *Session) stateLocked() State {
	return State{Query: s.query, Events: copyEvents(s.events), Searching: s.inFlight != 0}
}

func (s *Session) notify(st State) {
	if s.onChange != nil {
		s.onChange(st)
	}
}

func copyEvents(events []model.Event) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	return out
}
