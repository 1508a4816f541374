// Package reconcile keeps locally held event state consistent with the
// backend. Every mutation is followed by a mandatory re-read of the
// canonical entity; whatever the mutation response implied is discarded.
package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

// Fetcher reads the canonical state of an event.
type Fetcher interface {
	GetByID(ctx context.Context, id string) (*model.Event, error)
}

// Mutation performs one state-changing call and returns the server's
// acknowledgement text, which may be empty. It is never retried.
type Mutation func(ctx context.Context) (string, error)

// Op describes a mutation and the messages shown around it.
type Op struct {
	// Name identifies the operation in logs, e.g. "register".
	Name string
	Run  Mutation
	// Success is shown when the server acknowledges without a message.
	Success string
	// Failure is shown when the failure carries no usable server message.
	Failure string
}

// Snapshot is the locally held copy of one entity. It is only ever
// replaced as a whole.
type Snapshot struct {
	mu    sync.RWMutex
	event *model.Event
}

// NewSnapshot wraps an initial copy, which may be nil.
func NewSnapshot(e *model.Event) *Snapshot {
	s := &Snapshot{}
	s.Replace(e)
	return s
}

// Get returns a copy of the held entity, or nil.
func (s *Snapshot) Get() *model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.event)
}

// Replace swaps in e without merging any field of the previous copy.
func (s *Snapshot) Replace(e *model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.event = clone(e)
}

// Result is the outcome of a successful mutation.
type Result struct {
	// Event is the canonical state read after the mutation.
	Event *model.Event
	// Message is the acknowledgement to show the user.
	Message string
}

// Reconciler runs mutations with refetch-after semantics.
type Reconciler struct {
	fetcher Fetcher
	logger  *slog.Logger

	// LoadFailure is the message for a failed canonical read.
	LoadFailure string
}

// New returns a Reconciler reading canonical state through f.
func New(f Fetcher, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{fetcher: f, logger: logger, LoadFailure: "Could not load event."}
}

// Refresh re-reads the entity and replaces snap with it. On failure snap is
// left unchanged.
func (r *Reconciler) Refresh(ctx context.Context, snap *Snapshot, id string) (*model.Event, error) {
	e, err := r.fetcher.GetByID(ctx, id)
	if err != nil {
		ae := apperr.Classify(err, r.LoadFailure)
		logFailure(r.logger, "refetch_failed", ae)
		return nil, ae
	}
	if e == nil {
		return nil, &apperr.Error{Kind: apperr.NotFound, Message: r.LoadFailure}
	}
	snap.Replace(e)
	return clone(e), nil
}

// Mutate runs op and then re-reads the entity id into snap.
//
// A failed mutation returns the server message (or op.Failure) and leaves
// snap untouched. When the mutation succeeds but the re-read fails, both a
// Result (the mutation did happen) and the read error are returned, and snap
// keeps its previous copy.
func (r *Reconciler) Mutate(ctx context.Context, snap *Snapshot, id string, op Op) (*Result, error) {
	ack, err := op.Run(ctx)
	if err != nil {
		ae := apperr.Classify(err, op.Failure)
		logFailure(r.logger, "mutation_failed", ae)
		return nil, ae
	}
	r.logger.Info("mutation_applied", "op", op.Name, "event_id", id)

	msg := strings.TrimSpace(ack)
	if msg == "" {
		msg = op.Success
	}

	e, err := r.Refresh(ctx, snap, id)
	if err != nil {
		return &Result{Message: msg}, err
	}
	return &Result{Event: e, Message: msg}, nil
}

// List reads a list through the normalising read path.
func (r *Reconciler) List(ctx context.Context, fallback string, fetch Fetch) ([]model.Event, error) {
	return ReadList(ctx, r.logger, fallback, fetch)
}

func clone(e *model.Event) *model.Event {
	if e == nil {
		return nil
	}
	c := *e
	if e.Tags != nil {
		c.Tags = append([]string(nil), e.Tags...)
	}
	if e.MaxParticipants != nil {
		v := *e.MaxParticipants
		c.MaxParticipants = &v
	}
	if e.Price != nil {
		v := *e.Price
		c.Price = &v
	}
	if e.Latitude != nil {
		v := *e.Latitude
		c.Latitude = &v
	}
	if e.Longitude != nil {
		v := *e.Longitude
		c.Longitude = &v
	}
	return &c
}
