// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Shivanand-hulikatti/eventora/internal/backend/repository"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

// ErrForbidden is returned when the caller does not own the event.
var ErrForbidden = errors.New("only the organizer can change this event")

// ValidationError is a request the service refuses as malformed.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// TransitionError is a lifecycle move the event's current status forbids.
type TransitionError struct {
	From, To model.EventStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move event from %s to %s", e.From, e.To)
}

// transitions lists the allowed lifecycle moves.
var transitions = map[model.EventStatus][]model.EventStatus{
	model.EventDraft:     {model.EventScheduled, model.EventCancelled},
	model.EventScheduled: {model.EventOngoing, model.EventCancelled},
	model.EventOngoing:   {model.EventCompleted, model.EventCancelled},
}

// CanTransition reports whether from may move to to.
func CanTransition(from, to model.EventStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EventService orchestrates event-related business operations.
type EventService struct {
	repo   repository.Repository
	logger *slog.Logger
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(repo repository.Repository, logger *slog.Logger) *EventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventService{repo: repo, logger: logger}
}

// CreateEvent validates the request and stores a DRAFT event owned by
// organizerID.
func (s *EventService) CreateEvent(ctx context.Context, organizerID string, req model.EventRequest) (*model.Event, error) {
	rec, err := s.recordFrom(req)
	if err != nil {
		return nil, err
	}
	organizer, err := s.repo.UserByID(ctx, organizerID)
	if err != nil {
		return nil, fmt.Errorf("load organizer: %w", err)
	}
	rec.OrganizerID = organizer.ID
	rec.OrganizerDisplayName = organizer.DisplayName
	rec.EventStatus = model.EventDraft

	created, err := s.repo.CreateEvent(ctx, rec)
	if err != nil {
		return nil, err
	}
	s.logger.Info("event_created", "event_id", created.ID, "organizer_id", organizerID)
	return s.view(ctx, created, organizerID)
}

// UpdateEvent replaces the editable fields. Scheduled events are frozen
// until they start.
func (s *EventService) UpdateEvent(ctx context.Context, userID, id string, req model.EventRequest) (*model.Event, error) {
	cur, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if cur.EventStatus == model.EventScheduled {
		return nil, &TransitionError{From: cur.EventStatus, To: cur.EventStatus}
	}
	rec, err := s.recordFrom(req)
	if err != nil {
		return nil, err
	}
	rec.ID = cur.ID
	if err := s.repo.UpdateEvent(ctx, rec); err != nil {
		return nil, err
	}
	s.logger.Info("event_updated", "event_id", id)
	return s.GetEvent(ctx, id, userID)
}

func (s *EventService) recordFrom(req model.EventRequest) (repository.EventRecord, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return repository.EventRecord{}, invalid("title is required")
	}
	cat, ok := model.ParseCategory(string(req.Category))
	if !ok {
		return repository.EventRecord{}, invalid("unknown event category %q", req.Category)
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return repository.EventRecord{}, invalid("latitude and longitude must be set together")
	}
	if req.MaxParticipants != nil && *req.MaxParticipants <= 0 {
		return repository.EventRecord{}, invalid("max participants must be a positive integer")
	}
	if req.MaxParticipants != nil && *req.MaxParticipants > 100_000 {
		return repository.EventRecord{}, invalid("max participants cannot exceed 100,000")
	}
	if req.Price != nil && *req.Price < 0 {
		return repository.EventRecord{}, invalid("price cannot be negative")
	}

	var rec repository.EventRecord
	rec.Title = req.Title
	rec.Description = req.Description
	rec.Category = cat
	rec.LocationName = req.LocationName
	rec.City = strings.TrimSpace(req.City)
	rec.State = strings.TrimSpace(req.State)
	rec.Country = strings.TrimSpace(req.Country)
	rec.Latitude, rec.Longitude = req.Latitude, req.Longitude
	rec.StartDate, rec.EndDate = req.StartDate, req.EndDate
	rec.MaxParticipants = req.MaxParticipants
	rec.Price = req.Price
	rec.ImageURL = req.ImageURL
	for _, t := range req.Tags {
		if t = strings.TrimSpace(t); t != "" {
			rec.Tags = append(rec.Tags, t)
		}
	}
	return rec, nil
}

// GetEvent returns one event as seen by viewerID, which may be empty.
func (s *EventService) GetEvent(ctx context.Context, id, viewerID string) (*model.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, invalid("event id is required")
	}
	rec, err := s.repo.EventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, rec, viewerID)
}

// view decorates a record with the viewer's registration status.
func (s *EventService) view(ctx context.Context, rec *repository.EventRecord, viewerID string) (*model.Event, error) {
	e := rec.Event
	e.UserRegistrationStatus = model.RegistrationNone
	if viewerID != "" {
		status, err := s.repo.RegistrationStatus(ctx, rec.ID, viewerID)
		if err != nil {
			return nil, fmt.Errorf("registration status: %w", err)
		}
		e.UserRegistrationStatus = status
	}
	return &e, nil
}

func (s *EventService) views(ctx context.Context, recs []repository.EventRecord, viewerID string) ([]model.Event, error) {
	out := make([]model.Event, 0, len(recs))
	for i := range recs {
		e, err := s.view(ctx, &recs[i], viewerID)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func (s *EventService) owned(ctx context.Context, userID, id string) (*repository.EventRecord, error) {
	rec, err := s.repo.EventByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.OrganizerID != userID {
		return nil, ErrForbidden
	}
	return rec, nil
}

// Schedule opens a DRAFT event for registration.
func (s *EventService) Schedule(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.Transition(ctx, id, model.EventScheduled)
}

// CancelEvent cancels an event in any non-terminal status.
func (s *EventService) CancelEvent(ctx context.Context, userID, id string) error {
	if _, err := s.owned(ctx, userID, id); err != nil {
		return err
	}
	return s.Transition(ctx, id, model.EventCancelled)
}

// Transition moves event id to status to when the lifecycle allows it.
// It performs no ownership check; the clock-driven ONGOING and COMPLETED
// moves use it directly.
func (s *EventService) Transition(ctx context.Context, id string, to model.EventStatus) error {
	rec, err := s.repo.EventByID(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(rec.EventStatus, to) {
		return &TransitionError{From: rec.EventStatus, To: to}
	}
	if err := s.repo.UpdateStatus(ctx, id, rec.EventStatus, to); err != nil {
		return err
	}
	s.logger.Info("event_status_changed", "event_id", id, "from", rec.EventStatus, "to", to)
	return nil
}

// Register books a place for userID.
func (s *EventService) Register(ctx context.Context, userID, id string) error {
	if strings.TrimSpace(id) == "" {
		return invalid("event id is required")
	}
	reg, err := s.repo.Book(ctx, id, userID)
	if err != nil {
		if isDomainErr(err) {
			return err
		}
		return fmt.Errorf("register for event: %w", err)
	}
	s.logger.Info("registration_created", "event_id", id, "registration_id", reg.ID)
	return nil
}

// Unregister cancels userID's registration. It cannot be renewed.
func (s *EventService) Unregister(ctx context.Context, userID, id string) error {
	if err := s.repo.Unbook(ctx, id, userID); err != nil {
		if isDomainErr(err) {
			return err
		}
		return fmt.Errorf("unregister from event: %w", err)
	}
	s.logger.Info("registration_cancelled", "event_id", id)
	return nil
}

// MyEvents lists the events userID is registered for.
func (s *EventService) MyEvents(ctx context.Context, userID string) ([]model.Event, error) {
	ids, err := s.repo.RegisteredEventIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(ids))
	for _, id := range ids {
		e, err := s.GetEvent(ctx, id, userID)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, nil
}

func isDomainErr(err error) bool {
	for _, target := range []error{
		repository.ErrNotFound,
		repository.ErrEventFull,
		repository.ErrAlreadyRegistered,
		repository.ErrRegistrationCancelled,
		repository.ErrNotRegistered,
		repository.ErrNotOpen,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
