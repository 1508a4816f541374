// Package repository persists users, events and registrations for the
// development backend. Postgres is the real store; Memory backs tests and
// quick local runs.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrEventFull is returned when an event has no remaining capacity.
var ErrEventFull = errors.New("event is fully booked")

// ErrAlreadyRegistered is returned when the user already holds a registration.
var ErrAlreadyRegistered = errors.New("already registered for this event")

// ErrRegistrationCancelled is returned when the user cancelled before; a
// user may register for an event only once.
var ErrRegistrationCancelled = errors.New("registration was cancelled and cannot be renewed")

// ErrNotRegistered is returned when cancelling a registration that is not held.
var ErrNotRegistered = errors.New("not registered for this event")

// ErrNotOpen is returned when registering for an event that is not SCHEDULED.
var ErrNotOpen = errors.New("event is not open for registration")

// ErrUserExists is returned when the email is already taken.
var ErrUserExists = errors.New("user already exists")

// ErrStatusChanged is returned when a conditional status update lost a race.
var ErrStatusChanged = errors.New("event status changed concurrently")

// User is an account.
type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// EventRecord is a stored event with its owner.
type EventRecord struct {
	model.Event
	OrganizerID string
	CreatedAt   time.Time
}

// Registration links a user to an event.
type Registration struct {
	ID        string
	EventID   string
	UserID    string
	Status    model.RegistrationStatus
	CreatedAt time.Time
}

// Repository is the storage contract the service layer needs.
type Repository interface {
	CreateUser(ctx context.Context, u User) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByID(ctx context.Context, id string) (*User, error)

	CreateEvent(ctx context.Context, e EventRecord) (*EventRecord, error)
	UpdateEvent(ctx context.Context, e EventRecord) error
	EventByID(ctx context.Context, id string) (*EventRecord, error)
	ListEvents(ctx context.Context) ([]EventRecord, error)
	// UpdateStatus moves event id from one status to another, failing with
	// ErrStatusChanged when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to model.EventStatus) error

	// Book registers userID for eventID. It is safe under concurrency: the
	// capacity check and the counter update happen atomically.
	Book(ctx context.Context, eventID, userID string) (*Registration, error)
	// Unbook cancels the registration and frees its place.
	Unbook(ctx context.Context, eventID, userID string) error
	RegistrationStatus(ctx context.Context, eventID, userID string) (model.RegistrationStatus, error)
	RegisteredEventIDs(ctx context.Context, userID string) ([]string, error)
}
