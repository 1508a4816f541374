package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/google/uuid"
)

// Memory is an in-process Repository. A single mutex serialises bookings
// the way the row lock does in Postgres.
type Memory struct {
	mu            sync.Mutex
	users         map[string]User
	events        map[string]EventRecord
	registrations map[[2]string]Registration
}

// NewMemory returns an empty Memory repository.
func NewMemory() *Memory {
	return &Memory{
		users:         map[string]User{},
		events:        map[string]EventRecord{},
		registrations: map[[2]string]Registration{},
	}
}

func (m *Memory) CreateUser(_ context.Context, u User) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, ErrUserExists
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	u.CreatedAt = time.Now().UTC()
	u.Roles = slices.Clone(u.Roles)
	m.users[u.ID] = u
	return &u, nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UserByID(_ context.Context, id string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) CreateEvent(_ context.Context, e EventRecord) (*EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.CreatedAt = time.Now().UTC()
	e.CurrentParticipants = 0
	e.UserRegistrationStatus = ""
	e.Tags = slices.Clone(e.Tags)
	m.events[e.ID] = e
	return &e, nil
}

func (m *Memory) UpdateEvent(_ context.Context, e EventRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.events[e.ID]
	if !ok {
		return ErrNotFound
	}
	// Counters, ownership and status are not editable through an update.
	e.CurrentParticipants = cur.CurrentParticipants
	e.OrganizerID = cur.OrganizerID
	e.EventStatus = cur.EventStatus
	e.CreatedAt = cur.CreatedAt
	e.Tags = slices.Clone(e.Tags)
	m.events[e.ID] = e
	return nil
}

func (m *Memory) EventByID(_ context.Context, id string) (*EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.Tags = slices.Clone(e.Tags)
	return &e, nil
}

func (m *Memory) ListEvents(_ context.Context) ([]EventRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventRecord, 0, len(m.events))
	for _, e := range m.events {
		e.Tags = slices.Clone(e.Tags)
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) UpdateStatus(_ context.Context, id string, from, to model.EventStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return ErrNotFound
	}
	if e.EventStatus != from {
		return ErrStatusChanged
	}
	e.EventStatus = to
	m.events[id] = e
	return nil
}

func (m *Memory) Book(_ context.Context, eventID, userID string) (*Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[eventID]
	if !ok {
		return nil, ErrNotFound
	}
	if err := checkBookable(e.EventStatus, m.registrations[[2]string{eventID, userID}].Status); err != nil {
		return nil, err
	}
	if e.MaxParticipants != nil && e.CurrentParticipants >= *e.MaxParticipants {
		return nil, ErrEventFull
	}

	e.CurrentParticipants++
	m.events[eventID] = e
	reg := Registration{
		ID:        uuid.NewString(),
		EventID:   eventID,
		UserID:    userID,
		Status:    model.RegistrationRegistered,
		CreatedAt: time.Now().UTC(),
	}
	m.registrations[[2]string{eventID, userID}] = reg
	return &reg, nil
}

func (m *Memory) Unbook(_ context.Context, eventID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.events[eventID]
	if !ok {
		return ErrNotFound
	}
	key := [2]string{eventID, userID}
	reg, ok := m.registrations[key]
	if !ok || reg.Status != model.RegistrationRegistered {
		return ErrNotRegistered
	}
	reg.Status = model.RegistrationCancelled
	m.registrations[key] = reg
	if e.CurrentParticipants > 0 {
		e.CurrentParticipants--
	}
	m.events[eventID] = e
	return nil
}

func (m *Memory) RegistrationStatus(_ context.Context, eventID, userID string) (model.RegistrationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	reg, ok := m.registrations[[2]string{eventID, userID}]
	if !ok {
		return model.RegistrationNone, nil
	}
	return reg.Status, nil
}

func (m *Memory) RegisteredEventIDs(_ context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for key, reg := range m.registrations {
		if key[1] == userID && reg.Status == model.RegistrationRegistered {
			ids = append(ids, key[0])
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// checkBookable applies the registration rules shared by both stores.
func checkBookable(status model.EventStatus, existing model.RegistrationStatus) error {
	switch existing {
	case model.RegistrationRegistered:
		return ErrAlreadyRegistered
	case model.RegistrationCancelled:
		return ErrRegistrationCancelled
	}
	if !status.OpenForRegistration() {
		return ErrNotOpen
	}
	return nil
}
