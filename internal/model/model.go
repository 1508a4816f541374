// Package model defines the domain types shared by the Eventora client and
// the development backend.
package model

import (
	"encoding/json"
	"strings"
)

// EventStatus is the organizer-controlled lifecycle stage of an event.
//
//	DRAFT -> SCHEDULED -> ONGOING -> COMPLETED
//	any non-terminal state -> CANCELLED
type EventStatus string

const (
	EventDraft     EventStatus = "DRAFT"
	EventScheduled EventStatus = "SCHEDULED"
	EventOngoing   EventStatus = "ONGOING"
	EventCompleted EventStatus = "COMPLETED"
	EventCancelled EventStatus = "CANCELLED"
)

// EventStatuses lists every known event status in lifecycle order.
var EventStatuses = []EventStatus{EventDraft, EventScheduled, EventOngoing, EventCompleted, EventCancelled}

// ParseEventStatus normalises a wire value. Unknown values are kept
// upper-cased so they can still be shown to the user.
func ParseEventStatus(s string) EventStatus {
	return EventStatus(strings.ToUpper(strings.TrimSpace(s)))
}

// Valid reports whether s is one of the known lifecycle stages.
func (s EventStatus) Valid() bool {
	for _, known := range EventStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s EventStatus) Terminal() bool {
	return s == EventCompleted || s == EventCancelled
}

// OpenForRegistration reports whether participants may register.
func (s EventStatus) OpenForRegistration() bool {
	return s == EventScheduled
}

// Label returns the human-readable form, e.g. "Ongoing".
func (s EventStatus) Label() string {
	if s == "" {
		return "Unavailable"
	}
	lower := strings.ToLower(string(s))
	return strings.ToUpper(lower[:1]) + lower[1:]
}

func (s *EventStatus) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = ""
		return nil
	}
	*s = ParseEventStatus(*raw)
	return nil
}

// RegistrationStatus is the viewing user's relationship to one event.
// Cancelled is terminal: a user may register for a given event only once.
type RegistrationStatus string

const (
	RegistrationNone       RegistrationStatus = "NONE"
	RegistrationRegistered RegistrationStatus = "REGISTERED"
	RegistrationCancelled  RegistrationStatus = "CANCELLED"
)

// RegistrationStatuses lists every registration status.
var RegistrationStatuses = []RegistrationStatus{RegistrationNone, RegistrationRegistered, RegistrationCancelled}

// ParseRegistrationStatus normalises a wire value; anything that is not
// REGISTERED or CANCELLED means the user holds no registration.
func ParseRegistrationStatus(s string) RegistrationStatus {
	switch RegistrationStatus(strings.ToUpper(strings.TrimSpace(s))) {
	case RegistrationRegistered:
		return RegistrationRegistered
	case RegistrationCancelled:
		return RegistrationCancelled
	default:
		return RegistrationNone
	}
}

func (s *RegistrationStatus) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = RegistrationNone
		return nil
	}
	*s = ParseRegistrationStatus(*raw)
	return nil
}

// Category is the closed set of event categories.
type Category string

const (
	CategoryEducation     Category = "EDUCATION"
	CategoryHealth        Category = "HEALTH"
	CategorySports        Category = "SPORTS"
	CategoryCulture       Category = "CULTURE"
	CategoryMusic         Category = "MUSIC"
	CategoryCommunity     Category = "COMMUNITY"
	CategoryBusiness      Category = "BUSINESS"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryOther         Category = "OTHER"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryEducation, CategoryHealth, CategorySports, CategoryCulture, CategoryMusic,
	CategoryCommunity, CategoryBusiness, CategoryEntertainment, CategoryOther,
}

// ParseCategory returns the category for s and whether it is known.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return c, false
}

// Event is a snapshot of an event as served by the backend. The client
// never edits a snapshot in place; it replaces it after every mutation.
type Event struct {
	ID                     string             `json:"id"`
	Title                  string             `json:"title"`
	Description            string             `json:"description,omitempty"`
	Category               Category           `json:"eventCategory,omitempty"`
	LocationName           string             `json:"locationName,omitempty"`
	City                   string             `json:"city,omitempty"`
	State                  string             `json:"state,omitempty"`
	Country                string             `json:"country,omitempty"`
	Latitude               *float64           `json:"latitude,omitempty"`
	Longitude              *float64           `json:"longitude,omitempty"`
	StartDate              Timestamp          `json:"startDate"`
	EndDate                Timestamp          `json:"endDate"`
	MaxParticipants        *int               `json:"maxParticipants"`
	CurrentParticipants    int                `json:"currentParticipants"`
	Price                  *float64           `json:"price"`
	ImageURL               string             `json:"imageUrl,omitempty"`
	Tags                   []string           `json:"tags,omitempty"`
	OrganizerDisplayName   string             `json:"organizerDisplayName,omitempty"`
	EventStatus            EventStatus        `json:"eventStatus"`
	UserRegistrationStatus RegistrationStatus `json:"userRegistrationStatus,omitempty"`
}

// Unlimited reports whether the event has no participant cap.
func (e *Event) Unlimited() bool {
	return e.MaxParticipants == nil
}

// Remaining returns the number of free places, or -1 when unlimited.
func (e *Event) Remaining() int {
	if e.MaxParticipants == nil {
		return -1
	}
	if n := *e.MaxParticipants - e.CurrentParticipants; n > 0 {
		return n
	}
	return 0
}

// IsFull returns true when a capped event has no places left.
func (e *Event) IsFull() bool {
	return e.MaxParticipants != nil && e.CurrentParticipants >= *e.MaxParticipants
}

// Free reports whether the event has no price.
func (e *Event) Free() bool {
	return e.Price == nil || *e.Price == 0
}

// Location joins the non-empty city, state and country fields.
func (e *Event) Location() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{e.City, e.State, e.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// EventRequest is the payload for creating or updating an event.
type EventRequest struct {
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	Category        Category    `json:"eventCategory"`
	LocationName    string      `json:"locationName,omitempty"`
	City            string      `json:"city,omitempty"`
	State           string      `json:"state,omitempty"`
	Country         string      `json:"country,omitempty"`
	Latitude        *float64    `json:"latitude,omitempty"`
	Longitude       *float64    `json:"longitude,omitempty"`
	StartDate       Timestamp   `json:"startDate"`
	EndDate         Timestamp   `json:"endDate"`
	MaxParticipants *int        `json:"maxParticipants,omitempty"`
	Price           *float64    `json:"price,omitempty"`
	ImageURL        string      `json:"imageUrl,omitempty"`
	Tags            []string    `json:"tags,omitempty"`
	EventStatus     EventStatus `json:"eventStatus,omitempty"`
}

// EventFilter is the criteria payload of the fetch-by-filter endpoint.
// Zero values are omitted so the backend ignores them.
type EventFilter struct {
	MinPrice   *float64 `json:"minPrice,omitempty"`
	MaxPrice   *float64 `json:"maxPrice,omitempty"`
	City       string   `json:"city,omitempty"`
	State      string   `json:"state,omitempty"`
	Country    string   `json:"country,omitempty"`
	Category   Category `json:"eventCategory,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	RadiusInKm *float64 `json:"radiusInKm,omitempty"`
}

// DefaultRadiusKm is used by nearby filters that do not set a radius.
const DefaultRadiusKm = 10

// Nearby restricts the filter to events within radiusKm of a position.
func (f EventFilter) Nearby(lat, lon, radiusKm float64) EventFilter {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}
	f.Latitude, f.Longitude, f.RadiusInKm = &lat, &lon, &radiusKm
	return f
}

// Pagination defaults used by the search endpoints.
const (
	DefaultPage = 0
	DefaultSize = 10
)

// SearchParams are the query parameters of the name/organizer search.
type SearchParams struct {
	EventName     string
	OrganizerName string
	MyEventsOnly  bool
	Page          int
	Size          int
}

// Credentials is the payload for password login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignupRequest is the payload for creating an account.
type SignupRequest struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// TokenResponse is returned by login and by the OAuth code exchange.
type TokenResponse struct {
	Token string `json:"token"`
}

// UserProfile describes the signed-in user.
type UserProfile struct {
	ID          string   `json:"id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	Roles       []string `json:"roles,omitempty"`
}

// Initial returns the upper-cased first letter of the display name, or "?".
func (p *UserProfile) Initial() string {
	if p == nil {
		return "?"
	}
	for _, r := range strings.TrimSpace(p.DisplayName) {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// ErrorResponse is the JSON error envelope used by the backend.
type ErrorResponse struct {
	Message string `json:"message"`
}
