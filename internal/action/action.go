// Package action derives what a viewer may do with an event from the pair
// (event status, registration status). Resolve is a pure function of that
// pair so it stays consistent with a backend that is re-read after every
// mutation.
package action

import (
	"fmt"

	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

// Kind tags a Descriptor.
type Kind int

const (
	// Register offers a new registration.
	Register Kind = iota + 1
	// CancelRegistration offers cancelling the viewer's registration.
	CancelRegistration
	// Blocked shows Label as a disabled indicator.
	Blocked
	// OrganizerAction offers the organizer controls in Organizer.
	OrganizerAction
)

func (k Kind) String() string {
	switch k {
	case Register:
		return "register"
	case CancelRegistration:
		return "cancelRegistration"
	case Blocked:
		return "blocked"
	case OrganizerAction:
		return "organizerAction"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// CancelledLabel is shown once a registration has been cancelled.
const CancelledLabel = "Cancelled"

// OrganizerActions lists which organizer controls are available.
type OrganizerActions struct {
	Schedule    bool
	Edit        bool
	CancelEvent bool
}

// Descriptor is the action presented for one event.
type Descriptor struct {
	Kind Kind
	// Label is set for Blocked.
	Label string
	// Organizer is set for OrganizerAction.
	Organizer OrganizerActions
}

// Enabled reports whether the participant can act on the descriptor.
func (d Descriptor) Enabled() bool {
	return d.Kind == Register || d.Kind == CancelRegistration
}

// Destructive reports whether acting on the descriptor must go through a
// confirmation Gate.
func (d Descriptor) Destructive() bool {
	return d.Kind == CancelRegistration
}

func (d Descriptor) String() string {
	switch d.Kind {
	case Blocked:
		return fmt.Sprintf("blocked(%s)", d.Label)
	case OrganizerAction:
		return fmt.Sprintf("organizerAction(schedule=%t edit=%t cancelEvent=%t)",
			d.Organizer.Schedule, d.Organizer.Edit, d.Organizer.CancelEvent)
	default:
		return d.Kind.String()
	}
}

// Resolve returns the single action for an event status and the viewer's
// registration status. ownerView selects the organizer policy.
func Resolve(status model.EventStatus, reg model.RegistrationStatus, ownerView bool) Descriptor {
	if ownerView {
		return Descriptor{Kind: OrganizerAction, Organizer: Organizer(status)}
	}

	if reg == model.RegistrationCancelled {
		return Descriptor{Kind: Blocked, Label: CancelledLabel}
	}

	if status != model.EventScheduled {
		// Existing registrations stay cancellable after the event leaves
		// SCHEDULED, e.g. once it is ONGOING.
		if reg == model.RegistrationRegistered {
			return Descriptor{Kind: CancelRegistration}
		}
		return Descriptor{Kind: Blocked, Label: status.Label()}
	}

	if reg == model.RegistrationRegistered {
		return Descriptor{Kind: CancelRegistration}
	}
	return Descriptor{Kind: Register}
}

// ForEvent resolves the action for a snapshot.
func ForEvent(e *model.Event, ownerView bool) Descriptor {
	reg := e.UserRegistrationStatus
	if reg == "" {
		reg = model.RegistrationNone
	}
	return Resolve(e.EventStatus, reg, ownerView)
}

// Organizer returns the organizer controls for an event status. A
// scheduled event is a commitment and cannot be edited or re-scheduled.
func Organizer(status model.EventStatus) OrganizerActions {
	return OrganizerActions{
		Schedule:    status != model.EventScheduled,
		Edit:        status != model.EventScheduled,
		CancelEvent: status != model.EventCancelled,
	}
}
