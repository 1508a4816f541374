// Package apperr classifies the failures the client can surface to a user.
package apperr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Shivanand-hulikatti/eventora/internal/transport"
)

// Kind identifies a class of failure and the policy attached to it.
type Kind int

const (
	// Internal is an unexpected fault inside the client.
	Internal Kind = iota
	// Validation is malformed or missing input. Never retried.
	Validation
	// Auth is a missing or expired token. The session is cleared and the
	// user is sent back to login.
	Auth
	// NotFound means the id has no canonical record.
	NotFound
	// TransientNetwork is a timeout or connection failure. The user may
	// retry the same action manually; the client never retries on its own.
	TransientNetwork
	// ServerMessage is a non-success response carrying a message that is
	// shown verbatim.
	ServerMessage
)

func (k Kind) String() string {
	switch k {
	case Validation:
		return "validation"
	case Auth:
		return "auth"
	case NotFound:
		return "not_found"
	case TransientNetwork:
		return "transient_network"
	case ServerMessage:
		return "server_message"
	default:
		return "internal"
	}
}

// External reports whether the failure originated outside the client and
// should be logged below error level.
func (k Kind) External() bool {
	return k != Internal
}

// Sentinels for errors.Is checks against any *Error of the same kind.
var (
	ErrValidation       = &Error{Kind: Validation, Message: "invalid input"}
	ErrAuth             = &Error{Kind: Auth, Message: "authentication required"}
	ErrNotFound         = &Error{Kind: NotFound, Message: "not found"}
	ErrTransientNetwork = &Error{Kind: TransientNetwork, Message: "network unavailable"}
	ErrServerMessage    = &Error{Kind: ServerMessage, Message: "server error"}
)

// Error is a classified failure with the message to show the user.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Kind so callers can compare against
// the sentinels.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validationf builds a Validation error.
func Validationf(format string, args ...any) *Error {
	return &Error{Kind: Validation, Message: fmt.Sprintf(format, args...)}
}

// Authf builds an Auth error.
func Authf(format string, args ...any) *Error {
	return &Error{Kind: Auth, Message: fmt.Sprintf(format, args...)}
}

// Message returns the user-facing message of err, or fallback when err
// carries none.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) && strings.TrimSpace(ae.Message) != "" {
		return ae.Message
	}
	return fallback
}

// KindOf returns the kind of err, Internal when it is not classified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Classify maps a transport or context failure onto the taxonomy. Non-success
// responses keep the server message when the body carries one; otherwise
// fallback is used.
func Classify(err error, fallback string) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: TransientNetwork, Message: fallback, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: Internal, Message: fallback, Err: err}
	}

	var te *transport.Error
	if !errors.As(err, &te) {
		return &Error{Kind: Internal, Message: fallback, Err: err}
	}

	msg := ServerText(te.Data, fallback)
	switch {
	case te.Status == 0:
		return &Error{Kind: TransientNetwork, Message: fallback, Err: err}
	case te.Status == http.StatusUnauthorized || te.Status == http.StatusForbidden:
		return &Error{Kind: Auth, Status: te.Status, Message: msg, Err: err}
	case te.Status == http.StatusNotFound:
		return &Error{Kind: NotFound, Status: te.Status, Message: msg, Err: err}
	case te.Status == http.StatusGatewayTimeout || te.Status == http.StatusRequestTimeout:
		return &Error{Kind: TransientNetwork, Status: te.Status, Message: msg, Err: err}
	case te.Status == http.StatusBadRequest || te.Status == http.StatusUnprocessableEntity:
		return &Error{Kind: Validation, Status: te.Status, Message: msg, Err: err}
	default:
		return &Error{Kind: ServerMessage, Status: te.Status, Message: msg, Err: err}
	}
}

// ServerText extracts the message a backend put in a response body. It
// accepts {"message": "..."}, {"error": "..."}, a JSON string, or plain text.
// Anything else (empty, arrays, HTML pages) yields fallback.
func ServerText(body []byte, fallback string) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return fallback
	}

	var envelope struct {
		Message *string `json:"message"`
		Error   *string `json:"error"`
	}
	if strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &envelope); err != nil {
			return fallback
		}
		for _, s := range []*string{envelope.Message, envelope.Error} {
			if s != nil && strings.TrimSpace(*s) != "" {
				return *s
			}
		}
		return fallback
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err != nil || strings.TrimSpace(s) == "" {
			return fallback
		}
		return s
	}

	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "<") {
		return fallback
	}
	return trimmed
}
