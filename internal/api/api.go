// Package api exposes the backend operations the views use. Reads go through
// the normalising list/detail path of package reconcile; mutations return
// the server's acknowledgement text and never retry.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/transport"
)

// Messages shown when the server gives nothing better.
const (
	MsgLoadEvents        = "Could not load events."
	MsgLoadEvent         = "Could not load event."
	MsgLoadMyEvents      = "Could not load your events."
	MsgRegistered        = "Successfully registered for the event!"
	MsgRegisterFailed    = "Failed to register for the event."
	MsgUnregistered      = "Successfully cancelled registration"
	MsgUnregisterFailed  = "Failed to cancel registration."
	MsgRegisterOnce      = "You can only register for an event once. This event was previously cancelled."
	MsgSignInToRegister  = "Please sign in to register for events."
	MsgScheduled         = "Event Scheduled successfully!"
	MsgScheduleFailed    = "Failed to Schedule event."
	MsgEventCancelled    = "Event cancelled successfully!"
	MsgCancelEventFailed = "Failed to cancel event."
	MsgCreated           = "Event created successfully"
	MsgCreateFailed      = "Failed to create event"
	MsgUpdated           = "Event updated successfully"
	MsgUpdateFailed      = "Failed to update event"
	MsgLoginFailed       = "Login failed. Please try again."
	MsgUserExists        = "User already exists. Try logging in or use a different email."
	MsgSignupInvalid     = "Invalid registration data. Please check your inputs."
	MsgSignupFailed      = "Registration failed. Please try again."
	MsgProfileFailed     = "Could not load your profile."
	MsgOAuthFailed       = "OAuth authentication failed."
	MsgPredictionFailed  = "Prediction error"
)

// Session is the token holder the client reads and writes.
type Session interface {
	Token() string
	SignedIn() bool
	Set(ctx context.Context, token string) error
	Clear() error
}

// Client groups the backend operations.
type Client struct {
	http    *transport.Client
	session Session
	logger  *slog.Logger
}

// New returns a Client calling the backend through hc.
func New(hc *transport.Client, sess Session, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{http: hc, session: sess, logger: logger}
}

// Transport returns the underlying HTTP client.
func (c *Client) Transport() *transport.Client {
	return c.http
}

// SignedIn reports whether a token is held.
func (c *Client) SignedIn() bool {
	return c.session != nil && c.session.SignedIn()
}

// ack returns the acknowledgement text of a mutation response, or "".
func ack(resp *transport.Response) string {
	if resp == nil {
		return ""
	}
	return apperr.ServerText(resp.Data, "")
}

func escapeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperr.Validationf("event id is required")
	}
	return url.PathEscape(id), nil
}

func (c *Client) requireSession(msg string) error {
	if !c.SignedIn() {
		return &apperr.Error{Kind: apperr.Auth, Message: msg}
	}
	return nil
}

func (c *Client) mutate(ctx context.Context, name, method, path string, body any, fallback string) (string, error) {
	resp, err := c.http.Do(ctx, method, path, transport.Options{Body: body})
	if err != nil {
		return "", apperr.Classify(err, fallback)
	}
	c.logger.Debug("mutation_acknowledged", "op", name, "status", resp.Status)
	return ack(resp), nil
}

func pathf(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
