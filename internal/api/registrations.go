package api

import (
	"context"
	"net/http"

	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/Shivanand-hulikatti/eventora/internal/reconcile"
	"github.com/Shivanand-hulikatti/eventora/internal/transport"
)

const (
	pathMyEvents   = "/api/registrations/getMyEvents"
	pathRegister   = "/api/registrations/register-event/%s"
	pathUnregister = "/api/registrations/unregister-event/%s"
)

// MyEvents lists the events the signed-in user registered for.
func (c *Client) MyEvents(ctx context.Context) ([]model.Event, error) {
	if err := c.requireSession(MsgLoadMyEvents); err != nil {
		return []model.Event{}, err
	}
	return reconcile.ReadList(ctx, c.logger, MsgLoadMyEvents, func(ctx context.Context) (*transport.Response, error) {
		return c.http.Get(ctx, pathMyEvents, transport.Options{})
	})
}

// Register signs the user up for event id.
func (c *Client) Register(ctx context.Context, id string) (string, error) {
	if err := c.requireSession(MsgSignInToRegister); err != nil {
		return "", err
	}
	eid, err := escapeID(id)
	if err != nil {
		return "", err
	}
	return c.mutate(ctx, "register", http.MethodPost, pathf(pathRegister, eid), struct{}{}, MsgRegisterFailed)
}

// Unregister cancels the user's registration for event id. The backend
// does not allow registering again afterwards.
func (c *Client) Unregister(ctx context.Context, id string) (string, error) {
	if err := c.requireSession(MsgSignInToRegister); err != nil {
		return "", err
	}
	eid, err := escapeID(id)
	if err != nil {
		return "", err
	}
	return c.mutate(ctx, "unregister", http.MethodDelete, pathf(pathUnregister, eid), nil, MsgUnregisterFailed)
}

// CheckRegister refuses locally what the backend would refuse anyway: a
// signed-out user, or a registration that was already cancelled.
func (c *Client) CheckRegister(e *model.Event) error {
	if err := c.requireSession(MsgSignInToRegister); err != nil {
		return err
	}
	if e != nil && e.UserRegistrationStatus == model.RegistrationCancelled {
		return &apperr.Error{Kind: apperr.Validation, Message: MsgRegisterOnce}
	}
	return nil
}

// RegisterOp registers for e through the reconciler. The local checks run
// before any network call.
func (c *Client) RegisterOp(e *model.Event) reconcile.Op {
	return reconcile.Op{
		Name: "register",
		Run: func(ctx context.Context) (string, error) {
			if err := c.CheckRegister(e); err != nil {
				return "", err
			}
			return c.Register(ctx, e.ID)
		},
		Success: MsgRegistered,
		Failure: MsgRegisterFailed,
	}
}

// UnregisterOp cancels the registration for event id through the
// reconciler.
func (c *Client) UnregisterOp(id string) reconcile.Op {
	return reconcile.Op{
		Name:    "unregister",
		Run:     func(ctx context.Context) (string, error) { return c.Unregister(ctx, id) },
		Success: MsgUnregistered,
		Failure: MsgUnregisterFailed,
	}
}
