package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/Shivanand-hulikatti/eventora/internal/reconcile"
	"github.com/Shivanand-hulikatti/eventora/internal/transport"
)

// Event endpoints.
const (
	pathGetByFilter   = "/public/api/events/getByFilter"
	pathGetByID       = "/public/api/events/getById"
	pathSearch        = "/public/api/events/getByNameAndOrganizer"
	pathOrganizerList = "/public/api/events/getByNameOrganiserByMe"
	pathCreate        = "/public/api/events/create"
	pathUpdate        = "/public/api/events/update/%s"
	pathSchedule      = "/public/api/events/schedule/%s"
	pathCancelEvent   = "/public/api/events/cancel/%s"
)

// GetByFilter lists events matching f. On failure the list is empty and
// the error carries the message to show.
func (c *Client) GetByFilter(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	if err := ValidateFilter(f); err != nil {
		return []model.Event{}, err
	}
	return reconcile.ReadList(ctx, c.logger, MsgLoadEvents, func(ctx context.Context) (*transport.Response, error) {
		return c.http.Post(ctx, pathGetByFilter, transport.Options{Body: f})
	})
}

// GetByID reads the canonical state of one event.
func (c *Client) GetByID(ctx context.Context, id string) (*model.Event, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validationf("event id is required")
	}
	params := url.Values{"eventId": {id}}
	return reconcile.ReadEvent(ctx, c.logger, MsgLoadEvent, func(ctx context.Context) (*transport.Response, error) {
		return c.http.Get(ctx, pathGetByID, transport.Options{Params: params})
	})
}

// Search finds events by name and organizer.
func (c *Client) Search(ctx context.Context, p model.SearchParams) ([]model.Event, error) {
	params := pageParams(p)
	if v := strings.TrimSpace(p.OrganizerName); v != "" {
		params.Set("organizerName", v)
	}
	if p.MyEventsOnly {
		params.Set("isMyEventList", "true")
	}
	return reconcile.ReadList(ctx, c.logger, MsgLoadEvents, func(ctx context.Context) (*transport.Response, error) {
		return c.http.Get(ctx, pathSearch, transport.Options{Params: params})
	})
}

// OrganizerEvents lists the signed-in organizer's events, optionally
// filtered by name.
func (c *Client) OrganizerEvents(ctx context.Context, p model.SearchParams) ([]model.Event, error) {
	if err := c.requireSession(MsgLoadMyEvents); err != nil {
		return []model.Event{}, err
	}
	params := pageParams(p)
	return reconcile.ReadList(ctx, c.logger, MsgLoadMyEvents, func(ctx context.Context) (*transport.Response, error) {
		return c.http.Get(ctx, pathOrganizerList, transport.Options{Params: params})
	})
}

func pageParams(p model.SearchParams) url.Values {
	params := url.Values{}
	if v := strings.TrimSpace(p.EventName); v != "" {
		params.Set("eventName", v)
	}
	page, size := p.Page, p.Size
	if page < 0 {
		page = model.DefaultPage
	}
	if size <= 0 {
		size = model.DefaultSize
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(size))
	return params
}

// Create submits a new event. The returned event is nil when the backend
// did not echo it back.
func (c *Client) Create(ctx context.Context, req model.EventRequest) (*model.Event, string, error) {
	if err := ValidateEvent(req); err != nil {
		return nil, "", err
	}
	return c.saveEvent(ctx, "create_event", pathCreate, req, MsgCreated, MsgCreateFailed)
}

// Update replaces the editable fields of event id.
func (c *Client) Update(ctx context.Context, id string, req model.EventRequest) (*model.Event, string, error) {
	eid, err := escapeID(id)
	if err != nil {
		return nil, "", err
	}
	if err := ValidateEvent(req); err != nil {
		return nil, "", err
	}
	return c.saveEvent(ctx, "update_event", pathf(pathUpdate, eid), req, MsgUpdated, MsgUpdateFailed)
}

func (c *Client) saveEvent(ctx context.Context, name, path string, req model.EventRequest, success, fallback string) (*model.Event, string, error) {
	resp, err := c.http.Post(ctx, path, transport.Options{Body: req})
	if err != nil {
		return nil, "", apperr.Classify(err, fallback)
	}
	c.logger.Info("event_saved", "op", name, "status", resp.Status)

	var e model.Event
	if json.Unmarshal(resp.Data, &e) == nil && e.ID != "" {
		return &e, success, nil
	}
	return nil, apperr.ServerText(resp.Data, success), nil
}

// Schedule moves event id to SCHEDULED and returns the acknowledgement.
func (c *Client) Schedule(ctx context.Context, id string) (string, error) {
	eid, err := escapeID(id)
	if err != nil {
		return "", err
	}
	return c.mutate(ctx, "schedule_event", http.MethodPut, pathf(pathSchedule, eid), struct{}{}, MsgScheduleFailed)
}

// CancelEvent moves event id to CANCELLED.
func (c *Client) CancelEvent(ctx context.Context, id string) (string, error) {
	eid, err := escapeID(id)
	if err != nil {
		return "", err
	}
	return c.mutate(ctx, "cancel_event", http.MethodPut, pathf(pathCancelEvent, eid), struct{}{}, MsgCancelEventFailed)
}

// ScheduleOp wraps Schedule for the reconciler.
func (c *Client) ScheduleOp(id string) reconcile.Op {
	return reconcile.Op{
		Name:    "schedule_event",
		Run:     func(ctx context.Context) (string, error) { return c.Schedule(ctx, id) },
		Success: MsgScheduled,
		Failure: MsgScheduleFailed,
	}
}

// CancelEventOp wraps CancelEvent for the reconciler.
func (c *Client) CancelEventOp(id string) reconcile.Op {
	return reconcile.Op{
		Name:    "cancel_event",
		Run:     func(ctx context.Context) (string, error) { return c.CancelEvent(ctx, id) },
		Success: MsgEventCancelled,
		Failure: MsgCancelEventFailed,
	}
}

// ValidateEvent checks the fields the backend rejects outright.
func ValidateEvent(req model.EventRequest) error {
	if strings.TrimSpace(req.Title) == "" {
		return apperr.Validationf("title is required")
	}
	if _, ok := model.ParseCategory(string(req.Category)); !ok {
		return apperr.Validationf("unknown category %q", req.Category)
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return apperr.Validationf("latitude and longitude must be set together")
	}
	if req.MaxParticipants != nil && *req.MaxParticipants <= 0 {
		return apperr.Validationf("max participants must be positive")
	}
	if req.Price != nil && *req.Price < 0 {
		return apperr.Validationf("price cannot be negative")
	}
	return nil
}

// ValidateFilter rejects a nearby search missing one coordinate.
func ValidateFilter(f model.EventFilter) error {
	if (f.Latitude == nil) != (f.Longitude == nil) {
		return apperr.Validationf("nearby search needs both latitude and longitude")
	}
	if f.Category != "" {
		if _, ok := model.ParseCategory(string(f.Category)); !ok {
			return apperr.Validationf("unknown category %q", f.Category)
		}
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return apperr.Validationf("min price is above max price")
	}
	return nil
}
