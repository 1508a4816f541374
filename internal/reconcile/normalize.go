package reconcile

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/Shivanand-hulikatti/eventora/internal/apperr"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
	"github.com/Shivanand-hulikatti/eventora/internal/transport"
)

// Fetch performs one read against the backend.
type Fetch func(ctx context.Context) (*transport.Response, error)

// DecodeList accepts the list shapes the backend produces: a bare array,
// {"events": [...]} or a page object {"content": [...]}. ok is false when
// the body is none of these.
func DecodeList(data []byte) (events []model.Event, ok bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false
	}

	if data[0] == '[' {
		if err := json.Unmarshal(data, &events); err != nil {
			return nil, false
		}
		return nonNil(events), true
	}

	if data[0] == '{' {
		var wrapped struct {
			Events  *[]model.Event `json:"events"`
			Content *[]model.Event `json:"content"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, false
		}
		switch {
		case wrapped.Events != nil:
			return nonNil(*wrapped.Events), true
		case wrapped.Content != nil:
			return nonNil(*wrapped.Content), true
		}
	}
	return nil, false
}

// ReadList runs fetch and normalises the result. Statuses in [200,400) are
// success; an empty or null body is an empty list, and any other body that
// is not a list is a ServerMessage error. A transport error for a redirect that still carries an array
// body is recovered as success and logged at debug level only. Any other
// failure yields an empty, non-nil list and an *apperr.Error with the
// message to show; ReadList never panics past this point.
func ReadList(ctx context.Context, logger *slog.Logger, fallback string, fetch Fetch) ([]model.Event, error) {
	if logger == nil {
		logger = slog.Default()
	}

	resp, err := fetch(ctx)
	if err == nil {
		if events, ok := DecodeList(resp.Data); ok {
			return events, nil
		}
		if emptyBody(resp.Data) {
			return []model.Event{}, nil
		}
		ae := &apperr.Error{Kind: apperr.ServerMessage, Status: resp.Status, Message: apperr.ServerText(resp.Data, fallback)}
		logFailure(logger, "list_unrecognised_body", ae)
		return []model.Event{}, ae
	}

	var te *transport.Error
	if errors.As(err, &te) && te.Redirect() {
		if events, ok := DecodeList(te.Data); ok {
			logger.Debug("list_redirect_recovered", "status", te.Status, "path", te.Path, "count", len(events))
			return events, nil
		}
	}

	ae := apperr.Classify(err, fallback)
	logFailure(logger, "list_read_failed", ae)
	return []model.Event{}, ae
}

// ReadEvent runs fetch and decodes a single event with the same redirect
// tolerance as ReadList. An empty or null body is NotFound.
func ReadEvent(ctx context.Context, logger *slog.Logger, fallback string, fetch Fetch) (*model.Event, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var data []byte
	resp, err := fetch(ctx)
	switch {
	case err == nil:
		data = resp.Data
	default:
		var te *transport.Error
		if !errors.As(err, &te) || !te.Redirect() || !looksLikeObject(te.Data) {
			ae := apperr.Classify(err, fallback)
			logFailure(logger, "event_read_failed", ae)
			return nil, ae
		}
		logger.Debug("event_redirect_recovered", "status", te.Status, "path", te.Path)
		data = te.Data
	}

	if !looksLikeObject(data) {
		return nil, &apperr.Error{Kind: apperr.NotFound, Message: fallback}
	}
	var e model.Event
	if err := json.Unmarshal(data, &e); err != nil {
		ae := &apperr.Error{Kind: apperr.ServerMessage, Message: fallback, Err: err}
		logFailure(logger, "event_decode_failed", ae)
		return nil, ae
	}
	return &e, nil
}

func emptyBody(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}

func looksLikeObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

func nonNil(events []model.Event) []model.Event {
	if events == nil {
		return []model.Event{}
	}
	return events
}

// logFailure keeps expected external failures below error level so they
// stay distinguishable from internal faults.
func logFailure(logger *slog.Logger, msg string, ae *apperr.Error) {
	attrs := []any{"kind", ae.Kind.String(), "status", ae.Status, "message", ae.Message}
	if ae.Err != nil {
		attrs = append(attrs, "error", ae.Err.Error())
	}
	if ae.Kind.External() {
		logger.Warn(msg, attrs...)
		return
	}
	logger.Error(msg, attrs...)
}
