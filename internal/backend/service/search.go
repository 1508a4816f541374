package service

import (
	"context"
	"math"
	"strings"

	"github.com/Shivanand-hulikatti/eventora/internal/backend/repository"
	"github.com/Shivanand-hulikatti/eventora/internal/model"
)

// Page is a paginated list in the shape the client normalises.
type Page struct {
	Content       []model.Event `json:"content"`
	Number        int           `json:"number"`
	Size          int           `json:"size"`
	TotalElements int           `json:"totalElements"`
	TotalPages    int           `json:"totalPages"`
}

func paginate(events []model.Event, page, size int) Page {
	if page < 0 {
		page = model.DefaultPage
	}
	if size <= 0 {
		size = model.DefaultSize
	}
	p := Page{
		Content:       []model.Event{},
		Number:        page,
		Size:          size,
		TotalElements: len(events),
		TotalPages:    (len(events) + size - 1) / size,
	}
	start := page * size
	if start >= len(events) {
		return p
	}
	end := min(start+size, len(events))
	p.Content = events[start:end]
	return p
}

// public reports whether an event is listed to everyone. Drafts are only
// visible to their organizer.
func public(e *repository.EventRecord) bool {
	return e.EventStatus != model.EventDraft
}

// FilterEvents lists public events matching f.
func (s *EventService) FilterEvents(ctx context.Context, f model.EventFilter, viewerID string) ([]model.Event, error) {
	if (f.Latitude == nil) != (f.Longitude == nil) {
		return nil, invalid("nearby search needs both latitude and longitude")
	}
	recs, err := s.repo.ListEvents(ctx)
	if err != nil {
		return nil, err
	}
	matched := recs[:0]
	for i := range recs {
		if public(&recs[i]) && matches(&recs[i].Event, f) {
			matched = append(matched, recs[i])
		}
	}
	return s.views(ctx, matched, viewerID)
}

func matches(e *model.Event, f model.EventFilter) bool {
	if f.Category != "" && !strings.EqualFold(string(e.Category), string(f.Category)) {
		return false
	}
	for _, pair := range [][2]string{{f.City, e.City}, {f.State, e.State}, {f.Country, e.Country}} {
		if pair[0] != "" && !strings.EqualFold(strings.TrimSpace(pair[0]), pair[1]) {
			return false
		}
	}
	price := 0.0
	if e.Price != nil {
		price = *e.Price
	}
	if f.MinPrice != nil && price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && price > *f.MaxPrice {
		return false
	}
	if f.Latitude != nil && f.Longitude != nil {
		if e.Latitude == nil || e.Longitude == nil {
			return false
		}
		radius := float64(model.DefaultRadiusKm)
		if f.RadiusInKm != nil && *f.RadiusInKm > 0 {
			radius = *f.RadiusInKm
		}
		if haversineKm(*f.Latitude, *f.Longitude, *e.Latitude, *e.Longitude) > radius {
			return false
		}
	}
	return true
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// Search finds public events by title and organizer name. MyEventsOnly
// restricts the result to the viewer's registrations.
func (s *EventService) Search(ctx context.Context, p model.SearchParams, viewerID string) (Page, error) {
	var (
		events []model.Event
		err    error
	)
	if p.MyEventsOnly {
		if viewerID == "" {
			return Page{}, invalid("sign in to list your events")
		}
		events, err = s.MyEvents(ctx, viewerID)
	} else {
		events, err = s.FilterEvents(ctx, model.EventFilter{}, viewerID)
	}
	if err != nil {
		return Page{}, err
	}

	name := strings.ToLower(strings.TrimSpace(p.EventName))
	organizer := strings.ToLower(strings.TrimSpace(p.OrganizerName))
	matched := events[:0]
	for _, e := range events {
		if name != "" && !strings.Contains(strings.ToLower(e.Title), name) {
			continue
		}
		if organizer != "" && !strings.Contains(strings.ToLower(e.OrganizerDisplayName), organizer) {
			continue
		}
		matched = append(matched, e)
	}
	return paginate(matched, p.Page, p.Size), nil
}

// OrganizerEvents lists every event userID organizes, drafts included,
// optionally narrowed by title.
func (s *EventService) OrganizerEvents(ctx context.Context, userID string, p model.SearchParams) (Page, error) {
	recs, err := s.repo.ListEvents(ctx)
	if err != nil {
		return Page{}, err
	}
	name := strings.ToLower(strings.TrimSpace(p.EventName))
	matched := recs[:0]
	for _, rec := range recs {
		if rec.OrganizerID != userID {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(rec.Title), name) {
			continue
		}
		matched = append(matched, rec)
	}
	events, err := s.views(ctx, matched, userID)
	if err != nil {
		return Page{}, err
	}
	return paginate(events, p.Page, p.Size), nil
}
