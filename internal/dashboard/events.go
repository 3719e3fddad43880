package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

// DefaultEventLimit caps the event list request.
const DefaultEventLimit = 500

// RecentWindow is how recent an unseen event must be to raise a notification.
const RecentWindow = time.Hour

// TimeLayout formats event times in the region's zone.
const TimeLayout = "Jan 2 15:04 MST"

// ListItem is one entry of the event list.
type ListItem struct {
	ID             string    `json:"id"`
	Magnitude      string    `json:"magnitude"`
	Tier           string    `json:"tier"`
	Place          string    `json:"place"`
	Time           time.Time `json:"time"`
	TimeLabel      string    `json:"time_label"`
	DepthKm        *float64  `json:"depth_km,omitempty"`
	URL            string    `json:"url"`
	HasCoordinates bool      `json:"has_coordinates"`
}

// EventsView is the list and marker layer built from one batch.
type EventsView struct {
	Items   []ListItem
	Markers []Marker
}

// EventsPanel is the event list region of the dashboard.
type EventsPanel struct {
	Items     []ListItem `json:"items"`
	Error     string     `json:"error,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RenderEvents builds one list entry per event, in input order, and one
// marker per event that has coordinates.
func RenderEvents(events []domain.SeismicEvent, loc *time.Location) EventsView {
	if loc == nil {
		loc = time.UTC
	}
	view := EventsView{
		Items:   make([]ListItem, 0, len(events)),
		Markers: make([]Marker, 0, len(events)),
	}
	for _, e := range events {
		item := ListItem{
			ID:             e.ID,
			Magnitude:      domain.MagnitudeLabel(e.Magnitude),
			Tier:           domain.Tier(e.Magnitude),
			Place:          e.Place,
			Time:           e.Time,
			TimeLabel:      e.Time.In(loc).Format(TimeLayout),
			URL:            e.URL,
			HasCoordinates: e.Coordinates != nil,
		}
		if e.Coordinates != nil {
			depth := e.Coordinates.DepthKm
			item.DepthKm = &depth
			view.Markers = append(view.Markers, eventMarker(e))
		}
		view.Items = append(view.Items, item)
	}
	return view
}

func eventMarker(e domain.SeismicEvent) Marker {
	return Marker{
		EventID: e.ID,
		Lat:     e.Coordinates.Lat,
		Lon:     e.Coordinates.Lon,
		Color:   domain.MarkerColor(e.Magnitude),
		Radius:  markerRadius(e.Magnitude),
		Popup:   fmt.Sprintf("%s - %s", domain.MagnitudeLabel(e.Magnitude), e.Place),
	}
}

func markerRadius(mag *float64) float64 {
	if mag == nil || *mag < 1 {
		return 4
	}
	return 2 + *mag*2
}

// RenderEvents fetches the list window selected by the range control,
// rebuilds the list and the map's event layer, and notifies for unseen
// events from the last hour.
func (s *Session) RenderEvents(ctx context.Context) error {
	now := s.clock.Now()
	events, err := s.feed.Fetch(ctx, s.eventsQuery(now))
	if err != nil {
		s.mu.Lock()
		s.events = EventsPanel{Error: "Unable to load earthquakes.", UpdatedAt: now}
		s.listed = nil
		s.mu.Unlock()
		return fmt.Errorf("fetch events: %w", err)
	}

	view := RenderEvents(events, s.loc)
	s.mapView.ReplaceMarkers(view.Markers)

	s.mu.Lock()
	s.events = EventsPanel{Items: view.Items, UpdatedAt: now}
	s.listed = events
	s.mu.Unlock()

	s.metrics.EventsListed.Set(float64(len(view.Items)))
	s.metrics.MarkersRendered.Set(float64(len(view.Markers)))

	for _, e := range events {
		if !s.seen.Add(e.ID) {
			continue
		}
		if now.Sub(e.Time) > RecentWindow {
			continue
		}
		s.notifier.Notify(ctx, domain.Notification{
			Source:  "events",
			EventID: e.ID,
			Title:   "New earthquake " + domain.MagnitudeLabel(e.Magnitude),
			Body:    e.Place,
			Level:   domain.LevelFor(e.Magnitude),
		}, s.notifyDuration)
	}
	return nil
}

func (s *Session) eventsQuery(now time.Time) domain.FeedQuery {
	region := s.region
	q := domain.FeedQuery{
		StartTime: domain.Since(now, time.Duration(s.DaysBack())*24*time.Hour),
		OrderBy:   domain.OrderByTime,
		Limit:     s.eventLimit,
		Box:       &region,
	}
	if s.minMagnitude > 0 {
		q.MinMagnitude = domain.Float(s.minMagnitude)
	}
	return q
}

// Focus centers the map on a listed event.
func (s *Session) Focus(id string) error {
	s.mu.Lock()
	var target *domain.SeismicEvent
	for i := range s.listed {
		if s.listed[i].ID == id {
			target = &s.listed[i]
			break
		}
	}
	s.mu.Unlock()

	if target == nil || target.Coordinates == nil {
		return fmt.Errorf("focus %q: %w", id, ErrNotFound)
	}
	s.mapView.CenterOn(target.Coordinates.Lat, target.Coordinates.Lon, FocusZoom)
	return nil
}
