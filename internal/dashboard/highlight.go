package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

// Highlight query parameters. The wide window is only tried when the
// primary one is empty.
const (
	HighlightMinMagnitude = 5.0
	highlightPrimaryDays  = 7
	highlightPrimaryLimit = 50
	highlightWideDays     = 30
	highlightWideLimit    = 200
)

// HighlightView describes the selected significant event.
type HighlightView struct {
	ID             string    `json:"id"`
	Magnitude      string    `json:"magnitude"`
	Place          string    `json:"place"`
	DepthKm        *float64  `json:"depth_km,omitempty"`
	Time           time.Time `json:"time"`
	TimeLabel      string    `json:"time_label"`
	URL            string    `json:"url"`
	WindowDays     int       `json:"window_days"`
	HasCoordinates bool      `json:"has_coordinates"`
}

// HighlightPanel is the significant-event region of the dashboard. A nil
// Event with no Error is the explicit empty state.
type HighlightPanel struct {
	Event     *HighlightView `json:"event,omitempty"`
	Error     string         `json:"error,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Empty reports whether no significant event was found.
func (p HighlightPanel) Empty() bool {
	return p.Event == nil && p.Error == ""
}

// EvaluateHighlight finds the most recent significant event, widening the
// lookback once when the primary window is empty. It marks the event as seen
// and pins a temporary marker on the map; it never notifies.
func (s *Session) EvaluateHighlight(ctx context.Context) error {
	now := s.clock.Now()

	event, days, found, err := s.findHighlight(ctx, now)
	if err != nil {
		s.mu.Lock()
		s.highlight = HighlightPanel{Error: "Unable to load significant earthquakes.", UpdatedAt: now}
		s.mu.Unlock()
		return err
	}

	if !found {
		s.mapView.ClearTemporary()
		s.mu.Lock()
		s.highlight = HighlightPanel{UpdatedAt: now}
		s.highlighted = nil
		s.mu.Unlock()
		return nil
	}

	s.seen.Add(event.ID)

	view := &HighlightView{
		ID:             event.ID,
		Magnitude:      domain.MagnitudeLabel(event.Magnitude),
		Place:          event.Place,
		Time:           event.Time,
		TimeLabel:      event.Time.In(s.loc).Format(TimeLayout),
		URL:            event.URL,
		WindowDays:     days,
		HasCoordinates: event.Coordinates != nil,
	}
	if event.Coordinates != nil {
		depth := event.Coordinates.DepthKm
		view.DepthKm = &depth

		marker := eventMarker(event)
		marker.Dashed = true
		marker.Popup = "Significant: " + marker.Popup
		s.mapView.ShowTemporary(marker, HighlightMarkerTTL)
	}

	s.mu.Lock()
	s.highlight = HighlightPanel{Event: view, UpdatedAt: now}
	s.highlighted = &event
	s.mu.Unlock()
	return nil
}

func (s *Session) findHighlight(ctx context.Context, now time.Time) (domain.SeismicEvent, int, bool, error) {
	windows := []struct{ days, limit int }{
		{highlightPrimaryDays, highlightPrimaryLimit},
		{highlightWideDays, highlightWideLimit},
	}
	region := s.region
	for _, w := range windows {
		events, err := s.feed.Fetch(ctx, domain.FeedQuery{
			StartTime:    domain.Since(now, time.Duration(w.days)*24*time.Hour),
			OrderBy:      domain.OrderByTime,
			Limit:        w.limit,
			MinMagnitude: domain.Float(HighlightMinMagnitude),
			Box:          &region,
		})
		if err != nil {
			return domain.SeismicEvent{}, 0, false, fmt.Errorf("fetch highlight (%dd): %w", w.days, err)
		}
		if e, ok := domain.SelectHighlight(events); ok {
			return e, w.days, true, nil
		}
	}
	return domain.SeismicEvent{}, 0, false, nil
}

// FocusHighlight centers the map on the highlighted event.
func (s *Session) FocusHighlight() error {
	s.mu.Lock()
	h := s.highlighted
	s.mu.Unlock()

	if h == nil || h.Coordinates == nil {
		return fmt.Errorf("focus highlight: %w", ErrNotFound)
	}
	s.mapView.CenterOn(h.Coordinates.Lat, h.Coordinates.Lon, FocusZoom)
	return nil
}
