package dashboard

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

const (
	statsWindow = 7 * 24 * time.Hour
	statsLimit  = 2000
	dayWindow   = 24 * time.Hour
)

// Placeholder stands in for a statistic that could not be computed.
const Placeholder = "—"

// StatsPanel holds the summary counters as display strings.
type StatsPanel struct {
	Count24h     string    `json:"count_24h"`
	Count7d      string    `json:"count_7d"`
	Largest24h   string    `json:"largest_24h"`
	LargestPlace string    `json:"largest_place,omitempty"`
	LargestID    string    `json:"largest_id,omitempty"`
	Error        string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func placeholderStats(now time.Time) StatsPanel {
	return StatsPanel{
		Count24h:   Placeholder,
		Count7d:    Placeholder,
		Largest24h: Placeholder,
		UpdatedAt:  now,
	}
}

// ComputeStats derives the summary counters and daily buckets from a
// seven-day batch. The returned event is the largest of the last 24 hours.
func ComputeStats(events []domain.SeismicEvent, now time.Time, loc *time.Location) (StatsPanel, []domain.DailyBucket, *domain.SeismicEvent) {
	day := domain.Within(events, now, dayWindow)
	panel := StatsPanel{
		Count24h:   strconv.Itoa(len(day)),
		Count7d:    strconv.Itoa(len(events)),
		Largest24h: Placeholder,
		UpdatedAt:  now,
	}

	var largest *domain.SeismicEvent
	if e, ok := domain.Largest(day); ok {
		largest = &e
		panel.Largest24h = domain.MagnitudeLabel(e.Magnitude)
		panel.LargestPlace = e.Place
		panel.LargestID = e.ID
	}
	return panel, domain.BuildDailyBuckets(events, now, loc), largest
}

// RefreshStats fetches the trailing week, updates the counters and the chart,
// and notifies once for a major event in the last 24 hours.
func (s *Session) RefreshStats(ctx context.Context) error {
	now := s.clock.Now()
	region := s.region
	events, err := s.feed.Fetch(ctx, domain.FeedQuery{
		StartTime: domain.Since(now, statsWindow),
		Limit:     statsLimit,
		Box:       &region,
	})
	if err != nil {
		panel := placeholderStats(now)
		panel.Error = "Unable to load statistics."
		s.mu.Lock()
		s.stats = panel
		s.mu.Unlock()
		return fmt.Errorf("fetch stats: %w", err)
	}

	panel, buckets, largest := ComputeStats(events, now, s.loc)
	s.chart.Update(buckets)

	s.mu.Lock()
	s.stats = panel
	s.mu.Unlock()

	if largest != nil && largest.Mag() >= HighlightMinMagnitude && s.seen.Add(largest.ID) {
		s.notifier.Notify(ctx, domain.Notification{
			Source:  "stats",
			EventID: largest.ID,
			Title:   "Major earthquake " + domain.MagnitudeLabel(largest.Magnitude),
			Body:    largest.Place,
			Level:   domain.LevelCritical,
		}, MajorNotifyDuration)
	}
	return nil
}
