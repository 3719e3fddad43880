package dashboard

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

var testNow = time.Date(2024, 4, 26, 17, 0, 0, 0, time.UTC)

// fakeFeed answers each operation's query by its result cap.
type fakeFeed struct {
	mu        sync.Mutex
	events    []domain.SeismicEvent
	eventsErr error
	highlight map[int][]domain.SeismicEvent // keyed by limit: 50 or 200
	hlErr     error
	stats     []domain.SeismicEvent
	statsErr  error
	queries   []domain.FeedQuery
}

func (f *fakeFeed) Fetch(_ context.Context, q domain.FeedQuery) ([]domain.SeismicEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	switch q.Limit {
	case highlightPrimaryLimit, highlightWideLimit:
		return f.highlight[q.Limit], f.hlErr
	case statsLimit:
		return f.stats, f.statsErr
	default:
		return f.events, f.eventsErr
	}
}

func (f *fakeFeed) set(fn func(f *fakeFeed)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeFeed) queriesWithLimit(limit int) []domain.FeedQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FeedQuery
	for _, q := range f.queries {
		if q.Limit == limit {
			out = append(out, q)
		}
	}
	return out
}

type recordingPublisher struct {
	mu    sync.Mutex
	notes []domain.Notification
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, n domain.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notes = append(p.notes, n)
	return p.err
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.notes)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(feed domain.Feed) (*Session, *clockwork.FakeClock) {
	clock := clockwork.NewFakeClockAt(testNow)
	s := NewSession(Options{
		Feed:    feed,
		Clock:   clock,
		Metrics: observability.NewMetricsForTesting(),
		Logger:  discardLogger(),
	})
	return s, clock
}

func quake(id string, mag *float64, ago time.Duration, coords *domain.Coordinates) domain.SeismicEvent {
	return domain.SeismicEvent{
		ID:          id,
		Magnitude:   mag,
		Place:       "near " + id,
		Time:        testNow.Add(-ago),
		Coordinates: coords,
		URL:         "https://earthquake.usgs.gov/earthquakes/eventpage/" + id,
	}
}

func at(lat, lon, depth float64) *domain.Coordinates {
	return &domain.Coordinates{Lat: lat, Lon: lon, DepthKm: depth}
}
