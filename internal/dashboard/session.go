package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

var (
	// ErrNotFound is returned when a focus target is unknown or has no
	// coordinates.
	ErrNotFound = errors.New("event not found")

	// ErrInvalidRange is returned for a days-back value outside AllowedDaysBack.
	ErrInvalidRange = errors.New("unsupported time range")
)

// AllowedDaysBack are the choices of the time-range selector.
var AllowedDaysBack = []int{1, 7, 30}

// DefaultDaysBack is the initial time-range selection.
const DefaultDaysBack = 1

// Options configure a Session. Zero values fall back to defaults.
type Options struct {
	Feed           domain.Feed
	Clock          clockwork.Clock
	Region         domain.BoundingBox
	Location       *time.Location
	MinMagnitude   float64
	EventLimit     int
	DaysBack       int
	NotifyDuration time.Duration
	Metrics        *observability.Metrics
	Logger         *slog.Logger
}

// Session owns all dashboard state for one viewer: the seen set, the map
// layer, the chart, active notifications and the three panels.
type Session struct {
	feed           domain.Feed
	clock          clockwork.Clock
	region         domain.BoundingBox
	loc            *time.Location
	minMagnitude   float64
	eventLimit     int
	notifyDuration time.Duration
	metrics        *observability.Metrics
	logger         *slog.Logger

	seen     *domain.SeenSet
	mapView  *MapView
	chart    *Chart
	notifier *Notifier

	mu          sync.Mutex
	daysBack    int
	events      EventsPanel
	highlight   HighlightPanel
	stats       StatsPanel
	listed      []domain.SeismicEvent
	highlighted *domain.SeismicEvent
}

// NewSession creates a Session. Feed is required.
func NewSession(opts Options) *Session {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Region == (domain.BoundingBox{}) {
		opts.Region = domain.DefaultRegion
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.EventLimit <= 0 {
		opts.EventLimit = DefaultEventLimit
	}
	if !slices.Contains(AllowedDaysBack, opts.DaysBack) {
		opts.DaysBack = DefaultDaysBack
	}
	if opts.NotifyDuration <= 0 {
		opts.NotifyDuration = DefaultNotifyDuration
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NewMetricsForTesting()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Session{
		feed:           opts.Feed,
		clock:          opts.Clock,
		region:         opts.Region,
		loc:            opts.Location,
		minMagnitude:   opts.MinMagnitude,
		eventLimit:     opts.EventLimit,
		notifyDuration: opts.NotifyDuration,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		seen:           domain.NewSeenSet(),
		mapView:        NewMapView(opts.Clock, opts.Region),
		chart:          &Chart{},
		notifier:       NewNotifier(opts.Clock, opts.Metrics, opts.Logger),
		daysBack:       opts.DaysBack,
		stats:          placeholderStats(time.Time{}),
	}
}

// Notifier returns the session's notifier so sinks can subscribe.
func (s *Session) Notifier() *Notifier { return s.notifier }

// Cycle runs the event list, highlight and statistics operations
// concurrently and waits for all three. Each operation records its own
// failure in its panel; Cycle itself never fails.
func (s *Session) Cycle(ctx context.Context) {
	ops := []struct {
		name string
		run  func(context.Context) error
	}{
		{"events", s.RenderEvents},
		{"highlight", s.EvaluateHighlight},
		{"stats", s.RefreshStats},
	}

	var wg sync.WaitGroup
	for _, op := range ops {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := op.run(ctx); err != nil {
				s.metrics.OperationErrors.WithLabelValues(op.name).Inc()
				s.logger.Error("dashboard operation failed", "operation", op.name, "error", err)
			}
		}()
	}
	wg.Wait()
}

// DaysBack returns the current time-range selection.
func (s *Session) DaysBack() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.daysBack
}

// SetDaysBack changes the time-range selection. It takes effect on the next
// event list render.
func (s *Session) SetDaysBack(days int) error {
	if !slices.Contains(AllowedDaysBack, days) {
		return fmt.Errorf("%w: %d days", ErrInvalidRange, days)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.daysBack = days
	return nil
}

// Snapshot is a JSON-serialisable copy of the whole dashboard.
type Snapshot struct {
	Region        domain.BoundingBox    `json:"region"`
	DaysBack      int                   `json:"days_back"`
	Events        EventsPanel           `json:"events"`
	Highlight     HighlightPanel        `json:"highlight"`
	Stats         StatsPanel            `json:"stats"`
	Map           MapState              `json:"map"`
	Chart         ChartState            `json:"chart"`
	Notifications []domain.Notification `json:"notifications"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// Snapshot copies the current dashboard state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		Region:    s.region,
		DaysBack:  s.daysBack,
		Events:    s.events,
		Highlight: s.highlight,
		Stats:     s.stats,
	}
	snap.Events.Items = append([]ListItem(nil), s.events.Items...)
	if s.highlight.Event != nil {
		h := *s.highlight.Event
		snap.Highlight.Event = &h
	}
	s.mu.Unlock()

	snap.Map = s.mapView.State()
	snap.Chart = s.chart.State()
	snap.Notifications = s.notifier.Active()
	snap.GeneratedAt = s.clock.Now()
	return snap
}
