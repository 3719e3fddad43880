package dashboard

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

// Notification display durations.
const (
	DefaultNotifyDuration = 5 * time.Second
	MajorNotifyDuration   = 8 * time.Second
)

type sink struct {
	name      string
	publisher domain.NotificationPublisher
}

// Notifier keeps the set of active notifications and forwards each new one
// to the subscribed publishers.
type Notifier struct {
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger

	mu     sync.Mutex
	active []domain.Notification // insertion order
	sinks  []sink
}

// NewNotifier creates a Notifier that expires notifications on clock.
func NewNotifier(clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Notifier {
	return &Notifier{
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// Subscribe registers a publisher under name. Names label delivery failures.
func (n *Notifier) Subscribe(name string, p domain.NotificationPublisher) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, sink{name: name, publisher: p})
}

// Notify raises a notification that stays active for d, then publishes it.
// Publisher failures are logged and counted, never returned.
func (n *Notifier) Notify(ctx context.Context, note domain.Notification, d time.Duration) domain.Notification {
	if d <= 0 {
		d = DefaultNotifyDuration
	}
	now := n.clock.Now()
	note.ID = uuid.NewString()
	note.CreatedAt = now
	note.ExpiresAt = now.Add(d)

	n.mu.Lock()
	n.active = append(n.active, note)
	sinks := append([]sink(nil), n.sinks...)
	n.mu.Unlock()

	id := note.ID
	n.clock.AfterFunc(d, func() {
		n.remove(id)
	})

	n.metrics.Notifications.WithLabelValues(note.Source).Inc()
	n.logger.Info("notification raised", "source", note.Source, "event_id", note.EventID, "title", note.Title)

	for _, s := range sinks {
		if err := s.publisher.Publish(ctx, note); err != nil {
			n.metrics.NotificationsDropped.WithLabelValues(s.name).Inc()
			n.logger.Error("notification publish failed", "sink", s.name, "id", note.ID, "error", err)
		}
	}
	return note
}

// Active returns the unexpired notifications, oldest first.
func (n *Notifier) Active() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.active...)
}

func (n *Notifier) remove(id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.active = slices.DeleteFunc(n.active, func(note domain.Notification) bool {
		return note.ID == id
	})
}
