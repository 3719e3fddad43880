package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quake_dashboard"

// Metrics holds the Prometheus counters, histograms, and gauges for the dashboard.
type Metrics struct {
	// Refresh cycle metrics.
	CyclesTotal        *prometheus.CounterVec // labels: trigger={startup,timer,manual}
	CycleDuration      prometheus.Histogram
	OperationErrors    *prometheus.CounterVec // labels: operation={events,highlight,stats}
	AutoRefreshEnabled prometheus.Gauge
	RefreshInterval    prometheus.Gauge

	// Render metrics.
	EventsListed    prometheus.Gauge
	MarkersRendered prometheus.Gauge

	// Notification metrics.
	Notifications        *prometheus.CounterVec // labels: source={events,stats}
	NotificationsDropped *prometheus.CounterVec // labels: sink
	WebSocketClients     prometheus.Gauge

	// Feed metrics.
	FeedRequests *prometheus.CounterVec // labels: outcome={success,unavailable,malformed,rejected,canceled}
	FeedDuration prometheus.Histogram
}

// NewMetrics creates and registers all dashboard metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.CyclesTotal,
		m.CycleDuration,
		m.OperationErrors,
		m.AutoRefreshEnabled,
		m.RefreshInterval,
		m.EventsListed,
		m.MarkersRendered,
		m.Notifications,
		m.NotificationsDropped,
		m.WebSocketClients,
		m.FeedRequests,
		m.FeedDuration,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Refresh cycles started, by trigger.",
		}, []string{"trigger"}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_cycle_duration_seconds",
			Help:      "Duration of a complete fetch-and-render cycle.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Failed fetch/render operations, by operation.",
		}, []string{"operation"}),
		AutoRefreshEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "auto_refresh_enabled",
			Help:      "1 when auto-refresh is armed, 0 when paused.",
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_interval_seconds",
			Help:      "Effective auto-refresh interval.",
		}),
		EventsListed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "events_listed",
			Help:      "Events in the most recent list render.",
		}),
		MarkersRendered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "map_markers",
			Help:      "Markers on the map event layer after the most recent render.",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifications emitted, by source.",
		}, []string{"source"}),
		NotificationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Notifications a sink failed to deliver, by sink.",
		}, []string{"sink"}),
		WebSocketClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_clients",
			Help:      "Connected WebSocket clients.",
		}),
		FeedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_requests_total",
			Help:      "Seismic feed requests, by outcome.",
		}, []string{"outcome"}),
		FeedDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_request_duration_seconds",
			Help:      "Seismic feed request duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
