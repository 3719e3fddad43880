package usgs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

const userAgent = "quake-dashboard/1.0 (+https://earthquake.usgs.gov)"

// maxErrorBody bounds how much of a failed response is quoted in the error.
const maxErrorBody = 512

// errAbandoned marks a request cut short by the caller's context rather than
// by the service.
var errAbandoned = errors.New("request abandoned by caller")

// Client implements domain.Feed against the USGS FDSN event service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a USGS feed client. requestsPerSecond bounds outbound
// traffic; zero or less disables the limit.
func NewClient(baseURL string, timeout time.Duration, requestsPerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: baseURL,
		limiter: newLimiter(requestsPerSecond),
		breaker: newBreaker(logger),
		metrics: metrics,
		logger:  logger,
	}
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(rps), 3)
}

func newBreaker(logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "usgs-feed",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A body that fails to decode still means the service answered, and a
		// caller giving up says nothing about the service either way.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrFeedMalformed) || errors.Is(err, errAbandoned)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// Fetch requests the events matching q. An empty collection is not an error.
func (c *Client) Fetch(ctx context.Context, q domain.FeedQuery) ([]domain.SeismicEvent, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.FeedRequests.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("%w: rate limit: %w", domain.ErrFeedUnavailable, err)
	}

	start := time.Now()
	result, err := c.breaker.Execute(func() (any, error) {
		events, err := c.doRequest(ctx, BuildURL(c.baseURL, q))
		if err != nil && ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", errAbandoned, err)
		}
		return events, err
	})
	c.metrics.FeedDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		switch {
		case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
			c.metrics.FeedRequests.WithLabelValues("rejected").Inc()
			return nil, fmt.Errorf("%w: %w", domain.ErrFeedUnavailable, err)
		case errors.Is(err, errAbandoned):
			c.metrics.FeedRequests.WithLabelValues("canceled").Inc()
		case errors.Is(err, domain.ErrFeedMalformed):
			c.metrics.FeedRequests.WithLabelValues("malformed").Inc()
		default:
			c.metrics.FeedRequests.WithLabelValues("unavailable").Inc()
		}
		return nil, err
	}

	c.metrics.FeedRequests.WithLabelValues("success").Inc()
	return result.([]domain.SeismicEvent), nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.SeismicEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrFeedUnavailable, resp.StatusCode, body)
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrFeedMalformed, err)
	}

	c.logger.Debug("feed response decoded", "features", len(fc.Features))
	return fc.events(), nil
}

// USGS GeoJSON response types.

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	ID         string     `json:"id"`
	Properties properties `json:"properties"`
	Geometry   *geometry  `json:"geometry"`
}

type properties struct {
	Mag   *float64 `json:"mag"`
	Place string   `json:"place"`
	Time  int64    `json:"time"` // epoch milliseconds
	URL   string   `json:"url"`
}

type geometry struct {
	Coordinates []float64 `json:"coordinates"` // [lon, lat, depth]
}

func (fc featureCollection) events() []domain.SeismicEvent {
	events := make([]domain.SeismicEvent, 0, len(fc.Features))
	for _, f := range fc.Features {
		events = append(events, f.toEvent())
	}
	return events
}

func (f feature) toEvent() domain.SeismicEvent {
	e := domain.SeismicEvent{
		ID:        f.ID,
		Magnitude: f.Properties.Mag,
		Place:     f.Properties.Place,
		Time:      time.UnixMilli(f.Properties.Time).UTC(),
		URL:       f.Properties.URL,
	}
	if f.Geometry != nil && len(f.Geometry.Coordinates) >= 2 {
		c := &domain.Coordinates{
			Lon: f.Geometry.Coordinates[0],
			Lat: f.Geometry.Coordinates[1],
		}
		if len(f.Geometry.Coordinates) >= 3 {
			c.DepthKm = f.Geometry.Coordinates[2]
		}
		e.Coordinates = c
	}
	return e
}
