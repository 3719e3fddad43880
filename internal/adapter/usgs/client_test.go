package usgs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
)

const (
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

const sampleCollection = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "ci40861920",
      "properties": {"mag": 6.2, "place": "10 km NE of Ridgecrest, CA", "time": 1714150800000, "url": "https://earthquake.usgs.gov/earthquakes/eventpage/ci40861920"},
      "geometry": {"type": "Point", "coordinates": [-117.6, 35.7, 8.4]}
    },
    {
      "type": "Feature",
      "id": "nc75000001",
      "properties": {"mag": null, "place": "Geysers, CA", "time": 1714147200000, "url": "https://earthquake.usgs.gov/earthquakes/eventpage/nc75000001"},
      "geometry": null
    },
    {
      "type": "Feature",
      "id": "nn00870000",
      "properties": {"mag": 3.1, "place": "Nevada", "time": 1714143600000, "url": ""},
      "geometry": {"type": "Point", "coordinates": [-118.1]}
    }
  ]
}`

func testClient(baseURL string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(baseURL, 5*time.Second, 0, observability.NewMetricsForTesting(), logger)
}

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(headerContentType, contentTypeJSON)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "geojson", r.URL.Query().Get("format"))
		assert.Equal(t, "time", r.URL.Query().Get("orderby"))
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "quake-dashboard/"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, sampleCollection)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	events, err := c.Fetch(context.Background(), domain.FeedQuery{OrderBy: domain.OrderByTime, Limit: 500})
	require.NoError(t, err)
	require.Len(t, events, 3)

	first := events[0]
	assert.Equal(t, "ci40861920", first.ID)
	require.NotNil(t, first.Magnitude)
	assert.InDelta(t, 6.2, *first.Magnitude, 1e-9)
	assert.Equal(t, "10 km NE of Ridgecrest, CA", first.Place)
	assert.Equal(t, time.Date(2024, 4, 26, 17, 0, 0, 0, time.UTC), first.Time)
	require.NotNil(t, first.Coordinates)
	assert.Equal(t, domain.Coordinates{Lon: -117.6, Lat: 35.7, DepthKm: 8.4}, *first.Coordinates)

	assert.Nil(t, events[1].Magnitude)
	assert.Nil(t, events[1].Coordinates)

	assert.Nil(t, events[2].Coordinates, "short coordinate arrays are dropped")

	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.FeedRequests.WithLabelValues("success")), 0)
}

func TestClient_Fetch_EmptyCollection(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"type":"FeatureCollection","features":[]}`)

	events, err := testClient(srv.URL).Fetch(context.Background(), domain.FeedQuery{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestClient_Fetch_NonSuccessStatus(t *testing.T) {
	srv := jsonServer(t, http.StatusServiceUnavailable, `upstream overloaded`)

	c := testClient(srv.URL)
	_, err := c.Fetch(context.Background(), domain.FeedQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
	assert.Contains(t, err.Error(), "status 503")
	assert.Contains(t, err.Error(), "upstream overloaded")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.FeedRequests.WithLabelValues("unavailable")), 0)
}

func TestClient_Fetch_Malformed(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"features": [ {"id": `)

	c := testClient(srv.URL)
	_, err := c.Fetch(context.Background(), domain.FeedQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeedMalformed)
	assert.False(t, errors.Is(err, domain.ErrFeedUnavailable))
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.FeedRequests.WithLabelValues("malformed")), 0)
}

func TestClient_Fetch_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := testClient(srv.URL).Fetch(context.Background(), domain.FeedQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
}

func TestClient_Fetch_CircuitOpens(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	for range 5 {
		_, err := c.Fetch(context.Background(), domain.FeedQuery{})
		require.ErrorIs(t, err, domain.ErrFeedUnavailable)
	}

	_, err := c.Fetch(context.Background(), domain.FeedQuery{})
	require.ErrorIs(t, err, domain.ErrFeedUnavailable)
	assert.Equal(t, int32(5), hits.Load(), "open breaker must not reach the server")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.FeedRequests.WithLabelValues("rejected")), 0)
}

func TestClient_Fetch_CanceledContext(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, sampleCollection)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL).Fetch(ctx, domain.FeedQuery{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrFeedUnavailable)
}

func TestClient_Fetch_CallerCancelDoesNotTripBreaker(t *testing.T) {
	var stall atomic.Bool
	stall.Store(true)
	arrived := make(chan struct{}, 1)
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if stall.Load() {
			arrived <- struct{}{}
			select {
			case <-r.Context().Done():
			case <-release:
			}
			return
		}
		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, sampleCollection)
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := testClient(srv.URL)
	for range 6 {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			<-arrived
			cancel()
		}()
		_, err := c.Fetch(ctx, domain.FeedQuery{})
		require.Error(t, err)
		cancel()
	}

	stall.Store(false)
	events, err := c.Fetch(context.Background(), domain.FeedQuery{})
	require.NoError(t, err, "abandoned requests must not open the breaker")
	assert.Len(t, events, 3)
	assert.InDelta(t, 6, testutil.ToFloat64(c.metrics.FeedRequests.WithLabelValues("canceled")), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(c.metrics.FeedRequests.WithLabelValues("unavailable")), 0)
}
