package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/quake-dashboard/internal/adapter/http"
	"github.com/couchcryptid/quake-dashboard/internal/dashboard"
	"github.com/couchcryptid/quake-dashboard/internal/domain"
	"github.com/couchcryptid/quake-dashboard/internal/observability"
	"github.com/couchcryptid/quake-dashboard/internal/refresh"
)

// --- fakes ---

type stubFeed struct {
	events []domain.SeismicEvent
}

func (f *stubFeed) Fetch(_ context.Context, q domain.FeedQuery) ([]domain.SeismicEvent, error) {
	if q.MinMagnitude != nil && *q.MinMagnitude >= 5 {
		return nil, nil
	}
	return f.events, nil
}

type fakeScheduler struct {
	mu        sync.Mutex
	readyErr  error
	status    refresh.Status
	refreshes int
	intervals []string
}

func (f *fakeScheduler) CheckReadiness(context.Context) error { return f.readyErr }

func (f *fakeScheduler) Status() refresh.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *fakeScheduler) RefreshNow(context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes++
}

func (f *fakeScheduler) SetEnabled(enabled bool) refresh.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status.Enabled = enabled
	return f.status
}

func (f *fakeScheduler) SetInterval(raw string) refresh.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.intervals = append(f.intervals, raw)
	f.status.IntervalSeconds = domain.ParseInterval(raw)
	return f.status
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	srv     *httpadapter.Server
	session *dashboard.Session
	sched   *fakeScheduler
	hub     *httpadapter.Hub
}

func newFixture(t *testing.T, readyErr error) *fixture {
	t.Helper()
	now := time.Date(2024, 4, 26, 17, 0, 0, 0, time.UTC)
	metrics := observability.NewMetricsForTesting()
	feed := &stubFeed{events: []domain.SeismicEvent{
		{
			ID:          "ci1",
			Magnitude:   domain.Float(4.2),
			Place:       "5 km W of Parkfield, CA",
			Time:        now.Add(-3 * time.Hour),
			Coordinates: &domain.Coordinates{Lon: -120.5, Lat: 35.9, DepthKm: 7},
			URL:         "https://earthquake.usgs.gov/earthquakes/eventpage/ci1",
		},
	}}
	session := dashboard.NewSession(dashboard.Options{
		Feed:    feed,
		Clock:   clockwork.NewFakeClockAt(now),
		Metrics: metrics,
		Logger:  discardLogger(),
	})
	session.Cycle(context.Background())

	sched := &fakeScheduler{
		readyErr: readyErr,
		status: refresh.Status{
			State:           refresh.StateScheduled,
			Enabled:         true,
			IntervalSeconds: 30,
			Countdown:       30,
			CountdownLabel:  "30s",
		},
	}
	hub := httpadapter.NewHub(metrics, discardLogger())
	return &fixture{
		srv:     httpadapter.NewServer(":0", session, sched, hub, discardLogger()),
		session: session,
		sched:   sched,
		hub:     hub,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, httptest.NewRequest(method, path, r))
	return rec
}

// --- health ---

func TestHealthzReturns200(t *testing.T) {
	rec := newFixture(t, nil).do(t, http.MethodGet, "/healthz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := newFixture(t, nil).do(t, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := newFixture(t, fmt.Errorf("not ready yet")).do(t, http.MethodGet, "/readyz", "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := newFixture(t, nil).do(t, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- dashboard API ---

func TestDashboardEndpoint(t *testing.T) {
	rec := newFixture(t, nil).do(t, http.MethodGet, "/api/dashboard", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var view httpadapter.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Len(t, view.Dashboard.Events.Items, 1)
	assert.Equal(t, "M4.2", view.Dashboard.Events.Items[0].Magnitude)
	assert.Equal(t, "1", view.Dashboard.Stats.Count24h)
	assert.Equal(t, refresh.StateScheduled, view.Refresh.State)
	assert.Equal(t, "30s", view.Refresh.CountdownLabel)
}

func TestRefreshEndpoint(t *testing.T) {
	f := newFixture(t, nil)
	rec := f.do(t, http.MethodPost, "/api/refresh", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, f.sched.refreshes)
}

func TestSetEnabledEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPut, "/api/refresh/enabled", `{"enabled": false}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.sched.Status().Enabled)

	rec = f.do(t, http.MethodPut, "/api/refresh/enabled", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/refresh/enabled", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetIntervalEndpoint(t *testing.T) {
	tests := []struct {
		body     string
		raw      string
		expected int
	}{
		{`{"interval": 10}`, "10", 10},
		{`{"interval": "15"}`, "15", 15},
		{`{"interval": "abc"}`, "abc", domain.DefaultRefreshInterval},
		{`{"interval": 2}`, "2", domain.DefaultRefreshInterval},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			f := newFixture(t, nil)
			rec := f.do(t, http.MethodPut, "/api/refresh/interval", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)

			assert.Equal(t, []string{tt.raw}, f.sched.intervals)

			var view httpadapter.View
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
			assert.Equal(t, tt.expected, view.Refresh.IntervalSeconds)
		})
	}
}

func TestSetRangeEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPut, "/api/range", `{"days_back": 7}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 7, f.session.DaysBack())

	rec = f.do(t, http.MethodPut, "/api/range", `{"days_back": 3}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 7, f.session.DaysBack())
}

func TestFocusEndpoint(t *testing.T) {
	f := newFixture(t, nil)

	rec := f.do(t, http.MethodPost, "/api/map/focus/ci1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var st dashboard.MapState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 35.9, st.CenterLat)
	assert.Equal(t, -120.5, st.CenterLon)
	assert.Equal(t, dashboard.FocusZoom, st.Zoom)

	rec = f.do(t, http.MethodPost, "/api/map/focus/unknown", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/map/focus-highlight", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "no highlight in the stub feed")
}

func TestDashboardPage(t *testing.T) {
	rec := newFixture(t, nil).do(t, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "5 km W of Parkfield, CA")
	assert.Contains(t, body, `class="tier-mid"`)
	assert.Contains(t, body, "No significant earthquakes")
}

func TestDashboardPage_RendersActiveNotifications(t *testing.T) {
	f := newFixture(t, nil)
	f.session.Notifier().Notify(context.Background(), domain.Notification{
		Source:  "events",
		EventID: "ci2",
		Title:   "Aftershock M3.9",
		Body:    "3 km S of Parkfield, CA",
		Level:   domain.LevelWarning,
	}, 5*time.Second)

	rec := f.do(t, http.MethodGet, "/", "")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"notifications":[{"id":`)
	assert.Contains(t, body, `"title":"Aftershock M3.9"`)
	assert.Contains(t, body, "state.dashboard.notifications", "page must toast notifications still active at load")
}

// --- websocket ---

func TestWebSocketReceivesNotificationsAndStatus(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.srv)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return f.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, f.hub.Publish(context.Background(), domain.Notification{ID: "n1", Title: "New earthquake M4.2"}))
	f.hub.BroadcastStatus(refresh.Status{State: refresh.StatePaused, CountdownLabel: "paused"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var first struct {
		Type string              `json:"type"`
		Data domain.Notification `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, httpadapter.MessageNotification, first.Type)
	assert.Equal(t, "n1", first.Data.ID)

	var second struct {
		Type string         `json:"type"`
		Data refresh.Status `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, httpadapter.MessageStatus, second.Type)
	assert.Equal(t, refresh.StatePaused, second.Data.State)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	f := newFixture(t, nil)
	ts := httptest.NewServer(f.srv)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return f.hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	f.hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	var closeErr *websocket.CloseError
	assert.True(t, errors.As(err, &closeErr))
	assert.Equal(t, 0, f.hub.Clients())
}
