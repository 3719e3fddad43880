package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

func TestEvaluateHighlight_EmptyInBothWindows(t *testing.T) {
	feed := &fakeFeed{}
	s, _ := newTestSession(feed)

	require.NoError(t, s.EvaluateHighlight(context.Background()))

	snap := s.Snapshot()
	assert.True(t, snap.Highlight.Empty())
	assert.Nil(t, snap.Map.Temporary)

	primary := feed.queriesWithLimit(highlightPrimaryLimit)
	wide := feed.queriesWithLimit(highlightWideLimit)
	require.Len(t, primary, 1)
	require.Len(t, wide, 1)
	assert.Equal(t, testNow.Add(-7*24*time.Hour), *primary[0].StartTime)
	assert.Equal(t, testNow.Add(-30*24*time.Hour), *wide[0].StartTime)
	assert.Equal(t, 5.0, *primary[0].MinMagnitude)
	assert.Equal(t, domain.OrderByTime, wide[0].OrderBy)

	assert.ErrorIs(t, s.FocusHighlight(), ErrNotFound)
}

func TestEvaluateHighlight_PrimaryWindowSkipsFallback(t *testing.T) {
	feed := &fakeFeed{highlight: map[int][]domain.SeismicEvent{
		highlightPrimaryLimit: {
			quake("newest", domain.Float(5.1), 2*time.Hour, at(34, -117, 11)),
			quake("older", domain.Float(6.8), 30*time.Hour, at(38, -122, 9)),
		},
	}}
	s, _ := newTestSession(feed)

	require.NoError(t, s.EvaluateHighlight(context.Background()))

	h := s.Snapshot().Highlight
	require.NotNil(t, h.Event)
	assert.Equal(t, "newest", h.Event.ID)
	assert.Equal(t, "M5.1", h.Event.Magnitude)
	assert.Equal(t, 7, h.Event.WindowDays)
	require.NotNil(t, h.Event.DepthKm)
	assert.Equal(t, 11.0, *h.Event.DepthKm)
	assert.Empty(t, feed.queriesWithLimit(highlightWideLimit))
}

func TestEvaluateHighlight_FallbackWindow(t *testing.T) {
	feed := &fakeFeed{highlight: map[int][]domain.SeismicEvent{
		highlightWideLimit: {quake("wide", domain.Float(5.4), 20*24*time.Hour, nil)},
	}}
	s, _ := newTestSession(feed)

	require.NoError(t, s.EvaluateHighlight(context.Background()))

	h := s.Snapshot().Highlight
	require.NotNil(t, h.Event)
	assert.Equal(t, 30, h.Event.WindowDays)
	assert.False(t, h.Event.HasCoordinates)
	assert.Nil(t, s.Snapshot().Map.Temporary, "no marker without coordinates")
}

func TestEvaluateHighlight_TemporaryMarkerExpires(t *testing.T) {
	feed := &fakeFeed{highlight: map[int][]domain.SeismicEvent{
		highlightPrimaryLimit: {quake("big", domain.Float(6.0), time.Hour, at(36, -120, 10))},
	}}
	s, clock := newTestSession(feed)

	require.NoError(t, s.EvaluateHighlight(context.Background()))

	temp := s.Snapshot().Map.Temporary
	require.NotNil(t, temp)
	assert.True(t, temp.Dashed)
	assert.Equal(t, domain.ColorDarkRed, temp.Color)

	clock.Advance(HighlightMarkerTTL - time.Second)
	assert.NotNil(t, s.Snapshot().Map.Temporary)

	clock.Advance(time.Second)
	assert.Eventually(t, func() bool {
		return s.Snapshot().Map.Temporary == nil
	}, time.Second, 5*time.Millisecond)
}

func TestEvaluateHighlight_MarksSeenWithoutNotifying(t *testing.T) {
	big := quake("big", domain.Float(6.0), time.Minute, at(36, -120, 10))
	feed := &fakeFeed{
		highlight: map[int][]domain.SeismicEvent{highlightPrimaryLimit: {big}},
		events:    []domain.SeismicEvent{big},
	}
	s, _ := newTestSession(feed)

	require.NoError(t, s.EvaluateHighlight(context.Background()))
	assert.Empty(t, s.notifier.Active())

	require.NoError(t, s.RenderEvents(context.Background()))
	assert.Empty(t, s.notifier.Active(), "highlighted id must not notify later")
}

func TestEvaluateHighlight_Error(t *testing.T) {
	feed := &fakeFeed{hlErr: domain.ErrFeedMalformed}
	s, _ := newTestSession(feed)

	err := s.EvaluateHighlight(context.Background())
	require.ErrorIs(t, err, domain.ErrFeedMalformed)

	h := s.Snapshot().Highlight
	assert.NotEmpty(t, h.Error)
	assert.False(t, h.Empty())
}

func TestFocusHighlight(t *testing.T) {
	feed := &fakeFeed{highlight: map[int][]domain.SeismicEvent{
		highlightPrimaryLimit: {quake("big", domain.Float(6.0), time.Hour, at(36.5, -120.5, 10))},
	}}
	s, _ := newTestSession(feed)
	require.NoError(t, s.EvaluateHighlight(context.Background()))

	require.NoError(t, s.FocusHighlight())
	st := s.Snapshot().Map
	assert.Equal(t, 36.5, st.CenterLat)
	assert.Equal(t, -120.5, st.CenterLon)
	assert.Equal(t, FocusZoom, st.Zoom)
}
