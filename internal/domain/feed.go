package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrFeedUnavailable is returned when the feed cannot be reached or answers
	// with a non-success status.
	ErrFeedUnavailable = errors.New("seismic feed unavailable")

	// ErrFeedMalformed is returned when the feed body cannot be decoded.
	ErrFeedMalformed = errors.New("seismic feed response malformed")
)

// Sort orders accepted by the feed.
const (
	OrderByTime      = "time"
	OrderByMagnitude = "magnitude"
)

// FeedQuery describes one request to the seismic feed. Nil and zero fields are
// left out of the request.
type FeedQuery struct {
	StartTime    *time.Time
	EndTime      *time.Time
	OrderBy      string
	Limit        int
	MinMagnitude *float64
	Box          *BoundingBox
}

// Feed fetches seismic events matching a query.
type Feed interface {
	Fetch(ctx context.Context, q FeedQuery) ([]SeismicEvent, error)
}

// Since returns a pointer to now minus d, for use as a query start time.
func Since(now time.Time, d time.Duration) *time.Time {
	t := now.Add(-d)
	return &t
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}
