package domain

import (
	"context"
	"time"
)

// Notification levels, from least to most urgent.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Notification is a transient, self-expiring message raised when a new event
// is surfaced.
type Notification struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"` // operation that raised it, e.g. "events"
	EventID   string    `json:"event_id,omitempty"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Level     string    `json:"level"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// NotificationPublisher delivers notifications to an outside sink.
type NotificationPublisher interface {
	Publish(ctx context.Context, n Notification) error
}

// LevelFor maps a magnitude to a notification level using the list tiers.
func LevelFor(mag *float64) string {
	switch Tier(mag) {
	case TierHigh:
		return LevelCritical
	case TierMid:
		return LevelWarning
	default:
		return LevelInfo
	}
}
