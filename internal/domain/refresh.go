package domain

import (
	"math"
	"strconv"
	"strings"
)

const (
	// DefaultRefreshInterval is used when no valid interval is supplied.
	DefaultRefreshInterval = 30
	// MinRefreshInterval is the smallest accepted interval in seconds.
	MinRefreshInterval = 5
	// MaxRefreshInterval caps the interval at one day.
	MaxRefreshInterval = 86400
)

// RefreshConfig controls the auto-refresh scheduler.
type RefreshConfig struct {
	Interval int  `json:"interval_seconds"`
	Enabled  bool `json:"enabled"`
}

// DefaultRefreshConfig returns auto-refresh enabled at the default interval.
func DefaultRefreshConfig() RefreshConfig {
	return RefreshConfig{Interval: DefaultRefreshInterval, Enabled: true}
}

// ParseInterval converts user input to an interval in whole seconds. Input that
// is not numeric or is below MinRefreshInterval yields DefaultRefreshInterval.
// Fractional input is truncated.
func ParseInterval(raw string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || v < MinRefreshInterval {
		return DefaultRefreshInterval
	}
	if v > MaxRefreshInterval {
		return MaxRefreshInterval
	}
	return int(v)
}

// NormalizeInterval applies the same floor as ParseInterval to a numeric value.
func NormalizeInterval(seconds int) int {
	switch {
	case seconds < MinRefreshInterval:
		return DefaultRefreshInterval
	case seconds > MaxRefreshInterval:
		return MaxRefreshInterval
	default:
		return seconds
	}
}
