package domain

import "fmt"

// Severity tiers used to style list entries.
const (
	TierHigh = "high"
	TierMid  = "mid"
	TierLow  = "low"
)

// Marker colors, darkest first.
const (
	ColorDarkRed = "#7f1d1d"
	ColorRed     = "#dc2626"
	ColorOrange  = "#f97316"
	ColorTeal    = "#14b8a6"
)

// Tier maps a magnitude to a list severity tier:
//   - >= 5: high
//   - >= 4: mid
//   - otherwise (including unknown): low
func Tier(mag *float64) string {
	if mag == nil {
		return TierLow
	}
	switch m := *mag; {
	case m >= 5:
		return TierHigh
	case m >= 4:
		return TierMid
	default:
		return TierLow
	}
}

// MarkerColor maps a magnitude to the map marker color scale.
func MarkerColor(mag *float64) string {
	if mag == nil {
		return ColorTeal
	}
	switch m := *mag; {
	case m >= 6:
		return ColorDarkRed
	case m >= 5:
		return ColorRed
	case m >= 4:
		return ColorOrange
	default:
		return ColorTeal
	}
}

// MagnitudeLabel formats a magnitude as "M6.2", or "M?" when unknown.
func MagnitudeLabel(mag *float64) string {
	if mag == nil {
		return "M?"
	}
	return fmt.Sprintf("M%.1f", *mag)
}
