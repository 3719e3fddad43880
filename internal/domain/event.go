package domain

import (
	"time"
)

// Coordinates holds a GeoJSON point: longitude, latitude and depth in km.
type Coordinates struct {
	Lon     float64 `json:"lon"`
	Lat     float64 `json:"lat"`
	DepthKm float64 `json:"depth_km"`
}

// SeismicEvent is a single earthquake record as received from the feed.
type SeismicEvent struct {
	ID          string       `json:"id"`
	Magnitude   *float64     `json:"magnitude"`
	Place       string       `json:"place"`
	Time        time.Time    `json:"time"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	URL         string       `json:"url"`
}

// HasMagnitude reports whether the feed supplied a magnitude for the event.
func (e SeismicEvent) HasMagnitude() bool {
	return e.Magnitude != nil
}

// Mag returns the magnitude, or 0 when it is unknown.
func (e SeismicEvent) Mag() float64 {
	if e.Magnitude == nil {
		return 0
	}
	return *e.Magnitude
}

// BoundingBox is the rectangular region of interest.
type BoundingBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// Center returns the midpoint of the box as (lat, lon).
func (b BoundingBox) Center() (float64, float64) {
	return (b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// DefaultRegion covers California and western Nevada.
var DefaultRegion = BoundingBox{
	MinLat: 32.0,
	MaxLat: 42.0,
	MinLon: -125.0,
	MaxLon: -114.0,
}

// DailyBucket is one bar of the trailing-week histogram.
type DailyBucket struct {
	Key   string `json:"key"`   // region-local ISO date, e.g. "2024-04-26"
	Label string `json:"label"` // short display label, e.g. "Apr 26"
	Count int    `json:"count"`
}
