package dashboard

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

// Map zoom levels.
const (
	RegionZoom = 6
	FocusZoom  = 9
)

// HighlightMarkerTTL is how long the dashed highlight marker stays on the map.
const HighlightMarkerTTL = 60 * time.Second

// Marker is one circle on the map.
type Marker struct {
	EventID string  `json:"event_id"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Color   string  `json:"color"`
	Radius  float64 `json:"radius"`
	Dashed  bool    `json:"dashed,omitempty"`
	Popup   string  `json:"popup"`
}

// MapState is a copy of the map layer for rendering.
type MapState struct {
	CenterLat float64  `json:"center_lat"`
	CenterLon float64  `json:"center_lon"`
	Zoom      int      `json:"zoom"`
	Markers   []Marker `json:"markers"`
	Temporary *Marker  `json:"temporary,omitempty"`
}

// MapView holds the map's event layer, the temporary highlight marker and
// the view position.
type MapView struct {
	clock clockwork.Clock

	mu        sync.Mutex
	markers   []Marker
	temp      *Marker
	tempTimer clockwork.Timer
	tempGen   uint64
	centerLat float64
	centerLon float64
	zoom      int
}

// NewMapView creates a map centered on region.
func NewMapView(clock clockwork.Clock, region domain.BoundingBox) *MapView {
	lat, lon := region.Center()
	return &MapView{
		clock:     clock,
		centerLat: lat,
		centerLon: lon,
		zoom:      RegionZoom,
	}
}

// ReplaceMarkers clears the event layer and rebuilds it from markers.
func (m *MapView) ReplaceMarkers(markers []Marker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers = append([]Marker(nil), markers...)
}

// ShowTemporary draws marker until ttl elapses. A later call replaces the
// previous temporary marker and its expiry.
func (m *MapView) ShowTemporary(marker Marker, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tempTimer != nil {
		m.tempTimer.Stop()
	}
	m.tempGen++
	gen := m.tempGen
	m.temp = &marker
	m.tempTimer = m.clock.AfterFunc(ttl, func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// A timer that lost the race with Stop must not clear a newer marker.
		if m.tempGen == gen {
			m.temp = nil
			m.tempTimer = nil
		}
	})
}

// ClearTemporary removes the temporary marker, if any.
func (m *MapView) ClearTemporary() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tempTimer != nil {
		m.tempTimer.Stop()
	}
	m.tempGen++
	m.temp = nil
	m.tempTimer = nil
}

// CenterOn moves the view.
func (m *MapView) CenterOn(lat, lon float64, zoom int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.centerLat, m.centerLon, m.zoom = lat, lon, zoom
}

// State returns a copy of the layer.
func (m *MapView) State() MapState {
	m.mu.Lock()
	defer m.mu.Unlock()
	st := MapState{
		CenterLat: m.centerLat,
		CenterLon: m.centerLon,
		Zoom:      m.zoom,
		Markers:   append([]Marker{}, m.markers...),
	}
	if m.temp != nil {
		t := *m.temp
		st.Temporary = &t
	}
	return st
}
