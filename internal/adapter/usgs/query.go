package usgs

import (
	"net/url"
	"strconv"
	"time"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

// DefaultBaseURL is the USGS FDSN event query endpoint.
const DefaultBaseURL = "https://earthquake.usgs.gov/fdsnws/event/1/query"

// BuildURL encodes q as a GeoJSON query against base. Only the parameters
// present in q are sent.
func BuildURL(base string, q domain.FeedQuery) string {
	params := url.Values{"format": {"geojson"}}

	if q.StartTime != nil {
		params.Set("starttime", q.StartTime.UTC().Format(time.RFC3339))
	}
	if q.EndTime != nil {
		params.Set("endtime", q.EndTime.UTC().Format(time.RFC3339))
	}
	if q.OrderBy != "" {
		params.Set("orderby", q.OrderBy)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.MinMagnitude != nil {
		params.Set("minmagnitude", formatFloat(*q.MinMagnitude))
	}
	if q.Box != nil {
		params.Set("minlatitude", formatFloat(q.Box.MinLat))
		params.Set("maxlatitude", formatFloat(q.Box.MaxLat))
		params.Set("minlongitude", formatFloat(q.Box.MinLon))
		params.Set("maxlongitude", formatFloat(q.Box.MaxLon))
	}

	return base + "?" + params.Encode()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
