// Package domain models USGS earthquake catalog data for a single region.
//
// # Data Source
//
// Events come from the USGS FDSN event web service,
// https://earthquake.usgs.gov/fdsnws/event/1/query, requested with
// format=geojson. The response is a GeoJSON FeatureCollection; every feature
// carries an "id", a "properties" object and a "geometry" object.
//
// # USGS Data Conventions
//
// Identifier:
//
//	Network code plus event code, e.g. "ci40861920" (Southern California
//	Seismic Network). Unique within the feed and stable across requests, so it
//	is safe to use as a deduplication key.
//
// Magnitude ("properties.mag"):
//
//	Floating point on the reported magnitude type (ml, md, mw, ...). May be
//	null for events that have not been reviewed yet; those are kept in the
//	list but never win a "largest event" comparison.
//
// Time ("properties.time"):
//
//	Milliseconds since the Unix epoch, UTC.
//
// Coordinates ("geometry.coordinates"):
//
//	[longitude, latitude, depth] with depth in kilometres. Longitude comes
//	first, following GeoJSON. Geometry may be null; such events appear in the
//	list but not on the map.
//
// Severity classification:
//
//	List tier:    <4 low | <5 mid | >=5 high
//	Marker color: <4 teal | <5 orange | <6 red | >=6 dark red
//
//	Boundaries are inclusive on the upper tier, so M5.0 is "high" and red.
//
// # Calendar Days
//
// Daily histogram buckets are keyed by the region-local calendar date
// (ISO "2006-01-02"), not UTC, so an event at 23:30 local time lands on the
// local day even when UTC has already rolled over.
package domain
