package domain

import "time"

// DayKeyLayout is the ISO date layout used for daily bucket keys.
const DayKeyLayout = "2006-01-02"

// TrailingDays is the number of daily buckets in the histogram.
const TrailingDays = 7

// Within returns the events that occurred at or after now-d, in input order.
func Within(events []SeismicEvent, now time.Time, d time.Duration) []SeismicEvent {
	cutoff := now.Add(-d)
	out := make([]SeismicEvent, 0, len(events))
	for _, e := range events {
		if !e.Time.Before(cutoff) {
			out = append(out, e)
		}
	}
	return out
}

// Largest returns the event with the greatest magnitude. Events without a
// magnitude are skipped and ties keep the first one encountered. The boolean
// is false when no event has a magnitude.
func Largest(events []SeismicEvent) (SeismicEvent, bool) {
	var (
		best  SeismicEvent
		found bool
	)
	for _, e := range events {
		if e.Magnitude == nil {
			continue
		}
		if !found || *e.Magnitude > *best.Magnitude {
			best = e
			found = true
		}
	}
	return best, found
}

// DayKey returns the region-local calendar date of t.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayKeyLayout)
}

// BuildDailyBuckets counts events per region-local calendar day over the
// TrailingDays days ending on now's date, oldest first. Every day gets a
// bucket even when it has no events; events falling outside the window are
// dropped.
func BuildDailyBuckets(events []SeismicEvent, now time.Time, loc *time.Location) []DailyBucket {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	buckets := make([]DailyBucket, TrailingDays)
	index := make(map[string]int, TrailingDays)
	for i := 0; i < TrailingDays; i++ {
		// Noon keeps the date stable across DST transitions.
		day := time.Date(local.Year(), local.Month(), local.Day()-(TrailingDays-1-i), 12, 0, 0, 0, loc)
		key := day.Format(DayKeyLayout)
		buckets[i] = DailyBucket{Key: key, Label: day.Format("Jan 2")}
		index[key] = i
	}

	for _, e := range events {
		if i, ok := index[DayKey(e.Time, loc)]; ok {
			buckets[i].Count++
		}
	}
	return buckets
}

// SelectHighlight picks the first event of a batch already sorted newest first.
func SelectHighlight(events []SeismicEvent) (SeismicEvent, bool) {
	if len(events) == 0 {
		return SeismicEvent{}, false
	}
	return events[0], true
}
