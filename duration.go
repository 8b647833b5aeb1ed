package main

import (
	"log"
	"time"
)

// Timestamp layouts accepted for the scheduled start/end fields.
var durationLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ChangeDuration returns the elapsed hours between two ISO-8601
// timestamps. Missing or unparseable inputs and negative spans all
// yield 0.0 with defaulted=true; the pipeline never blocks on bad
// dates. Callers should treat the zero as a sentinel: it is
// indistinguishable from a genuine zero-hour change in the vector
// itself, which is why the defaulted flag exists.
func ChangeDuration(start, end string) (hours float64, defaulted bool) {
	if start == "" || end == "" {
		log.Printf("duration: missing start or end date, using 0")
		return 0.0, true
	}

	startAt, ok := parseChangeTimestamp(start)
	if !ok {
		log.Printf("duration: could not parse start date %q, using 0", start)
		return 0.0, true
	}
	endAt, ok := parseChangeTimestamp(end)
	if !ok {
		log.Printf("duration: could not parse end date %q, using 0", end)
		return 0.0, true
	}

	hours = endAt.Sub(startAt).Hours()
	if hours < 0 {
		log.Printf("duration: negative span (%.2f hrs) for %q -> %q, using 0", hours, start, end)
		return 0.0, true
	}
	return hours, false
}

func parseChangeTimestamp(s string) (time.Time, bool) {
	for _, layout := range durationLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
