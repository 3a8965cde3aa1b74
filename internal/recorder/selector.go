package recorder

import (
	"fmt"
	"time"
)

// nearestOccurrence picks the occurrence whose start is closest to reference.
// Each zone-naive start is interpreted in the episode's timezone and converted
// to UTC before the delta is computed, so episodes in any zone compare against
// the UTC reference correctly. Ties keep the first-encountered occurrence.
func nearestOccurrence(reference time.Time, timezone string, occurrences []Occurrence) (Occurrence, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Occurrence{}, fmt.Errorf("load episode timezone %q: %w", timezone, err)
	}

	if len(occurrences) == 0 {
		return Occurrence{}, ErrOccurrenceNotFound
	}

	best := occurrences[0]
	bestDelta := absDuration(occurrenceUTC(best.Start, loc).Sub(reference))
	for _, occ := range occurrences[1:] {
		delta := absDuration(occurrenceUTC(occ.Start, loc).Sub(reference))
		if delta < bestDelta {
			best = occ
			bestDelta = delta
		}
	}

	return best, nil
}

// occurrenceUTC reinterprets a zone-naive wall-clock start in loc and returns
// the corresponding UTC instant.
func occurrenceUTC(start time.Time, loc *time.Location) time.Time {
	return time.Date(
		start.Year(), start.Month(), start.Day(),
		start.Hour(), start.Minute(), start.Second(), start.Nanosecond(),
		loc,
	).UTC()
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
