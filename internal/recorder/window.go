package recorder

import "time"

// timeWindow returns the symmetric search window around reference in which
// occurrences of an episode are looked up.
func timeWindow(reference time.Time, window time.Duration) (start, end time.Time) {
	return reference.Add(-window), reference.Add(window)
}
