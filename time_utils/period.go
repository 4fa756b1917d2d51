package timeutils

import "time"

// Period represents an absolute period between two instances in time, e.g. "2023/10/19 16:00:00 to 2023/10/19 18:00:00".
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls within the period (start inclusive, end
// exclusive).
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Duration returns the length of the period.
func (p Period) Duration() time.Duration {
	return p.End.Sub(p.Start)
}

// LastHours returns the period covering the given number of hours up to
// `now`. Used for the rolling CSV export and the 24h report window.
func LastHours(now time.Time, hours int) Period {
	return Period{
		Start: now.Add(-time.Duration(hours) * time.Hour),
		End:   now,
	}
}
