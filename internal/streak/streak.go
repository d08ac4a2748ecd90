// Package streak derives a child's completion streak from approved
// completion dates. All arithmetic is at day granularity.
package streak

import "time"

// maxGapDays is the largest gap between approved completions that keeps
// a streak alive: same day or the very next day.
const maxGapDays = 1

// DayKey formats a time as the YYYY-MM-DD key used for completion dates.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDay parses a YYYY-MM-DD key back to a UTC midnight time.
func ParseDay(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GapDays returns the whole-day difference between from and to,
// discarding time-of-day on both sides.
func GapDays(from, to time.Time) int {
	return int(startOfDay(to).Sub(startOfDay(from)).Hours() / 24)
}

// Next computes the streak after an approval on newDate. With no prior
// approved completion the streak starts at 1. A gap of at most one day
// extends the streak; a missed day resets it to 1.
func Next(current int, lastApproved *time.Time, newDate time.Time) int {
	if lastApproved == nil {
		return 1
	}
	if GapDays(*lastApproved, newDate) <= maxGapDays {
		return current + 1
	}
	return 1
}

// ShouldDecay reports whether a stored streak has gone stale: the child
// has no approved completion within a day of now. Checked on read so a
// streak cannot survive the child simply never claiming again.
func ShouldDecay(lastApproved *time.Time, now time.Time) bool {
	if lastApproved == nil {
		return false
	}
	return GapDays(*lastApproved, now) > maxGapDays
}
