package helpers

import (
	"math"
	"time"
)

// DateLayout is the calendar-day layout used for cache keys and logs
const DateLayout = "2006-01-02"

// Day truncates t to midnight in t's own location.
// Analyses and rankings are keyed by calendar day, never by instant.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar day
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// AddDays shifts a calendar day by n days (n may be negative)
func AddDays(day time.Time, n int) time.Time {
	return Day(day).AddDate(0, 0, n)
}

// DaysBetween returns the number of whole calendar days from a to b
func DaysBetween(a, b time.Time) int {
	return int(math.Round(Day(b).Sub(Day(a)).Hours() / 24))
}

// FormatDate formats a calendar day as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// EndOfDay returns the duration left until the next midnight after now.
// Used as the TTL of anything that is only valid for the current day.
func EndOfDay(now time.Time) time.Duration {
	return AddDays(now, 1).Sub(now)
}
