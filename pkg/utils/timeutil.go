package utils

import (
	"time"
)

// Eastern is the US market timezone. Buzz run dates and business-day
// arithmetic are anchored here.
var Eastern *time.Location

func init() {
	var err error
	Eastern, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback: fixed EST offset if the tz database is unavailable.
		Eastern = time.FixedZone("EST", -5*60*60)
	}
}

// NowEastern returns the current time in US Eastern.
func NowEastern() time.Time {
	return time.Now().In(Eastern)
}

// Today returns the current US Eastern date at midnight UTC, the
// canonical representation used for all (date, ticker) keys.
func Today() time.Time {
	return DateOnly(NowEastern())
}

// DateOnly truncates a time to its calendar date, re-anchored at
// midnight UTC so that dates compare and map-key correctly regardless
// of the source location.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a "2006-01-02" date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

// FormatDate formats a time as "2006-01-02".
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// IsBusinessDay reports whether the date falls on a weekday. Exchange
// holidays are intentionally not modeled; the time split only needs
// pandas-style BDay arithmetic.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// SubBusinessDays steps back n business days from t, skipping weekends.
func SubBusinessDays(t time.Time, n int) time.Time {
	cur := t
	for i := 0; i < n; i++ {
		cur = cur.AddDate(0, 0, -1)
		for !IsBusinessDay(cur) {
			cur = cur.AddDate(0, 0, -1)
		}
	}
	return cur
}

// AddBusinessDays steps forward n business days from t, skipping weekends.
func AddBusinessDays(t time.Time, n int) time.Time {
	cur := t
	for i := 0; i < n; i++ {
		cur = cur.AddDate(0, 0, 1)
		for !IsBusinessDay(cur) {
			cur = cur.AddDate(0, 0, 1)
		}
	}
	return cur
}
