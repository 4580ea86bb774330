// Package time contains calendar helpers for run windows
package time

import "time"

// MonthStart returns midnight UTC on the first day of t's month
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// Months lists the first instant of every calendar month touched by [since, until], oldest first
// an inverted window yields nil
func Months(since, until time.Time) []time.Time {
	first, last := MonthStart(since), MonthStart(until)
	if last.Before(first) {
		return nil
	}
	var out []time.Time
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		out = append(out, m)
	}
	return out
}

// MonthsBack returns the window that ends at now and starts n calendar months earlier.
// The day is clamped to the end of the target month, so March 31 minus one month is February 28
func MonthsBack(now time.Time, n int) (since, until time.Time) {
	now = now.UTC()
	first := MonthStart(now).AddDate(0, -n, 0)
	day := min(now.Day(), first.AddDate(0, 1, -1).Day())
	since = time.Date(first.Year(), first.Month(), day, now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), time.UTC)
	return since, now
}
