// Package layout computes the month-view grid of the shared calendar and
// the lane each event occupies inside it.
//
// Everything here is a pure function of its arguments: the same events and
// reference date always produce the same cells and the same lanes.
package layout

import "time"

// startOfDay truncates t to midnight in t's own location.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// dayNumber returns a monotonically increasing day index for the calendar
// date of t. It ignores the clock and DST, so two times on the same local
// date always share a number.
func dayNumber(t time.Time) int {
	y, m, d := t.Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

func sameDay(a, b time.Time) bool {
	return dayNumber(a) == dayNumber(b)
}

func startOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, 1, -1)
}

func startOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	offset := (int(t.Weekday()) - int(weekStart) + 7) % 7
	return startOfDay(t).AddDate(0, 0, -offset)
}

func endOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	return startOfWeek(t, weekStart).AddDate(0, 0, 6)
}

// eventSpan returns the inclusive day numbers covered by ev. An end before
// the start collapses to the start day.
func eventSpan(startDate, endDate time.Time) (first, last int) {
	first = dayNumber(startDate)
	last = dayNumber(endDate)
	if last < first {
		last = first
	}
	return first, last
}
