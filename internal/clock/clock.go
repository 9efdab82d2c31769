// Package clock supplies the store's notion of "today" at day granularity.
package clock

import "time"

// Clock returns the current calendar date.
type Clock interface {
	Today() time.Time
}

// System reads the wall clock in the configured location.
type System struct {
	Location *time.Location
}

// Today returns the current date as midnight UTC of the local calendar day.
func (s System) Today() time.Time {
	loc := s.Location
	if loc == nil {
		loc = time.Local
	}
	return Truncate(time.Now().In(loc))
}

// Fixed always reports the same date. Used by tests and back-dated tooling.
type Fixed time.Time

// Today returns the fixed date.
func (f Fixed) Today() time.Time {
	return Truncate(time.Time(f))
}

// Func adapts a function into a Clock.
type Func func() time.Time

// Today calls the function and drops the time of day.
func (f Func) Today() time.Time {
	return Truncate(f())
}

// Date builds a calendar date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate keeps the calendar day of t in its own location and re-expresses it as midnight UTC,
// so that dates compare and subtract without daylight saving drift.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// DaysBetween returns the whole calendar-day difference to - from.
func DaysBetween(from, to time.Time) int {
	return int(Truncate(to).Sub(Truncate(from)) / (24 * time.Hour))
}

// Window returns the inclusive range covering the last n days ending at today.
func Window(today time.Time, n int) (time.Time, time.Time) {
	to := Truncate(today)
	return to.AddDate(0, 0, -(n - 1)), to
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, err
	}
	return Truncate(t), nil
}
