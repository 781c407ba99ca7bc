package planner

import (
	"math/rand"
	"time"
)

// Working hours: Monday-Friday, 08:00-17:00.
const (
	workdayStartHour = 8
	workdayEndHour   = 17
)

// Span is one contiguous working-hour interval.
type Span struct {
	Start time.Time
	End   time.Time
}

// IsWorkingTime reports whether t falls inside working hours.
func IsWorkingTime(t time.Time) bool {
	wd := t.Weekday()
	if wd == time.Saturday || wd == time.Sunday {
		return false
	}
	return t.Hour() >= workdayStartHour && t.Hour() < workdayEndHour
}

// WorkingSpans lists the working-hour spans between start and end. The first
// span is trimmed to start when start already lies inside working hours.
func WorkingSpans(start, end time.Time) []Span {
	var spans []Span
	cur := start
	if cur.Hour() < workdayStartHour && isWeekday(cur) {
		cur = time.Date(cur.Year(), cur.Month(), cur.Day(), workdayStartHour, 0, 0, 0, cur.Location())
	}
	for cur.Before(end) {
		if IsWorkingTime(cur) {
			eod := time.Date(cur.Year(), cur.Month(), cur.Day(), workdayEndHour, 0, 0, 0, cur.Location())
			spans = append(spans, Span{Start: cur, End: eod})
		}
		cur = time.Date(cur.Year(), cur.Month(), cur.Day(), workdayStartHour, 0, 0, 0, cur.Location()).AddDate(0, 0, 1)
	}
	return spans
}

func isWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// randomTimeBetween draws a uniformly random instant in [start, end] with
// one-second granularity.
func randomTimeBetween(start, end time.Time, rng *rand.Rand) time.Time {
	total := int64(end.Sub(start) / time.Second)
	if total <= 0 {
		return start
	}
	return start.Add(time.Duration(rng.Int63n(total+1)) * time.Second)
}

// within reports whether subject lies in [start, start+window].
func within(subject, start time.Time, window time.Duration) bool {
	if subject.Before(start) {
		return false
	}
	return !subject.After(start.Add(window))
}
