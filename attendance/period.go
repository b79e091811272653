package attendance

import "time"

// =============================================================================
// PERIOD - Inclusive calendar-day range
// =============================================================================

// Period is an inclusive [Start, End] range of calendar days.
// Both bounds are midnights at the start of their day.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains returns true if the day of t falls within the period.
func (p Period) Contains(t time.Time) bool {
	d := DayOf(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days returns every day in the period.
func (p Period) Days() []time.Time {
	var days []time.Time
	for current := p.Start; !current.After(p.End); current = current.AddDate(0, 0, 1) {
		days = append(days, current)
	}
	return days
}

func (p Period) String() string {
	return "[" + p.Start.Format(dateLayout) + ", " + p.End.Format(dateLayout) + "]"
}

const dateLayout = "2006-01-02"

// =============================================================================
// DAY AND WEEK BOUNDARIES
// =============================================================================

// DayOf truncates t to midnight at the start of its calendar day,
// preserving the location. Attendance records are keyed by this value.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DayOf(a).Equal(DayOf(b))
}

// WorkWeekFor returns the work week containing ref: the most recent
// weekStart at or before ref, through the following six days inclusive.
// With weekStart=Thursday this is the Thursday-to-Wednesday reporting
// cycle, distinct from the ISO calendar week.
func WorkWeekFor(ref time.Time, weekStart time.Weekday) Period {
	day := DayOf(ref)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	start := day.AddDate(0, 0, -offset)
	return Period{Start: start, End: start.AddDate(0, 0, 6)}
}
