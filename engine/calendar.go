package engine

import "time"

// =============================================================================
// CALENDAR - Monthly date stepping for due dates
// =============================================================================
// Installment i (1-indexed) is due on startDate + i calendar months. The
// day-of-month is preserved where possible; if the target month is shorter,
// the day clamps to the last valid day of that month. Jan 31 + 1 month is
// Feb 28 (or Feb 29 in a leap year), never Mar 3.

// AddMonthsClamped steps t forward by n calendar months with day clamping.
// time.AddDate alone would normalize Jan 31 + 1 month to Mar 3, which is
// wrong for due dates.
func AddMonthsClamped(t time.Time, n int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	day := t.Day()
	if last := DaysInMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DateOnly truncates a timestamp to midnight UTC. Due dates and overdue
// comparisons operate at day granularity.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DueDates returns the due date of each installment for a schedule of the
// given count starting at startDate: one entry per installment, 1-indexed.
func DueDates(startDate time.Time, count int) []time.Time {
	dates := make([]time.Time, count)
	for i := 1; i <= count; i++ {
		dates[i-1] = AddMonthsClamped(startDate, i)
	}
	return dates
}
