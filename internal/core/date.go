package core

import "time"

// DateOf splits an epoch-seconds timestamp into calendar parts in the
// given location. A nil location falls back to UTC.
func DateOf(epoch int64, loc *time.Location) (year, month, day int) {
	if loc == nil {
		loc = time.UTC
	}
	t := time.Unix(epoch, 0).In(loc)
	return t.Year(), int(t.Month()), t.Day()
}

// DaysInMonth returns the number of calendar days in the month.
func DaysInMonth(year, month int) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthStart returns midnight on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
