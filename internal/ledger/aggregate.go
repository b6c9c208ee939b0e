package ledger

import "monotrack/internal/core"

// RollInto folds one tracked entry into the open period, archiving the
// period into history first when the entry belongs to a later calendar
// month. Entries from an earlier month than the open period are stale
// relative to the forward cursor and are discarded without mutating
// state. Returns true when a rollover closed the previous period.
//
// The merge must feed entries oldest to newest; rollover only ever
// advances. Skipped months are not zero-backfilled: only the one period
// that was open gets archived.
func RollInto(period *core.CurrentPeriod, history core.History, entry core.CachedEntry, year, month, day int) bool {
	rolled := false
	switch {
	case period.Before(year, month):
		history.Record(period.Year, period.Month, period.Total)
		*period = core.NewPeriod(year, month)
		rolled = true
	case year < period.Year || (year == period.Year && month < period.Month):
		return false
	}

	if period.Days == nil {
		period.Days = make(map[int][]core.CachedEntry)
	}
	period.Days[day] = append(period.Days[day], entry)
	period.Total += -entry.Amount
	return rolled
}
