package ledger

import (
	"fmt"

	"monotrack/internal/core"
)

// Edit applies a reversible adjustment to one cached entry in the open
// period. A nil delta restores the entry to its originally observed
// amount and clears the edit mark. A non-nil delta adds to the current
// amount, capturing the pristine value exactly once: editing an
// already-edited entry keeps the first recorded original.
//
// The period total is recomputed from the day buckets afterwards so the
// invariant total == sum(-amount) cannot drift. History is never
// touched.
func Edit(state *core.SyncState, day, index int, delta *int64) error {
	entries := state.CurrentPeriod.Days[day]
	if index < 0 || index >= len(entries) {
		return fmt.Errorf("%w: day %d index %d", ErrEntryNotFound, day, index)
	}
	entry := &entries[index]

	if delta == nil {
		if entry.OriginalAmount != nil {
			entry.Amount = *entry.OriginalAmount
			entry.OriginalAmount = nil
		}
	} else {
		if entry.OriginalAmount == nil {
			original := entry.Amount
			entry.OriginalAmount = &original
		}
		entry.Amount += *delta
	}

	state.CurrentPeriod.Total = state.CurrentPeriod.SumDays()
	return nil
}
