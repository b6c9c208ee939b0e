package statestore

import (
	"context"
	"path/filepath"
	"testing"

	"monotrack/internal/core"
	"monotrack/internal/ledger"
)

func stateFixture() *core.SyncState {
	period := core.NewPeriod(2025, 3)
	original := int64(-500)
	period.Days[4] = []core.CachedEntry{
		{ID: "op1", Time: 1741078800, Description: "Coffee", Amount: -600, OriginalAmount: &original},
	}
	period.Total = 600
	period.CursorTime = 1742032800
	period.CursorEntryID = "op1"

	state := &core.SyncState{History: make(core.History), CurrentPeriod: period}
	state.History.Record(2025, 2, 12345)
	return state
}

func checkRoundTrip(t *testing.T, store ledger.StateStore) {
	t.Helper()
	ctx := context.Background()

	// Absent account reads as (nil, nil), not an error.
	got, err := store.ReadState(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("ReadState(missing) = %v, %v; want nil, nil", got, err)
	}

	want := stateFixture()
	if err := store.WriteState(ctx, "acc-1", want); err != nil {
		t.Fatalf("WriteState: %v", err)
	}

	got, err = store.ReadState(ctx, "acc-1")
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if got.CurrentPeriod.Total != 600 || got.CurrentPeriod.CursorEntryID != "op1" {
		t.Fatalf("unexpected period: %+v", got.CurrentPeriod)
	}
	if got.History[2025][2] != 12345 {
		t.Fatalf("history lost in round trip: %v", got.History)
	}
	entry := got.CurrentPeriod.Days[4][0]
	if entry.OriginalAmount == nil || *entry.OriginalAmount != -500 {
		t.Fatalf("originalAmount lost in round trip: %+v", entry)
	}

	// Reads hand out independent snapshots: mutating one must not
	// leak into the next read.
	got.CurrentPeriod.Total = 1
	again, err := store.ReadState(ctx, "acc-1")
	if err != nil {
		t.Fatalf("ReadState: %v", err)
	}
	if again.CurrentPeriod.Total != 600 {
		t.Fatalf("snapshot isolation broken: total = %d", again.CurrentPeriod.Total)
	}

	// Overwrite replaces the record.
	want.CurrentPeriod.Total = 999
	if err := store.WriteState(ctx, "acc-1", want); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	again, _ = store.ReadState(ctx, "acc-1")
	if again.CurrentPeriod.Total != 999 {
		t.Fatalf("overwrite failed, total = %d", again.CurrentPeriod.Total)
	}
}

func checkFilters(t *testing.T, store ledger.StateStore) {
	t.Helper()
	ctx := context.Background()

	if got, err := store.ReadFilter(ctx, "acc-1"); err != nil || got != "" {
		t.Fatalf("ReadFilter(unset) = %q, %v; want empty, nil", got, err)
	}
	if err := store.WriteFilter(ctx, "acc-1", "rent;netflix"); err != nil {
		t.Fatalf("WriteFilter: %v", err)
	}
	if got, _ := store.ReadFilter(ctx, "acc-1"); got != "rent;netflix" {
		t.Fatalf("filter = %q, want rent;netflix", got)
	}
	if err := store.WriteFilter(ctx, "acc-1", "spotify"); err != nil {
		t.Fatalf("WriteFilter: %v", err)
	}
	if got, _ := store.ReadFilter(ctx, "acc-1"); got != "spotify" {
		t.Fatalf("filter overwrite failed: %q", got)
	}
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	checkRoundTrip(t, store)
	checkFilters(t, store)
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "data", "monotrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	checkRoundTrip(t, store)
	checkFilters(t, store)
}

func TestSQLiteStoreReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monotrack.db")

	store, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := store.WriteState(context.Background(), "acc-1", stateFixture()); err != nil {
		t.Fatalf("WriteState: %v", err)
	}
	store.Close()

	// Reopening runs migrations idempotently and keeps the data.
	store, err = NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer store.Close()

	state, err := store.ReadState(context.Background(), "acc-1")
	if err != nil {
		t.Fatalf("ReadState after reopen: %v", err)
	}
	if state == nil || state.CurrentPeriod.Total != 600 {
		t.Fatalf("state lost across reopen: %+v", state)
	}
}
