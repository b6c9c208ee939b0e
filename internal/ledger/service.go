package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"monotrack/internal/core"
)

// ServiceConfig holds configuration for the synchronizer service.
type ServiceConfig struct {
	// Now supplies the current time (default: time.Now).
	Now func() time.Time

	// Location resolves entry timestamps to calendar dates
	// (default: time.UTC).
	Location *time.Location
}

// DefaultServiceConfig returns sensible defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Now:      time.Now,
		Location: time.UTC,
	}
}

// Service is the per-account synchronizer: it decides between the
// bootstrap and incremental paths, merges remote deltas into the cached
// aggregate and persists the result. All mutations of one account run
// under that account's lock, and concurrent syncs for the same account
// are coalesced.
type Service struct {
	source StatementSource
	store  StateStore
	now    func() time.Time
	loc    *time.Location

	group singleflight.Group

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// SyncResult reports the outcome of one sync cycle.
type SyncResult struct {
	State *core.SyncState

	// Changed is false for the NO_OP path: nothing was merged and no
	// cache write happened.
	Changed bool

	// Closed lists periods archived by rollover during this cycle,
	// oldest first.
	Closed []ClosedMonth
}

// ClosedMonth is a period archived into history by a rollover.
type ClosedMonth struct {
	Year  int
	Month int
	Total int64
}

// NewService creates a synchronizer over the given source and store.
func NewService(source StatementSource, store StateStore, cfg ServiceConfig) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{
		source: source,
		store:  store,
		now:    cfg.Now,
		loc:    cfg.Location,
		locks:  make(map[string]*sync.Mutex),
	}
}

// accountLock returns the mutex serializing mutations of one account.
func (s *Service) accountLock(accountID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[accountID] = lock
	}
	return lock
}

// FetchLatestStatement syncs the account and returns its state. This is
// the main entry point for read paths.
func (s *Service) FetchLatestStatement(ctx context.Context, accountID string) (*core.SyncState, error) {
	result, err := s.Sync(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return result.State, nil
}

// Sync runs one read-fetch-merge-write cycle for the account.
// Concurrent calls for the same account share a single execution.
func (s *Service) Sync(ctx context.Context, accountID string) (*SyncResult, error) {
	v, err, _ := s.group.Do(accountID, func() (any, error) {
		return s.sync(ctx, accountID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*SyncResult), nil
}

func (s *Service) sync(ctx context.Context, accountID string) (*SyncResult, error) {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.store.ReadState(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	filter, err := s.store.ReadFilter(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("read filter: %w", err)
	}
	exclusions := ParseExclusions(filter)
	now := s.now().In(s.loc)

	if state == nil || state.CurrentPeriod.CursorTime == 0 {
		return s.bootstrap(ctx, accountID, exclusions, now)
	}
	return s.incremental(ctx, accountID, state, exclusions, now)
}

// bootstrap builds a fresh SyncState from the full current calendar
// month. The only path that constructs state from nothing.
func (s *Service) bootstrap(ctx context.Context, accountID string, exclusions []string, now time.Time) (*SyncResult, error) {
	slog.InfoContext(ctx, "fetching initial period", "account", accountID)

	from := core.MonthStart(now)
	response, err := s.source.FetchStatement(ctx, accountID, from, now)
	if err != nil {
		return nil, fmt.Errorf("fetch statement: %w", err)
	}

	state := &core.SyncState{
		History:       make(core.History),
		CurrentPeriod: core.NewPeriod(now.Year(), int(now.Month())),
	}
	s.merge(state, response, exclusions)

	state.CurrentPeriod.CursorTime = now.Unix()
	if len(response) > 0 {
		state.CurrentPeriod.CursorEntryID = response[0].ID
	}

	if err := s.store.WriteState(ctx, accountID, state); err != nil {
		return nil, fmt.Errorf("persist state: %w", err)
	}

	slog.InfoContext(ctx, "initial period built",
		"account", accountID,
		"entries", len(response),
		"total", state.CurrentPeriod.Total)

	return &SyncResult{State: state, Changed: true}, nil
}

// incremental fetches the delta since the cursor and merges it. Empty
// deltas, or a delta whose newest id matches the cursor, leave the
// persisted snapshot untouched.
func (s *Service) incremental(ctx context.Context, accountID string, state *core.SyncState, exclusions []string, now time.Time) (*SyncResult, error) {
	from := time.Unix(state.CurrentPeriod.CursorTime, 0)
	response, err := s.source.FetchStatement(ctx, accountID, from, now)
	if err != nil {
		return nil, fmt.Errorf("fetch statement: %w", err)
	}

	if len(response) == 0 || response[0].ID == state.CurrentPeriod.CursorEntryID {
		slog.DebugContext(ctx, "nothing to process, skipping", "account", accountID)
		return &SyncResult{State: state}, nil
	}

	closed := s.merge(state, response, exclusions)

	state.CurrentPeriod.CursorTime = now.Unix()
	state.CurrentPeriod.CursorEntryID = response[0].ID

	if err := s.store.WriteState(ctx, accountID, state); err != nil {
		return nil, fmt.Errorf("persist state: %w", err)
	}

	slog.InfoContext(ctx, "statement merged",
		"account", accountID,
		"entries", len(response),
		"rollovers", len(closed),
		"total", state.CurrentPeriod.Total)

	return &SyncResult{State: state, Changed: true, Closed: closed}, nil
}

// merge folds a newest-first response into the state oldest first. The
// reversal is load-bearing: rollover detection only works when months
// are observed in ascending order.
func (s *Service) merge(state *core.SyncState, response []core.LedgerEntry, exclusions []string) []ClosedMonth {
	var closed []ClosedMonth
	for i := len(response) - 1; i >= 0; i-- {
		item := response[i]
		if !IsTrackedExpense(item, exclusions) {
			continue
		}
		year, month, day := core.DateOf(item.Time, s.loc)
		prev := ClosedMonth{
			Year:  state.CurrentPeriod.Year,
			Month: state.CurrentPeriod.Month,
			Total: state.CurrentPeriod.Total,
		}
		if RollInto(&state.CurrentPeriod, state.History, core.NewCachedEntry(item), year, month, day) {
			closed = append(closed, prev)
		}
	}
	return closed
}

// EditEntry adjusts (or, with a nil delta, restores) one cached entry
// and persists the result under the account lock so edits cannot race a
// background sync.
func (s *Service) EditEntry(ctx context.Context, accountID string, day, index int, delta *int64) (*core.SyncState, error) {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	state, err := s.store.ReadState(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("read state: %w", err)
	}
	if state == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoAccount, accountID)
	}

	if err := Edit(state, day, index, delta); err != nil {
		return nil, err
	}

	if err := s.store.WriteState(ctx, accountID, state); err != nil {
		return nil, fmt.Errorf("persist state: %w", err)
	}

	slog.InfoContext(ctx, "entry edited",
		"account", accountID,
		"day", day,
		"index", index,
		"restore", delta == nil)

	return state, nil
}

// TodaysExpenses returns the spend recorded for the current day.
func (s *Service) TodaysExpenses(period core.CurrentPeriod) int64 {
	return TodaysTotal(period, s.now().In(s.loc))
}

// SetFilter stores the semicolon-delimited exclusion filter for an
// account. Takes the account lock so a racing sync observes either the
// old or the new filter, never a partial write.
func (s *Service) SetFilter(ctx context.Context, accountID, filter string) error {
	lock := s.accountLock(accountID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.store.WriteFilter(ctx, accountID, filter); err != nil {
		return fmt.Errorf("persist filter: %w", err)
	}
	return nil
}

// Filter returns the stored exclusion filter for an account.
func (s *Service) Filter(ctx context.Context, accountID string) (string, error) {
	filter, err := s.store.ReadFilter(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("read filter: %w", err)
	}
	return filter, nil
}
