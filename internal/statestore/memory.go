package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"monotrack/internal/core"
	"monotrack/internal/ledger"
)

// MemoryStore is an in-memory StateStore for tests and local runs.
// Records are stored as JSON so reads hand out independent snapshots,
// matching the isolation of the sqlite store.
type MemoryStore struct {
	mu      sync.RWMutex
	states  map[string][]byte
	filters map[string]string
}

// Ensure interface conformance
var _ ledger.StateStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		states:  make(map[string][]byte),
		filters: make(map[string]string),
	}
}

func (s *MemoryStore) ReadState(_ context.Context, accountID string) (*core.SyncState, error) {
	s.mu.RLock()
	payload, ok := s.states[accountID]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	var state core.SyncState
	if err := json.Unmarshal(payload, &state); err != nil {
		return nil, fmt.Errorf("%w: decode state for %s: %v", ledger.ErrStore, accountID, err)
	}
	if state.History == nil {
		state.History = make(core.History)
	}
	if state.CurrentPeriod.Days == nil {
		state.CurrentPeriod.Days = make(map[int][]core.CachedEntry)
	}
	return &state, nil
}

func (s *MemoryStore) WriteState(_ context.Context, accountID string, state *core.SyncState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: encode state for %s: %v", ledger.ErrStore, accountID, err)
	}
	s.mu.Lock()
	s.states[accountID] = payload
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ReadFilter(_ context.Context, accountID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filters[accountID], nil
}

func (s *MemoryStore) WriteFilter(_ context.Context, accountID, filter string) error {
	s.mu.Lock()
	s.filters[accountID] = filter
	s.mu.Unlock()
	return nil
}
