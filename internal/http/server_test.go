package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"monotrack/internal/core"
	"monotrack/internal/ledger"
)

type fakeSource struct {
	mu      sync.Mutex
	entries []core.LedgerEntry
	err     error
	fetches int
}

func (s *fakeSource) FetchStatement(ctx context.Context, accountID string, from, to time.Time) ([]core.LedgerEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

func (s *fakeSource) fetchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

type fakeStore struct {
	mu      sync.Mutex
	states  map[string]*core.SyncState
	filters map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states:  make(map[string]*core.SyncState),
		filters: make(map[string]string),
	}
}

func (s *fakeStore) ReadState(ctx context.Context, accountID string) (*core.SyncState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[accountID], nil
}

func (s *fakeStore) WriteState(ctx context.Context, accountID string, state *core.SyncState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[accountID] = state
	return nil
}

func (s *fakeStore) ReadFilter(ctx context.Context, accountID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters[accountID], nil
}

func (s *fakeStore) WriteFilter(ctx context.Context, accountID, filter string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters[accountID] = filter
	return nil
}

func newTestServer(t *testing.T, source *fakeSource, store *fakeStore, now time.Time) *httptest.Server {
	t.Helper()

	service := ledger.NewService(source, store, ledger.ServiceConfig{
		Now:      func() time.Time { return now },
		Location: time.UTC,
	})
	srv := NewServer(":0", service, store)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestHandleStatement(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{entries: []core.LedgerEntry{
		{ID: "e2", Time: now.Add(-time.Hour).Unix(), Description: "lunch", Amount: -1500},
		{ID: "e1", Time: now.Add(-2 * time.Hour).Unix(), Description: "coffee", Amount: -500},
	}}
	ts := newTestServer(t, source, newFakeStore(), now)

	resp, err := http.Get(ts.URL + "/api/accounts/acc-1/statement")
	if err != nil {
		t.Fatalf("GET statement: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var state core.SyncState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.CurrentPeriod.Total != 2000 {
		t.Errorf("total = %d, want 2000", state.CurrentPeriod.Total)
	}
	if state.CurrentPeriod.CursorEntryID != "e2" {
		t.Errorf("cursor entry = %q, want e2", state.CurrentPeriod.CursorEntryID)
	}
}

func TestHandleStatementAlwaysSyncs(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{entries: []core.LedgerEntry{
		{ID: "e1", Time: now.Add(-time.Hour).Unix(), Description: "coffee", Amount: -500},
	}}
	ts := newTestServer(t, source, newFakeStore(), now)

	// Statement reads are never served from a response cache: each one
	// runs a cursor pass against the source.
	for i := 0; i < 2; i++ {
		resp, err := http.Get(ts.URL + "/api/accounts/acc-1/statement")
		if err != nil {
			t.Fatalf("GET statement #%d: %v", i+1, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status #%d = %d, want 200", i+1, resp.StatusCode)
		}
	}

	if source.fetchCount() != 2 {
		t.Errorf("source fetches = %d, want 2 (one cursor pass per statement read)", source.fetchCount())
	}
}

func TestHandleToday(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{entries: []core.LedgerEntry{
		{ID: "e2", Time: now.Add(-time.Hour).Unix(), Description: "lunch", Amount: -1500},
		{ID: "e1", Time: now.AddDate(0, 0, -3).Unix(), Description: "groceries", Amount: -4000},
	}}
	ts := newTestServer(t, source, newFakeStore(), now)

	resp, err := http.Get(ts.URL + "/api/accounts/acc-1/today")
	if err != nil {
		t.Fatalf("GET today: %v", err)
	}
	defer resp.Body.Close()

	var got todayResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Total != 1500 {
		t.Errorf("today total = %d, want 1500", got.Total)
	}
}

func TestHandleStats(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{entries: []core.LedgerEntry{
		{ID: "e1", Time: now.Add(-time.Hour).Unix(), Description: "lunch", Amount: -1500},
	}}
	store := newFakeStore()
	ts := newTestServer(t, source, store, now)

	resp, err := http.Get(ts.URL + "/api/accounts/acc-1/stats?months=3")
	if err != nil {
		t.Fatalf("GET stats: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got statsResponse
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Months != 3 {
		t.Errorf("months = %d, want 3", got.Months)
	}
	if got.CurrentTotal != 1500 {
		t.Errorf("current total = %d, want 1500", got.CurrentTotal)
	}
	// Live total is appended to the monthly series
	if n := len(got.MonthlyHistory); n == 0 || got.MonthlyHistory[n-1] != 1500 {
		t.Errorf("monthly history = %v, want trailing 1500", got.MonthlyHistory)
	}
}

func TestHandleStatsCached(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{entries: []core.LedgerEntry{
		{ID: "e1", Time: now.Add(-time.Hour).Unix(), Description: "lunch", Amount: -1500},
	}}
	ts := newTestServer(t, source, newFakeStore(), now)

	for i := 0; i < 2; i++ {
		resp, err := http.Get(ts.URL + "/api/accounts/acc-1/stats")
		if err != nil {
			t.Fatalf("GET stats #%d: %v", i+1, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status #%d = %d, want 200", i+1, resp.StatusCode)
		}
	}

	if source.fetchCount() != 1 {
		t.Errorf("source fetches = %d, want 1 (second stats request served from cache)", source.fetchCount())
	}
}

func TestHandleStatsInvalidMonths(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	ts := newTestServer(t, &fakeSource{}, newFakeStore(), now)

	for _, months := range []string{"abc", "0", "500"} {
		resp, err := http.Get(ts.URL + "/api/accounts/acc-1/stats?months=" + months)
		if err != nil {
			t.Fatalf("GET stats: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("months=%s: status = %d, want 400", months, resp.StatusCode)
		}
	}
}

func TestHandleEditEntry(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{entries: []core.LedgerEntry{
		{ID: "e1", Time: now.Add(-time.Hour).Unix(), Description: "lunch", Amount: -1500},
	}}
	store := newFakeStore()
	ts := newTestServer(t, source, store, now)

	// Seed state via a sync
	resp, err := http.Get(ts.URL + "/api/accounts/acc-1/statement")
	if err != nil {
		t.Fatalf("seed sync: %v", err)
	}
	resp.Body.Close()

	delta := int64(-500)
	body, _ := json.Marshal(editRequest{Day: 15, Index: 0, Delta: &delta})
	resp, err = http.Post(ts.URL+"/api/accounts/acc-1/entries/edit", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST edit: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var state core.SyncState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if state.CurrentPeriod.Total != 2000 {
		t.Errorf("total after edit = %d, want 2000", state.CurrentPeriod.Total)
	}
	entry := state.CurrentPeriod.Days[15][0]
	if entry.Amount != -2000 {
		t.Errorf("amount = %d, want -2000", entry.Amount)
	}
	if entry.OriginalAmount == nil || *entry.OriginalAmount != -1500 {
		t.Errorf("original amount = %v, want -1500", entry.OriginalAmount)
	}
}

func TestHandleEditEntryNotFound(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	ts := newTestServer(t, &fakeSource{}, newFakeStore(), now)

	delta := int64(-500)
	body, _ := json.Marshal(editRequest{Day: 3, Index: 9, Delta: &delta})
	resp, err := http.Post(ts.URL+"/api/accounts/missing/entries/edit", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST edit: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHandleFilterRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	ts := newTestServer(t, &fakeSource{}, newFakeStore(), now)

	body, _ := json.Marshal(filterPayload{Filter: "rent;subscription"})
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/accounts/acc-1/filter", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT filter: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/api/accounts/acc-1/filter")
	if err != nil {
		t.Fatalf("GET filter: %v", err)
	}
	defer resp.Body.Close()

	var got filterPayload
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Filter != "rent;subscription" {
		t.Errorf("filter = %q, want rent;subscription", got.Filter)
	}
}

func TestErrorMapping(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"auth required", fmt.Errorf("%w: token missing", ledger.ErrAuthRequired), http.StatusUnauthorized},
		{"source failure", fmt.Errorf("%w: status 500", ledger.ErrSource), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeSource{err: tt.err}, newFakeStore(), now)

			resp, err := http.Get(ts.URL + "/api/accounts/acc-1/statement")
			if err != nil {
				t.Fatalf("GET statement: %v", err)
			}
			resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}
}

type fakeSyncPublisher struct {
	mu       sync.Mutex
	requests []string
}

func (p *fakeSyncPublisher) PublishSyncRequest(ctx context.Context, accountID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, accountID)
	return nil
}

func TestHandleRequestSync(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	store := newFakeStore()
	service := ledger.NewService(&fakeSource{}, store, ledger.ServiceConfig{
		Now:      func() time.Time { return now },
		Location: time.UTC,
	})
	srv := NewServer(":0", service, store)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	// Without a publisher the endpoint reports unavailable
	resp, err := http.Post(ts.URL+"/api/accounts/acc-1/sync", "application/json", nil)
	if err != nil {
		t.Fatalf("POST sync: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}

	publisher := &fakeSyncPublisher{}
	srv.SetSyncRequestPublisher(publisher)

	resp, err = http.Post(ts.URL+"/api/accounts/acc-1/sync", "application/json", nil)
	if err != nil {
		t.Fatalf("POST sync: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Errorf("status = %d, want 202", resp.StatusCode)
	}
	if len(publisher.requests) != 1 || publisher.requests[0] != "acc-1" {
		t.Errorf("published requests = %v, want [acc-1]", publisher.requests)
	}
}

func TestHealthEndpoints(t *testing.T) {
	now := time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	ts := newTestServer(t, &fakeSource{}, newFakeStore(), now)

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
		}
	}
}
