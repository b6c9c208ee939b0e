package statestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"monotrack/internal/core"
	"monotrack/internal/ledger"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists one SyncState JSON record per account plus the
// per-account exclusion filter.
type SQLiteStore struct {
	db *sql.DB
}

// Ensure interface conformance
var _ ledger.StateStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens (and if needed creates) the state database and
// runs migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ReadState returns the persisted state for an account, or (nil, nil)
// when the account has never been synchronized.
func (s *SQLiteStore) ReadState(ctx context.Context, accountID string) (*core.SyncState, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM sync_states WHERE account_id = ?`, accountID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read state for %s: %v", ledger.ErrStore, accountID, err)
	}

	var state core.SyncState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
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

// WriteState stores the full snapshot for an account, replacing any
// previous record in one statement.
func (s *SQLiteStore) WriteState(ctx context.Context, accountID string, state *core.SyncState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: encode state for %s: %v", ledger.ErrStore, accountID, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sync_states (account_id, payload, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(account_id) DO UPDATE SET
		   payload = excluded.payload,
		   updated_at = CURRENT_TIMESTAMP`,
		accountID, string(payload))
	if err != nil {
		return fmt.Errorf("%w: write state for %s: %v", ledger.ErrStore, accountID, err)
	}

	slog.DebugContext(ctx, "state persisted",
		"account", accountID,
		"bytes", len(payload))
	return nil
}

// ReadFilter returns the stored exclusion filter, empty when unset.
func (s *SQLiteStore) ReadFilter(ctx context.Context, accountID string) (string, error) {
	var filter string
	err := s.db.QueryRowContext(ctx,
		`SELECT filter FROM account_settings WHERE account_id = ?`, accountID,
	).Scan(&filter)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: read filter for %s: %v", ledger.ErrStore, accountID, err)
	}
	return filter, nil
}

// WriteFilter stores the exclusion filter for an account.
func (s *SQLiteStore) WriteFilter(ctx context.Context, accountID, filter string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO account_settings (account_id, filter, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(account_id) DO UPDATE SET
		   filter = excluded.filter,
		   updated_at = CURRENT_TIMESTAMP`,
		accountID, filter)
	if err != nil {
		return fmt.Errorf("%w: write filter for %s: %v", ledger.ErrStore, accountID, err)
	}
	return nil
}
