package ledger

import (
	"context"
	"time"

	"monotrack/internal/core"
)

// Ports for outbound adapters.
type (
	// StatementSource fetches ledger entries for a half-open time
	// range, newest first. Implementations must short-circuit with
	// ErrAuthRequired when no token is available and wrap transport
	// failures with ErrSource.
	StatementSource interface {
		FetchStatement(ctx context.Context, accountID string, from, to time.Time) ([]core.LedgerEntry, error)
	}

	// StateStore persists one SyncState record per account plus the
	// per-account exclusion filter. ReadState returns (nil, nil) when
	// no record exists. Failures wrap ErrStore.
	StateStore interface {
		ReadState(ctx context.Context, accountID string) (*core.SyncState, error)
		WriteState(ctx context.Context, accountID string, state *core.SyncState) error
		ReadFilter(ctx context.Context, accountID string) (string, error)
		WriteFilter(ctx context.Context, accountID string, filter string) error
	}
)
