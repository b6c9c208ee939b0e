package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"monotrack/internal/amqp"
	"monotrack/internal/ledger"
)

// EventPublisher publishes statement update events after a sync changed state.
type EventPublisher interface {
	PublishStatementUpdated(ctx context.Context, msg *amqp.StatementUpdatedMessage) error
}

// HistoryExporter records closed months in an external archive.
type HistoryExporter interface {
	AppendClosedMonth(ctx context.Context, accountID string, year, month int, total int64) error
}

// SyncWorkerConfig holds configuration for the sync worker
type SyncWorkerConfig struct {
	// PollInterval is how often each account is synced (default: 15m)
	PollInterval time.Duration
}

// DefaultSyncWorkerConfig returns sensible defaults
func DefaultSyncWorkerConfig() SyncWorkerConfig {
	return SyncWorkerConfig{
		PollInterval: 15 * time.Minute,
	}
}

// SyncWorker periodically pulls fresh statement entries for the configured
// accounts and reacts to on-demand sync requests arriving over AMQP.
type SyncWorker struct {
	service   *ledger.Service
	accounts  []string
	publisher EventPublisher
	exporter  HistoryExporter
	config    SyncWorkerConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewSyncWorker creates a new sync worker. publisher and exporter may be nil.
func NewSyncWorker(
	service *ledger.Service,
	accounts []string,
	publisher EventPublisher,
	exporter HistoryExporter,
	config SyncWorkerConfig,
) *SyncWorker {
	return &SyncWorker{
		service:   service,
		accounts:  accounts,
		publisher: publisher,
		exporter:  exporter,
		config:    config,
	}
}

// Start begins the periodic sync loop. Returns an error if already running.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Sync worker started",
		"poll_interval", w.config.PollInterval,
		"accounts", len(w.accounts))

	return nil
}

// Stop gracefully stops the worker and waits for completion.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)

	select {
	case <-w.doneCh:
		slog.InfoContext(ctx, "Sync worker stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync worker stop timed out")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	return nil
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// HandleSyncRequest processes a single on-demand sync request from AMQP
func (w *SyncWorker) HandleSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error {
	slog.InfoContext(ctx, "Processing sync request",
		"account_id", msg.AccountID)

	if err := w.syncAccount(ctx, msg.AccountID); err != nil {
		return fmt.Errorf("sync account %s: %w", msg.AccountID, err)
	}

	return nil
}

// runLoop is the main sync loop
func (w *SyncWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	// Sync immediately on startup
	w.syncAll(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.syncAll(ctx)
		}
	}
}

// syncAll syncs every configured account once
func (w *SyncWorker) syncAll(ctx context.Context) {
	for _, accountID := range w.accounts {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := w.syncAccount(ctx, accountID); err != nil {
			slog.ErrorContext(ctx, "Account sync failed",
				"account_id", accountID,
				"error", err)
		}
	}
}

// syncAccount syncs one account and fans out the resulting events
func (w *SyncWorker) syncAccount(ctx context.Context, accountID string) error {
	result, err := w.service.Sync(ctx, accountID)
	if err != nil {
		return err
	}

	if !result.Changed {
		slog.DebugContext(ctx, "Account already up to date", "account_id", accountID)
		return nil
	}

	slog.InfoContext(ctx, "Account synced",
		"account_id", accountID,
		"period_total", result.State.CurrentPeriod.Total,
		"closed_months", len(result.Closed))

	w.exportClosedMonths(ctx, accountID, result.Closed)

	if w.publisher != nil {
		rollovers := make([]amqp.ClosedMonthRef, 0, len(result.Closed))
		for _, month := range result.Closed {
			rollovers = append(rollovers, amqp.ClosedMonthRef{
				Year:  month.Year,
				Month: month.Month,
				Total: month.Total,
			})
		}
		msg := amqp.NewStatementUpdatedMessage(accountID, result.State.CurrentPeriod.Total, rollovers)
		if err := w.publisher.PublishStatementUpdated(ctx, msg); err != nil {
			// The sync itself succeeded, so only log the publish failure
			slog.ErrorContext(ctx, "Failed to publish statement update",
				"account_id", accountID,
				"error", err)
		}
	}

	return nil
}

// exportClosedMonths appends rolled-over month totals to the external archive
func (w *SyncWorker) exportClosedMonths(ctx context.Context, accountID string, closed []ledger.ClosedMonth) {
	if w.exporter == nil || len(closed) == 0 {
		return
	}

	for _, month := range closed {
		if err := w.exporter.AppendClosedMonth(ctx, accountID, month.Year, month.Month, month.Total); err != nil {
			slog.ErrorContext(ctx, "Failed to export closed month",
				"account_id", accountID,
				"year", month.Year,
				"month", month.Month,
				"error", err)
			continue
		}

		slog.InfoContext(ctx, "Exported closed month",
			"account_id", accountID,
			"year", month.Year,
			"month", month.Month,
			"total", month.Total)
	}
}
