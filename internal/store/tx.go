package store

import (
	"context"
	"fmt"

	"github.com/grayfold/archivist/internal/market"
)

// BatchTx scopes directory and bar operations to one storage transaction.
// The ingestion engine runs a whole batch inside a single BatchTx so that a
// fatal record aborts every insert from that batch: either all
// non-conflicting records commit or none do.
type BatchTx struct {
	tx interface {
		execer
		Commit() error
		Rollback() error
	}
}

// BeginBatch starts a batch transaction.
func (s *Store) BeginBatch(ctx context.Context) (*BatchTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin batch: %w", err)
	}
	return &BatchTx{tx: tx}, nil
}

// GetOrCreateTradeDay is the transaction-scoped variant of
// Store.GetOrCreateTradeDay.
func (t *BatchTx) GetOrCreateTradeDay(ctx context.Context, symbol, day, source string) (int64, error) {
	return getOrCreateTradeDay(ctx, t.tx, symbol, day, source)
}

// InsertOrClassifyBar is the transaction-scoped variant of
// Store.InsertOrClassifyBar.
func (t *BatchTx) InsertOrClassifyBar(
	ctx context.Context,
	sessionID *int64,
	timestamp int64,
	ohlcv market.OHLCV,
	halt bool,
	rawJSON string,
	tolerance float64,
) (BarVerdict, *market.ConflictDetail, error) {
	return classifyOrInsertBar(ctx, t.tx, sessionID, timestamp, ohlcv, halt, rawJSON, tolerance)
}

// Commit commits the batch.
func (t *BatchTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// Rollback aborts the batch. No-op if already committed.
func (t *BatchTx) Rollback() error {
	return t.tx.Rollback()
}
