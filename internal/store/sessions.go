package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/grayfold/archivist/internal/market"
)

// execer is the subset of *sql.DB / *sql.Tx used by operations that run
// either standalone or inside a batch transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// GetOrCreateTradeDay looks up the session row for (symbol, day, source),
// creating it if absent. Runs in its own transaction; use the unexported
// variant inside a batch transaction.
func (s *Store) GetOrCreateTradeDay(ctx context.Context, symbol, day, source string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("get or create trade day: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	id, err := getOrCreateTradeDay(ctx, tx, symbol, day, source)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("get or create trade day: commit: %w", err)
	}
	return id, nil
}

// getOrCreateTradeDay is the insert-or-select core. Duplicate creation
// attempts under the same key converge to a single row via the uniqueness
// constraint: the insert is ON CONFLICT DO NOTHING and the loser re-selects
// the winner's id.
func getOrCreateTradeDay(ctx context.Context, q execer, symbol, day, source string) (int64, error) {
	result, err := q.ExecContext(ctx, `
		INSERT INTO trade_days (symbol, session_date, source)
		VALUES (?, ?, ?)
		ON CONFLICT(symbol, session_date, source) DO NOTHING
	`, symbol, day, source)
	if err != nil {
		return 0, fmt.Errorf("insert trade day: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("trade day rows affected: %w", err)
	}

	if rowsAffected > 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return 0, fmt.Errorf("trade day last insert id: %w", err)
		}
		return id, nil
	}

	// Conflict - row already exists, fetch the existing id
	var id int64
	err = q.QueryRowContext(ctx, `
		SELECT id FROM trade_days
		WHERE symbol = ? AND session_date = ? AND source = ?
	`, symbol, day, source).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("select existing trade day: %w", err)
	}
	return id, nil
}

// GetSession retrieves the session row for (symbol, day, source).
// Returns (nil, nil) if no such session exists.
func (s *Store) GetSession(ctx context.Context, symbol, day, source string) (*market.Session, error) {
	var sess market.Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, session_date, source
		FROM trade_days
		WHERE symbol = ? AND session_date = ? AND source = ?
	`, symbol, day, source).Scan(&sess.ID, &sess.Symbol, &sess.Day, &sess.Source)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &sess, nil
}
