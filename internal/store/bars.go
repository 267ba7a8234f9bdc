package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/grayfold/archivist/internal/market"
)

// BarVerdict classifies the outcome of an insert attempt.
type BarVerdict int

const (
	// BarInserted - no bar existed under the key; a new row was written.
	BarInserted BarVerdict = iota
	// BarSkipped - an identical bar (within tolerance) already exists; no write.
	BarSkipped
	// BarConflict - a bar exists under the key with OHLCV beyond tolerance;
	// the stored row is left untouched.
	BarConflict
)

func (v BarVerdict) String() string {
	switch v {
	case BarInserted:
		return "inserted"
	case BarSkipped:
		return "skipped"
	case BarConflict:
		return "conflict"
	default:
		return fmt.Sprintf("BarVerdict(%d)", int(v))
	}
}

// conflictReasonMismatch is the reason code carried on OHLCV conflicts.
const conflictReasonMismatch = "OHLCV mismatch"

// InsertOrClassifyBar inserts a bar or classifies it against the stored row
// under the same key, in its own transaction. sessionID must be nil iff
// halt is true.
func (s *Store) InsertOrClassifyBar(
	ctx context.Context,
	sessionID *int64,
	timestamp int64,
	ohlcv market.OHLCV,
	halt bool,
	rawJSON string,
	tolerance float64,
) (BarVerdict, *market.ConflictDetail, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("insert or classify bar: begin tx: %w", err)
	}
	defer tx.Rollback()

	verdict, detail, err := classifyOrInsertBar(ctx, tx, sessionID, timestamp, ohlcv, halt, rawJSON, tolerance)
	if err != nil {
		return 0, nil, err
	}

	if err := tx.Commit(); err != nil {
		return 0, nil, fmt.Errorf("insert or classify bar: commit: %w", err)
	}
	return verdict, detail, nil
}

// classifyOrInsertBar implements first-writer-wins bar identity. Lookup key
// is (trade_day_id, timestamp) for regular bars and timestamp alone among
// halt bars. Conflicts are surfaced, never auto-merged.
func classifyOrInsertBar(
	ctx context.Context,
	q execer,
	sessionID *int64,
	timestamp int64,
	ohlcv market.OHLCV,
	halt bool,
	rawJSON string,
	tolerance float64,
) (BarVerdict, *market.ConflictDetail, error) {
	var existing market.OHLCV
	var err error
	if halt {
		err = q.QueryRowContext(ctx, `
			SELECT open, high, low, close, volume FROM bars
			WHERE timestamp = ? AND halt_period = 1
		`, timestamp).Scan(&existing.Open, &existing.High, &existing.Low, &existing.Close, &existing.Volume)
	} else {
		err = q.QueryRowContext(ctx, `
			SELECT open, high, low, close, volume FROM bars
			WHERE trade_day_id = ? AND timestamp = ? AND halt_period = 0
		`, sessionID, timestamp).Scan(&existing.Open, &existing.High, &existing.Low, &existing.Close, &existing.Volume)
	}

	switch {
	case err == sql.ErrNoRows:
		haltFlag := 0
		if halt {
			haltFlag = 1
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO bars
			(trade_day_id, timestamp, open, high, low, close, volume, halt_period, raw_json)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, sessionID, timestamp, ohlcv.Open, ohlcv.High, ohlcv.Low, ohlcv.Close, ohlcv.Volume, haltFlag, rawJSON)
		if err != nil {
			return 0, nil, fmt.Errorf("insert bar: %w", err)
		}
		return BarInserted, nil, nil

	case err != nil:
		return 0, nil, fmt.Errorf("lookup bar: %w", err)
	}

	if existing.WithinTolerance(ohlcv, tolerance) {
		// True idempotence - no write.
		return BarSkipped, nil, nil
	}

	return BarConflict, &market.ConflictDetail{
		Timestamp: timestamp,
		Reason:    conflictReasonMismatch,
		Existing:  existing,
		Incoming:  ohlcv,
	}, nil
}

// BarQuery selects bars for GetBars. Day takes precedence over From/To.
// When IncludeHalt is set, session-less halt bars are included; because halt
// bars carry no symbol, callers bound them with FromTS/ToTS epoch limits
// (zero means unbounded).
type BarQuery struct {
	Symbol      string
	Source      string
	Day         string // single session date
	From, To    string // inclusive session date range
	IncludeHalt bool
	FromTS      int64
	ToTS        int64
}

// GetBars returns bars ordered by timestamp. Regular bars are matched by
// symbol/source/date through the session join; halt bars, having no session,
// are matched by the timestamp bounds alone.
func (s *Store) GetBars(ctx context.Context, bq BarQuery) ([]market.Bar, error) {
	query := `
		SELECT b.id, b.trade_day_id, td.session_date, b.timestamp,
		       b.open, b.high, b.low, b.close, b.volume, b.halt_period, b.raw_json
		FROM bars b
		LEFT JOIN trade_days td ON b.trade_day_id = td.id
	`
	sessionCond := "td.symbol = ? AND td.source = ?"
	args := []any{bq.Symbol, bq.Source}

	if bq.Day != "" {
		sessionCond += " AND td.session_date = ?"
		args = append(args, bq.Day)
	} else if bq.From != "" && bq.To != "" {
		sessionCond += " AND td.session_date >= ? AND td.session_date <= ?"
		args = append(args, bq.From, bq.To)
	}

	if bq.IncludeHalt {
		haltCond := "b.halt_period = 1"
		if bq.FromTS != 0 {
			haltCond += " AND b.timestamp >= ?"
		}
		if bq.ToTS != 0 {
			haltCond += " AND b.timestamp <= ?"
		}
		query += " WHERE ((" + sessionCond + ") OR (" + haltCond + "))"
		if bq.FromTS != 0 {
			args = append(args, bq.FromTS)
		}
		if bq.ToTS != 0 {
			args = append(args, bq.ToTS)
		}
	} else {
		query += " WHERE " + sessionCond + " AND b.halt_period = 0"
	}

	query += " ORDER BY b.timestamp ASC, b.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query bars: %w", err)
	}
	defer rows.Close()

	var bars []market.Bar
	for rows.Next() {
		var b market.Bar
		var sessionID sql.NullInt64
		var day sql.NullString
		var haltFlag int
		if err := rows.Scan(
			&b.ID, &sessionID, &day, &b.Timestamp,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume, &haltFlag, &b.RawJSON,
		); err != nil {
			return nil, fmt.Errorf("scan bar: %w", err)
		}
		if sessionID.Valid {
			id := sessionID.Int64
			b.SessionID = &id
		}
		if day.Valid {
			b.Day = day.String
		}
		b.Halt = haltFlag == 1
		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bars: %w", err)
	}

	// Return empty slice instead of nil
	if bars == nil {
		bars = []market.Bar{}
	}

	return bars, nil
}
