// Package store provides SQLite-backed durable storage for the market
// archive.
//
// Three tables:
//   - trade_days: session directory, unique on (symbol, session_date, source)
//   - bars: append-mostly OHLCV rows, unique per (session, timestamp) for
//     regular bars and per timestamp among halt bars
//   - day_annotations: append-only versioned notes with a supersession chain
//
// Invariants enforced here:
//   - Bars are immutable. Re-ingesting a stored bar either confirms it
//     (tolerance match, no write) or surfaces a conflict; the stored row is
//     never overwritten.
//   - Session rows converge: duplicate get-or-create attempts for the same
//     key resolve to a single row via the uniqueness constraint, not locks.
//   - Supersession is atomic: inserting annotation B and flipping its
//     predecessor to superseded happen in one transaction, and partial
//     application is never observable.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
package store
