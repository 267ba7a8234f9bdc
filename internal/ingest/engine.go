package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/grayfold/archivist/internal/market"
	"github.com/grayfold/archivist/internal/session"
	"github.com/grayfold/archivist/internal/store"
)

// Record is one raw bar, already parsed to numeric form. Raw carries the
// original source fields verbatim for the audit payload.
type Record struct {
	Timestamp int64 // UTC epoch seconds
	OHLCV     market.OHLCV
	Raw       map[string]string
}

// Batch is one ingestion request. File is optional provenance, carried into
// batch error context.
type Batch struct {
	Records []Record
	Symbol  string
	Source  string
	File    string
}

// Engine ingests batches of bars into a store. Single-writer: callers must
// not run batches concurrently.
type Engine struct {
	store *store.Store
	zone  *time.Location

	// Tolerance is the per-field absolute tolerance for classifying a
	// re-ingested bar as duplicate vs. conflict.
	Tolerance float64

	batchIDs BatchIDGenerator
}

// New creates an ingestion engine. zone is the exchange's reference zone for
// session resolution. gen may be nil, in which case batch IDs are UUIDv7.
func New(st *store.Store, zone *time.Location, gen BatchIDGenerator) *Engine {
	if gen == nil {
		gen = UUIDv7Generator{}
	}
	return &Engine{
		store:     st,
		zone:      zone,
		Tolerance: market.DefaultTolerance,
		batchIDs:  gen,
	}
}

// IngestBatch runs a batch through resolution and storage in one
// transaction. On success the returned report counts inserted, skipped and
// conflicting records, with a detail entry per conflict. On an
// invalid-session or parse failure the transaction is rolled back and a
// *BatchError identifies the offending record; storage failures propagate
// wrapped.
func (e *Engine) IngestBatch(ctx context.Context, b Batch) (*market.Report, error) {
	report := &market.Report{
		BatchID:         e.batchIDs.Generate(),
		Symbol:          b.Symbol,
		Source:          b.Source,
		ConflictDetails: []market.ConflictDetail{},
	}

	tx, err := e.store.BeginBatch(ctx)
	if err != nil {
		return nil, fmt.Errorf("ingest batch: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for i, rec := range b.Records {
		res, err := session.Resolve(rec.Timestamp, e.zone)
		if err != nil {
			var ise *session.InvalidSessionError
			if errors.As(err, &ise) {
				return nil, newInvalidSessionError(i, b.File, ise)
			}
			return nil, fmt.Errorf("ingest batch: record %d: %w", i, err)
		}

		var sessionID *int64
		if !res.Halt {
			id, err := tx.GetOrCreateTradeDay(ctx, b.Symbol, res.Day, b.Source)
			if err != nil {
				return nil, fmt.Errorf("ingest batch: record %d: %w", i, err)
			}
			sessionID = &id
		}

		raw, err := rawPayload(rec)
		if err != nil {
			return nil, fmt.Errorf("ingest batch: record %d: %w", i, err)
		}

		verdict, detail, err := tx.InsertOrClassifyBar(
			ctx, sessionID, rec.Timestamp, rec.OHLCV, res.Halt, raw, e.Tolerance)
		if err != nil {
			return nil, fmt.Errorf("ingest batch: record %d: %w", i, err)
		}

		switch verdict {
		case store.BarInserted:
			report.Inserted++
		case store.BarSkipped:
			report.Skipped++
		case store.BarConflict:
			report.Conflicts++
			report.ConflictDetails = append(report.ConflictDetails, *detail)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ingest batch: %w", err)
	}
	return report, nil
}

// rawPayload serializes the audit copy of a record: the normalized numeric
// fields plus the source row verbatim.
func rawPayload(rec Record) (string, error) {
	payload := struct {
		Timestamp int64             `json:"timestamp"`
		Open      float64           `json:"open"`
		High      float64           `json:"high"`
		Low       float64           `json:"low"`
		Close     float64           `json:"close"`
		Volume    float64           `json:"volume"`
		SourceRow map[string]string `json:"source_row,omitempty"`
	}{
		Timestamp: rec.Timestamp,
		Open:      rec.OHLCV.Open,
		High:      rec.OHLCV.High,
		Low:       rec.OHLCV.Low,
		Close:     rec.OHLCV.Close,
		Volume:    rec.OHLCV.Volume,
		SourceRow: rec.Raw,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal raw payload: %w", err)
	}
	return string(data), nil
}
