package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/grayfold/archivist/internal/market"
)

// ErrSupersedeTarget is returned when a save names a supersedes target that
// does not exist or is no longer active. The ledger is append-only; a
// dangling supersedes link would silently break the one-successor chain, so
// the save fails instead. Fatal to that single save only.
var ErrSupersedeTarget = errors.New("supersedes target not found or not active")

// AnnotationDraft carries the fields of an annotation to be saved.
// CreatedAt is caller-supplied (UTC epoch seconds) so writes stay
// deterministic under test clocks.
type AnnotationDraft struct {
	Symbol       string
	Day          string // ISO session date
	DaySource    string // provenance tag of the session directory entry
	Type         string
	Content      string
	Tags         []string
	Source       string // provenance of the note itself
	CreatedAt    int64
	SupersedesID *int64
}

// SaveAnnotation inserts a new active annotation, creating the session row
// if needed. If the draft names a predecessor, that annotation's status is
// flipped active→superseded in the same transaction; the flip and the
// insert are never observable separately.
func (s *Store) SaveAnnotation(ctx context.Context, draft AnnotationDraft) (int64, error) {
	tags := market.NormalizeTags(draft.Tags)
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return 0, fmt.Errorf("save annotation: marshal tags: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("save annotation: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	tradeDayID, err := getOrCreateTradeDay(ctx, tx, draft.Symbol, draft.Day, draft.DaySource)
	if err != nil {
		return 0, fmt.Errorf("save annotation: %w", err)
	}

	// Claim the predecessor first. The status guard makes the flip happen
	// exactly once: a second successor, or a bogus id, affects zero rows.
	if draft.SupersedesID != nil {
		result, err := tx.ExecContext(ctx, `
			UPDATE day_annotations SET status = ? WHERE id = ? AND status = ?
		`, market.StatusSuperseded, *draft.SupersedesID, market.StatusActive)
		if err != nil {
			return 0, fmt.Errorf("save annotation: supersede: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("save annotation: supersede rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return 0, fmt.Errorf("save annotation: id %d: %w", *draft.SupersedesID, ErrSupersedeTarget)
		}
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO day_annotations
		(trade_day_id, annotation_type, content, tags, source, created_at, supersedes_id, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, tradeDayID, draft.Type, draft.Content, string(tagsJSON), draft.Source,
		draft.CreatedAt, draft.SupersedesID, market.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("save annotation: insert: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("save annotation: last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("save annotation: commit: %w", err)
	}
	return id, nil
}

// AnnotationQuery selects annotations for QueryAnnotations.
// Status may be "active", "superseded" or "all". Tags match with OR
// semantics: an annotation qualifies if it holds any requested tag.
type AnnotationQuery struct {
	Symbol   string
	From, To string // inclusive session date range
	Status   string
	Type     string
	Tags     []string
}

// StatusAll disables the status filter in AnnotationQuery.
const StatusAll = "all"

// QueryAnnotations returns annotations ordered by (session date, creation
// time). The tag filter runs after the scan because tags are stored as a
// JSON array.
func (s *Store) QueryAnnotations(ctx context.Context, aq AnnotationQuery) ([]market.Annotation, error) {
	query := `
		SELECT da.id, da.trade_day_id, td.session_date, da.annotation_type,
		       da.content, da.tags, da.source, da.created_at, da.supersedes_id, da.status
		FROM day_annotations da
		JOIN trade_days td ON da.trade_day_id = td.id
		WHERE td.symbol = ?
		  AND td.session_date >= ?
		  AND td.session_date <= ?
	`
	args := []any{aq.Symbol, aq.From, aq.To}

	if aq.Status != "" && aq.Status != StatusAll {
		query += " AND da.status = ?"
		args = append(args, aq.Status)
	}
	if aq.Type != "" {
		query += " AND da.annotation_type = ?"
		args = append(args, aq.Type)
	}

	query += " ORDER BY td.session_date ASC, da.created_at ASC, da.id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query annotations: %w", err)
	}
	defer rows.Close()

	wantTags := market.NormalizeTags(aq.Tags)

	var annotations []market.Annotation
	for rows.Next() {
		var a market.Annotation
		var tagsJSON string
		var supersedes *int64
		if err := rows.Scan(
			&a.ID, &a.SessionID, &a.Day, &a.Type,
			&a.Content, &tagsJSON, &a.Source, &a.CreatedAt, &supersedes, &a.Status,
		); err != nil {
			return nil, fmt.Errorf("scan annotation: %w", err)
		}
		a.SupersedesID = supersedes

		if err := json.Unmarshal([]byte(tagsJSON), &a.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal tags for annotation %d: %w", a.ID, err)
		}
		if a.Tags == nil {
			a.Tags = []string{}
		}

		if !market.AnyTagMatches(a.Tags, wantTags) {
			continue
		}
		annotations = append(annotations, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotations: %w", err)
	}

	// Return empty slice instead of nil
	if annotations == nil {
		annotations = []market.Annotation{}
	}

	return annotations, nil
}
