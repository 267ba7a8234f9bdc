package ingest

import (
	"errors"
	"fmt"

	"github.com/grayfold/archivist/internal/session"
)

// BatchError represents a fatal failure of an ingestion batch.
//
// Batch errors include:
//   - Invalid session: a record's timestamp falls on a day with no valid
//     session (Saturday); upstream data is corrupt
//   - Parse error: a record carried an unparseable timestamp or numeric field
//
// Either aborts the enclosing batch transaction: no partial inserts from the
// batch are retained. BatchError includes structured fields identifying the
// offending record.
type BatchError struct {
	// Code identifies the error category.
	Code BatchErrorCode

	// Message is a human-readable description.
	Message string

	// RecordIndex is the zero-based position of the offending record.
	RecordIndex int

	// Timestamp is the offending record's timestamp, when known.
	Timestamp int64

	// File names the source file, when the batch came from one.
	File string

	// Err is the underlying cause, if any.
	Err error
}

// BatchErrorCode categorizes batch errors.
type BatchErrorCode string

const (
	// ErrCodeInvalidSession indicates a record on a day with no session.
	ErrCodeInvalidSession BatchErrorCode = "INVALID_SESSION"

	// ErrCodeParse indicates a malformed input record.
	ErrCodeParse BatchErrorCode = "PARSE_ERROR"
)

// Error implements the error interface.
func (e *BatchError) Error() string {
	msg := fmt.Sprintf("%s: %s (record=%d", e.Code, e.Message, e.RecordIndex)
	if e.Timestamp != 0 {
		msg += fmt.Sprintf(", timestamp=%d", e.Timestamp)
	}
	if e.File != "" {
		msg += fmt.Sprintf(", file=%s", e.File)
	}
	return msg + ")"
}

// Unwrap returns the underlying cause.
func (e *BatchError) Unwrap() error {
	return e.Err
}

// IsInvalidSession returns true if the error is an invalid-session batch
// error. Uses errors.As to handle wrapped errors.
func IsInvalidSession(err error) bool {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Code == ErrCodeInvalidSession
	}
	var ise *session.InvalidSessionError
	return errors.As(err, &ise)
}

// IsParseError returns true if the error is a record parse error.
// Uses errors.As to handle wrapped errors.
func IsParseError(err error) bool {
	var be *BatchError
	if errors.As(err, &be) {
		return be.Code == ErrCodeParse
	}
	return false
}

// newInvalidSessionError wraps a resolver failure with record context.
func newInvalidSessionError(index int, file string, cause *session.InvalidSessionError) *BatchError {
	return &BatchError{
		Code:        ErrCodeInvalidSession,
		Message:     "no valid session for record timestamp",
		RecordIndex: index,
		Timestamp:   cause.Timestamp,
		File:        file,
		Err:         cause,
	}
}

// NewParseError reports a malformed record. Exposed for use by record
// readers so parse failures abort batches the same way resolver failures do.
func NewParseError(index int, file, message string, cause error) *BatchError {
	return &BatchError{
		Code:        ErrCodeParse,
		Message:     message,
		RecordIndex: index,
		File:        file,
		Err:         cause,
	}
}
