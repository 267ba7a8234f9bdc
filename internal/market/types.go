package market

// Session is one trade day of one symbol from one data source.
// Identity is (Symbol, Day, Source); rows are created lazily by the
// directory's get-or-create path and are never mutated or deleted.
type Session struct {
	ID     int64  `json:"id"`
	Symbol string `json:"symbol"`
	Day    string `json:"session_date"` // ISO calendar date, YYYY-MM-DD
	Source string `json:"source"`
}

// OHLCV holds the five numeric fields of a bar.
type OHLCV struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// DefaultTolerance is the per-field absolute tolerance used when deciding
// whether a re-ingested bar is the same bar or a conflicting revision.
// Loose enough to absorb float round-trip noise from text sources, tight
// enough to catch real revisions.
const DefaultTolerance = 0.001

// WithinTolerance reports whether every field of o matches the corresponding
// field of other within the given absolute tolerance.
func (o OHLCV) WithinTolerance(other OHLCV, eps float64) bool {
	return withinEps(o.Open, other.Open, eps) &&
		withinEps(o.High, other.High, eps) &&
		withinEps(o.Low, other.Low, eps) &&
		withinEps(o.Close, other.Close, eps) &&
		withinEps(o.Volume, other.Volume, eps)
}

func withinEps(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < eps
}

// Bar is a stored OHLCV bar. SessionID is nil iff the bar fell inside the
// daily halt window; halt bars belong to no session.
type Bar struct {
	ID        int64  `json:"id"`
	SessionID *int64 `json:"session_id,omitempty"`
	Day       string `json:"session_date,omitempty"` // empty for halt bars
	Timestamp int64  `json:"timestamp"`              // UTC epoch seconds
	OHLCV
	Halt    bool   `json:"halt_period"`
	RawJSON string `json:"raw_json"`
}

// AnnotationStatus is the lifecycle state of an annotation.
type AnnotationStatus string

const (
	StatusActive     AnnotationStatus = "active"
	StatusSuperseded AnnotationStatus = "superseded"
)

// Annotation is a versioned note attached to a session. Annotations are
// never deleted; a newer annotation naming this one via SupersedesID flips
// its status to superseded.
type Annotation struct {
	ID           int64            `json:"id"`
	SessionID    int64            `json:"session_id"`
	Day          string           `json:"session_date"`
	Type         string           `json:"annotation_type"`
	Content      string           `json:"content"`
	Tags         []string         `json:"tags"`
	Source       string           `json:"source"`
	CreatedAt    int64            `json:"created_at"`
	SupersedesID *int64           `json:"supersedes_id,omitempty"`
	Status       AnnotationStatus `json:"status"`
}

// ConflictDetail records one bar whose key matched a stored bar but whose
// OHLCV differed beyond tolerance. The stored row is left untouched.
type ConflictDetail struct {
	Timestamp int64  `json:"timestamp"`
	Reason    string `json:"reason"`
	Existing  OHLCV  `json:"existing"`
	Incoming  OHLCV  `json:"new"`
}

// Report aggregates the outcome of one ingestion batch.
type Report struct {
	BatchID         string           `json:"batch_id"`
	Symbol          string           `json:"symbol"`
	Source          string           `json:"source"`
	Inserted        int              `json:"inserted"`
	Skipped         int              `json:"skipped"`
	Conflicts       int              `json:"conflicts"`
	ConflictDetails []ConflictDetail `json:"conflict_details"`
}
