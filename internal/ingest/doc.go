// Package ingest drives batches of raw bar records through session
// resolution and into the store.
//
// The engine is a deterministic, offline dedup/classification pipeline, not
// a network client: no retries anywhere. Per record it resolves the owning
// trade day (or the halt window), get-or-creates the session row, and asks
// the store to insert or classify the bar. Verdicts accumulate into a
// Report; conflicts are data, not faults, and never stop the batch.
//
// The whole batch runs as one storage transaction. A Saturday timestamp or
// an unparseable record aborts and rolls back everything - a single bad
// record invalidates the batch rather than being silently dropped, since
// such data indicates upstream corruption.
package ingest
