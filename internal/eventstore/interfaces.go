package eventstore

import (
	"context"

	"github.com/dvloznov/commercepulse/internal/events"
)

// UpsertResult reports the outcome of a bulk upsert.
type UpsertResult struct {
	Matched  int64
	Modified int64
	Upserted int64
}

// Written is the number of documents created or changed.
func (r UpsertResult) Written() int64 {
	return r.Upserted + r.Modified
}

// Add accumulates another result into r.
func (r *UpsertResult) Add(o UpsertResult) {
	r.Matched += o.Matched
	r.Modified += o.Modified
	r.Upserted += o.Upserted
}

// Store is an idempotent document store keyed by event_id.
type Store interface {
	// EnsureIndexes creates the unique event_id index if it does not exist.
	EnsureIndexes(ctx context.Context) error

	// UpsertEvents writes each event with $set semantics, inserting when no
	// document with the same event_id exists.
	UpsertEvents(ctx context.Context, evts []events.RawEvent) (UpsertResult, error)

	// ScanAll returns every stored event.
	ScanAll(ctx context.Context) ([]events.RawEvent, error)

	// Count returns the number of stored events.
	Count(ctx context.Context) (int64, error)
}
