package ports

import (
	"context"
	"errors"

	"cultura/internal/domain/event"
)

var (
	ErrRawNotFound   = errors.New("raw record not found")
	ErrRawDuplicate  = errors.New("raw record already stored")
	ErrOutcomeExists = errors.New("enrichment outcome already exists")
)

// RawRecordStore is the document-store collection of immutable raw records.
type RawRecordStore interface {
	// InsertRaw stores rec. A record whose id or content hash is already present
	// is rejected with ErrRawDuplicate.
	InsertRaw(ctx context.Context, rec event.RawRecord) error
	GetRaw(ctx context.Context, id string) (event.RawRecord, error)
	// ListRaw returns raw records in key order; limit <= 0 means all of them.
	ListRaw(ctx context.Context, limit int) ([]event.RawRecord, error)
	// ListPendingRaw returns up to limit raw records that have no enrichment
	// outcome yet, plus the number of enriched records it stepped over.
	ListPendingRaw(ctx context.Context, limit int) ([]event.RawRecord, int, error)
	CountRaw(ctx context.Context) (int, error)
}

// OutcomeStore holds at most one enrichment outcome per raw id.
type OutcomeStore interface {
	GetOutcome(ctx context.Context, rawID string) (event.Outcome, bool, error)
	// InsertOutcome never overwrites: an existing outcome yields ErrOutcomeExists.
	InsertOutcome(ctx context.Context, outcome event.Outcome) error
	// CountOutcomes counts outcomes with the given status; an empty status counts all.
	CountOutcomes(ctx context.Context, status event.Status) (int, error)
	ListOutcomes(ctx context.Context, status event.Status, limit int) ([]event.Outcome, error)
}

// DocumentStore is the full document-store capability used by commands.
type DocumentStore interface {
	RawRecordStore
	OutcomeStore
}
