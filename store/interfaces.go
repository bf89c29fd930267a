package store

import (
	"context"

	"github.com/openshelf/reviewloader/core"
)

// Policy selects the referential-integrity behavior for review inserts.
type Policy int

const (
	// PolicyStrict fails the whole batch when a review references a
	// parent_asin absent from the metadata table.
	PolicyStrict Policy = iota + 1

	// PolicyResilient excludes such rows from the batch, counts them as
	// skipped, and commits the rest.
	PolicyResilient
)

// String implements fmt.Stringer.
func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyResilient:
		return "resilient"
	default:
		return "unknown"
	}
}

// Skipped describes a row excluded from a committed batch.
type Skipped struct {
	// Index is the row's position within the submitted batch.
	Index int

	// Reason is a human-readable explanation, e.g. the missing parent key.
	Reason string
}

// MetadataWriter commits product metadata batches.
type MetadataWriter interface {
	// UpsertMetadata writes the batch in one transaction as
	// insert-or-replace keyed by parent_asin. Re-running the same input
	// yields the same stored rows.
	UpsertMetadata(ctx context.Context, records []*core.MetadataRecord) error
}

// ReviewWriter commits review batches with their embeddings.
type ReviewWriter interface {
	// InsertReviews writes the batch and its index-aligned embedding
	// vectors in one transaction. Rows already present (same content
	// fingerprint) are silently left in place, so replaying a committed
	// batch is idempotent.
	//
	// Under PolicyResilient, rows referencing a missing parent_asin are
	// returned in skipped and the rest commit. Under PolicyStrict the same
	// condition returns ErrMissingParent and nothing commits.
	InsertReviews(ctx context.Context, records []*core.ReviewRecord, vectors [][]float32) (written int, skipped []Skipped, err error)
}

// Store combines the writers with lifecycle management.
// Implementations must be safe for concurrent use by multiple workers.
type Store interface {
	MetadataWriter
	ReviewWriter

	// Close releases the store's resources.
	Close() error
}
