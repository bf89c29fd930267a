package ingest

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWorkerCount is returned when a plan is requested for zero
	// or fewer workers.
	ErrInvalidWorkerCount = errors.New("worker count must be greater than 0")

	// ErrEmptyInput is returned when the input file contains no records.
	ErrEmptyInput = errors.New("input file contains no records")

	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbedding wraps embedding engine failures that exhausted the
	// batch-halving retry budget.
	ErrEmbedding = errors.New("embedding failed")

	// ErrStoreRequired is returned when a Coordinator is created without a store
	ErrStoreRequired = errors.New("store is required")

	// ErrEngineFactoryRequired is returned when a Coordinator is created without an engine factory
	ErrEngineFactoryRequired = errors.New("engine factory is required")
)

// RecordError describes one record that was excluded from ingestion.
// Offset is the byte offset of the record's line in the input file.
type RecordError struct {
	Offset int64
	Reason string
}

func (e RecordError) String() string {
	return fmt.Sprintf("offset %d: %s", e.Offset, e.Reason)
}

// permanentError marks an error that RetryWithBackoff must not retry.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so that RetryWithBackoff returns it immediately
// instead of consuming further attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}
