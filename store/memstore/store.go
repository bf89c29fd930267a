// Package memstore implements store.Store in memory.
//
// It mirrors the Postgres writer's semantics - per-batch atomicity, upsert
// by parent_asin, fingerprint dedup, strict/resilient policies - without a
// database, for tests and dry runs. Constructors return the concrete type
// so tests can reach the inspection and failure-injection hooks.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/openshelf/reviewloader/core"
	"github.com/openshelf/reviewloader/store"
)

// StoredReview is a committed review row with its embedding.
type StoredReview struct {
	Record      *core.ReviewRecord
	Vector      []float32
	Fingerprint core.Fingerprint
}

// Store implements store.Store in memory.
type Store struct {
	mu       sync.Mutex
	policy   store.Policy
	closed   bool
	metadata map[string]*core.MetadataRecord
	reviews  []StoredReview
	byFprint map[core.Fingerprint]bool

	// failNext, when set, fails the next write batch with this error after
	// consuming it. Used to simulate mid-batch writer failures.
	failNext error
}

var _ store.Store = (*Store)(nil)

// New creates an empty in-memory store with the given policy.
func New(policy store.Policy) *Store {
	return &Store{
		policy:   policy,
		metadata: make(map[string]*core.MetadataRecord),
		byFprint: make(map[core.Fingerprint]bool),
	}
}

// FailNextBatch arms a one-shot failure for the next write batch.
func (s *Store) FailNextBatch(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Close marks the store closed; further writes fail.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// UpsertMetadata implements store.MetadataWriter.
func (s *Store) UpsertMetadata(ctx context.Context, records []*core.MetadataRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrStoreClosed
	}
	if err := s.consumeFailure(); err != nil {
		return err
	}

	// Whole batch applies at once; no partial state is ever visible.
	for _, record := range records {
		s.metadata[record.ParentASIN] = record
	}
	return nil
}

// InsertReviews implements store.ReviewWriter.
func (s *Store) InsertReviews(ctx context.Context, records []*core.ReviewRecord, vectors [][]float32) (int, []store.Skipped, error) {
	if len(records) != len(vectors) {
		return 0, nil, fmt.Errorf("%w: %d records, %d vectors", store.ErrVectorMismatch, len(records), len(vectors))
	}
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, nil, store.ErrStoreClosed
	}
	if err := s.consumeFailure(); err != nil {
		return 0, nil, err
	}

	// Validate the whole batch before touching state, so a strict-mode
	// failure commits nothing.
	var skipped []store.Skipped
	pending := make([]StoredReview, 0, len(records))
	for i, record := range records {
		if _, ok := s.metadata[record.ParentASIN]; !ok {
			if s.policy == store.PolicyStrict {
				return 0, nil, fmt.Errorf("%w: parent_asin %s", store.ErrMissingParent, record.ParentASIN)
			}
			skipped = append(skipped, store.Skipped{
				Index:  i,
				Reason: fmt.Sprintf("parent_asin %s not in metadata", record.ParentASIN),
			})
			continue
		}
		pending = append(pending, StoredReview{
			Record:      record,
			Vector:      vectors[i],
			Fingerprint: record.Fingerprint(),
		})
	}

	written := 0
	for _, row := range pending {
		if s.byFprint[row.Fingerprint] {
			continue // idempotent replay
		}
		s.byFprint[row.Fingerprint] = true
		s.reviews = append(s.reviews, row)
		written++
	}
	return written, skipped, nil
}

// MetadataCount returns the number of stored metadata rows.
func (s *Store) MetadataCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.metadata)
}

// Metadata returns the stored record for a parent_asin, or nil.
func (s *Store) Metadata(parentASIN string) *core.MetadataRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.metadata[parentASIN]
}

// ReviewCount returns the number of stored review rows.
func (s *Store) ReviewCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reviews)
}

// Reviews returns a copy of the stored review rows.
func (s *Store) Reviews() []StoredReview {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]StoredReview, len(s.reviews))
	copy(out, s.reviews)
	return out
}

// consumeFailure must be called with the lock held.
func (s *Store) consumeFailure() error {
	if s.failNext == nil {
		return nil
	}
	err := s.failNext
	s.failNext = nil
	return err
}
