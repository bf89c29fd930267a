package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"github.com/openshelf/reviewloader/core"
	"github.com/openshelf/reviewloader/store"
)

const insertReviewSQL = `
INSERT INTO user_reviews (
	asin, user_id, rating, title, review_text, images, parent_asin,
	ts, helpful_vote, verified_purchase, embedding, fingerprint
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (fingerprint) DO NOTHING`

const selectParentsSQL = `
SELECT parent_asin FROM metadata WHERE parent_asin = ANY($1)`

// InsertReviews writes the batch and its embeddings in one transaction.
// See store.ReviewWriter for the policy semantics.
func (s *Store) InsertReviews(ctx context.Context, records []*core.ReviewRecord, vectors [][]float32) (int, []store.Skipped, error) {
	if len(records) != len(vectors) {
		return 0, nil, fmt.Errorf("%w: %d records, %d vectors", store.ErrVectorMismatch, len(records), len(vectors))
	}
	if len(records) == 0 {
		return 0, nil, nil
	}
	if err := s.throttle(ctx); err != nil {
		return 0, nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, nil, classify(err)
	}
	defer tx.Rollback(ctx)

	var skipped []store.Skipped
	keep := records
	keepVecs := vectors
	if s.policy == store.PolicyResilient {
		keep, keepVecs, skipped, err = s.filterOrphans(ctx, tx, records, vectors)
		if err != nil {
			return 0, nil, err
		}
	}

	batch := &pgx.Batch{}
	for i, record := range keep {
		var ts *time.Time
		if t, ok := record.Time(); ok {
			ts = &t
		}
		batch.Queue(insertReviewSQL,
			record.ASIN,
			record.UserID,
			record.Rating.Float(),
			record.Title,
			record.Text,
			jsonArg(record.Images),
			record.ParentASIN,
			ts,
			record.HelpfulVote.Int(),
			record.VerifiedPurchase,
			pgvector.NewVector(keepVecs[i]),
			int64(record.Fingerprint()),
		)
	}

	written, err := flushReviewBatch(ctx, tx, batch)
	if err != nil {
		return 0, nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, nil, classify(err)
	}

	s.logger.Debug("review batch committed", "written", written, "skipped", len(skipped))
	return written, skipped, nil
}

// filterOrphans excludes rows whose parent_asin is not in the metadata
// table, returning the surviving rows and the skip report.
func (s *Store) filterOrphans(ctx context.Context, tx pgx.Tx, records []*core.ReviewRecord, vectors [][]float32) ([]*core.ReviewRecord, [][]float32, []store.Skipped, error) {
	asins := make([]string, 0, len(records))
	seen := make(map[string]bool, len(records))
	for _, record := range records {
		if !seen[record.ParentASIN] {
			seen[record.ParentASIN] = true
			asins = append(asins, record.ParentASIN)
		}
	}

	rows, err := tx.Query(ctx, selectParentsSQL, asins)
	if err != nil {
		return nil, nil, nil, classify(err)
	}
	present := make(map[string]bool, len(asins))
	for rows.Next() {
		var asin string
		if err := rows.Scan(&asin); err != nil {
			rows.Close()
			return nil, nil, nil, classify(err)
		}
		present[asin] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, nil, nil, classify(err)
	}

	keep := make([]*core.ReviewRecord, 0, len(records))
	keepVecs := make([][]float32, 0, len(vectors))
	var skipped []store.Skipped
	for i, record := range records {
		if !present[record.ParentASIN] {
			skipped = append(skipped, store.Skipped{
				Index:  i,
				Reason: fmt.Sprintf("parent_asin %s not in metadata", record.ParentASIN),
			})
			continue
		}
		keep = append(keep, record)
		keepVecs = append(keepVecs, vectors[i])
	}
	return keep, keepVecs, skipped, nil
}

// flushReviewBatch drains the batch results, counting affected rows.
// A foreign-key violation surfaces as ErrMissingParent so strict-mode
// callers can distinguish it from other fatal failures.
func flushReviewBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) (int, error) {
	written := 0
	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgErrForeignKeyViolation {
				return 0, fmt.Errorf("%w: %v", store.ErrMissingParent, err)
			}
			return 0, classify(err)
		}
		written += int(tag.RowsAffected())
	}
	if err := results.Close(); err != nil {
		return 0, classify(err)
	}
	return written, nil
}
