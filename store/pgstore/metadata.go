package pgstore

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/openshelf/reviewloader/core"
)

const upsertMetadataSQL = `
INSERT INTO metadata (
	parent_asin, main_category, title, average_rating, rating_number,
	features, description, price, images, videos, store, categories,
	details, bought_together
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (parent_asin) DO UPDATE SET
	main_category   = EXCLUDED.main_category,
	title           = EXCLUDED.title,
	average_rating  = EXCLUDED.average_rating,
	rating_number   = EXCLUDED.rating_number,
	features        = EXCLUDED.features,
	description     = EXCLUDED.description,
	price           = EXCLUDED.price,
	images          = EXCLUDED.images,
	videos          = EXCLUDED.videos,
	store           = EXCLUDED.store,
	categories      = EXCLUDED.categories,
	details         = EXCLUDED.details,
	bought_together = EXCLUDED.bought_together`

// UpsertMetadata writes the batch in one transaction, insert-or-replace
// keyed by parent_asin.
func (s *Store) UpsertMetadata(ctx context.Context, records []*core.MetadataRecord) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.throttle(ctx); err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, record := range records {
		batch.Queue(upsertMetadataSQL,
			record.ParentASIN,
			record.MainCategory,
			record.Title,
			record.AverageRating.Float(),
			record.RatingNumber.Int(),
			jsonArg(record.Features),
			jsonArg(record.Description),
			record.Price.Float(),
			jsonArg(record.Images),
			jsonArg(record.Videos),
			record.Store,
			jsonArg(record.Categories),
			jsonArg(record.Details),
			jsonArg(record.BoughtTogether),
		)
	}

	if err := flushBatch(ctx, tx, batch); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(err)
	}

	s.logger.Debug("metadata batch committed", "records", len(records))
	return nil
}

// flushBatch sends a queued batch over the transaction and drains results.
func flushBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch) error {
	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return classify(err)
		}
	}
	return classify(results.Close())
}

// jsonArg converts a raw JSON field to a jsonb parameter, mapping absent
// fields to NULL.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
