// Package pgstore implements store.Store against Postgres.
//
// The schema is consumed, not owned. Expected tables:
//
//	metadata(parent_asin text PRIMARY KEY, main_category, title,
//	    average_rating, rating_number, features jsonb, description jsonb,
//	    price, images jsonb, videos jsonb, store, categories jsonb,
//	    details jsonb, bought_together jsonb)
//
//	user_reviews(review_id bigserial PRIMARY KEY, asin, user_id, rating,
//	    title, review_text, images jsonb,
//	    parent_asin text REFERENCES metadata(parent_asin), ts timestamptz,
//	    helpful_vote, verified_purchase, embedding vector(N),
//	    fingerprint bigint UNIQUE, fts tsvector GENERATED)
//
// The generated fts column is maintained by Postgres and never written
// here. The fingerprint column carries the review content hash; its unique
// index plus ON CONFLICT DO NOTHING makes replays idempotent.
package pgstore

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgxvec "github.com/pgvector/pgvector-go/pgx"
	"golang.org/x/time/rate"

	"github.com/openshelf/reviewloader/store"
)

// Config holds configuration for a Postgres store.
type Config struct {
	// ConnString is a pgx connection string or URL. When empty, connection
	// parameters come from the standard PG* environment variables.
	ConnString string

	// Policy selects strict or resilient referential-integrity handling.
	Policy store.Policy

	// WriteRate caps committed batches per second across the pool.
	// Zero means unlimited.
	WriteRate float64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Store implements store.Store against Postgres.
type Store struct {
	pool    *pgxpool.Pool
	policy  store.Policy
	limiter *rate.Limiter
	logger  *slog.Logger
}

var _ store.Store = (*Store)(nil)

// newStore is an internal constructor that returns the concrete type.
func newStore(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, err
	}
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return pgxvec.RegisterTypes(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	policy := cfg.Policy
	if policy == 0 {
		policy = store.PolicyStrict
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.WriteRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.WriteRate), 1)
	}

	return &Store{
		pool:    pool,
		policy:  policy,
		limiter: limiter,
		logger:  logger.With("component", "pgstore", "policy", policy.String()),
	}, nil
}

// New opens a connection pool and verifies connectivity.
//
// Returns store.Store interface to enforce abstraction.
func New(ctx context.Context, cfg Config) (store.Store, error) {
	s, err := newStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.pool.Ping(ctx); err != nil {
		s.pool.Close()
		return nil, classify(err)
	}
	return s, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// throttle blocks until the write limiter admits another batch.
func (s *Store) throttle(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}
