package memstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/reviewloader/core"
	"github.com/openshelf/reviewloader/store"
)

func metaRecord(parentASIN string) *core.MetadataRecord {
	return &core.MetadataRecord{ParentASIN: parentASIN, Title: "Product " + parentASIN}
}

func reviewRecord(asin, parentASIN, text string) *core.ReviewRecord {
	return &core.ReviewRecord{
		ASIN:       asin,
		UserID:     "user-" + asin,
		ParentASIN: parentASIN,
		Text:       text,
	}
}

func vectors(n int) [][]float32 {
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 1, 2}
	}
	return out
}

func TestUpsertMetadata_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := New(store.PolicyStrict)

	batch := []*core.MetadataRecord{metaRecord("A"), metaRecord("B")}
	require.NoError(t, s.UpsertMetadata(ctx, batch))
	require.NoError(t, s.UpsertMetadata(ctx, batch))

	assert.Equal(t, 2, s.MetadataCount())
	assert.Equal(t, "Product A", s.Metadata("A").Title)
}

func TestUpsertMetadata_ReplacesByKey(t *testing.T) {
	ctx := context.Background()
	s := New(store.PolicyStrict)

	require.NoError(t, s.UpsertMetadata(ctx, []*core.MetadataRecord{metaRecord("A")}))

	updated := metaRecord("A")
	updated.Title = "Renamed"
	require.NoError(t, s.UpsertMetadata(ctx, []*core.MetadataRecord{updated}))

	assert.Equal(t, 1, s.MetadataCount())
	assert.Equal(t, "Renamed", s.Metadata("A").Title)
}

func TestInsertReviews_Strict_MissingParentCommitsNothing(t *testing.T) {
	ctx := context.Background()
	s := New(store.PolicyStrict)
	require.NoError(t, s.UpsertMetadata(ctx, []*core.MetadataRecord{metaRecord("A")}))

	records := []*core.ReviewRecord{
		reviewRecord("r1", "A", "fine"),
		reviewRecord("r2", "D", "orphan"),
	}
	written, skipped, err := s.InsertReviews(ctx, records, vectors(2))

	require.ErrorIs(t, err, store.ErrMissingParent)
	assert.Zero(t, written)
	assert.Empty(t, skipped)
	assert.Zero(t, s.ReviewCount(), "strict failure must commit nothing")
}

func TestInsertReviews_Resilient_SkipsOrphans(t *testing.T) {
	ctx := context.Background()
	s := New(store.PolicyResilient)
	require.NoError(t, s.UpsertMetadata(ctx, []*core.MetadataRecord{metaRecord("A")}))

	records := []*core.ReviewRecord{
		reviewRecord("r1", "A", "fine"),
		reviewRecord("r2", "D", "orphan"),
	}
	written, skipped, err := s.InsertReviews(ctx, records, vectors(2))

	require.NoError(t, err)
	assert.Equal(t, 1, written)
	require.Len(t, skipped, 1)
	assert.Equal(t, 1, skipped[0].Index)
	assert.Contains(t, skipped[0].Reason, "D")
	assert.Equal(t, 1, s.ReviewCount())
}

func TestInsertReviews_FingerprintDedup(t *testing.T) {
	ctx := context.Background()
	s := New(store.PolicyStrict)
	require.NoError(t, s.UpsertMetadata(ctx, []*core.MetadataRecord{metaRecord("A")}))

	records := []*core.ReviewRecord{reviewRecord("r1", "A", "once")}

	written, _, err := s.InsertReviews(ctx, records, vectors(1))
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	// Replaying an already-committed batch writes nothing new.
	written, _, err = s.InsertReviews(ctx, records, vectors(1))
	require.NoError(t, err)
	assert.Zero(t, written)
	assert.Equal(t, 1, s.ReviewCount())
}

func TestInsertReviews_VectorMismatch(t *testing.T) {
	ctx := context.Background()
	s := New(store.PolicyStrict)

	_, _, err := s.InsertReviews(ctx, []*core.ReviewRecord{reviewRecord("r1", "A", "x")}, vectors(2))
	assert.ErrorIs(t, err, store.ErrVectorMismatch)
}

func TestFailNextBatch_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New(store.PolicyResilient)
	require.NoError(t, s.UpsertMetadata(ctx, []*core.MetadataRecord{metaRecord("A")}))

	injected := store.ErrTransient
	s.FailNextBatch(injected)

	records := []*core.ReviewRecord{
		reviewRecord("r1", "A", "one"),
		reviewRecord("r2", "A", "two"),
	}
	_, _, err := s.InsertReviews(ctx, records, vectors(2))
	require.ErrorIs(t, err, injected)
	assert.Zero(t, s.ReviewCount(), "failed batch must not be partially visible")

	// The failure is one-shot; the retry commits the full batch.
	written, _, err := s.InsertReviews(ctx, records, vectors(2))
	require.NoError(t, err)
	assert.Equal(t, 2, written)
}

func TestClosedStoreRejectsWrites(t *testing.T) {
	ctx := context.Background()
	s := New(store.PolicyStrict)
	require.NoError(t, s.Close())

	err := s.UpsertMetadata(ctx, []*core.MetadataRecord{metaRecord("A")})
	assert.ErrorIs(t, err, store.ErrStoreClosed)

	_, _, err = s.InsertReviews(ctx, nil, nil)
	assert.ErrorIs(t, err, store.ErrStoreClosed)
}
