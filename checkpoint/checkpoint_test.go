package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	cursor := &Cursor{
		ShardID:   2,
		Offset:    4096,
		Processed: 120,
		Skipped:   3,
	}
	require.NoError(t, s.Save(ctx, "run-a", cursor))
	assert.False(t, cursor.UpdatedAt.IsZero(), "Save should stamp UpdatedAt")

	loaded, err := s.Load(ctx, "run-a", 2)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, 2, loaded.ShardID)
	assert.Equal(t, int64(4096), loaded.Offset)
	assert.Equal(t, int64(120), loaded.Processed)
	assert.Equal(t, int64(3), loaded.Skipped)
	assert.WithinDuration(t, cursor.UpdatedAt, loaded.UpdatedAt, time.Millisecond)
}

func TestLoadAbsentReturnsNil(t *testing.T) {
	s := openTestStore(t)

	loaded, err := s.Load(context.Background(), "run-a", 7)
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestSaveOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "run-a", &Cursor{ShardID: 0, Offset: 100}))
	require.NoError(t, s.Save(ctx, "run-a", &Cursor{ShardID: 0, Offset: 900, Processed: 50}))

	loaded, err := s.Load(ctx, "run-a", 0)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, int64(900), loaded.Offset)
	assert.Equal(t, int64(50), loaded.Processed)
}

func TestClearRunRemovesOnlyThatRun(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "run-a", &Cursor{ShardID: 0, Offset: 10}))
	require.NoError(t, s.Save(ctx, "run-a", &Cursor{ShardID: 1, Offset: 20}))
	require.NoError(t, s.Save(ctx, "run-b", &Cursor{ShardID: 0, Offset: 30}))

	require.NoError(t, s.ClearRun(ctx, "run-a"))

	for _, shardID := range []int{0, 1} {
		loaded, err := s.Load(ctx, "run-a", shardID)
		require.NoError(t, err)
		assert.Nil(t, loaded)
	}

	other, err := s.Load(ctx, "run-b", 0)
	require.NoError(t, err)
	require.NotNil(t, other)
	assert.Equal(t, int64(30), other.Offset)
}

func TestRunKeyDependsOnPathAndSize(t *testing.T) {
	a := RunKey("/data/reviews.jsonl", 1024)
	assert.Equal(t, a, RunKey("/data/reviews.jsonl", 1024))
	assert.NotEqual(t, a, RunKey("/data/reviews.jsonl", 2048))
	assert.NotEqual(t, a, RunKey("/data/metadata.jsonl", 1024))
}

func TestCursorSerializationRoundTrip(t *testing.T) {
	in := Cursor{
		ShardID:   3,
		Offset:    1 << 40,
		Processed: 7,
		Skipped:   0,
		UpdatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	out, err := unmarshalCursor(marshalCursor(&in))
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}

func TestUnmarshalCursorRejectsGarbage(t *testing.T) {
	_, err := unmarshalCursor([]byte{0xff})
	assert.Error(t, err)
}
