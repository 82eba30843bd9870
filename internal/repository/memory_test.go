package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreMarkAndLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	sentAt := time.Date(2026, 3, 9, 17, 45, 0, 0, time.UTC)

	sent, err := store.HasSent(ctx, "occ-1", 15*time.Minute)
	require.NoError(t, err)
	assert.False(t, sent)

	require.NoError(t, store.MarkSent(ctx, "occ-1", 15*time.Minute, sentAt))

	sent, err = store.HasSent(ctx, "occ-1", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, sent)

	// Same occurrence, different lead time: distinct key.
	sent, err = store.HasSent(ctx, "occ-1", 24*time.Hour)
	require.NoError(t, err)
	assert.False(t, sent)
}

func TestMemoryStoreMarkSentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	first := time.Date(2026, 3, 9, 17, 45, 0, 0, time.UTC)

	require.NoError(t, store.MarkSent(ctx, "occ-1", 15*time.Minute, first))
	require.NoError(t, store.MarkSent(ctx, "occ-1", 15*time.Minute, first.Add(time.Minute)))

	assert.Equal(t, 1, store.Len())

	records, err := store.ListSentSince(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, records, 1)
	// The original sent_at wins; the second mark is a no-op.
	assert.Equal(t, first, records[0].SentAt)
}

func TestMemoryStoreListSentSince(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.MarkSent(ctx, "old", 15*time.Minute, base.Add(-48*time.Hour)))
	require.NoError(t, store.MarkSent(ctx, "recent", 15*time.Minute, base.Add(-time.Hour)))
	require.NoError(t, store.MarkSent(ctx, "newest", 15*time.Minute, base))

	records, err := store.ListSentSince(ctx, base.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "newest", records[0].OccurrenceID)
	assert.Equal(t, "recent", records[1].OccurrenceID)
}

func TestMemoryStorePruneBefore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	base := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.MarkSent(ctx, "ancient", 15*time.Minute, base.Add(-100*24*time.Hour)))
	require.NoError(t, store.MarkSent(ctx, "fresh", 15*time.Minute, base))

	pruned, err := store.PruneBefore(ctx, base.Add(-90*24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
	assert.Equal(t, 1, store.Len())

	sent, err := store.HasSent(ctx, "fresh", 15*time.Minute)
	require.NoError(t, err)
	assert.True(t, sent)
}
