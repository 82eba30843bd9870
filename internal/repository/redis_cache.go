package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/zlog"

	"github.com/gatorlabs/labbot/internal/model"
	"github.com/gatorlabs/labbot/internal/ports"
)

// CachedStore puts a Redis fast path in front of another DedupStore.
// Postgres stays authoritative: only positive lookups are cached, cache
// errors fall through to the inner store, and a cache write failure is
// logged but never surfaced. Losing the cache can only cost an extra
// database read, never a duplicate reminder.
type CachedStore struct {
	inner      ports.DedupStore
	client     *redis.Client
	expiration time.Duration
}

func NewCachedStore(inner ports.DedupStore, client *redis.Client, expiration time.Duration) *CachedStore {
	return &CachedStore{
		inner:      inner,
		client:     client,
		expiration: expiration,
	}
}

func (s *CachedStore) HasSent(ctx context.Context, occurrenceID string, lead time.Duration) (bool, error) {
	key := sentKey(occurrenceID, lead)

	if val, err := s.client.Get(ctx, key); err == nil && val == "1" {
		return true, nil
	}

	sent, err := s.inner.HasSent(ctx, occurrenceID, lead)
	if err != nil {
		return false, err
	}
	if sent {
		s.cacheSent(ctx, key)
	}
	return sent, nil
}

func (s *CachedStore) MarkSent(ctx context.Context, occurrenceID string, lead time.Duration, sentAt time.Time) error {
	if err := s.inner.MarkSent(ctx, occurrenceID, lead, sentAt); err != nil {
		return err
	}
	s.cacheSent(ctx, sentKey(occurrenceID, lead))
	return nil
}

func (s *CachedStore) ListSentSince(ctx context.Context, since time.Time) ([]model.ReminderRecord, error) {
	return s.inner.ListSentSince(ctx, since)
}

// PruneBefore only touches the authoritative store; cached keys expire on
// their own TTL.
func (s *CachedStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return s.inner.PruneBefore(ctx, cutoff)
}

func (s *CachedStore) cacheSent(ctx context.Context, key string) {
	if err := s.client.SetWithExpiration(ctx, key, "1", s.expiration); err != nil {
		zlog.Logger.Warn().Err(err).Str("key", key).Msg("failed to cache sent reminder key")
	}
}

func sentKey(occurrenceID string, lead time.Duration) string {
	return fmt.Sprintf("labbot:sent:%s:%d", occurrenceID, int64(lead.Seconds()))
}
