package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/gatorlabs/labbot/internal/model"
)

// MemoryStore is an in-process DedupStore. It backs tests and broker-less
// development runs; it does not survive restarts, so production deployments
// use the Postgres store.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]model.ReminderRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.ReminderRecord),
	}
}

func (s *MemoryStore) HasSent(_ context.Context, occurrenceID string, lead time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[sentKey(occurrenceID, lead)]
	return ok, nil
}

func (s *MemoryStore) MarkSent(_ context.Context, occurrenceID string, lead time.Duration, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sentKey(occurrenceID, lead)
	if _, ok := s.records[key]; ok {
		return nil
	}
	s.records[key] = model.ReminderRecord{
		OccurrenceID: occurrenceID,
		LeadTime:     lead,
		SentAt:       sentAt.UTC(),
	}
	return nil
}

func (s *MemoryStore) ListSentSince(_ context.Context, since time.Time) ([]model.ReminderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := []model.ReminderRecord{}
	for _, rec := range s.records {
		if !rec.SentAt.Before(since) {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].SentAt.After(records[j].SentAt)
	})
	return records, nil
}

func (s *MemoryStore) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var pruned int64
	for key, rec := range s.records {
		if rec.SentAt.Before(cutoff) {
			delete(s.records, key)
			pruned++
		}
	}
	return pruned, nil
}

// Len reports how many records the store holds. Test helper.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
