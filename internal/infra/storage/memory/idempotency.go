package memory

import (
	"context"
	"sync"

	"voltpay/internal/app/payments"
)

// IdempotencyStore stores hold outcomes in memory.
type IdempotencyStore struct {
	mu    sync.RWMutex
	items map[string]payments.IdempotencyRecord
}

func NewIdempotencyStore() *IdempotencyStore {
	return &IdempotencyStore{items: make(map[string]payments.IdempotencyRecord)}
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (payments.IdempotencyRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *IdempotencyStore) Save(ctx context.Context, rec payments.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[rec.Key] = rec
	return nil
}

var _ payments.IdempotencyStore = (*IdempotencyStore)(nil)
