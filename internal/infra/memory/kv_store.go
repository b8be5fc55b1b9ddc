package memory

import (
	"context"
	"sync"
	"time"
)

// KVStore is an in-memory implementation of app.KVStore.
// Entries expire after ttl when it is positive.
type KVStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func NewKVStore(ttl time.Duration) *KVStore {
	return &KVStore{
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]entry),
	}
}

// NewKVStoreWithClock is test-only for deterministic expiry.
func NewKVStoreWithClock(ttl time.Duration, now func() time.Time) *KVStore {
	s := NewKVStore(ttl)
	s.clock = now
	return s
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[key]
	if !ok || s.expired(e) {
		return nil, false, nil
	}
	return append([]byte(nil), e.value...), true, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLocked(key, value)
	return nil
}

// SetBatch applies every entry under one lock.
func (s *KVStore) SetBatch(ctx context.Context, entries map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range entries {
		s.setLocked(key, value)
	}
	return nil
}

// Len reports the number of live entries.
func (s *KVStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if !s.expired(e) {
			n++
		}
	}
	return n
}

func (s *KVStore) setLocked(key string, value []byte) {
	e := entry{value: append([]byte(nil), value...)}
	if s.ttl > 0 {
		e.expiresAt = s.clock().Add(s.ttl)
	}
	s.entries[key] = e
}

func (s *KVStore) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(s.clock())
}
