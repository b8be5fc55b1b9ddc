package redis

import (
	"context"
	"errors"
	"sort"
	"time"

	"vidya-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// KVStore persists date-scoped quiz state in Redis string keys.
// With a positive retention every key of a date expires at the same instant,
// the end of that UTC day plus retention. Rewrites set the same deadline, so
// a day's quiz, leaderboard and results never outlive one another.
type KVStore struct {
	client    redis.UniversalClient
	retention time.Duration
}

func NewKVStore(client redis.UniversalClient, retention time.Duration) *KVStore {
	return &KVStore{
		client:    client,
		retention: retention,
	}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	return s.write(ctx, s.client, key, value).Err()
}

// SetBatch writes all entries inside MULTI/EXEC.
func (s *KVStore) SetBatch(ctx context.Context, entries map[string][]byte) error {
	keys := make([]string, 0, len(entries))
	for key := range entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			s.write(ctx, pipe, key, entries[key])
		}
		return nil
	})
	return err
}

// Ping checks connectivity.
func (s *KVStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *KVStore) write(ctx context.Context, c redis.Cmdable, key string, value []byte) *redis.StatusCmd {
	if at, ok := s.expireAt(key); ok {
		return c.SetArgs(ctx, key, value, redis.SetArgs{ExpireAt: at})
	}
	return c.Set(ctx, key, value, 0)
}

// expireAt is the shared deadline of the date a key belongs to.
func (s *KVStore) expireAt(key string) (time.Time, bool) {
	if s.retention <= 0 {
		return time.Time{}, false
	}
	date, ok := domain.DateOfKey(key)
	if !ok {
		return time.Time{}, false
	}
	day, err := domain.ParseDate(date)
	if err != nil {
		return time.Time{}, false
	}
	return day.Add(24 * time.Hour).Add(s.retention), true
}
