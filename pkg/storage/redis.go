package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

// RedisKV implements core.KV on top of Redis strings.
type RedisKV struct {
	client redis.UniversalClient
}

// NewRedisKV creates a Redis-backed key/value store.
func NewRedisKV(client redis.UniversalClient) *RedisKV {
	return &RedisKV{client: client}
}

// Get returns the value stored under key.
func (s *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// Set stores value under key with no expiry.
func (s *RedisKV) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, key, value, 0).Err()
}

// Remove deletes key.
func (s *RedisKV) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// BatchSet writes all entries in a MULTI/EXEC transaction.
func (s *RedisKV) BatchSet(ctx context.Context, entries []core.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, e := range entries {
			pipe.Set(ctx, e.Key, e.Value, 0)
		}
		return nil
	})
	return err
}

// BatchRemove deletes all keys in one command.
func (s *RedisKV) BatchRemove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

var _ core.KV = (*RedisKV)(nil)
