package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mailio/go-vault-server/types"
	"github.com/redis/go-redis/v9"
)

// RedisKeyValueStore implements KeyValueStore on top of redis. DEL is atomic, so only one
// concurrent DeleteIfPresent observes a removed count of 1.
type RedisKeyValueStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisKeyValueStore(client redis.UniversalClient, prefix string) *RedisKeyValueStore {
	return &RedisKeyValueStore{client: client, prefix: prefix}
}

func (r *RedisKeyValueStore) key(k string) string {
	return r.prefix + k
}

func (r *RedisKeyValueStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *RedisKeyValueStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, types.ErrNotFound
		}
		return nil, err
	}
	return val, nil
}

func (r *RedisKeyValueStore) DeleteIfPresent(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
