package store

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on top of a redis server. All keys are
// namespaced with a prefix so several projects can share one database.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// OpenRedis opens a client for the given address. It does not dial eagerly.
func OpenRedis(addr, password string, db int, prefix string) *RedisStore {
	return NewRedisStore(redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db}), prefix)
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Ping verifies the connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) stateKey(key string) string { return s.prefix + "state:" + key }
func (s *RedisStore) blobKey(key string) string  { return s.prefix + "blob:" + key }

func (s *RedisStore) GetState(ctx context.Context, key string) (string, bool) {
	val, err := s.client.Get(ctx, s.stateKey(key)).Result()
	if err != nil {
		return "", false
	}
	return val, true
}

func (s *RedisStore) SetState(ctx context.Context, key, val string) error {
	return s.client.Set(ctx, s.stateKey(key), val, 0).Err()
}

func (s *RedisStore) DeleteState(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.stateKey(key)).Err()
}

func (s *RedisStore) GetBlob(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, s.blobKey(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *RedisStore) SetBlob(ctx context.Context, key, val string) error {
	return s.client.Set(ctx, s.blobKey(key), val, 0).Err()
}
