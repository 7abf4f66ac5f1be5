package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "supportchat:"

// RedisStore keeps flags in Redis under a key prefix.
type RedisStore struct {
	Redis  *redis.Client
	Prefix string
}

// NewRedisStore connects to the Redis instance at url (redis://...) and
// verifies it answers.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return &RedisStore{Redis: rdb, Prefix: defaultPrefix}, nil
}

func (s *RedisStore) key(k string) string { return s.Prefix + k }

// GetFlag reads a flag; redis.Nil means unset.
func (s *RedisStore) GetFlag(ctx context.Context, key string) (bool, error) {
	v, err := s.Redis.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", key, err)
	}
	return decodeFlag(v), nil
}

func (s *RedisStore) SetFlag(ctx context.Context, key string, value bool) error {
	if err := s.Redis.Set(ctx, s.key(key), encodeFlag(value), 0).Err(); err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.Redis.Del(ctx, s.key(key)).Err(); err != nil {
		return fmt.Errorf("deleting %s: %w", key, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *RedisStore) Close() error {
	return s.Redis.Close()
}
