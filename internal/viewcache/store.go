package viewcache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sushihentaime/blogdesk/internal/common"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Store holds rendered page bodies keyed by common.CacheKeyView.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, body []byte) error
	Delete(ctx context.Context, key string) error
}

type memoryStore struct {
	c   *common.Cache
	ttl time.Duration
}

// NewMemoryStore keeps pages in process for ttl.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{c: common.NewCache(ttl, 2*ttl), ttl: ttl}
}

func (s *memoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}

	body, ok := v.([]byte)
	return body, ok, nil
}

func (s *memoryStore) Set(_ context.Context, key string, body []byte) error {
	s.c.Set(key, body, s.ttl)
	return nil
}

func (s *memoryStore) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore shares pages between instances through redis.
func NewRedisStore(client *redis.Client, ttl time.Duration) Store {
	return &redisStore{client: client, ttl: ttl}
}

func (s *redisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	body, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return body, true, nil
}

func (s *redisStore) Set(ctx context.Context, key string, body []byte) error {
	return s.client.Set(ctx, key, body, s.ttl).Err()
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}
