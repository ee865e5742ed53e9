package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps rate limit counters in Redis so limits hold across
// multiple instances of the service.
type RedisStore struct {
	client *redis.Client
	prefix string
}

func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "ratelimit:"
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) Get(key string) (count int, resetTime time.Time, exists bool) {
	ctx := context.Background()
	fullKey := s.prefix + key

	pipe := s.client.Pipeline()
	getCmd := pipe.Get(ctx, fullKey)
	ttlCmd := pipe.TTL(ctx, fullKey)

	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, false
	}

	n, err := getCmd.Int()
	if err != nil {
		return 0, time.Time{}, false
	}

	ttl := ttlCmd.Val()
	if ttl <= 0 {
		return 0, time.Time{}, false
	}

	return n, time.Now().Add(ttl), true
}

func (s *RedisStore) Increment(key string, resetTime time.Time) int {
	ctx := context.Background()
	fullKey := s.prefix + key

	n, err := s.client.Incr(ctx, fullKey).Result()
	if err != nil {
		return 1
	}

	if n == 1 {
		s.client.ExpireAt(ctx, fullKey, resetTime)
	}

	return int(n)
}

func (s *RedisStore) Reset(key string) {
	s.client.Del(context.Background(), s.prefix+key)
}
