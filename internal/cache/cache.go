// Package cache provides an invalidation-driven read cache for GET-shaped
// responses. Write paths call Invalidate with the keys of every resource
// they touched; handlers cache serialized responses under those keys.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store interface {
	// GetJSON loads a cached value into dest and reports whether it was found.
	GetJSON(ctx context.Context, key string, dest interface{}) bool
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, keys ...string)
}

// Connect returns a redis-backed store, or a no-op store when redisURL is
// empty or the server is unreachable. The API keeps working without a cache.
func Connect(redisURL string) Store {
	if redisURL == "" {
		return Noop{}
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		opts = &redis.Options{Addr: redisURL}
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Println("Redis not available, running without cache:", err)
		return Noop{}
	}

	return &redisStore{client: client}
}

type redisStore struct {
	client *redis.Client
}

func (s *redisStore) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (s *redisStore) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	s.client.Set(ctx, key, data, ttl)
}

func (s *redisStore) Invalidate(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	s.client.Del(ctx, keys...)
}

// Noop satisfies Store when no cache backend is configured.
type Noop struct{}

func (Noop) GetJSON(ctx context.Context, key string, dest interface{}) bool         { return false }
func (Noop) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {}
func (Noop) Invalidate(ctx context.Context, keys ...string)                         {}
