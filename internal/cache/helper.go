package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// PostTTL bounds how long a cached post may lag behind the store.
const PostTTL = 5 * time.Minute

// PostKey is the cache key of a single post.
func PostKey(id string) string {
	return "post:" + id
}

// Store is a JSON cache over a possibly nil Redis client. A nil client turns every
// call into a miss or a no-op.
type Store struct {
	client *redis.Client
}

// NewStore wraps client.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// GetJSON loads key into dest. It returns false, nil on a miss.
func (s *Store) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	if s == nil || s.client == nil {
		return false, nil
	}
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores v under key for ttl.
func (s *Store) SetJSON(ctx context.Context, key string, v any, ttl time.Duration) error {
	if s == nil || s.client == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, ttl).Err()
}

// Invalidate drops keys.
func (s *Store) Invalidate(ctx context.Context, keys ...string) error {
	if s == nil || s.client == nil || len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// Aside serves key from Redis, or calls fetch to fill dest and caches the result.
// Cache read and write failures degrade to a plain fetch. It reports whether the
// value came from the cache.
func (s *Store) Aside(ctx context.Context, key string, dest any, ttl time.Duration, fetch func() error) (bool, error) {
	if found, err := s.GetJSON(ctx, key, dest); err == nil && found {
		return true, nil
	}

	if err := fetch(); err != nil {
		return false, err
	}

	_ = s.SetJSON(ctx, key, dest, ttl)
	return false, nil
}
