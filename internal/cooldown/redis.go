package cooldown

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "crisis:cooldown"

// RedisStore shares cooldown records across replicas. SET NX with a TTL equal
// to the window is the atomic check-and-write: the key exists exactly while
// the window is open.
type RedisStore struct {
	redis      *redis.Client
	window     time.Duration
	categories []string
}

// NewRedisStore creates a Redis-backed store. categories is the closed set of
// category names Reset clears.
func NewRedisStore(client *redis.Client, window time.Duration, categories []string) *RedisStore {
	if client == nil {
		panic("cooldown: redis client cannot be nil")
	}
	if len(categories) == 0 {
		panic("cooldown: redis store requires the category set")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisStore{redis: client, window: window, categories: append([]string(nil), categories...)}
}

func (s *RedisStore) key(userID, category string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, userID, category)
}

// Allow implements the cooldown check. The stored value is the trigger time in epoch seconds.
func (s *RedisStore) Allow(ctx context.Context, userID, category string, now time.Time) (bool, error) {
	if userID == "" {
		return true, nil
	}
	ok, err := s.redis.SetNX(ctx, s.key(userID, category), strconv.FormatInt(now.Unix(), 10), s.window).Result()
	if err != nil {
		return false, fmt.Errorf("cooldown: redis setnx: %w", err)
	}
	return ok, nil
}

// LastTrigger returns the recorded trigger time, or zero when no window is open.
func (s *RedisStore) LastTrigger(ctx context.Context, userID, category string) (time.Time, error) {
	val, err := s.redis.Get(ctx, s.key(userID, category)).Int64()
	if err == redis.Nil {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("cooldown: redis get: %w", err)
	}
	return time.Unix(val, 0).UTC(), nil
}

// Reset deletes every open window for userID. Keys are built exactly, never
// matched, so user IDs sharing a prefix or holding glob characters stay apart.
func (s *RedisStore) Reset(ctx context.Context, userID string) (int, error) {
	if userID == "" {
		return 0, nil
	}
	keys := make([]string, 0, len(s.categories))
	for _, category := range s.categories {
		keys = append(keys, s.key(userID, category))
	}
	n, err := s.redis.Del(ctx, keys...).Result()
	if err != nil {
		return 0, fmt.Errorf("cooldown: redis del: %w", err)
	}
	return int(n), nil
}
