package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const window = 60 * time.Second

// Fixed window request counter per identifier, shared by every server instance
type RedisLimiterStore struct {
	db         *redis.Client
	limiterKey string
	perMinute  int64
	failOpen   bool
}

type RedisLimiterConfig struct {
	RedisClient *redis.Client
	LimiterKey  string
	PerMinute   int64
	FailOpen    bool
}

func (store *RedisLimiterStore) key(identifier string) string {
	return "contestapi-ratelimit-" + store.limiterKey + "-" + identifier
}

// Allows up to perMinute requests per identifier in each window. Redis errors allow the
// request when the store fails open.
func (store *RedisLimiterStore) Allow(identifier string) (bool, error) {
	ctx := context.Background()
	key := store.key(identifier)

	// The window starts with the first request, later requests only count down
	if err := store.db.SetNX(ctx, key, store.perMinute, window).Err(); err != nil {
		return store.failOpen, err
	}

	left, err := store.db.Decr(ctx, key).Result()
	if err != nil {
		return store.failOpen, err
	}

	return left >= 0, nil
}

func NewRedisLimitStore(config RedisLimiterConfig) *RedisLimiterStore {
	return &RedisLimiterStore{
		perMinute:  config.PerMinute,
		db:         config.RedisClient,
		limiterKey: config.LimiterKey,
		failOpen:   config.FailOpen,
	}
}
