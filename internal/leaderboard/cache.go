package leaderboard

import (
	"context"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/cache"
	"github.com/redis/go-redis/v9"
)

// CacheKey is the Redis hash holding serialized leaderboards.
// Field: "<timeframe>:<limit>".
const CacheKey = "leaderboard:cache"

// Cache stores computed leaderboards. Implementations treat every read or
// write failure as a miss. Entries are stored under the generation taken
// before they were computed; Invalidate starts a new one.
type Cache interface {
	Generation(ctx context.Context) int64
	Get(ctx context.Context, gen int64, key string) ([]Entry, bool)
	Set(ctx context.Context, gen int64, key string, entries []Entry)
	Invalidate(ctx context.Context) error
}

// NopCache never hits.
type NopCache struct{}

func (NopCache) Generation(context.Context) int64                   { return cache.NoGeneration }
func (NopCache) Get(context.Context, int64, string) ([]Entry, bool) { return nil, false }
func (NopCache) Set(context.Context, int64, string, []Entry)        {}
func (NopCache) Invalidate(context.Context) error                   { return nil }

// NewRedisCache keeps leaderboards in Redis for at most ttl.
func NewRedisCache(rdb *redis.Client, health cache.HealthReporter, ttl time.Duration) *cache.Hash[[]Entry] {
	return cache.NewHash[[]Entry](rdb, health, CacheKey, ttl)
}
