package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// HealthReporter tells a cache whether Redis can be trusted right now.
type HealthReporter interface {
	Healthy() bool
}

// NoGeneration is returned by Generation when the cache cannot be used.
// Get and Set ignore it.
const NoGeneration int64 = -1

type envelope[T any] struct {
	CachedAt time.Time `json:"cachedAt"`
	Value    T         `json:"value"`
}

// Hash caches JSON values in the fields of one Redis hash. Each value carries
// its write time and reads older than TTL are misses, so fields expire
// individually without HEXPIRE. Every Redis failure is logged and treated as
// a miss.
//
// Fields are scoped by a generation counter kept next to the hash.
// Invalidate bumps it, so a fill that read the database before an
// invalidation writes into a generation no reader asks for.
type Hash[T any] struct {
	rdb    *redis.Client
	health HealthReporter
	key    string
	ttl    time.Duration
	Now    func() time.Time
}

// NewHash returns a cache over the Redis hash at key. rdb may be nil, which
// makes every call a miss or no-op.
func NewHash[T any](rdb *redis.Client, health HealthReporter, key string, ttl time.Duration) *Hash[T] {
	return &Hash[T]{rdb: rdb, health: health, key: key, ttl: ttl, Now: time.Now}
}

func (h *Hash[T]) usable() bool {
	return h.rdb != nil && (h.health == nil || h.health.Healthy())
}

func (h *Hash[T]) generationKey() string {
	return h.key + ":gen"
}

func scoped(gen int64, field string) string {
	return strconv.FormatInt(gen, 10) + ":" + field
}

// Generation returns the current generation. Take it before reading the
// source of a value and pass it to both Get and Set.
func (h *Hash[T]) Generation(ctx context.Context) int64 {
	if !h.usable() {
		return NoGeneration
	}
	gen, err := h.rdb.Get(ctx, h.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		log.Printf("cache %s: generation read failed: %v", h.key, err)
		return NoGeneration
	}
	return gen
}

func (h *Hash[T]) Get(ctx context.Context, gen int64, field string) (T, bool) {
	var zero T
	if gen == NoGeneration || !h.usable() {
		return zero, false
	}
	raw, err := h.rdb.HGet(ctx, h.key, scoped(gen, field)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		log.Printf("cache %s: read failed: %v", h.key, err)
		return zero, false
	}
	var env envelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return zero, false
	}
	if h.Now().Sub(env.CachedAt) > h.ttl {
		return zero, false
	}
	return env.Value, true
}

func (h *Hash[T]) Set(ctx context.Context, gen int64, field string, v T) {
	if gen == NoGeneration || !h.usable() {
		return
	}
	raw, err := json.Marshal(envelope[T]{CachedAt: h.Now(), Value: v})
	if err != nil {
		log.Printf("cache %s: encode failed: %v", h.key, err)
		return
	}
	pipe := h.rdb.Pipeline()
	pipe.HSet(ctx, h.key, scoped(gen, field), raw)
	pipe.Expire(ctx, h.key, h.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("cache %s: write failed: %v", h.key, err)
	}
}

// Invalidate moves to a new generation and drops every field. It ignores the
// health state so a recovering Redis can be cleared before it is trusted
// again.
func (h *Hash[T]) Invalidate(ctx context.Context) error {
	if h.rdb == nil {
		return nil
	}
	pipe := h.rdb.TxPipeline()
	pipe.Incr(ctx, h.generationKey())
	pipe.Del(ctx, h.key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("invalidate cache %s: %w", h.key, err)
	}
	return nil
}
