package database

import (
	"context"
	"fmt"
	"log"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

// OpenRedis 连接Redis并通过PING验证连接。
// 如果配置中禁用了缓存，则返回 nil, nil。
func OpenRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		log.Println("database: redis disabled, caches run in pass-through mode")
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis at %s: %w", cfg.Address, err)
	}
	log.Printf("database: redis connected at %s", cfg.Address)
	return rdb, nil
}
