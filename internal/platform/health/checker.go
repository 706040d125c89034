package health

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"time"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/SlpAus/spot-the-lie-backend/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultInterval = 5 * time.Second
	pingTimeout     = 2 * time.Second
)

var runIDPattern = regexp.MustCompile(`run_id:([a-f0-9]+)`)

// Invalidator 清空可能包含过期数据的缓存。
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Checker 定期检测Redis，驱动 RedisStatus 状态机，
// 并在Redis恢复或重启后清空缓存。
type Checker struct {
	rdb      *redis.Client
	status   *database.RedisStatus
	caches   []Invalidator
	interval time.Duration

	// probe 读取服务器的run_id，测试中会被替换
	probe func(ctx context.Context) (string, error)
}

func NewChecker(rdb *redis.Client, status *database.RedisStatus, interval time.Duration, caches ...Invalidator) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	c := &Checker{rdb: rdb, status: status, caches: caches, interval: interval}
	c.probe = c.runID
	return c
}

func (c *Checker) runID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	info, err := c.rdb.Info(ctx, "server").Result()
	if err != nil {
		return "", err
	}
	return parseRunID(info)
}

func parseRunID(info string) (string, error) {
	m := runIDPattern.FindStringSubmatch(info)
	if len(m) < 2 {
		return "", fmt.Errorf("run_id missing from redis INFO")
	}
	return m[1], nil
}

// Init 记录启动时Redis的run_id。
func (c *Checker) Init(ctx context.Context) error {
	id, err := c.probe(ctx)
	if err != nil {
		return fmt.Errorf("read initial redis run_id: %w", err)
	}
	c.status.SetInitialRunID(id)
	log.Printf("health: initial redis run_id %s", id)
	return nil
}

// Check 执行一次检测，必要时执行一次清空。
func (c *Checker) Check(ctx context.Context) {
	id, err := c.probe(ctx)
	if !c.status.Assess(err == nil, id) {
		return
	}
	flushed := true
	for _, cache := range c.caches {
		if err := cache.Invalidate(ctx); err != nil {
			log.Printf("health: %v", err)
			flushed = false
		}
	}
	after, err := c.probe(ctx)
	c.status.MarkFlushComplete(flushed && err == nil, after)
}

// Run 按间隔执行检测，直到h被取消。
func (c *Checker) Run(h *lifecycle.Handle) {
	defer h.Close()
	log.Printf("health: redis checker started, interval %s", c.interval)
	for {
		if err := h.Sleep(c.interval); err != nil {
			log.Println("health: redis checker stopped")
			return
		}
		c.Check(h.Ctx())
	}
}
