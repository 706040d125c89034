package database

import (
	"log"
	"sync"
)

// RedisState 是健康检查器看到的缓存状态。
type RedisState int

const (
	RedisHealthy RedisState = iota
	// RedisDegraded 表示Redis不可达，缓存被绕过。
	RedisDegraded
	// RedisFlushing 表示Redis已重启，正在清理过期的键。
	RedisFlushing
)

func (s RedisState) String() string {
	switch s {
	case RedisHealthy:
		return "healthy"
	case RedisDegraded:
		return "degraded"
	case RedisFlushing:
		return "flushing"
	default:
		return "unknown"
	}
}

// RedisStatus 记录缓存的健康状态以及最近一次已知的Redis run_id。
// 缓存在访问Redis之前先检查 Healthy。
type RedisStatus struct {
	mu        sync.RWMutex
	state     RedisState
	lastRunID string
}

func NewRedisStatus() *RedisStatus {
	return &RedisStatus{state: RedisHealthy}
}

// Healthy 可以在nil上调用，此时视为不健康。
func (s *RedisStatus) Healthy() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == RedisHealthy
}

func (s *RedisStatus) State() RedisState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *RedisStatus) SetInitialRunID(runID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRunID = runID
}

func (s *RedisStatus) LastRunID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRunID
}

// Assess 将一次检测结果并入状态机，
// 并返回缓存在重新可信之前是否需要清空。
func (s *RedisStatus) Assess(connected bool, runID string) (needsFlush bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	restarted := connected && s.lastRunID != "" && s.lastRunID != runID
	switch {
	case !connected:
		if s.state != RedisDegraded {
			log.Printf("health: redis unreachable, state %s -> %s", s.state, RedisDegraded)
		}
		s.state = RedisDegraded
	case restarted || s.state != RedisHealthy:
		// Redis不可达期间的写入没有让缓存失效
		if s.state != RedisFlushing {
			log.Printf("health: redis back or restarted (run_id %s -> %s), state %s -> %s", s.lastRunID, runID, s.state, RedisFlushing)
		}
		s.state = RedisFlushing
		needsFlush = true
	}

	if connected {
		s.lastRunID = runID
	}
	return needsFlush
}

// MarkFlushComplete 结束一次清空。如果清空期间run_id发生了变化，
// 说明Redis再次重启，需要重新清空。
func (s *RedisStatus) MarkFlushComplete(success bool, runIDAfter string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != RedisFlushing {
		return
	}
	if success && runIDAfter != s.lastRunID {
		log.Printf("health: redis restarted during flush (run_id %s -> %s), retrying", s.lastRunID, runIDAfter)
		s.lastRunID = runIDAfter
		return
	}
	if success {
		s.state = RedisHealthy
		log.Printf("health: cache flush complete, state -> %s", RedisHealthy)
		return
	}
	log.Println("health: cache flush failed, will retry on next check")
}
