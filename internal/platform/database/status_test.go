package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedisStatusTransitions(t *testing.T) {
	s := NewRedisStatus()
	s.SetInitialRunID("aaa")
	assert.True(t, s.Healthy())

	assert.False(t, s.Assess(true, "aaa"))
	assert.True(t, s.Healthy())

	assert.False(t, s.Assess(false, ""))
	assert.Equal(t, RedisDegraded, s.State())
	assert.False(t, s.Healthy())

	// Reconnecting flushes before trusting the cache again.
	assert.True(t, s.Assess(true, "aaa"))
	assert.Equal(t, RedisFlushing, s.State())
	s.MarkFlushComplete(true, "aaa")
	assert.Equal(t, RedisHealthy, s.State())

	assert.True(t, s.Assess(true, "bbb"))
	assert.Equal(t, RedisFlushing, s.State())

	// Redis restarted again while flushing: stay in flushing.
	s.MarkFlushComplete(true, "ccc")
	assert.Equal(t, RedisFlushing, s.State())
	assert.Equal(t, "ccc", s.LastRunID())

	assert.True(t, s.Assess(true, "ccc"))
	s.MarkFlushComplete(true, "ccc")
	assert.True(t, s.Healthy())
}

func TestNilRedisStatusIsUnhealthy(t *testing.T) {
	var s *RedisStatus
	assert.False(t, s.Healthy())
}
