package health

import (
	"context"
	"errors"
	"testing"

	"github.com/SlpAus/spot-the-lie-backend/internal/platform/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingCache struct {
	flushes int
	err     error
}

func (c *countingCache) Invalidate(context.Context) error {
	c.flushes++
	return c.err
}

func TestParseRunID(t *testing.T) {
	info := "# Server\r\nredis_version:7.2.4\r\nrun_id:3f9c0a8be51d2e\r\ntcp_port:6379\r\n"
	id, err := parseRunID(info)
	require.NoError(t, err)
	assert.Equal(t, "3f9c0a8be51d2e", id)

	_, err = parseRunID("# Server\r\nredis_version:7.2.4\r\n")
	assert.Error(t, err)
}

func TestCheckFlushesAfterOutageAndRestart(t *testing.T) {
	status := database.NewRedisStatus()
	cache := &countingCache{}
	c := NewChecker(nil, status, 0, cache)

	runID, probeErr := "aaa", error(nil)
	c.probe = func(context.Context) (string, error) { return runID, probeErr }
	ctx := context.Background()

	require.NoError(t, c.Init(ctx))
	c.Check(ctx)
	assert.Equal(t, 0, cache.flushes)
	assert.True(t, status.Healthy())

	probeErr = errors.New("connection refused")
	c.Check(ctx)
	assert.Equal(t, database.RedisDegraded, status.State())
	assert.False(t, status.Healthy())

	probeErr = nil
	c.Check(ctx)
	assert.Equal(t, 1, cache.flushes, "reconnect drops whatever was cached before the outage")
	assert.True(t, status.Healthy())

	runID = "bbb"
	c.Check(ctx)
	assert.Equal(t, 2, cache.flushes)
	assert.True(t, status.Healthy())
	assert.Equal(t, "bbb", status.LastRunID())
}

func TestFailedInvalidationKeepsCacheUntrusted(t *testing.T) {
	status := database.NewRedisStatus()
	good := &countingCache{}
	bad := &countingCache{err: errors.New("READONLY")}
	c := NewChecker(nil, status, 0, good, bad)
	c.probe = func(context.Context) (string, error) { return "aaa", nil }
	ctx := context.Background()
	require.NoError(t, c.Init(ctx))

	c.status.Assess(false, "")
	c.Check(ctx)
	assert.Equal(t, database.RedisFlushing, status.State())
	assert.False(t, status.Healthy())

	bad.err = nil
	c.Check(ctx)
	assert.True(t, status.Healthy())
	assert.Equal(t, 2, bad.flushes)
	assert.Equal(t, 2, good.flushes)
}
