package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 100, cfg.Leaderboard.RankWindow)
	assert.Equal(t, 30*time.Second, cfg.Leaderboard.CacheTTL)
	assert.False(t, cfg.Database.Redis.Enabled)
	assert.Equal(t, 10*time.Minute, cfg.Database.Backup.Interval)
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte(`
server:
  address: ":9090"
  cors:
    allowedOrigins: ["https://example.org"]
database:
  driver: memory
  redis:
    enabled: true
    address: "cache:6379"
leaderboard:
  rankWindow: 50
  cacheTTL: 5s
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("DATABASE_DRIVER", "postgres")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Address)
	assert.Equal(t, []string{"https://example.org"}, cfg.Server.Cors.AllowedOrigins)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.True(t, cfg.Database.Redis.Enabled)
	assert.Equal(t, "cache:6379", cfg.Database.Redis.Address)
	assert.Equal(t, 50, cfg.Leaderboard.RankWindow)
	assert.Equal(t, 5*time.Second, cfg.Leaderboard.CacheTTL)
}
