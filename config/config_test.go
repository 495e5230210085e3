package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "@every 1m", cfg.Monitor.MissedDoseSpec)
	assert.Equal(t, "@every 5m", cfg.Monitor.LowStockSpec)
	assert.Equal(t, 15*time.Minute, cfg.Monitor.GracePeriod)
	assert.Equal(t, time.Minute, cfg.Monitor.MissedTolerance)
	assert.Equal(t, 5*time.Second, cfg.DrugAPI.ResolveTimeout)
	assert.Equal(t, 10*time.Second, cfg.DrugAPI.BulkTimeout)
	assert.Equal(t, 8*time.Second, cfg.DrugAPI.PairTimeout)
}

func TestLoadConfig_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	yml := `
server:
  port: 9000
database:
  driver: sqlite
  path: /tmp/pg.db
monitor:
  grace_period: 20m
drug_api:
  pair_timeout: 3s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(yml), 0o600))

	t.Setenv("PULSEGUARD_SERVER_PORT", "9100")
	t.Setenv("PULSEGUARD_SMTP_PASSWORD", "s3cret")
	t.Setenv("PULSEGUARD_REDIS_URL", "redis://cache:6379/1")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/tmp/pg.db", cfg.Database.Path)
	assert.Equal(t, 20*time.Minute, cfg.Monitor.GracePeriod)
	assert.Equal(t, 3*time.Second, cfg.DrugAPI.PairTimeout)
	assert.Equal(t, "s3cret", cfg.SMTP.Password)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.URL)
	assert.Equal(t, "redis://cache:6379/1", cfg.Redis.ToBrokerConfig().URL)
}

func TestLoadConfig_RejectsUnknownDriver(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte("database:\n  driver: mysql\n"), 0o600))

	_, err := LoadConfig(dir)
	assert.ErrorContains(t, err, "unsupported database driver")
}
