package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, DriverSqlite, cfg.Database.Driver)
	assert.Equal(t, "UTC", cfg.Clicks.Timezone)
	assert.Equal(t, int64(10000), cfg.Clicks.MaxClicksPerRequest)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, 10*time.Minute, cfg.Audit.Interval)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Empty(t, cfg.Logging.File)
	assert.Same(t, cfg, Cfg)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	content := `
server:
  address: ":9999"
database:
  driver: memory
clicks:
  timezone: Asia/Shanghai
  maxClicksPerRequest: 50
rateLimit:
  enabled: true
  window: 30s
  maxClicks: 200
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	t.Setenv("SERVER_ADDRESS", ":7777")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	assert.Equal(t, ":7777", cfg.Server.Address)
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, int64(50), cfg.Clicks.MaxClicksPerRequest)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)

	loc, err := cfg.Clicks.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Shanghai", loc.String())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Database: DatabaseConfig{Driver: DriverSqlite},
			Clicks:   ClicksConfig{Timezone: "UTC", MaxClicksPerRequest: 10000},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Database.Driver = "mysql"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Database.Driver = DriverPostgres
	assert.Error(t, cfg.Validate())
	cfg.Database.Postgres.DSN = "postgres://localhost/spam"
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Clicks.Timezone = "Not/AZone"
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.RateLimit = RateLimitConfig{Enabled: true}
	assert.Error(t, cfg.Validate())

	// 单次点击数必须有上限
	cfg = base()
	cfg.Clicks.MaxClicksPerRequest = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Audit.Interval = -time.Second
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Logging.File = "logs/server.log"
	assert.Error(t, cfg.Validate())
	cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups, cfg.Logging.MaxAgeDays = 10, 2, 7
	assert.NoError(t, cfg.Validate())
}
