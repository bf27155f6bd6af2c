package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load([]string{"--config", filepath.Join(t.TempDir(), "missing.yaml")})
	require.NoError(t, err)

	assert.Equal(t, "http://hq.sinajs.cn", cfg.Feed.QuoteBaseURL)
	assert.Equal(t, "https://finance.sina.com.cn", cfg.Feed.Referer)
	assert.Equal(t, 10*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, 100, cfg.Feed.KlineBars)
	assert.Equal(t, 200*time.Millisecond, cfg.Engine.QuoteInterval)
	assert.Equal(t, 60*time.Second, cfg.Engine.KlineInterval)
	assert.Equal(t, 5, cfg.Engine.KlineRateLimit)
	assert.Equal(t, time.Second, cfg.Engine.KlineRatePeriod)
	assert.Equal(t, "", cfg.Engine.Seed)
	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, "klines", cfg.Cache.Namespace)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"*"}, cfg.HTTP.AllowOrigins)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
feed:
  timeout: 3s
engine:
  seed: sh600000,sz000001
  quote_interval: 1s
cache:
  enabled: true
  ttl: 1m
store:
  driver: postgres
  dsn: host=localhost user=tracker dbname=tracker
log:
  level: debug
`)
	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Feed.Timeout)
	assert.Equal(t, "sh600000,sz000001", cfg.Engine.Seed)
	assert.Equal(t, time.Second, cfg.Engine.QuoteInterval)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 60*time.Second, cfg.Engine.KlineInterval, "unset keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "engine:\n  seed: sh600000\n")
	t.Setenv("TRACKER_ENGINE_SEED", "sz000001")
	t.Setenv("TRACKER_CACHE_ADDR", "redis:6379")

	cfg, err := Load([]string{"--config", path})
	require.NoError(t, err)
	assert.Equal(t, "sz000001", cfg.Engine.Seed)
	assert.Equal(t, "redis:6379", cfg.Cache.Addr)
}

func TestLoad_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("TRACKER_ENGINE_SEED", "sz000001")
	t.Setenv("TRACKER_HTTP_ADDR", ":9000")

	cfg, err := Load([]string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--seed", "sh600000",
		"--addr", "127.0.0.1:7000",
	})
	require.NoError(t, err)
	assert.Equal(t, "sh600000", cfg.Engine.Seed)
	assert.Equal(t, "127.0.0.1:7000", cfg.HTTP.Addr)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
	}{
		{"unknown flag", func(t *testing.T) []string { return []string{"--nope"} }},
		{"broken yaml", func(t *testing.T) []string {
			return []string{"--config", writeConfig(t, "engine: [unterminated")}
		}},
		{"unsupported driver", func(t *testing.T) []string {
			return []string{"--config", writeConfig(t, "store:\n  driver: mysql\n")}
		}},
		{"non-positive interval", func(t *testing.T) []string {
			return []string{"--config", writeConfig(t, "engine:\n  quote_interval: 0s\n")}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.args(t))
			assert.Error(t, err)
		})
	}
}
