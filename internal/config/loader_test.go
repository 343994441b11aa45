package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccbot/internal/constants"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
server:
  port: 8080
telegram:
  bot_token: "123:abc"
  admin_ids: [100, 200]
`

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, []int64{100, 200}, cfg.Telegram.AdminIDs)
	assert.Equal(t, constants.DefaultTelegramAPIURL, cfg.Telegram.APIURL)
	assert.Equal(t, constants.DefaultBindingTimeout, cfg.Dispatch.BindingTimeout)
	assert.Equal(t, constants.DefaultHTTPAttemptTimeout, cfg.Dispatch.HTTPTimeout)
	assert.Equal(t, constants.DefaultHTTPMaxAttempts, cfg.Dispatch.Retry.MaxAttempts)
	assert.Equal(t, constants.DefaultUpdateDedupTTL, cfg.Deduplication.TTL)
	assert.Equal(t, constants.DefaultKVNamespace, cfg.Database.Redis.KeyPrefix)
}

func TestLoadConfig_FileValues(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig+`
dispatch:
  worker_url: worker.example.com
  embed_worker: true
  retry:
    interval: 250ms
scan:
  enabled: true
  enabled_groups: [-1001]
  rule: 'chat_type == "supergroup"'
deduplication:
  enabled: true
  ttl: 1h
circuit_breaker:
  enabled: true
  failure_ratio: 0.5
`))
	require.NoError(t, err)

	assert.Equal(t, "worker.example.com", cfg.Dispatch.WorkerURL)
	assert.True(t, cfg.Dispatch.EmbedWorker)
	assert.Equal(t, 250*time.Millisecond, cfg.Dispatch.Retry.Interval)
	assert.True(t, cfg.Scan.Enabled)
	assert.Equal(t, []int64{-1001}, cfg.Scan.EnabledGroups)
	assert.Equal(t, `chat_type == "supergroup"`, cfg.Scan.Rule)
	assert.True(t, cfg.Deduplication.Enabled)
	assert.Equal(t, time.Hour, cfg.Deduplication.TTL)
	assert.True(t, cfg.CircuitBreaker.Enabled)
	assert.Equal(t, 0.5, cfg.CircuitBreaker.FailureRatio)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "999:env")
	t.Setenv("ADMIN_IDS", "1, 2,3")
	t.Setenv("DEBUG_GROUPS", "-42")

	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "999:env", cfg.Telegram.BotToken)
	assert.Equal(t, []int64{1, 2, 3}, cfg.Telegram.AdminIDs)
	assert.Equal(t, []int64{-42}, cfg.Scan.DebugGroups)
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Run("bad admin list", func(t *testing.T) {
		t.Setenv("ADMIN_IDS", "1,x")
		_, err := LoadConfig(writeConfig(t, minimalConfig))
		assert.ErrorContains(t, err, "ADMIN_IDS")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "server:\n  port: 8080\ntelegram:\n  bot_token: nocolon\n"))
		assert.ErrorContains(t, err, "telegram.bot_token")
	})
}

func TestValidateStatic(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 8080},
			Telegram: TelegramConfig{BotToken: "1:a"},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"valid", func(*Config) {}, ""},
		{"port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"token", func(c *Config) { c.Telegram.BotToken = "" }, "telegram.bot_token"},
		{"embed and binding", func(c *Config) {
			c.Dispatch.EmbedWorker = true
			c.Dispatch.BindingURL = "http://worker.internal"
		}, "dispatch.embed_worker"},
		{"kafka without brokers", func(c *Config) { c.Broker.Type = "kafka" }, "broker.kafka.brokers"},
		{"unknown broker", func(c *Config) { c.Broker.Type = "nats" }, "broker.type"},
		{"redis port", func(c *Config) { c.Database.Redis.Host = "localhost" }, "database.redis.port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := ValidateStatic(cfg)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.field)
		})
	}
}

func TestParseIDList(t *testing.T) {
	ids, err := ParseIDList(" 1, -100 ,,3 ")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, -100, 3}, ids)

	_, err = ParseIDList("1,two")
	assert.Error(t, err)
}
