package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"ccbot/internal/constants"
)

func LoadConfig(configFile string) (*Config, error) {
	viper.Reset()

	viper.SetConfigType("yaml")
	viper.SetConfigFile(configFile)

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func bindEnvVariables() {
	viper.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN", "BOT_TOKEN")
	viper.BindEnv("telegram.api_url", "TELEGRAM_API_URL")
	viper.BindEnv("telegram.webhook_secret", "TELEGRAM_WEBHOOK_SECRET")

	viper.BindEnv("dispatch.worker_url", "DISPATCH_WORKER_URL", "ASYNC_AI_WORKER_URL")
	viper.BindEnv("dispatch.binding_url", "DISPATCH_BINDING_URL")
	viper.BindEnv("dispatch.embed_worker", "DISPATCH_EMBED_WORKER")

	viper.BindEnv("scan.enabled", "SCAN_ENABLED", "AI_SCAN_ENABLED")
	viper.BindEnv("scan.auto_delete", "SCAN_AUTO_DELETE", "AI_SCAN_AUTO_DELETE")
	viper.BindEnv("scan.debug_all_groups", "SCAN_DEBUG_ALL_GROUPS", "DEBUG_ALL_GROUPS")

	viper.BindEnv("deduplication.enabled", "DEDUPLICATION_ENABLED")

	viper.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	viper.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	viper.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	viper.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	viper.BindEnv("broker.type", "BROKER_TYPE")
	viper.BindEnv("broker.kafka.audit_topic", "BROKER_KAFKA_AUDIT_TOPIC")

	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.read_timeout_seconds", "SERVER_READ_TIMEOUT_SECONDS")
	viper.BindEnv("server.write_timeout_seconds", "SERVER_WRITE_TIMEOUT_SECONDS")

	viper.BindEnv("logging.level", "LOGGING_LEVEL", "LOG_LEVEL")
	viper.BindEnv("logging.format", "LOGGING_FORMAT")

	viper.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	viper.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

func applyEnvOverrides(cfg *Config) error {
	if brokersEnv := viper.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		brokers := splitList(brokersEnv)
		if len(brokers) > 0 {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}

	lists := []struct {
		env    string
		target *[]int64
	}{
		{"ADMIN_IDS", &cfg.Telegram.AdminIDs},
		{"ENABLED_GROUPS", &cfg.Scan.EnabledGroups},
		{"DEBUG_GROUPS", &cfg.Scan.DebugGroups},
	}
	for _, l := range lists {
		raw := viper.GetString(l.env)
		if raw == "" {
			continue
		}
		ids, err := ParseIDList(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", l.env, err)
		}
		*l.target = ids
	}

	if otlpEndpoint := viper.GetString("TRACING_OTLP_ENDPOINT"); otlpEndpoint != "" {
		cfg.Tracing.OTLP.Endpoint = otlpEndpoint
	}

	return nil
}

// ApplyDefaults fills zero-valued settings with the reference behavior.
func ApplyDefaults(cfg *Config) {
	if cfg.Telegram.APIURL == "" {
		cfg.Telegram.APIURL = constants.DefaultTelegramAPIURL
	}
	if cfg.Dispatch.BindingTimeout <= 0 {
		cfg.Dispatch.BindingTimeout = constants.DefaultBindingTimeout
	}
	if cfg.Dispatch.HTTPTimeout <= 0 {
		cfg.Dispatch.HTTPTimeout = constants.DefaultHTTPAttemptTimeout
	}
	if cfg.Dispatch.AvailabilityTTL <= 0 {
		cfg.Dispatch.AvailabilityTTL = constants.DefaultAvailabilityTTL
	}
	if cfg.Dispatch.Retry.MaxAttempts <= 0 {
		cfg.Dispatch.Retry.MaxAttempts = constants.DefaultHTTPMaxAttempts
	}
	if cfg.Dispatch.Retry.Interval <= 0 {
		cfg.Dispatch.Retry.Interval = constants.DefaultRetryInterval
	}
	if cfg.Dispatch.Retry.ConnectionAbortedDelay <= 0 {
		cfg.Dispatch.Retry.ConnectionAbortedDelay = constants.ConnectionAbortedFirstRetryDelay
	}
	if cfg.Worker.ProviderTimeout <= 0 {
		cfg.Worker.ProviderTimeout = constants.DefaultProviderTimeout
	}
	if cfg.Deduplication.TTL <= 0 {
		cfg.Deduplication.TTL = constants.DefaultUpdateDedupTTL
	}
	if cfg.Database.Redis.KeyPrefix == "" {
		cfg.Database.Redis.KeyPrefix = constants.DefaultKVNamespace
	}
}

func ParseIDList(raw string) ([]int64, error) {
	parts := splitList(raw)
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
