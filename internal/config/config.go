package config

import (
	"time"
)

type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Telegram       TelegramConfig       `mapstructure:"telegram"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Broker         BrokerConfig         `mapstructure:"broker"`
	Logging        LoggingConfig        `mapstructure:"logging"`
	Dispatch       DispatchConfig       `mapstructure:"dispatch"`
	Scan           ScanConfig           `mapstructure:"scan"`
	Deduplication  DeduplicationConfig  `mapstructure:"deduplication"`
	Worker         WorkerConfig         `mapstructure:"worker"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Tracing        TracingConfig        `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port                int           `mapstructure:"port"`
	ReadTimeoutSeconds  time.Duration `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds time.Duration `mapstructure:"write_timeout_seconds"`
}

type TelegramConfig struct {
	BotToken      string  `mapstructure:"bot_token"`
	APIURL        string  `mapstructure:"api_url"`
	WebhookSecret string  `mapstructure:"webhook_secret"`
	AdminIDs      []int64 `mapstructure:"admin_ids"`
	SetupCommands bool    `mapstructure:"setup_commands"`
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type BrokerConfig struct {
	Type  string      `mapstructure:"type"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers    []string `mapstructure:"brokers"`
	AuditTopic string   `mapstructure:"audit_topic"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DispatchConfig controls how scan and test requests reach the AI worker.
type DispatchConfig struct {
	// WorkerURL is the public HTTP endpoint of the AI worker.
	WorkerURL string `mapstructure:"worker_url"`
	// BindingURL is a private service address used as the direct binding.
	BindingURL string `mapstructure:"binding_url"`
	// EmbedWorker serves the AI worker in-process and binds to it directly.
	EmbedWorker bool `mapstructure:"embed_worker"`

	BindingTimeout  time.Duration `mapstructure:"binding_timeout"`
	HTTPTimeout     time.Duration `mapstructure:"http_timeout"`
	AvailabilityTTL time.Duration `mapstructure:"availability_ttl"`
	Retry           RetryConfig   `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts            int           `mapstructure:"max_attempts"`
	Interval               time.Duration `mapstructure:"interval"`
	ConnectionAbortedDelay time.Duration `mapstructure:"connection_aborted_delay"`
}

type ScanConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	AutoDelete     bool    `mapstructure:"auto_delete"`
	EnabledGroups  []int64 `mapstructure:"enabled_groups"`
	DebugGroups    []int64 `mapstructure:"debug_groups"`
	DebugAllGroups bool    `mapstructure:"debug_all_groups"`
	CustomPrompt   string  `mapstructure:"custom_prompt"`
	// Rule is a CEL expression deciding whether a message is scanned at all.
	Rule string `mapstructure:"rule"`
}

// DeduplicationConfig drops redelivered Telegram updates by update_id.
type DeduplicationConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type WorkerConfig struct {
	ProviderTimeout time.Duration   `mapstructure:"provider_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	RPS             float64 `mapstructure:"rps"`
	Burst           int     `mapstructure:"burst"`
	CleanupInterval int     `mapstructure:"cleanup_interval"`
	MaxAge          int     `mapstructure:"max_age"`
}

type CircuitBreakerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	MaxRequests  uint32        `mapstructure:"max_requests"`
	Interval     time.Duration `mapstructure:"interval"`
	Timeout      time.Duration `mapstructure:"timeout"`
	FailureRatio float64       `mapstructure:"failure_ratio"`
	MinRequests  uint32        `mapstructure:"min_requests"`
}

type TracingConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	ServiceName string        `mapstructure:"service_name"`
	OTLP        OTLPConfig    `mapstructure:"otlp"`
	Sampler     SamplerConfig `mapstructure:"sampler"`
}

type OTLPConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	Insecure bool   `mapstructure:"insecure"`
}

type SamplerConfig struct {
	Type  string  `mapstructure:"type"`
	Param float64 `mapstructure:"param"`
}

func Load(configFile string) (*Config, error) {
	return LoadConfig(configFile)
}
