package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errors []error

	if err := validateServer(cfg.Server); err != nil {
		errors = append(errors, err)
	}

	if err := validateTelegram(cfg.Telegram); err != nil {
		errors = append(errors, err)
	}

	if err := validateDispatch(cfg.Dispatch); err != nil {
		errors = append(errors, err)
	}

	if err := validateBroker(cfg.Broker); err != nil {
		errors = append(errors, err)
	}

	if err := validateRedis(cfg.Database.Redis); err != nil {
		errors = append(errors, err)
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}

	return nil
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeoutSeconds < 0 {
		return &ValidationError{
			Field:   "server.read_timeout_seconds",
			Message: "read timeout must be non-negative",
		}
	}

	if cfg.WriteTimeoutSeconds < 0 {
		return &ValidationError{
			Field:   "server.write_timeout_seconds",
			Message: "write timeout must be non-negative",
		}
	}

	return nil
}

func validateTelegram(cfg TelegramConfig) error {
	if cfg.BotToken == "" {
		return &ValidationError{
			Field:   "telegram.bot_token",
			Message: "bot token is required",
		}
	}

	if !strings.Contains(cfg.BotToken, ":") {
		return &ValidationError{
			Field:   "telegram.bot_token",
			Message: "bot token must have the form <bot_id>:<secret>",
		}
	}

	return nil
}

// validateDispatch leaves an empty or malformed worker URL alone: a missing
// URL is reported to users through the fallback path, and a malformed one is
// tried as-is so the request failure carries the diagnosis.
func validateDispatch(cfg DispatchConfig) error {
	if cfg.BindingURL != "" {
		if _, err := url.Parse(cfg.BindingURL); err != nil {
			return &ValidationError{
				Field:   "dispatch.binding_url",
				Message: fmt.Sprintf("invalid binding url: %v", err),
			}
		}
	}

	if cfg.BindingURL != "" && cfg.EmbedWorker {
		return &ValidationError{
			Field:   "dispatch.embed_worker",
			Message: "embed_worker and binding_url are mutually exclusive",
		}
	}

	if cfg.BindingTimeout < 0 || cfg.HTTPTimeout < 0 {
		return &ValidationError{
			Field:   "dispatch.timeouts",
			Message: "timeouts must be non-negative",
		}
	}

	if cfg.Retry.MaxAttempts < 0 {
		return &ValidationError{
			Field:   "dispatch.retry.max_attempts",
			Message: "max_attempts must be non-negative",
		}
	}

	if cfg.Retry.Interval < 0 {
		return &ValidationError{
			Field:   "dispatch.retry.interval",
			Message: "interval must be non-negative",
		}
	}

	return nil
}

func validateBroker(cfg BrokerConfig) error {
	switch cfg.Type {
	case "", "none":
		return nil
	case "kafka":
		return validateKafka(cfg.Kafka)
	default:
		return &ValidationError{
			Field:   "broker.type",
			Message: fmt.Sprintf("unknown broker type: %s (supported: kafka, none)", cfg.Type),
		}
	}
}

func validateKafka(cfg KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return &ValidationError{
			Field:   "broker.kafka.brokers",
			Message: "at least one Kafka broker is required",
		}
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.AuditTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.audit_topic",
			Message: "audit topic is required",
		}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" && cfg.Port == 0 {
		return nil
	}

	if cfg.Host == "" {
		return &ValidationError{
			Field:   "database.redis.host",
			Message: "Redis host is required",
		}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}
