package broker

import (
	"fmt"
	"strings"

	"ccbot/internal/config"
	"ccbot/internal/logger"
)

// NewProducer picks the audit producer for cfg.Type. An empty type or "none"
// disables auditing; only "kafka" publishes.
func NewProducer(cfg config.BrokerConfig, serviceName string, log logger.Logger) (Producer, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "none":
		log.Infow("Dispatch audit disabled", "service", serviceName)
		return NopProducer{}, nil
	case "kafka":
		log.Infow("Dispatch audit publishing to Kafka",
			"service", serviceName,
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.AuditTopic,
		)
		return NewKafkaProducer(cfg.Kafka, serviceName, log), nil
	default:
		return nil, fmt.Errorf("unsupported broker type %q", cfg.Type)
	}
}
